// Package models contains GORM-specific persistence models that map to
// database tables. These models are separate from domain types to keep the
// domain layer free of ORM concerns; mappers convert in both directions.
//
// Tables:
//   - ledger_records: the canonical inventory ledger, one row per tracked sku
//   - ledger_archives: point-in-time snapshot history pulled from platforms
//   - settings: per-platform key/value state (credentials, order watermarks)
//   - order_log_entries: the append-only order audit trail
package models
