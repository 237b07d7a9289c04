package models

import (
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/google/uuid"
)

// LedgerRecordModel is one canonical inventory row. The sku is the identity;
// Position preserves the ledger's row order across replacements.
type LedgerRecordModel struct {
	SKU       string    `gorm:"primaryKey;size:128"`
	Quantity  int64     `gorm:"not null;default:0"`
	Name      string    `gorm:"size:255"`
	Position  int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerRecordModel) TableName() string {
	return "ledger_records"
}

// ToDomain converts the persistence model to a domain InventoryRecord.
func (m *LedgerRecordModel) ToDomain() channel.InventoryRecord {
	return channel.InventoryRecord{
		SKU:      m.SKU,
		Quantity: m.Quantity,
		Name:     m.Name,
	}
}

// LedgerRecordModelFromDomain builds a persistence model from a domain record.
func LedgerRecordModelFromDomain(r channel.InventoryRecord, position int) LedgerRecordModel {
	return LedgerRecordModel{
		SKU:       r.SKU,
		Quantity:  r.Quantity,
		Name:      r.Name,
		Position:  position,
		UpdatedAt: time.Now(),
	}
}

// LedgerArchiveModel is one row of an archived connector snapshot. Rows of
// the same archive share Source and FetchedAt.
type LedgerArchiveModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Source    string    `gorm:"size:32;not null;index:idx_ledger_archives_source_fetched,priority:1"`
	FetchedAt time.Time `gorm:"not null;index:idx_ledger_archives_source_fetched,priority:2"`
	SKU       string    `gorm:"size:128;not null"`
	Quantity  int64     `gorm:"not null"`
	Name      string    `gorm:"size:255"`
	Position  int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerArchiveModel) TableName() string {
	return "ledger_archives"
}

// LedgerArchiveModelFromDomain builds an archive row from a snapshot record.
func LedgerArchiveModelFromDomain(s *channel.Snapshot, r channel.InventoryRecord, position int) LedgerArchiveModel {
	return LedgerArchiveModel{
		ID:        uuid.New(),
		Source:    s.Source.String(),
		FetchedAt: s.FetchedAt,
		SKU:       r.SKU,
		Quantity:  r.Quantity,
		Name:      r.Name,
		Position:  position,
	}
}
