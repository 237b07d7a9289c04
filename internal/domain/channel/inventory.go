package channel

import (
	"time"
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies an external sales channel
type PlatformCode string

const (
	// PlatformCodeLedger is the canonical spreadsheet-backed ledger
	PlatformCodeLedger PlatformCode = "LEDGER"
	// PlatformCodeEtsy is the legacy Etsy v2 API (OAuth1)
	PlatformCodeEtsy PlatformCode = "ETSY"
	// PlatformCodeEtsyV3 is the Etsy v3 API (OAuth2 + PKCE)
	PlatformCodeEtsyV3 PlatformCode = "ETSY_V3"
	// PlatformCodeShopify is the Shopify GraphQL admin API
	PlatformCodeShopify PlatformCode = "SHOPIFY"
	// PlatformCodePOS is the convention point-of-sale platform
	PlatformCodePOS PlatformCode = "POS"
)

// IsValid returns true if the platform code names a known connector
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeEtsy, PlatformCodeEtsyV3, PlatformCodeShopify, PlatformCodePOS:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// InventoryRecord / Snapshot
// ---------------------------------------------------------------------------

// InventoryRecord is one row of inventory from a single source. Identity is
// the SKU; records with an empty SKU are unmanaged and never touched by
// reconciliation.
type InventoryRecord struct {
	// SKU is the stock keeping unit, unique within a snapshot
	SKU string `json:"sku"`
	// Quantity is the available quantity, never negative
	Quantity int64 `json:"quantity"`
	// Name is an optional display name
	Name string `json:"name,omitempty"`
}

// Managed returns true if the record participates in reconciliation
func (r InventoryRecord) Managed() bool {
	return r.SKU != ""
}

// Snapshot is an immutable point-in-time listing of inventory from one
// source. A new sync always produces a new Snapshot.
type Snapshot struct {
	// Source is the connector platform code or PlatformCodeLedger
	Source PlatformCode `json:"source"`
	// FetchedAt is when the snapshot was taken
	FetchedAt time.Time `json:"fetchedAt"`
	// Records is the ordered list of inventory records
	Records []InventoryRecord `json:"records"`
}

// NewSnapshot creates a snapshot tagged with its source and fetch time
func NewSnapshot(source PlatformCode, records []InventoryRecord) *Snapshot {
	return &Snapshot{
		Source:    source,
		FetchedAt: time.Now(),
		Records:   records,
	}
}

// Find returns the record with the given sku, or false when absent or when
// sku is empty (unmanaged records have no identity)
func (s *Snapshot) Find(sku string) (InventoryRecord, bool) {
	if sku == "" {
		return InventoryRecord{}, false
	}
	for _, r := range s.Records {
		if r.SKU == sku {
			return r, true
		}
	}
	return InventoryRecord{}, false
}

// Validate checks the snapshot invariants: no duplicate skus among managed
// records and no negative quantities
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Records))
	for _, r := range s.Records {
		if r.Quantity < 0 {
			return ErrInvalidQuantity
		}
		if !r.Managed() {
			continue
		}
		if _, dup := seen[r.SKU]; dup {
			return ErrDuplicateSKU
		}
		seen[r.SKU] = struct{}{}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Delta
// ---------------------------------------------------------------------------

// DeltaEntry is one per-sku quantity change. Target is the absolute quantity
// the destination should hold; Change is the signed difference from the
// remote quantity at diff time. RemoteID is the connector-specific opaque
// handle needed to address the write, when the diffing side knows it.
type DeltaEntry struct {
	// SKU identifies the record being changed
	SKU string `json:"sku"`
	// RemoteID is the platform-specific record handle (may be empty)
	RemoteID string `json:"remoteId,omitempty"`
	// Target is the absolute quantity to set
	Target int64 `json:"target"`
	// Change is Target minus the remote quantity at diff time
	Change int64 `json:"change"`
}

// Delta is the set of per-sku changes needed to move a remote snapshot
// toward the canonical one. Zero-change entries are never present.
type Delta []DeltaEntry

// Empty returns true when the delta contains no changes
func (d Delta) Empty() bool {
	return len(d) == 0
}

// Find returns the entry for the given sku
func (d Delta) Find(sku string) (DeltaEntry, bool) {
	for _, e := range d {
		if e.SKU == sku {
			return e, true
		}
	}
	return DeltaEntry{}, false
}

// ---------------------------------------------------------------------------
// Write Results
// ---------------------------------------------------------------------------

// WriteStatus classifies the outcome of applying one delta entry
type WriteStatus string

const (
	// WriteStatusApplied indicates the quantity was written to the platform
	WriteStatusApplied WriteStatus = "APPLIED"
	// WriteStatusSkipped indicates the write was a structural no-op
	WriteStatusSkipped WriteStatus = "SKIPPED"
	// WriteStatusFailed indicates the platform rejected the write
	WriteStatusFailed WriteStatus = "FAILED"
)

// WriteResult is the per-record outcome of ApplyDelta
type WriteResult struct {
	// SKU identifies the record
	SKU string `json:"sku"`
	// RemoteID is the platform handle that was addressed
	RemoteID string `json:"remoteId,omitempty"`
	// Status is the outcome classification
	Status WriteStatus `json:"status"`
	// Error holds the failure description when Status is FAILED
	Error string `json:"error,omitempty"`
}
