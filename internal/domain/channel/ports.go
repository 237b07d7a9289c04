package channel

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Persistence Ports
// ---------------------------------------------------------------------------

// CredentialStore persists connector credentials across restarts. Saving
// overwrites the previous credential for the platform.
type CredentialStore interface {
	// SaveCredential durably stores the credential for a platform
	SaveCredential(ctx context.Context, platform PlatformCode, cred *Credential) error

	// LoadCredential returns the stored credential, or ErrCredentialNotFound
	LoadCredential(ctx context.Context, platform PlatformCode) (*Credential, error)
}

// WatermarkStore persists per-connector order polling state: the
// last-checked timestamp and whether polling is enabled at all.
type WatermarkStore interface {
	// SaveWatermark stores the last-checked timestamp for a platform
	SaveWatermark(ctx context.Context, platform PlatformCode, t time.Time) error

	// LoadWatermark returns the stored timestamp, or ErrWatermarkNotFound
	LoadWatermark(ctx context.Context, platform PlatformCode) (time.Time, error)

	// SetWatching enables or disables order polling for a platform
	SetWatching(ctx context.Context, platform PlatformCode, watching bool) error

	// Watching reports whether order polling is enabled for a platform
	Watching(ctx context.Context, platform PlatformCode) (bool, error)
}

// OAuthStateStore holds in-flight authorization state (anti-forgery value
// plus PKCE verifier) between the setup redirect and the provider callback.
// Entries expire after a short TTL and are consumed on first read.
type OAuthStateStore interface {
	// SaveState stores the verifier under (platform, state) with a TTL
	SaveState(ctx context.Context, platform PlatformCode, state, verifier string, ttl time.Duration) error

	// ConsumeState returns and deletes the verifier, or ErrStateNotFound
	ConsumeState(ctx context.Context, platform PlatformCode, state string) (string, error)
}

// ---------------------------------------------------------------------------
// Ledger Ports
// ---------------------------------------------------------------------------

// LedgerRepository is the canonical inventory ledger. It is authoritative
// only for the skus it tracks; reconciliation never invents or deletes
// remote-only skus based on its contents.
type LedgerRepository interface {
	// GetInventory returns the current canonical snapshot
	GetInventory(ctx context.Context) (*Snapshot, error)

	// ReplaceInventory overwrites the tracked rows with the given snapshot
	ReplaceInventory(ctx context.Context, snapshot *Snapshot) error

	// Archive stores a timestamped copy of a connector snapshot alongside
	// the ledger, without touching the canonical rows
	Archive(ctx context.Context, snapshot *Snapshot) error
}

// OrderLog is the immutable audit trail of order events
type OrderLog interface {
	// Append adds entries to the audit trail
	Append(ctx context.Context, entries []OrderLogEntry) error
}
