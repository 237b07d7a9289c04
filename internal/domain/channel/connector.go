package channel

import (
	"context"
	"sort"
	"time"
)

// ---------------------------------------------------------------------------
// Connector Port Interface
// ---------------------------------------------------------------------------

// Connector is the capability set implemented once per platform. Each
// connector owns exactly one rate limiter and one credential; every
// operation passes through the limiter and, when needed, through a silent
// token refresh first. Connectors are created once at process start from
// persisted credentials and are never destroyed; re-authorization replaces
// the credential in place.
type Connector interface {
	// Platform returns the platform code this connector handles
	Platform() PlatformCode

	// Ready returns true iff a valid credential is held
	Ready() bool

	// FetchSnapshot fetches the complete remote inventory using cursor
	// pagination. The fetch is all-or-nothing: any page failure aborts the
	// whole snapshot. The loop is intentionally uncapped; a platform that
	// never clears its has-next-page flag will not terminate.
	FetchSnapshot(ctx context.Context) (*Snapshot, error)

	// ApplyDelta writes the delta to the platform, returning one outcome
	// per addressed record. Platforms requiring whole-document writes
	// re-fetch remote state immediately before writing and skip records
	// whose resulting document would be structurally unchanged.
	ApplyDelta(ctx context.Context, delta Delta) ([]WriteResult, error)

	// TranslateOrder maps a raw platform payload to an Order. Pure; line
	// items without a sku are dropped.
	TranslateOrder(raw []byte) (*Order, error)
}

// Authorizer is implemented by connectors whose platforms require an
// interactive OAuth grant.
type Authorizer interface {
	// GenerateAuthURL begins an authorization attempt
	GenerateAuthURL(ctx context.Context) (*AuthPrompt, error)

	// CompleteAuthorization exchanges the callback code for a credential.
	// The already-authorized conflict is raised when the attempt begins,
	// in GenerateAuthURL; a completed exchange installs its credential
	// unconditionally.
	CompleteAuthorization(ctx context.Context, code, verifier string) error
}

// WebhookManager is implemented by connectors whose platforms deliver order
// events by webhook.
type WebhookManager interface {
	// RegisterWebhooks subscribes to order events. Returns ErrHooksExist
	// when subscriptions are already present.
	RegisterWebhooks(ctx context.Context) error

	// UnregisterWebhooks removes this process's subscriptions
	UnregisterWebhooks(ctx context.Context) error
}

// OrderPoller is implemented by connectors whose platforms must be polled
// for orders instead of delivering webhooks.
type OrderPoller interface {
	// FetchOrders returns all orders placed at or after since
	FetchOrders(ctx context.Context, since time.Time) ([]Order, error)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds the connector instances constructed at startup. It is
// populated once during wiring and read-only afterwards.
type Registry struct {
	connectors map[PlatformCode]Connector
}

// NewRegistry creates a registry over the given connectors
func NewRegistry(connectors ...Connector) *Registry {
	m := make(map[PlatformCode]Connector, len(connectors))
	for _, c := range connectors {
		m[c.Platform()] = c
	}
	return &Registry{connectors: m}
}

// Get returns the connector for the given platform
func (r *Registry) Get(platform PlatformCode) (Connector, error) {
	c, ok := r.connectors[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return c, nil
}

// List returns all connectors in stable platform-code order
func (r *Registry) List() []Connector {
	out := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Platform() < out[j].Platform()
	})
	return out
}

// ListReady returns all connectors currently holding a valid credential
func (r *Registry) ListReady() []Connector {
	out := make([]Connector, 0, len(r.connectors))
	for _, c := range r.List() {
		if c.Ready() {
			out = append(out, c)
		}
	}
	return out
}
