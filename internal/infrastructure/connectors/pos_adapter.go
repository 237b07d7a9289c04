package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/oauth"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
)

// POSConfig holds the account credentials and callback URLs for the
// point-of-sale platform
type POSConfig struct {
	// Username is the account login
	Username string
	// Password is the account password
	Password string
	// BaseURL is the API origin
	BaseURL string
	// OrdersCreatedURL receives new-sale webhooks
	OrdersCreatedURL string
	// OrdersCancelledURL receives deleted-sale webhooks
	OrdersCancelledURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// POSDefaultBaseURL is the production API origin
const POSDefaultBaseURL = "https://conartist.app"

// Errors for POS configuration
var (
	ErrPOSConfigMissingUsername = errors.New("pos: username is required")
	ErrPOSConfigMissingPassword = errors.New("pos: password is required")
)

// Validate validates the POS configuration and fills defaults
func (c *POSConfig) Validate() error {
	if c.Username == "" {
		return ErrPOSConfigMissingUsername
	}
	if c.Password == "" {
		return ErrPOSConfigMissingPassword
	}
	if c.BaseURL == "" {
		c.BaseURL = POSDefaultBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// posTokenLifetime is how long a bearer token is assumed usable before the
// adapter logs in again. The platform does not publish a lifetime; tokens are
// cheap to re-derive from the configured password.
const posTokenLifetime = 10 * time.Minute

// posLoginResponse is the password-auth response envelope
type posLoginResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
	Error  string `json:"error"`
}

// POSAdapter implements the Connector interface for the point-of-sale
// platform. Credentials come from configuration rather than an interactive
// grant: the adapter derives short-lived bearer tokens from the configured
// username and password, reauthorizing transparently whenever the token
// store's credential lapses. Tokens live only in memory.
type POSAdapter struct {
	config     *POSConfig
	tokens     *oauth.TokenStore
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPOSAdapter creates a POS adapter with the given configuration
func NewPOSAdapter(config *POSConfig, limiter *ratelimit.Limiter, logger *zap.Logger) (*POSAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &POSAdapter{
		config:     config,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		logger:     logger.Named("pos"),
	}
	a.tokens = oauth.NewTokenStore(channel.PlatformCodePOS, oauth.NewMemoryCredentialStore(), a.login, logger)
	return a, nil
}

// Platform returns the platform code this adapter handles
func (a *POSAdapter) Platform() channel.PlatformCode {
	return channel.PlatformCodePOS
}

// Ready is always true: the credential is re-derivable from configuration,
// so the connector never needs an interactive grant
func (a *POSAdapter) Ready() bool {
	return true
}

// login exchanges the configured username and password for a bearer token
func (a *POSAdapter) login(ctx context.Context, _ *channel.Credential) (*channel.Credential, error) {
	payload, err := json.Marshal(map[string]string{
		"usr": a.config.Username,
		"psw": a.config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("pos: failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/auth", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pos: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", channel.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("pos: failed to read login response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: login endpoint returned %d: %s", channel.ErrAuthFailed, resp.StatusCode, body)
	}

	var login posLoginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return nil, fmt.Errorf("pos: failed to parse login response: %w", err)
	}
	if login.Status != "Success" {
		return nil, fmt.Errorf("%w: pos login rejected: %s", channel.ErrAuthFailed, login.Error)
	}

	return &channel.Credential{
		AccessToken: login.Data,
		RequestedAt: time.Now(),
		ExpiresIn:   posTokenLifetime,
	}, nil
}

// credential returns a usable bearer token, logging in when none is held.
// The token store refreshes near-expiry tokens through login itself.
func (a *POSAdapter) credential(ctx context.Context) (*channel.Credential, error) {
	if !a.tokens.Ready() {
		cred, err := a.login(ctx, nil)
		if err != nil {
			return nil, err
		}
		a.tokens.Accept(ctx, cred)
		return cred, nil
	}
	return a.tokens.Credential(ctx)
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// FetchSnapshot returns the account's full product list; the platform does
// not paginate it
func (a *POSAdapter) FetchSnapshot(ctx context.Context) (*channel.Snapshot, error) {
	var data posGetInventoryData
	if err := a.graphql(ctx, posGetInventoryQuery, nil, &data); err != nil {
		return nil, err
	}

	records := make([]channel.InventoryRecord, 0, len(data.User.Products))
	for _, product := range data.User.Products {
		records = append(records, channel.InventoryRecord{
			SKU:      product.SKU,
			Quantity: product.Quantity,
			Name:     product.Name,
		})
	}
	return channel.NewSnapshot(channel.PlatformCodePOS, records), nil
}

// ApplyDelta re-fetches the product list and issues one modification per
// addressed product whose quantity differs from the target. Skus with no
// product and products already at the target are skipped.
func (a *POSAdapter) ApplyDelta(ctx context.Context, delta channel.Delta) ([]channel.WriteResult, error) {
	if delta.Empty() {
		return nil, nil
	}

	var data posGetInventoryData
	if err := a.graphql(ctx, posGetInventoryQuery, nil, &data); err != nil {
		return nil, err
	}

	bySKU := make(map[string]posProduct, len(data.User.Products))
	for _, product := range data.User.Products {
		if product.SKU != "" {
			bySKU[product.SKU] = product
		}
	}

	results := make([]channel.WriteResult, 0, len(delta))
	for _, entry := range delta {
		product, ok := bySKU[entry.SKU]
		if !ok {
			results = append(results, channel.WriteResult{SKU: entry.SKU, Status: channel.WriteStatusSkipped})
			continue
		}
		if product.Quantity == entry.Target {
			results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: product.ID, Status: channel.WriteStatusSkipped})
			continue
		}

		err := a.graphql(ctx, posUpdateInventoryQuery, map[string]any{
			"product": map[string]any{"productId": product.ID, "quantity": entry.Target},
		}, nil)
		if err != nil {
			a.logger.Warn("Product update failed", zap.String("sku", entry.SKU), zap.Error(err))
			results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: product.ID, Status: channel.WriteStatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: product.ID, Status: channel.WriteStatusApplied})
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// posOrderPayload is the sale webhook body
type posOrderPayload struct {
	SaleTime string `json:"sale_time"`
	Products []struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	} `json:"products"`
}

// TranslateOrder maps a sale webhook payload to a domain order. Products
// without a sku are dropped.
func (a *POSAdapter) TranslateOrder(raw []byte) (*channel.Order, error) {
	var payload posOrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("pos: failed to parse order payload: %w", err)
	}

	orderedAt, err := time.Parse(time.RFC3339, payload.SaleTime)
	if err != nil {
		return nil, fmt.Errorf("pos: invalid sale timestamp %q: %w", payload.SaleTime, err)
	}

	items := make([]channel.OrderItem, 0, len(payload.Products))
	for _, product := range payload.Products {
		if product.SKU == "" {
			continue
		}
		items = append(items, channel.OrderItem{SKU: product.SKU, Quantity: product.Quantity})
	}

	return &channel.Order{
		Source:    channel.PlatformCodePOS,
		OrderedAt: orderedAt,
		Items:     items,
		Raw:       json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// RegisterWebhooks subscribes the configured callbacks to new-sale and
// deleted-sale events
func (a *POSAdapter) RegisterWebhooks(ctx context.Context) error {
	return a.graphql(ctx, posRegisterWebhooksQuery, map[string]any{
		"createCallback":    a.config.OrdersCreatedURL,
		"cancelledCallback": a.config.OrdersCancelledURL,
	}, nil)
}

// UnregisterWebhooks removes only the subscriptions pointing at our
// configured callbacks; other consumers' hooks are left alone
func (a *POSAdapter) UnregisterWebhooks(ctx context.Context) error {
	var data posCheckWebhooksData
	if err := a.graphql(ctx, posCheckWebhooksQuery, nil, &data); err != nil {
		return err
	}

	for _, hook := range data.User.Webhooks.NewRecord {
		if hook.URL != a.config.OrdersCreatedURL {
			continue
		}
		if err := a.graphql(ctx, posDeleteNewRecordWebhookQuery, map[string]any{"id": hook.ID}, nil); err != nil {
			return err
		}
	}
	for _, hook := range data.User.Webhooks.DeleteRecord {
		if hook.URL != a.config.OrdersCancelledURL {
			continue
		}
		if err := a.graphql(ctx, posDeleteDeleteRecordWebhookQuery, map[string]any{"id": hook.ID}, nil); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// graphql schedules one authenticated GraphQL request through the limiter,
// deriving a bearer token first when needed
func (a *POSAdapter) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	cred, err := a.credential(ctx)
	if err != nil {
		return err
	}

	data, err := ratelimit.Do(ctx, a.limiter, func(ctx context.Context) (json.RawMessage, error) {
		return postGraphQL(ctx, a.httpClient, channel.PlatformCodePOS, a.config.BaseURL+"/api/v2", query, variables, map[string]string{
			"Authorization": "Bearer " + cred.AccessToken,
		})
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("pos: failed to parse response: %w", err)
	}
	return nil
}

// Interface assertions
var (
	_ channel.Connector      = (*POSAdapter)(nil)
	_ channel.WebhookManager = (*POSAdapter)(nil)
)
