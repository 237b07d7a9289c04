package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/oauth"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
)

// shopifyScopes are the access scopes requested during authorization
var shopifyScopes = []string{"read_products", "write_inventory", "read_orders"}

// ShopifyAdapter implements the Connector interface for the Shopify GraphQL
// admin API. Shopify access tokens do not expire, so the token store carries
// no refresher.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	tokens     *oauth.TokenStore
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShopifyAdapter creates a Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, store channel.CredentialStore, limiter *ratelimit.Limiter, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config:     config,
		tokens:     oauth.NewTokenStore(channel.PlatformCodeShopify, store, nil, logger),
		limiter:    limiter,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		logger:     logger.Named("shopify"),
	}, nil
}

// Restore loads a previously persisted access token, if any
func (a *ShopifyAdapter) Restore(ctx context.Context) error {
	return a.tokens.Restore(ctx)
}

// Platform returns the platform code this adapter handles
func (a *ShopifyAdapter) Platform() channel.PlatformCode {
	return channel.PlatformCodeShopify
}

// Ready returns true iff an access token is held
func (a *ShopifyAdapter) Ready() bool {
	return a.tokens.Ready()
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// GenerateAuthURL begins an authorization attempt and returns the grant page
// URL with a fresh state nonce
func (a *ShopifyAdapter) GenerateAuthURL(_ context.Context) (*channel.AuthPrompt, error) {
	if err := a.tokens.BeginAuthorization(); err != nil {
		return nil, err
	}

	state := oauth.NewState()
	query := url.Values{}
	query.Set("client_id", a.config.APIKey)
	query.Set("scope", strings.Join(shopifyScopes, ","))
	query.Set("state", state)
	query.Set("redirect_uri", a.config.RedirectURI)

	return &channel.AuthPrompt{
		URL:   a.config.authorizeURL() + "?" + query.Encode(),
		State: state,
	}, nil
}

// CompleteAuthorization exchanges the callback code for an access token.
// Shopify's exchange authenticates with the shared secret rather than PKCE,
// so the verifier is unused.
func (a *ShopifyAdapter) CompleteAuthorization(ctx context.Context, code, _ string) error {
	cred, err := a.exchangeCode(ctx, code)
	if err != nil {
		a.tokens.AuthorizationFailed()
		return err
	}
	a.tokens.Accept(ctx, cred)
	a.logger.Info("Authorized against shop", zap.String("shop", a.config.Shop))
	return nil
}

// exchangeCode posts the grant code to the shop's token endpoint
func (a *ShopifyAdapter) exchangeCode(ctx context.Context, code string) (*channel.Credential, error) {
	form := url.Values{}
	form.Set("client_id", a.config.APIKey)
	form.Set("client_secret", a.config.SecretKey)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.accessTokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", channel.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", channel.ErrAuthFailed, resp.StatusCode, body)
	}

	var token shopifyAccessTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("shopify: failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", channel.ErrAuthFailed)
	}

	return &channel.Credential{
		AccessToken: token.AccessToken,
		RequestedAt: time.Now(),
	}, nil
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// FetchSnapshot walks the inventory-level cursor pagination and returns the
// full remote inventory. Any page failure aborts the whole snapshot.
func (a *ShopifyAdapter) FetchSnapshot(ctx context.Context) (*channel.Snapshot, error) {
	var records []channel.InventoryRecord
	var after *string
	for {
		location, err := a.inventoryPage(ctx, after)
		if err != nil {
			return nil, err
		}
		edges := location.InventoryLevels.Edges
		for _, edge := range edges {
			records = append(records, channel.InventoryRecord{
				SKU:      edge.Node.Item.SKU,
				Quantity: edge.Node.Available,
				Name:     edge.Node.Item.Variant.DisplayName,
			})
		}
		// an empty page carries no cursor to continue from
		if !location.InventoryLevels.PageInfo.HasNextPage || len(edges) == 0 {
			break
		}
		cursor := edges[len(edges)-1].Cursor
		after = &cursor
	}
	return channel.NewSnapshot(channel.PlatformCodeShopify, records), nil
}

// ApplyDelta re-fetches each inventory page and issues one bulk quantity
// adjustment per page covering the addressed records whose remote quantity
// differs from the target
func (a *ShopifyAdapter) ApplyDelta(ctx context.Context, delta channel.Delta) ([]channel.WriteResult, error) {
	if delta.Empty() {
		return nil, nil
	}

	var results []channel.WriteResult
	var after *string
	for {
		location, err := a.inventoryPage(ctx, after)
		if err != nil {
			return nil, err
		}

		edges := location.InventoryLevels.Edges

		var adjustments []shopifyAdjustment
		var addressed []channel.WriteResult
		for _, edge := range edges {
			item := edge.Node.Item
			if item.SKU == "" {
				continue
			}
			entry, ok := delta.Find(item.SKU)
			if !ok {
				continue
			}
			change := entry.Target - edge.Node.Available
			if change == 0 {
				results = append(results, channel.WriteResult{SKU: item.SKU, RemoteID: item.ID, Status: channel.WriteStatusSkipped})
				continue
			}
			adjustments = append(adjustments, shopifyAdjustment{InventoryItemID: item.ID, AvailableDelta: change})
			addressed = append(addressed, channel.WriteResult{SKU: item.SKU, RemoteID: item.ID, Status: channel.WriteStatusApplied})
		}

		if len(adjustments) > 0 {
			if err := a.adjustInventory(ctx, location.ID, adjustments); err != nil {
				a.logger.Error("Inventory push rejected", zap.Error(err))
				for i := range addressed {
					addressed[i].Status = channel.WriteStatusFailed
					addressed[i].Error = err.Error()
				}
			}
		}
		results = append(results, addressed...)

		if !location.InventoryLevels.PageInfo.HasNextPage || len(edges) == 0 {
			break
		}
		cursor := edges[len(edges)-1].Cursor
		after = &cursor
	}
	return results, nil
}

// inventoryPage fetches one page of inventory levels. Only the shop's first
// location is used; multi-location inventory is out of scope.
func (a *ShopifyAdapter) inventoryPage(ctx context.Context, after *string) (*shopifyLocation, error) {
	variables := map[string]any{"after": after}
	var data shopifyGetInventoryData
	if err := a.graphql(ctx, shopifyGetInventoryQuery, variables, &data); err != nil {
		return nil, err
	}
	if len(data.Locations.Edges) == 0 {
		return nil, fmt.Errorf("shopify: shop has no locations")
	}
	return &data.Locations.Edges[0].Node, nil
}

// adjustInventory issues one bulk quantity adjustment at the given location
func (a *ShopifyAdapter) adjustInventory(ctx context.Context, locationID string, adjustments []shopifyAdjustment) error {
	var data shopifyUpdateInventoryData
	err := a.graphql(ctx, shopifyUpdateInventoryQuery, map[string]any{
		"location":    locationID,
		"adjustments": adjustments,
	}, &data)
	if err != nil {
		return err
	}
	if userErrors := data.InventoryBulkAdjustQuantityAtLocation.UserErrors; len(userErrors) > 0 {
		messages := make([]string, 0, len(userErrors))
		for _, e := range userErrors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("shopify: %s", strings.Join(messages, ". "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// TranslateOrder maps an order webhook payload to a domain order. Tip line
// items and items without a sku are dropped.
func (a *ShopifyAdapter) TranslateOrder(raw []byte) (*channel.Order, error) {
	var payload shopifyOrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("shopify: failed to parse order payload: %w", err)
	}

	orderedAt, err := time.Parse(time.RFC3339, payload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("shopify: invalid order timestamp %q: %w", payload.CreatedAt, err)
	}

	items := make([]channel.OrderItem, 0, len(payload.LineItems))
	for _, line := range payload.LineItems {
		if line.Tip || line.SKU == "" {
			continue
		}
		items = append(items, channel.OrderItem{SKU: line.SKU, Quantity: line.Quantity})
	}

	return &channel.Order{
		Source:    channel.PlatformCodeShopify,
		OrderedAt: orderedAt,
		Items:     items,
		Raw:       json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// RegisterWebhooks subscribes to order created and cancelled events. A user
// error from either subscription means hooks are already registered.
func (a *ShopifyAdapter) RegisterWebhooks(ctx context.Context) error {
	var data shopifyRegisterWebhooksData
	err := a.graphql(ctx, shopifyRegisterWebhooksQuery, map[string]any{
		"createCallback":    a.config.OrdersCreatedURL,
		"cancelledCallback": a.config.OrdersCancelledURL,
	}, &data)
	if err != nil {
		return err
	}
	if len(data.CreateOrdersHook.UserErrors) > 0 || len(data.CancelOrdersHook.UserErrors) > 0 {
		return channel.ErrHooksExist
	}
	return nil
}

// UnregisterWebhooks removes every order subscription held by this app
func (a *ShopifyAdapter) UnregisterWebhooks(ctx context.Context) error {
	var data shopifyCheckWebhooksData
	if err := a.graphql(ctx, shopifyCheckWebhooksQuery, nil, &data); err != nil {
		return err
	}
	for _, edge := range data.WebhookSubscriptions.Edges {
		if err := a.graphql(ctx, shopifyUnregisterWebhookQuery, map[string]any{"id": edge.Node.ID}, nil); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// graphql schedules one authenticated GraphQL request through the limiter and
// decodes the data document into out
func (a *ShopifyAdapter) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return err
	}

	data, err := ratelimit.Do(ctx, a.limiter, func(ctx context.Context) (json.RawMessage, error) {
		return postGraphQL(ctx, a.httpClient, channel.PlatformCodeShopify, a.config.graphqlURL(), query, variables, map[string]string{
			"X-Shopify-Access-Token": cred.AccessToken,
		})
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("shopify: failed to parse response: %w", err)
	}
	return nil
}

// Interface assertions
var (
	_ channel.Connector      = (*ShopifyAdapter)(nil)
	_ channel.Authorizer     = (*ShopifyAdapter)(nil)
	_ channel.WebhookManager = (*ShopifyAdapter)(nil)
)
