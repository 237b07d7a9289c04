package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/oauth"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
)

func newShopifyTestAdapter(t *testing.T, handler http.HandlerFunc) (*ShopifyAdapter, *oauth.MemoryCredentialStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := oauth.NewMemoryCredentialStore()
	adapter, err := NewShopifyAdapter(&ShopifyConfig{
		Shop:               "teststore",
		APIKey:             "key",
		SecretKey:          "secret",
		RedirectURI:        "https://app.example/shopify/callback",
		OrdersCreatedURL:   "https://app.example/shopify/orders/created",
		OrdersCancelledURL: "https://app.example/shopify/orders/cancelled",
		BaseURL:            server.URL,
	}, store, ratelimit.New(time.Millisecond), zap.NewNop())
	require.NoError(t, err)
	return adapter, store
}

func authorizeShopify(t *testing.T, adapter *ShopifyAdapter) {
	t.Helper()
	adapter.tokens.Accept(context.Background(), &channel.Credential{AccessToken: "tok"})
}

// decodeGraphQL reads one GraphQL request off the wire
func decodeGraphQL(t *testing.T, r *http.Request) graphqlRequest {
	t.Helper()
	var req graphqlRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func shopifyInventoryPage(locationID string, hasNext bool, edges ...map[string]any) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"locations": map[string]any{
				"edges": []any{map[string]any{
					"node": map[string]any{
						"id": locationID,
						"inventoryLevels": map[string]any{
							"pageInfo": map[string]any{"hasNextPage": hasNext},
							"edges":    edges,
						},
					},
				}},
			},
		},
	}
}

func shopifyLevelEdge(cursor, itemID, sku string, available int64) map[string]any {
	return map[string]any{
		"cursor": cursor,
		"node": map[string]any{
			"id":        "level-" + itemID,
			"available": available,
			"item": map[string]any{
				"id":      itemID,
				"sku":     sku,
				"variant": map[string]any{"displayName": "Variant " + sku},
			},
		},
	}
}

func TestShopifyAdapter_FetchSnapshotPaginates(t *testing.T) {
	calls := 0
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		require.Contains(t, req.Query, "query GetInventory")
		assert.Equal(t, "tok", r.Header.Get("X-Shopify-Access-Token"))
		calls++

		var page map[string]any
		switch req.Variables["after"] {
		case nil:
			page = shopifyInventoryPage("loc1", true,
				shopifyLevelEdge("c1", "i1", "alpha", 5),
				shopifyLevelEdge("c2", "i2", "bravo", 3))
		case "c2":
			page = shopifyInventoryPage("loc1", true,
				shopifyLevelEdge("c3", "i3", "charlie", 0))
		case "c3":
			page = shopifyInventoryPage("loc1", false,
				shopifyLevelEdge("c4", "i4", "delta", 8))
		default:
			t.Fatalf("unexpected cursor %v", req.Variables["after"])
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	authorizeShopify(t, adapter)

	snapshot, err := adapter.FetchSnapshot(context.Background())
	require.NoError(t, err)

	// Exactly one request per page, concatenated in page order
	assert.Equal(t, 3, calls)
	assert.Equal(t, channel.PlatformCodeShopify, snapshot.Source)
	require.Len(t, snapshot.Records, 4)
	assert.Equal(t, []channel.InventoryRecord{
		{SKU: "alpha", Quantity: 5, Name: "Variant alpha"},
		{SKU: "bravo", Quantity: 3, Name: "Variant bravo"},
		{SKU: "charlie", Quantity: 0, Name: "Variant charlie"},
		{SKU: "delta", Quantity: 8, Name: "Variant delta"},
	}, snapshot.Records)
}

func TestShopifyAdapter_FetchSnapshotStopsOnEmptyPage(t *testing.T) {
	// Shopify can report hasNextPage=true on a page with no edges; there is
	// no cursor to continue from, so the walk has to end there.
	calls := 0
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			_ = json.NewEncoder(w).Encode(shopifyInventoryPage("loc1", true,
				shopifyLevelEdge("c1", "i1", "alpha", 5)))
		case 2:
			_ = json.NewEncoder(w).Encode(shopifyInventoryPage("loc1", true))
		default:
			t.Fatal("pagination must stop after the empty page")
		}
	})
	authorizeShopify(t, adapter)

	snapshot, err := adapter.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []channel.InventoryRecord{
		{SKU: "alpha", Quantity: 5, Name: "Variant alpha"},
	}, snapshot.Records)
}

func TestShopifyAdapter_FetchSnapshotAbortsOnPageFailure(t *testing.T) {
	calls := 0
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(shopifyInventoryPage("loc1", true,
				shopifyLevelEdge("c1", "i1", "alpha", 5)))
			return
		}
		http.Error(w, `{"errors":"throttled"}`, http.StatusInternalServerError)
	})
	authorizeShopify(t, adapter)

	snapshot, err := adapter.FetchSnapshot(context.Background())
	assert.Nil(t, snapshot)

	perr, ok := channel.AsPlatformError(err)
	require.True(t, ok)
	assert.Equal(t, channel.PlatformCodeShopify, perr.Platform)
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
}

func TestShopifyAdapter_FetchSnapshotRequiresCredential(t *testing.T) {
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a credential")
	})

	_, err := adapter.FetchSnapshot(context.Background())
	assert.ErrorIs(t, err, channel.ErrNotReady)
}

func TestShopifyAdapter_ApplyDeltaAdjustsOnlyChangedRecords(t *testing.T) {
	var adjustments []shopifyAdjustment
	mutations := 0
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		if strings.Contains(req.Query, "query GetInventory") {
			_ = json.NewEncoder(w).Encode(shopifyInventoryPage("loc1", false,
				shopifyLevelEdge("c1", "i1", "alpha", 5),
				shopifyLevelEdge("c2", "i2", "bravo", 3),
				shopifyLevelEdge("c3", "i3", "", 9)))
			return
		}

		require.Contains(t, req.Query, "mutation UpdateInventory")
		mutations++
		assert.Equal(t, "loc1", req.Variables["location"])
		raw, err := json.Marshal(req.Variables["adjustments"])
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &adjustments))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"inventoryBulkAdjustQuantityAtLocation": map[string]any{"userErrors": []any{}}},
		})
	})
	authorizeShopify(t, adapter)

	results, err := adapter.ApplyDelta(context.Background(), channel.Delta{
		{SKU: "alpha", Target: 7, Change: 2},
		{SKU: "bravo", Target: 3, Change: 0},
		{SKU: "missing", Target: 1, Change: 1},
	})
	require.NoError(t, err)

	// One bulk mutation carrying only the record that actually changed
	assert.Equal(t, 1, mutations)
	require.Len(t, adjustments, 1)
	assert.Equal(t, shopifyAdjustment{InventoryItemID: "i1", AvailableDelta: 2}, adjustments[0])

	byStatus := map[string]channel.WriteStatus{}
	for _, r := range results {
		byStatus[r.SKU] = r.Status
	}
	assert.Equal(t, channel.WriteStatusApplied, byStatus["alpha"])
	assert.Equal(t, channel.WriteStatusSkipped, byStatus["bravo"])
	assert.NotContains(t, byStatus, "missing")
}

func TestShopifyAdapter_ApplyDeltaReportsUserErrors(t *testing.T) {
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		if strings.Contains(req.Query, "query GetInventory") {
			_ = json.NewEncoder(w).Encode(shopifyInventoryPage("loc1", false,
				shopifyLevelEdge("c1", "i1", "alpha", 5)))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"inventoryBulkAdjustQuantityAtLocation": map[string]any{
				"userErrors": []any{map[string]any{"message": "item is untracked"}},
			}},
		})
	})
	authorizeShopify(t, adapter)

	results, err := adapter.ApplyDelta(context.Background(), channel.Delta{{SKU: "alpha", Target: 7, Change: 2}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, channel.WriteStatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "item is untracked")
}

func TestShopifyAdapter_TranslateOrderDropsTipsAndSkulessItems(t *testing.T) {
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("order translation must not touch the network")
	})

	raw := []byte(`{
		"created_at": "2024-05-01T10:30:00Z",
		"line_items": [
			{"sku": "alpha", "quantity": 2},
			{"sku": "tip-sku", "quantity": 1, "tip": true},
			{"sku": "", "quantity": 4},
			{"sku": "bravo", "quantity": 1}
		]
	}`)

	order, err := adapter.TranslateOrder(raw)
	require.NoError(t, err)
	assert.Equal(t, channel.PlatformCodeShopify, order.Source)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), order.OrderedAt.UTC())
	assert.Equal(t, []channel.OrderItem{{SKU: "alpha", Quantity: 2}, {SKU: "bravo", Quantity: 1}}, order.Items)
	assert.JSONEq(t, string(raw), string(order.Raw))
}

func TestShopifyAdapter_RegisterWebhooksConflict(t *testing.T) {
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		require.Contains(t, req.Query, "mutation RegisterForWebhooks")
		assert.Equal(t, "https://app.example/shopify/orders/created", req.Variables["createCallback"])
		assert.Equal(t, "https://app.example/shopify/orders/cancelled", req.Variables["cancelledCallback"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"createOrdersHook": map[string]any{"userErrors": []any{map[string]any{"message": "already taken"}}},
				"cancelOrdersHook": map[string]any{"userErrors": []any{}},
			},
		})
	})
	authorizeShopify(t, adapter)

	err := adapter.RegisterWebhooks(context.Background())
	assert.ErrorIs(t, err, channel.ErrHooksExist)
}

func TestShopifyAdapter_UnregisterWebhooksDeletesEverySubscription(t *testing.T) {
	var deleted []string
	adapter, _ := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		if strings.Contains(req.Query, "query CheckWebhooks") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"webhookSubscriptions": map[string]any{
					"edges": []any{
						map[string]any{"node": map[string]any{"id": "hook-1"}},
						map[string]any{"node": map[string]any{"id": "hook-2"}},
					},
				}},
			})
			return
		}
		require.Contains(t, req.Query, "mutation UnregisterWebhook")
		deleted = append(deleted, req.Variables["id"].(string))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"webhookSubscriptionDelete": map[string]any{"userErrors": []any{}}},
		})
	})
	authorizeShopify(t, adapter)

	require.NoError(t, adapter.UnregisterWebhooks(context.Background()))
	assert.Equal(t, []string{"hook-1", "hook-2"}, deleted)
}

func TestShopifyAdapter_Authorization(t *testing.T) {
	adapter, store := newShopifyTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "key", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		assert.Equal(t, "grant-code", r.Form.Get("code"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh-token"})
	})

	prompt, err := adapter.GenerateAuthURL(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt.URL, "client_id=key")
	assert.Contains(t, prompt.URL, "state="+prompt.State)
	assert.Contains(t, prompt.URL, "scope=read_products%2Cwrite_inventory%2Cread_orders")

	require.NoError(t, adapter.CompleteAuthorization(context.Background(), "grant-code", ""))
	assert.True(t, adapter.Ready())

	persisted, err := store.LoadCredential(context.Background(), channel.PlatformCodeShopify)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", persisted.AccessToken)

	// Re-authorizing while ready is a conflict
	_, err = adapter.GenerateAuthURL(context.Background())
	assert.ErrorIs(t, err, channel.ErrAlreadyAuthorized)
}
