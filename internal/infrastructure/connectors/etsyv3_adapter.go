package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/oauth"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
)

// etsyV3Scopes are the access scopes requested during authorization
var etsyV3Scopes = []string{"listings_r", "listings_w", "transactions_r"}

// EtsyV3Adapter implements the Connector interface for the Etsy v3 API.
// Etsy v3 issues expiring OAuth2 tokens obtained through a PKCE grant, so the
// token store refreshes silently ahead of expiry. Inventory writes are
// whole-document: the current inventory document is re-fetched, edited, and
// PUT back, skipping listings whose document would be structurally unchanged.
type EtsyV3Adapter struct {
	config     *EtsyV3Config
	client     *oauth.OAuth2Client
	tokens     *oauth.TokenStore
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewEtsyV3Adapter creates an Etsy v3 adapter with the given configuration
func NewEtsyV3Adapter(config *EtsyV3Config, store channel.CredentialStore, limiter *ratelimit.Limiter, logger *zap.Logger) (*EtsyV3Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	client := oauth.NewOAuth2Client(oauth.OAuth2Config{
		ClientID:    config.Keystring,
		AuthURL:     config.AuthURL,
		TokenURL:    config.TokenURL,
		RedirectURI: config.RedirectURI,
		Scopes:      etsyV3Scopes,
	}, httpClient)

	refresher := func(ctx context.Context, cred *channel.Credential) (*channel.Credential, error) {
		return client.Refresh(ctx, cred.RefreshToken)
	}

	return &EtsyV3Adapter{
		config:     config,
		client:     client,
		tokens:     oauth.NewTokenStore(channel.PlatformCodeEtsyV3, store, refresher, logger),
		limiter:    limiter,
		httpClient: httpClient,
		logger:     logger.Named("etsyv3"),
	}, nil
}

// Restore loads a previously persisted credential, if any
func (a *EtsyV3Adapter) Restore(ctx context.Context) error {
	return a.tokens.Restore(ctx)
}

// Platform returns the platform code this adapter handles
func (a *EtsyV3Adapter) Platform() channel.PlatformCode {
	return channel.PlatformCodeEtsyV3
}

// Ready returns true iff a valid credential is held
func (a *EtsyV3Adapter) Ready() bool {
	return a.tokens.Ready()
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// GenerateAuthURL begins a PKCE authorization attempt
func (a *EtsyV3Adapter) GenerateAuthURL(_ context.Context) (*channel.AuthPrompt, error) {
	if err := a.tokens.BeginAuthorization(); err != nil {
		return nil, err
	}

	state := oauth.NewState()
	verifier := oauth.NewVerifier()
	return &channel.AuthPrompt{
		URL:      a.client.AuthCodeURL(state, verifier),
		State:    state,
		Verifier: verifier,
	}, nil
}

// CompleteAuthorization exchanges the callback code and the stashed PKCE
// verifier for a credential
func (a *EtsyV3Adapter) CompleteAuthorization(ctx context.Context, code, verifier string) error {
	cred, err := a.client.Exchange(ctx, code, verifier)
	if err != nil {
		a.tokens.AuthorizationFailed()
		return err
	}
	a.tokens.Accept(ctx, cred)
	a.logger.Info("Authorized against shop", zap.String("shop", a.config.Shop))
	return nil
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// FetchSnapshot lists every listing and fetches each listing's inventory
// document. Product names are composed from the listing title plus the
// product's property values.
func (a *EtsyV3Adapter) FetchSnapshot(ctx context.Context) (*channel.Snapshot, error) {
	listings, err := a.listings(ctx)
	if err != nil {
		return nil, err
	}

	var records []channel.InventoryRecord
	for _, listing := range listings {
		doc, err := a.inventory(ctx, listing.ListingID)
		if err != nil {
			return nil, err
		}
		for _, product := range doc.Products {
			records = append(records, channel.InventoryRecord{
				SKU:      product.SKU,
				Quantity: firstOfferingQuantity(product),
				Name:     listing.Title + variantSuffix(product),
			})
		}
	}
	return channel.NewSnapshot(channel.PlatformCodeEtsyV3, records), nil
}

// ApplyDelta edits each listing's inventory document in place and PUTs it
// back. Listings whose document would be unchanged are skipped without a
// write; a listing whose products all reach zero quantity is deactivated
// instead, since Etsy rejects inventory documents that zero everything out.
func (a *EtsyV3Adapter) ApplyDelta(ctx context.Context, delta channel.Delta) ([]channel.WriteResult, error) {
	if delta.Empty() {
		return nil, nil
	}

	listings, err := a.listings(ctx)
	if err != nil {
		return nil, err
	}

	var results []channel.WriteResult
	for _, listing := range listings {
		doc, err := a.inventory(ctx, listing.ListingID)
		if err != nil {
			return nil, err
		}

		remoteID := strconv.FormatInt(listing.ListingID, 10)
		updated := make([]etsyProduct, len(doc.Products))
		var addressed []channel.WriteResult
		changed := false
		allZero := true
		for i, product := range doc.Products {
			updated[i] = product

			var entry channel.DeltaEntry
			ok := false
			if product.SKU != "" {
				entry, ok = delta.Find(product.SKU)
			}
			if ok && len(product.Offerings) > 0 && product.Offerings[0].Quantity != entry.Target {
				offerings := make([]etsyOffering, len(product.Offerings))
				copy(offerings, product.Offerings)
				offerings[0].Quantity = entry.Target
				updated[i].Offerings = offerings
				changed = true
				addressed = append(addressed, channel.WriteResult{SKU: product.SKU, RemoteID: remoteID, Status: channel.WriteStatusApplied})
			} else if ok {
				addressed = append(addressed, channel.WriteResult{SKU: product.SKU, RemoteID: remoteID, Status: channel.WriteStatusSkipped})
			}

			if len(updated[i].Offerings) > 0 && updated[i].Offerings[0].Quantity != 0 {
				allZero = false
			}
		}

		if !changed {
			results = append(results, addressed...)
			continue
		}

		if allZero {
			err = a.deactivateListing(ctx, listing)
		} else {
			err = a.putInventory(ctx, listing.ListingID, buildInventoryUpdate(updated))
		}
		if err != nil {
			a.logger.Warn("Listing update failed",
				zap.Int64("listing", listing.ListingID),
				zap.String("title", listing.Title),
				zap.Error(err))
			for i := range addressed {
				if addressed[i].Status == channel.WriteStatusApplied {
					addressed[i].Status = channel.WriteStatusFailed
					addressed[i].Error = err.Error()
				}
			}
		}
		results = append(results, addressed...)
	}
	return results, nil
}

// listings fetches every listing of the shop with offset pagination
func (a *EtsyV3Adapter) listings(ctx context.Context) ([]etsyListing, error) {
	var all []etsyListing
	for offset := int64(0); ; {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(etsyPageSize))
		query.Set("offset", strconv.FormatInt(offset, 10))

		var page etsyListingsPage
		if err := a.get(ctx, fmt.Sprintf("/application/shops/%s/listings", a.config.Shop), query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		offset += int64(len(page.Results))
		if len(page.Results) == 0 || offset >= page.Count {
			break
		}
	}
	return all, nil
}

// inventory fetches one listing's inventory document
func (a *EtsyV3Adapter) inventory(ctx context.Context, listingID int64) (*etsyInventoryDoc, error) {
	var doc etsyInventoryDoc
	if err := a.get(ctx, fmt.Sprintf("/application/listings/%d/inventory", listingID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// putInventory writes an edited inventory document back
func (a *EtsyV3Adapter) putInventory(ctx context.Context, listingID int64, update *etsyInventoryUpdate) error {
	return a.putJSON(ctx, fmt.Sprintf("/application/listings/%d/inventory", listingID), update)
}

// deactivateListing flips a listing to inactive with a whole-listing PUT. The
// listing endpoint takes a form body with the price flattened to a plain
// number and a handful of fields renamed from what the GET returns.
func (a *EtsyV3Adapter) deactivateListing(ctx context.Context, listing etsyListing) error {
	form := url.Values{}
	form.Set("state", "inactive")
	form.Set("title", listing.Title)
	form.Set("description", listing.Description)
	form.Set("quantity", strconv.FormatInt(listing.Quantity, 10))
	form.Set("price", listing.Price.Decimal().String())
	form.Set("is_taxable", strconv.FormatBool(!listing.NonTaxable))
	form.Set("type", listing.ListingType)
	form.Set("who_made", listing.WhoMade)
	form.Set("when_made", listing.WhenMade)
	form.Set("taxonomy_id", strconv.FormatInt(listing.TaxonomyID, 10))
	form.Set("shipping_profile_id", strconv.FormatInt(listing.ShippingProfileID, 10))
	form.Set("should_auto_renew", strconv.FormatBool(listing.ShouldAutoRenew))

	return a.putForm(ctx, fmt.Sprintf("/application/shops/%s/listings/%d", a.config.Shop, listing.ListingID), form)
}

// buildInventoryUpdate massages fetched products into the shape the
// inventory PUT accepts
func buildInventoryUpdate(products []etsyProduct) *etsyInventoryUpdate {
	update := &etsyInventoryUpdate{Products: make([]etsyProductUpdate, 0, len(products))}
	for _, product := range products {
		offerings := make([]etsyOfferingUpdate, 0, len(product.Offerings))
		for _, offering := range product.Offerings {
			offerings = append(offerings, etsyOfferingUpdate{
				Price:     offering.Price.Decimal().InexactFloat64(),
				Quantity:  offering.Quantity,
				IsEnabled: offering.IsEnabled,
			})
		}
		update.Products = append(update.Products, etsyProductUpdate{
			SKU:            product.SKU,
			PropertyValues: product.PropertyValues,
			Offerings:      offerings,
		})
	}
	return update
}

// firstOfferingQuantity returns the quantity of the product's first offering
func firstOfferingQuantity(product etsyProduct) int64 {
	if len(product.Offerings) == 0 {
		return 0
	}
	return product.Offerings[0].Quantity
}

// variantSuffix renders a product's property values as a display-name suffix,
// e.g. " (Color: Red) (Size: S, M)"
func variantSuffix(product etsyProduct) string {
	var b strings.Builder
	for _, pv := range product.PropertyValues {
		fmt.Fprintf(&b, " (%s: %s)", pv.PropertyName, strings.Join(pv.Values, ", "))
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// etsyOrderPayload is the shape TranslateOrder accepts: a receipt with its
// transactions attached
type etsyOrderPayload struct {
	CreateTimestamp int64 `json:"create_timestamp"`
	Transactions    []struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	} `json:"transactions"`
}

// TranslateOrder maps a receipt payload to a domain order. Transactions
// without a sku are dropped.
func (a *EtsyV3Adapter) TranslateOrder(raw []byte) (*channel.Order, error) {
	var payload etsyOrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("etsyv3: failed to parse order payload: %w", err)
	}

	items := make([]channel.OrderItem, 0, len(payload.Transactions))
	for _, txn := range payload.Transactions {
		if txn.SKU == "" {
			continue
		}
		items = append(items, channel.OrderItem{SKU: txn.SKU, Quantity: txn.Quantity})
	}

	return &channel.Order{
		Source:    channel.PlatformCodeEtsyV3,
		OrderedAt: time.Unix(payload.CreateTimestamp, 0),
		Items:     items,
		Raw:       json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}

// FetchOrders polls receipts created at or after since. Transaction skus
// missing from the receipt itself are resolved through the listing's
// inventory document; documents are fetched once per listing per poll.
func (a *EtsyV3Adapter) FetchOrders(ctx context.Context, since time.Time) ([]channel.Order, error) {
	receipts, err := a.receipts(ctx, since)
	if err != nil {
		return nil, err
	}

	docs := make(map[int64]*etsyInventoryDoc)
	var orders []channel.Order
	for _, raw := range receipts {
		var receipt etsyReceipt
		if err := json.Unmarshal(raw, &receipt); err != nil {
			return nil, fmt.Errorf("etsyv3: failed to parse receipt: %w", err)
		}

		var txns etsyTransactionsPage
		endpoint := fmt.Sprintf("/application/shops/%s/receipts/%d/transactions", a.config.Shop, receipt.ReceiptID)
		if err := a.get(ctx, endpoint, nil, &txns); err != nil {
			return nil, err
		}

		items := make([]channel.OrderItem, 0, len(txns.Results))
		for _, txn := range txns.Results {
			sku := txn.SKU
			if sku == "" {
				sku, err = a.resolveSKU(ctx, docs, txn)
				if err != nil {
					return nil, err
				}
			}
			if sku == "" {
				continue
			}
			items = append(items, channel.OrderItem{SKU: sku, Quantity: txn.Quantity})
		}

		orders = append(orders, channel.Order{
			Source:    channel.PlatformCodeEtsyV3,
			OrderedAt: time.Unix(receipt.CreateTimestamp, 0),
			Items:     items,
			Raw:       raw,
		})
	}
	return orders, nil
}

// receipts fetches every receipt created at or after since, keeping each
// receipt's raw JSON
func (a *EtsyV3Adapter) receipts(ctx context.Context, since time.Time) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for offset := int64(0); ; {
		query := url.Values{}
		query.Set("min_created", strconv.FormatInt(since.Unix(), 10))
		query.Set("limit", strconv.Itoa(etsyPageSize))
		query.Set("offset", strconv.FormatInt(offset, 10))

		var page etsyReceiptsPage
		if err := a.get(ctx, fmt.Sprintf("/application/shops/%s/receipts", a.config.Shop), query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		offset += int64(len(page.Results))
		if len(page.Results) == 0 || offset >= page.Count {
			break
		}
	}
	return all, nil
}

// resolveSKU looks a transaction's sku up in its listing's inventory document
func (a *EtsyV3Adapter) resolveSKU(ctx context.Context, docs map[int64]*etsyInventoryDoc, txn etsyTransaction) (string, error) {
	doc, ok := docs[txn.ListingID]
	if !ok {
		var err error
		doc, err = a.inventory(ctx, txn.ListingID)
		if err != nil {
			return "", err
		}
		docs[txn.ListingID] = doc
	}
	for _, product := range doc.Products {
		if product.ProductID == txn.ProductID {
			return product.SKU, nil
		}
	}
	return "", nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// get schedules one authenticated GET through the limiter
func (a *EtsyV3Adapter) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return a.do(ctx, http.MethodGet, endpoint, query, nil, "", out)
}

// putJSON schedules one authenticated JSON PUT through the limiter
func (a *EtsyV3Adapter) putJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("etsyv3: failed to encode request: %w", err)
	}
	return a.do(ctx, http.MethodPut, endpoint, nil, body, "application/json", nil)
}

// putForm schedules one authenticated form PUT through the limiter
func (a *EtsyV3Adapter) putForm(ctx context.Context, endpoint string, form url.Values) error {
	return a.do(ctx, http.MethodPut, endpoint, nil, []byte(form.Encode()), "application/x-www-form-urlencoded", nil)
}

func (a *EtsyV3Adapter) do(ctx context.Context, method, endpoint string, query url.Values, payload []byte, contentType string, out any) error {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return err
	}

	rawurl := a.config.APIBaseURL + endpoint
	if len(query) > 0 {
		rawurl += "?" + query.Encode()
	}

	body, err := ratelimit.Do(ctx, a.limiter, func(ctx context.Context) ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawurl, reader)
		if err != nil {
			return nil, fmt.Errorf("etsyv3: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
		req.Header.Set("x-api-key", a.config.Keystring)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("etsyv3: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("etsyv3: failed to read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, channel.NewPlatformError(channel.PlatformCodeEtsyV3, resp.StatusCode, respBody)
		}
		return respBody, nil
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("etsyv3: failed to parse response: %w", err)
	}
	return nil
}

// Interface assertions
var (
	_ channel.Connector   = (*EtsyV3Adapter)(nil)
	_ channel.Authorizer  = (*EtsyV3Adapter)(nil)
	_ channel.OrderPoller = (*EtsyV3Adapter)(nil)
)
