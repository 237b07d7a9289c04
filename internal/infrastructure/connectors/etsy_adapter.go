package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/oauth"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
)

// Wire types for the Etsy v2 API. Pages carry an explicit next_offset; a
// null next_offset marks the last page.
type etsyV2Listing struct {
	ListingID int64    `json:"listing_id"`
	Title     string   `json:"title"`
	SKU       []string `json:"sku"`
	Quantity  int64    `json:"quantity"`
}

type etsyV2ListingsPage struct {
	Count      int64           `json:"count"`
	Results    []etsyV2Listing `json:"results"`
	Pagination struct {
		NextOffset *int64 `json:"next_offset"`
	} `json:"pagination"`
}

// EtsyAdapter implements the Connector interface for the legacy Etsy v2 API,
// signed with OAuth1 HMAC-SHA1. v2 access tokens never expire, so the token
// store carries no refresher. The request-token secret issued when
// authorization begins must survive until the provider calls back; it rides
// along in the auth prompt and is also kept here for single-process setups
// without a shared state store.
type EtsyAdapter struct {
	config  *EtsyConfig
	client  *oauth.OAuth1Client
	tokens  *oauth.TokenStore
	limiter *ratelimit.Limiter
	logger  *zap.Logger

	mu            sync.Mutex
	pendingToken  string
	pendingSecret string
}

// NewEtsyAdapter creates an Etsy v2 adapter with the given configuration
func NewEtsyAdapter(config *EtsyConfig, store channel.CredentialStore, limiter *ratelimit.Limiter, logger *zap.Logger) (*EtsyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := oauth.NewOAuth1Client(oauth.OAuth1Config{
		ConsumerKey:     config.Keystring,
		ConsumerSecret:  config.SharedSecret,
		RequestTokenURL: config.RequestTokenURL,
		AccessTokenURL:  config.AccessTokenURL,
		RedirectURI:     config.RedirectURI,
	}, &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second})

	return &EtsyAdapter{
		config:  config,
		client:  client,
		tokens:  oauth.NewTokenStore(channel.PlatformCodeEtsy, store, nil, logger),
		limiter: limiter,
		logger:  logger.Named("etsy"),
	}, nil
}

// Restore loads a previously persisted access token, if any
func (a *EtsyAdapter) Restore(ctx context.Context) error {
	return a.tokens.Restore(ctx)
}

// Platform returns the platform code this adapter handles
func (a *EtsyAdapter) Platform() channel.PlatformCode {
	return channel.PlatformCodeEtsy
}

// Ready returns true iff an access token is held
func (a *EtsyAdapter) Ready() bool {
	return a.tokens.Ready()
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// GenerateAuthURL obtains a temporary request token and returns the provider
// login URL. The prompt's State is the request token and its Verifier is the
// request-token secret needed to complete the exchange.
func (a *EtsyAdapter) GenerateAuthURL(ctx context.Context) (*channel.AuthPrompt, error) {
	if err := a.tokens.BeginAuthorization(); err != nil {
		return nil, err
	}

	result, err := a.client.RequestToken(ctx)
	if err != nil {
		a.tokens.AuthorizationFailed()
		return nil, err
	}

	a.mu.Lock()
	a.pendingToken = result.Token
	a.pendingSecret = result.Secret
	a.mu.Unlock()

	return &channel.AuthPrompt{
		URL:      result.LoginURL,
		State:    result.Token,
		Verifier: result.Secret,
	}, nil
}

// CompleteAuthorization exchanges the oauth verifier from the provider
// callback for a permanent access token. code is the oauth_verifier; verifier
// is the request-token secret stashed when the prompt was generated, falling
// back to the in-process copy when empty.
func (a *EtsyAdapter) CompleteAuthorization(ctx context.Context, code, verifier string) error {
	a.mu.Lock()
	token, secret := a.pendingToken, a.pendingSecret
	a.mu.Unlock()
	if verifier != "" {
		secret = verifier
	}

	cred, err := a.client.AccessToken(ctx, token, secret, code)
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

// FetchSnapshot walks the active-listings offset pagination. Listings carry
// their skus as an array; the first sku identifies the listing and listings
// without one surface as unmanaged records.
func (a *EtsyAdapter) FetchSnapshot(ctx context.Context) (*channel.Snapshot, error) {
	listings, err := a.activeListings(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]channel.InventoryRecord, 0, len(listings))
	for _, listing := range listings {
		records = append(records, channel.InventoryRecord{
			SKU:      firstSKU(listing),
			Quantity: listing.Quantity,
			Name:     listing.Title,
		})
	}
	return channel.NewSnapshot(channel.PlatformCodeEtsy, records), nil
}

// ApplyDelta re-fetches the active listings and writes each addressed
// listing's quantity with a signed PUT. Listings already at the target
// quantity are skipped; skus with no listing fail their entry.
func (a *EtsyAdapter) ApplyDelta(ctx context.Context, delta channel.Delta) ([]channel.WriteResult, error) {
	if delta.Empty() {
		return nil, nil
	}

	listings, err := a.activeListings(ctx)
	if err != nil {
		return nil, err
	}

	bySKU := make(map[string]etsyV2Listing, len(listings))
	for _, listing := range listings {
		if sku := firstSKU(listing); sku != "" {
			bySKU[sku] = listing
		}
	}

	results := make([]channel.WriteResult, 0, len(delta))
	for _, entry := range delta {
		listing, ok := bySKU[entry.SKU]
		if !ok {
			results = append(results, channel.WriteResult{
				SKU:    entry.SKU,
				Status: channel.WriteStatusFailed,
				Error:  "sku has no active listing",
			})
			continue
		}

		remoteID := strconv.FormatInt(listing.ListingID, 10)
		if listing.Quantity == entry.Target {
			results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: remoteID, Status: channel.WriteStatusSkipped})
			continue
		}

		form := url.Values{}
		form.Set("quantity", strconv.FormatInt(entry.Target, 10))
		if err := a.put(ctx, fmt.Sprintf("/listings/%d", listing.ListingID), form); err != nil {
			a.logger.Warn("Listing update failed", zap.Int64("listing", listing.ListingID), zap.Error(err))
			results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: remoteID, Status: channel.WriteStatusFailed, Error: err.Error()})
			continue
		}
		results = append(results, channel.WriteResult{SKU: entry.SKU, RemoteID: remoteID, Status: channel.WriteStatusApplied})
	}
	return results, nil
}

// activeListings fetches every active listing, following next_offset until
// the provider stops supplying one
func (a *EtsyAdapter) activeListings(ctx context.Context) ([]etsyV2Listing, error) {
	var all []etsyV2Listing
	offset := int64(0)
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(etsyPageSize))
		query.Set("offset", strconv.FormatInt(offset, 10))

		var page etsyV2ListingsPage
		if err := a.get(ctx, fmt.Sprintf("/shops/%s/listings/active", url.PathEscape(a.config.Shop)), query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if page.Pagination.NextOffset == nil {
			break
		}
		offset = *page.Pagination.NextOffset
	}
	return all, nil
}

func firstSKU(listing etsyV2Listing) string {
	if len(listing.SKU) == 0 {
		return ""
	}
	return listing.SKU[0]
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// etsyV2OrderPayload is the receipt shape TranslateOrder accepts
type etsyV2OrderPayload struct {
	CreationTSZ  int64 `json:"creation_tsz"`
	Transactions []struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	} `json:"Transactions"`
}

// TranslateOrder maps a v2 receipt payload to a domain order. Transactions
// without a sku are dropped.
func (a *EtsyAdapter) TranslateOrder(raw []byte) (*channel.Order, error) {
	var payload etsyV2OrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("etsy: failed to parse order payload: %w", err)
	}

	items := make([]channel.OrderItem, 0, len(payload.Transactions))
	for _, txn := range payload.Transactions {
		if txn.SKU == "" {
			continue
		}
		items = append(items, channel.OrderItem{SKU: txn.SKU, Quantity: txn.Quantity})
	}

	return &channel.Order{
		Source:    channel.PlatformCodeEtsy,
		OrderedAt: time.Unix(payload.CreationTSZ, 0),
		Items:     items,
		Raw:       json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// get schedules one signed GET through the limiter
func (a *EtsyAdapter) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return err
	}

	rawurl := a.config.APIBaseURL + endpoint
	if len(query) > 0 {
		rawurl += "?" + query.Encode()
	}

	body, err := ratelimit.Do(ctx, a.limiter, func(ctx context.Context) ([]byte, error) {
		status, body, err := a.client.Get(ctx, rawurl, cred)
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			return nil, channel.NewPlatformError(channel.PlatformCodeEtsy, status, body)
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("etsy: failed to parse response: %w", err)
	}
	return nil
}

// put schedules one signed form PUT through the limiter
func (a *EtsyAdapter) put(ctx context.Context, endpoint string, form url.Values) error {
	cred, err := a.tokens.Credential(ctx)
	if err != nil {
		return err
	}

	rawurl := a.config.APIBaseURL + endpoint
	_, err = ratelimit.Do(ctx, a.limiter, func(ctx context.Context) ([]byte, error) {
		status, body, err := a.client.Put(ctx, rawurl, form, cred)
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			return nil, channel.NewPlatformError(channel.PlatformCodeEtsy, status, body)
		}
		return body, nil
	})
	return err
}

// Interface assertions
var (
	_ channel.Connector  = (*EtsyAdapter)(nil)
	_ channel.Authorizer = (*EtsyAdapter)(nil)
)
