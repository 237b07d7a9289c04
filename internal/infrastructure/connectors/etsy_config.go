package connectors

import "errors"

// EtsyConfig holds the app credentials for the legacy Etsy v2 API
type EtsyConfig struct {
	// Keystring is the app keystring (the OAuth1 consumer key)
	Keystring string
	// SharedSecret is the OAuth1 consumer secret
	SharedSecret string
	// Shop is the shop name
	Shop string
	// RedirectURI is our OAuth callback
	RedirectURI string
	// APIBaseURL is the v2 API origin
	APIBaseURL string
	// RequestTokenURL issues temporary request tokens
	RequestTokenURL string
	// AccessTokenURL exchanges verified request tokens
	AccessTokenURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// EtsyV2APIBaseURL is the default v2 API origin
const EtsyV2APIBaseURL = "https://openapi.etsy.com/v2"

// Errors for Etsy v2 configuration
var (
	ErrEtsyConfigMissingKeystring    = errors.New("etsy: keystring is required")
	ErrEtsyConfigMissingSharedSecret = errors.New("etsy: shared secret is required")
	ErrEtsyConfigMissingShop         = errors.New("etsy: shop is required")
)

// Validate validates the Etsy v2 configuration and fills defaults. The
// request-token URL carries the write scope in its query string, which is how
// the v2 API expects scopes to be requested.
func (c *EtsyConfig) Validate() error {
	if c.Keystring == "" {
		return ErrEtsyConfigMissingKeystring
	}
	if c.SharedSecret == "" {
		return ErrEtsyConfigMissingSharedSecret
	}
	if c.Shop == "" {
		return ErrEtsyConfigMissingShop
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EtsyV2APIBaseURL
	}
	if c.RequestTokenURL == "" {
		c.RequestTokenURL = c.APIBaseURL + "/oauth/request_token?scope=listings_w"
	}
	if c.AccessTokenURL == "" {
		c.AccessTokenURL = c.APIBaseURL + "/oauth/access_token"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
