package connectors

import "errors"

// EtsyV3Config holds the app credentials for the Etsy v3 API
type EtsyV3Config struct {
	// Keystring is the app keystring (the OAuth client id)
	Keystring string
	// SharedSecret is the app shared secret
	SharedSecret string
	// Shop is the numeric shop id
	Shop string
	// RedirectURI is our OAuth callback
	RedirectURI string
	// APIBaseURL is the v3 API origin
	APIBaseURL string
	// AuthURL is the operator-facing grant page
	AuthURL string
	// TokenURL is the code-exchange and refresh endpoint
	TokenURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Default Etsy v3 endpoints
const (
	EtsyV3APIBaseURL = "https://api.etsy.com/v3"
	EtsyV3AuthURL    = "https://www.etsy.com/oauth/connect"
	EtsyV3TokenURL   = "https://api.etsy.com/v3/public/oauth/token"
)

// Errors for Etsy v3 configuration
var (
	ErrEtsyV3ConfigMissingKeystring = errors.New("etsyv3: keystring is required")
	ErrEtsyV3ConfigMissingShop      = errors.New("etsyv3: shop id is required")
)

// Validate validates the Etsy v3 configuration and fills defaults
func (c *EtsyV3Config) Validate() error {
	if c.Keystring == "" {
		return ErrEtsyV3ConfigMissingKeystring
	}
	if c.Shop == "" {
		return ErrEtsyV3ConfigMissingShop
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EtsyV3APIBaseURL
	}
	if c.AuthURL == "" {
		c.AuthURL = EtsyV3AuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = EtsyV3TokenURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
