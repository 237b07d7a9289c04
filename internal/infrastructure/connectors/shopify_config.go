package connectors

import (
	"errors"
	"fmt"
)

// ShopifyConfig holds the app credentials and callback URLs for one Shopify
// shop
type ShopifyConfig struct {
	// Shop is the myshopify.com subdomain
	Shop string
	// APIKey is the app's API key (the OAuth client id)
	APIKey string
	// SecretKey is the app's shared secret
	SecretKey string
	// RedirectURI is our OAuth callback
	RedirectURI string
	// OrdersCreatedURL receives order-created webhooks
	OrdersCreatedURL string
	// OrdersCancelledURL receives order-cancelled webhooks
	OrdersCancelledURL string
	// APIVersion selects the admin API version
	APIVersion string
	// BaseURL overrides the https://{shop}.myshopify.com origin when set
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// ShopifyDefaultAPIVersion is the admin API version used when none is
// configured
const ShopifyDefaultAPIVersion = "2023-04"

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShop      = errors.New("shopify: shop is required")
	ErrShopifyConfigMissingAPIKey    = errors.New("shopify: api key is required")
	ErrShopifyConfigMissingSecretKey = errors.New("shopify: secret key is required")
)

// Validate validates the Shopify configuration and fills defaults
func (c *ShopifyConfig) Validate() error {
	if c.Shop == "" {
		return ErrShopifyConfigMissingShop
	}
	if c.APIKey == "" {
		return ErrShopifyConfigMissingAPIKey
	}
	if c.SecretKey == "" {
		return ErrShopifyConfigMissingSecretKey
	}
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// shopURL returns the shop origin
func (c *ShopifyConfig) shopURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.myshopify.com", c.Shop)
}

// graphqlURL returns the admin GraphQL endpoint
func (c *ShopifyConfig) graphqlURL() string {
	return c.shopURL() + "/admin/api/" + c.APIVersion + "/graphql.json"
}

// accessTokenURL returns the OAuth code-exchange endpoint
func (c *ShopifyConfig) accessTokenURL() string {
	return c.shopURL() + "/admin/oauth/access_token"
}

// authorizeURL returns the operator-facing grant page
func (c *ShopifyConfig) authorizeURL() string {
	return c.shopURL() + "/admin/oauth/authorize"
}
