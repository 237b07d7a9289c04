package channel

import "time"

// ---------------------------------------------------------------------------
// Credential
// ---------------------------------------------------------------------------

// Credential is the authenticated state of one connector. It is owned
// exclusively by that connector's token store, persisted on every successful
// authorization or refresh, and never shared across connectors.
type Credential struct {
	// AccessToken is the bearer token (OAuth2) or oauth_token (OAuth1)
	AccessToken string `json:"access_token"`
	// TokenSecret is the OAuth1 token secret (empty for OAuth2)
	TokenSecret string `json:"token_secret,omitempty"`
	// RefreshToken is the OAuth2 refresh token, when the provider issues one
	RefreshToken string `json:"refresh_token,omitempty"`
	// RequestedAt is when the token was issued to us
	RequestedAt time.Time `json:"requested_at"`
	// ExpiresIn is the token lifetime; zero means the token does not expire
	ExpiresIn time.Duration `json:"expires_in,omitempty"`
}

// Expires returns true if the credential has a finite lifetime
func (c *Credential) Expires() bool {
	return c.ExpiresIn > 0
}

// ExpiresWithin returns true if the credential expires within margin of now.
// Non-expiring credentials never do.
func (c *Credential) ExpiresWithin(margin time.Duration, now time.Time) bool {
	if !c.Expires() {
		return false
	}
	return c.RequestedAt.Add(c.ExpiresIn).Before(now.Add(margin))
}

// ---------------------------------------------------------------------------
// Authorization State Machine
// ---------------------------------------------------------------------------

// AuthState is a token store's position in the authorization lifecycle
type AuthState string

const (
	// AuthStateUnauthenticated means no valid credential is held
	AuthStateUnauthenticated AuthState = "UNAUTHENTICATED"
	// AuthStatePending means an authorization redirect has been issued
	AuthStatePending AuthState = "AUTHORIZATION_PENDING"
	// AuthStateAuthorized means a valid credential is held
	AuthStateAuthorized AuthState = "AUTHORIZED"
	// AuthStateRefreshing means a silent token refresh is in flight
	AuthStateRefreshing AuthState = "REFRESHING"
)

// AuthPrompt is the redirect target produced when authorization begins. The
// State and Verifier must be presented back on the provider callback;
// a mismatch fails that attempt with ErrAuthStateMismatch.
type AuthPrompt struct {
	// URL is the provider page the operator must visit
	URL string `json:"url"`
	// State is the anti-forgery value echoed back by the provider
	State string `json:"state"`
	// Verifier is the PKCE code verifier (or OAuth1 request token secret)
	Verifier string `json:"-"`
}
