package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
)

// maxResponseSize bounds token endpoint responses (1MB)
const maxResponseSize = 1 << 20

// OAuth2Config configures an authorization-code grant with PKCE
type OAuth2Config struct {
	// ClientID is the application key issued by the provider
	ClientID string
	// AuthURL is the provider's authorization page
	AuthURL string
	// TokenURL is the provider's token endpoint
	TokenURL string
	// RedirectURI is our registered callback
	RedirectURI string
	// Scopes are the requested grant scopes (space-joined)
	Scopes []string
}

// OAuth2Client performs the authorization-code + PKCE flow and refresh-token
// exchanges for providers with expiring tokens.
type OAuth2Client struct {
	config     OAuth2Config
	httpClient *http.Client
}

// NewOAuth2Client creates a client for the given provider configuration
func NewOAuth2Client(config OAuth2Config, httpClient *http.Client) *OAuth2Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuth2Client{config: config, httpClient: httpClient}
}

// NewState produces a random anti-forgery value
func NewState() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewVerifier produces a random PKCE code verifier
func NewVerifier() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// challengeS256 derives the S256 code challenge from a verifier
func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthCodeURL builds the authorization redirect for the given state and
// PKCE verifier
func (c *OAuth2Client) AuthCodeURL(state, verifier string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", c.config.ClientID)
	query.Set("redirect_uri", c.config.RedirectURI)
	query.Set("scope", strings.Join(c.config.Scopes, " "))
	query.Set("state", state)
	query.Set("code_challenge", challengeS256(verifier))
	query.Set("code_challenge_method", "S256")
	return c.config.AuthURL + "?" + query.Encode()
}

// Exchange trades a one-time authorization code for a credential
func (c *OAuth2Client) Exchange(ctx context.Context, code, verifier string) (*channel.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.config.ClientID)
	form.Set("redirect_uri", c.config.RedirectURI)
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	return c.token(ctx, form)
}

// Refresh trades a refresh token for a fresh credential
func (c *OAuth2Client) Refresh(ctx context.Context, refreshToken string) (*channel.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.config.ClientID)
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

// tokenResponse is the provider's token endpoint payload
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// token posts a form to the token endpoint and parses the credential
func (c *OAuth2Client) token(ctx context.Context, form url.Values) (*channel.Credential, error) {
	requestedAt := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", channel.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", channel.ErrAuthFailed, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("oauth2: failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", channel.ErrAuthFailed)
	}

	return &channel.Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		RequestedAt:  requestedAt,
		ExpiresIn:    time.Duration(tr.ExpiresIn) * time.Second,
	}, nil
}
