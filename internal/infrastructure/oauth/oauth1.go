package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
)

// OAuth1Config configures a three-legged OAuth 1.0a flow with HMAC-SHA1
// signing
type OAuth1Config struct {
	// ConsumerKey is the application keystring
	ConsumerKey string
	// ConsumerSecret is the shared secret
	ConsumerSecret string
	// RequestTokenURL issues temporary request tokens
	RequestTokenURL string
	// AccessTokenURL exchanges a verified request token for an access token
	AccessTokenURL string
	// RedirectURI is our registered callback
	RedirectURI string
}

// OAuth1Client performs the OAuth 1.0a token dance and signs API requests
type OAuth1Client struct {
	config     OAuth1Config
	httpClient *http.Client
	nonce      func() string
	now        func() time.Time
}

// NewOAuth1Client creates a client for the given provider configuration
func NewOAuth1Client(config OAuth1Config, httpClient *http.Client) *OAuth1Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuth1Client{
		config:     config,
		httpClient: httpClient,
		nonce:      newNonce,
		now:        time.Now,
	}
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// RequestTokenResult is the temporary credential issued when authorization
// begins. LoginURL is where the operator must be redirected; Token and
// Secret must survive until the provider calls back.
type RequestTokenResult struct {
	Token    string
	Secret   string
	LoginURL string
}

// RequestToken obtains a temporary request token from the provider
func (c *OAuth1Client) RequestToken(ctx context.Context) (*RequestTokenResult, error) {
	values, err := c.roundTrip(ctx, http.MethodPost, c.config.RequestTokenURL, map[string]string{
		"oauth_callback": c.config.RedirectURI,
	}, "", "")
	if err != nil {
		return nil, err
	}

	result := &RequestTokenResult{
		Token:    values.Get("oauth_token"),
		Secret:   values.Get("oauth_token_secret"),
		LoginURL: values.Get("login_url"),
	}
	if result.Token == "" || result.Secret == "" {
		return nil, fmt.Errorf("%w: provider returned no request token", channel.ErrAuthFailed)
	}
	return result, nil
}

// AccessToken exchanges a verified request token for a permanent credential.
// OAuth1 tokens do not expire, so the credential carries no lifetime.
func (c *OAuth1Client) AccessToken(ctx context.Context, token, secret, verifier string) (*channel.Credential, error) {
	values, err := c.roundTrip(ctx, http.MethodGet, c.config.AccessTokenURL, map[string]string{
		"oauth_verifier": verifier,
	}, token, secret)
	if err != nil {
		return nil, err
	}

	accessToken := values.Get("oauth_token")
	accessSecret := values.Get("oauth_token_secret")
	if accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("%w: provider returned no access token", channel.ErrAuthFailed)
	}
	return &channel.Credential{
		AccessToken: accessToken,
		TokenSecret: accessSecret,
		RequestedAt: c.now(),
	}, nil
}

// Get performs a signed GET against rawurl with the given credential,
// returning the raw response body. Non-2xx responses surface as a
// PlatformError built by the caller; this layer only reports transport
// failures and the response itself.
func (c *OAuth1Client) Get(ctx context.Context, rawurl string, cred *channel.Credential) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authorizationHeader(http.MethodGet, rawurl, nil, cred.AccessToken, cred.TokenSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Put performs a signed form PUT against rawurl. Body parameters participate
// in the signature base per the OAuth1 spec but are not carried in the
// Authorization header.
func (c *OAuth1Client) Put(ctx context.Context, rawurl string, form url.Values, cred *channel.Credential) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawurl, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.formAuthorizationHeader(http.MethodPut, rawurl, form, cred.AccessToken, cred.TokenSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("oauth1: failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// roundTrip performs a signed token-dance request and parses the
// form-encoded response
func (c *OAuth1Client) roundTrip(ctx context.Context, method, rawurl string, extra map[string]string, token, secret string) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth1: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authorizationHeaderWith(method, rawurl, extra, token, secret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", channel.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("oauth1: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: provider returned %d: %s", channel.ErrAuthFailed, resp.StatusCode, body)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("oauth1: failed to parse response: %w", err)
	}
	return values, nil
}

// authorizationHeader signs a plain API request (no extra oauth params)
func (c *OAuth1Client) authorizationHeader(method, rawurl string, extra map[string]string, token, secret string) string {
	return c.authorizationHeaderWith(method, rawurl, extra, token, secret)
}

// authorizationHeaderWith builds the signed OAuth Authorization header for
// the given request
func (c *OAuth1Client) authorizationHeaderWith(method, rawurl string, extra map[string]string, token, secret string) string {
	oauthParams := c.baseOAuthParams(token)
	for k, v := range extra {
		oauthParams[k] = v
	}
	oauthParams["oauth_signature"] = c.sign(method, rawurl, oauthParams, secret)
	return renderOAuthHeader(oauthParams)
}

// formAuthorizationHeader signs a form-bodied request: body parameters enter
// the signature base alongside the oauth parameters, while the header itself
// carries only the oauth parameters
func (c *OAuth1Client) formAuthorizationHeader(method, rawurl string, form url.Values, token, secret string) string {
	oauthParams := c.baseOAuthParams(token)

	signing := make(map[string]string, len(oauthParams)+len(form))
	for k, v := range oauthParams {
		signing[k] = v
	}
	for k := range form {
		signing[k] = form.Get(k)
	}

	oauthParams["oauth_signature"] = c.sign(method, rawurl, signing, secret)
	return renderOAuthHeader(oauthParams)
}

func (c *OAuth1Client) baseOAuthParams(token string) map[string]string {
	params := map[string]string{
		"oauth_consumer_key":     c.config.ConsumerKey,
		"oauth_nonce":            c.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		params["oauth_token"] = token
	}
	return params
}

func renderOAuthHeader(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// sign computes the HMAC-SHA1 signature over the request base string
func (c *OAuth1Client) sign(method, rawurl string, oauthParams map[string]string, tokenSecret string) string {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}

	// Collect query + oauth parameters into the signature base
	params := make(map[string]string, len(oauthParams))
	for k, vs := range parsed.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	for k, v := range oauthParams {
		params[k] = v
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}

	baseURL := parsed.Scheme + "://" + parsed.Host + parsed.Path
	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))
	key := percentEncode(c.config.ConsumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 3986 encoding as OAuth1 requires it
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9',
			ch == '-', ch == '.', ch == '_', ch == '~':
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "%%%02X", ch)
		}
	}
	return b.String()
}
