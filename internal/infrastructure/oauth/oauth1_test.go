package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/channel"
)

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"with space", "with%20space"},
		{"a&b=c", "a%26b%3Dc"},
		{"unreserved-._~", "unreserved-._~"},
		{"ü", "%C3%BC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentEncode(tt.in))
	}
}

func TestOAuth1Client_SignIsDeterministic(t *testing.T) {
	client := NewOAuth1Client(OAuth1Config{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
	}, nil)

	params := map[string]string{
		"oauth_consumer_key":     "ck",
		"oauth_nonce":            "fixed",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_version":          "1.0",
	}

	s1 := client.sign("GET", "https://api.example/v2/listings?limit=100&offset=0", params, "ts")
	s2 := client.sign("GET", "https://api.example/v2/listings?offset=0&limit=100", params, "ts")
	// Query parameter order must not affect the signature
	assert.Equal(t, s1, s2)
	assert.NotEmpty(t, s1)

	s3 := client.sign("GET", "https://api.example/v2/listings?limit=100&offset=0", params, "other-secret")
	assert.NotEqual(t, s1, s3)
}

func TestOAuth1Client_RequestToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "))
		assert.Contains(t, auth, `oauth_consumer_key="ck"`)
		assert.Contains(t, auth, "oauth_signature=")
		assert.Contains(t, auth, "oauth_callback=")

		_, _ = w.Write([]byte("oauth_token=rt&oauth_token_secret=rs&login_url=https%3A%2F%2Fprovider.example%2Flogin%3Ftoken%3Drt"))
	}))
	defer server.Close()

	client := NewOAuth1Client(OAuth1Config{
		ConsumerKey:     "ck",
		ConsumerSecret:  "cs",
		RequestTokenURL: server.URL + "/request_token",
		RedirectURI:     "https://app.example/callback",
	}, server.Client())

	result, err := client.RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt", result.Token)
	assert.Equal(t, "rs", result.Secret)
	assert.Equal(t, "https://provider.example/login?token=rt", result.LoginURL)
}

func TestOAuth1Client_AccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, `oauth_token="rt"`)
		assert.Contains(t, auth, `oauth_verifier="v123"`)
		_, _ = w.Write([]byte("oauth_token=at&oauth_token_secret=as"))
	}))
	defer server.Close()

	client := NewOAuth1Client(OAuth1Config{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessTokenURL: server.URL + "/access_token",
	}, server.Client())

	cred, err := client.AccessToken(context.Background(), "rt", "rs", "v123")
	require.NoError(t, err)
	assert.Equal(t, "at", cred.AccessToken)
	assert.Equal(t, "as", cred.TokenSecret)
	assert.False(t, cred.Expires())
	assert.WithinDuration(t, time.Now(), cred.RequestedAt, 5*time.Second)
}

func TestOAuth1Client_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "signature invalid", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewOAuth1Client(OAuth1Config{
		ConsumerKey:     "ck",
		ConsumerSecret:  "cs",
		RequestTokenURL: server.URL,
	}, server.Client())

	_, err := client.RequestToken(context.Background())
	assert.ErrorIs(t, err, channel.ErrAuthFailed)
}

func TestOAuth1Client_SignedGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_token="at"`)
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer server.Close()

	client := NewOAuth1Client(OAuth1Config{ConsumerKey: "ck", ConsumerSecret: "cs"}, server.Client())
	status, body, err := client.Get(context.Background(), server.URL+"/v2/listings?limit=100", &channel.Credential{
		AccessToken: "at",
		TokenSecret: "as",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":0,"results":[]}`, string(body))
}
