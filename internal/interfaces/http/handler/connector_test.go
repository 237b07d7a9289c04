package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
)

// authConnector is a connector with interactive authorization
type authConnector struct {
	platform  channel.PlatformCode
	ready     bool
	prompt    *channel.AuthPrompt
	authErr   error
	completed []string
}

func (c *authConnector) Platform() channel.PlatformCode { return c.platform }
func (c *authConnector) Ready() bool                    { return c.ready }

func (c *authConnector) FetchSnapshot(ctx context.Context) (*channel.Snapshot, error) {
	return channel.NewSnapshot(c.platform, nil), nil
}

func (c *authConnector) ApplyDelta(ctx context.Context, delta channel.Delta) ([]channel.WriteResult, error) {
	return nil, nil
}

func (c *authConnector) TranslateOrder(raw []byte) (*channel.Order, error) {
	return &channel.Order{Source: c.platform}, nil
}

func (c *authConnector) GenerateAuthURL(ctx context.Context) (*channel.AuthPrompt, error) {
	if c.authErr != nil {
		return nil, c.authErr
	}
	return c.prompt, nil
}

func (c *authConnector) CompleteAuthorization(ctx context.Context, code, verifier string) error {
	if c.authErr != nil {
		return c.authErr
	}
	c.completed = append(c.completed, code+"/"+verifier)
	c.ready = true
	return nil
}

func (c *authConnector) FetchOrders(ctx context.Context, since time.Time) ([]channel.Order, error) {
	return nil, nil
}

// hookConnector adds webhook management
type hookConnector struct {
	authConnector
	hooksErr   error
	registered int
	removed    int
}

func (c *hookConnector) RegisterWebhooks(ctx context.Context) error {
	if c.hooksErr != nil {
		return c.hooksErr
	}
	c.registered++
	return nil
}

func (c *hookConnector) UnregisterWebhooks(ctx context.Context) error {
	c.removed++
	return nil
}

// fakeReconciler serves canned snapshots and results
type fakeReconciler struct {
	snapshot *channel.Snapshot
	results  []channel.WriteResult
	err      error
}

func (r *fakeReconciler) View(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	return r.snapshot, r.err
}

func (r *fakeReconciler) Sync(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	return r.snapshot, r.err
}

func (r *fakeReconciler) Push(ctx context.Context, platform channel.PlatformCode) ([]channel.WriteResult, error) {
	return r.results, r.err
}

func (r *fakeReconciler) Pull(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error) {
	return r.snapshot, r.err
}

// memStates is an in-memory channel.OAuthStateStore
type memStates struct {
	saved map[string]string
}

func newMemStates() *memStates { return &memStates{saved: map[string]string{}} }

func (s *memStates) SaveState(ctx context.Context, platform channel.PlatformCode, state, verifier string, ttl time.Duration) error {
	s.saved[platform.String()+":"+state] = verifier
	return nil
}

func (s *memStates) ConsumeState(ctx context.Context, platform channel.PlatformCode, state string) (string, error) {
	key := platform.String() + ":" + state
	verifier, ok := s.saved[key]
	if !ok {
		return "", channel.ErrStateNotFound
	}
	delete(s.saved, key)
	return verifier, nil
}

// memMarks is an in-memory channel.WatermarkStore
type memMarks struct {
	watching map[channel.PlatformCode]bool
}

func newMemMarks() *memMarks { return &memMarks{watching: map[channel.PlatformCode]bool{}} }

func (m *memMarks) SaveWatermark(ctx context.Context, platform channel.PlatformCode, t time.Time) error {
	return nil
}

func (m *memMarks) LoadWatermark(ctx context.Context, platform channel.PlatformCode) (time.Time, error) {
	return time.Time{}, channel.ErrWatermarkNotFound
}

func (m *memMarks) SetWatching(ctx context.Context, platform channel.PlatformCode, watching bool) error {
	m.watching[platform] = watching
	return nil
}

func (m *memMarks) Watching(ctx context.Context, platform channel.PlatformCode) (bool, error) {
	return m.watching[platform], nil
}

func newConnectorTestServer(t *testing.T, reconciler Reconciler, states channel.OAuthStateStore, marks channel.WatermarkStore, connectors ...channel.Connector) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewConnectorHandler(channel.NewRegistry(connectors...), reconciler, states, marks, time.Hour, zap.NewNop())
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestConnectorHandler_SetupRedirectsAndStoresState(t *testing.T) {
	connector := &authConnector{
		platform: channel.PlatformCodeEtsyV3,
		prompt:   &channel.AuthPrompt{URL: "https://provider.example/grant", State: "st", Verifier: "ver"},
	}
	states := newMemStates()
	engine := newConnectorTestServer(t, &fakeReconciler{}, states, newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/etsy3/setup")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://provider.example/grant", w.Header().Get("Location"))
	assert.Equal(t, "ver", states.saved["ETSY_V3:st"])
}

func TestConnectorHandler_SetupConflictWhenAuthorized(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsyV3, authErr: channel.ErrAlreadyAuthorized}
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/etsy3/setup")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConnectorHandler_OAuthCallback(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsyV3}
	states := newMemStates()
	states.saved["ETSY_V3:st"] = "ver"
	engine := newConnectorTestServer(t, &fakeReconciler{}, states, newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/etsy3/oauth?code=grant&state=st")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"grant/ver"}, connector.completed)
	// State is consumed
	assert.Empty(t, states.saved)
}

func TestConnectorHandler_OAuthCallbackOAuth1Dialect(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsy}
	states := newMemStates()
	states.saved["ETSY:rt"] = "rs"
	engine := newConnectorTestServer(t, &fakeReconciler{}, states, newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/etsy/oauth?oauth_token=rt&oauth_verifier=v99")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"v99/rs"}, connector.completed)
}

func TestConnectorHandler_OAuthCallbackUnknownState(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsyV3}
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/etsy3/oauth?code=grant&state=forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, connector.completed)
}

func TestConnectorHandler_ViewRendersPlatformErrorAs502(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeShopify}
	reconciler := &fakeReconciler{err: channel.NewPlatformError(channel.PlatformCodeShopify, 500, []byte(`{"errors":"boom"}`))}
	engine := newConnectorTestServer(t, reconciler, newMemStates(), newMemMarks(), connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/shopify/view")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestConnectorHandler_RegisterHooksConflict(t *testing.T) {
	connector := &hookConnector{
		authConnector: authConnector{platform: channel.PlatformCodeShopify},
		hooksErr:      channel.ErrHooksExist,
	}
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), newMemMarks(), connector)

	w := doRequest(engine, http.MethodPost, "/api/v1/channels/shopify/hooks")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConnectorHandler_HooksUnsupported(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsy}
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), newMemMarks(), connector)

	w := doRequest(engine, http.MethodPost, "/api/v1/channels/etsy/hooks")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectorHandler_PollingFlag(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsyV3}
	marks := newMemMarks()
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), marks, connector)

	w := doRequest(engine, http.MethodPost, "/api/v1/channels/etsy3/poll/start")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, marks.watching[channel.PlatformCodeEtsyV3])

	w = doRequest(engine, http.MethodPost, "/api/v1/channels/etsy3/poll/stop")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, marks.watching[channel.PlatformCodeEtsyV3])
}

func TestConnectorHandler_UnknownPlatform(t *testing.T) {
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), newMemMarks())

	w := doRequest(engine, http.MethodGet, "/api/v1/channels/amazon/view")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectorHandler_ListStatuses(t *testing.T) {
	connector := &authConnector{platform: channel.PlatformCodeEtsyV3, ready: true}
	marks := newMemMarks()
	marks.watching[channel.PlatformCodeEtsyV3] = true
	engine := newConnectorTestServer(t, &fakeReconciler{}, newMemStates(), marks, connector)

	w := doRequest(engine, http.MethodGet, "/api/v1/channels")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			Platform string `json:"platform"`
			Ready    bool   `json:"ready"`
			Watching bool   `json:"watching"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ETSY_V3", body.Data[0].Platform)
	assert.True(t, body.Data[0].Ready)
	assert.True(t, body.Data[0].Watching)
}
