package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
)

// Reconciler is the reconciliation surface the connector handler needs.
// Implemented by the reconcile engine.
type Reconciler interface {
	View(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error)
	Sync(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error)
	Push(ctx context.Context, platform channel.PlatformCode) ([]channel.WriteResult, error)
	Pull(ctx context.Context, platform channel.PlatformCode) (*channel.Snapshot, error)
}

// ConnectorHandler serves per-platform setup, reconciliation and webhook
// management endpoints.
type ConnectorHandler struct {
	BaseHandler
	registry   *channel.Registry
	reconciler Reconciler
	states     channel.OAuthStateStore
	marks      channel.WatermarkStore
	stateTTL   time.Duration
	logger     *zap.Logger
}

// NewConnectorHandler creates a new ConnectorHandler
func NewConnectorHandler(
	registry *channel.Registry,
	reconciler Reconciler,
	states channel.OAuthStateStore,
	marks channel.WatermarkStore,
	stateTTL time.Duration,
	logger *zap.Logger,
) *ConnectorHandler {
	return &ConnectorHandler{
		registry:   registry,
		reconciler: reconciler,
		states:     states,
		marks:      marks,
		stateTTL:   stateTTL,
		logger:     logger.Named("http.connector"),
	}
}

// RegisterRoutes registers connector routes
func (h *ConnectorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/channels", h.List)

	group := rg.Group("/channels/:platform")
	group.GET("/setup", h.Setup)
	group.GET("/oauth", h.OAuthCallback)
	group.GET("/view", h.View)
	group.POST("/sync", h.Sync)
	group.POST("/push", h.Push)
	group.POST("/pull", h.Pull)
	group.POST("/hooks", h.RegisterHooks)
	group.DELETE("/hooks", h.RemoveHooks)
	group.POST("/poll/start", h.StartPolling)
	group.POST("/poll/stop", h.StopPolling)
}

// List returns the status of every configured connector
func (h *ConnectorHandler) List(c *gin.Context) {
	statuses := make([]dto.ConnectorStatus, 0)
	for _, connector := range h.registry.List() {
		watching, err := h.marks.Watching(c.Request.Context(), connector.Platform())
		if err != nil {
			h.DomainError(c, err)
			return
		}
		statuses = append(statuses, dto.ConnectorStatus{
			Platform: connector.Platform().String(),
			Ready:    connector.Ready(),
			Watching: watching,
		})
	}
	h.Success(c, statuses)
}

// Setup begins an authorization attempt and redirects the operator to the
// provider's grant page. Fails with 409 when the connector is already
// authorized.
func (h *ConnectorHandler) Setup(c *gin.Context) {
	connector, ok := h.lookup(c)
	if !ok {
		return
	}
	authorizer, ok := connector.(channel.Authorizer)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnsupported, "platform does not use interactive authorization")
		return
	}

	prompt, err := authorizer.GenerateAuthURL(c.Request.Context())
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if err := h.states.SaveState(c.Request.Context(), connector.Platform(), prompt.State, prompt.Verifier, h.stateTTL); err != nil {
		h.DomainError(c, err)
		return
	}

	h.logger.Info("authorization started", zap.String("platform", connector.Platform().String()))
	c.Redirect(http.StatusFound, prompt.URL)
}

// OAuthCallback completes an authorization attempt from the provider
// redirect. An unknown or expired state value fails with 401.
func (h *ConnectorHandler) OAuthCallback(c *gin.Context) {
	connector, ok := h.lookup(c)
	if !ok {
		return
	}
	authorizer, ok := connector.(channel.Authorizer)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnsupported, "platform does not use interactive authorization")
		return
	}

	var query dto.OAuthCallbackQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	verifier, err := h.states.ConsumeState(c.Request.Context(), connector.Platform(), query.StateValue())
	if err != nil {
		h.DomainError(c, err)
		return
	}
	if err := authorizer.CompleteAuthorization(c.Request.Context(), query.CodeValue(), verifier); err != nil {
		h.DomainError(c, err)
		return
	}

	h.logger.Info("authorization completed", zap.String("platform", connector.Platform().String()))
	h.Success(c, gin.H{"platform": connector.Platform().String(), "ready": connector.Ready()})
}

// View returns the connector's current snapshot
func (h *ConnectorHandler) View(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}
	snapshot, err := h.reconciler.View(c.Request.Context(), platform)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.NewSnapshotResponse(snapshot))
}

// Sync overwrites the canonical ledger from the connector's snapshot
func (h *ConnectorHandler) Sync(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}
	snapshot, err := h.reconciler.Sync(c.Request.Context(), platform)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.NewSnapshotResponse(snapshot))
}

// Push writes the ledger's changes out to the platform
func (h *ConnectorHandler) Push(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}
	results, err := h.reconciler.Push(c.Request.Context(), platform)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, results)
}

// Pull archives the connector's snapshot to the ledger history
func (h *ConnectorHandler) Pull(c *gin.Context) {
	platform, ok := h.platform(c)
	if !ok {
		return
	}
	snapshot, err := h.reconciler.Pull(c.Request.Context(), platform)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.NewSnapshotResponse(snapshot))
}

// RegisterHooks subscribes to the platform's order webhooks. Returns 409
// when subscriptions already exist.
func (h *ConnectorHandler) RegisterHooks(c *gin.Context) {
	manager, ok := h.webhookManager(c)
	if !ok {
		return
	}
	if err := manager.RegisterWebhooks(c.Request.Context()); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

// RemoveHooks removes this process's webhook subscriptions
func (h *ConnectorHandler) RemoveHooks(c *gin.Context) {
	manager, ok := h.webhookManager(c)
	if !ok {
		return
	}
	if err := manager.UnregisterWebhooks(c.Request.Context()); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

// StartPolling enables order polling; the flag is persisted so polling
// resumes after a restart.
func (h *ConnectorHandler) StartPolling(c *gin.Context) {
	h.setWatching(c, true)
}

// StopPolling disables order polling
func (h *ConnectorHandler) StopPolling(c *gin.Context) {
	h.setWatching(c, false)
}

func (h *ConnectorHandler) setWatching(c *gin.Context, watching bool) {
	connector, ok := h.lookup(c)
	if !ok {
		return
	}
	if _, ok := connector.(channel.OrderPoller); !ok {
		h.DomainError(c, channel.ErrOrderPollUnsupported)
		return
	}
	if err := h.marks.SetWatching(c.Request.Context(), connector.Platform(), watching); err != nil {
		h.DomainError(c, err)
		return
	}

	h.logger.Info("order polling flag changed",
		zap.String("platform", connector.Platform().String()),
		zap.Bool("watching", watching))
	h.Success(c, gin.H{"platform": connector.Platform().String(), "watching": watching})
}

func (h *ConnectorHandler) platform(c *gin.Context) (channel.PlatformCode, bool) {
	platform, ok := platformParam(c)
	if !ok {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "unknown platform")
		return "", false
	}
	return platform, true
}

func (h *ConnectorHandler) lookup(c *gin.Context) (channel.Connector, bool) {
	platform, ok := h.platform(c)
	if !ok {
		return nil, false
	}
	connector, err := h.registry.Get(platform)
	if err != nil {
		h.DomainError(c, err)
		return nil, false
	}
	return connector, true
}

func (h *ConnectorHandler) webhookManager(c *gin.Context) (channel.WebhookManager, bool) {
	connector, ok := h.lookup(c)
	if !ok {
		return nil, false
	}
	manager, ok := connector.(channel.WebhookManager)
	if !ok {
		h.DomainError(c, channel.ErrHooksUnsupported)
		return nil, false
	}
	return manager, true
}
