package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orders"
	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
)

// maxOrderPayload bounds webhook and manual order bodies
const maxOrderPayload = 1 << 20

// OrderService is the order surface the handler needs. Implemented by the
// orders service.
type OrderService interface {
	Accept(ctx context.Context, source channel.PlatformCode, raw []byte) ([]orders.FanoutResult, error)
	AcceptManual(ctx context.Context, source channel.PlatformCode, items []channel.OrderItem, raw json.RawMessage) ([]orders.FanoutResult, error)
	Cancel(ctx context.Context, source channel.PlatformCode, raw []byte) error
}

// AuditReader reads back the order audit trail
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]channel.OrderLogEntry, error)
}

// OrderHandler serves order webhooks, manual order entry and the audit trail
type OrderHandler struct {
	BaseHandler
	service OrderService
	audit   AuditReader
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service OrderService, audit AuditReader, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		audit:   audit,
		logger:  logger.Named("http.order"),
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/hooks/:platform/orders/created", h.OrderCreated)
	rg.POST("/hooks/:platform/orders/cancelled", h.OrderCancelled)
	rg.POST("/orders", h.CreateManual)
	rg.GET("/orders", h.ListRecent)
}

// OrderCreated accepts a platform's new-order webhook. The raw payload is
// handed to the source connector for translation.
func (h *OrderHandler) OrderCreated(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "unknown platform")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOrderPayload))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	results, err := h.service.Accept(c.Request.Context(), platform, raw)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, results)
}

// OrderCancelled records a platform's cancelled-order webhook in the audit
// trail. Cancellations never restock.
func (h *OrderHandler) OrderCancelled(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "unknown platform")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxOrderPayload))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Cancel(c.Request.Context(), platform, raw); err != nil {
		h.DomainError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateManual accepts an operator-entered order
func (h *OrderHandler) CreateManual(c *gin.Context) {
	var req dto.ManualOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
		return
	}
	source := channel.PlatformCode(req.Source)

	items := make([]channel.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = channel.OrderItem{SKU: item.SKU, Quantity: item.Quantity}
	}

	results, err := h.service.AcceptManual(c.Request.Context(), source, items, req.Data)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.logger.Info("manual order accepted",
		zap.String("source", source.String()),
		zap.Int("items", len(items)))
	h.Success(c, results)
}

// ListRecent returns the newest audit trail entries
func (h *OrderHandler) ListRecent(c *gin.Context) {
	entries, err := h.audit.Recent(c.Request.Context(), 100)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.OrderLogEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = dto.NewOrderLogEntryResponse(entry)
	}
	h.Success(c, out)
}
