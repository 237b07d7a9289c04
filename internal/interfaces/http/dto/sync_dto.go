package dto

import (
	"encoding/json"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
)

// PlatformURI binds the :platform path parameter
type PlatformURI struct {
	Platform string `uri:"platform" binding:"required"`
}

// OAuthCallbackQuery binds the provider callback query. Providers disagree
// on parameter names: OAuth2 sends code/state, OAuth1 sends
// oauth_token/oauth_verifier.
type OAuthCallbackQuery struct {
	Code          string `form:"code"`
	State         string `form:"state"`
	OAuthToken    string `form:"oauth_token"`
	OAuthVerifier string `form:"oauth_verifier"`
}

// StateValue returns the anti-forgery value regardless of provider dialect
func (q OAuthCallbackQuery) StateValue() string {
	if q.State != "" {
		return q.State
	}
	return q.OAuthToken
}

// CodeValue returns the grant code regardless of provider dialect
func (q OAuthCallbackQuery) CodeValue() string {
	if q.Code != "" {
		return q.Code
	}
	return q.OAuthVerifier
}

// ManualOrderItem is one line of a manually entered order
type ManualOrderItem struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,min=1"`
}

// ManualOrderRequest is an operator-entered order
type ManualOrderRequest struct {
	Source string            `json:"source" binding:"required,platform"`
	Items  []ManualOrderItem `json:"items" binding:"required,min=1,dive"`
	Data   json.RawMessage   `json:"data,omitempty"`
}

// SnapshotResponse is an inventory snapshot rendered for the API
type SnapshotResponse struct {
	Source    string                    `json:"source"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Records   []channel.InventoryRecord `json:"records"`
}

// NewSnapshotResponse renders a snapshot
func NewSnapshotResponse(s *channel.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Source:    s.Source.String(),
		FetchedAt: s.FetchedAt,
		Records:   s.Records,
	}
}

// ConnectorStatus describes one connector's authorization state
type ConnectorStatus struct {
	Platform string `json:"platform"`
	Ready    bool   `json:"ready"`
	Watching bool   `json:"watching"`
}

// OrderLogEntryResponse is one audit trail row rendered for the API
type OrderLogEntryResponse struct {
	ID        string              `json:"id"`
	Source    string              `json:"source"`
	Action    string              `json:"action"`
	OrderedAt time.Time           `json:"ordered_at"`
	Items     []channel.OrderItem `json:"items"`
}

// NewOrderLogEntryResponse renders an audit entry
func NewOrderLogEntryResponse(e channel.OrderLogEntry) OrderLogEntryResponse {
	return OrderLogEntryResponse{
		ID:        e.ID.String(),
		Source:    e.Source.String(),
		Action:    string(e.Action),
		OrderedAt: e.OrderedAt,
		Items:     e.Items,
	}
}
