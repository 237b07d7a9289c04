package channel

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// OrderItem is a single purchasable line of an order, reduced to the pair
// the decrement flow needs. Line items without a sku (tips, fees) are
// dropped during translation and never reach this type.
type OrderItem struct {
	// SKU identifies the inventory record to decrement
	SKU string `json:"sku"`
	// Quantity is the ordered quantity
	Quantity int64 `json:"quantity"`
}

// Order is a platform order reduced to what inventory tracking needs. The
// raw payload is retained for the audit log but never interpreted further.
type Order struct {
	// Source is the platform the order came from
	Source PlatformCode `json:"source"`
	// OrderedAt is when the order was placed
	OrderedAt time.Time `json:"orderedAt"`
	// Items are the sku-bearing line items
	Items []OrderItem `json:"items"`
	// Raw is the original platform payload, kept for auditing
	Raw json.RawMessage `json:"-"`
}

// ---------------------------------------------------------------------------
// Order Audit Log
// ---------------------------------------------------------------------------

// OrderAction classifies an audit log entry
type OrderAction string

const (
	// OrderActionCreated records a new order
	OrderActionCreated OrderAction = "Created"
	// OrderActionCancelled records a cancelled order
	OrderActionCancelled OrderAction = "Cancelled"
)

// OrderLogEntry is one immutable row of the order audit trail
type OrderLogEntry struct {
	// ID is the entry identifier
	ID uuid.UUID
	// Source is the platform the order came from
	Source PlatformCode
	// Action is what happened to the order
	Action OrderAction
	// OrderedAt is when the order was placed
	OrderedAt time.Time
	// Items are the translated line items
	Items []OrderItem
	// Raw is the original platform payload
	Raw json.RawMessage
}

// NewOrderLogEntry builds an audit entry for an order
func NewOrderLogEntry(action OrderAction, order *Order) OrderLogEntry {
	return OrderLogEntry{
		ID:        uuid.New(),
		Source:    order.Source,
		Action:    action,
		OrderedAt: order.OrderedAt,
		Items:     order.Items,
		Raw:       order.Raw,
	}
}
