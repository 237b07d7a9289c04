package models

import (
	"encoding/json"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/google/uuid"
)

// OrderLogEntryModel is one immutable row of the order audit trail.
type OrderLogEntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Source    string    `gorm:"size:32;not null;index"`
	Action    string    `gorm:"size:16;not null"`
	OrderedAt time.Time `gorm:"not null;index"`
	ItemsJSON string    `gorm:"type:text;not null"`
	Raw       string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLogEntryModel) TableName() string {
	return "order_log_entries"
}

// ToDomain converts the persistence model to a domain OrderLogEntry.
func (m *OrderLogEntryModel) ToDomain() (channel.OrderLogEntry, error) {
	var items []channel.OrderItem
	if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err != nil {
		return channel.OrderLogEntry{}, err
	}
	return channel.OrderLogEntry{
		ID:        m.ID,
		Source:    channel.PlatformCode(m.Source),
		Action:    channel.OrderAction(m.Action),
		OrderedAt: m.OrderedAt,
		Items:     items,
		Raw:       json.RawMessage(m.Raw),
	}, nil
}

// OrderLogEntryModelFromDomain builds a persistence model from an audit entry.
func OrderLogEntryModelFromDomain(e channel.OrderLogEntry) (*OrderLogEntryModel, error) {
	items, err := json.Marshal(e.Items)
	if err != nil {
		return nil, err
	}
	return &OrderLogEntryModel{
		ID:        e.ID,
		Source:    e.Source.String(),
		Action:    string(e.Action),
		OrderedAt: e.OrderedAt,
		ItemsJSON: string(items),
		Raw:       string(e.Raw),
	}, nil
}
