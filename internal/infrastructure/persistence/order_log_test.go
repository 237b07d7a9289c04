package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/channel"
)

func TestGormOrderLog_AppendAndRecent(t *testing.T) {
	log := NewGormOrderLog(newTestDB(t))
	ctx := context.Background()

	first := channel.NewOrderLogEntry(channel.OrderActionCreated, &channel.Order{
		Source:    channel.PlatformCodeShopify,
		OrderedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Items:     []channel.OrderItem{{SKU: "pin-red", Quantity: 2}},
		Raw:       json.RawMessage(`{"id":"o1"}`),
	})
	second := channel.NewOrderLogEntry(channel.OrderActionCancelled, &channel.Order{
		Source:    channel.PlatformCodePOS,
		OrderedAt: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
		Items:     []channel.OrderItem{{SKU: "patch", Quantity: 1}},
	})

	require.NoError(t, log.Append(ctx, []channel.OrderLogEntry{first}))
	require.NoError(t, log.Append(ctx, []channel.OrderLogEntry{second}))

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got := map[channel.OrderAction]channel.OrderLogEntry{}
	for _, entry := range entries {
		got[entry.Action] = entry
	}

	created := got[channel.OrderActionCreated]
	assert.Equal(t, first.ID, created.ID)
	assert.Equal(t, channel.PlatformCodeShopify, created.Source)
	assert.Equal(t, []channel.OrderItem{{SKU: "pin-red", Quantity: 2}}, created.Items)
	assert.JSONEq(t, `{"id":"o1"}`, string(created.Raw))

	cancelled := got[channel.OrderActionCancelled]
	assert.Equal(t, channel.PlatformCodePOS, cancelled.Source)
}

func TestGormOrderLog_AppendNothing(t *testing.T) {
	log := NewGormOrderLog(newTestDB(t))
	require.NoError(t, log.Append(context.Background(), nil))
}

func TestGormOrderLog_RecentHonorsLimit(t *testing.T) {
	log := NewGormOrderLog(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := channel.NewOrderLogEntry(channel.OrderActionCreated, &channel.Order{
			Source:    channel.PlatformCodeEtsy,
			OrderedAt: time.Now(),
			Items:     []channel.OrderItem{{SKU: "pin-red", Quantity: 1}},
		})
		require.NoError(t, log.Append(ctx, []channel.OrderLogEntry{entry}))
	}

	entries, err := log.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
