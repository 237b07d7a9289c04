package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/channel"
)

func TestInMemoryStateStore_ConsumeOnce(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.SaveState(ctx, channel.PlatformCodeEtsyV3, "st", "ver", time.Hour))

	verifier, err := store.ConsumeState(ctx, channel.PlatformCodeEtsyV3, "st")
	require.NoError(t, err)
	assert.Equal(t, "ver", verifier)

	// Consumed on first read
	_, err = store.ConsumeState(ctx, channel.PlatformCodeEtsyV3, "st")
	require.ErrorIs(t, err, channel.ErrStateNotFound)
}

func TestInMemoryStateStore_ScopedByPlatform(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.SaveState(ctx, channel.PlatformCodeEtsyV3, "st", "ver", time.Hour))

	_, err := store.ConsumeState(ctx, channel.PlatformCodeShopify, "st")
	require.ErrorIs(t, err, channel.ErrStateNotFound)

	_, err = store.ConsumeState(ctx, channel.PlatformCodeEtsyV3, "st")
	require.NoError(t, err)
}

func TestInMemoryStateStore_Expires(t *testing.T) {
	store := NewInMemoryStateStore()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.SaveState(ctx, channel.PlatformCodeEtsy, "st", "ver", time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := store.ConsumeState(ctx, channel.PlatformCodeEtsy, "st")
	require.ErrorIs(t, err, channel.ErrStateNotFound)
}

func TestInMemoryStateStore_UnknownState(t *testing.T) {
	store := NewInMemoryStateStore()

	_, err := store.ConsumeState(context.Background(), channel.PlatformCodePOS, "missing")
	require.ErrorIs(t, err, channel.ErrStateNotFound)
}
