package cache

import (
	"context"
	"sync"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
)

// stateEntry is a stored verifier with its expiration
type stateEntry struct {
	verifier  string
	expiresAt time.Time
}

// InMemoryStateStore implements channel.OAuthStateStore using an in-memory
// map. Suitable for single-instance deployments and testing.
type InMemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	now     func() time.Time
}

// NewInMemoryStateStore creates a new in-memory authorization state store.
// Expired entries are dropped lazily on the next read of their key.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{
		entries: make(map[string]stateEntry),
		now:     time.Now,
	}
}

var _ channel.OAuthStateStore = (*InMemoryStateStore)(nil)

// SaveState stores the verifier under (platform, state) with a TTL
func (s *InMemoryStateStore) SaveState(ctx context.Context, platform channel.PlatformCode, state, verifier string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[platform.String()+":"+state] = stateEntry{
		verifier:  verifier,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// ConsumeState returns and deletes the verifier, or channel.ErrStateNotFound
func (s *InMemoryStateStore) ConsumeState(ctx context.Context, platform channel.PlatformCode, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := platform.String() + ":" + state
	entry, ok := s.entries[key]
	if !ok {
		return "", channel.ErrStateNotFound
	}
	delete(s.entries, key)

	if s.now().After(entry.expiresAt) {
		return "", channel.ErrStateNotFound
	}
	return entry.verifier, nil
}
