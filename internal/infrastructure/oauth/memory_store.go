package oauth

import (
	"context"
	"sync"

	"github.com/channelsync/backend/internal/domain/channel"
)

// MemoryCredentialStore is a CredentialStore that lives only for the
// process lifetime. Used for connectors whose credentials are re-derivable
// from configuration (password-based platforms issue short-lived bearers
// not worth persisting) and in tests.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[channel.PlatformCode]*channel.Credential
}

// NewMemoryCredentialStore creates an empty in-memory store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[channel.PlatformCode]*channel.Credential)}
}

// SaveCredential stores a copy of the credential
func (m *MemoryCredentialStore) SaveCredential(_ context.Context, platform channel.PlatformCode, cred *channel.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cred
	m.creds[platform] = &c
	return nil
}

// LoadCredential returns a copy of the stored credential
func (m *MemoryCredentialStore) LoadCredential(_ context.Context, platform channel.PlatformCode) (*channel.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[platform]
	if !ok {
		return nil, channel.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

var _ channel.CredentialStore = (*MemoryCredentialStore)(nil)
