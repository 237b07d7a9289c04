// Package oauth implements the connector token lifecycle: the authorization
// state machine shared by every connector, an OAuth2 client with PKCE and
// silent refresh, and an OAuth1 (HMAC-SHA1) signing client.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/channel"
)

// RefreshMargin is how close to expiry a credential may get before an
// authenticated call triggers a silent refresh.
const RefreshMargin = 60 * time.Second

// Refresher exchanges a near-expiry credential for a fresh one. Connectors
// whose tokens never expire leave it nil.
type Refresher func(ctx context.Context, cred *channel.Credential) (*channel.Credential, error)

// TokenStore owns one connector's credential and its position in the
// authorization lifecycle:
//
//	Unauthenticated -> AuthorizationPending -> Authorized <-> Refreshing
//
// The ready flag and the credential always change together under one lock;
// a store is never ready without a credential. Every successful
// authorization or refresh is persisted through the CredentialStore.
type TokenStore struct {
	platform  channel.PlatformCode
	store     channel.CredentialStore
	refresher Refresher
	margin    time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	state channel.AuthState
	cred  *channel.Credential
}

// NewTokenStore creates a token store for one platform. The store starts
// Unauthenticated; call Restore to load a persisted credential.
func NewTokenStore(platform channel.PlatformCode, store channel.CredentialStore, refresher Refresher, logger *zap.Logger) *TokenStore {
	return &TokenStore{
		platform:  platform,
		store:     store,
		refresher: refresher,
		margin:    RefreshMargin,
		logger:    logger.Named("tokenstore").With(zap.String("platform", platform.String())),
		now:       time.Now,
		state:     channel.AuthStateUnauthenticated,
	}
}

// Restore loads the persisted credential, if any. A missing credential is
// not an error; the store simply stays Unauthenticated.
func (t *TokenStore) Restore(ctx context.Context) error {
	cred, err := t.store.LoadCredential(ctx, t.platform)
	if err != nil {
		if errors.Is(err, channel.ErrCredentialNotFound) {
			return nil
		}
		return fmt.Errorf("restoring credential: %w", err)
	}

	t.mu.Lock()
	t.cred = cred
	t.state = channel.AuthStateAuthorized
	t.mu.Unlock()

	t.logger.Info("Restored persisted credential")
	return nil
}

// Ready returns true iff a credential is held
func (t *TokenStore) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == channel.AuthStateAuthorized || t.state == channel.AuthStateRefreshing
}

// State returns the current lifecycle state
func (t *TokenStore) State() channel.AuthState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BeginAuthorization moves the store to AuthorizationPending. Starting a new
// grant while already authorized is a conflict; the process supports a
// single authenticated account per platform and never silently overwrites
// its credential.
func (t *TokenStore) BeginAuthorization() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == channel.AuthStateAuthorized || t.state == channel.AuthStateRefreshing {
		return channel.ErrAlreadyAuthorized
	}
	t.state = channel.AuthStatePending
	return nil
}

// AuthorizationFailed returns the store to Unauthenticated after a failed
// grant attempt
func (t *TokenStore) AuthorizationFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == channel.AuthStatePending {
		t.state = channel.AuthStateUnauthenticated
	}
}

// Accept installs a freshly issued credential, flips the store to
// Authorized, and persists the credential. Persistence failures are logged
// rather than surfaced: the grant already succeeded against the provider and
// losing the process would only require re-authorizing.
func (t *TokenStore) Accept(ctx context.Context, cred *channel.Credential) {
	t.mu.Lock()
	t.cred = cred
	t.state = channel.AuthStateAuthorized
	t.mu.Unlock()

	if err := t.store.SaveCredential(ctx, t.platform, cred); err != nil {
		t.logger.Error("Failed to persist credential", zap.Error(err))
	}
}

// Credential returns a copy of the held credential, refreshing it first
// when it is within the safety margin of expiry. Fails closed: a failed
// refresh clears the ready state and every subsequent call returns an
// authorization error until the connector is re-authorized.
func (t *TokenStore) Credential(ctx context.Context) (*channel.Credential, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cred == nil || t.state == channel.AuthStateUnauthenticated || t.state == channel.AuthStatePending {
		return nil, channel.ErrNotReady
	}

	if t.refresher != nil && t.cred.ExpiresWithin(t.margin, t.now()) {
		t.state = channel.AuthStateRefreshing
		fresh, err := t.refresher(ctx, t.cred)
		if err != nil {
			t.cred = nil
			t.state = channel.AuthStateUnauthenticated
			t.logger.Error("Token refresh failed, connector marked not ready", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", channel.ErrRefreshFailed, err)
		}
		t.cred = fresh
		t.state = channel.AuthStateAuthorized
		if err := t.store.SaveCredential(ctx, t.platform, fresh); err != nil {
			t.logger.Error("Failed to persist refreshed credential", zap.Error(err))
		}
		t.logger.Debug("Credential silently refreshed")
	}

	c := *t.cred
	return &c, nil
}
