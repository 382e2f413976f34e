package auth

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Authorizer runs an interactive authorization flow and returns a
// fresh credential. The manager treats it as a black box.
type Authorizer func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// ConfigLoader produces the OAuth client config for the given scopes.
// It is called lazily at first need, so a broken client secret file
// surfaces at first authenticated use, not at startup.
type ConfigLoader func(scopes []string) (*oauth2.Config, error)

// FileConfigLoader reads a Google "installed application" client
// secret JSON from path.
func FileConfigLoader(path string) ConfigLoader {
	return func(scopes []string) (*oauth2.Config, error) {
		if path == "" {
			return nil, &ConfigError{Err: fmt.Errorf("credentials file not configured")}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		cfg, err := google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		return cfg, nil
	}
}

// Manager owns the process-wide credential slot. It decides per call
// whether to reuse, refresh, or re-authorize, and persists every
// credential change. All state transitions run under one mutex so two
// concurrent operations cannot race to refresh or prompt twice.
type Manager struct {
	mu         sync.Mutex
	store      *Store
	scopes     []string
	loadConfig ConfigLoader
	authorize  Authorizer

	cfg       *oauth2.Config
	cred      *oauth2.Token
	triedLoad bool
}

// NewManager creates a Manager with an empty credential slot; the
// persisted record, if any, is picked up on the first EnsureValid.
func NewManager(store *Store, scopes []string, loadConfig ConfigLoader, authorize Authorizer) *Manager {
	return &Manager{
		store:      store,
		scopes:     scopes,
		loadConfig: loadConfig,
		authorize:  authorize,
	}
}

// EnsureValid returns a credential with a usable access token,
// loading, refreshing, or re-authorizing as needed. On failure the
// error is a *ConfigError or *AuthError; the next call retries the
// lifecycle from scratch.
func (m *Manager) EnsureValid(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ensureValidLocked(ctx)
}

// Refresh is the send-path entry: when a refresh token exists it
// trades one extra token-endpoint round trip for lower odds of an
// auth failure mid-send. A transient refresh failure while the access
// token is still valid is logged and the current credential returned.
func (m *Manager) Refresh(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.ensureValidLocked(ctx)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		return tok, nil
	}

	fresh, err := m.refreshLocked(ctx)
	if err == nil {
		return fresh, nil
	}
	if permanentAuthFailure(err) {
		log.Printf("Refresh token rejected before send, re-authorizing: %v", err)
		m.cred = nil
		return m.authorizeLocked(ctx)
	}
	if tok.Valid() {
		log.Printf("Refresh before send failed, proceeding with current credential: %v", err)
		return tok, nil
	}

	return nil, &AuthError{Op: "token refresh", Err: err}
}

// Current returns the in-memory credential without triggering any
// lifecycle transitions.
func (m *Manager) Current() (*oauth2.Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cred, m.cred != nil
}

// SetCredential installs and persists a credential obtained outside
// the manager, e.g. through the manual authorization endpoint.
func (m *Manager) SetCredential(tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = tok
	m.persistLocked()
}

// OAuthConfig returns the lazily loaded OAuth client config.
func (m *Manager) OAuthConfig() (*oauth2.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.configLocked()
}

func (m *Manager) ensureValidLocked(ctx context.Context) (*oauth2.Token, error) {
	if m.cred == nil && !m.triedLoad {
		m.cred = m.store.Load()
		m.triedLoad = true
	}

	if m.cred != nil {
		if m.cred.Valid() {
			return m.cred, nil
		}
		if m.cred.RefreshToken != "" {
			fresh, err := m.refreshLocked(ctx)
			if err == nil {
				return fresh, nil
			}
			if !permanentAuthFailure(err) {
				return nil, &AuthError{Op: "token refresh", Err: err}
			}
			log.Printf("Refresh token rejected, falling back to interactive authorization: %v", err)
		}
		m.cred = nil
	}

	return m.authorizeLocked(ctx)
}

// refreshLocked exchanges the refresh token for a new access token.
// Seeding the token source with only the refresh token forces a real
// round trip instead of handing back the cached access token.
func (m *Manager) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := m.configLocked()
	if err != nil {
		return nil, err
	}

	fresh, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: m.cred.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("TokenSource.Token failed: %w", err)
	}

	// Rotation: keep the old refresh token unless the provider issued
	// a replacement.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = m.cred.RefreshToken
	}

	m.cred = fresh
	m.persistLocked()

	return fresh, nil
}

func (m *Manager) authorizeLocked(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := m.configLocked()
	if err != nil {
		return nil, err
	}

	tok, err := m.authorize(ctx, cfg)
	if err != nil {
		return nil, &AuthError{Op: "interactive authorization", Err: err}
	}

	m.cred = tok
	m.persistLocked()

	return tok, nil
}

func (m *Manager) configLocked() (*oauth2.Config, error) {
	if m.cfg != nil {
		return m.cfg, nil
	}

	cfg, err := m.loadConfig(m.scopes)
	if err != nil {
		return nil, err
	}
	m.cfg = cfg

	return cfg, nil
}

// persistLocked saves the current credential. Persistence failure is
// logged, never fails the operation: the credential still works for
// this process lifetime.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.cred); err != nil {
		log.Printf("store.Save failed, credential not persisted: %v", err)
	}
}
