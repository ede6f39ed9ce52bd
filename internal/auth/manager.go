package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/model"
)

// RefreshWindow is how long before expiry an access token is refreshed.
const RefreshWindow = time.Minute

// Identity supplies the signed-in user and their access token.
type Identity interface {
	CurrentUser(ctx context.Context) (*model.User, error)
	AccessToken(ctx context.Context) (string, error)
}

// Backend is the subset of the auth service a Manager uses.
type Backend interface {
	SignIn(ctx context.Context, email, password string) (*api.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*api.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Manager holds the hosted-mode session.
type Manager struct {
	backend Backend
	store   *FileStore
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	loaded  bool
	session *Session
}

var _ Identity = (*Manager)(nil)

// NewManager creates a session manager. A nil store keeps the session in
// memory only.
func NewManager(backend Backend, store *FileStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend: backend,
		store:   store,
		logger:  logger.With("component", "auth"),
		now:     time.Now,
	}
}

// SignIn authenticates with email and password and persists the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	grant, err := m.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s := FromGrant(grant)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.loaded = true
	if err := m.saveLocked(ctx); err != nil {
		return nil, err
	}

	m.logger.Info("signed in", "user", s.User.Email)
	user := s.User
	return &user, nil
}

// SignOut revokes the session remotely and forgets it locally. The local
// session is removed even when revocation fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return err
	}
	s := m.session
	m.session = nil

	var errs []error
	if s != nil {
		if err := m.backend.SignOut(ctx, s.AccessToken); err != nil {
			m.logger.Warn("remote sign-out failed", "error", err)
			errs = append(errs, err)
		}
	}
	if m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s != nil {
		m.logger.Info("signed out", "user", s.User.Email)
	}
	return errors.Join(errs...)
}

// CurrentUser returns the signed-in user.
func (m *Manager) CurrentUser(ctx context.Context) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return nil, err
	}
	if m.session == nil {
		return nil, ErrNotAuthenticated
	}
	user := m.session.User
	return &user, nil
}

// AccessToken returns a valid access token, refreshing it first when it
// is about to expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	if m.session == nil {
		return "", ErrNotAuthenticated
	}
	if !m.session.ExpiresWithin(m.now(), RefreshWindow) {
		return m.session.AccessToken, nil
	}
	if m.session.RefreshToken == "" {
		return "", fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	}

	grant, err := m.backend.Refresh(ctx, m.session.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}
	s := FromGrant(grant)
	if s.User.ID == "" {
		s.User = m.session.User
	}
	if s.RefreshToken == "" {
		s.RefreshToken = m.session.RefreshToken
	}
	m.session = s
	if err := m.saveLocked(ctx); err != nil {
		m.logger.Warn("persist refreshed session failed", "error", err)
	}
	m.logger.Debug("session refreshed", "expires_at", s.ExpiresAt)
	return s.AccessToken, nil
}

// TokenSource adapts the manager for the REST client: anonymous callers
// get an empty token rather than an error.
func (m *Manager) TokenSource() api.TokenSource {
	return func(ctx context.Context) (string, error) {
		token, err := m.AccessToken(ctx)
		if errors.Is(err, ErrNotAuthenticated) {
			return "", nil
		}
		return token, err
	}
}

// SocketToken adapts the manager for the realtime socket's join payload.
func (m *Manager) SocketToken() func() (string, error) {
	ts := m.TokenSource()
	return func() (string, error) {
		return ts(context.Background())
	}
}

func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded || m.store == nil {
		m.loaded = true
		return nil
	}
	s, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		return err
	default:
		m.session = s
	}
	m.loaded = true
	return nil
}

func (m *Manager) saveLocked(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(ctx, m.session)
}

// Static is a fixed identity used when the dashboard talks to postgres
// directly.
type Static struct {
	User model.User
}

var _ Identity = Static{}

// CurrentUser returns the configured user.
func (s Static) CurrentUser(context.Context) (*model.User, error) {
	if s.User.ID == "" {
		return nil, ErrNotAuthenticated
	}
	user := s.User
	return &user, nil
}

// AccessToken returns an empty token; postgres mode has no token service.
func (s Static) AccessToken(context.Context) (string, error) {
	return "", nil
}
