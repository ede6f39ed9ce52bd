package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/model"
)

var (
	// ErrNotAuthenticated is returned when nobody is signed in.
	ErrNotAuthenticated = api.ErrNotAuthenticated

	// ErrNoSession is returned by FileStore.Load when no session is saved.
	ErrNoSession = errors.New("no saved session")
)

// Session is a signed-in user's token grant.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	User         model.User `json:"user"`
}

// FromGrant converts an auth service grant into a Session.
func FromGrant(g *api.Session) *Session {
	return &Session{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    g.Expiry(),
		User:         g.User.ToModel(),
	}
}

// ExpiresWithin reports whether the access token expires before now+d.
// A session without an expiry never expires.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(s.ExpiresAt)
}

// FileStore persists a session as JSON, readable only by its owner. A
// sibling .lock file serializes access between processes.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the session file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the saved session.
func (f *FileStore) Load(ctx context.Context) (*Session, error) {
	if _, err := os.Stat(filepath.Dir(f.path)); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if _, err := f.lock.TryRLockContext(ctx, 50*time.Millisecond); err != nil {
		return nil, fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save atomically replaces the saved session.
func (f *FileStore) Save(ctx context.Context, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if _, err := f.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the saved session. Clearing a missing session is not an
// error.
func (f *FileStore) Clear(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(f.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := f.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer f.lock.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
