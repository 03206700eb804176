// Package session holds the caller's authentication state: the opaque token
// issued at login and the cached user profile.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/internal/models"
)

// LogoutFunc is invoked by Logout with the token being cleared, typically to
// ask the relay to drop its HTTP-only cookie.
type LogoutFunc func(ctx context.Context, token string) error

// Store is the single source of truth for "am I logged in and as whom".
// Every write replaces the whole value, reads never observe a partial update.
type Store struct {
	mu       sync.RWMutex
	token    string
	profile  *models.Profile
	onLogout LogoutFunc
}

// Option configures a Store.
type Option func(*Store)

// WithLogoutHook registers a function called by Logout.
func WithLogoutHook(fn LogoutFunc) Option {
	return func(s *Store) {
		s.onLogout = fn
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromSession creates a store seeded with a previously saved session.
func FromSession(sess models.Session, opts ...Option) *Store {
	s := NewStore(opts...)
	s.token = sess.Token
	if sess.Profile != nil {
		p := *sess.Profile
		s.profile = &p
	}
	return s
}

// SetToken stores the token without validating it, overwriting any prior value.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Token returns the current token and whether one is present.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != ""
}

// SetProfile replaces the cached profile.
func (s *Store) SetProfile(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = &profile
}

// Profile returns a copy of the cached profile.
func (s *Store) Profile() (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return models.Profile{}, false
	}
	return *s.profile, true
}

// Snapshot returns a copy of the current state, suitable for persisting.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := models.Session{Token: s.token}
	if s.profile != nil {
		p := *s.profile
		sess.Profile = &p
	}
	return sess
}

// Logout clears the token and the profile. The logout hook, if any, runs after
// local state is cleared; its error is returned but never restores the session.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.profile = nil
	hook := s.onLogout
	s.mu.Unlock()

	if hook == nil || token == "" {
		return nil
	}

	if err := hook(ctx, token); err != nil {
		log.Warn().Err(err).Msg("logout hook failed")
		return err
	}
	return nil
}
