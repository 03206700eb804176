package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cineadmin/internal/models"
	"github.com/wolfeidau/cineadmin/internal/session"
)

// ErrSessionNotFound is returned when no session is stored for a server.
var ErrSessionNotFound = errors.New("session not found")

// Entry is a stored session with its bookkeeping.
type Entry struct {
	Session   models.Session `json:"session"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Config represents the sessions file.
type Config struct {
	Version  int              `json:"version"`
	Sessions map[string]Entry `json:"sessions"`
}

// Store persists CLI sessions on the local filesystem, one per relay URL.
type Store struct {
	baseDir string
}

// NewStore creates a new session store.
// If baseDir is empty, uses ~/.cineadmin/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".cineadmin")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	store := &Store{baseDir: baseDir}

	// Initialize config if it doesn't exist
	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return store, nil
}

// Get returns the session stored for server.
func (s *Store) Get(server string) (models.Session, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return models.Session{}, err
	}

	entry, ok := cfg.Sessions[server]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}

	return entry.Session, nil
}

// Save stores sess for server, replacing any previous session.
func (s *Store) Save(server string, sess models.Session) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	cfg.Sessions[server] = Entry{Session: sess, UpdatedAt: time.Now().UTC()}

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", server).Msg("session saved")

	return nil
}

// Delete removes the session stored for server. Deleting a missing session is not an error.
func (s *Store) Delete(server string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Sessions[server]; !ok {
		return nil
	}

	delete(cfg.Sessions, server)

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", server).Msg("session deleted")

	return nil
}

// Open loads the session for server into a session.Store whose logout also
// removes the stored copy. A server without a stored session yields an empty store.
func (s *Store) Open(server string) (*session.Store, error) {
	sess, err := s.Get(server)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	return session.FromSession(sess, session.WithLogoutHook(func(context.Context, string) error {
		return s.Delete(server)
	})), nil
}

// Persist writes the current state of store for server.
func (s *Store) Persist(server string, store *session.Store) error {
	return s.Save(server, store.Snapshot())
}

// ensureConfig creates an empty config if it doesn't exist.
func (s *Store) ensureConfig() error {
	configPath := filepath.Join(s.baseDir, "sessions.json")

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return nil // Config exists
	}

	// Create empty config
	cfg := &Config{
		Version:  1,
		Sessions: make(map[string]Entry),
	}

	return s.saveConfig(cfg)
}

// loadConfig reads the config file.
func (s *Store) loadConfig() (*Config, error) {
	configPath := filepath.Join(s.baseDir, "sessions.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}

	// Ensure sessions map is initialized
	if cfg.Sessions == nil {
		cfg.Sessions = make(map[string]Entry)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	// Write to temp file first
	configPath := filepath.Join(s.baseDir, "sessions.json")
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save sessions: %w", err)
	}

	return nil
}
