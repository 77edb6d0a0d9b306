// ABOUTME: Best-effort persistence of the Discord bearer token to a local file
// ABOUTME: Owner-only permissions, trims on load, never propagates read failures

package tokenstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the token cache location relative to the user's home
// directory.
const DefaultFileName = ".discord_mcp_token"

// DefaultPath returns the default token file location. If the home
// directory cannot be determined, the path falls back to the working
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Store persists a bearer token at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store writing to path. A nil logger falls back to
// slog.Default().
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the file location the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Save writes the token with owner-only permissions, creating parent
// directories as needed. Failures are logged and swallowed; the store is a
// cache, not the source of truth.
func (s *Store) Save(token string) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.logger.Warn("failed to create token directory", "path", s.path, "error", err)
		return
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		s.logger.Warn("failed to save token", "path", s.path, "error", err)
		return
	}
	// WriteFile applies the mode only on creation; enforce it on rewrite too.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to restrict token file permissions", "path", s.path, "error", err)
	}
	s.logger.Debug("token saved", "path", s.path)
}

// Load reads and trims the cached token. The second return value reports
// whether a non-empty token was found. Read failures are logged and treated
// as "no token".
func (s *Store) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to load token", "path", s.path, "error", err)
		}
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	s.logger.Debug("token loaded", "path", s.path)
	return token, true
}

// Delete removes the cached token file. A missing file is not an error.
func (s *Store) Delete() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete token file", "path", s.path, "error", err)
	}
}
