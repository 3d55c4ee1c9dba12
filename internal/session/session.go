package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Session is the client-held identity state established at login. Exactly
// four fields persist between runs: token, user id, username and role.
type Session struct {
	Token    string `json:"token,omitempty"`
	UserID   int64  `json:"usuarioId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"userRole,omitempty"`
}

// Store persists the Session as a JSON file under a storage root, filling
// the role localStorage played for the web client. Reads of a missing file
// yield an empty session, never an error.
type Store struct {
	path string
}

const fileName = "session.json"

// NewStore creates a store rooted at dir, creating dir when needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure storage root %s: %w", dir, err)
	}
	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Load reads the current session. Missing or unreadable state reads as an
// empty session so callers can treat "no session" and "broken session"
// identically.
func (s *Store) Load() Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Session{}
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}
	}
	return sess
}

// Save overwrites the persisted session. The write goes through a temp file
// and rename so a concurrent Load never observes partial state.
func (s *Store) Save(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Clear removes every persisted field at once. Clearing an absent session
// is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the stored token, empty when logged out.
func (s *Store) Token() string {
	return s.Load().Token
}

// UserID returns the stored user id and whether one is present.
func (s *Store) UserID() (int64, bool) {
	sess := s.Load()
	return sess.UserID, sess.UserID != 0
}

// Username returns the stored username, empty when absent.
func (s *Store) Username() string {
	return s.Load().Username
}

// Role returns the stored role, empty when absent.
func (s *Store) Role() string {
	return s.Load().Role
}
