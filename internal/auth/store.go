package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/masteryee/nest-events/pkg/models"
)

// Store persists the access credential as a small JSON file:
//
//	{"AccessToken": "...", "Expiration": "2034-03-07T12:00:00Z"}
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultTokenPath is <user config dir>/nest-events/token.json.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nest-events", "token.json")
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cached credential. A missing file yields (nil, nil).
// An unreadable or undecodable file is an error wrapping ErrCorruptCredential.
func (s *Store) Load() (*models.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", s.path, err)
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCredential, s.path, err)
	}
	return &cred, nil
}

// Save overwrites the credential file. The directory is created 0700 and the
// file written 0600 through a temp file so a crash never leaves half a token.
func (s *Store) Save(cred *models.Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	out := models.Credential{
		AccessToken: cred.AccessToken,
		Expiration:  cred.Expiration.UTC(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

// Clear deletes the cached credential. Missing files are not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
