package credentials

import (
	"os"
	"path/filepath"
)

// DefaultPath is the credentials file location used when the CLI's
// --creds-path flag is not given: ~/.credentials.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".credentials"
	}
	return filepath.Join(home, ".credentials")
}

// Load reads a file-backed credentials bag at path. A missing file is
// not an error: it yields an empty bag, so a run with no credentials
// configured (local-only locker, no notifiers) still starts cleanly;
// individual Get calls then fail with a CredentialError naming the
// missing field.
func Load(path string) (*Bag, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewBag(nil), nil
	}
	backend, err := NewFileBackend(path)
	if err != nil {
		return nil, err
	}
	return NewBag(backend), nil
}
