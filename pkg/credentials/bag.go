package credentials

import (
	"os"
	"strings"
	"sync"
)

// Backend resolves a section.field credential. File-backed and
// external-command backends both satisfy it.
type Backend interface {
	// Lookup returns the field's value and whether it was present.
	Lookup(section, field string) (string, bool)
	// Name identifies the backend for CredentialError's source.
	Name() string
}

// Bag is the section/field credential lookup used throughout the
// pipeline (fetcher auth, notifier webhook tokens, locker git tokens).
// A field is resolved, in order: the SECTION_FIELD environment
// variable, then the configured Backend.
type Bag struct {
	mu      sync.RWMutex
	backend Backend
}

// NewBag wraps backend in a Bag.
func NewBag(backend Backend) *Bag {
	return &Bag{backend: backend}
}

// SetBackend swaps the bag's backend, used when a file-watch reload
// replaces the backend wholesale rather than mutating it in place.
func (b *Bag) SetBackend(backend Backend) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backend = backend
}

// Get resolves section.field, preferring the SECTION_FIELD environment
// variable over the backend. Missing fields return a *CredentialError.
func (b *Bag) Get(section, field string) (string, error) {
	envKey := envName(section, field)
	if v, ok := os.LookupEnv(envKey); ok {
		return v, nil
	}

	b.mu.RLock()
	backend := b.backend
	b.mu.RUnlock()

	if backend == nil {
		return "", NewCredentialError(section, field, "environment", nil)
	}
	if v, ok := backend.Lookup(section, field); ok {
		return v, nil
	}
	return "", NewCredentialError(section, field, backend.Name(), nil)
}

// GetDefault resolves section.field, returning def instead of an error
// when the field is absent from both the environment and the backend.
func (b *Bag) GetDefault(section, field, def string) string {
	v, err := b.Get(section, field)
	if err != nil {
		return def
	}
	return v
}

// envName formats the SECTION_FIELD environment variable name for a
// section.field lookup.
func envName(section, field string) string {
	return strings.ToUpper(section) + "_" + strings.ToUpper(field)
}
