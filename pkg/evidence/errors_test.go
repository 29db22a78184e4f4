package evidence

import (
	"errors"
	"testing"
)

func TestNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError("raw/github/users.json", nil)
	want := "evidence not found: raw/github/users.json"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPushErrorUnwrap(t *testing.T) {
	cause := errors.New("non-fast-forward")
	err := NewPushError("origin", "master", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Error("Error() should not be empty")
	}
}

func TestMisconfigurationErrorWithoutCause(t *testing.T) {
	err := NewMisconfigurationError("locker.repo_url", nil)
	want := "misconfiguration [locker.repo_url]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStaleErrorFields(t *testing.T) {
	err := NewStaleError("raw/github/users.json", "2026-01-01T00:00:00Z", 86400)
	if err.Path != "raw/github/users.json" || err.TTL != 86400 {
		t.Errorf("unexpected fields: %+v", err)
	}
}
