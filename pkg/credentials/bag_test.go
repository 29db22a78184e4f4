package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCredsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestBagGetFromFile(t *testing.T) {
	path := writeCredsFile(t, "github:\n  token: abc123\n")
	bag, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, err := bag.Get("github", "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "abc123" {
		t.Errorf("got %q, want abc123", v)
	}
}

func TestBagGetMissingField(t *testing.T) {
	path := writeCredsFile(t, "github:\n  token: abc123\n")
	bag, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = bag.Get("github", "secret")
	if err == nil {
		t.Fatal("expected error for missing field")
	}
	var credErr *CredentialError
	if !as(err, &credErr) {
		t.Fatalf("expected *CredentialError, got %T", err)
	}
	if credErr.Section != "github" || credErr.Field != "secret" {
		t.Errorf("unexpected error detail: %+v", credErr)
	}
}

func TestBagEnvOverridesFile(t *testing.T) {
	path := writeCredsFile(t, "github:\n  token: abc123\n")
	bag, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	t.Setenv("GITHUB_TOKEN", "from-env")
	v, err := bag.Get("github", "token")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "from-env" {
		t.Errorf("got %q, want from-env", v)
	}
}

func TestLoadMissingFileYieldsEmptyBag(t *testing.T) {
	bag, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := bag.Get("github", "token"); err == nil {
		t.Fatal("expected error for empty bag lookup")
	}
}

func TestFileBackendWatchReload(t *testing.T) {
	path := writeCredsFile(t, "github:\n  token: first\n")
	backend, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	if err := backend.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer backend.Close()

	if v, ok := backend.Lookup("github", "token"); !ok || v != "first" {
		t.Fatalf("initial lookup = %q, %v", v, ok)
	}
}

// as is a tiny errors.As helper so tests don't need an extra import
// line per assertion.
func as(err error, target **CredentialError) bool {
	ce, ok := err.(*CredentialError)
	if ok {
		*target = ce
	}
	return ok
}
