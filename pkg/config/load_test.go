package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetString("locker.default_branch", ""); got != "master" {
		t.Errorf("default_branch = %q, want master", got)
	}
}

func TestLoadMergesUserDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compliance.yaml")
	doc := "locker:\n  repo_url: https://github.com/acme/locker.git\n  branch: main\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetString("locker.repo_url", ""); got != "https://github.com/acme/locker.git" {
		t.Errorf("repo_url = %q", got)
	}
	if got := cfg.GetString("locker.branch", ""); got != "main" {
		t.Errorf("branch = %q", got)
	}
	// Defaults not present in the user document survive the merge.
	if got := cfg.GetString("locker.default_branch", ""); got != "master" {
		t.Errorf("default_branch = %q, want master", got)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("AUDITREE_LOCKER_BRANCH", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetString("locker.branch", ""); got != "from-env" {
		t.Errorf("branch = %q, want from-env", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compliance.yaml")
	if err := os.WriteFile(path, []byte("locker:\n  branch: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUDITREE_LOCKER_BRANCH", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetString("locker.branch", ""); got != "from-env" {
		t.Errorf("branch = %q, want from-env (env overrides file)", got)
	}
}

func TestLoadRejectsInvalidLargeFileThreshold(t *testing.T) {
	t.Setenv("AUDITREE_LOCKER_LARGE_FILE_THRESHOLD", "0")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for zero large_file_threshold")
	}
}
