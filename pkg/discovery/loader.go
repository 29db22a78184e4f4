package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultControlsManifest is the filename FindTop looks for to
// recognize a "top" directory.
const DefaultControlsManifest = "controls.json"

// LoaderConfig bounds the cost of a directory walk: very large or
// symlink-looping trees must not hang or exhaust memory just because
// discovery ran over them.
type LoaderConfig struct {
	// MaxFileSize rejects source files larger than this as
	// suspicious (a generated fixture, not hand-written fetcher/check
	// code). Zero disables the check.
	MaxFileSize int64
	// SkipHidden skips dotfiles and dot-directories.
	SkipHidden bool
	// FollowSymlinks resolves symlinked directories during the walk
	// instead of skipping them.
	FollowSymlinks bool
}

// DefaultLoaderConfig returns the loader's default bounds: skip hidden
// entries, don't follow symlinks, no file size cap.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{SkipHidden: true}
}

// Loader walks a compliance tree to find its top directory, its
// evidence-registration packages, and its fetcher/check source files.
type Loader struct {
	config *LoaderConfig
}

// NewLoader constructs a Loader. A nil config uses DefaultLoaderConfig.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// FindTop walks upward from start until it finds a directory
// containing manifest, returning that directory. manifest is usually
// DefaultControlsManifest; tests may pass another name.
func (l *Loader) FindTop(start, manifest string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", NewTopNotFoundError(start, manifest)
	}
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, manifest)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", NewTopNotFoundError(start, manifest)
		}
		dir = parent
	}
}

// WalkEvidenceDirs recursively locates every directory named
// "evidences" under top, returning each as a path relative to top
// (the "module key" spec.md §4.B uses to import a package exactly
// once). Diagnostics accumulate unreadable subtrees without aborting
// the walk.
func (l *Loader) WalkEvidenceDirs(top string) ([]string, []Diagnostic) {
	var dirs []string
	var diags []Diagnostic
	seen := map[string]bool{}

	err := filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, diag(path, "walk error: %v", err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if l.config.SkipHidden && path != top && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if d.Name() != "evidences" {
			return nil
		}
		rel, err := filepath.Rel(top, path)
		if err != nil {
			diags = append(diags, diag(path, "relativize: %v", err))
			return nil
		}
		key := filepath.ToSlash(rel)
		if seen[key] {
			return nil
		}
		seen[key] = true
		dirs = append(dirs, key)
		return nil
	})
	if err != nil {
		diags = append(diags, diag(top, "walk failed: %v", err))
	}
	return dirs, diags
}

// SourceFile is one fetch_/test_-prefixed file found under a top,
// named relative to that top so it can double as a fully-qualified
// identifier for --include/--exclude filtering.
type SourceFile struct {
	// RelPath is the file's path relative to its top, slash-separated.
	RelPath string
	// IsFetcher is true for fetch_-prefixed files, false for
	// test_-prefixed files.
	IsFetcher bool
}

// WalkSourceFiles scans top for files beginning with "fetch_" (fetchers)
// or "test_" (checks), per spec.md §4.B. Oversized or unreadable files
// are skipped with a diagnostic rather than aborting discovery.
func (l *Loader) WalkSourceFiles(top string) ([]SourceFile, []Diagnostic) {
	var files []SourceFile
	var diags []Diagnostic

	err := filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			diags = append(diags, diag(path, "walk error: %v", err))
			return nil
		}
		if d.IsDir() {
			if l.config.SkipHidden && path != top && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		base := d.Name()
		isFetcher := strings.HasPrefix(base, "fetch_")
		isCheck := strings.HasPrefix(base, "test_")
		if !isFetcher && !isCheck {
			return nil
		}

		if l.config.MaxFileSize > 0 {
			info, err := d.Info()
			if err != nil {
				diags = append(diags, diag(path, "stat failed: %v", err))
				return nil
			}
			if info.Size() > l.config.MaxFileSize {
				diags = append(diags, diag(path, "exceeds max file size %d bytes", l.config.MaxFileSize))
				return nil
			}
		}

		rel, err := filepath.Rel(top, path)
		if err != nil {
			diags = append(diags, diag(path, "relativize: %v", err))
			return nil
		}
		files = append(files, SourceFile{RelPath: filepath.ToSlash(rel), IsFetcher: isFetcher})
		return nil
	})
	if err != nil {
		diags = append(diags, diag(top, "walk failed: %v", err))
	}
	return files, diags
}

// Tops resolves every starting path to its top directory, deduplicating
// repeats (several starting paths may share a top) and reporting any
// that have no manifest as diagnostics rather than failing the whole
// discovery pass.
func (l *Loader) Tops(starts []string, manifest string) ([]string, []Diagnostic) {
	var tops []string
	var diags []Diagnostic
	seen := map[string]bool{}

	for _, start := range starts {
		top, err := l.FindTop(start, manifest)
		if err != nil {
			diags = append(diags, diag(start, "%v", err))
			continue
		}
		if seen[top] {
			continue
		}
		seen[top] = true
		tops = append(tops, top)
	}
	return tops, diags
}
