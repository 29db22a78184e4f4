package locker

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// AddContentToLocker writes raw bytes to a locker-relative path outside
// the evidence/index machinery (report HTML, rendered templates,
// a CHANGELOG) and stages it for the next Checkin.
func (l *Locker) AddContentToLocker(relPath string, content []byte) error {
	clean := path.Clean(relPath)
	if clean == "." || clean == "/" || clean == ".." {
		return fmt.Errorf("invalid locker content path: %s", relPath)
	}

	full := localDir(l, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", relPath, err)
	}
	l.touch(clean)
	return nil
}

// ReadContentFromLocker reads raw bytes from a locker-relative path
// outside the evidence/index machinery.
func (l *Locker) ReadContentFromLocker(relPath string) ([]byte, error) {
	full := localDir(l, path.Clean(relPath))
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	return content, nil
}
