package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileBackend resolves credentials from a single YAML document of
// sections, each a flat map of field -> value:
//
//	github:
//	  token: ghp_...
//	slack:
//	  webhook_url: https://hooks.slack.com/...
type FileBackend struct {
	path string

	mu   sync.RWMutex
	data map[string]map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileBackend reads path and parses it as a section document.
func NewFileBackend(path string) (*FileBackend, error) {
	b := &FileBackend{path: path}
	if err := b.reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Name identifies this backend in CredentialError messages.
func (b *FileBackend) Name() string { return fmt.Sprintf("file:%s", b.path) }

// Lookup resolves section.field against the currently loaded document.
func (b *FileBackend) Lookup(section, field string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fields, ok := b.data[section]
	if !ok {
		return "", false
	}
	v, ok := fields[field]
	return v, ok
}

func (b *FileBackend) reload() error {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read credentials file %q: %w", b.path, err)
	}

	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse credentials file %q: %w", b.path, err)
	}
	if doc == nil {
		doc = map[string]map[string]string{}
	}

	b.mu.Lock()
	b.data = doc
	b.mu.Unlock()
	return nil
}

// Watch starts an fsnotify watch on the backing file, reloading its
// contents into memory on every write. Callers should defer Close to
// stop the watch goroutine.
func (b *FileBackend) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create credentials file watcher: %w", err)
	}
	if err := watcher.Add(b.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch credentials file %q: %w", b.path, err)
	}

	b.watcher = watcher
	b.done = make(chan struct{})
	go b.watchLoop()

	slog.Info("credentials file watch started", "path", b.path)
	return nil
}

func (b *FileBackend) watchLoop() {
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := b.reload(); err != nil {
				slog.Warn("credentials file reload failed", "path", b.path, "error", err)
				continue
			}
			slog.Info("credentials file reloaded", "path", b.path)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("credentials file watch error", "path", b.path, "error", err)
		case <-b.done:
			return
		}
	}
}

// Close stops the file watch, if one was started.
func (b *FileBackend) Close() error {
	if b.watcher == nil {
		return nil
	}
	close(b.done)
	return b.watcher.Close()
}
