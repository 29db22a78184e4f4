package locker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportEntry pairs a report evidence path with its index metadata, for
// report-builder queries that need to know which checks and source
// evidence fed a given report.
type ReportEntry struct {
	Path  string
	Entry IndexEntry
}

// walkIndexes finds every index.json under the locker's working tree
// and returns, for each, its containing locker-relative directory and
// parsed contents.
func (l *Locker) walkIndexes() (map[string]index, error) {
	out := map[string]index{}
	err := filepath.WalkDir(l.localPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "index.json" {
			return nil
		}
		dir := filepath.Dir(p)
		rel, err := filepath.Rel(l.localPath, dir)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		idx, err := readIndex(dir)
		if err != nil {
			return err
		}
		out[rel] = idx
		return nil
	})
	return out, err
}

// GetAbandonedEvidences returns the locker-relative paths of every
// evidence entry whose TTL (plus tolerance) has already elapsed and
// which is not on the forced-evidence list. These are candidates for
// removal: nothing in the current run refreshed them.
func (l *Locker) GetAbandonedEvidences() ([]string, error) {
	indexMu.Lock()
	defer indexMu.Unlock()

	if l.cache != nil {
		return l.cache.Abandoned(time.Now(), l.ttlTolerance, l.forcedEvidence)
	}

	indexes, err := l.walkIndexes()
	if err != nil {
		return nil, err
	}

	var out []string
	now := time.Now()
	for dir, idx := range indexes {
		for _, name := range sortedNames(idx) {
			entry := idx[name]
			evPath := filepath.ToSlash(filepath.Join(dir, name))
			if l.forcedEvidence[evPath] {
				continue
			}
			lastUpdate, err := time.Parse(isoLayout, entry.LastUpdate)
			if err != nil {
				continue
			}
			ttl := time.Duration(entry.TTL) * time.Second
			if now.Sub(lastUpdate) > ttl+l.ttlTolerance {
				out = append(out, evPath)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetEmptyEvidences returns the locker-relative paths of every evidence
// entry flagged empty at write time.
func (l *Locker) GetEmptyEvidences() ([]string, error) {
	indexMu.Lock()
	defer indexMu.Unlock()

	if l.cache != nil {
		return l.cache.Empty()
	}

	indexes, err := l.walkIndexes()
	if err != nil {
		return nil, err
	}

	var out []string
	for dir, idx := range indexes {
		for _, name := range sortedNames(idx) {
			if idx[name].Empty {
				out = append(out, filepath.ToSlash(filepath.Join(dir, name)))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetLargeFiles returns the locker-relative paths of every working-tree
// file outside .git (tracked or not) whose size exceeds the locker's large-file
// threshold, for flagging before a commit that would bloat the
// repository.
func (l *Locker) GetLargeFiles() ([]string, error) {
	var out []string
	err := filepath.WalkDir(l.localPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > l.largeFileThreshold {
			rel, err := filepath.Rel(l.localPath, p)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// GetReportsMetadata returns every reports/* index entry, for building
// a consolidated view of check outcomes across report artifacts.
func (l *Locker) GetReportsMetadata() ([]ReportEntry, error) {
	indexMu.Lock()
	defer indexMu.Unlock()

	indexes, err := l.walkIndexes()
	if err != nil {
		return nil, err
	}

	var out []ReportEntry
	for dir, idx := range indexes {
		if !isReportsDir(dir) {
			continue
		}
		for _, name := range sortedNames(idx) {
			out = append(out, ReportEntry{
				Path:  filepath.ToSlash(filepath.Join(dir, name)),
				Entry: *idx[name],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func isReportsDir(dir string) bool {
	slash := filepath.ToSlash(dir)
	return slash == "reports" || strings.HasPrefix(slash, "reports/") ||
		strings.Contains(slash, "/reports/")
}

// GetLatestCommit is an alias for CurrentCommit, named to match the
// locker's other Get*-style query methods.
func (l *Locker) GetLatestCommit() (*CommitInfo, error) {
	return l.CurrentCommit()
}
