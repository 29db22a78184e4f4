package locker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	gopath "path"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/auditree/auditree-go/pkg/evidence"
)

// contentReader abstracts reading an index.json and the files it
// references, so GetEvidence (current working tree) and
// GetHistoricalEvidence (a past commit's tree) share one resolution
// path.
type contentReader interface {
	readIndex(dirPath string) (index, error)
	readFile(relPath string) ([]byte, error)
}

type workingTreeReader struct{ l *Locker }

func (r workingTreeReader) readIndex(dirPath string) (index, error) {
	return readIndex(localDir(r.l, dirPath))
}

func (r workingTreeReader) readFile(relPath string) ([]byte, error) {
	return os.ReadFile(localDir(r.l, relPath))
}

type commitTreeReader struct{ tree *object.Tree }

func (r commitTreeReader) readIndex(dirPath string) (index, error) {
	raw, err := r.readFile(gopath.Join(dirPath, "index.json"))
	if err != nil {
		return index{}, nil
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", dirPath, err)
	}
	if idx == nil {
		idx = index{}
	}
	return idx, nil
}

func (r commitTreeReader) readFile(relPath string) ([]byte, error) {
	f, err := r.tree.File(relPath)
	if err != nil {
		return nil, err
	}
	rc, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// GetEvidence resolves an evidence path against this locker's index,
// enforcing TTL staleness unless ignoreTTL is set (a path on the
// forced-evidence list is then always stale) and signature verification (unless configured
// to ignore signatures). A miss is retried against each extra locker,
// in order, before the original error is returned.
func (l *Locker) GetEvidence(evPath string, ignoreTTL bool) (*evidence.Evidence, error) {
	indexMu.Lock()
	ev, err := l.resolve(workingTreeReader{l}, evPath, ignoreTTL)
	indexMu.Unlock()
	if err == nil {
		return ev, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	for _, extra := range l.extra {
		if ev, extraErr := extra.GetEvidence(evPath, ignoreTTL); extraErr == nil {
			return ev, nil
		}
	}
	return nil, err
}

// GetHistoricalEvidence resolves evPath as it existed in the most
// recent commit at or before until (an ISO-8601 date "2006-01-02"),
// walking this locker's commit log backward from HEAD. A miss (no
// commit at or before until, or the path absent from that commit) is
// retried against each extra locker before the original error is
// returned.
func (l *Locker) GetHistoricalEvidence(evPath, until string) (*evidence.Evidence, error) {
	cutoff, err := time.Parse("2006-01-02", until)
	if err != nil {
		return nil, fmt.Errorf("parse historical cutoff %q: %w", until, err)
	}
	cutoff = cutoff.AddDate(0, 0, 1) // until is inclusive of the whole day.

	indexMu.Lock()
	tree, findErr := l.findTreeAtOrBefore(cutoff)
	var ev *evidence.Evidence
	if findErr == nil {
		ev, err = l.resolve(commitTreeReader{tree}, evPath, true)
	} else {
		err = evidence.NewHistoricalNotFoundError(evPath, until)
	}
	indexMu.Unlock()

	if err == nil {
		return ev, nil
	}
	for _, extra := range l.extra {
		if ev, extraErr := extra.GetHistoricalEvidence(evPath, until); extraErr == nil {
			return ev, nil
		}
	}
	return nil, err
}

func (l *Locker) findTreeAtOrBefore(cutoff time.Time) (*object.Tree, error) {
	ref, err := l.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	iter, err := l.repo.Log(&gogit.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("walk commit log: %w", err)
	}
	defer iter.Close()

	var found *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if c.Author.When.Before(cutoff) {
			found = c
			return errStopIteration
		}
		return nil
	})
	if err != nil && err != errStopIteration {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("no commit at or before cutoff")
	}
	return found.Tree()
}

var errStopIteration = errors.New("stop")

func isNotFound(err error) bool {
	var nf *evidence.NotFoundError
	var hnf *evidence.HistoricalNotFoundError
	return errors.As(err, &nf) || errors.As(err, &hnf)
}

func (l *Locker) resolve(reader contentReader, evPath string, ignoreTTL bool) (*evidence.Evidence, error) {
	agentName, kind, category, name, err := pathParts(evPath)
	if err != nil {
		return nil, evidence.NewNotFoundError(evPath, err)
	}

	dirPath := dirFor(agentName, kind, category)

	idx, err := reader.readIndex(dirPath)
	if err != nil {
		return nil, evidence.NewNotFoundError(evPath, err)
	}

	entry, ok := idx[name]
	if !ok {
		return nil, evidence.NewNotFoundError(evPath, nil)
	}

	if !ignoreTTL {
		if l.forcedEvidence[evPath] {
			return nil, evidence.NewStaleError(evPath, entry.LastUpdate, entry.TTL)
		}
		lastUpdate, parseErr := time.Parse(isoLayout, entry.LastUpdate)
		if parseErr == nil {
			ttl := time.Duration(entry.TTL) * time.Second
			if time.Since(lastUpdate) > ttl+l.ttlTolerance {
				return nil, evidence.NewStaleError(evPath, entry.LastUpdate, entry.TTL)
			}
		}
	}

	ev := evidence.New(kind, category, name)
	ev.Agent = agentName
	ev.TTL = time.Duration(entry.TTL) * time.Second
	ev.Description = entry.Description
	ev.Digest = entry.Digest
	ev.Signature = entry.Signature
	ev.BinaryContent = entry.BinaryContent
	ev.FilteredContent = entry.FilteredContent
	ev.PartitionFields = entry.PartitionFields
	ev.PartitionRoot = entry.PartitionRoot

	ext := strings.TrimPrefix(gopath.Ext(name), ".")

	var content []byte
	if len(entry.PartitionFields) > 0 {
		content, err = reconstructPartitioned(reader, dirPath, entry, ext)
	} else {
		content, err = reader.readFile(gopath.Join(dirPath, name))
	}
	if err != nil {
		return nil, evidence.NewNotFoundError(evPath, err)
	}
	ev.Content = content

	if entry.Signature != "" && !l.ignoreSignatures {
		if l.agent == nil || !l.agent.Verifiable() || !l.agent.Verify(content, entry.Signature) {
			return nil, evidence.NewUnverifiedError(evPath, entry.AgentName)
		}
	}

	return ev, nil
}

// reconstructPartitioned reassembles a partitioned evidence file's full
// JSON content by merging every partition file's array slice back
// together at the evidence's partition root.
func reconstructPartitioned(reader contentReader, dirPath string, entry *IndexEntry, ext string) ([]byte, error) {
	hashes := make([]string, 0, len(entry.Partitions))
	for h := range entry.Partitions {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var base interface{}
	var items []interface{}
	for _, hash := range hashes {
		fileName := hash
		if ext != "" {
			fileName += "." + ext
		}
		raw, err := reader.readFile(gopath.Join(dirPath, fileName))
		if err != nil {
			return nil, fmt.Errorf("read partition %s: %w", fileName, err)
		}
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse partition %s: %w", fileName, err)
		}
		part, err := extractAt(doc, entry.PartitionRoot)
		if err != nil {
			return nil, err
		}
		items = append(items, part...)
		if base == nil {
			base = doc
		}
	}

	merged, err := injectAt(base, entry.PartitionRoot, items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func extractAt(doc interface{}, root string) ([]interface{}, error) {
	if root == "" {
		items, ok := doc.([]interface{})
		if !ok {
			return nil, fmt.Errorf("partitioned content is not a JSON array")
		}
		return items, nil
	}
	cur := doc
	for _, field := range strings.Split(root, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("partition root %q not found", root)
		}
		cur = m[field]
	}
	items, ok := cur.([]interface{})
	if !ok {
		return nil, fmt.Errorf("partition root %q is not a JSON array", root)
	}
	return items, nil
}

func injectAt(base interface{}, root string, items []interface{}) (interface{}, error) {
	if root == "" {
		return items, nil
	}
	m, ok := base.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("partition root %q requires a JSON object document", root)
	}
	parts := strings.Split(root, ".")
	cur := m
	for _, field := range parts[:len(parts)-1] {
		next, ok := cur[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("partition root %q not found", root)
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = items
	return m, nil
}
