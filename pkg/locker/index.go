package locker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Tombstone records that a previously-indexed name or partition hash no
// longer corresponds to a file on disk. Tombstones are appended, never
// removed.
type Tombstone struct {
	EOL             string        `json:"eol"`
	LastUpdate      string        `json:"last_update"`
	Reason          string        `json:"reason"`
	PartitionFields []string      `json:"partition_fields,omitempty"`
	PartitionRoot   string        `json:"partition_root,omitempty"`
	PartitionKey    []interface{} `json:"partition_key,omitempty"`
}

// EvidenceUsedRef pins one piece of evidence a report consumed, by
// commit, so report provenance survives future evidence updates.
type EvidenceUsedRef struct {
	Path        string        `json:"path"`
	Description string        `json:"description,omitempty"`
	LastUpdate  string        `json:"last_update,omitempty"`
	CommitSHA   string        `json:"commit_sha,omitempty"`
	LockerURL   string        `json:"locker_url,omitempty"`
	Partitions  []interface{} `json:"partitions,omitempty"`
}

// IndexEntry is the per-name metadata record stored in a kind/category
// directory's index.json.
type IndexEntry struct {
	LastUpdate      string                   `json:"last_update"`
	TTL             int                      `json:"ttl"`
	Description     string                   `json:"description,omitempty"`
	PartitionFields []string                 `json:"partition_fields,omitempty"`
	PartitionRoot   string                   `json:"partition_root,omitempty"`
	Partitions      map[string][]interface{} `json:"partitions,omitempty"`
	Tombstones      map[string][]Tombstone   `json:"tombstones,omitempty"`
	AgentName       string                   `json:"agent_name,omitempty"`
	Digest          string                   `json:"digest,omitempty"`
	Signature       string                   `json:"signature,omitempty"`
	BinaryContent   bool                     `json:"binary_content,omitempty"`
	FilteredContent bool                     `json:"filtered_content,omitempty"`
	Empty           bool                     `json:"empty,omitempty"`
	Checks          []string                 `json:"checks,omitempty"`
	EvidenceUsed    []EvidenceUsedRef        `json:"evidence_used,omitempty"`
}

// index is the on-disk shape of a kind/category/index.json file: name
// (or, for the rare case metadata is looked up by partition hash,
// partition hash) maps to its entry.
type index map[string]*IndexEntry

func indexPath(dir string) string {
	return filepath.Join(dir, "index.json")
}

func readIndex(dir string) (index, error) {
	raw, err := os.ReadFile(indexPath(dir))
	if os.IsNotExist(err) {
		return index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", indexPath(dir), err)
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", indexPath(dir), err)
	}
	if idx == nil {
		idx = index{}
	}
	return idx, nil
}

func writeIndex(dir string, idx index) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	var buf []byte
	buf, err := marshalIndexSorted(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(indexPath(dir), buf, 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", indexPath(dir), err)
	}
	return nil
}

// marshalIndexSorted renders an index with deterministic 2-space indent
// output. Go already sorts map[string]... keys on marshal, so this is
// a plain indent pass.
func marshalIndexSorted(idx index) ([]byte, error) {
	raw, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf, err = indentJSON(raw)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

func indentJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// sortedNames returns the index's keys in a stable order, for
// deterministic iteration during queries and staging.
func sortedNames(idx index) []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
