package locker

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/auditree/auditree-go/pkg/evidence"
)

// sortedPartitionHashes returns partitions' keys in sorted order so
// tombstone generation and file removal are deterministic.
func sortedPartitionHashes(partitions map[string][]interface{}) []string {
	hashes := make([]string, 0, len(partitions))
	for hash := range partitions {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

// AddEvidence writes ev's content to disk and, unless ev is tmp
// evidence, records or updates its index entry. checks and
// evidenceUsed, when non-empty, are attached to the index entry so
// report generation can trace which checks produced this evidence and
// which upstream evidence a derived/report artifact consumed.
func (l *Locker) AddEvidence(ev *evidence.Evidence, checks []string, evidenceUsed []EvidenceUsedRef) error {
	if ev.Content == nil {
		return evidence.NewMisconfigurationError(ev.Path(l.cfg), fmt.Errorf("evidence has no content"))
	}

	dirPath := ev.DirPath()
	localDirPath := localDir(l, dirPath)
	if err := os.MkdirAll(localDirPath, 0o755); err != nil {
		return fmt.Errorf("create evidence directory %s: %w", dirPath, err)
	}

	name := ev.Name(l.cfg)
	ext := ev.Extension(l.cfg)

	var partitionKeys [][]interface{}
	if ev.IsPartitioned() {
		keys, err := ev.PartitionKeys()
		if err != nil {
			return fmt.Errorf("compute partition keys for %s: %w", ev.Path(l.cfg), err)
		}
		partitionKeys = keys
		for _, key := range keys {
			hash := evidence.PartitionHash(key)
			content, err := ev.GetPartition(key)
			if err != nil {
				return fmt.Errorf("extract partition %s: %w", hash, err)
			}
			fileName := hash
			if ext != "" {
				fileName += "." + ext
			}
			if err := os.WriteFile(filepath.Join(localDirPath, fileName), content, 0o644); err != nil {
				return fmt.Errorf("write partition %s: %w", fileName, err)
			}
			l.touch(path.Join(dirPath, fileName))
		}
	} else {
		if err := os.WriteFile(filepath.Join(localDirPath, name), ev.Content, 0o644); err != nil {
			return fmt.Errorf("write evidence %s: %w", name, err)
		}
		l.touch(path.Join(dirPath, name))
	}

	if ev.Kind == evidence.KindTmp {
		return nil
	}

	return l.index(dirPath, localDirPath, name, ext, ev, partitionKeys, checks, evidenceUsed)
}

// removeStaleFile deletes a file that a partition transition has
// orphaned, both from disk and from the next commit, so a tombstoned
// entry never leaves a dead blob lying around under the category
// directory.
func (l *Locker) removeStaleFile(dirPath, localDirPath, fileName string) error {
	full := filepath.Join(localDirPath, fileName)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale evidence file %s: %w", fileName, err)
	}
	l.touchRemoved(path.Join(dirPath, fileName))
	return nil
}

// index updates dirPath's index.json for name, applying the
// partitioned<->unpartitioned transition/tombstone rules.
func (l *Locker) index(
	dirPath, localDirPath, name, ext string,
	ev *evidence.Evidence,
	partitionKeys [][]interface{},
	checks []string,
	evidenceUsed []EvidenceUsedRef,
) error {
	indexMu.Lock()
	defer indexMu.Unlock()

	idx, err := readIndex(localDirPath)
	if err != nil {
		return err
	}
	old := idx[name]

	entry := &IndexEntry{
		LastUpdate:      l.runTime.Format(isoLayout),
		TTL:             int(ev.TTL.Seconds()),
		Description:     ev.Description,
		AgentName:       ev.Agent,
		Digest:          ev.Digest,
		Signature:       ev.Signature,
		BinaryContent:   ev.BinaryContent,
		FilteredContent: ev.FilteredContent,
		Empty:           ev.IsEmpty(l.cfg),
		Checks:          checks,
		EvidenceUsed:    evidenceUsed,
	}

	tombstones := map[string][]Tombstone{}
	if old != nil {
		for k, v := range old.Tombstones {
			tombstones[k] = v
		}
	}

	wasPartitioned := old != nil && len(old.PartitionFields) > 0

	if ev.IsPartitioned() {
		entry.PartitionFields = ev.PartitionFields
		entry.PartitionRoot = ev.PartitionRoot
		entry.Partitions = map[string][]interface{}{}
		for _, key := range partitionKeys {
			entry.Partitions[evidence.PartitionHash(key)] = key
		}

		switch {
		case old == nil:
			// First write, nothing to tombstone.
		case !wasPartitioned:
			tombstones[name] = append(tombstones[name], Tombstone{
				EOL:        l.runTime.Format(isoLayout),
				LastUpdate: old.LastUpdate,
				Reason:     "Evidence is partitioned",
			})
			if err := l.removeStaleFile(dirPath, localDirPath, name); err != nil {
				return err
			}
		default:
			for _, hash := range sortedPartitionHashes(old.Partitions) {
				if _, stillPresent := entry.Partitions[hash]; stillPresent {
					continue
				}
				key := old.Partitions[hash]
				tombstones[hash] = append(tombstones[hash], Tombstone{
					EOL:             l.runTime.Format(isoLayout),
					LastUpdate:      old.LastUpdate,
					Reason:          "Partition no longer part of evidence",
					PartitionFields: old.PartitionFields,
					PartitionRoot:   old.PartitionRoot,
					PartitionKey:    key,
				})
				fileName := hash
				if ext != "" {
					fileName += "." + ext
				}
				if err := l.removeStaleFile(dirPath, localDirPath, fileName); err != nil {
					return err
				}
			}
		}
	} else if wasPartitioned {
		for _, hash := range sortedPartitionHashes(old.Partitions) {
			key := old.Partitions[hash]
			tombstones[hash] = append(tombstones[hash], Tombstone{
				EOL:             l.runTime.Format(isoLayout),
				LastUpdate:      old.LastUpdate,
				Reason:          "Evidence no longer partitioned",
				PartitionFields: old.PartitionFields,
				PartitionRoot:   old.PartitionRoot,
				PartitionKey:    key,
			})
			fileName := hash
			if ext != "" {
				fileName += "." + ext
			}
			if err := l.removeStaleFile(dirPath, localDirPath, fileName); err != nil {
				return err
			}
		}
	}

	if len(tombstones) > 0 {
		entry.Tombstones = tombstones
	}

	idx[name] = entry
	if err := writeIndex(localDirPath, idx); err != nil {
		return err
	}
	l.touch(path.Join(dirPath, "index.json"))

	if l.cache != nil {
		if err := l.cache.Upsert(dirPath, name, entry); err != nil {
			return fmt.Errorf("update query cache for %s: %w", path.Join(dirPath, name), err)
		}
	}
	return nil
}
