package locker

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// QueryCacheSchemaVersion is the current querycache schema version.
const QueryCacheSchemaVersion = 1

// queryCacheSchema creates the evidence_index secondary-index table: one
// row per evidence name (not per partition), rebuilt from the working
// tree's index.json files on open and kept current incrementally as
// AddEvidence runs, so GetAbandonedEvidences/GetEmptyEvidences don't
// re-walk and re-parse every index.json on every call.
const queryCacheSchema = `
CREATE TABLE IF NOT EXISTS evidence_index (
	path        TEXT PRIMARY KEY,
	dir         TEXT NOT NULL,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	category    TEXT NOT NULL,
	agent_name  TEXT,
	last_update TEXT NOT NULL,
	ttl_seconds INTEGER NOT NULL,
	empty       BOOLEAN NOT NULL DEFAULT 0,
	partitioned BOOLEAN NOT NULL DEFAULT 0,
	digest      TEXT,
	checks      TEXT
);

CREATE INDEX IF NOT EXISTS idx_evidence_index_dir ON evidence_index(dir);
CREATE INDEX IF NOT EXISTS idx_evidence_index_last_update ON evidence_index(last_update);
CREATE INDEX IF NOT EXISTS idx_evidence_index_empty ON evidence_index(empty);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// QueryCache is a SQLite-backed secondary index mirroring every locker
// index.json entry into one flat table, so abandoned/empty-evidence
// lookups are a single query instead of a directory walk plus N
// index.json parses.
type QueryCache struct {
	db *sql.DB
}

// OpenQueryCache opens (creating if absent) the SQLite database at path
// and applies the schema.
func OpenQueryCache(path string) (*QueryCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open query cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway.

	if _, err := db.Exec(queryCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply query cache schema: %w", err)
	}
	if _, err := db.Exec(insertSchemaVersion, QueryCacheSchemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("record query cache schema version: %w", err)
	}

	return &QueryCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *QueryCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// cacheRow is one evidence_index table row.
type cacheRow struct {
	Path        string
	Dir         string
	Name        string
	Kind        string
	Category    string
	AgentName   string
	LastUpdate  string
	TTLSeconds  int
	Empty       bool
	Partitioned bool
	Digest      string
	Checks      []string
}

func rowFromEntry(dir, name string, entry *IndexEntry) cacheRow {
	return cacheRow{
		Path:        dirPathJoin(dir, name),
		Dir:         dir,
		Name:        name,
		AgentName:   entry.AgentName,
		LastUpdate:  entry.LastUpdate,
		TTLSeconds:  entry.TTL,
		Empty:       entry.Empty,
		Partitioned: len(entry.PartitionFields) > 0,
		Digest:      entry.Digest,
		Checks:      entry.Checks,
	}
}

func dirPathJoin(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Rebuild replaces the entire cache contents with rows derived from
// indexes (dir -> parsed index.json), as produced by Locker.walkIndexes.
func (c *QueryCache) Rebuild(indexes map[string]index) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM evidence_index`); err != nil {
		return fmt.Errorf("clear query cache: %w", err)
	}

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	dirs := make([]string, 0, len(indexes))
	for dir := range indexes {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		idx := indexes[dir]
		for _, name := range sortedNames(idx) {
			row := rowFromEntry(dir, name, idx[name])
			if err := execRow(stmt, row); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

const upsertSQL = `
INSERT INTO evidence_index
	(path, dir, name, kind, category, agent_name, last_update, ttl_seconds, empty, partitioned, digest, checks)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	last_update = excluded.last_update,
	ttl_seconds = excluded.ttl_seconds,
	empty = excluded.empty,
	partitioned = excluded.partitioned,
	digest = excluded.digest,
	checks = excluded.checks;
`

func execRow(stmt *sql.Stmt, row cacheRow) error {
	checksJSON, err := json.Marshal(row.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks for %s: %w", row.Path, err)
	}
	kind, category := splitDirKindCategory(row.Dir)
	_, err = stmt.Exec(
		row.Path, row.Dir, row.Name, kind, category, row.AgentName,
		row.LastUpdate, row.TTLSeconds, row.Empty, row.Partitioned, row.Digest, string(checksJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", row.Path, err)
	}
	return nil
}

// splitDirKindCategory extracts the trailing kind/category components
// from a (possibly agent-scoped) evidence directory path.
func splitDirKindCategory(dir string) (kind, category string) {
	agentName, k, cat, _, err := pathParts(dir + "/_")
	if err != nil {
		return "", ""
	}
	_ = agentName
	return string(k), cat
}

// Upsert incrementally updates one entry's row, called from
// Locker.index after a successful AddEvidence write.
func (c *QueryCache) Upsert(dir, name string, entry *IndexEntry) error {
	stmt, err := c.db.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	return execRow(stmt, rowFromEntry(dir, name, entry))
}

// Abandoned returns evidence paths whose last_update+ttl+tolerance has
// already elapsed, excluding any path present in forced.
func (c *QueryCache) Abandoned(now time.Time, tolerance time.Duration, forced map[string]bool) ([]string, error) {
	rows, err := c.db.Query(`SELECT path, last_update, ttl_seconds FROM evidence_index`)
	if err != nil {
		return nil, fmt.Errorf("query evidence_index: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p, lastUpdate string
		var ttl int
		if err := rows.Scan(&p, &lastUpdate, &ttl); err != nil {
			return nil, err
		}
		if forced[p] {
			continue
		}
		lu, err := time.Parse(isoLayout, lastUpdate)
		if err != nil {
			continue
		}
		if now.Sub(lu) > time.Duration(ttl)*time.Second+tolerance {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, rows.Err()
}

// Empty returns every evidence path whose cached entry is flagged empty.
func (c *QueryCache) Empty() ([]string, error) {
	rows, err := c.db.Query(`SELECT path FROM evidence_index WHERE empty = 1 ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query evidence_index: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
