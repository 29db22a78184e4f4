package evidence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/auditree/auditree-go/pkg/config"
)

// Kind identifies the evidence root directory and its default TTL.
type Kind string

const (
	KindRaw      Kind = "raw"
	KindDerived  Kind = "derived"
	KindReport   Kind = "reports"
	KindTmp      Kind = "tmp"
	KindExternal Kind = "external"
)

const (
	day  = 24 * time.Hour
	year = 365 * day
)

// defaultTTL returns the default time-to-live for a given kind.
func defaultTTL(k Kind) time.Duration {
	if k == KindExternal {
		return year
	}
	return day
}

// Signer signs and verifies evidence content on behalf of a named agent.
// It is satisfied by pkg/agent.Agent; evidence depends only on this
// interface to avoid importing the agent package directly.
type Signer interface {
	// Name returns the signer's identity, or "" if unnamed.
	Name() string
	// Signable reports whether the signer holds a private key.
	Signable() bool
	// HashAndSign returns a hex SHA-256 digest and a base64 PSS-SHA256
	// signature over data.
	HashAndSign(data []byte) (digest string, signature string, err error)
}

// Evidence is a single piece of cached content plus the metadata needed
// to locate, sign, and (if raw) partition it.
type Evidence struct {
	Kind        Kind
	Category    string
	NameTpl     string // may contain {{dot.path}} config placeholders
	TTL         time.Duration
	Description string
	Agent       string // owning agent, "" for unscoped evidence

	Content         []byte
	BinaryContent   bool
	FilteredContent bool

	Digest    string
	Signature string

	// Partitioning (KindRaw only).
	PartitionFields []string
	PartitionRoot   string
}

// New constructs an Evidence with the kind's default TTL. Callers may
// override TTL directly after construction.
func New(kind Kind, category, name string) *Evidence {
	return &Evidence{
		Kind:     kind,
		Category: category,
		NameTpl:  name,
		TTL:      defaultTTL(kind),
	}
}

// Name resolves the evidence's file basename, substituting any
// "{{dot.path}}" placeholders against cfg.
func (e *Evidence) Name(cfg *config.Config) string {
	return substituteConfig(e.NameTpl, cfg)
}

// RootDir returns the kind's root directory, prefixed with
// "agents/<agent>" when the evidence is agent-scoped.
func (e *Evidence) RootDir() string {
	if e.Agent != "" {
		return path.Join("agents", e.Agent, string(e.Kind))
	}
	return string(e.Kind)
}

// DirPath returns RootDir/Category.
func (e *Evidence) DirPath() string {
	return path.Join(e.RootDir(), e.Category)
}

// Path returns the full locker-relative path for this evidence.
func (e *Evidence) Path(cfg *config.Config) string {
	return path.Join(e.DirPath(), e.Name(cfg))
}

// Extension returns the file extension (without the leading dot) of the
// evidence's resolved name.
func (e *Evidence) Extension(cfg *config.Config) string {
	name := e.Name(cfg)
	ext := path.Ext(name)
	return strings.TrimPrefix(ext, ".")
}

// IsPartitioned reports whether this evidence is raw and carries
// partition fields.
func (e *Evidence) IsPartitioned() bool {
	return e.Kind == KindRaw && len(e.PartitionFields) > 0
}

// SetContent stores content, canonicalizing it first if the resolved
// name has a .json extension, then (if sign is true and signer can
// sign) computing a digest and signature over the canonicalized bytes.
// A nil content is permitted and is neither canonicalized nor signed.
func (e *Evidence) SetContent(cfg *config.Config, content []byte, sign bool, signer Signer) error {
	if content == nil {
		e.Content = nil
		return nil
	}

	if e.Extension(cfg) == "json" && !e.BinaryContent {
		canon, err := canonicalizeJSON(content)
		if err != nil {
			return fmt.Errorf("canonicalize %s: %w", e.Path(cfg), err)
		}
		content = canon
	}
	e.Content = content

	if sign && signer != nil && signer.Signable() {
		digest, signature, err := signer.HashAndSign(e.Content)
		if err != nil {
			return fmt.Errorf("sign %s: %w", e.Path(cfg), err)
		}
		e.Digest = digest
		e.Signature = signature
		e.Agent = signer.Name()
	}
	return nil
}

// IsEmpty reports whether the content is missing, whitespace-only, or
// (for JSON content) parses to an empty container. The literal JSON
// value 0 is not considered empty.
func (e *Evidence) IsEmpty(cfg *config.Config) bool {
	if len(bytes.TrimSpace(e.Content)) == 0 {
		return true
	}
	if e.Extension(cfg) != "json" {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(e.Content, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case nil:
		return true
	default:
		return false
	}
}

// ContentAsJSON parses the content as JSON. It fails if the resolved
// name's extension is not "json".
func (e *Evidence) ContentAsJSON(cfg *config.Config) (interface{}, error) {
	if e.Extension(cfg) != "json" {
		return nil, fmt.Errorf("%s does not have JSON content", e.Name(cfg))
	}
	var v interface{}
	if err := json.Unmarshal(e.Content, &v); err != nil {
		return nil, fmt.Errorf("parse %s as JSON: %w", e.Name(cfg), err)
	}
	return v, nil
}

// ClearSign renders the stable BEGIN/END plaintext block used by
// signature-inspection tooling.
func (e *Evidence) ClearSign() string {
	var lines []string
	if e.Agent != "" {
		lines = append(lines, "-----BEGIN AGENT-----", e.Agent, "-----END AGENT-----")
	}
	if len(e.Content) > 0 {
		lines = append(lines, "-----BEGIN CONTENT-----", string(e.Content), "-----END CONTENT-----")
	}
	if e.Digest != "" {
		lines = append(lines, "-----BEGIN DIGEST-----", e.Digest, "-----END DIGEST-----")
	}
	if e.Signature != "" {
		lines = append(lines, "-----BEGIN SIGNATURE-----", e.Signature, "-----END SIGNATURE-----")
	}
	return strings.Join(lines, "\n")
}

// PartitionKeys returns the set of distinct partition-field tuples
// present in the evidence's JSON content, each projected at
// PartitionRoot (or the document root, if unset). Order is stable
// within a call but otherwise implementation-defined.
func (e *Evidence) PartitionKeys() ([][]interface{}, error) {
	if !e.IsPartitioned() {
		return nil, nil
	}

	var doc interface{}
	if err := json.Unmarshal(e.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse partitioned content: %w", err)
	}

	root := doc
	if e.PartitionRoot != "" {
		v, err := parseDotKey(doc, e.PartitionRoot)
		if err != nil {
			return nil, err
		}
		root = v
	}

	items, ok := root.([]interface{})
	if !ok {
		return nil, fmt.Errorf("partition root %q is not a JSON array", e.PartitionRoot)
	}

	seen := map[string][]interface{}{}
	var order []string
	for _, item := range items {
		key := make([]interface{}, len(e.PartitionFields))
		for i, field := range e.PartitionFields {
			v, _ := parseDotKey(item, field) // missing field resolves to nil
			key[i] = v
		}
		raw, _ := json.Marshal(key)
		k := string(raw)
		if _, exists := seen[k]; !exists {
			seen[k] = key
			order = append(order, k)
		}
	}

	sort.Strings(order)
	out := make([][]interface{}, 0, len(order))
	for _, k := range order {
		out = append(out, seen[k])
	}
	return out, nil
}

// GetPartition returns a JSON document containing only the subset of
// the partition root whose field tuple equals key, with surrounding
// structure preserved.
func (e *Evidence) GetPartition(key []interface{}) ([]byte, error) {
	var doc interface{}
	if err := json.Unmarshal(e.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse partitioned content: %w", err)
	}

	if e.PartitionRoot == "" {
		filtered, err := e.filterByKey(doc, key)
		if err != nil {
			return nil, err
		}
		return canonicalizeJSON(mustMarshal(filtered))
	}

	m, ok := doc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("partition root %q requires a JSON object document", e.PartitionRoot)
	}
	parts := strings.Split(e.PartitionRoot, ".")
	cur := m
	for _, field := range parts[:len(parts)-1] {
		next, ok := cur[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("partition root %q not found", e.PartitionRoot)
		}
		cur = next
	}
	last := parts[len(parts)-1]
	filtered, err := e.filterByKey(cur[last], key)
	if err != nil {
		return nil, err
	}
	cur[last] = filtered
	return canonicalizeJSON(mustMarshal(doc))
}

func (e *Evidence) filterByKey(data interface{}, key []interface{}) ([]interface{}, error) {
	items, ok := data.([]interface{})
	if !ok {
		return nil, fmt.Errorf("partitioned data is not a JSON array")
	}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		matches := true
		for i, field := range e.PartitionFields {
			v, _ := parseDotKey(item, field)
			if !jsonEqual(v, key[i]) {
				matches = false
				break
			}
		}
		if matches {
			out = append(out, item)
		}
	}
	return out, nil
}

// PartitionHash returns the 10 hex-char SHA-256 hash of a partition key
// tuple, used to name the physical partition file.
func PartitionHash(key []interface{}) string {
	h := sha256.New()
	for _, v := range key {
		h.Write([]byte(fmt.Sprintf("%v", v)))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if len(sum) > 10 {
		return sum[:10]
	}
	return sum
}

// parseDotKey resolves a dot-separated key path through nested JSON
// maps. A missing field resolves to nil rather than an error, per the
// evidence model's partition semantics.
func parseDotKey(data interface{}, dotKey string) (interface{}, error) {
	cur := data
	for _, part := range strings.Split(dotKey, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		cur = m[part]
	}
	return cur, nil
}

func jsonEqual(a, b interface{}) bool {
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return string(ra) == string(rb)
}

func mustMarshal(v interface{}) []byte {
	raw, _ := json.Marshal(v)
	return raw
}

// canonicalizeJSON reformats JSON content to the library's stable
// rendering: 2-space indent, map keys sorted (Go's encoding/json
// already sorts map[string]interface{} keys on marshal).
func canonicalizeJSON(content []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// substituteConfig replaces every "{{dot.path}}" placeholder in s with
// the corresponding configuration value, stringified. Unresolvable
// placeholders are left untouched.
func substituteConfig(s string, cfg *config.Config) string {
	if cfg == nil || !strings.Contains(s, "{{") {
		return s
	}
	var out strings.Builder
	for {
		start := strings.Index(s, "{{")
		if start == -1 {
			out.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			out.WriteString(s)
			break
		}
		end += start
		out.WriteString(s[:start])
		key := strings.TrimSpace(s[start+2 : end])
		val := cfg.Get(key, nil)
		if val != nil {
			fmt.Fprintf(&out, "%v", val)
		} else {
			out.WriteString(s[start : end+2])
		}
		s = s[end+2:]
	}
	return out.String()
}
