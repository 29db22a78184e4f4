package controls

import (
	"encoding/json"
	"os"
	"sort"
)

// Manifest is the normalized, flat view of a controls.json document:
// for every check id, the set of accreditations it satisfies.
type Manifest struct {
	// byCheck maps a check id to its accreditation set.
	byCheck map[string]map[string]bool
}

// Load reads and normalizes a controls manifest file. Both accepted
// shapes (flat list, or a nested group/subgroup object) are reduced to
// the same flat accreditation set per check id.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewManifestError(path, err)
	}
	return Parse(path, data)
}

// Parse normalizes raw controls manifest bytes. path is used only for
// error messages.
func Parse(path string, data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewManifestError(path, err)
	}

	m := &Manifest{byCheck: map[string]map[string]bool{}}
	for checkID, value := range raw {
		accrs, err := flattenAccreditations(value)
		if err != nil {
			return nil, NewManifestError(path, err)
		}
		set := map[string]bool{}
		for _, a := range accrs {
			set[a] = true
		}
		m.byCheck[checkID] = set
	}
	return m, nil
}

// flattenAccreditations normalizes one check id's manifest value,
// which is either a flat list of accreditation strings or an
// arbitrarily nested group/subgroup object whose leaves are such
// lists. Either shape yields the same union of accreditation names.
func flattenAccreditations(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var group map[string]json.RawMessage
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, v := range group {
		nested, err := flattenAccreditations(v)
		if err != nil {
			return nil, err
		}
		for _, a := range nested {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// GetAccreditations returns the set of accreditations a check id
// satisfies, sorted alphabetically. Unknown check ids yield an empty
// slice, not an error: the manifest is not required to mention every
// check the tree defines.
func (m *Manifest) GetAccreditations(checkID string) []string {
	set := m.byCheck[checkID]
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// IsTestIncluded reports whether checkID satisfies at least one of the
// requested accreditations. A nil or empty accrs matches every check
// the manifest lists with at least one accreditation (an unscoped run).
func (m *Manifest) IsTestIncluded(checkID string, accrs []string) bool {
	set, ok := m.byCheck[checkID]
	if !ok {
		return false
	}
	if len(accrs) == 0 {
		return len(set) > 0
	}
	for _, a := range accrs {
		if set[a] {
			return true
		}
	}
	return false
}

// AccredChecks returns, for every accreditation named anywhere in the
// manifest, the set of check ids that satisfy it.
func (m *Manifest) AccredChecks() map[string][]string {
	out := map[string]map[string]bool{}
	for checkID, accrs := range m.byCheck {
		for a := range accrs {
			if out[a] == nil {
				out[a] = map[string]bool{}
			}
			out[a][checkID] = true
		}
	}

	flat := make(map[string][]string, len(out))
	for a, checks := range out {
		ids := make([]string, 0, len(checks))
		for id := range checks {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		flat[a] = ids
	}
	return flat
}

// CheckIDs returns every check id the manifest mentions, sorted.
func (m *Manifest) CheckIDs() []string {
	out := make([]string, 0, len(m.byCheck))
	for id := range m.byCheck {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
