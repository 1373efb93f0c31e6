package reconcile

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/covid19datasets/sitrep/pkg/constants"
)

// NameSet is a sorted set of entity names.
type NameSet []string

// NewNameSet builds a set from names, dropping duplicates.
func NewNameSet(names ...string) NameSet {
	seen := make(map[string]struct{}, len(names))
	out := make(NameSet, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the set has no members.
func (s NameSet) Empty() bool {
	return len(s) == 0
}

// Contains reports whether name is a member.
func (s NameSet) Contains(name string) bool {
	i := sort.SearchStrings(s, name)
	return i < len(s) && s[i] == name
}

// Minus returns the members of s not in o.
func (s NameSet) Minus(o NameSet) NameSet {
	out := NameSet{}
	for _, n := range s {
		if !o.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}

// String renders the set as a comma separated list, or "none" when empty.
func (s NameSet) String() string {
	if s.Empty() {
		return constants.NoneSentinel
	}
	return strings.Join(s, ", ")
}

// MarshalJSON renders an empty set as "none".
func (s NameSet) MarshalJSON() ([]byte, error) {
	if s.Empty() {
		return []byte(`"` + constants.NoneSentinel + `"`), nil
	}
	return json.Marshal([]string(s))
}

// MarshalYAML renders an empty set as "none".
func (s NameSet) MarshalYAML() (any, error) {
	if s.Empty() {
		return constants.NoneSentinel, nil
	}
	return []string(s), nil
}
