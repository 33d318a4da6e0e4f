// Package attr implements the typed attribute space used for variant matching: immutable attribute containers plus a
// schema carrying per-key compatibility and disambiguation rules.
package attr

import (
	"sort"
	"strings"
)

// Attributes is an immutable string-keyed attribute container. The zero value is the empty attribute set.
type Attributes struct {
	m map[string]string
}

func New(m map[string]string) Attributes {
	if len(m) == 0 {
		return Attributes{}
	}
	copied := make(map[string]string, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return Attributes{m: copied}
}

func (a Attributes) Get(key string) (string, bool) {
	v, ok := a.m[key]
	return v, ok
}

func (a Attributes) Len() int { return len(a.m) }

func (a Attributes) IsEmpty() bool { return len(a.m) == 0 }

// Keys returns the attribute keys in sorted order, so that everything derived from an attribute set (scores, error
// reports, disambiguation) is independent of map iteration order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Overlay returns a copy of a with all entries of b applied on top.
func (a Attributes) Overlay(b Attributes) Attributes {
	if b.IsEmpty() {
		return a
	}
	if a.IsEmpty() {
		return b
	}
	merged := make(map[string]string, len(a.m)+len(b.m))
	for k, v := range a.m {
		merged[k] = v
	}
	for k, v := range b.m {
		merged[k] = v
	}
	return Attributes{m: merged}
}

func (a Attributes) Equal(b Attributes) bool {
	if len(a.m) != len(b.m) {
		return false
	}
	for k, v := range a.m {
		if bv, ok := b.m[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func (a Attributes) String() string {
	if a.IsEmpty() {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range a.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(a.m[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// CompatRule decides whether a candidate value can satisfy a requested value for one key.
type CompatRule func(requested, candidate string) bool

// Schema carries the per-key matching rules. It is mutated only during setup; after that it is read-only and safe to
// share across goroutines without locking.
type Schema struct {
	compat map[string]CompatRule
	prefer map[string][]string
}

func NewSchema() *Schema {
	return &Schema{
		compat: make(map[string]CompatRule),
		prefer: make(map[string][]string),
	}
}

// SetCompatibilityRule installs the compatibility rule for a key. Keys without a rule match by equality.
func (s *Schema) SetCompatibilityRule(key string, rule CompatRule) {
	s.compat[key] = rule
}

// SetDisambiguationOrder declares the preference order for a key's values, used to break ties between equally
// compatible candidates. Earlier values are preferred.
func (s *Schema) SetDisambiguationOrder(key string, values ...string) {
	s.prefer[key] = values
}

// Compatible reports whether candidate satisfies requested for the given key.
func (s *Schema) Compatible(key, requested, candidate string) bool {
	if requested == candidate {
		return true
	}
	if rule, ok := s.compat[key]; ok {
		return rule(requested, candidate)
	}
	return false
}

// Disambiguate picks the preferred value among candidates for the given key, or "" if the schema declares no
// preference that separates them.
func (s *Schema) Disambiguate(key string, candidates []string) string {
	for _, preferred := range s.prefer[key] {
		for _, c := range candidates {
			if c == preferred {
				return preferred
			}
		}
	}
	return ""
}
