// Package excludes implements exclusion rules and the spec algebra used to compute effective exclusions: rules
// declared along a single path are unioned, and alternative paths to the same module are intersected. A module is only
// excluded when every path reaching it agrees on the exclusion.
package excludes

import (
	"sort"
	"strings"

	"github.com/MARRISLHARRIS/gradle/common"
)

// Rule excludes by group and/or module name; an empty field means "any". A rule with a non-empty Artifact only ever
// excludes individual artifacts of matching modules, never whole modules.
type Rule struct {
	Group    string
	Module   string
	Artifact string
}

func (r Rule) matchesModule(id common.ModuleIdentity) bool {
	if r.Group != "" && r.Group != id.Group {
		return false
	}
	if r.Module != "" && r.Module != id.Name {
		return false
	}
	return true
}

func (r Rule) String() string {
	s := orAny(r.Group) + ":" + orAny(r.Module)
	if r.Artifact != "" {
		s += ":" + r.Artifact
	}
	return s
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// ParseRule parses "group:module" or "group:module:artifact", where "*" (or an empty segment) means "any".
func ParseRule(s string) Rule {
	parts := strings.Split(s, ":")
	var r Rule
	if len(parts) > 0 && parts[0] != "*" {
		r.Group = parts[0]
	}
	if len(parts) > 1 && parts[1] != "*" {
		r.Module = parts[1]
	}
	if len(parts) > 2 && parts[2] != "*" {
		r.Artifact = parts[2]
	}
	return r
}

type specKind int

const (
	nothing specKind = iota
	ruleSet
	allOf
	anyOf
)

// Spec is the effective exclusion for a point in the graph. The zero value excludes nothing. Specs are immutable;
// Union and Intersect return new values.
type Spec struct {
	kind  specKind
	rules []Rule
	parts []Spec
}

// Nothing returns the spec that excludes nothing.
func Nothing() Spec { return Spec{} }

// ForRules returns a spec excluding anything matched by at least one of the rules.
func ForRules(rules []Rule) Spec {
	if len(rules) == 0 {
		return Nothing()
	}
	return Spec{kind: ruleSet, rules: rules}
}

// Union combines exclusions encountered along a single path: the result excludes whatever either operand excludes.
func Union(a, b Spec) Spec {
	if a.kind == nothing {
		return b
	}
	if b.kind == nothing {
		return a
	}
	if a.kind == ruleSet && b.kind == ruleSet {
		merged := make([]Rule, 0, len(a.rules)+len(b.rules))
		merged = append(merged, a.rules...)
		merged = append(merged, b.rules...)
		return Spec{kind: ruleSet, rules: dedupeRules(merged)}
	}
	return Spec{kind: anyOf, parts: []Spec{a, b}}
}

// Intersect combines the exclusions of alternative paths reaching the same module: the result excludes only what every
// operand excludes. Intersecting with "nothing" yields "nothing" -- a single path without the exclusion defeats it.
func Intersect(specs ...Spec) Spec {
	if len(specs) == 0 {
		return Nothing()
	}
	parts := make([]Spec, 0, len(specs))
	seen := make(map[string]bool)
	add := func(p Spec) {
		if k := p.String(); !seen[k] {
			seen[k] = true
			parts = append(parts, p)
		}
	}
	for _, s := range specs {
		if s.kind == nothing {
			return Nothing()
		}
		if s.kind == allOf {
			for _, p := range s.parts {
				add(p)
			}
		} else {
			add(s)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return Spec{kind: allOf, parts: parts}
}

// ExcludesModule reports whether the whole module is excluded. Artifact-scoped rules do not contribute.
func (s Spec) ExcludesModule(id common.ModuleIdentity) bool {
	switch s.kind {
	case ruleSet:
		for _, r := range s.rules {
			if r.Artifact == "" && r.matchesModule(id) {
				return true
			}
		}
	case allOf:
		for _, p := range s.parts {
			if !p.ExcludesModule(id) {
				return false
			}
		}
		return true
	case anyOf:
		for _, p := range s.parts {
			if p.ExcludesModule(id) {
				return true
			}
		}
	}
	return false
}

// ExcludesArtifact reports whether the named artifact of the module is excluded. Module-wide rules exclude all of the
// module's artifacts.
func (s Spec) ExcludesArtifact(id common.ModuleIdentity, artifact string) bool {
	switch s.kind {
	case ruleSet:
		for _, r := range s.rules {
			if !r.matchesModule(id) {
				continue
			}
			if r.Artifact == "" || r.Artifact == artifact {
				return true
			}
		}
	case allOf:
		for _, p := range s.parts {
			if !p.ExcludesArtifact(id, artifact) {
				return false
			}
		}
		return true
	case anyOf:
		for _, p := range s.parts {
			if p.ExcludesArtifact(id, artifact) {
				return true
			}
		}
	}
	return false
}

// MayExcludeArtifacts reports whether any artifact-scoped rule participates in this spec. When false, artifact
// resolution can skip per-artifact filtering entirely.
func (s Spec) MayExcludeArtifacts() bool {
	switch s.kind {
	case ruleSet:
		for _, r := range s.rules {
			if r.Artifact != "" {
				return true
			}
		}
	case allOf, anyOf:
		for _, p := range s.parts {
			if p.MayExcludeArtifacts() {
				return true
			}
		}
	}
	return false
}

func (s Spec) String() string {
	switch s.kind {
	case nothing:
		return "excludes()"
	case ruleSet:
		strs := make([]string, len(s.rules))
		for i, r := range s.rules {
			strs[i] = r.String()
		}
		sort.Strings(strs)
		return "excludes(" + strings.Join(strs, ", ") + ")"
	case allOf:
		return joinParts("allOf", s.parts)
	case anyOf:
		return joinParts("anyOf", s.parts)
	}
	return "excludes(?)"
}

func joinParts(op string, parts []Spec) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = p.String()
	}
	sort.Strings(strs)
	return op + "(" + strings.Join(strs, ", ") + ")"
}

func dedupeRules(rules []Rule) []Rule {
	seen := make(map[Rule]bool, len(rules))
	var out []Rule
	for _, r := range rules {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
