package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
)

// VariantSelectionError reports that attribute matching found no variant, or could not tell tied variants apart.
type VariantSelectionError struct {
	Component  common.ModuleKey
	Requested  attr.Attributes
	Reason     string
	Candidates []string
}

func (e *VariantSelectionError) Error() string {
	msg := fmt.Sprintf("cannot choose a variant of %v for attributes %v: %v", e.Component, e.Requested, e.Reason)
	if len(e.Candidates) > 0 {
		msg += " (candidates: " + strings.Join(e.Candidates, ", ") + ")"
	}
	return msg
}

// SelectVariant performs attribute matching between the requested attributes/capabilities and the component's declared
// graph variants, returning the single best match. Variants named in excluded are never considered.
//
// In strict mode (lenient=false) an empty or ambiguous outcome is a *VariantSelectionError. In lenient mode, used
// during reselection, it is (nil, nil).
func SelectVariant(schema *attr.Schema, requested attr.Attributes, selectors []CapabilitySelector, c *Component, excluded []string, lenient bool) (*GraphVariant, error) {
	type scored struct {
		v     *GraphVariant
		score int
	}
	var candidates []scored
	incompatibleKeys := make(map[string]bool)

	for i := range c.Variants {
		v := &c.Variants[i]
		if contains(excluded, v.Name) || !providesCapabilities(c, v, selectors) {
			continue
		}
		score, badKey := scoreVariant(schema, requested, v.Attributes)
		if badKey != "" {
			incompatibleKeys[badKey] = true
			continue
		}
		candidates = append(candidates, scored{v, score})
	}

	if len(candidates) == 0 {
		if lenient {
			return nil, nil
		}
		return nil, &VariantSelectionError{
			Component: c.Key,
			Requested: requested,
			Reason:    noMatchReason(c, selectors, incompatibleKeys),
		}
	}

	best := candidates[0].score
	for _, cand := range candidates[1:] {
		if cand.score > best {
			best = cand.score
		}
	}
	var tied []*GraphVariant
	for _, cand := range candidates {
		if cand.score == best {
			tied = append(tied, cand.v)
		}
	}

	if len(tied) > 1 {
		tied = disambiguate(schema, requested, tied)
	}
	if len(tied) == 1 {
		return tied[0], nil
	}
	if lenient {
		return nil, nil
	}
	names := make([]string, len(tied))
	for i, v := range tied {
		names[i] = v.Name
	}
	sort.Strings(names)
	return nil, &VariantSelectionError{
		Component:  c.Key,
		Requested:  requested,
		Reason:     "more than one variant matches equally well",
		Candidates: names,
	}
}

// scoreVariant counts requested attributes the variant satisfies. A requested attribute the variant declares with an
// incompatible value disqualifies it; a requested attribute the variant doesn't declare neither helps nor hurts.
func scoreVariant(schema *attr.Schema, requested, declared attr.Attributes) (score int, incompatibleKey string) {
	for _, key := range requested.Keys() {
		reqVal, _ := requested.Get(key)
		declVal, ok := declared.Get(key)
		if !ok {
			continue
		}
		if !schema.Compatible(key, reqVal, declVal) {
			return 0, key
		}
		score++
	}
	return score, ""
}

// providesCapabilities checks the variant against the requested capability selectors. A variant declaring no
// capabilities implicitly provides the default capability (the component's own group and name), and is only matched by
// an empty selector set or a selector naming that default.
func providesCapabilities(c *Component, v *GraphVariant, selectors []CapabilitySelector) bool {
	caps := v.Capabilities
	if len(caps) == 0 {
		caps = []Capability{{Group: c.Key.ID.Group, Name: c.Key.ID.Name, Version: c.Key.Version}}
	}
	if len(selectors) == 0 {
		for _, cap := range caps {
			if cap.Group == c.Key.ID.Group && cap.Name == c.Key.ID.Name {
				return true
			}
		}
		return false
	}
	for _, sel := range selectors {
		found := false
		for _, cap := range caps {
			if cap.Group == sel.Group && cap.Name == sel.Name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// disambiguate narrows tied candidates using the schema's per-key preference order. Keys the candidates declare beyond
// the request participate too, so "extra" attributes can break ties. Keys are visited in sorted order so the outcome is
// deterministic.
func disambiguate(schema *attr.Schema, requested attr.Attributes, tied []*GraphVariant) []*GraphVariant {
	keys := requested.Keys()
	for _, v := range tied {
		for _, k := range v.Attributes.Keys() {
			if !contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		var values []string
		for _, v := range tied {
			if val, ok := v.Attributes.Get(key); ok && !contains(values, val) {
				values = append(values, val)
			}
		}
		if len(values) < 2 {
			continue
		}
		sort.Strings(values)
		preferred := schema.Disambiguate(key, values)
		if preferred == "" {
			continue
		}
		var kept []*GraphVariant
		for _, v := range tied {
			if val, ok := v.Attributes.Get(key); ok && val == preferred {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			tied = kept
		}
		if len(tied) == 1 {
			break
		}
	}
	return tied
}

func noMatchReason(c *Component, selectors []CapabilitySelector, incompatibleKeys map[string]bool) string {
	if len(incompatibleKeys) > 0 {
		keys := make([]string, 0, len(incompatibleKeys))
		for k := range incompatibleKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "no variant is compatible with requested attribute(s) " + strings.Join(keys, ", ")
	}
	if len(selectors) > 0 {
		strs := make([]string, len(selectors))
		for i, s := range selectors {
			strs[i] = s.String()
		}
		sort.Strings(strs)
		return "no variant provides the requested capabilities " + strings.Join(strs, ", ")
	}
	return "the component declares no matching variants"
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
