package artifact

import (
	"fmt"
	"strings"

	"github.com/MARRISLHARRIS/gradle/common"
)

type setKind int

const (
	emptySet setKind = iota
	variantSet
	brokenSet
)

// ResolvedArtifactSet is one node's contribution to a selection: either nothing, a list of resolved variants, or a
// captured failure whose surfacing is deferred until the result is consumed.
type ResolvedArtifactSet struct {
	kind     setKind
	variants []ResolvedVariant
	err      error
}

// Empty is the contribution of a filtered-out or matchless node.
func Empty() ResolvedArtifactSet { return ResolvedArtifactSet{} }

// OfVariants wraps resolved variants. An empty list collapses to Empty.
func OfVariants(variants ...ResolvedVariant) ResolvedArtifactSet {
	if len(variants) == 0 {
		return Empty()
	}
	return ResolvedArtifactSet{kind: variantSet, variants: variants}
}

// Broken captures a failure as a value.
func Broken(err error) ResolvedArtifactSet {
	return ResolvedArtifactSet{kind: brokenSet, err: err}
}

func (s ResolvedArtifactSet) IsEmpty() bool { return s.kind == emptySet }
func (s ResolvedArtifactSet) Err() error    { return s.err }

// Variants returns the resolved variants, or the captured failure.
func (s ResolvedArtifactSet) Variants() ([]ResolvedVariant, error) {
	if s.kind == brokenSet {
		return nil, s.err
	}
	return s.variants, nil
}

// Failure is one captured per-component failure in a selection result.
type Failure struct {
	Component common.ModuleKey
	Err       error
}

func (f Failure) String() string {
	return fmt.Sprintf("%v: %v", f.Component, f.Err)
}

type contribution struct {
	component common.ModuleKey
	set       ResolvedArtifactSet
}

// Result is the outcome of one selection over the whole graph. Strict accessors surface the first captured failure;
// the lenient accessors omit failing contributions and expose them as an enumerable list instead.
type Result struct {
	contributions []contribution
}

// Artifacts returns every selected artifact with provenance, failing on the first broken contribution.
func (r *Result) Artifacts() ([]ResolvedArtifact, error) {
	arts, failures := r.collect()
	if len(failures) > 0 {
		return nil, &ResolutionError{Failures: failures}
	}
	return arts, nil
}

// Files returns the flat ordered file list, failing on the first broken contribution.
func (r *Result) Files() ([]string, error) {
	arts, err := r.Artifacts()
	if err != nil {
		return nil, err
	}
	files := make([]string, len(arts))
	for i, a := range arts {
		files[i] = a.File
	}
	return files, nil
}

// LenientArtifacts returns the artifacts of every healthy contribution plus the failures of the broken ones.
func (r *Result) LenientArtifacts() ([]ResolvedArtifact, []Failure) {
	return r.collect()
}

// Failures returns the captured failures without touching the healthy contributions.
func (r *Result) Failures() []Failure {
	_, failures := r.collect()
	return failures
}

func (r *Result) collect() ([]ResolvedArtifact, []Failure) {
	var arts []ResolvedArtifact
	var failures []Failure
	for _, c := range r.contributions {
		variants, err := c.set.Variants()
		if err != nil {
			failures = append(failures, Failure{Component: c.component, Err: err})
			continue
		}
		for _, v := range variants {
			for _, a := range v.Artifacts {
				arts = append(arts, ResolvedArtifact{
					File:       a.File,
					Descriptor: a,
					Component:  v.ComponentID,
					SetName:    v.SetName,
					Attributes: v.Attributes,
				})
			}
		}
	}
	return arts, failures
}

// ResolutionError aggregates the failures a strict accessor hit.
type ResolutionError struct {
	Failures []Failure
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "could not resolve all artifacts (%d failure(s)):\n", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "  - %v\n", f)
	}
	return strings.TrimRight(sb.String(), "\n")
}
