// Package artifact resolves the artifact content of a resolved dependency graph: per-node resolved variants, the
// selection view over them, and the transform fallback used when no declared artifact set matches the request.
package artifact

import (
	"sync"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

// ResolvedVariant is one artifact set of one component, resolved to concrete content. The attributes are the set's
// producer attributes, used for artifact-level attribute matching and transform chain lookup.
type ResolvedVariant struct {
	SetName     string
	ComponentID common.ModuleKey
	Attributes  attr.Attributes
	Artifacts   []resolve.ArtifactDescriptor
}

// ResolvedArtifact is one artifact file together with its provenance, the shape handed to consumers that want more
// than a flat file list.
type ResolvedArtifact struct {
	File       string
	Descriptor resolve.ArtifactDescriptor
	Component  common.ModuleKey
	SetName    string
	Attributes attr.Attributes
}

// cell memoizes one node's resolved variants. The first caller computes; everyone else observes the same terminal
// value or error. Errors are sticky so a broken node never recomputes.
type cell struct {
	once     sync.Once
	variants []ResolvedVariant
	err      error
}

func (c *cell) get(compute func() ([]ResolvedVariant, error)) ([]ResolvedVariant, error) {
	c.once.Do(func() {
		c.variants, c.err = compute()
	})
	return c.variants, c.err
}
