package artifact

import (
	"fmt"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/resolve"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Transform turns artifacts with one attribute shape into another. From names the attributes the input must carry;
// To is overlaid on the input's attributes after application.
type Transform struct {
	Name  string
	From  attr.Attributes
	To    attr.Attributes
	Apply func(resolve.ArtifactDescriptor) (resolve.ArtifactDescriptor, error)
}

const transformCacheSize = 256

// TransformRegistry holds registered transforms and answers chain lookups. Lookups are memoized; registrations after
// the first lookup are rare enough that Register simply drops the memo.
type TransformRegistry struct {
	schema     *attr.Schema
	transforms []Transform
	memo       *lru.Cache[string, chainResult]
}

type chainResult struct {
	chain []Transform
	found bool
}

func NewTransformRegistry(schema *attr.Schema) *TransformRegistry {
	if schema == nil {
		schema = attr.NewSchema()
	}
	memo, _ := lru.New[string, chainResult](transformCacheSize)
	return &TransformRegistry{schema: schema, memo: memo}
}

func (r *TransformRegistry) Register(t Transform) {
	r.transforms = append(r.transforms, t)
	r.memo.Purge()
}

// FindChain returns the shortest sequence of transforms bridging the source attributes to the requested ones, or
// false when none exists. Ties on length fall to registration order. A request the source already satisfies yields an
// empty chain.
func (r *TransformRegistry) FindChain(source, requested attr.Attributes) ([]Transform, bool) {
	if requested.IsEmpty() {
		return nil, true
	}
	key := source.String() + " => " + requested.String()
	if res, ok := r.memo.Get(key); ok {
		return res.chain, res.found
	}
	chain, found := r.search(source, requested)
	r.memo.Add(key, chainResult{chain: chain, found: found})
	return chain, found
}

func (r *TransformRegistry) search(source, requested attr.Attributes) ([]Transform, bool) {
	if r.satisfies(source, requested) {
		return nil, true
	}
	type state struct {
		attrs attr.Attributes
		chain []Transform
	}
	queue := []state{{attrs: source}}
	seen := map[string]bool{source.String(): true}
	// A chain longer than the registry has transforms would have to repeat one.
	maxLen := len(r.transforms)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.chain) == maxLen {
			continue
		}
		for _, t := range r.transforms {
			if !r.accepts(t, cur.attrs) {
				continue
			}
			next := cur.attrs.Overlay(t.To)
			if seen[next.String()] {
				continue
			}
			seen[next.String()] = true
			chain := append(append([]Transform{}, cur.chain...), t)
			if r.satisfies(next, requested) {
				return chain, true
			}
			queue = append(queue, state{attrs: next, chain: chain})
		}
	}
	return nil, false
}

// accepts reports whether the transform can consume artifacts with the given attributes.
func (r *TransformRegistry) accepts(t Transform, attrs attr.Attributes) bool {
	for _, key := range t.From.Keys() {
		want, _ := t.From.Get(key)
		have, ok := attrs.Get(key)
		if !ok || !r.schema.Compatible(key, want, have) {
			return false
		}
	}
	return true
}

// satisfies reports whether the attributes meet every requested attribute. Unlike graph variant scoring, a requested
// attribute the producer doesn't declare is a miss here: a transform target must actually be reached.
func (r *TransformRegistry) satisfies(attrs, requested attr.Attributes) bool {
	for _, key := range requested.Keys() {
		want, _ := requested.Get(key)
		have, ok := attrs.Get(key)
		if !ok || !r.schema.Compatible(key, want, have) {
			return false
		}
	}
	return true
}

// ApplyChain runs the chain over every artifact of the variant and overlays the produced attributes.
func ApplyChain(chain []Transform, v ResolvedVariant) (ResolvedVariant, error) {
	out := ResolvedVariant{
		SetName:     v.SetName,
		ComponentID: v.ComponentID,
		Attributes:  v.Attributes,
	}
	for _, t := range chain {
		out.Attributes = out.Attributes.Overlay(t.To)
	}
	for _, a := range v.Artifacts {
		transformed := a
		for _, t := range chain {
			if t.Apply == nil {
				continue
			}
			var err error
			transformed, err = t.Apply(transformed)
			if err != nil {
				return ResolvedVariant{}, fmt.Errorf("transform %q failed for %v of %v: %w", t.Name, a.FileName(), v.ComponentID, err)
			}
		}
		out.Artifacts = append(out.Artifacts, transformed)
	}
	return out, nil
}
