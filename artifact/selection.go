package artifact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

// SelectionSpec describes one artifact query over a resolved graph.
type SelectionSpec struct {
	// Attributes the consumer wants on the artifacts. Empty selects everything the node resolved to.
	Attributes attr.Attributes
	// ComponentFilter, when set, drops whole components before any variant work happens.
	ComponentFilter func(common.ModuleKey) bool
	// SelectFromAllVariants re-runs graph variant selection against ONLY the spec attributes, ignoring the
	// attributes the graph was resolved with. Used for things like pulling sources out of a runtime graph.
	SelectFromAllVariants bool
	// AllowNoMatchingVariants turns "nothing matches" into an empty contribution instead of a failure.
	AllowNoMatchingVariants bool
}

// NoMatchError reports that a node offered artifacts but none satisfied the requested attributes, directly or through
// a transform chain.
type NoMatchError struct {
	Component common.ModuleKey
	Requested attr.Attributes
	Offered   []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no artifacts of %v match attributes %v (offered: %v)", e.Component, e.Requested, e.Offered)
}

// Resolution is the artifact view over one resolved graph. It is safe for concurrent use; each node's own variants
// are computed once, ever, no matter how many selections run.
type Resolution struct {
	graph      *resolve.Graph
	resolver   VariantResolver
	transforms *TransformRegistry

	mu    sync.Mutex
	cells map[*resolve.Node]*cell
}

func NewResolution(g *resolve.Graph, resolver VariantResolver, transforms *TransformRegistry) *Resolution {
	if resolver == nil {
		resolver = FileVariantResolver{}
	}
	if transforms == nil {
		transforms = NewTransformRegistry(g.Schema)
	}
	return &Resolution{
		graph:      g,
		resolver:   resolver,
		transforms: transforms,
		cells:      map[*resolve.Node]*cell{},
	}
}

// Select runs the spec against every resolved node. Graph-level failures (identities that never resolved) join the
// result as broken contributions, so a lenient consumer can enumerate them alongside artifact failures.
func (r *Resolution) Select(spec SelectionSpec) *Result {
	res := &Result{}
	for _, n := range r.graph.SortedNodes() {
		set := r.selectNode(n, spec)
		if set.IsEmpty() {
			continue
		}
		res.contributions = append(res.contributions, contribution{component: n.Key(), set: set})
	}
	for _, id := range r.graph.SortedFailures() {
		// A failed identity never resolved a version, so its key has none.
		failedKey := common.ModuleKey{ID: id}
		if spec.ComponentFilter != nil && !spec.ComponentFilter(failedKey) {
			continue
		}
		res.contributions = append(res.contributions, contribution{
			component: failedKey,
			set:       Broken(r.graph.Failures[id]),
		})
	}
	return res
}

func (r *Resolution) selectNode(n *resolve.Node, spec SelectionSpec) ResolvedArtifactSet {
	if spec.ComponentFilter != nil && !spec.ComponentFilter(n.Key()) {
		return Empty()
	}
	if spec.SelectFromAllVariants && len(n.Pinned) > 0 {
		// Pinned artifacts have unknown producer attributes; reselecting them would be a guess.
		return Empty()
	}

	var variants []ResolvedVariant
	var err error
	if spec.SelectFromAllVariants {
		variants, err = r.reselect(n, spec)
	} else {
		variants, err = r.ownVariants(n)
	}
	if err != nil {
		return Broken(err)
	}
	if len(variants) == 0 {
		// Nothing requested, nothing missed. But a node offering no artifact sets at all cannot satisfy an
		// attribute request, and silently dropping it would hide that from a strict consumer.
		if spec.Attributes.IsEmpty() || spec.AllowNoMatchingVariants {
			return Empty()
		}
		return Broken(&NoMatchError{Component: n.Key(), Requested: spec.Attributes, Offered: variantNames(n.Component)})
	}

	matched, err := r.matchVariants(n.Key(), variants, spec)
	if err != nil {
		return Broken(err)
	}
	return OfVariants(matched...)
}

// ownVariants resolves the node's already-selected graph variant, memoized per node. Pinned artifact names override
// the variant's declared sets with a single ad-hoc variant.
func (r *Resolution) ownVariants(n *resolve.Node) ([]ResolvedVariant, error) {
	return r.cellFor(n).get(func() ([]ResolvedVariant, error) {
		if n.Err != nil {
			return nil, n.Err
		}
		if len(n.Pinned) > 0 {
			rv, err := r.resolver.ResolveAdhoc(n.Component, n.Pinned)
			if err != nil {
				return nil, err
			}
			return []ResolvedVariant{rv}, nil
		}
		var out []ResolvedVariant
		for _, set := range n.Variant.ArtifactSets {
			rv, err := r.resolver.ResolveVariant(n.Component, set, n.Exclusion)
			if err != nil {
				return nil, err
			}
			out = append(out, rv)
		}
		return out, nil
	})
}

// reselect re-runs graph variant selection leniently with only the spec attributes, then resolves the chosen
// variant's artifact sets. The graph-resolution attributes play no part here.
func (r *Resolution) reselect(n *resolve.Node, spec SelectionSpec) ([]ResolvedVariant, error) {
	variant, err := resolve.SelectVariant(r.graph.Schema, spec.Attributes, n.CapabilitySelectors(), n.Component, nil, true)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		if spec.AllowNoMatchingVariants {
			return nil, nil
		}
		return nil, &NoMatchError{Component: n.Key(), Requested: spec.Attributes, Offered: variantNames(n.Component)}
	}
	var out []ResolvedVariant
	for _, set := range variant.ArtifactSets {
		rv, err := r.resolver.ResolveVariant(n.Component, set, n.Exclusion)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}

// matchVariants picks the artifact sets best matching the spec attributes. When nothing matches directly, a transform
// chain from the best-placed source is the fallback; when that fails too, AllowNoMatchingVariants decides between an
// empty contribution and a failure.
func (r *Resolution) matchVariants(key common.ModuleKey, variants []ResolvedVariant, spec SelectionSpec) ([]ResolvedVariant, error) {
	if spec.Attributes.IsEmpty() {
		return variants, nil
	}

	bestScore := -1
	var best []ResolvedVariant
	for _, v := range variants {
		score, ok := r.scoreAttributes(spec.Attributes, v.Attributes)
		if !ok || score == 0 {
			continue
		}
		if score > bestScore {
			bestScore, best = score, []ResolvedVariant{v}
		} else if score == bestScore {
			best = append(best, v)
		}
	}
	if len(best) > 0 {
		if len(best) > 1 {
			sort.Slice(best, func(i, j int) bool { return best[i].SetName < best[j].SetName })
			best = best[:1]
		}
		return best, nil
	}

	// Transform fallback: shortest chain over all sources, ties to the earlier variant.
	var chosen *ResolvedVariant
	var chosenChain []Transform
	for i := range variants {
		chain, ok := r.transforms.FindChain(variants[i].Attributes, spec.Attributes)
		if !ok {
			continue
		}
		if chosen == nil || len(chain) < len(chosenChain) {
			chosen, chosenChain = &variants[i], chain
		}
	}
	if chosen != nil {
		transformed, err := ApplyChain(chosenChain, *chosen)
		if err != nil {
			return nil, err
		}
		return []ResolvedVariant{transformed}, nil
	}

	if spec.AllowNoMatchingVariants {
		return nil, nil
	}
	offered := make([]string, len(variants))
	for i, v := range variants {
		offered[i] = v.SetName
	}
	return nil, &NoMatchError{Component: key, Requested: spec.Attributes, Offered: offered}
}

// scoreAttributes counts requested attributes the producer declares compatibly; an incompatible declared value
// disqualifies, same as graph variant scoring.
func (r *Resolution) scoreAttributes(requested, declared attr.Attributes) (int, bool) {
	score := 0
	for _, key := range requested.Keys() {
		want, _ := requested.Get(key)
		have, ok := declared.Get(key)
		if !ok {
			continue
		}
		if !r.graph.Schema.Compatible(key, want, have) {
			return 0, false
		}
		score++
	}
	return score, true
}

func (r *Resolution) cellFor(n *resolve.Node) *cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cells[n]
	if !ok {
		c = &cell{}
		r.cells[n] = c
	}
	return c
}

func variantNames(c *resolve.Component) []string {
	names := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}
