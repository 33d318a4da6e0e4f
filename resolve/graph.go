package resolve

import (
	"fmt"
	"sort"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/excludes"
)

// Params configures one resolution pass. Schema and Force are read-only once Resolve is called.
type Params struct {
	Root   *Component
	Source ComponentSource
	Schema *attr.Schema
	// RequestAttributes are the configuration-level consumer attributes used for graph variant selection.
	RequestAttributes attr.Attributes
	// Force maps module identities to versions that win conflict resolution unconditionally.
	Force map[common.ModuleIdentity]string
}

// Graph is the immutable result of a resolution pass. Failed module identities are absent from Nodes and present in
// Failures; a failure never blocks resolution of unrelated identities.
type Graph struct {
	Root              *Node
	Nodes             map[common.ModuleIdentity]*Node
	Failures          map[common.ModuleIdentity]error
	Schema            *attr.Schema
	RequestAttributes attr.Attributes
}

// Node is a resolved component with its selected graph variant and the incoming edges that led to it. A node with a
// non-nil Err (e.g. variant selection failed) is broken but still present, so siblings resolve independently.
type Node struct {
	Component *Component
	Variant   *GraphVariant
	Incoming  []*Edge
	Exclusion excludes.Spec
	// Pinned holds explicit artifact names declared on incoming edges. When non-empty, artifact resolution builds a
	// single ad-hoc variant from exactly these names.
	Pinned []string
	Err    error
}

func (n *Node) Key() common.ModuleKey { return n.Component.Key }

// CapabilitySelectors returns the union of capability selectors over all incoming edges, sorted.
func (n *Node) CapabilitySelectors() []CapabilitySelector {
	seen := make(map[CapabilitySelector]bool)
	var out []CapabilitySelector
	for _, e := range n.Incoming {
		for _, s := range e.Dep.Capabilities {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Edge is a resolved dependency edge.
type Edge struct {
	From *Node
	To   *Node
	Dep  Dependency
}

// Version returns the resolved version for a module identity.
func (g *Graph) Version(id common.ModuleIdentity) (string, bool) {
	n, ok := g.Nodes[id]
	if !ok {
		return "", false
	}
	return n.Component.Key.Version, true
}

// SortedNodes returns the resolved nodes ordered by module key, for deterministic iteration.
func (g *Graph) SortedNodes() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key().Less(nodes[j].Key()) })
	return nodes
}

// SortedFailures returns the failed identities in sorted order.
func (g *Graph) SortedFailures() []common.ModuleIdentity {
	ids := make([]common.ModuleIdentity, 0, len(g.Failures))
	for id := range g.Failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

const maxSelectionRounds = 20

// Resolve builds the resolved dependency graph: discover the transitive closure of requested component metadata,
// then repeatedly resolve versions per identity over the currently reachable requests and re-walk until the selection
// is stable. Collecting all competing requests before deciding a winner is what makes the outcome independent of
// declaration order.
func Resolve(params Params) (*Graph, error) {
	if params.Root == nil {
		return nil, fmt.Errorf("no root component")
	}
	if params.Schema == nil {
		params.Schema = attr.NewSchema()
	}

	d := &discovery{
		source:     params.Source,
		force:      params.Force,
		components: map[common.ModuleKey]*Component{},
		fetchErrs:  map[common.ModuleKey]error{},
	}
	d.discover(params.Root)

	selected := map[common.ModuleIdentity]string{}
	failures := map[common.ModuleIdentity]error{}
	var w *walk
	for round := 0; ; round++ {
		if round == maxSelectionRounds {
			return nil, fmt.Errorf("version selection did not converge after %d rounds", maxSelectionRounds)
		}
		w = d.walk(params.Root, selected, failures)
		newSelected := map[common.ModuleIdentity]string{}
		newFailures := map[common.ModuleIdentity]error{}
		for _, id := range sortedIdentities(w.requests) {
			ver, err := ResolveVersion(id, w.requests[id], params.Force[id])
			if err != nil {
				newFailures[id] = err
				continue
			}
			key := common.ModuleKey{ID: id, Version: ver}
			if ferr := d.fetchErrs[key]; ferr != nil {
				newFailures[id] = ferr
				continue
			}
			if _, ok := d.components[key]; !ok {
				// A forced version nobody requested directly; fetch it now.
				if err := d.fetch(key); err != nil {
					newFailures[id] = err
					continue
				}
				d.discover(d.components[key])
			}
			newSelected[id] = ver
		}
		if selectionStable(selected, newSelected, failures, newFailures) {
			selected, failures = newSelected, newFailures
			break
		}
		selected, failures = newSelected, newFailures
	}

	// Final walk with the stable selection, then materialize nodes and edges.
	w = d.walk(params.Root, selected, failures)
	g := &Graph{
		Root:              &Node{Component: params.Root, Exclusion: excludes.Nothing()},
		Nodes:             map[common.ModuleIdentity]*Node{},
		Failures:          failures,
		Schema:            params.Schema,
		RequestAttributes: params.RequestAttributes,
	}
	rootKey := params.Root.Key
	nodeFor := func(key common.ModuleKey) *Node {
		if key == rootKey {
			return g.Root
		}
		if n, ok := g.Nodes[key.ID]; ok {
			return n
		}
		n := &Node{Component: d.components[key], Exclusion: w.specs[key]}
		g.Nodes[key.ID] = n
		return n
	}
	for _, rec := range w.edges {
		if _, failed := failures[rec.to.ID]; failed {
			continue
		}
		from := nodeFor(rec.from)
		to := nodeFor(rec.to)
		edge := &Edge{From: from, To: to, Dep: rec.dep}
		to.Incoming = append(to.Incoming, edge)
		if len(rec.dep.Artifacts) > 0 {
			to.Pinned = mergeSorted(to.Pinned, rec.dep.Artifacts)
		}
	}

	for _, n := range g.SortedNodes() {
		reqAttrs, err := consumerAttributes(params.RequestAttributes, n.Incoming)
		if err != nil {
			n.Err = err
			continue
		}
		variant, err := SelectVariant(params.Schema, reqAttrs, n.CapabilitySelectors(), n.Component, nil, false)
		if err != nil {
			n.Err = err
			continue
		}
		n.Variant = variant
	}

	return g, nil
}

type discovery struct {
	source     ComponentSource
	force      map[common.ModuleIdentity]string
	components map[common.ModuleKey]*Component
	fetchErrs  map[common.ModuleKey]error
}

// requestedKey is the key whose metadata an edge makes us fetch: the forced version when an override exists (so only
// one version of that module is ever discovered), else the version the constraint asks for.
func (d *discovery) requestedKey(dep Dependency) common.ModuleKey {
	if forced, ok := d.force[dep.Target]; ok {
		return common.ModuleKey{ID: dep.Target, Version: forced}
	}
	return common.ModuleKey{ID: dep.Target, Version: dep.Constraint.Wanted()}
}

func (d *discovery) fetch(key common.ModuleKey) error {
	if _, ok := d.components[key]; ok {
		return nil
	}
	if err := d.fetchErrs[key]; err != nil {
		return err
	}
	comp, err := d.source.GetComponent(key)
	if err != nil {
		err = fmt.Errorf("cannot resolve %v: %w", key, err)
		d.fetchErrs[key] = err
		return err
	}
	d.components[key] = comp
	return nil
}

func (d *discovery) discover(c *Component) {
	for _, dep := range c.Dependencies {
		key := d.requestedKey(dep)
		if key.Version == "" {
			d.fetchErrs[key] = fmt.Errorf("dependency on %v names no concrete version (%v)", dep.Target, dep.Constraint)
			continue
		}
		if _, ok := d.components[key]; ok || d.fetchErrs[key] != nil {
			continue
		}
		if err := d.fetch(key); err == nil {
			d.discover(d.components[key])
		}
	}
}

type edgeRec struct {
	from common.ModuleKey
	dep  Dependency
	to   common.ModuleKey
}

type walk struct {
	specs    map[common.ModuleKey]excludes.Spec
	requests map[common.ModuleIdentity][]Request
	edges    []edgeRec
}

// walk traverses the discovered closure from the root using the current selection, computing effective exclusions and
// collecting the competing version requests per identity. Only edges whose every reaching path excludes the target
// are dropped; a single non-excluding path keeps the module in.
func (d *discovery) walk(root *Component, selected map[common.ModuleIdentity]string, failed map[common.ModuleIdentity]error) *walk {
	w := &walk{
		specs:    map[common.ModuleKey]excludes.Spec{root.Key: excludes.Nothing()},
		requests: map[common.ModuleIdentity][]Request{},
	}
	componentFor := func(key common.ModuleKey) *Component {
		if key == root.Key {
			return root
		}
		return d.components[key]
	}
	targetKey := func(dep Dependency) common.ModuleKey {
		if ver, ok := selected[dep.Target]; ok {
			return common.ModuleKey{ID: dep.Target, Version: ver}
		}
		return d.requestedKey(dep)
	}

	// Pass 1: exclusion dataflow to a fixpoint. Re-discovering a node via a new path intersects the path's exclusions
	// into the node's spec; intersection only ever shrinks the excluded set, and parts are deduplicated, so this
	// terminates. updates caps refinement on pathological cycles, erring on the "not excluded" side.
	queue := []common.ModuleKey{root.Key}
	updates := map[common.ModuleKey]int{}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		comp := componentFor(key)
		if comp == nil {
			continue
		}
		for _, dep := range comp.Dependencies {
			pathSpec := excludes.Union(w.specs[key], excludes.ForRules(dep.Excludes))
			if pathSpec.ExcludesModule(dep.Target) {
				continue
			}
			target := targetKey(dep)
			old, ok := w.specs[target]
			merged := pathSpec
			if ok {
				merged = excludes.Intersect(old, pathSpec)
			}
			if !ok || merged.String() != old.String() {
				if updates[target]++; updates[target] > 100 {
					continue
				}
				w.specs[target] = merged
				queue = append(queue, target)
			}
		}
	}

	// Pass 2: collect requests and edges over the stable exclusion specs.
	visited := map[common.ModuleKey]bool{root.Key: true}
	queue = []common.ModuleKey{root.Key}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		comp := componentFor(key)
		if comp == nil {
			continue
		}
		for _, dep := range comp.Dependencies {
			pathSpec := excludes.Union(w.specs[key], excludes.ForRules(dep.Excludes))
			if pathSpec.ExcludesModule(dep.Target) {
				continue
			}
			w.requests[dep.Target] = append(w.requests[dep.Target], Request{From: comp.Key, Constraint: dep.Constraint})
			target := targetKey(dep)
			w.edges = append(w.edges, edgeRec{from: key, dep: dep, to: target})
			if failed[dep.Target] != nil {
				continue
			}
			if !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}
	return w
}

// consumerAttributes merges the configuration-level request attributes with per-edge overrides. Two incoming edges
// that disagree on an override make variant selection for the node fail rather than depend on edge order.
func consumerAttributes(base attr.Attributes, incoming []*Edge) (attr.Attributes, error) {
	overrides := map[string]string{}
	origin := map[string]*Edge{}
	edges := make([]*Edge, len(incoming))
	copy(edges, incoming)
	sort.Slice(edges, func(i, j int) bool { return edges[i].From.Key().Less(edges[j].From.Key()) })
	for _, e := range edges {
		for _, key := range e.Dep.Attributes.Keys() {
			val, _ := e.Dep.Attributes.Get(key)
			if prev, ok := overrides[key]; ok && prev != val {
				return attr.Attributes{}, &VariantSelectionError{
					Component: e.To.Key(),
					Requested: base,
					Reason: fmt.Sprintf("incoming edges disagree on attribute %q: %v requests %q, %v requests %q",
						key, origin[key].From.Key(), prev, e.From.Key(), val),
				}
			}
			overrides[key] = val
			origin[key] = e
		}
	}
	return base.Overlay(attr.New(overrides)), nil
}

func selectionStable(oldSel, newSel map[common.ModuleIdentity]string, oldFail, newFail map[common.ModuleIdentity]error) bool {
	if len(oldSel) != len(newSel) || len(oldFail) != len(newFail) {
		return false
	}
	for id, v := range newSel {
		if oldSel[id] != v {
			return false
		}
	}
	for id := range newFail {
		if _, ok := oldFail[id]; !ok {
			return false
		}
	}
	return true
}

func sortedIdentities(m map[common.ModuleIdentity][]Request) []common.ModuleIdentity {
	ids := make([]common.ModuleIdentity, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func mergeSorted(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	var out []string
	for _, s := range append(existing, extra...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
