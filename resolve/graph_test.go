package resolve

import (
	"fmt"
	"testing"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/excludes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is an in-memory ComponentSource for graph tests. The registry package has a fuller fake, but resolve can't
// import it without a cycle.
type mapSource map[common.ModuleKey]*Component

func (m mapSource) GetComponent(key common.ModuleKey) (*Component, error) {
	if c, ok := m[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no metadata for %v", key)
}

func key(name, ver string) common.ModuleKey {
	return common.ModuleKey{ID: common.ModuleIdentity{Group: "org.example", Name: name}, Version: ver}
}

func comp(name, ver string, deps ...Dependency) *Component {
	return &Component{
		Key:          key(name, ver),
		Variants:     []GraphVariant{{Name: "default"}},
		Dependencies: deps,
	}
}

func dep(name string, c Constraint) Dependency {
	return Dependency{Target: common.ModuleIdentity{Group: "org.example", Name: name}, Constraint: c}
}

func sourceOf(comps ...*Component) mapSource {
	m := mapSource{}
	for _, c := range comps {
		m[c.Key] = c
	}
	return m
}

func TestResolve_SimpleDiamond(t *testing.T) {
	root := comp("root", "1.0",
		dep("a", Constraint{Require: "1.0"}),
		dep("b", Constraint{Require: "1.0"}),
	)
	src := sourceOf(
		comp("a", "1.0", dep("c", Constraint{Require: "1.0"})),
		comp("b", "1.0", dep("c", Constraint{Require: "1.1"})),
		comp("c", "1.0"),
		comp("c", "1.1"),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	assert.Len(t, g.Nodes, 3)

	ver, ok := g.Version(common.ModuleIdentity{Group: "org.example", Name: "c"})
	require.True(t, ok)
	assert.Equal(t, "1.1", ver)

	// Both edges land on the single winning node; the losing version contributes no node.
	c := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "c"}]
	assert.Len(t, c.Incoming, 2)
	assert.Equal(t, "default", c.Variant.Name)
}

// B strictly depends on C:1.0 while the root requires C:1.1 directly: C fails with a conflict naming both
// declarations, and the rest of the graph still resolves.
func TestResolve_StrictConflictThroughGraph(t *testing.T) {
	root := comp("root", "1.0",
		dep("b", Constraint{Require: "1.0"}),
		dep("c", Constraint{Require: "1.1"}),
	)
	src := sourceOf(
		comp("b", "1.0", dep("c", Constraint{Strict: "1.0"})),
		comp("c", "1.0"),
		comp("c", "1.1"),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)

	cID := common.ModuleIdentity{Group: "org.example", Name: "c"}
	require.Contains(t, g.Failures, cID)
	conflict, ok := g.Failures[cID].(*ConflictError)
	require.True(t, ok)
	assert.Len(t, conflict.Requests, 2)
	assert.Contains(t, conflict.Error(), "strictly 1.0")
	assert.Contains(t, conflict.Error(), "require 1.1")

	_, haveC := g.Nodes[cID]
	assert.False(t, haveC)
	_, haveB := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "b"}]
	assert.True(t, haveB)
}

func TestResolve_StrictRangeAcceptsHigherRequire(t *testing.T) {
	root := comp("root", "1.0",
		dep("b", Constraint{Require: "1.0"}),
		dep("c", Constraint{Require: "1.1"}),
	)
	src := sourceOf(
		comp("b", "1.0", dep("c", Constraint{Strict: ">=1.0, <2.0", Prefer: "1.0"})),
		comp("c", "1.0"),
		comp("c", "1.1"),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	ver, _ := g.Version(common.ModuleIdentity{Group: "org.example", Name: "c"})
	assert.Equal(t, "1.1", ver)
}

// One path to x excludes it and another does not: the exclusion is defeated and x stays in the graph. When every path
// excludes it, x is gone without being a failure.
func TestResolve_ExclusionIntersectionAcrossPaths(t *testing.T) {
	excludeX := Dependency{
		Target:     common.ModuleIdentity{Group: "org.example", Name: "a"},
		Constraint: Constraint{Require: "1.0"},
		Excludes:   []excludes.Rule{{Group: "org.example", Module: "x"}},
	}
	src := sourceOf(
		comp("a", "1.0", dep("x", Constraint{Require: "1.0"})),
		comp("b", "1.0", dep("x", Constraint{Require: "1.0"})),
		comp("x", "1.0"),
	)
	xID := common.ModuleIdentity{Group: "org.example", Name: "x"}

	// Path through a excludes x, path through b does not.
	root := comp("root", "1.0", excludeX, dep("b", Constraint{Require: "1.0"}))
	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	_, present := g.Nodes[xID]
	assert.True(t, present)
	// Only the non-excluding path contributes an edge.
	assert.Len(t, g.Nodes[xID].Incoming, 1)
	assert.Equal(t, key("b", "1.0"), g.Nodes[xID].Incoming[0].From.Key())

	// Both paths exclude x.
	excludeXviaB := Dependency{
		Target:     common.ModuleIdentity{Group: "org.example", Name: "b"},
		Constraint: Constraint{Require: "1.0"},
		Excludes:   []excludes.Rule{{Group: "org.example", Module: "x"}},
	}
	root = comp("root", "1.0", excludeX, excludeXviaB)
	g, err = Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	_, present = g.Nodes[xID]
	assert.False(t, present)
}

func TestResolve_ExclusionIsTransitive(t *testing.T) {
	// root -> a (excluding y), a -> x, x -> y: the rule declared at the top applies all the way down.
	root := comp("root", "1.0", Dependency{
		Target:     common.ModuleIdentity{Group: "org.example", Name: "a"},
		Constraint: Constraint{Require: "1.0"},
		Excludes:   []excludes.Rule{{Group: "org.example", Module: "y"}},
	})
	src := sourceOf(
		comp("a", "1.0", dep("x", Constraint{Require: "1.0"})),
		comp("x", "1.0", dep("y", Constraint{Require: "1.0"})),
		comp("y", "1.0"),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	_, present := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "y"}]
	assert.False(t, present)
	_, present = g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "x"}]
	assert.True(t, present)
}

func TestResolve_FailureDoesNotBlockSiblings(t *testing.T) {
	root := comp("root", "1.0",
		dep("missing", Constraint{Require: "1.0"}),
		dep("good", Constraint{Require: "1.0"}),
	)
	src := sourceOf(comp("good", "1.0"))

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)

	missingID := common.ModuleIdentity{Group: "org.example", Name: "missing"}
	require.Contains(t, g.Failures, missingID)
	assert.Contains(t, g.Failures[missingID].Error(), "cannot resolve")

	ver, ok := g.Version(common.ModuleIdentity{Group: "org.example", Name: "good"})
	require.True(t, ok)
	assert.Equal(t, "1.0", ver)
}

// A forced version wins even when nothing in the graph requests it, and only that version's metadata is fetched.
func TestResolve_ForceSelectsUnrequestedVersion(t *testing.T) {
	root := comp("root", "1.0", dep("c", Constraint{Require: "1.0"}))
	src := sourceOf(
		comp("c", "1.0"),
		comp("c", "2.0"),
	)

	g, err := Resolve(Params{
		Root:   root,
		Source: src,
		Force:  map[common.ModuleIdentity]string{{Group: "org.example", Name: "c"}: "2.0"},
	})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	ver, _ := g.Version(common.ModuleIdentity{Group: "org.example", Name: "c"})
	assert.Equal(t, "2.0", ver)
}

// Conflict resolution can pull in a version whose own dependencies differ from the loser's; the selection loop must
// settle on the winner's edges.
func TestResolve_WinnerDependenciesReplaceLosers(t *testing.T) {
	root := comp("root", "1.0",
		dep("a", Constraint{Require: "1.0"}),
		dep("c", Constraint{Require: "2.0"}),
	)
	src := sourceOf(
		comp("a", "1.0", dep("c", Constraint{Require: "1.0"})),
		// c:1.0 drags in old-dep, c:2.0 drags in new-dep.
		comp("c", "1.0", dep("old-dep", Constraint{Require: "1.0"})),
		comp("c", "2.0", dep("new-dep", Constraint{Require: "1.0"})),
		comp("old-dep", "1.0"),
		comp("new-dep", "1.0"),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)

	_, haveOld := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "old-dep"}]
	assert.False(t, haveOld)
	_, haveNew := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "new-dep"}]
	assert.True(t, haveNew)
}

func TestResolve_VariantSelectionPerNode(t *testing.T) {
	lib := &Component{
		Key: key("lib", "1.0"),
		Variants: []GraphVariant{
			{Name: "apiElements", Attributes: attr.New(map[string]string{"usage": "api"})},
			{Name: "runtimeElements", Attributes: attr.New(map[string]string{"usage": "runtime"})},
		},
	}
	root := comp("root", "1.0", dep("lib", Constraint{Require: "1.0"}))

	g, err := Resolve(Params{
		Root:              root,
		Source:            sourceOf(lib),
		RequestAttributes: attr.New(map[string]string{"usage": "runtime"}),
	})
	require.NoError(t, err)
	n := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "lib"}]
	require.NotNil(t, n)
	require.NoError(t, n.Err)
	assert.Equal(t, "runtimeElements", n.Variant.Name)
}

// An edge-level attribute override beats the configuration attributes for that target only.
func TestResolve_EdgeAttributeOverride(t *testing.T) {
	lib := &Component{
		Key: key("lib", "1.0"),
		Variants: []GraphVariant{
			{Name: "apiElements", Attributes: attr.New(map[string]string{"usage": "api"})},
			{Name: "runtimeElements", Attributes: attr.New(map[string]string{"usage": "runtime"})},
		},
	}
	root := comp("root", "1.0", Dependency{
		Target:     common.ModuleIdentity{Group: "org.example", Name: "lib"},
		Constraint: Constraint{Require: "1.0"},
		Attributes: attr.New(map[string]string{"usage": "api"}),
	})

	g, err := Resolve(Params{
		Root:              root,
		Source:            sourceOf(lib),
		RequestAttributes: attr.New(map[string]string{"usage": "runtime"}),
	})
	require.NoError(t, err)
	n := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "lib"}]
	require.NoError(t, n.Err)
	assert.Equal(t, "apiElements", n.Variant.Name)
}

// Two edges overriding the same attribute with different values is an error on the node, not a coin toss.
func TestResolve_ConflictingEdgeOverridesFail(t *testing.T) {
	lib := &Component{
		Key: key("lib", "1.0"),
		Variants: []GraphVariant{
			{Name: "apiElements", Attributes: attr.New(map[string]string{"usage": "api"})},
			{Name: "runtimeElements", Attributes: attr.New(map[string]string{"usage": "runtime"})},
		},
	}
	edgeTo := func(usage string) Dependency {
		return Dependency{
			Target:     common.ModuleIdentity{Group: "org.example", Name: "lib"},
			Constraint: Constraint{Require: "1.0"},
			Attributes: attr.New(map[string]string{"usage": usage}),
		}
	}
	root := comp("root", "1.0",
		dep("a", Constraint{Require: "1.0"}),
		dep("b", Constraint{Require: "1.0"}),
	)
	a := comp("a", "1.0", edgeTo("api"))
	b := comp("b", "1.0", edgeTo("runtime"))

	g, err := Resolve(Params{Root: root, Source: sourceOf(a, b, lib)})
	require.NoError(t, err)
	n := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "lib"}]
	require.NotNil(t, n)
	require.Error(t, n.Err)
	assert.Contains(t, n.Err.Error(), "disagree on attribute")
	assert.Nil(t, n.Variant)
}

func TestResolve_PinnedArtifactsMergeAcrossEdges(t *testing.T) {
	root := comp("root", "1.0",
		dep("a", Constraint{Require: "1.0"}),
		dep("b", Constraint{Require: "1.0"}),
	)
	pin := func(names ...string) Dependency {
		return Dependency{
			Target:     common.ModuleIdentity{Group: "org.example", Name: "lib"},
			Constraint: Constraint{Require: "1.0"},
			Artifacts:  names,
		}
	}
	a := comp("a", "1.0", pin("lib-core"))
	b := comp("b", "1.0", pin("lib-extras", "lib-core"))

	g, err := Resolve(Params{Root: root, Source: sourceOf(a, b, comp("lib", "1.0"))})
	require.NoError(t, err)
	n := g.Nodes[common.ModuleIdentity{Group: "org.example", Name: "lib"}]
	require.NotNil(t, n)
	assert.Equal(t, []string{"lib-core", "lib-extras"}, n.Pinned)
}

func TestResolve_CycleTerminates(t *testing.T) {
	root := comp("root", "1.0", dep("a", Constraint{Require: "1.0"}))
	src := sourceOf(
		comp("a", "1.0", dep("b", Constraint{Require: "1.0"})),
		comp("b", "1.0", dep("a", Constraint{Require: "1.0"})),
	)

	g, err := Resolve(Params{Root: root, Source: src})
	require.NoError(t, err)
	require.Empty(t, g.Failures)
	assert.Len(t, g.Nodes, 2)
}
