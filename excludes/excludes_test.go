package excludes

import (
	"testing"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/stretchr/testify/assert"
)

var (
	idFoo = common.ModuleIdentity{Group: "org.example", Name: "foo"}
	idBar = common.ModuleIdentity{Group: "org.example", Name: "bar"}
)

func TestParseRule(t *testing.T) {
	assert.Equal(t, Rule{Group: "org.example", Module: "foo"}, ParseRule("org.example:foo"))
	assert.Equal(t, Rule{Module: "foo"}, ParseRule("*:foo"))
	assert.Equal(t, Rule{Group: "org.example"}, ParseRule("org.example"))
	assert.Equal(t, Rule{Group: "g", Module: "m", Artifact: "a"}, ParseRule("g:m:a"))
}

func TestForRules_ModuleMatching(t *testing.T) {
	s := ForRules([]Rule{{Group: "org.example", Module: "foo"}})
	assert.True(t, s.ExcludesModule(idFoo))
	assert.False(t, s.ExcludesModule(idBar))

	anyInGroup := ForRules([]Rule{{Group: "org.example"}})
	assert.True(t, anyInGroup.ExcludesModule(idFoo))
	assert.True(t, anyInGroup.ExcludesModule(idBar))
	assert.False(t, anyInGroup.ExcludesModule(common.ModuleIdentity{Group: "other", Name: "foo"}))
}

func TestUnion_EitherSideExcludes(t *testing.T) {
	a := ForRules([]Rule{{Module: "foo"}})
	b := ForRules([]Rule{{Module: "bar"}})
	u := Union(a, b)
	assert.True(t, u.ExcludesModule(idFoo))
	assert.True(t, u.ExcludesModule(idBar))

	assert.True(t, Union(Nothing(), a).ExcludesModule(idFoo))
	assert.False(t, Union(Nothing(), Nothing()).ExcludesModule(idFoo))
}

// The intersection law: a module reachable via one excluding path and one non-excluding path is not excluded.
func TestIntersect_AllPathsMustAgree(t *testing.T) {
	excluding := ForRules([]Rule{{Module: "foo"}})

	assert.False(t, Intersect(excluding, Nothing()).ExcludesModule(idFoo))
	assert.True(t, Intersect(excluding, excluding).ExcludesModule(idFoo))

	partial := ForRules([]Rule{{Module: "bar"}})
	both := Intersect(excluding, Union(partial, excluding))
	assert.True(t, both.ExcludesModule(idFoo))
	assert.False(t, both.ExcludesModule(idBar))
}

func TestIntersect_Empty(t *testing.T) {
	assert.False(t, Intersect().ExcludesModule(idFoo))
}

func TestArtifactScopedRules(t *testing.T) {
	s := ForRules([]Rule{{Group: "org.example", Module: "foo", Artifact: "foo-sources"}})

	// Artifact-scoped rules never exclude the whole module.
	assert.False(t, s.ExcludesModule(idFoo))
	assert.True(t, s.ExcludesArtifact(idFoo, "foo-sources"))
	assert.False(t, s.ExcludesArtifact(idFoo, "foo"))
	assert.True(t, s.MayExcludeArtifacts())

	moduleWide := ForRules([]Rule{{Module: "foo"}})
	assert.True(t, moduleWide.ExcludesArtifact(idFoo, "anything"))
	assert.False(t, moduleWide.MayExcludeArtifacts())
}

func TestMayExcludeArtifacts_ThroughIntersection(t *testing.T) {
	artifactScoped := ForRules([]Rule{{Artifact: "sources"}})
	s := Intersect(artifactScoped, artifactScoped)
	assert.True(t, s.MayExcludeArtifacts())

	s = Intersect(ForRules([]Rule{{Module: "foo"}}), ForRules([]Rule{{Module: "foo"}}))
	assert.False(t, s.MayExcludeArtifacts())
}

func TestSpec_String(t *testing.T) {
	assert.Equal(t, "excludes()", Nothing().String())
	assert.Equal(t, "excludes(org.example:foo)", ForRules([]Rule{{Group: "org.example", Module: "foo"}}).String())
}
