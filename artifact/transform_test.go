package artifact

import (
	"testing"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindChain_AlreadySatisfied(t *testing.T) {
	reg := NewTransformRegistry(nil)
	chain, ok := reg.FindChain(
		attr.New(map[string]string{"format": "jar"}),
		attr.New(map[string]string{"format": "jar"}),
	)
	require.True(t, ok)
	assert.Empty(t, chain)
}

func TestFindChain_SingleStep(t *testing.T) {
	reg := NewTransformRegistry(nil)
	reg.Register(Transform{
		Name: "explode",
		From: attr.New(map[string]string{"format": "jar"}),
		To:   attr.New(map[string]string{"format": "exploded"}),
	})

	chain, ok := reg.FindChain(
		attr.New(map[string]string{"format": "jar"}),
		attr.New(map[string]string{"format": "exploded"}),
	)
	require.True(t, ok)
	require.Len(t, chain, 1)
	assert.Equal(t, "explode", chain[0].Name)
}

func TestFindChain_MultiStepShortestWins(t *testing.T) {
	reg := NewTransformRegistry(nil)
	reg.Register(Transform{
		Name: "unzip",
		From: attr.New(map[string]string{"format": "zip"}),
		To:   attr.New(map[string]string{"format": "dir"}),
	})
	reg.Register(Transform{
		Name: "index",
		From: attr.New(map[string]string{"format": "dir"}),
		To:   attr.New(map[string]string{"format": "index"}),
	})
	// A one-step shortcut to the same target, registered last.
	reg.Register(Transform{
		Name: "index-zip",
		From: attr.New(map[string]string{"format": "zip"}),
		To:   attr.New(map[string]string{"format": "index"}),
	})

	chain, ok := reg.FindChain(
		attr.New(map[string]string{"format": "zip"}),
		attr.New(map[string]string{"format": "index"}),
	)
	require.True(t, ok)
	require.Len(t, chain, 1)
	assert.Equal(t, "index-zip", chain[0].Name)

	// The two-step path is still found when it is the only one.
	reg2 := NewTransformRegistry(nil)
	reg2.Register(Transform{
		Name: "unzip",
		From: attr.New(map[string]string{"format": "zip"}),
		To:   attr.New(map[string]string{"format": "dir"}),
	})
	reg2.Register(Transform{
		Name: "index",
		From: attr.New(map[string]string{"format": "dir"}),
		To:   attr.New(map[string]string{"format": "index"}),
	})
	chain, ok = reg2.FindChain(
		attr.New(map[string]string{"format": "zip"}),
		attr.New(map[string]string{"format": "index"}),
	)
	require.True(t, ok)
	require.Len(t, chain, 2)
	assert.Equal(t, "unzip", chain[0].Name)
	assert.Equal(t, "index", chain[1].Name)
}

func TestFindChain_NoChain(t *testing.T) {
	reg := NewTransformRegistry(nil)
	reg.Register(Transform{
		Name: "explode",
		From: attr.New(map[string]string{"format": "jar"}),
		To:   attr.New(map[string]string{"format": "exploded"}),
	})

	_, ok := reg.FindChain(
		attr.New(map[string]string{"format": "pom"}),
		attr.New(map[string]string{"format": "exploded"}),
	)
	assert.False(t, ok)
}

func TestFindChain_RegisterInvalidatesMemo(t *testing.T) {
	reg := NewTransformRegistry(nil)
	from := attr.New(map[string]string{"format": "jar"})
	to := attr.New(map[string]string{"format": "exploded"})

	_, ok := reg.FindChain(from, to)
	require.False(t, ok)

	reg.Register(Transform{Name: "explode", From: from, To: to})
	chain, ok := reg.FindChain(from, to)
	require.True(t, ok)
	assert.Len(t, chain, 1)
}

func TestFindChain_RespectsCompatibilityRules(t *testing.T) {
	schema := attr.NewSchema()
	schema.SetCompatibilityRule("format", func(requested, candidate string) bool {
		return requested == "archive" && candidate == "jar"
	})
	reg := NewTransformRegistry(schema)
	reg.Register(Transform{
		Name: "repack",
		From: attr.New(map[string]string{"format": "archive"}),
		To:   attr.New(map[string]string{"format": "tar"}),
	})

	chain, ok := reg.FindChain(
		attr.New(map[string]string{"format": "jar"}),
		attr.New(map[string]string{"format": "tar"}),
	)
	require.True(t, ok)
	assert.Len(t, chain, 1)
}
