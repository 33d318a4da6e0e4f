package resolve

import (
	"testing"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idC = common.ModuleIdentity{Group: "org.example", Name: "c"}

func req(from string, c Constraint) Request {
	return Request{
		From:       common.ModuleKey{ID: common.ModuleIdentity{Group: "org.example", Name: from}, Version: "1.0"},
		Constraint: c,
	}
}

func TestResolveVersion_HighestWins(t *testing.T) {
	ver, err := ResolveVersion(idC, []Request{
		req("a", Constraint{Require: "1.0"}),
		req("b", Constraint{Require: "1.2"}),
		req("d", Constraint{Require: "1.1"}),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "1.2", ver)
}

func TestResolveVersion_OrderIndependence(t *testing.T) {
	requests := []Request{
		req("a", Constraint{Require: "1.0"}),
		req("b", Constraint{Require: "1.2"}),
		req("d", Constraint{Strict: ">=1.0, <2.0", Prefer: "1.1"}),
		req("e", Constraint{Require: "0.9"}),
	}
	want, wantErr := ResolveVersion(idC, requests, "")
	require.NoError(t, wantErr)

	perms := permutations(len(requests))
	for _, p := range perms {
		shuffled := make([]Request, len(requests))
		for i, j := range p {
			shuffled[i] = requests[j]
		}
		got, err := ResolveVersion(idC, shuffled, "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestResolveVersion_OrderIndependentFailure(t *testing.T) {
	requests := []Request{
		req("a", Constraint{Strict: "1.0"}),
		req("b", Constraint{Require: "1.1"}),
	}
	_, err1 := ResolveVersion(idC, requests, "")
	_, err2 := ResolveVersion(idC, []Request{requests[1], requests[0]}, "")
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())
}

// B strictly depends on C:1.0, A requires C:1.1 directly: the strict constraint can't be widened, so this is a
// conflict naming both declarations.
func TestResolveVersion_StrictExactConflict(t *testing.T) {
	_, err := ResolveVersion(idC, []Request{
		req("b", Constraint{Strict: "1.0"}),
		req("a", Constraint{Require: "1.1"}),
	}, "")
	require.Error(t, err)
	conflict, ok := err.(*ConflictError)
	require.True(t, ok)
	assert.Equal(t, idC, conflict.ID)
	assert.Len(t, conflict.Requests, 2)
	assert.Contains(t, err.Error(), "strictly 1.0")
	assert.Contains(t, err.Error(), "require 1.1")
}

// B strictly depends on C:[1.0,2.0) preferring 1.0, A requires C:1.1: 1.1 falls inside the strict range, so
// resolution succeeds selecting 1.1.
func TestResolveVersion_StrictRangeAllowsHigher(t *testing.T) {
	ver, err := ResolveVersion(idC, []Request{
		req("b", Constraint{Strict: ">=1.0, <2.0", Prefer: "1.0"}),
		req("a", Constraint{Require: "1.1"}),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "1.1", ver)
}

func TestResolveVersion_StrictHoldsAboveWeakerRequire(t *testing.T) {
	ver, err := ResolveVersion(idC, []Request{
		req("b", Constraint{Strict: "1.5"}),
		req("a", Constraint{Require: "1.1"}),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "1.5", ver)
}

func TestResolveVersion_IncompatibleStricts(t *testing.T) {
	_, err := ResolveVersion(idC, []Request{
		req("a", Constraint{Strict: "1.0"}),
		req("b", Constraint{Strict: "1.5"}),
	}, "")
	require.Error(t, err)
	conflict, ok := err.(*ConflictError)
	require.True(t, ok)
	assert.Equal(t, "incompatible strict version constraints", conflict.Reason)
	assert.Len(t, conflict.Requests, 2)
}

func TestResolveVersion_RejectedVersionSkipped(t *testing.T) {
	ver, err := ResolveVersion(idC, []Request{
		req("a", Constraint{Require: "1.2"}),
		req("b", Constraint{Require: "1.1", Reject: []string{"1.2"}}),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "1.1", ver)
}

func TestResolveVersion_AllRejected(t *testing.T) {
	_, err := ResolveVersion(idC, []Request{
		req("a", Constraint{Require: "1.2", Reject: []string{">=1.0"}}),
	}, "")
	require.Error(t, err)
	conflict, ok := err.(*ConflictError)
	require.True(t, ok)
	assert.Equal(t, "all requested versions are rejected", conflict.Reason)
}

// The configuration-level force is a coarser escape hatch than a strict version: it bypasses strict conflict
// detection entirely (see DESIGN.md).
func TestResolveVersion_ForceOverridesStrict(t *testing.T) {
	ver, err := ResolveVersion(idC, []Request{
		req("b", Constraint{Strict: "1.0"}),
		req("a", Constraint{Require: "1.1"}),
	}, "2.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0", ver)
}

func TestResolveVersion_EqualVersionsDifferentSpelling(t *testing.T) {
	a, err := ResolveVersion(idC, []Request{
		req("a", Constraint{Require: "1.0"}),
		req("b", Constraint{Require: "1.0.0"}),
	}, "")
	require.NoError(t, err)
	b, err := ResolveVersion(idC, []Request{
		req("b", Constraint{Require: "1.0.0"}),
		req("a", Constraint{Require: "1.0"}),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// permutations returns all permutations of [0, n).
func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var result [][]int
	for _, sub := range permutations(n - 1) {
		for pos := 0; pos <= len(sub); pos++ {
			perm := make([]int, 0, n)
			perm = append(perm, sub[:pos]...)
			perm = append(perm, n-1)
			perm = append(perm, sub[pos:]...)
			result = append(result, perm)
		}
	}
	return result
}
