package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/hashicorp/go-version"
)

// Request is one competing version request for a module identity, tagged with the node that declared it.
type Request struct {
	From       common.ModuleKey
	Constraint Constraint
}

func (r Request) String() string {
	return fmt.Sprintf("%v -> %v", r.From, r.Constraint)
}

// ConflictError reports that no single version of a module satisfies all competing requests. It carries the minimal
// set of declarations needed to explain the disagreement.
type ConflictError struct {
	ID       common.ModuleIdentity
	Reason   string
	Requests []Request
}

func (e *ConflictError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "version conflict for %v: %v\n", e.ID, e.Reason)
	sb.WriteString("  Required by:\n")
	for _, r := range e.Requests {
		fmt.Fprintf(&sb, "    - %v\n", r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ResolveVersion selects a single version for the module identity among all competing requests, or fails with a
// ConflictError. The result depends only on the set of requests, never on their order.
//
// A configuration-level forced version short-circuits everything, including strict constraint validation (see
// DESIGN.md for that policy).
func ResolveVersion(id common.ModuleIdentity, requests []Request, forced string) (string, error) {
	if forced != "" {
		return forced, nil
	}
	if len(requests) == 0 {
		return "", fmt.Errorf("no requests for %v", id)
	}

	// Sort first so every derived list (candidates, error reports) is order-independent.
	sorted := make([]Request, len(requests))
	copy(sorted, requests)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From.Less(sorted[j].From)
		}
		return sorted[i].Constraint.String() < sorted[j].Constraint.String()
	})

	type strictReq struct {
		req  Request
		cons version.Constraints
	}
	var stricts []strictReq
	wantedBy := make(map[string][]Request)
	for _, r := range sorted {
		cons, ok, err := r.Constraint.StrictConstraint()
		if err != nil {
			return "", &ConflictError{ID: id, Reason: err.Error(), Requests: []Request{r}}
		}
		if ok {
			stricts = append(stricts, strictReq{r, cons})
		}
		if w := r.Constraint.Wanted(); w != "" {
			wantedBy[w] = append(wantedBy[w], r)
		}
	}
	if len(wantedBy) == 0 {
		return "", &ConflictError{ID: id, Reason: "no constraint names a concrete version", Requests: sorted}
	}

	type candidate struct {
		raw string
		v   *version.Version
	}
	var candidates []candidate
	for raw := range wantedBy {
		v, err := version.NewVersion(raw)
		if err != nil {
			return "", &ConflictError{ID: id, Reason: fmt.Sprintf("can't parse version %q: %v", raw, err), Requests: wantedBy[raw]}
		}
		candidates = append(candidates, candidate{raw, v})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].v.Equal(candidates[j].v) {
			return candidates[i].v.GreaterThan(candidates[j].v)
		}
		// Equal versions spelled differently ("1.0" vs "1.0.0") must still order deterministically.
		return candidates[i].raw < candidates[j].raw
	})

	rejected := func(v *version.Version) (bool, error) {
		for _, r := range sorted {
			rej, err := r.Constraint.Rejects(v)
			if err != nil || rej {
				return rej, err
			}
		}
		return false, nil
	}
	violated := func(v *version.Version) []strictReq {
		var out []strictReq
		for _, s := range stricts {
			if !s.cons.Check(v) {
				out = append(out, s)
			}
		}
		return out
	}

	// The winner is the highest non-rejected candidate accepted by every strict constraint.
	var winner *candidate
	for i := range candidates {
		c := &candidates[i]
		rej, err := rejected(c.v)
		if err != nil {
			return "", &ConflictError{ID: id, Reason: err.Error(), Requests: sorted}
		}
		if rej || len(violated(c.v)) > 0 {
			continue
		}
		winner = c
		break
	}

	if winner == nil {
		if len(stricts) > 0 {
			reqs := make([]Request, 0, len(stricts))
			for _, s := range stricts {
				reqs = append(reqs, s.req)
			}
			reason := "no version satisfies the strict constraint"
			if len(stricts) > 1 {
				reason = "incompatible strict version constraints"
			}
			return "", &ConflictError{ID: id, Reason: reason, Requests: reqs}
		}
		return "", &ConflictError{ID: id, Reason: "all requested versions are rejected", Requests: sorted}
	}

	// A strict constraint must not be silently widened: any non-rejected request for a version above the winner was
	// necessarily blocked by a strict constraint, and that disagreement is a conflict, not a downgrade.
	for i := range candidates {
		c := &candidates[i]
		if !c.v.GreaterThan(winner.v) {
			break
		}
		rej, _ := rejected(c.v)
		if rej {
			continue
		}
		conflicting := violated(c.v)
		reqs := append([]Request{}, wantedBy[c.raw]...)
		for _, s := range conflicting {
			reqs = append(reqs, s.req)
		}
		return "", &ConflictError{
			ID:       id,
			Reason:   fmt.Sprintf("version %v is requested but a strict constraint holds the module at %v", c.raw, winner.raw),
			Requests: dedupeRequests(reqs),
		}
	}

	return winner.raw, nil
}

func dedupeRequests(reqs []Request) []Request {
	seen := make(map[string]bool, len(reqs))
	var out []Request
	for _, r := range reqs {
		k := r.String()
		if !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
