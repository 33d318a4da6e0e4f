package resolve

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Constraint is a version constraint on a dependency edge. At most one of Require and Strict is normally set; Prefer
// names the wanted version inside a strict range, and Reject lists versions (or ranges) that must not be selected.
//
// Require is an upgradeable lower bound: conflict resolution may select a higher version requested elsewhere. Strict
// is a hard bound for the whole graph: either an exact version or a go-version constraint expression such as
// ">=1.0.0, <2.0.0". A strict constraint cannot be widened by a weaker transitive request.
type Constraint struct {
	Require string
	Strict  string
	Prefer  string
	Reject  []string
}

// Wanted returns the concrete version this constraint asks for: the preferred version if declared, else the required
// version, else an exact strict version. A strict range without a preference wants nothing concrete and returns "".
func (c Constraint) Wanted() string {
	if c.Prefer != "" {
		return c.Prefer
	}
	if c.Require != "" {
		return c.Require
	}
	if c.Strict != "" {
		if _, err := version.NewVersion(c.Strict); err == nil {
			return c.Strict
		}
	}
	return ""
}

// StrictConstraint parses the strict part, if any. An exact strict version becomes an equality constraint.
func (c Constraint) StrictConstraint() (version.Constraints, bool, error) {
	if c.Strict == "" {
		return nil, false, nil
	}
	cons, err := version.NewConstraint(c.Strict)
	if err != nil {
		return nil, false, fmt.Errorf("invalid strict constraint %q: %v", c.Strict, err)
	}
	return cons, true, nil
}

// Rejects reports whether v falls in the rejected set.
func (c Constraint) Rejects(v *version.Version) (bool, error) {
	for _, r := range c.Reject {
		cons, err := version.NewConstraint(r)
		if err != nil {
			return false, fmt.Errorf("invalid reject %q: %v", r, err)
		}
		if cons.Check(v) {
			return true, nil
		}
	}
	return false, nil
}

func (c Constraint) String() string {
	var parts []string
	if c.Require != "" {
		parts = append(parts, "require "+c.Require)
	}
	if c.Strict != "" {
		parts = append(parts, "strictly "+c.Strict)
	}
	if c.Prefer != "" {
		parts = append(parts, "prefer "+c.Prefer)
	}
	if len(c.Reject) > 0 {
		parts = append(parts, "reject "+strings.Join(c.Reject, " & "))
	}
	if len(parts) == 0 {
		return "(no constraint)"
	}
	return strings.Join(parts, ", ")
}
