package common

import (
	"fmt"
	"strings"
)

// ModuleIdentity is the stable (group, name) pair used as the conflict
// resolution key. Two requests target the same module iff their identities
// are equal, regardless of the versions involved.
type ModuleIdentity struct {
	Group string
	Name  string
}

func (id ModuleIdentity) String() string {
	return id.Group + ":" + id.Name
}

// ParseIdentity parses a "group:name" string.
func ParseIdentity(s string) (ModuleIdentity, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ModuleIdentity{}, fmt.Errorf("invalid module identity %q (want group:name)", s)
	}
	return ModuleIdentity{Group: parts[0], Name: parts[1]}, nil
}

// ModuleKey identifies a module at a specific version.
type ModuleKey struct {
	ID      ModuleIdentity
	Version string
}

func (k ModuleKey) String() string {
	if k.Version == "" {
		return fmt.Sprintf("%v@_", k.ID)
	}
	return fmt.Sprintf("%v@%v", k.ID, k.Version)
}

// Less gives a total order over keys, used to make error reports and
// traversal results independent of map iteration order.
func (k ModuleKey) Less(other ModuleKey) bool {
	if k.ID.Group != other.ID.Group {
		return k.ID.Group < other.ID.Group
	}
	if k.ID.Name != other.ID.Name {
		return k.ID.Name < other.ID.Name
	}
	return k.Version < other.Version
}
