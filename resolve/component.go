package resolve

import (
	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/excludes"
)

// Component is a module at a specific version, as delivered by the metadata collaborator. Components and their
// variants are immutable once constructed.
type Component struct {
	Key          common.ModuleKey
	Variants     []GraphVariant
	Dependencies []Dependency
}

// GraphVariant is one of a component's declared alternative consumable shapes (e.g. compile vs runtime), carrying the
// attributes and capabilities matched during graph resolution, plus the artifact sets representing its content.
type GraphVariant struct {
	Name         string
	Attributes   attr.Attributes
	Capabilities []Capability
	ArtifactSets []ArtifactSet
}

// ArtifactSet is a named bundle of artifact files representing one variant's content in one physical form (e.g. jar vs
// exploded classes directory).
type ArtifactSet struct {
	Name       string
	Attributes attr.Attributes
	Artifacts  []ArtifactDescriptor
}

// ArtifactDescriptor describes a single artifact file. File is the content handle (a local path once the retrieval
// collaborator has done its job); Integrity optionally carries SRI metadata for it.
type ArtifactDescriptor struct {
	Name       string
	Extension  string
	Classifier string
	File       string
	Integrity  string
}

// FileName returns the conventional file name for the artifact.
func (a ArtifactDescriptor) FileName() string {
	name := a.Name
	if a.Classifier != "" {
		name += "-" + a.Classifier
	}
	if a.Extension != "" {
		name += "." + a.Extension
	}
	return name
}

// Capability names a feature a variant provides. A variant that declares no capabilities implicitly provides the
// default capability (the component's group and name).
type Capability struct {
	Group   string
	Name    string
	Version string
}

// CapabilitySelector requests whichever variant provides the named capability.
type CapabilitySelector struct {
	Group string
	Name  string
}

func (s CapabilitySelector) String() string {
	return s.Group + ":" + s.Name
}

// Dependency is a single declared dependency edge, before resolution.
type Dependency struct {
	Target       common.ModuleIdentity
	Constraint   Constraint
	Capabilities []CapabilitySelector
	// Artifacts pins explicit artifact names, bypassing the producer's declared artifact sets.
	Artifacts []string
	// Excludes are the exclusion rules declared on this edge only. The effective exclusion of a transitive edge is
	// the intersection over all paths reaching it; see the excludes package.
	Excludes []excludes.Rule
	// Attributes override the configuration-level request attributes for variant selection of the target.
	Attributes attr.Attributes
}

// ComponentSource supplies component metadata for exact module keys. Implementations live in the registry package;
// resolution itself never parses metadata formats.
type ComponentSource interface {
	GetComponent(key common.ModuleKey) (*Component, error)
}
