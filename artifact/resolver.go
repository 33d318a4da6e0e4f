package artifact

import (
	"errors"
	"fmt"
	"os"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/common/integrity"
	"github.com/MARRISLHARRIS/gradle/excludes"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

// ErrArtifactUnavailable is wrapped by resolution errors whose cause is missing or corrupt artifact content.
var ErrArtifactUnavailable = errors.New("artifact content unavailable")

// VariantResolver turns declared artifact sets into resolved variants. Implementations decide what "available" means
// for the content handles.
type VariantResolver interface {
	// ResolveVariant resolves one declared artifact set, dropping artifacts the exclusion spec excludes.
	ResolveVariant(c *resolve.Component, set resolve.ArtifactSet, excl excludes.Spec) (ResolvedVariant, error)
	// ResolveAdhoc builds the single variant for edge-pinned artifact names. Names are matched against the
	// component's declared artifacts but are otherwise unvalidated.
	ResolveAdhoc(c *resolve.Component, names []string) (ResolvedVariant, error)
}

// FileVariantResolver resolves artifacts backed by local files, verifying existence and, when a descriptor carries
// integrity metadata, its checksum.
type FileVariantResolver struct{}

func (FileVariantResolver) ResolveVariant(c *resolve.Component, set resolve.ArtifactSet, excl excludes.Spec) (ResolvedVariant, error) {
	rv := ResolvedVariant{
		SetName:     set.Name,
		ComponentID: c.Key,
		Attributes:  set.Attributes,
	}
	filter := excl.MayExcludeArtifacts()
	for _, a := range set.Artifacts {
		if filter && excl.ExcludesArtifact(c.Key.ID, a.Name) {
			continue
		}
		if err := verifyContent(c.Key, a); err != nil {
			return ResolvedVariant{}, err
		}
		rv.Artifacts = append(rv.Artifacts, a)
	}
	return rv, nil
}

func (FileVariantResolver) ResolveAdhoc(c *resolve.Component, names []string) (ResolvedVariant, error) {
	rv := ResolvedVariant{
		SetName:     "adhoc",
		ComponentID: c.Key,
	}
	for _, name := range names {
		a, ok := findDeclared(c, name)
		if !ok {
			return ResolvedVariant{}, fmt.Errorf("%v declares no artifact named %q: %w", c.Key, name, ErrArtifactUnavailable)
		}
		if err := verifyContent(c.Key, a); err != nil {
			return ResolvedVariant{}, err
		}
		rv.Artifacts = append(rv.Artifacts, a)
	}
	return rv, nil
}

func verifyContent(key common.ModuleKey, a resolve.ArtifactDescriptor) error {
	if a.File == "" {
		return fmt.Errorf("artifact %v of %v has no content handle: %w", a.FileName(), key, ErrArtifactUnavailable)
	}
	if _, err := os.Stat(a.File); err != nil {
		return fmt.Errorf("artifact %v of %v: %v: %w", a.FileName(), key, err, ErrArtifactUnavailable)
	}
	if a.Integrity != "" {
		ok, err := integrity.CheckFile(a.File, a.Integrity)
		if err != nil {
			return fmt.Errorf("artifact %v of %v: %v: %w", a.FileName(), key, err, ErrArtifactUnavailable)
		}
		if !ok {
			return fmt.Errorf("artifact %v of %v failed integrity verification: %w", a.FileName(), key, ErrArtifactUnavailable)
		}
	}
	return nil
}

// findDeclared searches every artifact set of every variant for a descriptor with the given name.
func findDeclared(c *resolve.Component, name string) (resolve.ArtifactDescriptor, bool) {
	for _, v := range c.Variants {
		for _, set := range v.ArtifactSets {
			for _, a := range set.Artifacts {
				if a.Name == name {
					return a, true
				}
			}
		}
	}
	return resolve.ArtifactDescriptor{}, false
}
