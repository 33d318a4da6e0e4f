// Package lockfile persists the outcome of a resolution pass: which version of every module was selected, which
// variant, and which files back it. The lockfile lets a later invocation detect drift without re-resolving.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MARRISLHARRIS/gradle/artifact"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

const FileName = "gradle.lock"

type Lockfile struct {
	// DeclarationIntegrity is the SRI expression of the PROJECT.star the snapshot was resolved from.
	DeclarationIntegrity string
	RequestAttributes    map[string]string `json:",omitempty"`
	Modules              []Module
	// Fingerprint covers the module list; see Fingerprint().
	Fingerprint string
}

type Module struct {
	Group     string
	Name      string
	Version   string
	Variant   string     `json:",omitempty"`
	Artifacts []Artifact `json:",omitempty"`
}

func (m Module) Key() common.ModuleKey {
	return common.ModuleKey{ID: common.ModuleIdentity{Group: m.Group, Name: m.Name}, Version: m.Version}
}

type Artifact struct {
	Name      string
	File      string
	Integrity string `json:",omitempty"`
}

// Snapshot captures a resolved graph and the artifacts of its default selection. The module list is sorted so the
// serialized form is stable.
func Snapshot(g *resolve.Graph, arts []artifact.ResolvedArtifact, declIntegrity string) *Lockfile {
	byKey := make(map[common.ModuleKey][]Artifact)
	for _, a := range arts {
		byKey[a.Component] = append(byKey[a.Component], Artifact{
			Name:      a.Descriptor.FileName(),
			File:      a.File,
			Integrity: a.Descriptor.Integrity,
		})
	}
	lf := &Lockfile{DeclarationIntegrity: declIntegrity}
	if !g.RequestAttributes.IsEmpty() {
		lf.RequestAttributes = make(map[string]string)
		for _, k := range g.RequestAttributes.Keys() {
			v, _ := g.RequestAttributes.Get(k)
			lf.RequestAttributes[k] = v
		}
	}
	for _, n := range g.SortedNodes() {
		m := Module{
			Group:   n.Key().ID.Group,
			Name:    n.Key().ID.Name,
			Version: n.Key().Version,
		}
		if n.Variant != nil {
			m.Variant = n.Variant.Name
		}
		m.Artifacts = byKey[n.Key()]
		lf.Modules = append(lf.Modules, m)
	}
	lf.Fingerprint = lf.computeFingerprint()
	return lf
}

// computeFingerprint hashes the selected module keys and variants, not the file paths: moving a workspace must not
// invalidate the lock.
func (lf *Lockfile) computeFingerprint() string {
	parts := make([]interface{}, 0, len(lf.Modules)+1)
	parts = append(parts, lf.DeclarationIntegrity)
	for _, m := range lf.Modules {
		parts = append(parts, fmt.Sprintf("%v/%v", m.Key(), m.Variant))
	}
	return common.Hash(parts...)
}

// UpToDate reports whether the lockfile still describes the given declaration file contents.
func (lf *Lockfile) UpToDate(declIntegrity string) bool {
	return lf.DeclarationIntegrity == declIntegrity && lf.Fingerprint == lf.computeFingerprint()
}

// Version returns the locked version for a module identity.
func (lf *Lockfile) Version(id common.ModuleIdentity) (string, bool) {
	for _, m := range lf.Modules {
		if m.Group == id.Group && m.Name == id.Name {
			return m.Version, true
		}
	}
	return "", false
}

// Write serializes the lockfile into the given project directory.
func (lf *Lockfile) Write(projectDir string) error {
	sort.Slice(lf.Modules, func(i, j int) bool { return lf.Modules[i].Key().Less(lf.Modules[j].Key()) })
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, FileName), append(data, '\n'), 0644)
}

// Read loads the lockfile from the given project directory.
func Read(projectDir string) (*Lockfile, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, FileName))
	if err != nil {
		return nil, err
	}
	lf := &Lockfile{}
	if err := json.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("malformed lockfile: %v", err)
	}
	return lf, nil
}
