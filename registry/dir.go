package registry

import (
	"encoding/json"
	"fmt"
	urlpkg "net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/excludes"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

// Dir is a directory-backed registry ("file:///path"): component metadata lives at
// <root>/<group>/<name>/<version>/component.json, with artifact files referenced relative to that directory.
type Dir struct {
	url  string
	root string
}

func NewDir(url string, root string) *Dir {
	return &Dir{url: url, root: root}
}

func (d *Dir) URL() string {
	return d.url
}

func (d *Dir) GetComponent(key common.ModuleKey) (*resolve.Component, error) {
	dir := filepath.Join(d.root, key.ID.Group, key.ID.Name, key.Version)
	raw, err := os.ReadFile(filepath.Join(dir, "component.json"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, key)
	} else if err != nil {
		return nil, err
	}
	var cj componentJSON
	if err := json.Unmarshal(raw, &cj); err != nil {
		return nil, fmt.Errorf("malformed metadata for %v: %v", key, err)
	}
	c, err := cj.toComponent(dir)
	if err != nil {
		return nil, fmt.Errorf("malformed metadata for %v: %v", key, err)
	}
	if c.Key != key {
		return nil, fmt.Errorf("metadata at %v identifies itself as %v, expected %v", dir, c.Key, key)
	}
	return c, nil
}

type componentJSON struct {
	Group        string           `json:"group"`
	Name         string           `json:"name"`
	Version      string           `json:"version"`
	Variants     []variantJSON    `json:"variants"`
	Dependencies []dependencyJSON `json:"dependencies"`
}

type variantJSON struct {
	Name         string            `json:"name"`
	Attributes   map[string]string `json:"attributes"`
	Capabilities []capabilityJSON  `json:"capabilities"`
	ArtifactSets []artifactSetJSON `json:"artifactSets"`
}

type capabilityJSON struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type artifactSetJSON struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	Artifacts  []artifactJSON    `json:"artifacts"`
}

type artifactJSON struct {
	Name       string `json:"name"`
	Extension  string `json:"extension"`
	Classifier string `json:"classifier"`
	File       string `json:"file"`
	Integrity  string `json:"integrity"`
}

type dependencyJSON struct {
	Group        string            `json:"group"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Strictly     string            `json:"strictly"`
	Prefer       string            `json:"prefer"`
	Reject       []string          `json:"reject"`
	Excludes     []string          `json:"excludes"`
	Artifacts    []string          `json:"artifacts"`
	Capabilities []string          `json:"capabilities"`
	Attributes   map[string]string `json:"attributes"`
}

func (cj *componentJSON) toComponent(dir string) (*resolve.Component, error) {
	c := &resolve.Component{
		Key: common.ModuleKey{
			ID:      common.ModuleIdentity{Group: cj.Group, Name: cj.Name},
			Version: cj.Version,
		},
	}
	for _, vj := range cj.Variants {
		v := resolve.GraphVariant{
			Name:       vj.Name,
			Attributes: attr.New(vj.Attributes),
		}
		for _, capj := range vj.Capabilities {
			v.Capabilities = append(v.Capabilities, resolve.Capability(capj))
		}
		for _, sj := range vj.ArtifactSets {
			set := resolve.ArtifactSet{
				Name:       sj.Name,
				Attributes: attr.New(sj.Attributes),
			}
			for _, aj := range sj.Artifacts {
				file := aj.File
				if file != "" && !filepath.IsAbs(file) {
					file = filepath.Join(dir, file)
				}
				set.Artifacts = append(set.Artifacts, resolve.ArtifactDescriptor{
					Name:       aj.Name,
					Extension:  aj.Extension,
					Classifier: aj.Classifier,
					File:       file,
					Integrity:  aj.Integrity,
				})
			}
			v.ArtifactSets = append(v.ArtifactSets, set)
		}
		c.Variants = append(c.Variants, v)
	}
	for _, dj := range cj.Dependencies {
		dep, err := dj.toDependency()
		if err != nil {
			return nil, err
		}
		c.Dependencies = append(c.Dependencies, dep)
	}
	return c, nil
}

func (dj *dependencyJSON) toDependency() (resolve.Dependency, error) {
	dep := resolve.Dependency{
		Target: common.ModuleIdentity{Group: dj.Group, Name: dj.Name},
		Constraint: resolve.Constraint{
			Require: dj.Version,
			Strict:  dj.Strictly,
			Prefer:  dj.Prefer,
			Reject:  dj.Reject,
		},
		Artifacts:  dj.Artifacts,
		Attributes: attr.New(dj.Attributes),
	}
	for _, e := range dj.Excludes {
		dep.Excludes = append(dep.Excludes, excludes.ParseRule(e))
	}
	for _, capstr := range dj.Capabilities {
		parts := strings.SplitN(capstr, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return resolve.Dependency{}, fmt.Errorf("invalid capability selector %q (want group:name)", capstr)
		}
		dep.Capabilities = append(dep.Capabilities, resolve.CapabilitySelector{Group: parts[0], Name: parts[1]})
	}
	return dep, nil
}

func dirScheme(url string) (Registry, error) {
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	return NewDir(url, u.Path), nil
}

func init() {
	schemes["file"] = dirScheme
}
