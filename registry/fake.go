package registry

import (
	"fmt"
	urlpkg "net/url"
	"testing"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

// Fake is an in-memory registry for tests, addressed as "fake:<name>".
type Fake struct {
	name       string
	components map[common.ModuleKey]*resolve.Component
}

var fakes = make(map[string]*Fake)

func NewFake(name string) *Fake {
	fake := &Fake{name, make(map[common.ModuleKey]*resolve.Component)}
	fakes[name] = fake
	return fake
}

func (f *Fake) URL() string {
	return fmt.Sprintf("fake:%v", f.name)
}

func (f *Fake) AddComponent(t *testing.T, c *resolve.Component) {
	if _, exists := f.components[c.Key]; exists {
		t.Fatalf("entry already exists for %v", c.Key)
	}
	f.components[c.Key] = c
}

func (f *Fake) GetComponent(key common.ModuleKey) (*resolve.Component, error) {
	c, ok := f.components[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	return c, nil
}

func fakeScheme(url string) (Registry, error) {
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	fake := fakes[u.Opaque]
	if fake == nil {
		return nil, fmt.Errorf("unknown fake registry: %v", u.Opaque)
	}
	return fake, nil
}

func init() {
	schemes["fake"] = fakeScheme
}
