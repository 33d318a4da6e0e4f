// Package registry implements component metadata sources: where resolution gets its Components from. A registry is
// addressed by URL; the scheme picks the implementation.
package registry

import (
	"errors"
	"fmt"
	urlpkg "net/url"

	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/MARRISLHARRIS/gradle/resolve"
)

type Registry interface {
	URL() string
	GetComponent(key common.ModuleKey) (*resolve.Component, error)
}

var schemes = make(map[string]func(url string) (Registry, error))

func New(url string) (Registry, error) {
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	fn := schemes[u.Scheme]
	if fn == nil {
		return nil, fmt.Errorf("unrecognized registry scheme %v", u.Scheme)
	}
	return fn(url)
}

var ErrNotFound = errors.New("component not found")

// GetComponent fetches the component metadata for the given key from the list of registries, with an optional
// override registry `regOverride` (use empty string for no override). Returns the component and the registry that
// actually has it.
func GetComponent(key common.ModuleKey, registries []string, regOverride string) (*resolve.Component, Registry, error) {
	if regOverride != "" {
		reg, err := New(regOverride)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating override registry: %v", err)
		}
		c, err := reg.GetComponent(key)
		return c, reg, err
	}

	for _, url := range registries {
		reg, err := New(url)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating registry from %q: %v", url, err)
		}
		c, err := reg.GetComponent(key)
		if errors.Is(err, ErrNotFound) {
			continue
		} else if err != nil {
			return nil, reg, err
		}
		return c, reg, nil
	}

	// The component couldn't be found in any of the registries.
	return nil, nil, fmt.Errorf("%w: %v", ErrNotFound, key)
}

// Source adapts a registry list to the resolve.ComponentSource interface.
type Source struct {
	registries  []string
	regOverride string
}

func NewSource(registries []string, regOverride string) *Source {
	return &Source{registries: registries, regOverride: regOverride}
}

func (s *Source) GetComponent(key common.ModuleKey) (*resolve.Component, error) {
	c, _, err := GetComponent(key, s.registries, s.regOverride)
	return c, err
}
