package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alfredjeanlab/panelkit/internal/model"
)

// Catalog holds the known component definitions. Names in a catalog never
// collide: no name is a namespace prefix of another.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register validates d and adds it.
func (c *Catalog) Register(d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.defs {
		if name == d.Name {
			return fmt.Errorf("component %s already registered", d.Name)
		}
		if model.NamespacesCollide(name, d.Name) {
			return fmt.Errorf("component %s collides with %s: page identifiers and tables would overlap", d.Name, name)
		}
	}
	c.defs[d.Name] = d
	return nil
}

// Get returns the definition of name.
func (c *Catalog) Get(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a catalog holding the built-in components.
func Builtin() *Catalog {
	c := NewCatalog()
	for _, d := range []*Definition{Widgets(), Commerce(), Inventory(), SMS()} {
		if err := c.Register(d); err != nil {
			panic(err)
		}
	}
	return c
}
