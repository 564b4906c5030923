package prototype

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/riftforge/tagworld/internal/core/registry"
)

// Prototype holds the default tags an archetype grants at spawn time.
// Values are fully resolved copies; mutating a spawned entity's record never
// touches the archetype it came from.
type Prototype struct {
	Name    string `yaml:"name"`
	State   string `yaml:"state"`
	Flags   string `yaml:"flags"`   // whitespace-separated
	Extends string `yaml:"extends"` // parent archetype, composed at load
}

// Query renders the prototype's defaults as a registry query string.
func (p Prototype) Query() string {
	var parts []string
	if p.State != "" {
		parts = append(parts, "@"+p.State)
	}
	if p.Flags != "" {
		parts = append(parts, p.Flags)
	}
	return strings.Join(parts, " ")
}

type tableFile struct {
	Archetypes []Prototype `yaml:"archetypes"`
}

// Table holds all archetypes indexed by name.
type Table struct {
	byName map[string]Prototype
}

// Load reads an archetype table from a YAML file and resolves every
// `extends` chain: a child inherits the parent's flags (union) and state
// (unless it sets its own). Inheritance cycles and unknown parents are
// errors.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes %s: %w", path, err)
	}

	raw := make(map[string]Prototype, len(f.Archetypes))
	for _, p := range f.Archetypes {
		if p.Name == "" {
			return nil, fmt.Errorf("parse archetypes %s: unnamed archetype", path)
		}
		raw[p.Name] = p
	}

	t := &Table{byName: make(map[string]Prototype, len(raw))}
	for name := range raw {
		resolved, err := resolve(raw, name, nil)
		if err != nil {
			return nil, fmt.Errorf("archetype %s: %w", name, err)
		}
		t.byName[name] = resolved
	}
	return t, nil
}

func resolve(raw map[string]Prototype, name string, chain []string) (Prototype, error) {
	for _, seen := range chain {
		if seen == name {
			return Prototype{}, fmt.Errorf("inheritance cycle through %s", name)
		}
	}
	p, ok := raw[name]
	if !ok {
		return Prototype{}, fmt.Errorf("unknown parent %s", name)
	}
	if p.Extends == "" {
		return p, nil
	}
	parent, err := resolve(raw, p.Extends, append(chain, name))
	if err != nil {
		return Prototype{}, err
	}
	if p.State == "" {
		p.State = parent.State
	}
	p.Flags = mergeFlags(parent.Flags, p.Flags)
	p.Extends = ""
	return p, nil
}

// mergeFlags unions two whitespace-separated flag lists, parent first,
// keeping first-seen order.
func mergeFlags(parent, child string) string {
	seen := make(map[string]struct{}, 8)
	var out []string
	for _, f := range strings.Fields(parent + " " + child) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Get returns the resolved archetype by name.
func (t *Table) Get(name string) (Prototype, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// Count returns the number of archetypes.
func (t *Table) Count() int { return len(t.byName) }

// Spawn registers e with the named archetype's default tags plus any extra
// query parts. An unknown archetype still registers the entity with just the
// extras; the bool reports whether the archetype was found and applied.
func Spawn[E comparable](r *registry.Registry[E], t *Table, name string, e E, extra ...string) (registry.Handle, bool) {
	p, ok := t.Get(name)
	if !ok {
		return r.Register(e, extra...), false
	}
	parts := append([]string{p.Query()}, extra...)
	return r.Register(e, parts...), true
}
