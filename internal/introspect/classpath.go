package introspect

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/bridgepass/internal/descriptor"
	"github.com/roach88/bridgepass/internal/ir"
)

// StreamExtensions are the file extensions LoadDir reads.
var StreamExtensions = []string{".jsonl", ".json", ".ndjson"}

// Classpath is an in-memory set of compiled types keyed by name.
//
// Types are cloned on the way in, so later mutation of the caller's
// values (for example by a pass rewriting the input stream) is never
// observed through the Classpath.
type Classpath struct {
	types map[string]*ir.CompiledType
}

// NewClasspath returns a Classpath holding clones of types.
// Later entries with a duplicate name replace earlier ones.
func NewClasspath(types ...*ir.CompiledType) *Classpath {
	c := &Classpath{types: make(map[string]*ir.CompiledType, len(types))}
	c.Add(types...)
	return c
}

// Add stores clones of types, replacing any existing entries by name.
func (c *Classpath) Add(types ...*ir.CompiledType) {
	for _, t := range types {
		if t == nil {
			continue
		}
		c.types[t.Name] = t.Clone()
	}
}

// Len returns the number of types held.
func (c *Classpath) Len() int {
	return len(c.types)
}

// Names returns all type names in sorted order.
func (c *Classpath) Names() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Types returns the held types in name order. The returned values are
// the Classpath's own clones and must not be mutated.
func (c *Classpath) Types() []*ir.CompiledType {
	names := c.Names()
	out := make([]*ir.CompiledType, len(names))
	for i, name := range names {
		out[i] = c.types[name]
	}
	return out
}

// Load reads path as a stream file, or every stream file beneath it when
// path is a directory.
func (c *Classpath) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("classpath entry: %w", err)
	}
	if info.IsDir() {
		return c.LoadDir(path)
	}
	return c.LoadFile(path)
}

// LoadFile reads a compiled-type stream file into the Classpath.
func (c *Classpath) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open classpath file: %w", err)
	}
	defer f.Close()

	types, err := ir.ReadStream(f)
	if err != nil {
		return fmt.Errorf("read classpath file %s: %w", path, err)
	}
	c.Add(types...)
	slog.Debug("classpath file loaded", "path", path, "types", len(types))
	return nil
}

// LoadDir loads every stream file under dir, recursively, in lexical
// path order.
func (c *Classpath) LoadDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !slices.Contains(StreamExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		return c.LoadFile(path)
	})
}

// ResolveType implements Introspector.
func (c *Classpath) ResolveType(name string) (*ir.CompiledType, error) {
	t, ok := c.types[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}

// DeclaredMethod implements Introspector. Candidates with an undecodable
// descriptor never match.
func (c *Classpath) DeclaredMethod(t *ir.CompiledType, name string, params []ir.TypeRef) (*ir.Method, error) {
	for _, m := range t.Methods {
		if m.Name != name {
			continue
		}
		got, _, err := descriptor.ParseMethod(m.Desc)
		if err != nil {
			continue
		}
		if slices.Equal(got, params) {
			return m, nil
		}
	}
	return nil, nil
}

// SuperclassOf implements Introspector.
func (c *Classpath) SuperclassOf(t *ir.CompiledType) (*ir.CompiledType, error) {
	if t.Super == "" {
		return nil, nil
	}
	return c.ResolveType(t.Super)
}

// InterfacesOf implements Introspector.
func (c *Classpath) InterfacesOf(t *ir.CompiledType) ([]*ir.CompiledType, error) {
	out := make([]*ir.CompiledType, 0, len(t.Interfaces))
	for _, name := range t.Interfaces {
		itf, err := c.ResolveType(name)
		if err != nil {
			return nil, fmt.Errorf("interface of %s: %w", t.Name, err)
		}
		out = append(out, itf)
	}
	return out, nil
}
