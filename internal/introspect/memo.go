package introspect

import (
	"strings"

	"github.com/roach88/bridgepass/internal/ir"
)

// Memo caches lookups of an underlying Introspector for one run.
// Failures are cached too, so a missing ancestor is reported once per
// lookup path rather than re-queried for every sibling method.
type Memo struct {
	inner   Introspector
	types   map[string]typeResult
	methods map[string]methodResult
	supers  map[string]typeResult
	itfs    map[string]itfResult

	hits   int
	misses int
}

type typeResult struct {
	t   *ir.CompiledType
	err error
}

type methodResult struct {
	m   *ir.Method
	err error
}

type itfResult struct {
	ts  []*ir.CompiledType
	err error
}

// NewMemo wraps inner. Create a new Memo for every run.
func NewMemo(inner Introspector) *Memo {
	return &Memo{
		inner:   inner,
		types:   make(map[string]typeResult),
		methods: make(map[string]methodResult),
		supers:  make(map[string]typeResult),
		itfs:    make(map[string]itfResult),
	}
}

// Stats returns cache hit and miss counts.
func (m *Memo) Stats() (hits, misses int) {
	return m.hits, m.misses
}

// ResolveType implements Introspector.
func (m *Memo) ResolveType(name string) (*ir.CompiledType, error) {
	if r, ok := m.types[name]; ok {
		m.hits++
		return r.t, r.err
	}
	m.misses++
	t, err := m.inner.ResolveType(name)
	m.types[name] = typeResult{t: t, err: err}
	return t, err
}

// DeclaredMethod implements Introspector.
func (m *Memo) DeclaredMethod(t *ir.CompiledType, name string, params []ir.TypeRef) (*ir.Method, error) {
	key := methodKey(t.Name, name, params)
	if r, ok := m.methods[key]; ok {
		m.hits++
		return r.m, r.err
	}
	m.misses++
	found, err := m.inner.DeclaredMethod(t, name, params)
	m.methods[key] = methodResult{m: found, err: err}
	return found, err
}

// SuperclassOf implements Introspector.
func (m *Memo) SuperclassOf(t *ir.CompiledType) (*ir.CompiledType, error) {
	if r, ok := m.supers[t.Name]; ok {
		m.hits++
		return r.t, r.err
	}
	m.misses++
	s, err := m.inner.SuperclassOf(t)
	m.supers[t.Name] = typeResult{t: s, err: err}
	return s, err
}

// InterfacesOf implements Introspector.
func (m *Memo) InterfacesOf(t *ir.CompiledType) ([]*ir.CompiledType, error) {
	if r, ok := m.itfs[t.Name]; ok {
		m.hits++
		return r.ts, r.err
	}
	m.misses++
	ts, err := m.inner.InterfacesOf(t)
	m.itfs[t.Name] = itfResult{ts: ts, err: err}
	return ts, err
}

func methodKey(owner, name string, params []ir.TypeRef) string {
	var b strings.Builder
	b.WriteString(owner)
	b.WriteByte('.')
	b.WriteString(name)
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p.Descriptor())
	}
	b.WriteByte(')')
	return b.String()
}
