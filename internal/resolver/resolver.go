// Package resolver walks ancestor chains and interface sets to find the
// declaration a method overrides, and decides whether a type descends
// from the bridging root.
//
// All lookups go through an introspect.Introspector. Lookup failures never
// escape the exported Resolve* methods: they become warning records and a
// "not found" result.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/bridgepass/internal/descriptor"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/introspect"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/registry"
)

// ErrAncestryCycle is returned when a superclass chain loops.
var ErrAncestryCycle = errors.New("ancestry cycle")

// Declaration is a resolved contract declaration: the method carrying the
// contract marker and the type that declares it.
type Declaration struct {
	Owner  string
	Method *ir.Method
}

// Resolver answers contract and ancestry questions for one run.
//
// CRITICAL: construct a new Resolver per run. It caches ancestry answers
// and must never observe a different type universe.
type Resolver struct {
	types  introspect.Introspector
	parser descriptor.Parser
	reg    *registry.Registry
	sink   diag.Sink
	stage  string

	bridging map[string]bridgingAnswer
	warned   map[string]bool // owner + "\x00" + type name
}

// bridgingAnswer is a cached ancestry walk. err is set when the walk
// failed, in which case ok is false.
type bridgingAnswer struct {
	ok  bool
	err error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStage labels the records the resolver emits.
func WithStage(stage string) Option {
	return func(r *Resolver) {
		r.stage = stage
	}
}

// New creates a Resolver. A nil sink discards records.
func New(types introspect.Introspector, reg *registry.Registry, sink diag.Sink, opts ...Option) *Resolver {
	if sink == nil {
		sink = diag.Discard
	}
	r := &Resolver{
		types:    types,
		parser:   descriptor.Parser{Types: types},
		reg:      reg,
		sink:     sink,
		bridging: make(map[string]bridgingAnswer),
		warned:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveContractDeclaration finds the declaration carrying the contract
// marker that a method named name with descriptor desc overrides.
//
// owner is the type declaring the override and is used only to label
// warnings. start is owner's superclass and interfaces its directly
// implemented interfaces. Any lookup failure emits a warning and reports
// not found.
func (r *Resolver) ResolveContractDeclaration(owner, start string, interfaces []string, name, desc string) (*Declaration, bool) {
	decl, err := r.Lookup(start, interfaces, name, desc)
	if err != nil {
		code := diag.CodeTypeNotFound
		switch {
		case errors.Is(err, descriptor.ErrMalformedSignature):
			code = diag.CodeMalformedSignature
		case errors.Is(err, ErrAncestryCycle):
			code = diag.CodeAncestryCycle
		}
		r.sink.Emit(diag.Record{
			Severity: diag.SeverityWarning,
			Code:     code,
			Stage:    r.stage,
			Type:     owner,
			Method:   name + desc,
			Message:  fmt.Sprintf("failed to locate parent method implementation: %v", err),
		})
		return nil, false
	}
	return decl, decl != nil
}

// Lookup performs the level walk and returns lookup failures as errors.
// It returns (nil, nil) when no marked declaration exists.
//
// Level 1 checks start itself, then the transitive closure of interfaces.
// Level k>1 checks the level's type, then the transitive closure of the
// interfaces of the level k-1 type. The walk stops after the level whose
// type has no superclass, so the root's own interfaces are never checked.
// A type's own declaration always wins over interfaces at the same level.
func (r *Resolver) Lookup(start string, interfaces []string, name, desc string) (*Declaration, error) {
	if start == "" {
		return nil, nil
	}

	params, err := r.parser.Params(desc)
	if err != nil {
		return nil, err
	}

	cls, err := r.types.ResolveType(start)
	if err != nil {
		return nil, err
	}

	var prev *ir.CompiledType
	visited := make(map[string]bool)
	for depth := 1; ; depth++ {
		if visited[cls.Name] {
			return nil, fmt.Errorf("%w at %s", ErrAncestryCycle, cls.Name)
		}
		visited[cls.Name] = true
		slog.Debug("contract lookup level", "type", cls.Name, "method", name+desc, "depth", depth)

		m, err := r.types.DeclaredMethod(cls, name, params)
		if err != nil {
			return nil, err
		}
		if r.marked(m) {
			slog.Debug("contract declaration matched", "owner", cls.Name, "depth", depth)
			return &Declaration{Owner: cls.Name, Method: m}, nil
		}

		var roots []*ir.CompiledType
		if prev == nil {
			for _, itfName := range interfaces {
				itf, err := r.types.ResolveType(itfName)
				if err != nil {
					return nil, err
				}
				roots = append(roots, itf)
			}
		} else {
			roots, err = r.types.InterfacesOf(prev)
			if err != nil {
				return nil, err
			}
		}

		itfs, err := r.closure(roots)
		if err != nil {
			return nil, err
		}
		for _, itf := range itfs {
			m, err := r.types.DeclaredMethod(itf, name, params)
			if err != nil {
				return nil, err
			}
			if r.marked(m) {
				slog.Debug("contract declaration matched", "owner", itf.Name, "depth", depth, "interface", true)
				return &Declaration{Owner: itf.Name, Method: m}, nil
			}
		}

		super, err := r.types.SuperclassOf(cls)
		if err != nil {
			return nil, err
		}
		if super == nil {
			return nil, nil
		}
		prev, cls = cls, super
	}
}

// closure returns roots plus every interface they reach, deduplicated and
// sorted by name.
func (r *Resolver) closure(roots []*ir.CompiledType) ([]*ir.CompiledType, error) {
	seen := make(map[string]*ir.CompiledType)
	var visit func(t *ir.CompiledType) error
	visit = func(t *ir.CompiledType) error {
		if _, ok := seen[t.Name]; ok {
			return nil
		}
		seen[t.Name] = t
		inner, err := r.types.InterfacesOf(t)
		if err != nil {
			return err
		}
		for _, itf := range inner {
			if err := visit(itf); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}

	out := make([]*ir.CompiledType, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *ir.CompiledType) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *Resolver) marked(m *ir.Method) bool {
	return m != nil && ir.HasTag(m.Tags, r.reg.ContractMarker)
}

// IsBridgingDescendant reports whether typeName is the bridging root or
// descends from it. owner is the type asking and labels the warning; it
// defaults to typeName. Walk results are cached for the life of the
// Resolver, but a failed walk is reported once for every owner that
// depends on it, and the answer is then false.
func (r *Resolver) IsBridgingDescendant(owner, typeName string) bool {
	if typeName == "" {
		return false
	}
	if owner == "" {
		owner = typeName
	}
	ans, cached := r.bridging[typeName]
	if !cached {
		ok, err := r.bridgingWalk(typeName)
		ans = bridgingAnswer{ok: ok && err == nil, err: err}
		r.bridging[typeName] = ans
	}
	if ans.err != nil {
		key := owner + "\x00" + typeName
		if !r.warned[key] {
			r.warned[key] = true
			r.sink.Emit(diag.Record{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeAncestryUnresolved,
				Stage:    r.stage,
				Type:     owner,
				Message:  fmt.Sprintf("failed to process class hierarchy, assuming not a bridging descendant: %v", ans.err),
			})
		}
	}
	return ans.ok
}

func (r *Resolver) bridgingWalk(typeName string) (bool, error) {
	if typeName == r.reg.BridgingRoot {
		return true, nil
	}
	cls, err := r.types.ResolveType(typeName)
	if err != nil {
		return false, err
	}
	visited := make(map[string]bool)
	for depth := 1; cls != nil; depth++ {
		slog.Debug("bridging ancestry level", "type", cls.Name, "depth", depth)
		if cls.Name == r.reg.BridgingRoot || cls.Super == r.reg.BridgingRoot {
			return true, nil
		}
		if visited[cls.Name] {
			return false, fmt.Errorf("%w at %s", ErrAncestryCycle, cls.Name)
		}
		visited[cls.Name] = true
		cls, err = r.types.SuperclassOf(cls)
		if err != nil {
			return false, err
		}
	}
	return false, nil
}
