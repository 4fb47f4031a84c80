// Package completion copies missing interop tags from a resolved contract
// declaration onto the methods that override it.
//
// For each method of a type outside the excluded namespace:
//
//  1. Resolve the contract declaration (resolver.ResolveContractDeclaration).
//  2. Skip the method if it carries the contract marker itself.
//  3. Per position, injectable = complete set ∩ parent kinds − own kinds.
//  4. Validate every position (placement, collision, cardinality).
//  5. Copy each injectable tag from the parent.
//  6. Emit an I100 record when at least one tag was added.
//
// CRITICAL: Transform never mutates its input. The first method that
// needs a change triggers a deep clone of the type; types with nothing to
// complete are returned as-is.
package completion

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/bridgepass/internal/descriptor"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/registry"
	"github.com/roach88/bridgepass/internal/resolver"
)

// StageName identifies this pass in records and pipeline errors.
const StageName = "completion"

// Pass is the metadata completion pass.
type Pass struct {
	reg      *registry.Registry
	resolver *resolver.Resolver
	sink     diag.Sink
}

// New creates a completion pass. The resolver must be dedicated to the
// current run. A nil sink discards records.
func New(reg *registry.Registry, res *resolver.Resolver, sink diag.Sink) *Pass {
	if sink == nil {
		sink = diag.Discard
	}
	return &Pass{reg: reg, resolver: res, sink: sink}
}

// Name returns the stage name.
func (p *Pass) Name() string {
	return StageName
}

// Transform completes every override in t. It returns t itself when
// nothing changes, and a modified clone otherwise.
func (p *Pass) Transform(t *ir.CompiledType) (*ir.CompiledType, error) {
	if p.reg.Excluded(t.Name) {
		return t, nil
	}

	var out *ir.CompiledType
	for i, m := range t.Methods {
		decl, ok := p.resolver.ResolveContractDeclaration(t.Name, t.Super, t.Interfaces, m.Name, m.Desc)
		if !ok {
			continue
		}
		if ir.HasTag(m.Tags, p.reg.ContractMarker) {
			slog.Debug("override carries contract marker, skipping", "type", t.Name, "method", m.Name+m.Desc)
			continue
		}

		plan, err := p.plan(t.Name, m, decl)
		if err != nil {
			return nil, err
		}
		if plan.empty() {
			continue
		}

		if out == nil {
			out = t.Clone()
		}
		plan.apply(out.Methods[i])

		kinds := plan.kinds()
		p.sink.Emit(diag.Record{
			Severity: diag.SeverityInfo,
			Code:     diag.CodeTagsInjected,
			Stage:    StageName,
			Type:     t.Name,
			Method:   m.Name + m.Desc,
			Message: fmt.Sprintf("injected %d tag(s) from %s.%s%s: %s",
				plan.count(), decl.Owner, decl.Method.Name, decl.Method.Desc, strings.Join(kinds, ", ")),
		})
	}

	if out == nil {
		return t, nil
	}
	return out, nil
}

// plan holds the tags to add to one method.
type plan struct {
	method []ir.Tag
	params [][]ir.Tag
}

func (pl *plan) empty() bool {
	return pl.count() == 0
}

func (pl *plan) count() int {
	n := len(pl.method)
	for _, p := range pl.params {
		n += len(p)
	}
	return n
}

func (pl *plan) kinds() []string {
	var out []string
	add := func(tags []ir.Tag) {
		for _, t := range tags {
			if !slices.Contains(out, t.Type) {
				out = append(out, t.Type)
			}
		}
	}
	add(pl.method)
	for _, p := range pl.params {
		add(p)
	}
	return out
}

func (pl *plan) apply(m *ir.Method) {
	m.Tags = append(m.Tags, pl.method...)
	for i, adds := range pl.params {
		if len(adds) > 0 {
			m.ParamTags[i] = append(m.ParamTags[i], adds...)
		}
	}
}

// plan validates every position of m against its parent declaration and
// computes the tags to inject. Nothing is injected if any position fails.
func (p *Pass) plan(typeName string, m *ir.Method, decl *resolver.Declaration) (*plan, error) {
	parent := decl.Method
	method := m.Name + m.Desc

	if err := checkCardinality(typeName, method, m, ""); err != nil {
		return nil, err
	}
	if err := checkCardinality(typeName, method, parent, "parent declaration "+decl.Owner+"."+parent.Name+parent.Desc+": "); err != nil {
		return nil, err
	}

	if err := p.validate(typeName, method, MethodPosition, m.Tags, parent.Tags); err != nil {
		return nil, err
	}
	for i := range m.ParamTags {
		if err := p.validate(typeName, method, i, m.ParamTags[i], parent.ParamTags[i]); err != nil {
			return nil, err
		}
	}

	pl := &plan{params: make([][]ir.Tag, len(m.ParamTags))}
	var err error
	if pl.method, err = p.inject(false, m.Tags, parent.Tags); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", typeName, method, err)
	}
	for i := range m.ParamTags {
		if pl.params[i], err = p.inject(true, m.ParamTags[i], parent.ParamTags[i]); err != nil {
			return nil, fmt.Errorf("%s.%s parameter %d: %w", typeName, method, i, err)
		}
	}
	return pl, nil
}

func checkCardinality(typeName, method string, m *ir.Method, prefix string) error {
	n, err := descriptor.ParamCount(m.Desc)
	if err != nil {
		return &Error{Code: CodeCardinality, Type: typeName, Method: method, Position: MethodPosition,
			Detail: prefix + err.Error()}
	}
	if len(m.ParamTags) != n {
		return &Error{Code: CodeCardinality, Type: typeName, Method: method, Position: MethodPosition,
			Detail: fmt.Sprintf("%shas %d parameter tag set(s), descriptor declares %d parameter(s)", prefix, len(m.ParamTags), n)}
	}
	return nil
}

// validate checks the union of own and parent kinds at one position.
// Own kinds come first; a kind both sides carry appears once.
func (p *Pass) validate(typeName, method string, pos int, own, parent []ir.Tag) error {
	union := ir.TagKinds(own)
	for _, k := range ir.TagKinds(parent) {
		if !slices.Contains(union, k) {
			union = append(union, k)
		}
	}

	at := registry.PlaceMethod
	if pos != MethodPosition {
		at = registry.PlaceParam
	}
	for _, k := range union {
		if !p.reg.Allowed(k, at) {
			return &Error{Code: CodePlacement, Type: typeName, Method: method, Position: pos, Tags: []string{k}}
		}
	}
	if groups := p.reg.Collisions(union); len(groups) > 0 {
		return &Error{Code: CodeCollision, Type: typeName, Method: method, Position: pos, Tags: groups[0]}
	}
	return nil
}

// inject builds copies of the parent tags whose kinds are eligible and
// not already present on the override.
func (p *Pass) inject(forParam bool, own, parent []ir.Tag) ([]ir.Tag, error) {
	var out []ir.Tag
	for _, kind := range p.reg.Complete(forParam) {
		if ir.HasTag(own, kind) {
			continue
		}
		src, ok := ir.FindTag(parent, kind)
		if !ok {
			continue
		}
		tag, err := p.copyTag(src)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

// copyTag builds a new tag from src. Schema fields come first, taking the
// parent's value or else the schema default; fields the schema does not
// name follow in the parent's order.
func (p *Pass) copyTag(src ir.Tag) (ir.Tag, error) {
	out := ir.Tag{Type: src.Type, Visible: true}
	kind, _ := p.reg.Lookup(src.Type)

	named := make(map[string]bool, len(kind.Fields))
	for _, f := range kind.Fields {
		named[f.Name] = true
		v, ok := src.Field(f.Name)
		if !ok {
			if f.Default == nil {
				continue
			}
			v = f.Default
		}
		cv, err := copyValue(v)
		if err != nil {
			return ir.Tag{}, fmt.Errorf("tag %s field %s: %w", src.Type, f.Name, err)
		}
		out.Fields = append(out.Fields, ir.TagField{Name: f.Name, Value: cv})
	}
	for _, f := range src.Fields {
		if named[f.Name] {
			continue
		}
		cv, err := copyValue(f.Value)
		if err != nil {
			return ir.Tag{}, fmt.Errorf("tag %s field %s: %w", src.Type, f.Name, err)
		}
		out.Fields = append(out.Fields, ir.TagField{Name: f.Name, Value: cv})
	}
	return out, nil
}

// copyValue copies scalars by value, re-encodes type references through
// the descriptor parser, and copies arrays element-wise.
func copyValue(v ir.TagValue) (ir.TagValue, error) {
	switch val := v.(type) {
	case ir.TagType:
		ref, err := descriptor.ParseType(string(val))
		if err != nil {
			return nil, err
		}
		return ir.TagType(ref.Descriptor()), nil
	case ir.TagArray:
		out := make(ir.TagArray, len(val))
		for i, elem := range val {
			cv, err := copyValue(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}
