// Package registry holds the interop metadata registry: the closed set of
// recognized tag kinds, where each may be placed, which kinds exclude each
// other, and the identities the passes anchor on.
//
// A Registry is built once from a CUE profile and is immutable afterwards.
// Passes receive it by pointer and never modify it.
package registry

import (
	"slices"
	"strings"

	"github.com/roach88/bridgepass/internal/ir"
)

// Placement is a tag position on a method.
type Placement int

const (
	// PlaceMethod is the method/return position.
	PlaceMethod Placement = iota
	// PlaceParam is a parameter position.
	PlaceParam
)

func (p Placement) String() string {
	if p == PlaceParam {
		return "parameter"
	}
	return "return type/method"
}

// FieldKind is the value kind of a tag field.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldBool   FieldKind = "bool"
	FieldType   FieldKind = "type"
	FieldEnum   FieldKind = "enum"
	FieldArray  FieldKind = "array"
)

// FieldSchema describes one field of a tag kind. Default is nil when the
// field has no default.
type FieldSchema struct {
	Name    string
	Kind    FieldKind
	Default ir.TagValue
}

// TagKind is one recognized tag kind.
type TagKind struct {
	Name     string // descriptor, e.g. "Lorg/moe/natj/general/ann/Owned;"
	Return   bool   // legal at PlaceMethod
	Param    bool   // legal at PlaceParam
	Optional bool   // completed only at parameter positions
	Fields   []FieldSchema
}

// Registry is the immutable interop configuration.
//
// INVARIANTS (checked by Load):
//   - Tag kind names are unique
//   - ContractMarker and every group member are recognized kinds
//   - No kind appears in two groups
type Registry struct {
	Tags           []TagKind // declaration order
	Groups         [][]string
	ContractMarker string
	RuntimeTag     string
	BridgingRoot   string
	ExcludedPrefix string
	Hook           ir.MemberRef

	index map[string]int
}

func (r *Registry) buildIndex() {
	r.index = make(map[string]int, len(r.Tags))
	for i, k := range r.Tags {
		r.index[k.Name] = i
	}
}

// Lookup returns the recognized tag kind with the given descriptor.
func (r *Registry) Lookup(kind string) (TagKind, bool) {
	i, ok := r.index[kind]
	if !ok {
		return TagKind{}, false
	}
	return r.Tags[i], true
}

// Known reports whether kind is a recognized tag kind.
func (r *Registry) Known(kind string) bool {
	_, ok := r.index[kind]
	return ok
}

// All returns every recognized kind in declaration order.
func (r *Registry) All() []string {
	return r.filter(func(TagKind) bool { return true })
}

// ReturnSet returns the kinds legal at the method/return position.
func (r *Registry) ReturnSet() []string {
	return r.filter(func(k TagKind) bool { return k.Return })
}

// ParamSet returns the kinds legal at parameter positions.
func (r *Registry) ParamSet() []string {
	return r.filter(func(k TagKind) bool { return k.Param })
}

// Complete returns the kinds eligible for completion. Parameter positions
// use the optional set, which also holds kinds marked Optional; the
// method/return position uses the stricter set. The contract marker is
// never eligible.
func (r *Registry) Complete(forParam bool) []string {
	return r.filter(func(k TagKind) bool {
		if k.Name == r.ContractMarker {
			return false
		}
		return forParam || !k.Optional
	})
}

// Allowed reports whether kind may appear at the given placement.
// Unrecognized kinds are not policed and are always allowed.
func (r *Registry) Allowed(kind string, at Placement) bool {
	k, ok := r.Lookup(kind)
	if !ok {
		return true
	}
	if at == PlaceParam {
		return k.Param
	}
	return k.Return
}

// Collisions returns, for each mutual-exclusion group with more than one
// member present in kinds, the present members in group order.
func (r *Registry) Collisions(kinds []string) [][]string {
	var out [][]string
	for _, group := range r.Groups {
		var present []string
		for _, member := range group {
			if slices.Contains(kinds, member) {
				present = append(present, member)
			}
		}
		if len(present) > 1 {
			out = append(out, present)
		}
	}
	return out
}

// Excluded reports whether a type belongs to the bridging framework's own
// implementation and must be skipped by every pass.
func (r *Registry) Excluded(typeName string) bool {
	return strings.HasPrefix(typeName, r.ExcludedPrefix)
}

func (r *Registry) filter(keep func(TagKind) bool) []string {
	out := make([]string, 0, len(r.Tags))
	for _, k := range r.Tags {
		if keep(k) {
			out = append(out, k.Name)
		}
	}
	return out
}
