package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bridgepass/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed natj.cue
var natjSource []byte

// ConfigError reports an invalid registry profile, with the CUE source
// position when one is known.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Load(natjSource, "natj.cue")
})

// Default returns the built-in NatJ registry. It is compiled once per
// process and shared; callers must not modify it.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// DefaultSource returns the CUE source of the built-in profile.
func DefaultSource() []byte {
	return natjSource
}

// LoadFile compiles a registry profile from a CUE file.
func LoadFile(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry profile: %w", err)
	}
	return Load(src, path)
}

// Load compiles a registry profile. filename is used in error positions.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
func Load(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	profile := ctx.CompileBytes(src, cue.Filename(filename))
	if err := profile.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Registry")).Unify(profile)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	r, err := decodeRegistry(v)
	if err != nil {
		return nil, err
	}
	if err := r.check(v); err != nil {
		return nil, err
	}
	r.buildIndex()
	return r, nil
}

func decodeRegistry(v cue.Value) (*Registry, error) {
	r := &Registry{}

	var err error
	if r.ContractMarker, err = stringAt(v, "contract_marker"); err != nil {
		return nil, err
	}
	if r.RuntimeTag, err = stringAt(v, "runtime_tag"); err != nil {
		return nil, err
	}
	if r.BridgingRoot, err = stringAt(v, "bridging_root"); err != nil {
		return nil, err
	}
	if r.ExcludedPrefix, err = stringAt(v, "excluded_prefix"); err != nil {
		return nil, err
	}
	if r.Hook.Owner, err = stringAt(v, "hook.owner"); err != nil {
		return nil, err
	}
	if r.Hook.Name, err = stringAt(v, "hook.name"); err != nil {
		return nil, err
	}
	if r.Hook.Desc, err = stringAt(v, "hook.desc"); err != nil {
		return nil, err
	}

	tags, err := listAt(v, "tags")
	if err != nil {
		return nil, err
	}
	for _, tv := range tags {
		k, err := decodeTagKind(tv)
		if err != nil {
			return nil, err
		}
		r.Tags = append(r.Tags, k)
	}

	groups, err := listAt(v, "groups")
	if err != nil {
		return nil, err
	}
	for _, gv := range groups {
		members, err := gv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var group []string
		for members.Next() {
			s, err := members.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			group = append(group, s)
		}
		r.Groups = append(r.Groups, group)
	}

	return r, nil
}

func decodeTagKind(v cue.Value) (TagKind, error) {
	var k TagKind
	var err error
	if k.Name, err = stringAt(v, "name"); err != nil {
		return k, err
	}
	if k.Return, err = boolAt(v, "return"); err != nil {
		return k, err
	}
	if k.Param, err = boolAt(v, "param"); err != nil {
		return k, err
	}
	if k.Optional, err = boolAt(v, "optional"); err != nil {
		return k, err
	}

	fields, err := listAt(v, "fields")
	if err != nil {
		return k, err
	}
	for _, fv := range fields {
		f, err := decodeField(fv)
		if err != nil {
			return k, err
		}
		k.Fields = append(k.Fields, f)
	}
	return k, nil
}

func decodeField(v cue.Value) (FieldSchema, error) {
	var f FieldSchema
	name, err := stringAt(v, "name")
	if err != nil {
		return f, err
	}
	kind, err := stringAt(v, "kind")
	if err != nil {
		return f, err
	}
	f.Name = name
	f.Kind = FieldKind(kind)

	dv := v.LookupPath(cue.ParsePath("default"))
	if !dv.Exists() || !dv.IsConcrete() {
		return f, nil
	}
	f.Default, err = decodeDefault(dv, f.Kind)
	if err != nil {
		return f, &ConfigError{Field: "default", Message: fmt.Sprintf("field %s: %v", name, err), Pos: dv.Pos()}
	}
	return f, nil
}

// decodeDefault converts a concrete CUE default into a tag value of the
// declared kind.
func decodeDefault(v cue.Value, kind FieldKind) (ir.TagValue, error) {
	switch kind {
	case FieldString:
		s, err := v.String()
		return ir.TagString(s), err
	case FieldInt:
		n, err := v.Int64()
		return ir.TagInt(n), err
	case FieldBool:
		b, err := v.Bool()
		return ir.TagBool(b), err
	case FieldType:
		s, err := v.String()
		return ir.TagType(s), err
	case FieldEnum:
		typ, err := stringAt(v, "enum")
		if err != nil {
			return nil, err
		}
		val, err := stringAt(v, "value")
		if err != nil {
			return nil, err
		}
		return ir.TagEnum{Type: typ, Value: val}, nil
	case FieldArray:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		if iter.Next() {
			return nil, fmt.Errorf("array defaults must be empty")
		}
		return ir.TagArray{}, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q", kind)
	}
}

// check enforces the invariants the CUE schema cannot express.
func (r *Registry) check(v cue.Value) error {
	seen := make(map[string]bool, len(r.Tags))
	for _, k := range r.Tags {
		if seen[k.Name] {
			return &ConfigError{Field: "tags", Message: "duplicate tag kind " + k.Name, Pos: v.LookupPath(cue.ParsePath("tags")).Pos()}
		}
		seen[k.Name] = true
		if !k.Return && !k.Param {
			return &ConfigError{Field: "tags", Message: k.Name + " is legal at no position", Pos: v.LookupPath(cue.ParsePath("tags")).Pos()}
		}
	}

	if !seen[r.ContractMarker] {
		return &ConfigError{Field: "contract_marker", Message: "not a recognized tag kind: " + r.ContractMarker, Pos: v.LookupPath(cue.ParsePath("contract_marker")).Pos()}
	}

	grouped := make(map[string]int)
	gpos := v.LookupPath(cue.ParsePath("groups")).Pos()
	for i, group := range r.Groups {
		if len(group) < 2 {
			return &ConfigError{Field: "groups", Message: fmt.Sprintf("group %d needs at least two kinds", i), Pos: gpos}
		}
		for _, member := range group {
			if !seen[member] {
				return &ConfigError{Field: "groups", Message: fmt.Sprintf("group %d: not a recognized tag kind: %s", i, member), Pos: gpos}
			}
			if prev, dup := grouped[member]; dup {
				return &ConfigError{Field: "groups", Message: fmt.Sprintf("%s is in groups %d and %d", member, prev, i), Pos: gpos}
			}
			grouped[member] = i
		}
	}
	return nil
}

func stringAt(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", &ConfigError{Field: path, Message: path + " is required", Pos: v.Pos()}
	}
	f, _ = f.Default()
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func boolAt(v cue.Value, path string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return false, nil
	}
	f, _ = f.Default()
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func listAt(v cue.Value, path string) ([]cue.Value, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	f, _ = f.Default()
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
