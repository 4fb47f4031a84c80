package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Access flags used by the passes. Other bits are carried opaquely.
const (
	AccPublic    = 0x0001
	AccStatic    = 0x0008
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// Names of the static initializer.
const (
	ClinitName = "<clinit>"
	ClinitDesc = "()V"
)

// Opcode mnemonics the passes emit or inspect.
const (
	OpInvokeStatic = "invokestatic"
	OpReturn       = "return"
)

// CompiledType is a compiled class or interface definition.
// Identity is Name (internal form). Super is empty only for the platform root.
type CompiledType struct {
	Name       string      `json:"name"`
	Super      string      `json:"super,omitempty"`
	Interfaces []string    `json:"interfaces,omitempty"`
	Access     int         `json:"access,omitempty"`
	Version    int         `json:"version,omitempty"`
	Signature  string      `json:"signature,omitempty"`
	Source     string      `json:"source,omitempty"`
	Tags       []Tag       `json:"tags,omitempty"`
	Fields     []FieldDecl `json:"fields,omitempty"`
	Methods    []*Method   `json:"methods,omitempty"`
}

// FieldDecl is a declared field. Carried through unchanged.
type FieldDecl struct {
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Access int    `json:"access,omitempty"`
	Tags   []Tag  `json:"tags,omitempty"`
}

// Method is a declared method, owned by exactly one CompiledType.
//
// INVARIANT: len(ParamTags) equals the parameter count of Desc for every
// method the completion pass rewrites.
type Method struct {
	Name       string   `json:"name"`
	Desc       string   `json:"desc"`
	Access     int      `json:"access,omitempty"`
	Signature  string   `json:"signature,omitempty"`
	Exceptions []string `json:"exceptions,omitempty"`
	Tags       []Tag    `json:"tags,omitempty"`       // method/return position
	ParamTags  []TagSet `json:"param_tags,omitempty"` // one set per parameter
	Code       *Code    `json:"code,omitempty"`       // nil for abstract/native
}

// MarshalJSON implements json.Marshaler for Method. param_tags is omitted
// when every set is empty, the shape ReadStream sizes back.
func (m Method) MarshalJSON() ([]byte, error) {
	type plain Method
	out := plain(m)
	if !slices.ContainsFunc(m.ParamTags, func(s TagSet) bool { return len(s) > 0 }) {
		out.ParamTags = nil
	}
	return marshalNoEscape(out)
}

// Code is a method body.
type Code struct {
	MaxStack     int           `json:"max_stack,omitempty"`
	MaxLocals    int           `json:"max_locals,omitempty"`
	Instructions []Instruction `json:"instructions,omitempty"`
	Handlers     []Handler     `json:"handlers,omitempty"`
}

// Instruction is one opcode in a method body.
// Member instructions use Owner/Name/Desc; branches use Target (an
// instruction index); switches use Targets.
type Instruction struct {
	Op      string `json:"op"`
	Owner   string `json:"owner,omitempty"`
	Name    string `json:"name,omitempty"`
	Desc    string `json:"desc,omitempty"`
	Itf     bool   `json:"itf,omitempty"`
	Operand string `json:"operand,omitempty"`
	Target  *int   `json:"target,omitempty"`
	Targets []int  `json:"targets,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Handler is an exception table entry over instruction indexes [Start, End).
type Handler struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Handler int    `json:"handler"`
	Type    string `json:"type,omitempty"`
}

// Tag is a metadata record attached to a type, method, or parameter.
// Type is the tag kind as a descriptor, e.g. "Lorg/moe/natj/objc/ann/Selector;".
type Tag struct {
	Type    string     `json:"type"`
	Visible bool       `json:"visible,omitempty"`
	Fields  []TagField `json:"fields,omitempty"`
}

// TagSet is the tags at one parameter position. A nil set encodes as [],
// so positional alignment survives the stream.
type TagSet []Tag

// MarshalJSON implements json.Marshaler for TagSet.
func (s TagSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Tag(s))
}

// TagField is one named value of a Tag. Fields keep declaration order.
type TagField struct {
	Name  string
	Value TagValue
}

// MarshalJSON implements json.Marshaler for TagField.
func (f TagField) MarshalJSON() ([]byte, error) {
	name, err := marshalNoEscape(f.Name)
	if err != nil {
		return nil, err
	}
	val, err := MarshalTagValue(f.Value)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.Name, err)
	}
	out := make([]byte, 0, len(name)+len(val)+20)
	out = append(out, `{"name":`...)
	out = append(out, name...)
	out = append(out, `,"value":`...)
	out = append(out, val...)
	out = append(out, '}')
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler for TagField.
func (f *TagField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("tag field: name is required")
	}
	v, err := UnmarshalTagValue(raw.Value)
	if err != nil {
		return fmt.Errorf("tag field %q: %w", raw.Name, err)
	}
	f.Name = raw.Name
	f.Value = v
	return nil
}

// Field returns the value of the named field, if present.
func (t Tag) Field(name string) (TagValue, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// FindTag returns the tag of the given kind in tags.
func FindTag(tags []Tag, kind string) (Tag, bool) {
	for _, t := range tags {
		if t.Type == kind {
			return t, true
		}
	}
	return Tag{}, false
}

// HasTag reports whether tags contains a tag of the given kind.
func HasTag(tags []Tag, kind string) bool {
	_, ok := FindTag(tags, kind)
	return ok
}

// TagKinds returns the kinds in tags, in order, without duplicates.
func TagKinds(tags []Tag) []string {
	kinds := make([]string, 0, len(tags))
	for _, t := range tags {
		if !slices.Contains(kinds, t.Type) {
			kinds = append(kinds, t.Type)
		}
	}
	return kinds
}

// FindMethod returns the first method with the given name and descriptor.
func (t *CompiledType) FindMethod(name, desc string) (*Method, int) {
	for i, m := range t.Methods {
		if m.Name == name && m.Desc == desc {
			return m, i
		}
	}
	return nil, -1
}

// Clinit returns the static initializer and its index, or (nil, -1).
func (t *CompiledType) Clinit() (*Method, int) {
	for i, m := range t.Methods {
		if m.Name == ClinitName {
			return m, i
		}
	}
	return nil, -1
}

// IsInterface reports whether the type is an interface.
func (t *CompiledType) IsInterface() bool {
	return t.Access&AccInterface != 0
}

// Clone returns a deep copy. Tag values are immutable and shared.
func (t *CompiledType) Clone() *CompiledType {
	if t == nil {
		return nil
	}
	c := *t
	c.Interfaces = slices.Clone(t.Interfaces)
	c.Tags = cloneTags(t.Tags)
	if t.Fields != nil {
		c.Fields = make([]FieldDecl, len(t.Fields))
		for i, f := range t.Fields {
			f.Tags = cloneTags(f.Tags)
			c.Fields[i] = f
		}
	}
	if t.Methods != nil {
		c.Methods = make([]*Method, len(t.Methods))
		for i, m := range t.Methods {
			c.Methods[i] = m.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	if m == nil {
		return nil
	}
	c := *m
	c.Exceptions = slices.Clone(m.Exceptions)
	c.Tags = cloneTags(m.Tags)
	if m.ParamTags != nil {
		c.ParamTags = make([]TagSet, len(m.ParamTags))
		for i, p := range m.ParamTags {
			c.ParamTags[i] = cloneTags(p)
		}
	}
	c.Code = m.Code.Clone()
	return &c
}

// Clone returns a deep copy of the body.
func (c *Code) Clone() *Code {
	if c == nil {
		return nil
	}
	out := *c
	if c.Instructions != nil {
		out.Instructions = make([]Instruction, len(c.Instructions))
		for i, insn := range c.Instructions {
			out.Instructions[i] = insn.Clone()
		}
	}
	out.Handlers = slices.Clone(c.Handlers)
	return &out
}

// Clone returns a deep copy of the instruction.
func (in Instruction) Clone() Instruction {
	if in.Target != nil {
		target := *in.Target
		in.Target = &target
	}
	in.Targets = slices.Clone(in.Targets)
	return in
}

// Calls reports whether the instruction invokes the given member.
func (in Instruction) Calls(ref MemberRef) bool {
	return isInvoke(in.Op) && in.Owner == ref.Owner && in.Name == ref.Name && in.Desc == ref.Desc
}

func isInvoke(op string) bool {
	switch op {
	case "invokestatic", "invokevirtual", "invokespecial", "invokeinterface":
		return true
	default:
		return false
	}
}

func cloneTags(tags []Tag) []Tag {
	if tags == nil {
		return nil
	}
	out := make([]Tag, len(tags))
	for i, t := range tags {
		t.Fields = slices.Clone(t.Fields)
		out[i] = t
	}
	return out
}
