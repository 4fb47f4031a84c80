package ir

import "strings"

// TypeKind classifies a TypeRef.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindVoid
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindObject
)

// primitiveCodes maps primitive kinds to their descriptor code.
var primitiveCodes = map[TypeKind]byte{
	KindVoid:    'V',
	KindBoolean: 'Z',
	KindByte:    'B',
	KindChar:    'C',
	KindShort:   'S',
	KindInt:     'I',
	KindLong:    'J',
	KindFloat:   'F',
	KindDouble:  'D',
}

var primitiveNames = map[TypeKind]string{
	KindVoid:    "void",
	KindBoolean: "boolean",
	KindByte:    "byte",
	KindChar:    "char",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
}

// PrimitiveKind returns the kind for a single-character descriptor code.
// The second result is false for 'L', '[' and unknown codes.
func PrimitiveKind(code byte) (TypeKind, bool) {
	for k, c := range primitiveCodes {
		if c == code {
			return k, true
		}
	}
	return KindInvalid, false
}

// TypeRef is a resolved reference to a type in a signature.
// Name is set only for KindObject (internal form); Dims counts array dimensions.
type TypeRef struct {
	Kind TypeKind `json:"kind"`
	Name string   `json:"name,omitempty"`
	Dims int      `json:"dims,omitempty"`
}

// Object returns a reference to a named type.
func Object(name string) TypeRef {
	return TypeRef{Kind: KindObject, Name: name}
}

// ArrayOf returns t with dims additional array dimensions.
func ArrayOf(t TypeRef, dims int) TypeRef {
	t.Dims += dims
	return t
}

// IsArray reports whether the reference has at least one array dimension.
func (t TypeRef) IsArray() bool {
	return t.Dims > 0
}

// Descriptor re-encodes the reference in descriptor form, e.g. "[Ljava/lang/String;".
func (t TypeRef) Descriptor() string {
	var b strings.Builder
	for i := 0; i < t.Dims; i++ {
		b.WriteByte('[')
	}
	if t.Kind == KindObject {
		b.WriteByte('L')
		b.WriteString(t.Name)
		b.WriteByte(';')
		return b.String()
	}
	if c, ok := primitiveCodes[t.Kind]; ok {
		b.WriteByte(c)
	}
	return b.String()
}

// String returns a source-like rendering, e.g. "java/lang/String[]".
func (t TypeRef) String() string {
	base := primitiveNames[t.Kind]
	if t.Kind == KindObject {
		base = t.Name
	}
	if base == "" {
		base = "<invalid>"
	}
	return base + strings.Repeat("[]", t.Dims)
}

// MemberRef identifies a method by owner, name, and descriptor.
// Used for the registration hook identity and invoke instructions.
type MemberRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
}

// String returns the owner-qualified name followed by the descriptor,
// e.g. "org/moe/natj/general/NatJ.register()V".
func (m MemberRef) String() string {
	return m.Owner + "." + m.Name + m.Desc
}

// DescriptorName converts a tag kind descriptor ("Lpkg/Name;") to its
// internal type name ("pkg/Name"). Other strings are returned unchanged.
func DescriptorName(desc string) string {
	if len(desc) >= 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return desc
}
