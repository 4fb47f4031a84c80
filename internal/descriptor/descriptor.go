// Package descriptor decodes method and field descriptors into type
// references.
//
// Descriptors use the compact encoding of compiled code: "(ILjava/lang/String;[J)V".
// ParseMethod and ParseField are purely structural. Parser additionally
// resolves every named type through a TypeResolver so that signature
// matching compares types that actually exist.
package descriptor

import (
	"errors"
	"fmt"

	"github.com/roach88/bridgepass/internal/ir"
)

// ErrMalformedSignature is the sentinel wrapped by every SyntaxError.
var ErrMalformedSignature = errors.New("malformed signature")

// SyntaxError reports where a descriptor failed to decode.
type SyntaxError struct {
	Desc   string
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s %q at offset %d: %s", ErrMalformedSignature, e.Desc, e.Offset, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedSignature
}

// TypeResolver looks up a named type. Implementations return an error
// wrapping their not-found sentinel when the name is unknown.
type TypeResolver interface {
	ResolveType(name string) (*ir.CompiledType, error)
}

// Parser decodes descriptors and resolves the named types they mention.
type Parser struct {
	Types TypeResolver
}

// Params decodes the parameter list of a method descriptor and resolves
// every named parameter type. The return type is decoded for syntax only.
// Resolution failures are returned unchanged so callers can test them
// with errors.Is.
func (p Parser) Params(desc string) ([]ir.TypeRef, error) {
	params, _, err := ParseMethod(desc)
	if err != nil {
		return nil, err
	}
	for _, ref := range params {
		if ref.Kind != ir.KindObject || p.Types == nil {
			continue
		}
		if _, err := p.Types.ResolveType(ref.Name); err != nil {
			return nil, fmt.Errorf("parameter type %s: %w", ref.Name, err)
		}
	}
	return params, nil
}

// ParseMethod decodes a method descriptor into its parameter types and
// return type.
func ParseMethod(desc string) ([]ir.TypeRef, ir.TypeRef, error) {
	if desc == "" || desc[0] != '(' {
		return nil, ir.TypeRef{}, &SyntaxError{Desc: desc, Offset: 0, Reason: "expected '('"}
	}

	params := []ir.TypeRef{}
	pos := 1
	for {
		if pos >= len(desc) {
			return nil, ir.TypeRef{}, &SyntaxError{Desc: desc, Offset: pos, Reason: "missing ')'"}
		}
		if desc[pos] == ')' {
			pos++
			break
		}
		ref, next, err := parseOne(desc, pos, false)
		if err != nil {
			return nil, ir.TypeRef{}, err
		}
		params = append(params, ref)
		pos = next
	}

	ret, next, err := parseOne(desc, pos, true)
	if err != nil {
		return nil, ir.TypeRef{}, err
	}
	if next != len(desc) {
		return nil, ir.TypeRef{}, &SyntaxError{Desc: desc, Offset: next, Reason: "trailing characters"}
	}
	return params, ret, nil
}

// ParseField decodes a single field descriptor such as "[Lpkg/Name;".
// "V" is rejected.
func ParseField(desc string) (ir.TypeRef, error) {
	return parseSingle(desc, false)
}

// ParseType decodes a single type descriptor where "V" is also legal, as
// in a class literal stored in a tag field.
func ParseType(desc string) (ir.TypeRef, error) {
	return parseSingle(desc, true)
}

func parseSingle(desc string, allowVoid bool) (ir.TypeRef, error) {
	ref, next, err := parseOne(desc, 0, allowVoid)
	if err != nil {
		return ir.TypeRef{}, err
	}
	if next != len(desc) {
		return ir.TypeRef{}, &SyntaxError{Desc: desc, Offset: next, Reason: "trailing characters"}
	}
	return ref, nil
}

// ParamCount returns the number of parameters in a method descriptor.
func ParamCount(desc string) (int, error) {
	params, _, err := ParseMethod(desc)
	if err != nil {
		return 0, err
	}
	return len(params), nil
}

// parseOne decodes one type starting at pos and returns the index after it.
func parseOne(desc string, pos int, allowVoid bool) (ir.TypeRef, int, error) {
	start := pos
	dims := 0
	for pos < len(desc) && desc[pos] == '[' {
		dims++
		pos++
	}
	if pos >= len(desc) {
		return ir.TypeRef{}, pos, &SyntaxError{Desc: desc, Offset: start, Reason: "missing type"}
	}

	code := desc[pos]
	switch code {
	case 'L':
		end := pos + 1
		for end < len(desc) && desc[end] != ';' {
			end++
		}
		if end >= len(desc) {
			return ir.TypeRef{}, pos, &SyntaxError{Desc: desc, Offset: pos, Reason: "unterminated type name"}
		}
		name := desc[pos+1 : end]
		if name == "" {
			return ir.TypeRef{}, pos, &SyntaxError{Desc: desc, Offset: pos, Reason: "empty type name"}
		}
		return ir.ArrayOf(ir.Object(name), dims), end + 1, nil
	case 'V':
		if !allowVoid || dims > 0 {
			return ir.TypeRef{}, pos, &SyntaxError{Desc: desc, Offset: pos, Reason: "void is only valid as a return type"}
		}
		return ir.TypeRef{Kind: ir.KindVoid}, pos + 1, nil
	}

	kind, ok := ir.PrimitiveKind(code)
	if !ok {
		return ir.TypeRef{}, pos, &SyntaxError{Desc: desc, Offset: pos, Reason: fmt.Sprintf("unrecognized type code %q", code)}
	}
	return ir.TypeRef{Kind: kind, Dims: dims}, pos + 1, nil
}
