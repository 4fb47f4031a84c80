package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TagValue is the value of a tag field. The set of implementations is
// closed:
//   - scalar: TagString, TagInt, TagBool, TagEnum (copied by value)
//   - type reference: TagType (re-encoded on copy)
//   - nested array: TagArray (copied element-wise)
//
// There is no float arm; no tag schema declares one.
type TagValue interface {
	tagValue()
}

// TagString is a string-valued field.
type TagString string

func (TagString) tagValue() {}

// TagInt is an integral field. Always int64.
type TagInt int64

func (TagInt) tagValue() {}

// TagBool is a boolean field.
type TagBool bool

func (TagBool) tagValue() {}

// TagEnum is an enum constant: the enum's type descriptor plus the constant name.
type TagEnum struct {
	Type  string
	Value string
}

func (TagEnum) tagValue() {}

// TagType is a type-valued field holding a field descriptor ("Lpkg/Name;", "I", "[B").
type TagType string

func (TagType) tagValue() {}

// TagArray is an array of values. Elements may themselves be TagType or TagArray.
type TagArray []TagValue

func (TagArray) tagValue() {}

// IsScalar reports whether v is in the scalar arm of the sum.
func IsScalar(v TagValue) bool {
	switch v.(type) {
	case TagString, TagInt, TagBool, TagEnum:
		return true
	default:
		return false
	}
}

// EqualValues compares two tag values structurally.
func EqualValues(a, b TagValue) bool {
	switch av := a.(type) {
	case TagArray:
		bv, ok := b.(TagArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EqualValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// MarshalTagValue marshals a TagValue to JSON bytes.
//
// Encoding:
//
//	TagString  -> "text"
//	TagInt     -> 42
//	TagBool    -> true
//	TagType    -> {"type": "Ljava/lang/String;"}
//	TagEnum    -> {"enum": "Lpkg/Mode;", "value": "FAST"}
//	TagArray   -> [ ... ]
func MarshalTagValue(v TagValue) ([]byte, error) {
	switch val := v.(type) {
	case TagString:
		return marshalNoEscape(string(val))
	case TagInt:
		return json.Marshal(int64(val))
	case TagBool:
		return json.Marshal(bool(val))
	case TagType:
		return marshalNoEscape(map[string]string{"type": string(val)})
	case TagEnum:
		return marshalNoEscape(map[string]string{"enum": val.Type, "value": val.Value})
	case TagArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalTagValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case nil:
		return nil, fmt.Errorf("nil tag value")
	default:
		return nil, fmt.Errorf("unknown TagValue type: %T", v)
	}
}

// UnmarshalTagValue decodes JSON into a TagValue.
// Floats and null are rejected.
func UnmarshalTagValue(data []byte) (TagValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return TagString(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return TagBool(b), nil

	case 'n':
		return nil, fmt.Errorf("null is not a valid tag value")

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		arr := make(TagArray, len(raw))
		for i, elem := range raw {
			v, err := UnmarshalTagValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil

	case '{':
		var obj map[string]string
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("tag value object: %w", err)
		}
		if t, ok := obj["type"]; ok && len(obj) == 1 {
			return TagType(t), nil
		}
		if e, ok := obj["enum"]; ok && len(obj) == 2 {
			if val, ok := obj["value"]; ok {
				return TagEnum{Type: e, Value: val}, nil
			}
		}
		return nil, fmt.Errorf("tag value object must be {\"type\"} or {\"enum\",\"value\"}: %s", string(data))

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		s := n.String()
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not valid tag values: %s", s)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return TagInt(i), nil
	}
}

// marshalNoEscape encodes v with HTML escaping disabled so descriptors
// containing '<' (e.g. "<clinit>") stay readable.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
