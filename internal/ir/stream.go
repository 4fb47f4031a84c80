package ir

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// StreamError reports a malformed document in a compiled-type stream.
// Index is the zero-based position of the document in the stream.
type StreamError struct {
	Index int
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream document %d: %v", e.Index, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// ReadStream decodes a sequence of concatenated JSON documents, one
// CompiledType each. JSON Lines is a special case.
//
// CRITICAL: unknown fields are rejected. A field the model does not carry
// would be dropped on write, which breaks the round-trip guarantee for
// everything the passes do not target.
//
// A method without param_tags gets one empty set per parameter, so
// len(ParamTags) matches its descriptor. A param_tags list that is present
// is kept as written, whatever its length.
func ReadStream(r io.Reader) ([]*CompiledType, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.DisallowUnknownFields()

	var types []*CompiledType
	seen := make(map[string]int)
	for i := 0; ; i++ {
		var t CompiledType
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			return types, nil
		}
		if err != nil {
			return nil, &StreamError{Index: i, Err: err}
		}
		if t.Name == "" {
			return nil, &StreamError{Index: i, Err: fmt.Errorf("type name is required")}
		}
		if prev, dup := seen[t.Name]; dup {
			return nil, &StreamError{Index: i, Err: fmt.Errorf("duplicate type %s (first at document %d)", t.Name, prev)}
		}
		for j, m := range t.Methods {
			if m == nil {
				return nil, &StreamError{Index: i, Err: fmt.Errorf("%s: method %d is null", t.Name, j)}
			}
			sizeParamTags(m)
		}
		seen[t.Name] = i
		types = append(types, &t)
	}
}

// sizeParamTags fills in absent parameter tags. Malformed descriptors are
// left alone; the passes report them.
func sizeParamTags(m *Method) {
	if m.ParamTags != nil {
		return
	}
	n, ok := countParams(m.Desc)
	if !ok || n == 0 {
		return
	}
	m.ParamTags = make([]TagSet, n)
}

// countParams counts the parameters of a method descriptor without
// decoding their types.
func countParams(desc string) (int, bool) {
	if len(desc) == 0 || desc[0] != '(' {
		return 0, false
	}
	n := 0
	for i := 1; i < len(desc); {
		switch c := desc[i]; c {
		case ')':
			return n, true
		case '[':
			i++
			continue
		case 'L':
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				return 0, false
			}
			i += end + 1
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		default:
			return 0, false
		}
		n++
	}
	return 0, false
}

// WriteStream encodes types as JSON Lines in the given order.
// HTML escaping is disabled so "<clinit>" stays literal.
func WriteStream(w io.Writer, types []*CompiledType) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, t := range types {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("write %s: %w", t.Name, err)
		}
	}
	return bw.Flush()
}
