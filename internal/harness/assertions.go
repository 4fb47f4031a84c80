package harness

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/roach88/bridgepass/internal/ir"
)

// dump renders values in failure messages. Pointer addresses are dropped
// so messages are stable across runs.
var dump = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s: %s\n", event.Seq, event.Code, event.Stage, subject(event), event.Message)
		}
	}
	return buf.String()
}

func subject(e TraceEvent) string {
	if e.Method == "" {
		return e.Type
	}
	return e.Type + "." + e.Method
}

// EvaluateAssertions checks every assertion against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertHasTag:
		return assertHasTag(result, a)
	case AssertLacksTag:
		return assertLacksTag(result, a)
	case AssertRecord:
		return assertRecord(result, a)
	case AssertInstructions:
		return assertInstructions(result, a)
	case AssertUnchanged:
		return assertFingerprint(result, a, false)
	case AssertModified:
		return assertFingerprint(result, a, true)
	case AssertMethodCount:
		return assertMethodCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// position returns the tags at the asserted position of an output method.
func position(result *Result, a Assertion) ([]ir.Tag, error) {
	t := result.OutputType(a.TypeName)
	if t == nil {
		return nil, fmt.Errorf("type %s not in output", a.TypeName)
	}
	m := findMethod(t, a.Method)
	if m == nil {
		return nil, fmt.Errorf("method %s not declared by %s", a.Method, a.TypeName)
	}
	if a.Param == nil {
		return m.Tags, nil
	}
	if *a.Param < 0 || *a.Param >= len(m.ParamTags) {
		return nil, fmt.Errorf("%s.%s has no parameter %d (%d tag sets)", a.TypeName, a.Method, *a.Param, len(m.ParamTags))
	}
	return m.ParamTags[*a.Param], nil
}

func findMethod(t *ir.CompiledType, nameDesc string) *ir.Method {
	for _, m := range t.Methods {
		if m.Name+m.Desc == nameDesc {
			return m
		}
	}
	return nil
}

func positionName(a Assertion) string {
	where := a.TypeName + "." + a.Method
	if a.Param != nil {
		return fmt.Sprintf("%s parameter %d", where, *a.Param)
	}
	return where
}

func assertHasTag(result *Result, a Assertion) error {
	tags, err := position(result, a)
	if err != nil {
		return err
	}
	tag, ok := ir.FindTag(tags, a.Tag)
	if !ok {
		return &AssertionError{
			Type:     AssertHasTag,
			Expected: fmt.Sprintf("%s on %s", a.Tag, positionName(a)),
			Actual:   fmt.Sprintf("tags %v", ir.TagKinds(tags)),
			Trace:    result.Trace,
		}
	}

	for name, want := range a.Fields {
		got, ok := tag.Field(name)
		if !ok {
			return &AssertionError{
				Type:     AssertHasTag,
				Expected: fmt.Sprintf("%s field %q = %v", a.Tag, name, want),
				Actual:   "field missing",
			}
		}
		if !fieldMatches(got, want) {
			return &AssertionError{
				Type:     AssertHasTag,
				Expected: fmt.Sprintf("%s field %q = %v", a.Tag, name, want),
				Actual:   strings.TrimSpace(dump.Sdump(got)),
			}
		}
	}
	return nil
}

// fieldMatches compares a tag value with a YAML scalar or list.
// Type references match their descriptor string; enums match
// "Desc.CONSTANT".
func fieldMatches(got ir.TagValue, want any) bool {
	switch v := got.(type) {
	case ir.TagString:
		s, ok := want.(string)
		return ok && s == string(v)
	case ir.TagType:
		s, ok := want.(string)
		return ok && s == string(v)
	case ir.TagEnum:
		s, ok := want.(string)
		return ok && s == v.Type+"."+v.Value
	case ir.TagBool:
		b, ok := want.(bool)
		return ok && b == bool(v)
	case ir.TagInt:
		n, ok := toInt64(want)
		return ok && n == int64(v)
	case ir.TagArray:
		list, ok := want.([]any)
		if !ok || len(list) != len(v) {
			return false
		}
		for i := range v {
			if !fieldMatches(v[i], list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

func assertLacksTag(result *Result, a Assertion) error {
	tags, err := position(result, a)
	if err != nil {
		return err
	}
	if ir.HasTag(tags, a.Tag) {
		return &AssertionError{
			Type:     AssertLacksTag,
			Expected: fmt.Sprintf("no %s on %s", a.Tag, positionName(a)),
			Actual:   fmt.Sprintf("tags %v", ir.TagKinds(tags)),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertRecord(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Trace {
		if e.Code != a.Code {
			continue
		}
		if a.TypeName != "" && e.Type != a.TypeName {
			continue
		}
		if a.Method != "" && e.Method != a.Method {
			continue
		}
		count++
	}

	desc := a.Code
	if a.TypeName != "" {
		desc += " on " + a.TypeName
		if a.Method != "" {
			desc += "." + a.Method
		}
	}

	if a.Count == nil {
		if count == 0 {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: "at least one " + desc + " record",
				Actual:   "none",
				Trace:    result.Trace,
			}
		}
		return nil
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%d %s record(s)", *a.Count, desc),
			Actual:   strconv.Itoa(count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertInstructions(result *Result, a Assertion) error {
	t := result.OutputType(a.TypeName)
	if t == nil {
		return fmt.Errorf("type %s not in output", a.TypeName)
	}
	m := findMethod(t, a.Method)
	if m == nil {
		return fmt.Errorf("method %s not declared by %s", a.Method, a.TypeName)
	}

	got := RenderInstructions(m.Code)
	if !equalStrings(got, a.Insns) {
		return &AssertionError{
			Type:     AssertInstructions,
			Expected: "\n" + dump.Sdump(a.Insns),
			Actual:   "\n" + dump.Sdump(got),
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RenderInstructions renders a method body one instruction per entry.
// A nil body renders as no instructions.
func RenderInstructions(code *ir.Code) []string {
	if code == nil {
		return []string{}
	}
	out := make([]string, len(code.Instructions))
	for i, in := range code.Instructions {
		out[i] = renderInstruction(in)
	}
	return out
}

func renderInstruction(in ir.Instruction) string {
	parts := []string{in.Op}
	if in.Owner != "" {
		parts = append(parts, ir.MemberRef{Owner: in.Owner, Name: in.Name, Desc: in.Desc}.String())
	}
	if in.Operand != "" {
		parts = append(parts, in.Operand)
	}
	if in.Target != nil {
		parts = append(parts, "@"+strconv.Itoa(*in.Target))
	}
	for _, target := range in.Targets {
		parts = append(parts, "@"+strconv.Itoa(target))
	}
	return strings.Join(parts, " ")
}

func assertFingerprint(result *Result, a Assertion, wantModified bool) error {
	in := result.InputType(a.TypeName)
	if in == nil {
		return fmt.Errorf("type %s not in input", a.TypeName)
	}
	out := result.OutputType(a.TypeName)
	if out == nil {
		return fmt.Errorf("type %s not in output", a.TypeName)
	}

	before, err := ir.Fingerprint(in)
	if err != nil {
		return err
	}
	after, err := ir.Fingerprint(out)
	if err != nil {
		return err
	}

	modified := before != after
	if modified != wantModified {
		expected, actual := "unchanged", "modified"
		if wantModified {
			expected, actual = actual, expected
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: a.TypeName + " " + expected,
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertMethodCount(result *Result, a Assertion) error {
	t := result.OutputType(a.TypeName)
	if t == nil {
		return fmt.Errorf("type %s not in output", a.TypeName)
	}
	if len(t.Methods) != *a.Count {
		names := make([]string, len(t.Methods))
		for i, m := range t.Methods {
			names[i] = m.Name + m.Desc
		}
		return &AssertionError{
			Type:     AssertMethodCount,
			Expected: fmt.Sprintf("%d methods on %s", *a.Count, a.TypeName),
			Actual:   fmt.Sprintf("%d %v", len(t.Methods), names),
		}
	}
	return nil
}
