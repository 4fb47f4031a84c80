package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bridgepass/internal/ir"
)

// Scenario defines a conformance scenario: a stream, its library, and the
// outcome the pipeline must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Stages selects and orders the passes. Empty runs the defaults.
	Stages []string `yaml:"stages,omitempty"`

	// Registry is an optional CUE profile path, relative to the scenario.
	Registry string `yaml:"registry,omitempty"`

	// Classpath lists library stream files, relative to the scenario.
	Classpath []string `yaml:"classpath,omitempty"`

	// Library holds inline library types (visible, never transformed).
	Library []map[string]any `yaml:"library,omitempty"`

	// Input is the stream the pipeline transforms.
	Input []map[string]any `yaml:"input"`

	// ExpectError, when set, requires the run to fail this way.
	ExpectError *ExpectError `yaml:"expect_error,omitempty"`

	// Assertions validate the output stream and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectError describes the fatal error a scenario expects.
type ExpectError struct {
	// Stage is the failing stage name.
	Stage string `yaml:"stage"`

	// Code is the pass error code, e.g. "COLLISION".
	Code string `yaml:"code"`

	// Type is the failing type name (optional).
	Type string `yaml:"type_name,omitempty"`

	// Tags are the offending tag kinds (optional, exact match).
	Tags []string `yaml:"tags,omitempty"`
}

// Assertion validates the output stream or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "has_tag": tag kind present at a position, with optional fields
	// - "lacks_tag": tag kind absent at a position
	// - "record": trace contains records with a code
	// - "instructions": method body equals the listed instructions
	// - "unchanged": type content identical to the input
	// - "modified": type content differs from the input
	// - "method_count": number of declared methods
	Type string `yaml:"type"`

	// TypeName is the compiled type under test.
	TypeName string `yaml:"type_name,omitempty"`

	// Method is name plus descriptor, e.g. "speak(I)V".
	Method string `yaml:"method,omitempty"`

	// Param selects a parameter position. Nil selects the method position.
	Param *int `yaml:"param,omitempty"`

	// Tag is the tag kind descriptor (used by has_tag, lacks_tag).
	Tag string `yaml:"tag,omitempty"`

	// Fields are expected tag field values (used by has_tag).
	// Subset match - only specified fields are validated.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Code is the record code (used by record).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of matches (record, method_count).
	// For record, nil means "at least one".
	Count *int `yaml:"count,omitempty"`

	// Insns are the expected instructions (used by instructions).
	Insns []string `yaml:"insns,omitempty"`
}

// Assertion type constants.
const (
	AssertHasTag       = "has_tag"
	AssertLacksTag     = "lacks_tag"
	AssertRecord       = "record"
	AssertInstructions = "instructions"
	AssertUnchanged    = "unchanged"
	AssertModified     = "modified"
	AssertMethodCount  = "method_count"
)

// LoadScenario reads and parses a scenario YAML file. Relative registry
// and classpath paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if scenario.Registry != "" && !filepath.IsAbs(scenario.Registry) {
		scenario.Registry = filepath.Join(base, scenario.Registry)
	}
	for i, p := range scenario.Classpath {
		if !filepath.IsAbs(p) {
			scenario.Classpath[i] = filepath.Join(base, p)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// InputTypes decodes the inline input stream.
func (s *Scenario) InputTypes() ([]*ir.CompiledType, error) {
	return decodeTypes("input", s.Input)
}

// LibraryTypes decodes the inline library types.
func (s *Scenario) LibraryTypes() ([]*ir.CompiledType, error) {
	return decodeTypes("library", s.Library)
}

// decodeTypes re-encodes YAML maps as a JSONL stream and reads it with
// the stream reader, so scenarios are checked exactly like real input.
func decodeTypes(section string, raw []map[string]any) ([]*ir.CompiledType, error) {
	var buf bytes.Buffer
	for i, m := range raw {
		line, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	types, err := ir.ReadStream(&buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", section, err)
	}
	return types, nil
}

// validateScenario checks required fields and assertion shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Input) == 0 {
		return fmt.Errorf("input must contain at least one type")
	}
	if s.ExpectError != nil {
		if s.ExpectError.Stage == "" {
			return fmt.Errorf("expect_error: stage is required")
		}
	}
	if s.ExpectError == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions are required when no error is expected")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needType := func() error {
		if a.TypeName == "" {
			return fmt.Errorf("assertions[%d]: type_name is required for %s", index, a.Type)
		}
		return nil
	}
	needMethod := func() error {
		if err := needType(); err != nil {
			return err
		}
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertHasTag, AssertLacksTag:
		if err := needMethod(); err != nil {
			return err
		}
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for %s", index, a.Type)
		}
		if a.Type == AssertLacksTag && len(a.Fields) > 0 {
			return fmt.Errorf("assertions[%d]: fields are not allowed for lacks_tag", index)
		}
	case AssertRecord:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for record", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record", index)
		}
	case AssertInstructions:
		if err := needMethod(); err != nil {
			return err
		}
	case AssertUnchanged, AssertModified:
		return needType()
	case AssertMethodCount:
		if err := needType(); err != nil {
			return err
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for method_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
