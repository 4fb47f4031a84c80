package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTagValue(t *testing.T) {
	tests := []struct {
		name     string
		input    TagValue
		expected string
	}{
		{"string", TagString("speak"), `"speak"`},
		{"selector with colon", TagString("initWithFrame:"), `"initWithFrame:"`},
		{"int", TagInt(2), "2"},
		{"negative int", TagInt(-1), "-1"},
		{"bool", TagBool(true), "true"},
		{"type", TagType("Ljava/lang/String;"), `{"type":"Ljava/lang/String;"}`},
		{"primitive type", TagType("I"), `{"type":"I"}`},
		{"enum", TagEnum{Type: "Lorg/moe/Mode;", Value: "FAST"}, `{"enum":"Lorg/moe/Mode;","value":"FAST"}`},
		{"empty array", TagArray{}, "[]"},
		{"mixed array", TagArray{TagType("[B"), TagInt(3)}, `[{"type":"[B"},3]`},
		{"nested array", TagArray{TagArray{TagString("a")}}, `[["a"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalTagValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalTagValueNil(t *testing.T) {
	_, err := MarshalTagValue(nil)
	assert.Error(t, err)

	_, err = MarshalTagValue(TagArray{TagInt(1), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestUnmarshalTagValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TagValue
	}{
		{"string", `"speak"`, TagString("speak")},
		{"int", `42`, TagInt(42)},
		{"int with whitespace", "  7 ", TagInt(7)},
		{"bool false", `false`, TagBool(false)},
		{"type", `{"type":"Lfoo/Bar;"}`, TagType("Lfoo/Bar;")},
		{"enum", `{"value":"SLOW","enum":"Lorg/moe/Mode;"}`, TagEnum{Type: "Lorg/moe/Mode;", Value: "SLOW"}},
		{"array of types", `[{"type":"I"},{"type":"[J"}]`, TagArray{TagType("I"), TagType("[J")}},
		{"empty array", `[]`, TagArray{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalTagValue([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, EqualValues(tt.expected, got), "got %#v", got)
		})
	}
}

func TestUnmarshalTagValueRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"float", `1.5`, "floats"},
		{"exponent", `1e3`, "floats"},
		{"null", `null`, "null"},
		{"empty", ``, "empty"},
		{"unknown object", `{"kind":"x"}`, "must be"},
		{"enum missing value", `{"enum":"LMode;"}`, "must be"},
		{"float in array", `[1, 2.0]`, "array[1]"},
		{"out of range", `99999999999999999999`, "int64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalTagValue([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTagValueRoundTrip(t *testing.T) {
	original := TagArray{
		TagString("x"),
		TagInt(1),
		TagBool(false),
		TagEnum{Type: "Lorg/moe/Mode;", Value: "FAST"},
		TagType("[Ljava/lang/Object;"),
		TagArray{TagType("D")},
	}

	data, err := MarshalTagValue(original)
	require.NoError(t, err)

	decoded, err := UnmarshalTagValue(data)
	require.NoError(t, err)
	assert.True(t, EqualValues(original, decoded))
}

func TestEqualValues(t *testing.T) {
	assert.True(t, EqualValues(TagInt(1), TagInt(1)))
	assert.False(t, EqualValues(TagInt(1), TagString("1")))
	assert.False(t, EqualValues(TagType("I"), TagString("I")))
	assert.True(t, EqualValues(TagArray{TagType("I")}, TagArray{TagType("I")}))
	assert.False(t, EqualValues(TagArray{TagType("I")}, TagArray{TagType("J")}))
	assert.False(t, EqualValues(TagArray{}, TagArray{TagInt(0)}))
	assert.False(t, EqualValues(TagArray{}, TagInt(0)))
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar(TagString("")))
	assert.True(t, IsScalar(TagInt(0)))
	assert.True(t, IsScalar(TagBool(true)))
	assert.True(t, IsScalar(TagEnum{}))
	assert.False(t, IsScalar(TagType("I")))
	assert.False(t, IsScalar(TagArray{}))
}
