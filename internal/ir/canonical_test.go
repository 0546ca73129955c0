package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"json number", json.Number("12345678901234567890"), "12345678901234567890"},
		{"float", 1.5, "1.5"},
		{"bool true", true, "true"},
		{"null", nil, "null"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"b": 1, "a": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalCorrelationKeySortsFirst(t *testing.T) {
	// '_' (0x5F) sorts before lowercase letters.
	attrs := Attributes{"name": "Kid A", CorrelationKey: "token-2"}

	result, err := MarshalCanonical(attrs)
	require.NoError(t, err)
	assert.Equal(t, `{"__id__":"token-2","name":"Kid A"}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form.
	result, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalDocument(t *testing.T) {
	doc := &Document{
		Data: &Resource{
			Type:       "artists",
			Attributes: Attributes{"name": "Radiohead"},
			Relationships: map[string]*Relationship{
				"albums": {Data: ToManyLinkage([]*Resource{
					{Type: "albums", ID: "1", Attributes: Attributes{"name": "Kid A"}},
				})},
			},
		},
	}

	result, err := MarshalCanonical(doc)
	require.NoError(t, err)
	assert.Equal(t,
		`{"data":{"attributes":{"name":"Radiohead"},"relationships":{"albums":{"data":[{"attributes":{"name":"Kid A"},"id":"1","type":"albums"}]}},"type":"artists"}}`,
		string(result))
}

func TestCompareKeysUTF16(t *testing.T) {
	assert.Equal(t, -1, compareKeysUTF16("a", "b"))
	assert.Equal(t, 1, compareKeysUTF16("b", "a"))
	assert.Equal(t, 0, compareKeysUTF16("same", "same"))
	assert.Equal(t, -1, compareKeysUTF16("ab", "abc"))

	// U+FFFF is one code unit (0xFFFF), U+10000 is a surrogate pair
	// starting with 0xD800, so UTF-16 puts the supplementary character first.
	assert.Equal(t, 1, compareKeysUTF16("\uffff", "\U00010000"))
}
