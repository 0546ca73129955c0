package ir

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Attributes maps wire attribute keys to scalar values.
// Numbers decoded from JSON are kept as json.Number to avoid float64
// precision loss on large integers.
type Attributes map[string]any

// Keys returns the attribute keys in canonical order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// Clone returns a shallow copy of a. A nil map clones to nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// UnmarshalJSON implements json.Unmarshaler for Attributes.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*a = m
	return nil
}
