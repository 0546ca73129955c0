package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// CorrelationKey is the reserved attribute that carries the correlation
// token of a record that has no persistent id yet.
const CorrelationKey = "__id__"

// Document is a top-level JSON-API payload.
type Document struct {
	Data     *Resource   `json:"data"`
	Included []*Resource `json:"included,omitempty"`
}

// Resource is a JSON-API resource object.
//
// A Resource embedded in a relationship represents an in-memory record and
// carries exactly one identity form: ID when the record is saved, or the
// CorrelationKey attribute when it is not.
type Resource struct {
	Type          string                   `json:"type"`
	ID            string                   `json:"id,omitempty"`
	Attributes    Attributes               `json:"attributes,omitempty"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"`

	// normalized is set the first time the normalizer visits this item.
	// It lives and dies with the payload, so it is scoped to one walk.
	normalized bool
}

// Relationship is one entry of a resource's relationships map.
type Relationship struct {
	Data  Linkage           `json:"-"`
	Links map[string]string `json:"links,omitempty"`
	Meta  map[string]any    `json:"meta,omitempty"`
}

// NewResource creates a resource of the given payload type.
func NewResource(typ string) *Resource {
	return &Resource{Type: typ}
}

// CorrelationToken returns the token carried in the attributes.
// Reference-only stubs (no attributes, or no token) report false.
func (r *Resource) CorrelationToken() (string, bool) {
	if r == nil || r.Attributes == nil {
		return "", false
	}
	v, ok := r.Attributes[CorrelationKey]
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// SetCorrelationToken stores token under CorrelationKey, creating the
// attributes map when needed.
func (r *Resource) SetCorrelationToken(token string) {
	if r.Attributes == nil {
		r.Attributes = Attributes{}
	}
	r.Attributes[CorrelationKey] = token
}

// SetRelationship stores rel under key, creating the map when needed.
func (r *Resource) SetRelationship(key string, rel *Relationship) {
	if r.Relationships == nil {
		r.Relationships = make(map[string]*Relationship)
	}
	r.Relationships[key] = rel
}

// RelationshipKeys returns the relationship keys in canonical order.
// Walks over relationships use this order so they are deterministic.
func (r *Resource) RelationshipKeys() []string {
	keys := make([]string, 0, len(r.Relationships))
	for k := range r.Relationships {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// MarkNormalized sets the normalized marker and reports whether it was
// already set. The first caller gets false.
func (r *Resource) MarkNormalized() (already bool) {
	already = r.normalized
	r.normalized = true
	return already
}

// Normalized reports whether MarkNormalized has been called on r.
func (r *Resource) Normalized() bool {
	return r.normalized
}

// HasData reports whether the relationship carries a data member at all.
// A links-only relationship has no data.
func (rel *Relationship) HasData() bool {
	return rel != nil && rel.Data.Present()
}

// MarshalJSON writes data only when the linkage is present, so links-only
// relationships round-trip without a spurious "data": null.
func (rel Relationship) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(`"` + key + `":`)
		buf.Write(b)
		return nil
	}

	if rel.Data.Present() {
		if err := write("data", rel.Data); err != nil {
			return nil, err
		}
	}
	if len(rel.Links) > 0 {
		if err := write("links", rel.Links); err != nil {
			return nil, err
		}
	}
	if len(rel.Meta) > 0 {
		if err := write("meta", rel.Meta); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Relationship.
func (rel *Relationship) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*rel = Relationship{}
	if d, ok := raw["data"]; ok {
		if err := rel.Data.UnmarshalJSON(d); err != nil {
			return fmt.Errorf("relationship data: %w", err)
		}
	}
	if l, ok := raw["links"]; ok {
		if err := json.Unmarshal(l, &rel.Links); err != nil {
			return fmt.Errorf("relationship links: %w", err)
		}
	}
	if m, ok := raw["meta"]; ok {
		if err := json.Unmarshal(m, &rel.Meta); err != nil {
			return fmt.Errorf("relationship meta: %w", err)
		}
	}
	return nil
}

// ParseDocument decodes a JSON-API document.
// Numbers inside attributes are kept as json.Number.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

// MarshalDocument encodes a document as compact JSON without HTML escaping.
func MarshalDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
