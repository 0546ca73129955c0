package jsonapi

import (
	"errors"
	"fmt"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/naming"
)

// ErrMissingType is returned for a resource object without a type.
var ErrMissingType = errors.New("resource object has no type")

// Normalizer converts wire documents into store shape.
type Normalizer struct {
	inflector *naming.Inflector
}

// NewNormalizer creates a base normalizer.
func NewNormalizer(inflector *naming.Inflector) *Normalizer {
	if inflector == nil {
		inflector = naming.New()
	}
	return &Normalizer{inflector: inflector}
}

// NormalizeResponse returns a normalized copy of doc. The input is not
// modified. Shared or cyclic resource pointers map to one normalized copy.
func (n *Normalizer) NormalizeResponse(doc *ir.Document) (*ir.Document, error) {
	if doc == nil {
		return &ir.Document{}, nil
	}

	memo := make(map[*ir.Resource]*ir.Resource)
	out := &ir.Document{}

	if doc.Data != nil {
		data, err := n.normalizeResource(doc.Data, memo)
		if err != nil {
			return nil, fmt.Errorf("normalize data: %w", err)
		}
		out.Data = data
	}

	for i, inc := range doc.Included {
		res, err := n.normalizeResource(inc, memo)
		if err != nil {
			return nil, fmt.Errorf("normalize included[%d]: %w", i, err)
		}
		out.Included = append(out.Included, res)
	}

	return out, nil
}

func (n *Normalizer) normalizeResource(res *ir.Resource, memo map[*ir.Resource]*ir.Resource) (*ir.Resource, error) {
	if done, ok := memo[res]; ok {
		return done, nil
	}
	if res.Type == "" {
		return nil, ErrMissingType
	}

	out := &ir.Resource{
		Type: n.inflector.ModelName(res.Type),
		ID:   res.ID,
	}
	memo[res] = out

	for key, v := range res.Attributes {
		if key == ir.CorrelationKey {
			continue
		}
		if out.Attributes == nil {
			out.Attributes = ir.Attributes{}
		}
		out.Attributes[n.inflector.AttributeName(key)] = v
	}

	for _, key := range res.RelationshipKeys() {
		rel := res.Relationships[key]
		if rel == nil {
			continue
		}
		normalized, err := n.normalizeRelationship(rel, memo)
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", key, err)
		}
		out.SetRelationship(n.inflector.RelationshipName(key), normalized)
	}

	return out, nil
}

func (n *Normalizer) normalizeRelationship(rel *ir.Relationship, memo map[*ir.Resource]*ir.Resource) (*ir.Relationship, error) {
	out := &ir.Relationship{Links: rel.Links, Meta: rel.Meta}

	switch {
	case !rel.Data.Present():
	case rel.Data.IsMany():
		items := make([]*ir.Resource, 0, len(rel.Data.Items()))
		for _, item := range rel.Data.Items() {
			res, err := n.normalizeResource(item, memo)
			if err != nil {
				return nil, err
			}
			items = append(items, res)
		}
		out.Data = ir.ToManyLinkage(items)
	case rel.Data.IsNull():
		out.Data = ir.NullLinkage()
	default:
		res, err := n.normalizeResource(rel.Data.One(), memo)
		if err != nil {
			return nil, err
		}
		out.Data = ir.ToOneLinkage(res)
	}

	return out, nil
}
