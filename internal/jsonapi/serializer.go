package jsonapi

import (
	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/naming"
)

// Source is the read side of a record the base serializer needs.
// *records.Record satisfies it.
type Source interface {
	Type() string
	ID() string
	Attributes() ir.Attributes
}

// Serializer produces the attribute-only resource object of a record.
type Serializer struct {
	inflector *naming.Inflector
}

// NewSerializer creates a base serializer.
func NewSerializer(inflector *naming.Inflector) *Serializer {
	if inflector == nil {
		inflector = naming.New()
	}
	return &Serializer{inflector: inflector}
}

// SerializeAttributes returns {type, id?, attributes?} for rec.
// The id is written only when includeID is set and the record has one.
// An empty attribute set is omitted.
func (s *Serializer) SerializeAttributes(rec Source, includeID bool) *ir.Resource {
	res := ir.NewResource(s.inflector.PayloadType(rec.Type()))
	if includeID {
		res.ID = rec.ID()
	}

	attrs := rec.Attributes()
	if len(attrs) == 0 {
		return res
	}
	res.Attributes = make(ir.Attributes, len(attrs))
	for name, v := range attrs {
		res.Attributes[s.inflector.KeyForAttribute(name)] = v
	}
	return res
}
