// Package naming maps between in-memory field and model names and their
// JSON-API wire forms.
//
// Wire keys are dasherized ("contactPerson" becomes "contact-person") and
// payload types are dasherized plurals ("contact-person" becomes
// "contact-people"). Model names are dasherized singulars.
package naming

import (
	"github.com/jinzhu/inflection"
	"github.com/stoewer/go-strcase"

	"github.com/roach88/embedsave/internal/ir"
)

// Inflector converts names between their record and wire forms.
// The zero value is ready to use.
type Inflector struct{}

// New returns an Inflector.
func New() *Inflector {
	return &Inflector{}
}

// KeyForAttribute returns the wire key of an attribute.
func (i *Inflector) KeyForAttribute(attr string) string {
	if attr == ir.CorrelationKey {
		return attr
	}
	return strcase.KebabCase(attr)
}

// KeyForRelationship returns the wire key of a relationship field.
// The kind is accepted so that to-one and to-many keys can diverge; both
// are currently dasherized the same way.
func (i *Inflector) KeyForRelationship(field string, kind ir.RelationshipKind) string {
	_ = kind
	return strcase.KebabCase(field)
}

// PayloadType returns the payload type for a model name: "album" -> "albums".
func (i *Inflector) PayloadType(model string) string {
	return inflection.Plural(strcase.KebabCase(model))
}

// ModelName returns the model name for a payload type: "albums" -> "album".
func (i *Inflector) ModelName(payloadType string) string {
	return inflection.Singular(strcase.KebabCase(payloadType))
}

// AttributeName returns the record attribute name for a wire key:
// "release-year" -> "releaseYear".
func (i *Inflector) AttributeName(key string) string {
	if key == ir.CorrelationKey {
		return key
	}
	return strcase.LowerCamelCase(key)
}

// RelationshipName returns the record field name for a wire key.
func (i *Inflector) RelationshipName(key string) string {
	return strcase.LowerCamelCase(key)
}
