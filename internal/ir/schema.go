package ir

// RelationshipKind distinguishes to-one from to-many relationship fields.
type RelationshipKind string

const (
	// KindBelongsTo is a to-one relationship.
	KindBelongsTo RelationshipKind = "belongsTo"
	// KindHasMany is a to-many relationship.
	KindHasMany RelationshipKind = "hasMany"
)

// ValidKinds defines allowed relationship kinds.
var ValidKinds = map[RelationshipKind]bool{
	KindBelongsTo: true,
	KindHasMany:   true,
}

// Schema is the compiled set of model and serializer declarations.
type Schema struct {
	Models      []ModelSpec      `json:"models"`
	Serializers []SerializerSpec `json:"serializers"`
}

// ModelSpec declares one record type.
type ModelSpec struct {
	Name          string             `json:"name"` // dasherized singular, e.g. "contact-person"
	Attributes    []AttributeSpec    `json:"attributes"`
	Relationships []RelationshipSpec `json:"relationships"` // declaration order
}

// AttributeSpec declares a scalar attribute.
type AttributeSpec struct {
	Name string `json:"name"`
	Type string `json:"type"` // "string", "int", "number", "bool"
}

// RelationshipSpec declares a relationship field.
type RelationshipSpec struct {
	Name string           `json:"name"`
	Kind RelationshipKind `json:"kind"`
	Type string           `json:"type"` // target model name
}

// SerializerSpec holds per-model serializer configuration.
type SerializerSpec struct {
	Model string                  `json:"model"`
	Attrs map[string]FieldOptions `json:"attrs"`
}

// FieldOptions configures how the serializer treats one relationship field.
type FieldOptions struct {
	Serialize bool   `json:"serialize"`     // embed the related records inline
	Key       string `json:"key,omitempty"` // wire key override
}

// Model returns the model spec with the given name.
func (s *Schema) Model(name string) (ModelSpec, bool) {
	if s == nil {
		return ModelSpec{}, false
	}
	for _, m := range s.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// Serializer returns the serializer spec for a model, if one was declared.
func (s *Schema) Serializer(model string) (SerializerSpec, bool) {
	if s == nil {
		return SerializerSpec{}, false
	}
	for _, sp := range s.Serializers {
		if sp.Model == model {
			return sp, true
		}
	}
	return SerializerSpec{}, false
}

// Relationship returns the relationship spec with the given field name.
func (m ModelSpec) Relationship(name string) (RelationshipSpec, bool) {
	for _, r := range m.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return RelationshipSpec{}, false
}

// HasAttribute reports whether the model declares the attribute.
func (m ModelSpec) HasAttribute(name string) bool {
	for _, a := range m.Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}
