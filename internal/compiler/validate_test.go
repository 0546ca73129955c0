package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/embedsave/internal/ir"
)

func validSchema() *ir.Schema {
	return &ir.Schema{
		Models: []ir.ModelSpec{
			{
				Name:       "artist",
				Attributes: []ir.AttributeSpec{{Name: "name", Type: "string"}},
				Relationships: []ir.RelationshipSpec{
					{Name: "albums", Kind: ir.KindHasMany, Type: "album"},
					{Name: "contactPerson", Kind: ir.KindBelongsTo, Type: "contact-person"},
				},
			},
			{
				Name:       "album",
				Attributes: []ir.AttributeSpec{{Name: "year", Type: "int"}},
			},
			{Name: "contact-person"},
		},
		Serializers: []ir.SerializerSpec{
			{Model: "artist", Attrs: map[string]ir.FieldOptions{"albums": {Serialize: true}}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validSchema()))
}

func TestValidateEmpty(t *testing.T) {
	errs := Validate(&ir.Schema{})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptySchema, errs[0].Code)

	errs = Validate(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptySchema, errs[0].Code)
}

func TestValidateModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ir.Schema)
		code   string
	}{
		{"camel case model name", func(s *ir.Schema) { s.Models[2].Name = "contactPerson" }, ErrInvalidModelName},
		{"plural model name", func(s *ir.Schema) { s.Models[1].Name = "albums" }, ErrInvalidModelName},
		{"duplicate model", func(s *ir.Schema) { s.Models = append(s.Models, ir.ModelSpec{Name: "album"}) }, ErrDuplicateModel},
		{"duplicate field", func(s *ir.Schema) {
			s.Models[0].Attributes = append(s.Models[0].Attributes, ir.AttributeSpec{Name: "albums", Type: "string"})
		}, ErrDuplicateField},
		{"invalid type", func(s *ir.Schema) { s.Models[1].Attributes[0].Type = "date" }, ErrInvalidFieldType},
		{"invalid kind", func(s *ir.Schema) { s.Models[0].Relationships[0].Kind = "hasOne" }, ErrInvalidKind},
		{"unknown target", func(s *ir.Schema) { s.Models[0].Relationships[0].Type = "record" }, ErrUnknownTarget},
		{"reserved attribute", func(s *ir.Schema) { s.Models[1].Attributes[0].Name = ir.CorrelationKey }, ErrReservedName},
		{"reserved relationship", func(s *ir.Schema) { s.Models[0].Relationships[1].Name = "type" }, ErrReservedName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := validSchema()
			tt.mutate(schema)
			assert.Contains(t, codes(Validate(schema)), tt.code)
		})
	}
}

func TestValidateSerializerErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ir.Schema)
		code   string
	}{
		{"unknown model", func(s *ir.Schema) { s.Serializers[0].Model = "label" }, ErrSerializerUnknownModel},
		{"attribute instead of relationship", func(s *ir.Schema) {
			s.Serializers[0].Attrs["name"] = ir.FieldOptions{Serialize: true}
		}, ErrSerializerUnknownField},
		{"colliding key override", func(s *ir.Schema) {
			s.Serializers[0].Attrs["contactPerson"] = ir.FieldOptions{Key: "albums"}
		}, ErrDuplicateWireKey},
		{"reserved key override", func(s *ir.Schema) {
			s.Serializers[0].Attrs["albums"] = ir.FieldOptions{Serialize: true, Key: "id"}
		}, ErrInvalidWireKey},
		{"blank key override", func(s *ir.Schema) {
			s.Serializers[0].Attrs["albums"] = ir.FieldOptions{Serialize: true, Key: "  "}
		}, ErrInvalidWireKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := validSchema()
			tt.mutate(schema)
			assert.Contains(t, codes(Validate(schema)), tt.code)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	schema := validSchema()
	schema.Models[1].Attributes[0].Type = "float"
	schema.Models[0].Relationships[0].Kind = "manyToMany"
	schema.Serializers[0].Model = "label"

	errs := Validate(schema)
	assert.Len(t, errs, 3)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "models[0].name", Message: "bad", Code: ErrInvalidModelName}
	assert.Equal(t, "[E101] models[0].name: bad", err.Error())

	err.Line = 4
	assert.Equal(t, "[E101] line 4: models[0].name: bad", err.Error())
}
