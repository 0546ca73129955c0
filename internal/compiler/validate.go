package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/embedsave/internal/ir"
	"github.com/roach88/embedsave/internal/naming"
)

// Validation error codes (E100-E199)
const (
	// Model errors (E101-E107)
	ErrInvalidModelName = "E101" // model name must be dasherized singular
	ErrDuplicateModel   = "E102" // model declared twice
	ErrDuplicateField   = "E103" // attribute and relationship share a name
	ErrInvalidFieldType = "E104" // invalid attribute type
	ErrInvalidKind      = "E105" // relationship kind must be belongsTo or hasMany
	ErrUnknownTarget    = "E106" // relationship targets an undeclared model
	ErrReservedName     = "E107" // field uses a reserved wire name

	// Serializer errors (E108-E111)
	ErrSerializerUnknownModel = "E108" // serializer for an undeclared model
	ErrSerializerUnknownField = "E109" // options for a field that is not a relationship
	ErrDuplicateWireKey       = "E110" // two relationships serialize to the same key
	ErrInvalidWireKey         = "E111" // key override is empty or reserved

	// Schema errors (E112)
	ErrEmptySchema = "E112" // no models declared
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// reservedNames cannot be used as attribute or relationship names because
// they collide with resource object members or the correlation token.
var reservedNames = map[string]bool{
	"id":              true,
	"type":            true,
	ir.CorrelationKey: true,
}

// modelNamePattern matches dasherized names such as "contact-person".
var modelNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Validate validates a compiled schema.
// Returns all errors found (does not fail-fast).
func Validate(schema *ir.Schema) []ValidationError {
	var errs []ValidationError

	// E112: at least one model
	if schema == nil || len(schema.Models) == 0 {
		return []ValidationError{{
			Field:   "model",
			Message: "at least one model is required",
			Code:    ErrEmptySchema,
		}}
	}

	inflector := naming.New()
	declared := make(map[string]bool, len(schema.Models))
	for _, m := range schema.Models {
		declared[m.Name] = true
	}

	seenModels := make(map[string]bool)
	for i, m := range schema.Models {
		path := fmt.Sprintf("models[%d]", i)

		// E101: dasherized singular
		if !modelNamePattern.MatchString(m.Name) || inflector.ModelName(m.Name) != m.Name {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("model name %q must be a dasherized singular", m.Name),
				Code:    ErrInvalidModelName,
			})
		}

		// E102: duplicate model
		if seenModels[m.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate model name: %q", m.Name),
				Code:    ErrDuplicateModel,
			})
		}
		seenModels[m.Name] = true

		errs = append(errs, validateModel(m, path, declared)...)
	}

	for i, sp := range schema.Serializers {
		errs = append(errs, validateSerializer(schema, sp, fmt.Sprintf("serializers[%d]", i), inflector)...)
	}

	return errs
}

func validateModel(m ir.ModelSpec, path string, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	fields := make(map[string]bool)

	for j, a := range m.Attributes {
		fieldPath := fmt.Sprintf("%s.attributes[%d]", path, j)
		errs = append(errs, validateFieldName(a.Name, fieldPath, fields)...)

		// E104: attribute type
		if !isValidType(a.Type) {
			errs = append(errs, ValidationError{
				Field:   fieldPath + ".type",
				Message: fmt.Sprintf("invalid type %q for attribute %q", a.Type, a.Name),
				Code:    ErrInvalidFieldType,
			})
		}
	}

	for j, r := range m.Relationships {
		fieldPath := fmt.Sprintf("%s.relationships[%d]", path, j)
		errs = append(errs, validateFieldName(r.Name, fieldPath, fields)...)

		// E105: relationship kind
		if !ir.ValidKinds[r.Kind] {
			errs = append(errs, ValidationError{
				Field:   fieldPath + ".kind",
				Message: fmt.Sprintf("invalid relationship kind %q, must be %q or %q", r.Kind, ir.KindBelongsTo, ir.KindHasMany),
				Code:    ErrInvalidKind,
			})
		}

		// E106: target model must exist
		if !declared[r.Type] {
			errs = append(errs, ValidationError{
				Field:   fieldPath + ".type",
				Message: fmt.Sprintf("relationship %q targets undeclared model %q", r.Name, r.Type),
				Code:    ErrUnknownTarget,
			})
		}
	}

	return errs
}

func validateFieldName(name, fieldPath string, seen map[string]bool) []ValidationError {
	var errs []ValidationError

	// E107: reserved names
	if reservedNames[name] {
		errs = append(errs, ValidationError{
			Field:   fieldPath + ".name",
			Message: fmt.Sprintf("%q is a reserved name", name),
			Code:    ErrReservedName,
		})
	}

	// E103: one namespace for attributes and relationships
	if seen[name] {
		errs = append(errs, ValidationError{
			Field:   fieldPath + ".name",
			Message: fmt.Sprintf("duplicate field name: %q", name),
			Code:    ErrDuplicateField,
		})
	}
	seen[name] = true

	return errs
}

func validateSerializer(schema *ir.Schema, sp ir.SerializerSpec, path string, inflector *naming.Inflector) []ValidationError {
	var errs []ValidationError

	// E108: serializer model must exist
	model, ok := schema.Model(sp.Model)
	if !ok {
		return []ValidationError{{
			Field:   path + ".model",
			Message: fmt.Sprintf("serializer declared for undeclared model %q", sp.Model),
			Code:    ErrSerializerUnknownModel,
		}}
	}

	for field, opts := range sp.Attrs {
		// E109: options only apply to relationships
		if _, ok := model.Relationship(field); !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.attrs.%s", path, field),
				Message: fmt.Sprintf("model %q has no relationship %q", sp.Model, field),
				Code:    ErrSerializerUnknownField,
			})
		}

		// E111: key override
		if opts.Key != "" && (strings.TrimSpace(opts.Key) == "" || reservedNames[opts.Key]) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.attrs.%s.key", path, field),
				Message: fmt.Sprintf("invalid key override %q", opts.Key),
				Code:    ErrInvalidWireKey,
			})
		}
	}

	// E110: wire keys must be unique per model. Relationships are walked in
	// declaration order so the reported field is stable.
	keys := make(map[string]string)
	for _, r := range model.Relationships {
		key := inflector.KeyForRelationship(r.Name, r.Kind)
		if opts, ok := sp.Attrs[r.Name]; ok && opts.Key != "" {
			key = opts.Key
		}
		if other, dup := keys[key]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.attrs.%s.key", path, r.Name),
				Message: fmt.Sprintf("relationships %q and %q both serialize to key %q", other, r.Name, key),
				Code:    ErrDuplicateWireKey,
			})
			continue
		}
		keys[key] = r.Name
	}

	return errs
}

// isValidType checks if an attribute type string is valid for IR.
func isValidType(t string) bool {
	validTypes := map[string]bool{
		"string": true,
		"int":    true,
		"number": true,
		"bool":   true,
	}
	return validTypes[t]
}
