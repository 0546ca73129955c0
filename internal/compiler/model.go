package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/embedsave/internal/ir"
)

// CompileSchema parses the top-level "model" and "serializer" structs of a
// CUE value into an ir.Schema. Uses the CUE SDK's Go API directly.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: album: attributes: name: string`)
//	schema, err := CompileSchema(v)
//
// Models and relationships keep their declaration order.
func CompileSchema(v cue.Value) (*ir.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.Schema{
		Models:      []ir.ModelSpec{},
		Serializers: []ir.SerializerSpec{},
	}

	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if modelsVal.Exists() {
		iter, err := modelsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileModel(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			schema.Models = append(schema.Models, *spec)
		}
	}

	serializersVal := v.LookupPath(cue.ParsePath("serializer"))
	if serializersVal.Exists() {
		iter, err := serializersVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileSerializer(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			schema.Serializers = append(schema.Serializers, *spec)
		}
	}

	return schema, nil
}

// CompileModel parses one model declaration:
//
//	model: artist: {
//	    attributes: name: string
//	    relationships: albums: {kind: "hasMany", type: "album"}
//	}
func CompileModel(name string, v cue.Value) (*ir.ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModelSpec{
		Name:          name,
		Attributes:    []ir.AttributeSpec{},
		Relationships: []ir.RelationshipSpec{},
	}

	var err error
	spec.Attributes, err = parseAttributes(name, v)
	if err != nil {
		return nil, err
	}

	spec.Relationships, err = parseRelationships(name, v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// parseAttributes extracts attribute declarations (optional).
func parseAttributes(model string, v cue.Value) ([]ir.AttributeSpec, error) {
	attrs := []ir.AttributeSpec{}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return attrs, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typeName, err := extractTypeName(iter.Value())
		if err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				ce.Field = fmt.Sprintf("model.%s.attributes.%s", model, iter.Label())
			}
			return nil, err
		}
		attrs = append(attrs, ir.AttributeSpec{
			Name: iter.Label(),
			Type: typeName,
		})
	}

	return attrs, nil
}

// parseRelationships extracts relationship declarations (optional).
// Kind is copied verbatim and checked by Validate.
func parseRelationships(model string, v cue.Value) ([]ir.RelationshipSpec, error) {
	rels := []ir.RelationshipSpec{}

	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if !relsVal.Exists() {
		return rels, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field := iter.Label()
		relVal := iter.Value()
		path := fmt.Sprintf("model.%s.relationships.%s", model, field)

		kind, err := requiredString(relVal, "kind", path)
		if err != nil {
			return nil, err
		}
		target, err := requiredString(relVal, "type", path)
		if err != nil {
			return nil, err
		}

		rels = append(rels, ir.RelationshipSpec{
			Name: field,
			Kind: ir.RelationshipKind(kind),
			Type: target,
		})
	}

	return rels, nil
}

// CompileSerializer parses one serializer declaration:
//
//	serializer: artist: attrs: albums: {serialize: true, key: "records"}
func CompileSerializer(model string, v cue.Value) (*ir.SerializerSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SerializerSpec{
		Model: model,
		Attrs: make(map[string]ir.FieldOptions),
	}

	attrsVal := v.LookupPath(cue.ParsePath("attrs"))
	if !attrsVal.Exists() {
		return spec, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field := iter.Label()
		optVal := iter.Value()
		var opts ir.FieldOptions

		if serVal := optVal.LookupPath(cue.ParsePath("serialize")); serVal.Exists() {
			b, err := serVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts.Serialize = b
		}
		if keyVal := optVal.LookupPath(cue.ParsePath("key")); keyVal.Exists() {
			key, err := keyVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			opts.Key = key
		}

		spec.Attrs[field] = opts
	}

	return spec, nil
}

func requiredString(v cue.Value, name, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   path + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// extractTypeName converts a CUE attribute type to an IR type string.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind, cue.NumberKind:
		return "number", nil
	case cue.BoolKind:
		return "bool", nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported attribute kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// Source is one named CUE document.
type Source struct {
	Filename string
	Data     []byte
}

// CompileSources compiles and unifies CUE sources into a single schema.
// Later sources may extend models declared by earlier ones.
func CompileSources(srcs ...Source) (*ir.Schema, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString("{}")
	for _, src := range srcs {
		v := ctx.CompileBytes(src.Data, cue.Filename(src.Filename))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		value = value.Unify(v)
	}
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileSchema(value)
}

// CompileSource compiles a single CUE document.
func CompileSource(filename string, src []byte) (*ir.Schema, error) {
	return CompileSources(Source{Filename: filename, Data: src})
}

// LoadFiles reads and compiles the given CUE files as one schema.
func LoadFiles(paths ...string) (*ir.Schema, error) {
	srcs := make([]Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read spec %s: %w", p, err)
		}
		srcs = append(srcs, Source{Filename: p, Data: data})
	}
	return CompileSources(srcs...)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
