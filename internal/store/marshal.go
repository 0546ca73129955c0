package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/embedsave/internal/ir"
)

// marshalDocument converts a document to canonical JSON TEXT for storage.
func marshalDocument(doc *ir.Document) (string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses stored TEXT. A NULL column yields nil.
func unmarshalDocument(data sql.NullString) (*ir.Document, error) {
	if !data.Valid {
		return nil, nil
	}
	doc, err := ir.ParseDocument([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
