package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/embedsave/internal/ir"
)

// createTestStore creates a new file-backed journal for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRequest builds a small artist save request with one embedded album.
func testRequest(name string) *ir.Document {
	album := &ir.Resource{Type: "albums", Attributes: ir.Attributes{ir.CorrelationKey: "token-2", "name": "Kid A"}}
	return &ir.Document{Data: &ir.Resource{
		Type:       "artists",
		Attributes: ir.Attributes{"name": name},
		Relationships: map[string]*ir.Relationship{
			"albums": {Data: ir.ToManyLinkage([]*ir.Resource{album})},
		},
	}}
}

// writeTestExchange journals testRequest(name) at seq and returns it.
func writeTestExchange(t *testing.T, s *Store, name string, seq int64) ir.Exchange {
	t.Helper()
	ex, err := NewExchange("artist", "token-1", testRequest(name), seq)
	if err != nil {
		t.Fatalf("NewExchange() failed: %v", err)
	}
	if err := s.WriteExchange(context.Background(), ex); err != nil {
		t.Fatalf("WriteExchange() failed: %v", err)
	}
	return ex
}

func canonical(t *testing.T, doc *ir.Document) string {
	t.Helper()
	b, err := ir.MarshalCanonical(doc)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	return string(b)
}
