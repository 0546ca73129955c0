package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentLinkageForms(t *testing.T) {
	raw := `{
		"data": {
			"type": "artists",
			"id": "1",
			"relationships": {
				"albums":  {"data": [{"type": "albums", "id": "2"}, {"type": "albums", "id": "3"}]},
				"label":   {"data": {"type": "labels", "id": "9"}},
				"manager": {"data": null},
				"tours":   {"links": {"related": "/artists/1/tours"}}
			}
		}
	}`

	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, doc.Data)

	albums := doc.Data.Relationships["albums"]
	require.True(t, albums.HasData())
	assert.True(t, albums.Data.IsMany())
	require.Len(t, albums.Data.Items(), 2)
	assert.Equal(t, "2", albums.Data.Items()[0].ID)
	assert.Equal(t, "3", albums.Data.Items()[1].ID)

	label := doc.Data.Relationships["label"]
	require.True(t, label.HasData())
	assert.False(t, label.Data.IsMany())
	require.NotNil(t, label.Data.One())
	assert.Equal(t, "9", label.Data.One().ID)
	assert.Len(t, label.Data.Items(), 1)

	manager := doc.Data.Relationships["manager"]
	assert.True(t, manager.HasData())
	assert.True(t, manager.Data.IsNull())
	assert.Nil(t, manager.Data.Items())

	tours := doc.Data.Relationships["tours"]
	assert.False(t, tours.HasData(), "links-only relationship has no data")
	assert.False(t, tours.Data.IsNull())
	assert.Equal(t, "/artists/1/tours", tours.Links["related"])
}

func TestParseDocumentIncluded(t *testing.T) {
	raw := `{"data": {"type": "artists", "id": "1"}, "included": [{"type": "albums", "id": "2", "attributes": {"__id__": "t-2", "year": 2000}}]}`

	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	require.Len(t, doc.Included, 1)

	token, ok := doc.Included[0].CorrelationToken()
	require.True(t, ok)
	assert.Equal(t, "t-2", token)
	assert.Equal(t, json.Number("2000"), doc.Included[0].Attributes["year"])
}

func TestParseDocumentInvalidLinkage(t *testing.T) {
	_, err := ParseDocument([]byte(`{"data": {"type": "artists", "relationships": {"albums": {"data": "nope"}}}}`))
	require.Error(t, err)
}

func TestMarshalDocumentRelationships(t *testing.T) {
	res := NewResource("artists")
	res.SetRelationship("manager", &Relationship{Data: NullLinkage()})
	res.SetRelationship("albums", &Relationship{Data: ToManyLinkage(nil)})
	res.SetRelationship("tours", &Relationship{Links: map[string]string{"related": "/tours"}})

	out, err := MarshalDocument(&Document{Data: res})
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	rels := generic["data"].(map[string]any)["relationships"].(map[string]any)

	manager := rels["manager"].(map[string]any)
	assert.Contains(t, manager, "data")
	assert.Nil(t, manager["data"])

	assert.Equal(t, []any{}, rels["albums"].(map[string]any)["data"])

	tours := rels["tours"].(map[string]any)
	assert.NotContains(t, tours, "data")
	assert.Contains(t, tours, "links")

	assert.NotContains(t, generic, "included")
}

func TestMarshalDocumentNoHTMLEscaping(t *testing.T) {
	res := NewResource("artists")
	res.Attributes = Attributes{"name": "Simon & Garfunkel"}

	out, err := MarshalDocument(&Document{Data: res})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Simon & Garfunkel")
	assert.NotContains(t, string(out), "\n")
}

func TestCorrelationToken(t *testing.T) {
	var nilRes *Resource
	_, ok := nilRes.CorrelationToken()
	assert.False(t, ok)

	res := NewResource("albums")
	_, ok = res.CorrelationToken()
	assert.False(t, ok, "no attributes")

	res.Attributes = Attributes{CorrelationKey: 42}
	_, ok = res.CorrelationToken()
	assert.False(t, ok, "non-string token")

	res.Attributes = Attributes{CorrelationKey: ""}
	_, ok = res.CorrelationToken()
	assert.False(t, ok, "empty token")

	stub := NewResource("albums")
	stub.SetCorrelationToken("t-7")
	token, ok := stub.CorrelationToken()
	require.True(t, ok)
	assert.Equal(t, "t-7", token)
}

func TestMarkNormalized(t *testing.T) {
	res := NewResource("albums")
	assert.False(t, res.Normalized())
	assert.False(t, res.MarkNormalized(), "first mark reports not already set")
	assert.True(t, res.MarkNormalized(), "second mark reports already set")
	assert.True(t, res.Normalized())
}

func TestRelationshipKeysOrder(t *testing.T) {
	res := NewResource("artists")
	for _, k := range []string{"tours", "albums", "contact-person"} {
		res.SetRelationship(k, &Relationship{Data: NullLinkage()})
	}
	assert.Equal(t, []string{"albums", "contact-person", "tours"}, res.RelationshipKeys())
}

func TestAttributesClone(t *testing.T) {
	var nilAttrs Attributes
	assert.Nil(t, nilAttrs.Clone())

	a := Attributes{"b": 1, "a": 2}
	c := a.Clone()
	c["a"] = 3
	assert.Equal(t, 2, a["a"])
	assert.Equal(t, []string{"a", "b"}, a.Keys())
}

func TestSchemaLookups(t *testing.T) {
	s := &Schema{
		Models: []ModelSpec{{
			Name:          "artist",
			Attributes:    []AttributeSpec{{Name: "name", Type: "string"}},
			Relationships: []RelationshipSpec{{Name: "albums", Kind: KindHasMany, Type: "album"}},
		}},
		Serializers: []SerializerSpec{{Model: "artist", Attrs: map[string]FieldOptions{"albums": {Serialize: true}}}},
	}

	m, ok := s.Model("artist")
	require.True(t, ok)
	assert.True(t, m.HasAttribute("name"))
	assert.False(t, m.HasAttribute("albums"))

	rel, ok := m.Relationship("albums")
	require.True(t, ok)
	assert.Equal(t, KindHasMany, rel.Kind)

	_, ok = s.Model("album")
	assert.False(t, ok)

	sp, ok := s.Serializer("artist")
	require.True(t, ok)
	assert.True(t, sp.Attrs["albums"].Serialize)

	var nilSchema *Schema
	_, ok = nilSchema.Model("artist")
	assert.False(t, ok)
}
