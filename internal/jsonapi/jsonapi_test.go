package jsonapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/embedsave/internal/ir"
)

type fakeRecord struct {
	typ   string
	id    string
	attrs ir.Attributes
}

func (f fakeRecord) Type() string              { return f.typ }
func (f fakeRecord) ID() string                { return f.id }
func (f fakeRecord) Attributes() ir.Attributes { return f.attrs }

func TestSerializeAttributes(t *testing.T) {
	s := NewSerializer(nil)
	rec := fakeRecord{typ: "contact-person", id: "4", attrs: ir.Attributes{"firstName": "Thom", "age": 55}}

	res := s.SerializeAttributes(rec, false)
	assert.Equal(t, "contact-people", res.Type)
	assert.Empty(t, res.ID, "id omitted unless requested")
	assert.Equal(t, ir.Attributes{"first-name": "Thom", "age": 55}, res.Attributes)
	assert.Nil(t, res.Relationships)

	res = s.SerializeAttributes(rec, true)
	assert.Equal(t, "4", res.ID)
}

func TestSerializeAttributesEmpty(t *testing.T) {
	s := NewSerializer(nil)
	res := s.SerializeAttributes(fakeRecord{typ: "simple-model"}, true)

	assert.Equal(t, "simple-models", res.Type)
	assert.Nil(t, res.Attributes, "empty attributes are omitted")

	out, err := ir.MarshalDocument(&ir.Document{Data: res})
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"type":"simple-models"}}`, string(out))
}

func TestNormalizeResponse(t *testing.T) {
	raw := `{
		"data": {
			"type": "artists", "id": "1",
			"attributes": {"name": "Radiohead", "formed-in": 1985},
			"relationships": {
				"albums": {"data": [
					{"type": "albums", "id": "89329", "attributes": {"name": "Kid A", "__id__": "token-2"}},
					{"type": "albums", "id": "2"}
				]},
				"contact-person": {"data": null},
				"tours": {"links": {"related": "/tours"}}
			}
		},
		"included": [{"type": "contact-people", "id": "7", "attributes": {"__id__": "token-3"}}]
	}`
	doc, err := ir.ParseDocument([]byte(raw))
	require.NoError(t, err)

	out, err := NewNormalizer(nil).NormalizeResponse(doc)
	require.NoError(t, err)

	assert.Equal(t, "artist", out.Data.Type)
	assert.Equal(t, "1", out.Data.ID)
	assert.Equal(t, "Radiohead", out.Data.Attributes["name"])
	assert.Contains(t, out.Data.Attributes, "formedIn")

	albums := out.Data.Relationships["albums"]
	require.NotNil(t, albums)
	require.Len(t, albums.Data.Items(), 2)
	first := albums.Data.Items()[0]
	assert.Equal(t, "album", first.Type)
	assert.NotContains(t, first.Attributes, ir.CorrelationKey, "correlation token is dropped")
	assert.Nil(t, albums.Data.Items()[1].Attributes)

	contact := out.Data.Relationships["contactPerson"]
	require.NotNil(t, contact)
	assert.True(t, contact.Data.IsNull())

	tours := out.Data.Relationships["tours"]
	require.NotNil(t, tours)
	assert.False(t, tours.HasData())
	assert.Equal(t, "/tours", tours.Links["related"])

	require.Len(t, out.Included, 1)
	assert.Equal(t, "contact-person", out.Included[0].Type)
	assert.Nil(t, out.Included[0].Attributes)

	// Input is left untouched.
	_, ok := doc.Included[0].CorrelationToken()
	assert.True(t, ok)
	assert.Equal(t, "artists", doc.Data.Type)
}

func TestNormalizeResponseCycle(t *testing.T) {
	artist := &ir.Resource{Type: "artists", ID: "1"}
	album := &ir.Resource{Type: "albums", ID: "2"}
	artist.SetRelationship("albums", &ir.Relationship{Data: ir.ToManyLinkage([]*ir.Resource{album})})
	album.SetRelationship("artist", &ir.Relationship{Data: ir.ToOneLinkage(artist)})

	out, err := NewNormalizer(nil).NormalizeResponse(&ir.Document{Data: artist})
	require.NoError(t, err)

	back := out.Data.Relationships["albums"].Data.Items()[0].Relationships["artist"].Data.One()
	assert.Same(t, out.Data, back, "cyclic pointers normalize to one copy")
}

func TestNormalizeResponseMissingType(t *testing.T) {
	_, err := NewNormalizer(nil).NormalizeResponse(&ir.Document{Data: &ir.Resource{ID: "1"}})
	require.ErrorIs(t, err, ErrMissingType)
}

func TestNormalizeResponseEmpty(t *testing.T) {
	out, err := NewNormalizer(nil).NormalizeResponse(nil)
	require.NoError(t, err)
	assert.Nil(t, out.Data)

	out, err = NewNormalizer(nil).NormalizeResponse(&ir.Document{})
	require.NoError(t, err)
	assert.Nil(t, out.Data)
	assert.Empty(t, out.Included)
}
