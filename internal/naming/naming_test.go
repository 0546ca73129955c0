package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/embedsave/internal/ir"
)

func TestPayloadType(t *testing.T) {
	inf := New()

	tests := []struct {
		model    string
		expected string
	}{
		{"album", "albums"},
		{"artist", "artists"},
		{"contact-person", "contact-people"},
		{"category", "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, inf.PayloadType(tt.model))
		})
	}
}

func TestModelName(t *testing.T) {
	inf := New()

	tests := []struct {
		payloadType string
		expected    string
	}{
		{"albums", "album"},
		{"artists", "artist"},
		{"contact-people", "contact-person"},
		{"categories", "category"},
		{"album", "album"},
	}
	for _, tt := range tests {
		t.Run(tt.payloadType, func(t *testing.T) {
			assert.Equal(t, tt.expected, inf.ModelName(tt.payloadType))
		})
	}
}

func TestPayloadTypeRoundTrip(t *testing.T) {
	inf := New()
	for _, model := range []string{"album", "artist", "contact-person", "track"} {
		assert.Equal(t, model, inf.ModelName(inf.PayloadType(model)))
	}
}

func TestKeys(t *testing.T) {
	inf := New()

	assert.Equal(t, "release-year", inf.KeyForAttribute("releaseYear"))
	assert.Equal(t, "name", inf.KeyForAttribute("name"))
	assert.Equal(t, ir.CorrelationKey, inf.KeyForAttribute(ir.CorrelationKey))

	assert.Equal(t, "contact-person", inf.KeyForRelationship("contactPerson", ir.KindBelongsTo))
	assert.Equal(t, "albums", inf.KeyForRelationship("albums", ir.KindHasMany))
}

func TestAttributeName(t *testing.T) {
	inf := New()

	assert.Equal(t, "releaseYear", inf.AttributeName("release-year"))
	assert.Equal(t, "name", inf.AttributeName("name"))
	assert.Equal(t, ir.CorrelationKey, inf.AttributeName(ir.CorrelationKey))
	assert.Equal(t, "contactPerson", inf.RelationshipName("contact-person"))
}
