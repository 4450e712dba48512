package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContent(t *testing.T) {
	t.Run("parses a plain JSON object", func(t *testing.T) {
		content, err := parseContent(`{"description": "A lovely pot", "hashtags": ["#Handmade", "#Pottery"], "price": 49.99}`)
		require.NoError(t, err)
		assert.Equal(t, "A lovely pot", content.Description)
		assert.Equal(t, []string{"#Handmade", "#Pottery"}, content.Hashtags)
		require.NotNil(t, content.Price)
		assert.Equal(t, 49.99, *content.Price)
	})

	t.Run("strips markdown code fences", func(t *testing.T) {
		content, err := parseContent("```json\n{\"description\": \"Terracotta necklace\", \"hashtags\": [\"#Warli\"], \"price\": 25}\n```")
		require.NoError(t, err)
		assert.Equal(t, "Terracotta necklace", content.Description)
		require.NotNil(t, content.Price)
		assert.Equal(t, 25.0, *content.Price)
	})

	t.Run("preserves hashtag order as returned", func(t *testing.T) {
		content, err := parseContent(`{"description": "x", "hashtags": ["#Zebra", "#Apple", "#Mango"], "price": 1}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"#Zebra", "#Apple", "#Mango"}, content.Hashtags)
	})

	t.Run("fails on malformed JSON", func(t *testing.T) {
		_, err := parseContent(`{"description": "broken`)
		assert.Error(t, err)
	})

	t.Run("fails on missing description key", func(t *testing.T) {
		_, err := parseContent(`{"hashtags": [], "price": 10}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "description")
	})

	t.Run("fails when there is no JSON object at all", func(t *testing.T) {
		_, err := parseContent("I cannot help with that request.")
		assert.Error(t, err)
	})

	t.Run("tolerates surrounding prose around the object", func(t *testing.T) {
		content, err := parseContent(`Here is your listing: {"description": "d", "hashtags": [], "price": 5} Hope it helps!`)
		require.NoError(t, err)
		assert.Equal(t, "d", content.Description)
	})
}

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"number", `{"description": "d", "price": 49.99}`, ptr(49.99)},
		{"integer", `{"description": "d", "price": 75}`, ptr(75.0)},
		{"numeric string", `{"description": "d", "price": "32.50"}`, ptr(32.50)},
		{"dollar string", `{"description": "d", "price": "$19.99"}`, ptr(19.99)},
		{"non-numeric string", `{"description": "d", "price": "around thirty dollars"}`, nil},
		{"null", `{"description": "d", "price": null}`, nil},
		{"absent", `{"description": "d"}`, nil},
		{"object", `{"description": "d", "price": {"min": 10}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := parseContent(tt.raw)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, content.Price)
			} else {
				require.NotNil(t, content.Price)
				assert.Equal(t, *tt.want, *content.Price)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }
