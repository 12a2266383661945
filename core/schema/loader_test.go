package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchemaFile_YAML(t *testing.T) {
	s, err := LoadSchemaFile("testdata/movies.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Movies", s.Name)
	keys := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"title", "status", "rating", "cast"}, keys)

	rating := s.FindField("rating")
	require.NotNil(t, rating)
	assert.Equal(t, NumberOptions{Min: Float64Ptr(0), Max: Float64Ptr(10), Step: Float64Ptr(0.5)}, rating.Options)

	v := NewValidator(s)
	result := v.Validate(Document{"title": "Dune", "status": "watched", "rating": 8, "cast": []any{"Zendaya"}})
	assert.True(t, result.Valid)
}

func TestLoadSchema_JSON(t *testing.T) {
	doc := `{"name":"Gym","fields":[{"key":"exercise","label":"Exercise","field_type":"text","required":true},{"key":"reps","label":"Reps","field_type":"list","options":{"item_type":"number","min_items":1}}]}`
	s, err := LoadSchema([]byte(doc), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, s.Fields, 2)
	assert.Equal(t, ListOptions{ItemType: ItemTypeNumber, MinItems: IntPtr(1)}, s.FindField("reps").Options)
}

func TestLoadSchema_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not an object", `[]`, "invalid schema document"},
		{"missing name", `{"fields":[]}`, "invalid schema document"},
		{"unknown type", `{"name":"x","fields":[{"key":"a","label":"A","field_type":"color"}]}`, "/fields/0/field_type"},
		{"hyphen key", `{"name":"x","fields":[{"key":"a-b","label":"A","field_type":"text"}]}`, "/fields/0/key"},
		{"extra property", `{"name":"x","fields":[],"owner":"me"}`, "invalid schema document"},
		{"duplicate key", `{"name":"x","fields":[{"key":"a","label":"A","field_type":"text"},{"key":"a","label":"B","field_type":"text"}]}`, "already exists"},
		{"incoherent options", `{"name":"x","fields":[{"key":"n","label":"N","field_type":"number","options":{"min":3,"max":1}}]}`, "min must not be greater than max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchema([]byte(tt.doc), FormatJSON)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSchema_BadYAML(t *testing.T) {
	_, err := LoadSchema([]byte("name: [unterminated"), FormatYAML)
	assert.ErrorContains(t, err, "parsing YAML schema")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("b"))
}
