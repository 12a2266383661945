package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func movieSchema() *Schema {
	return NewSchema("movies", []*FieldDefinition{
		{Key: "title", Label: "Title", Type: FieldTypeText, Required: true, Options: NoOptions{}, Order: 0},
		{Key: "rating", Label: "Rating", Type: FieldTypeNumber, Required: true,
			Options: NumberOptions{Min: Float64Ptr(0), Max: Float64Ptr(10)}, Order: 1},
		{Key: "status", Label: "Status", Type: FieldTypeSelect,
			Options: ChoiceOptions{Choices: []string{"to_watch", "watching", "watched"}}, Order: 2},
		{Key: "tags", Label: "Tags", Type: FieldTypeMultiSelect, Required: true, Options: ChoiceOptions{}, Order: 3},
		{Key: "seen", Label: "Seen", Type: FieldTypeBoolean, Options: NoOptions{}, Order: 4},
	})
}

func TestValidator_Accept(t *testing.T) {
	v := NewValidator(movieSchema())
	result := v.Validate(Document{
		"title":  "Arrival",
		"rating": 9.5,
		"status": "watched",
		"tags":   []any{"sci-fi"},
		"seen":   true,
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Issues)
	assert.NoError(t, result.Err())
}

func TestValidator_PresenceSentinels(t *testing.T) {
	v := NewValidator(movieSchema())
	base := func() Document {
		return Document{"title": "x", "rating": 5, "tags": []any{"a"}}
	}

	t.Run("zero is present", func(t *testing.T) {
		doc := base()
		doc["rating"] = 0
		assert.True(t, v.Validate(doc).Valid)
	})

	t.Run("false is present", func(t *testing.T) {
		doc := base()
		doc["seen"] = false
		assert.True(t, v.Validate(doc).Valid)
	})

	t.Run("nil is absent", func(t *testing.T) {
		doc := base()
		doc["rating"] = nil
		result := v.Validate(doc)
		assert.False(t, result.Valid)
		assert.Equal(t, map[string]string{"rating": "This field is required."}, result.Errors)
		assert.Equal(t, CodeRequired, result.Issues[0].Code)
	})

	t.Run("empty string is absent", func(t *testing.T) {
		doc := base()
		doc["title"] = ""
		result := v.Validate(doc)
		assert.Equal(t, map[string]string{"title": "This field is required."}, result.Errors)
	})

	t.Run("empty list is absent", func(t *testing.T) {
		doc := base()
		doc["tags"] = []any{}
		result := v.Validate(doc)
		assert.Equal(t, map[string]string{"tags": "This field is required."}, result.Errors)
	})

	t.Run("typed empty list is absent", func(t *testing.T) {
		doc := base()
		doc["tags"] = []string{}
		result := v.Validate(doc)
		assert.Equal(t, map[string]string{"tags": "This field is required."}, result.Errors)
	})

	t.Run("absent optional field is skipped", func(t *testing.T) {
		doc := base()
		doc["status"] = ""
		assert.True(t, v.Validate(doc).Valid)
	})
}

func TestValidator_RangeBoundary(t *testing.T) {
	v := NewValidator(movieSchema())
	tests := []struct {
		name    string
		rating  any
		message string
	}{
		{"lower bound", 0, ""},
		{"upper bound", 10, ""},
		{"upper bound float", 10.0, ""},
		{"below", -0.01, "Must be ≥ 0."},
		{"above", 10.01, "Must be ≤ 10."},
		{"string", "7", "Must be a number."},
		{"bool", true, "Must be a number."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(Document{"title": "x", "rating": tt.rating, "tags": []any{"a"}})
			if tt.message == "" {
				assert.True(t, result.Valid)
				return
			}
			require.False(t, result.Valid)
			assert.Equal(t, tt.message, result.Errors["rating"])
		})
	}
}

func TestValidator_ChoiceEnforcement(t *testing.T) {
	v := NewValidator(movieSchema())

	ok := v.Validate(Document{"title": "x", "rating": 1, "tags": []any{"a"}, "status": "watching"})
	assert.True(t, ok.Valid)

	bad := v.Validate(Document{"title": "x", "rating": 1, "tags": []any{"a"}, "status": "paused"})
	require.False(t, bad.Valid)
	assert.Equal(t, "Invalid choice.", bad.Errors["status"])
	assert.Equal(t, CodeInvalidChoice, bad.Issues[0].Code)
}

func TestValidator_UnknownKeyAggregation(t *testing.T) {
	s := NewSchema("movies", []*FieldDefinition{
		{Key: "title", Label: "Title", Type: FieldTypeText, Options: NoOptions{}},
		{Key: "rating", Label: "Rating", Type: FieldTypeNumber, Options: NumberOptions{}},
	})
	v := NewValidator(s)

	result := v.Validate(Document{"title": "x", "rating": 5, "extra": 2, "bogus": 1})
	require.False(t, result.Valid)
	assert.Equal(t, map[string]string{DataSlot: "Unknown field keys: ['bogus', 'extra']"}, result.Errors)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, CodeUnexpectedField, result.Issues[0].Code)
}

func TestValidator_NoShortCircuit(t *testing.T) {
	v := NewValidator(movieSchema())

	result := v.Validate(Document{
		"title":  42,
		"rating": 11,
		"status": "paused",
		"seen":   "yes",
		"bogus":  true,
	})

	require.False(t, result.Valid)
	assert.Equal(t, map[string]string{
		DataSlot: "Unknown field keys: ['bogus']",
		"title":  "Must be a string.",
		"rating": "Must be ≤ 10.",
		"status": "Invalid choice.",
		"tags":   "This field is required.",
		"seen":   "Must be true/false.",
	}, result.Errors)
	assert.Len(t, result.Issues, 6)
}

func TestValidator_ErrorSlotsAreFieldsOrData(t *testing.T) {
	s := movieSchema()
	v := NewValidator(s)
	result := v.Validate(Document{"unknown": 1, "rating": "x"})

	allowed := map[string]struct{}{DataSlot: {}}
	for _, f := range s.Fields {
		allowed[f.Key] = struct{}{}
	}
	for slot := range result.Errors {
		assert.Contains(t, allowed, slot)
	}
}

func TestValidator_Idempotent(t *testing.T) {
	v := NewValidator(movieSchema())
	doc := Document{"title": 1, "rating": -1, "zzz": 1}

	first := v.Validate(doc)
	second := v.Validate(doc)
	assert.Equal(t, first, second)
	assert.Equal(t, Document{"title": 1, "rating": -1, "zzz": 1}, doc)
}

func TestValidator_DoesNotShareSchema(t *testing.T) {
	s := movieSchema()
	v := NewValidator(s)
	s.Fields[0].Required = false
	s.Fields[0].Key = "renamed"

	result := v.Validate(Document{"rating": 1, "tags": []any{"a"}})
	assert.Equal(t, "This field is required.", result.Errors["title"])
}

func TestValidator_Concurrent(t *testing.T) {
	v := NewValidator(movieSchema())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := v.Validate(Document{"title": "x", "rating": i % 12, "tags": []any{"a"}})
			assert.Equal(t, i%12 <= 10, result.Valid)
		}(i)
	}
	wg.Wait()
}

func TestValidator_UnsupportedType(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := NewSchema("broken", []*FieldDefinition{
		{Key: "colour", Label: "Colour", Type: FieldType("color"), Options: NoOptions{}},
	})
	v := NewValidator(s, WithLogger(zap.New(core)))

	result := v.Validate(Document{"colour": "#fff"})
	require.False(t, result.Valid)
	assert.Equal(t, "Unsupported field type.", result.Errors["colour"])

	err := result.Err()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Internal())
	assert.Equal(t, 1, logs.FilterMessage("Schema declares an unsupported field type").Len())
}

func TestValidator_LogAndAcceptPolicy(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := NewValidator(movieSchema(), WithPolicy(PolicyLogAndAccept), WithLogger(zap.New(core)))

	result := v.Validate(Document{"title": 3})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	require.NotEmpty(t, result.Issues)
	for _, issue := range result.Issues {
		assert.Equal(t, SeverityWarning, issue.Severity)
	}
	assert.Equal(t, 1, logs.Len())
	assert.NoError(t, result.Err())
}

func TestValidator_IndexByLabel(t *testing.T) {
	v := NewValidator(movieSchema(), WithIndexMode(IndexByLabel))

	result := v.Validate(Document{"Title": "x", "Rating": 4, "Tags": []any{"a"}})
	assert.True(t, result.Valid)

	result = v.Validate(Document{"title": "x", "Rating": 40, "Tags": []any{"a"}})
	require.False(t, result.Valid)
	assert.Equal(t, "Unknown field keys: ['title']", result.Errors[DataSlot])
	assert.Equal(t, "This field is required.", result.Errors["Title"])
	assert.Equal(t, "Must be ≤ 10.", result.Errors["Rating"])
}

func TestSchema_DataSlotIsReserved(t *testing.T) {
	byKey := NewSchema("odd", []*FieldDefinition{
		{Key: "data", Label: "Data", Type: FieldTypeText, Required: true, Options: NoOptions{}},
	})
	var defErr *DefinitionError
	require.ErrorAs(t, byKey.Validate(), &defErr)
	assert.Equal(t, "data", defErr.Field)

	byLabel := NewSchema("odd", []*FieldDefinition{
		{Key: "payload", Label: "data", Type: FieldTypeText, Options: NoOptions{}},
	})
	require.ErrorAs(t, byLabel.Validate(), &defErr)
	assert.Equal(t, "payload", defErr.Field)
}

func TestValidator_UnknownKeysAreQuoted(t *testing.T) {
	v := NewValidator(NewSchema("x", nil))

	result := v.Validate(Document{"it's": 1, `back\slash`: 2})
	assert.Equal(t, `Unknown field keys: ['back\\slash', "it's"]`, result.Errors[DataSlot])

	result = v.Validate(Document{`say "it's"`: 1})
	assert.Equal(t, `Unknown field keys: ['say "it\'s"']`, result.Errors[DataSlot])
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: map[string]string{"title": "This field is required.", "data": "Unknown field keys: ['x']"}}
	assert.Equal(t, "validation failed: data: Unknown field keys: ['x']; title: This field is required.", err.Error())
	assert.False(t, err.Internal())
}

func TestParsePolicyAndIndexMode(t *testing.T) {
	p, err := ParsePolicy("LOG")
	require.NoError(t, err)
	assert.Equal(t, PolicyLogAndAccept, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)

	m, err := ParseIndexMode("label")
	require.NoError(t, err)
	assert.Equal(t, IndexByLabel, m)

	_, err = ParseIndexMode("id")
	assert.Error(t, err)
}
