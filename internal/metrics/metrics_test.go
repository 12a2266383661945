package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveValidation(t *testing.T) {
	r := NewRecorder()

	r.ObserveValidation("movies", &schema.ValidationResult{Valid: true})
	r.ObserveValidation("movies", &schema.ValidationResult{
		Valid:  false,
		Errors: map[string]string{"rating": "Must be ≤ 10."},
		Issues: []schema.Issue{
			{Code: schema.CodeRangeViolation, Path: "rating"},
			{Code: schema.CodeRequired, Path: "director"},
		},
	})
	r.ObserveValidation("books", &schema.ValidationResult{
		Valid:  true,
		Issues: []schema.Issue{{Code: schema.CodeRequired, Path: "author"}},
	})
	r.ObserveValidation("books", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.validations.WithLabelValues("movies", OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.validations.WithLabelValues("movies", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.validations.WithLabelValues("books", OutcomeWarned)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.issues.WithLabelValues(schema.CodeRequired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.issues.WithLabelValues(schema.CodeRangeViolation)))
}

func TestObserveOperation(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{&schema.ValidationError{}, "invalid"},
		{fmt.Errorf("wrapped: %w", &schema.DefinitionError{Field: "x", Message: "Key is required."}), "bad_definition"},
		{fmt.Errorf("entry 'x': %w", persistence.ErrNotFound), "not_found"},
		{persistence.ErrForbidden, "forbidden"},
		{persistence.ErrConflict, "conflict"},
		{persistence.ErrInvalidTag, "invalid_tag"},
		{persistence.ErrInvalidInput, "invalid_input"},
		{errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := NewRecorder()
			r.ObserveOperation("create_entry", tt.err)
			assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues("create_entry", tt.want)))
		})
	}
}

func TestWriteToTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveOperation("audit", nil)

	path := filepath.Join(t.TempDir(), "hobbies.prom")
	require.NoError(t, r.WriteToTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `hobbies_operations_total{operation="audit",outcome="success"} 1`)
	assert.Equal(t, 1, testutil.CollectAndCount(r.operations))
}
