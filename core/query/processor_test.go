package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func entryDocs() []schema.Document {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []schema.Document{
		{"title": "Arrival", "status": "done", "tags": []string{"sci-fi"}, "updated_at": base.Add(3 * time.Hour),
			"data": map[string]any{"rating": 9.0, "year": 2016}},
		{"title": "Blade Runner", "status": "backlog", "tags": []string{"sci-fi", "noir"}, "updated_at": base.Add(1 * time.Hour),
			"data": map[string]any{"rating": 8.0}},
		{"title": "Casablanca", "status": "done", "tags": []string{}, "updated_at": base.Add(2 * time.Hour),
			"data": map[string]any{"rating": 10, "year": 1942}},
		{"title": "Dune", "status": "in_progress", "tags": []string{"sci-fi"}, "updated_at": base,
			"data": map[string]any{}},
	}
}

func titles(rows []schema.Document) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["title"].(string))
	}
	return out
}

func TestNewDataProcessor(t *testing.T) {
	p := NewDataProcessor(nil)
	assert.NotNil(t, p)
	assert.NotNil(t, p.goFilterFunctions)
	assert.NotNil(t, p.logger)

	p = NewDataProcessor(zap.NewNop())
	assert.NotNil(t, p)
}

func TestDataProcessor_RegisterFilterFunctions(t *testing.T) {
	p := NewDataProcessor(nil)
	funcs := map[ComparisonOperator]PredicateFunction{
		"op1": func(doc schema.Document, field string, args FilterValue) (bool, error) { return true, nil },
		"op2": func(doc schema.Document, field string, args FilterValue) (bool, error) { return true, nil },
	}
	p.RegisterFilterFunctions(funcs)
	assert.Contains(t, p.goFilterFunctions, ComparisonOperator("op1"))
	assert.Contains(t, p.goFilterFunctions, ComparisonOperator("op2"))
}

func TestDataProcessor_Match(t *testing.T) {
	p := NewDataProcessor(nil)
	ctx := context.Background()
	doc := entryDocs()[0]

	tests := []struct {
		name     string
		filter   *QueryFilter
		expected bool
	}{
		{"nil filter", nil, true},
		{"eq", cond("status", ComparisonOperatorEq, "done"), true},
		{"eq mixed numeric types", cond("data.year", ComparisonOperatorEq, 2016.0), true},
		{"neq", cond("status", ComparisonOperatorNeq, "done"), false},
		{"gt", cond("data.rating", ComparisonOperatorGt, 8), true},
		{"gte boundary", cond("data.rating", ComparisonOperatorGte, 9), true},
		{"lt", cond("data.rating", ComparisonOperatorLt, 9), false},
		{"lte boundary", cond("data.rating", ComparisonOperatorLte, 9), true},
		{"gt incomparable", cond("title", ComparisonOperatorGt, 3), false},
		{"gt strings", cond("title", ComparisonOperatorGt, "A"), true},
		{"time compare", cond("updated_at", ComparisonOperatorGt, "2025-01-01T01:00:00Z"), true},
		{"in scalar", cond("status", ComparisonOperatorIn, []any{"done", "backlog"}), true},
		{"in list overlap", cond("tags", ComparisonOperatorIn, []any{"noir", "sci-fi"}), true},
		{"nin list", cond("tags", ComparisonOperatorNin, []any{"noir"}), true},
		{"contains list", cond("tags", ComparisonOperatorContains, "sci-fi"), true},
		{"contains substring", cond("title", ComparisonOperatorContains, "rriv"), true},
		{"ncontains", cond("title", ComparisonOperatorNotContains, "rriv"), false},
		{"startswith", cond("title", ComparisonOperatorStartsWith, "Arr"), true},
		{"endswith", cond("title", ComparisonOperatorEndsWith, "val"), true},
		{"exists", cond("data.year", ComparisonOperatorExists, true), true},
		{"nexists", cond("data.missing", ComparisonOperatorNotExists, true), true},
		{"missing path fails eq", cond("data.missing", ComparisonOperatorEq, 1), false},
		{"missing path passes neq", cond("data.missing", ComparisonOperatorNeq, 1), true},
		{"path through scalar", cond("title.length", ComparisonOperatorExists, true), false},
		{
			"and group",
			&QueryFilter{Group: &FilterGroup{Operator: LogicalOperatorAnd, Conditions: []QueryFilter{
				*cond("status", ComparisonOperatorEq, "done"),
				*cond("data.rating", ComparisonOperatorGte, 9.5),
			}}},
			false,
		},
		{
			"or group",
			&QueryFilter{Group: &FilterGroup{Operator: LogicalOperatorOr, Conditions: []QueryFilter{
				*cond("status", ComparisonOperatorEq, "backlog"),
				*cond("data.rating", ComparisonOperatorGte, 9),
			}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.Match(ctx, tt.filter, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestDataProcessor_MatchErrors(t *testing.T) {
	p := NewDataProcessor(nil)
	ctx := context.Background()
	doc := entryDocs()[0]

	_, err := p.Match(ctx, cond("status", "near", 1), doc)
	assert.ErrorContains(t, err, "unregistered filter function")

	_, err = p.Match(ctx, cond("status", ComparisonOperatorIn, "done"), doc)
	assert.ErrorContains(t, err, "expects a list")

	_, err = p.Match(ctx, &QueryFilter{Group: &FilterGroup{Operator: "xor"}}, doc)
	assert.ErrorContains(t, err, "unsupported logical operator")

	_, err = p.Match(ctx, &QueryFilter{}, doc)
	assert.Error(t, err)
}

func TestDataProcessor_CustomOperator(t *testing.T) {
	p := NewDataProcessor(nil)
	p.RegisterFilterFunction("has_year", func(doc schema.Document, field string, args FilterValue) (bool, error) {
		_, ok := Lookup(doc, "data.year")
		return ok, nil
	})
	p.RegisterFilterFunction("boom", func(doc schema.Document, field string, args FilterValue) (bool, error) {
		return false, errors.New("boom")
	})

	rows, err := p.Process(context.Background(), entryDocs(), &QueryDSL{Filters: cond("", "has_year", nil)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Arrival", "Casablanca"}, titles(rows))

	_, err = p.Process(context.Background(), entryDocs(), &QueryDSL{Filters: cond("", "boom", nil)})
	assert.ErrorContains(t, err, "boom")
}

func TestDataProcessor_Process(t *testing.T) {
	p := NewDataProcessor(nil)
	ctx := context.Background()

	t.Run("nil dsl", func(t *testing.T) {
		rows, err := p.Process(ctx, entryDocs(), nil)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("filter and sort", func(t *testing.T) {
		dsl := NewQueryBuilder().Where("tags").Contains("sci-fi").OrderByDesc("updated_at").Build()
		rows, err := p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Equal(t, []string{"Arrival", "Blade Runner", "Dune"}, titles(rows))
	})

	t.Run("missing values sort last", func(t *testing.T) {
		dsl := NewQueryBuilder().OrderByDesc("data.rating").Build()
		rows, err := p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Equal(t, []string{"Casablanca", "Arrival", "Blade Runner", "Dune"}, titles(rows))

		dsl = NewQueryBuilder().OrderByAsc("data.rating").Build()
		rows, err = p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Equal(t, []string{"Blade Runner", "Arrival", "Casablanca", "Dune"}, titles(rows))
	})

	t.Run("secondary key", func(t *testing.T) {
		dsl := NewQueryBuilder().OrderByAsc("status").OrderByDesc("title").Build()
		rows, err := p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Equal(t, []string{"Blade Runner", "Casablanca", "Arrival", "Dune"}, titles(rows))
	})

	t.Run("pagination", func(t *testing.T) {
		dsl := NewQueryBuilder().OrderByAsc("title").Offset(1).Limit(2).Build()
		rows, err := p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Equal(t, []string{"Blade Runner", "Casablanca"}, titles(rows))

		dsl = NewQueryBuilder().Offset(10).Build()
		rows, err = p.Process(ctx, entryDocs(), &dsl)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		dsl := NewQueryBuilder().Where("status").Eq("done").Build()
		_, err := p.Process(cctx, entryDocs(), &dsl)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLookup(t *testing.T) {
	doc := schema.Document{"data": schema.Document{"nested": map[string]any{"x": 1}}}
	v, ok := Lookup(doc, "data.nested.x")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = Lookup(doc, "data.other")
	assert.False(t, ok)
}

func cond(field string, op ComparisonOperator, value FilterValue) *QueryFilter {
	return &QueryFilter{Condition: &FilterCondition{Field: field, Operator: op, Value: value}}
}
