package query

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asaidimu/go-hobbies/core/schema"
	"go.uber.org/zap"
)

// PredicateFunction is a Go function that performs custom filtering logic on a
// document. It returns true if the document passes the filter.
type PredicateFunction func(doc schema.Document, field string, args FilterValue) (bool, error)

// DataProcessor filters, orders and pages documents in memory.
type DataProcessor struct {
	goFilterFunctions map[ComparisonOperator]PredicateFunction
	mu                sync.RWMutex
	logger            *zap.Logger
}

// NewDataProcessor creates a new DataProcessor instance.
func NewDataProcessor(logger *zap.Logger) *DataProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProcessor{
		goFilterFunctions: make(map[ComparisonOperator]PredicateFunction),
		logger:            logger,
	}
}

// RegisterFilterFunction registers a Go function for a custom operator.
func (p *DataProcessor) RegisterFilterFunction(operator ComparisonOperator, fn PredicateFunction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goFilterFunctions[operator] = fn
	p.logger.Debug("Registered filter function", zap.String("operator", string(operator)))
}

// RegisterFilterFunctions registers multiple PredicateFunction functions from a map.
func (p *DataProcessor) RegisterFilterFunctions(functionMap map[ComparisonOperator]PredicateFunction) {
	for operator, fn := range functionMap {
		p.RegisterFilterFunction(operator, fn)
	}
}

// Match evaluates a single document against filters. A nil filter matches
// everything.
func (p *DataProcessor) Match(ctx context.Context, filters *QueryFilter, data schema.Document) (bool, error) {
	if filters == nil {
		return true, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.evaluate(data, filters)
}

// Process applies the filters, sort and pagination of dsl to rows and returns
// the resulting slice. The input slice is not reordered.
func (p *DataProcessor) Process(ctx context.Context, rows []schema.Document, dsl *QueryDSL) ([]schema.Document, error) {
	if dsl == nil {
		return rows, nil
	}

	filtered := make([]schema.Document, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := p.Match(ctx, dsl.Filters, row)
		if err != nil {
			return nil, fmt.Errorf("evaluating filter: %w", err)
		}
		if ok {
			filtered = append(filtered, row)
		}
	}
	p.logger.Debug("Rows remaining after filters", zap.Int("count", len(filtered)), zap.Int("total", len(rows)))

	SortDocuments(filtered, dsl.Sort)
	return paginate(filtered, dsl.Pagination), nil
}

func (p *DataProcessor) evaluate(row schema.Document, filter *QueryFilter) (bool, error) {
	if filter.Condition != nil {
		if !filter.Condition.Operator.IsStandard() {
			fn, ok := p.goFilterFunctions[filter.Condition.Operator]
			if !ok {
				return false, fmt.Errorf("unregistered filter function for operator: %s", filter.Condition.Operator)
			}
			return fn(row, filter.Condition.Field, filter.Condition.Value)
		}
		return evaluateStandardCondition(row, filter.Condition)
	}
	if filter.Group != nil {
		switch filter.Group.Operator {
		case LogicalOperatorAnd, "":
			for i := range filter.Group.Conditions {
				passes, err := p.evaluate(row, &filter.Group.Conditions[i])
				if err != nil || !passes {
					return false, err
				}
			}
			return true, nil
		case LogicalOperatorOr:
			for i := range filter.Group.Conditions {
				passes, err := p.evaluate(row, &filter.Group.Conditions[i])
				if err != nil {
					return false, err
				}
				if passes {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, fmt.Errorf("unsupported logical operator: %s", filter.Group.Operator)
		}
	}
	return false, fmt.Errorf("empty or invalid filter structure")
}

// evaluateStandardCondition evaluates a built-in operator. Values that cannot
// be compared never match.
func evaluateStandardCondition(row schema.Document, condition *FilterCondition) (bool, error) {
	fieldValue, present := Lookup(row, condition.Field)
	if present && schema.IsEmpty(fieldValue) {
		present = false
	}

	switch condition.Operator {
	case ComparisonOperatorExists:
		return present, nil
	case ComparisonOperatorNotExists:
		return !present, nil
	}
	if !present {
		return condition.Operator == ComparisonOperatorNeq ||
			condition.Operator == ComparisonOperatorNin ||
			condition.Operator == ComparisonOperatorNotContains, nil
	}

	switch condition.Operator {
	case ComparisonOperatorEq:
		return valuesEqual(fieldValue, condition.Value), nil
	case ComparisonOperatorNeq:
		return !valuesEqual(fieldValue, condition.Value), nil
	case ComparisonOperatorLt, ComparisonOperatorLte, ComparisonOperatorGt, ComparisonOperatorGte:
		c, ok := compareValues(fieldValue, condition.Value)
		if !ok {
			return false, nil
		}
		switch condition.Operator {
		case ComparisonOperatorLt:
			return c < 0, nil
		case ComparisonOperatorLte:
			return c <= 0, nil
		case ComparisonOperatorGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case ComparisonOperatorIn, ComparisonOperatorNin:
		candidates, ok := toSlice(condition.Value)
		if !ok {
			return false, fmt.Errorf("operator %s expects a list, got %T", condition.Operator, condition.Value)
		}
		found := anyIn(fieldValue, candidates)
		if condition.Operator == ComparisonOperatorNin {
			return !found, nil
		}
		return found, nil
	case ComparisonOperatorContains, ComparisonOperatorNotContains:
		found := contains(fieldValue, condition.Value)
		if condition.Operator == ComparisonOperatorNotContains {
			return !found, nil
		}
		return found, nil
	case ComparisonOperatorStartsWith, ComparisonOperatorEndsWith:
		s, ok1 := fieldValue.(string)
		affix, ok2 := condition.Value.(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		if condition.Operator == ComparisonOperatorStartsWith {
			return strings.HasPrefix(s, affix), nil
		}
		return strings.HasSuffix(s, affix), nil
	}
	return false, fmt.Errorf("unsupported comparison operator: %s", condition.Operator)
}

// Lookup resolves a dotted path inside a document.
func Lookup(doc schema.Document, path string) (any, bool) {
	var current any = map[string]any(doc)
	for _, part := range strings.Split(path, ".") {
		var m map[string]any
		switch v := current.(type) {
		case map[string]any:
			m = v
		case schema.Document:
			m = v
		default:
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func valuesEqual(a, b any) bool {
	if fa, ok := schema.ToNumber(a); ok {
		if fb, ok := schema.ToNumber(b); ok {
			return fa == fb
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := toTime(b); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values of the same kind. It reports false when the
// values are not comparable.
func compareValues(a, b any) (int, bool) {
	if fa, ok := schema.ToNumber(a); ok {
		fb, ok := schema.ToNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(va, vb), true
	case bool:
		vb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case va == vb:
			return 0, true
		case !va:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func anyIn(fieldValue any, candidates []any) bool {
	items, isList := toSlice(fieldValue)
	if !isList {
		items = []any{fieldValue}
	}
	for _, item := range items {
		for _, c := range candidates {
			if valuesEqual(item, c) {
				return true
			}
		}
	}
	return false
}

func contains(fieldValue, needle any) bool {
	if s, ok := fieldValue.(string); ok {
		n, ok := needle.(string)
		return ok && strings.Contains(s, n)
	}
	items, ok := toSlice(fieldValue)
	if !ok {
		return false
	}
	for _, item := range items {
		if valuesEqual(item, needle) {
			return true
		}
	}
	return false
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// SortDocuments orders rows in place by the given keys. Documents missing a
// key sort after those that have it, whatever the direction.
func SortDocuments(rows []schema.Document, keys []SortConfiguration) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			a, okA := Lookup(rows[i], key.Field)
			b, okB := Lookup(rows[j], key.Field)
			okA = okA && !schema.IsEmpty(a)
			okB = okB && !schema.IsEmpty(b)
			switch {
			case !okA && !okB:
				continue
			case !okA:
				return false
			case !okB:
				return true
			}
			c, comparable := compareValues(a, b)
			if !comparable || c == 0 {
				continue
			}
			if key.Direction == SortDirectionDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func paginate(rows []schema.Document, page *PaginationOptions) []schema.Document {
	if page == nil {
		return rows
	}
	if page.Offset != nil {
		offset := *page.Offset
		if offset >= len(rows) {
			return []schema.Document{}
		}
		if offset > 0 {
			rows = rows[offset:]
		}
	}
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows
}
