package query

// QueryBuilder provides a fluent API for building QueryDSL structures.
// Conditions added with Where are combined with AND.
type QueryBuilder struct {
	query QueryDSL
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		query: QueryDSL{},
	}
}

// Build returns the constructed QueryDSL object.
func (qb *QueryBuilder) Build() QueryDSL {
	return qb.query
}

// Clone creates a copy of the builder. Filters are shared, sort and
// pagination are copied.
func (qb *QueryBuilder) Clone() *QueryBuilder {
	c := &QueryBuilder{query: qb.query}
	c.query.Sort = append([]SortConfiguration(nil), qb.query.Sort...)
	if qb.query.Pagination != nil {
		p := *qb.query.Pagination
		c.query.Pagination = &p
	}
	return c
}

// Reset clears all configurations from the query builder, returning it to its initial state.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.query = QueryDSL{}
	return qb
}

// Where begins the construction of a filter condition for a specific field.
func (qb *QueryBuilder) Where(field string) *FilterConditionBuilder {
	return &FilterConditionBuilder{parent: qb, field: field}
}

// WhereGroup begins the construction of a group of filter conditions, combined
// with a logical operator.
func (qb *QueryBuilder) WhereGroup(operator LogicalOperator) *FilterGroupBuilder {
	return &FilterGroupBuilder{
		parent:     qb,
		operator:   operator,
		conditions: []QueryFilter{},
	}
}

// addFilter ANDs f into the query's filter tree.
func (qb *QueryBuilder) addFilter(f QueryFilter) {
	current := qb.query.Filters
	switch {
	case current == nil:
		qb.query.Filters = &f
	case current.Group != nil && current.Group.Operator == LogicalOperatorAnd:
		current.Group.Conditions = append(current.Group.Conditions, f)
	default:
		qb.query.Filters = &QueryFilter{Group: &FilterGroup{
			Operator:   LogicalOperatorAnd,
			Conditions: []QueryFilter{*current, f},
		}}
	}
}

// FilterConditionBuilder is used to build a single filter condition (e.g., field = value).
type FilterConditionBuilder struct {
	parent *QueryBuilder
	field  string
}

// Eq adds an equality condition to the query.
func (fcb *FilterConditionBuilder) Eq(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorEq, value)
}

// Neq adds a not-equal condition to the query.
func (fcb *FilterConditionBuilder) Neq(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNeq, value)
}

// Lt adds a less-than condition to the query.
func (fcb *FilterConditionBuilder) Lt(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLt, value)
}

// Lte adds a less-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Lte(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorLte, value)
}

// Gt adds a greater-than condition to the query.
func (fcb *FilterConditionBuilder) Gt(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGt, value)
}

// Gte adds a greater-than-or-equal condition to the query.
func (fcb *FilterConditionBuilder) Gte(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorGte, value)
}

// In adds an "in" condition. A list valued field matches when any of its
// elements is among values.
func (fcb *FilterConditionBuilder) In(values ...FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorIn, values)
}

// Nin adds a "not in" condition.
func (fcb *FilterConditionBuilder) Nin(values ...FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorNin, values)
}

// Contains matches a substring of a string field or an element of a list field.
func (fcb *FilterConditionBuilder) Contains(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorContains, value)
}

// StartsWith adds a condition to check if a string field starts with a specific prefix.
func (fcb *FilterConditionBuilder) StartsWith(value FilterValue) *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorStartsWith, value)
}

// Exists adds a condition to check if a field is present and not empty.
func (fcb *FilterConditionBuilder) Exists() *QueryBuilder {
	return fcb.addCondition(ComparisonOperatorExists, true)
}

// Custom allows for the use of an operator registered on the DataProcessor.
func (fcb *FilterConditionBuilder) Custom(operator ComparisonOperator, value FilterValue) *QueryBuilder {
	return fcb.addCondition(operator, value)
}

func (fcb *FilterConditionBuilder) addCondition(operator ComparisonOperator, value FilterValue) *QueryBuilder {
	fcb.parent.addFilter(QueryFilter{Condition: &FilterCondition{
		Field:    fcb.field,
		Operator: operator,
		Value:    value,
	}})
	return fcb.parent
}

// FilterGroupBuilder is used to build a group of filter conditions.
type FilterGroupBuilder struct {
	parent     *QueryBuilder
	operator   LogicalOperator
	conditions []QueryFilter
}

// Where adds a condition to the group.
func (fgb *FilterGroupBuilder) Where(field string, operator ComparisonOperator, value FilterValue) *FilterGroupBuilder {
	fgb.conditions = append(fgb.conditions, QueryFilter{Condition: &FilterCondition{
		Field:    field,
		Operator: operator,
		Value:    value,
	}})
	return fgb
}

// End finalizes the current filter group and returns to the main query builder.
func (fgb *FilterGroupBuilder) End() *QueryBuilder {
	fgb.parent.addFilter(QueryFilter{Group: &FilterGroup{
		Operator:   fgb.operator,
		Conditions: fgb.conditions,
	}})
	return fgb.parent
}

// OrderBy adds a sorting configuration to the query.
func (qb *QueryBuilder) OrderBy(field string, direction SortDirection) *QueryBuilder {
	qb.query.Sort = append(qb.query.Sort, SortConfiguration{
		Field:     field,
		Direction: direction,
	})
	return qb
}

// OrderByAsc adds an ascending sort order for a specific field.
func (qb *QueryBuilder) OrderByAsc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionAsc)
}

// OrderByDesc adds a descending sort order for a specific field.
func (qb *QueryBuilder) OrderByDesc(field string) *QueryBuilder {
	return qb.OrderBy(field, SortDirectionDesc)
}

// Limit sets the maximum number of records to be returned by the query.
func (qb *QueryBuilder) Limit(limit int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Limit = limit
	return qb
}

// Offset sets the number of records to skip.
func (qb *QueryBuilder) Offset(offset int) *QueryBuilder {
	if qb.query.Pagination == nil {
		qb.query.Pagination = &PaginationOptions{}
	}
	qb.query.Pagination.Offset = &offset
	return qb
}
