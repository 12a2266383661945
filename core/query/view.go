package query

import (
	"fmt"
	"sort"
	"strings"
)

// EntryFields are the top level attributes of an entry document. Any other
// name used in a view refers to a key of the entry's data.
var EntryFields = map[string]struct{}{
	"id":            {},
	"title":         {},
	"status":        {},
	"tags":          {},
	"tag_ids":       {},
	"hobby_type_id": {},
	"created_at":    {},
	"updated_at":    {},
	"data":          {},
}

// ResolveField maps a view field name to a document path. Names with a
// "data." prefix and top level entry attributes are kept as is; bare names
// are looked up in data.
func ResolveField(name string) string {
	if strings.HasPrefix(name, "data.") {
		return name
	}
	if _, ok := EntryFields[name]; ok {
		return name
	}
	return "data." + name
}

// ParseFilters converts a saved view filter object into a QueryFilter. Each
// key is one condition and all of them must hold:
//
//	{"status": "backlog"}           equality
//	{"tags": ["sci-fi", "drama"]}   any overlap with the list
//	{"rating": {"gte": 8, "lt": 10}} one condition per operator
//
// A nil or empty object yields a nil filter.
func ParseFilters(filters map[string]any) (*QueryFilter, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]QueryFilter, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("filter with empty field name")
		}
		field := ResolveField(key)

		switch v := filters[key].(type) {
		case map[string]any:
			ops := make([]string, 0, len(v))
			for op := range v {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				operator := ComparisonOperator(strings.ToLower(op))
				if !operator.IsStandard() {
					return nil, fmt.Errorf("filter '%s': unknown operator '%s'", key, op)
				}
				conditions = append(conditions, QueryFilter{Condition: &FilterCondition{
					Field:    field,
					Operator: operator,
					Value:    v[op],
				}})
			}
		case []any, []string:
			conditions = append(conditions, QueryFilter{Condition: &FilterCondition{
				Field:    field,
				Operator: ComparisonOperatorIn,
				Value:    v,
			}})
		default:
			conditions = append(conditions, QueryFilter{Condition: &FilterCondition{
				Field:    field,
				Operator: ComparisonOperatorEq,
				Value:    v,
			}})
		}
	}

	if len(conditions) == 1 {
		return &conditions[0], nil
	}
	return &QueryFilter{Group: &FilterGroup{Operator: LogicalOperatorAnd, Conditions: conditions}}, nil
}

// ParseSort converts saved view sort keys into sort configurations. A leading
// "-" sorts descending.
func ParseSort(keys []string) ([]SortConfiguration, error) {
	out := make([]SortConfiguration, 0, len(keys))
	for _, key := range keys {
		direction := SortDirectionAsc
		name := strings.TrimSpace(key)
		if strings.HasPrefix(name, "-") {
			direction = SortDirectionDesc
			name = name[1:]
		} else if strings.HasPrefix(name, "+") {
			name = name[1:]
		}
		if name == "" {
			return nil, fmt.Errorf("invalid sort key '%s'", key)
		}
		out = append(out, SortConfiguration{Field: ResolveField(name), Direction: direction})
	}
	return out, nil
}

// ParseView builds the query of a saved view.
func ParseView(filters map[string]any, sortKeys []string) (*QueryDSL, error) {
	f, err := ParseFilters(filters)
	if err != nil {
		return nil, err
	}
	s, err := ParseSort(sortKeys)
	if err != nil {
		return nil, err
	}
	return &QueryDSL{Filters: f, Sort: s}, nil
}
