package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// Violation is a single failed check on a field value.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string { return v.Message }

func violate(code, format string, args ...any) *Violation {
	return &Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Checker validates one present value against the options of its field. It
// returns nil when the value conforms.
type Checker func(value any, opts Options) *Violation

// checkers is the dispatch table from field type to checker. Every member of
// the FieldType enumeration has an entry; anything else is UNSUPPORTED_TYPE.
var checkers = map[FieldType]Checker{
	FieldTypeText:        checkString,
	FieldTypeLongText:    checkString,
	FieldTypeURL:         checkString,
	FieldTypeBoolean:     checkBoolean,
	FieldTypeNumber:      checkNumber,
	FieldTypeDate:        checkDateString,
	FieldTypeDateTime:    checkDateString,
	FieldTypeSelect:      checkSelect,
	FieldTypeMultiSelect: checkMultiSelect,
	FieldTypeList:        checkList,
}

// Check runs the checker registered for ft.
func Check(ft FieldType, value any, opts Options) *Violation {
	checker, ok := checkers[ft]
	if !ok {
		return violate(CodeUnsupportedType, "Unsupported field type.")
	}
	return checker(value, opts)
}

func checkString(value any, _ Options) *Violation {
	if _, ok := value.(string); !ok {
		return violate(CodeTypeMismatch, "Must be a string.")
	}
	return nil
}

func checkBoolean(value any, _ Options) *Violation {
	if _, ok := value.(bool); !ok {
		return violate(CodeTypeMismatch, "Must be true/false.")
	}
	return nil
}

func checkNumber(value any, opts Options) *Violation {
	n, ok := ToNumber(value)
	if !ok {
		return violate(CodeTypeMismatch, "Must be a number.")
	}
	o, _ := opts.(NumberOptions)
	if o.Min != nil && n < *o.Min {
		return violate(CodeRangeViolation, "Must be ≥ %s.", formatNumber(*o.Min))
	}
	if o.Max != nil && n > *o.Max {
		return violate(CodeRangeViolation, "Must be ≤ %s.", formatNumber(*o.Max))
	}
	return nil
}

func checkDateString(value any, _ Options) *Violation {
	if _, ok := value.(string); !ok {
		return violate(CodeTypeMismatch, "Must be an ISO date/datetime string.")
	}
	return nil
}

func checkSelect(value any, opts Options) *Violation {
	s, ok := value.(string)
	if !ok {
		return violate(CodeTypeMismatch, "Must be a string.")
	}
	o, _ := opts.(ChoiceOptions)
	if len(o.Choices) > 0 && !slices.Contains(o.Choices, s) {
		return violate(CodeInvalidChoice, "Invalid choice.")
	}
	return nil
}

func checkMultiSelect(value any, opts Options) *Violation {
	items, ok := toList(value)
	if !ok {
		return violate(CodeTypeMismatch, "Must be a list of strings.")
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return violate(CodeTypeMismatch, "Must be a list of strings.")
		}
		values = append(values, s)
	}
	o, _ := opts.(ChoiceOptions)
	if len(o.Choices) == 0 {
		return nil
	}
	for _, s := range values {
		if !slices.Contains(o.Choices, s) {
			return violate(CodeInvalidChoice, "Contains invalid choice(s).")
		}
	}
	return nil
}

func checkList(value any, opts Options) *Violation {
	items, ok := toList(value)
	if !ok {
		return violate(CodeTypeMismatch, "Must be a list.")
	}
	o, _ := opts.(ListOptions)
	if o.MinItems != nil && len(items) < *o.MinItems {
		return violate(CodeLengthViolation, "Must contain at least %d items.", *o.MinItems)
	}
	if o.MaxItems != nil && len(items) > *o.MaxItems {
		return violate(CodeLengthViolation, "Must contain at most %d items.", *o.MaxItems)
	}

	itemType := o.Item()
	for _, item := range items {
		switch itemType {
		case ItemTypeText:
			if _, ok := item.(string); !ok {
				return violate(CodeTypeMismatch, "All items must be strings.")
			}
		case ItemTypeNumber:
			if _, ok := ToNumber(item); !ok {
				return violate(CodeTypeMismatch, "All items must be numbers.")
			}
		case ItemTypeBoolean:
			if _, ok := item.(bool); !ok {
				return violate(CodeTypeMismatch, "All items must be booleans.")
			}
		default:
			return violate(CodeUnsupportedType, "Unsupported field type.")
		}
	}
	return nil
}

// toList returns the elements of any slice or array value. Byte slices are
// treated as opaque values, not lists.
func toList(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	if value == nil {
		return nil, false
	}
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
