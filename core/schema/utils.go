package schema

import "encoding/json"

// FindField returns the field with the given key, or nil.
func (s *Schema) FindField(key string) *FieldDefinition {
	for _, field := range s.Fields {
		if field.Key == key {
			return field
		}
	}
	return nil
}

// FindByLabel returns the first field with the given label, or nil.
func (s *Schema) FindByLabel(label string) *FieldDefinition {
	for _, field := range s.Fields {
		if field.Label == label {
			return field
		}
	}
	return nil
}

// Float64Ptr returns a pointer to f, for building NumberOptions.
func Float64Ptr(f float64) *float64 {
	return &f
}

// IntPtr returns a pointer to i, for building ListOptions.
func IntPtr(i int) *int {
	return &i
}

// ToNumber converts any Go numeric value, or a json.Number, to float64.
// Booleans and numeric strings are not numbers.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
