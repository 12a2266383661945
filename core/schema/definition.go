package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldType represents the closed set of field types a collection schema may declare.
type FieldType string

const (
	FieldTypeText        FieldType = "text"         // Single line text
	FieldTypeLongText    FieldType = "long_text"    // Multi line text
	FieldTypeNumber      FieldType = "number"       // Integer or floating point value
	FieldTypeBoolean     FieldType = "boolean"      // True/false values
	FieldTypeDate        FieldType = "date"         // ISO date string
	FieldTypeDateTime    FieldType = "datetime"     // ISO datetime string
	FieldTypeURL         FieldType = "url"          // Link, stored as a string
	FieldTypeSelect      FieldType = "select"       // One out of a set of choices
	FieldTypeMultiSelect FieldType = "multi_select" // Any subset of a set of choices
	FieldTypeList        FieldType = "list"         // Bounded list of primitive items
)

// fieldTypes lists every supported type in declaration order.
var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeLongText,
	FieldTypeNumber,
	FieldTypeBoolean,
	FieldTypeDate,
	FieldTypeDateTime,
	FieldTypeURL,
	FieldTypeSelect,
	FieldTypeMultiSelect,
	FieldTypeList,
}

// FieldTypes returns all supported field types.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Label returns the human readable name of the field type.
func (t FieldType) Label() string {
	switch t {
	case FieldTypeLongText:
		return "Long text"
	case FieldTypeDateTime:
		return "Date & time"
	case FieldTypeURL:
		return "URL"
	case FieldTypeMultiSelect:
		return "Multi-select"
	}
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Document is a free-form record keyed by field identifier.
type Document map[string]any

// FieldDefinition describes one field of a collection schema. The Key is the
// stable identifier under which values are stored in a record; Label is only
// used for display unless a validator is configured to index by label.
type FieldDefinition struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	HelpText string    `json:"help_text,omitempty"`
	Type     FieldType `json:"field_type"`
	Required bool      `json:"required"`
	// Options holds the type specific configuration. It is always one of the
	// variants declared in options.go.
	Options Options `json:"options"`
	// Order is used for display and iteration ordering only.
	Order int `json:"order"`
}

// fieldDefinitionJSON mirrors FieldDefinition with the options kept as a loose bag.
type fieldDefinitionJSON struct {
	Key      string         `json:"key"`
	Label    string         `json:"label"`
	HelpText string         `json:"help_text,omitempty"`
	Type     FieldType      `json:"field_type"`
	Required bool           `json:"required"`
	Options  map[string]any `json:"options"`
	Order    int            `json:"order"`
}

// UnmarshalJSON implements json.Unmarshaler. The options bag is decoded into
// the variant matching the field type. Unknown field types are accepted here
// and surface later as an UNSUPPORTED_TYPE issue during validation.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var temp fieldDefinitionJSON
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	opts, err := DecodeOptions(temp.Type, temp.Options)
	if err != nil {
		return fmt.Errorf("field '%s': %w", temp.Key, err)
	}

	*f = FieldDefinition{
		Key:      temp.Key,
		Label:    temp.Label,
		HelpText: temp.HelpText,
		Type:     temp.Type,
		Required: temp.Required,
		Options:  opts,
		Order:    temp.Order,
	}
	return nil
}

// MarshalJSON implements json.Marshaler, always emitting an options object.
func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	opts, err := EncodeOptions(f.Options)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldDefinitionJSON{
		Key:      f.Key,
		Label:    f.Label,
		HelpText: f.HelpText,
		Type:     f.Type,
		Required: f.Required,
		Options:  opts,
		Order:    f.Order,
	})
}

// Validate checks the construction time constraints of a field definition.
func (f *FieldDefinition) Validate() error {
	if f.Key == "" {
		return &DefinitionError{Field: f.Key, Message: "Key is required."}
	}
	if strings.Contains(f.Key, "-") {
		return &DefinitionError{Field: f.Key, Message: "Use snake_case (no hyphens)."}
	}
	if f.Key == DataSlot || f.Label == DataSlot {
		return &DefinitionError{Field: f.Key, Message: fmt.Sprintf("'%s' is reserved for record level errors.", DataSlot)}
	}
	if !f.Type.Valid() {
		return &DefinitionError{Field: f.Key, Message: fmt.Sprintf("Unknown field type '%s'.", f.Type)}
	}
	if err := validateOptions(f.Type, f.Options); err != nil {
		return &DefinitionError{Field: f.Key, Message: err.Error()}
	}
	return nil
}

// Identifier returns the value used to look the field up in a record.
func (f *FieldDefinition) Identifier(mode IndexMode) string {
	if mode == IndexByLabel {
		return f.Label
	}
	return f.Key
}

// Clone returns a deep copy of the definition.
func (f *FieldDefinition) Clone() *FieldDefinition {
	c := *f
	c.Options = cloneOptions(f.Options)
	return &c
}

// Schema is the ordered set of field definitions owned by one collection type.
type Schema struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Fields      []*FieldDefinition `json:"fields"`
}

// NewSchema builds a schema whose fields are ordered by their Order value.
// Fields sharing an Order keep their relative input position.
func NewSchema(name string, fields []*FieldDefinition) *Schema {
	s := &Schema{Name: name, Fields: make([]*FieldDefinition, len(fields))}
	copy(s.Fields, fields)
	s.sortFields()
	return s
}

func (s *Schema) sortFields() {
	sort.SliceStable(s.Fields, func(i, j int) bool {
		return s.Fields[i].Order < s.Fields[j].Order
	})
}

// Validate checks every field definition and the uniqueness of keys and of
// non-empty labels. Labels must be unique so records indexed by label have
// one slot per field.
func (s *Schema) Validate() error {
	keys := make(map[string]struct{}, len(s.Fields))
	labels := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f == nil {
			return fmt.Errorf("schema '%s' contains a nil field", s.Name)
		}
		if err := f.Validate(); err != nil {
			return err
		}
		if _, dup := keys[f.Key]; dup {
			return &DefinitionError{Field: f.Key, Message: "A field with this key already exists."}
		}
		keys[f.Key] = struct{}{}
		if f.Label == "" {
			continue
		}
		if _, dup := labels[f.Label]; dup {
			return &DefinitionError{Field: f.Key, Message: DuplicateLabelMessage}
		}
		labels[f.Label] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the schema, so a snapshot can be handed out
// without exposing the registry's own definitions.
func (s *Schema) Clone() *Schema {
	c := &Schema{Name: s.Name, Description: s.Description, Fields: make([]*FieldDefinition, len(s.Fields))}
	for i, f := range s.Fields {
		c.Fields[i] = f.Clone()
	}
	return c
}

// Issue represents a single validation problem.
type Issue struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Path        string `json:"path,omitempty"`
	Severity    string `json:"severity,omitempty"` // e.g., "error", "warning"
	Description string `json:"description,omitempty"`
}

// ValidationResult is the outcome of validating one record. When Valid is
// false, Errors maps each error slot (a field identifier or DataSlot) to the
// message shown to the caller.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
	Issues []Issue           `json:"issues"`
}

// Err returns nil for an accepted record and a *ValidationError otherwise.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return &ValidationError{Errors: r.Errors, Issues: r.Issues}
}
