package schema

import (
	"fmt"
	"sort"
	"strings"
)

// DataSlot is the error slot used for schema level problems such as unknown
// record keys. It is distinct from every per-field slot.
const DataSlot = "data"

// Issue codes reported by the validator.
const (
	CodeUnexpectedField  = "UNEXPECTED_FIELD"
	CodeRequired         = "REQUIRED_FIELD_MISSING"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeRangeViolation   = "RANGE_VIOLATION"
	CodeInvalidChoice    = "INVALID_CHOICE"
	CodeLengthViolation  = "LENGTH_VIOLATION"
	CodeUnsupportedType  = "UNSUPPORTED_TYPE"
	SeverityError        = "error"
	SeverityWarning      = "warning"
	requiredFieldMessage = "This field is required."
)

// DuplicateLabelMessage is reported when two fields of a schema share a label.
const DuplicateLabelMessage = "A field with this label already exists."

// ValidationError is returned when a record is rejected. Errors is the
// caller facing map of slot to message; Issues keeps the structured detail.
type ValidationError struct {
	Errors map[string]string
	Issues []Issue
}

// Error implements the error interface, listing slots in ascending order.
func (e *ValidationError) Error() string {
	slots := make([]string, 0, len(e.Errors))
	for slot := range e.Errors {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, fmt.Sprintf("%s: %s", slot, e.Errors[slot]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Internal reports whether the rejection was caused by a corrupt schema
// rather than by the submitted record.
func (e *ValidationError) Internal() bool {
	for _, issue := range e.Issues {
		if issue.Code == CodeUnsupportedType {
			return true
		}
	}
	return false
}

// DefinitionError reports an invalid field definition.
type DefinitionError struct {
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}
