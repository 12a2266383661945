// Package schema provides the Validator, the component that checks a free-form
// record against the user authored field schema of its collection type. It
// reports every problem found in a single pass, keyed by field identifier, so a
// caller can highlight all offending fields at once.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Policy decides what happens to a record that fails validation.
type Policy string

const (
	// PolicyReject returns the errors to the caller. This is the default.
	PolicyReject Policy = "reject"
	// PolicyLogAndAccept logs the errors and accepts the record anyway. It
	// exists for compatibility with deployments that relied on non-blocking
	// validation.
	PolicyLogAndAccept Policy = "log"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyLogAndAccept:
		return PolicyLogAndAccept, nil
	}
	return "", fmt.Errorf("unknown validation policy '%s'", s)
}

// IndexMode selects which field attribute records are keyed by.
type IndexMode string

const (
	// IndexByKey looks values up by the field's stable key. This is the default.
	IndexByKey IndexMode = "key"
	// IndexByLabel looks values up by the field's display label, for callers
	// that still submit label keyed records.
	IndexByLabel IndexMode = "label"
)

// ParseIndexMode converts a configuration string into an IndexMode.
func ParseIndexMode(s string) (IndexMode, error) {
	switch IndexMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", IndexByKey:
		return IndexByKey, nil
	case IndexByLabel:
		return IndexByLabel, nil
	}
	return "", fmt.Errorf("unknown index mode '%s'", s)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for internal consistency problems and for
// errors suppressed by PolicyLogAndAccept.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithPolicy sets the rejection policy.
func WithPolicy(p Policy) Option {
	return func(v *Validator) { v.policy = p }
}

// WithIndexMode sets the attribute records are keyed by.
func WithIndexMode(m IndexMode) Option {
	return func(v *Validator) { v.index = m }
}

// Validator checks records against one schema snapshot. It holds no per-call
// state, so a single instance may be shared between goroutines.
type Validator struct {
	schema *Schema
	policy Policy
	index  IndexMode
	logger *zap.Logger
}

// NewValidator creates a Validator for a copy of the given schema. Later edits
// to s do not affect the validator.
func NewValidator(s *Schema, opts ...Option) *Validator {
	if s == nil {
		s = &Schema{}
	}
	v := &Validator{
		schema: s.Clone(),
		policy: PolicyReject,
		index:  IndexByKey,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Schema returns the snapshot the validator checks against.
func (v *Validator) Schema() *Schema {
	return v.schema
}

// validation accumulates the outcome of a single Validate call.
type validation struct {
	errors map[string]string
	issues []Issue
}

// addIssue records an issue. The first message for a slot is the one shown
// to the caller; later issues for the same slot are kept in Issues only.
func (r *validation) addIssue(code, message, path string) {
	r.issues = append(r.issues, Issue{
		Code:     code,
		Message:  message,
		Path:     path,
		Severity: SeverityError,
	})
	if _, taken := r.errors[path]; !taken {
		r.errors[path] = message
	}
}

// Validate checks data against the schema. Unknown keys, missing required
// fields and per-field violations are all collected before returning.
func (v *Validator) Validate(data Document) *ValidationResult {
	run := &validation{errors: make(map[string]string), issues: make([]Issue, 0)}

	v.validateUnknownKeys(data, run)
	v.validateFields(data, run)

	if len(run.issues) == 0 {
		return &ValidationResult{Valid: true, Issues: run.issues}
	}

	if v.policy == PolicyLogAndAccept {
		v.logger.Warn("Record failed validation, accepting under log policy",
			zap.String("schema", v.schema.Name),
			zap.Any("errors", run.errors))
		for i := range run.issues {
			run.issues[i].Severity = SeverityWarning
		}
		return &ValidationResult{Valid: true, Issues: run.issues}
	}

	return &ValidationResult{Valid: false, Errors: run.errors, Issues: run.issues}
}

// validateUnknownKeys reports every record key that names no field, as one
// aggregate issue in DataSlot.
func (v *Validator) validateUnknownKeys(data Document, run *validation) {
	known := make(map[string]struct{}, len(v.schema.Fields))
	for _, f := range v.schema.Fields {
		known[f.Identifier(v.index)] = struct{}{}
	}

	var unknown []string
	for key := range data {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	quoted := make([]string, len(unknown))
	for i, key := range unknown {
		quoted[i] = quoteKey(key)
	}
	run.addIssue(CodeUnexpectedField, fmt.Sprintf("Unknown field keys: [%s]", strings.Join(quoted, ", ")), DataSlot)
}

// quoteKey renders key as a quoted literal. Single quotes are used unless the
// key holds a single quote and no double quote.
func quoteKey(key string) string {
	quote := byte('\'')
	if strings.ContainsRune(key, '\'') && !strings.ContainsRune(key, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == '\\' || c == quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// validateFields checks each field in schema order.
func (v *Validator) validateFields(data Document, run *validation) {
	for _, f := range v.schema.Fields {
		id := f.Identifier(v.index)
		value, present := lookup(data, id)

		if !present {
			if f.Required {
				run.addIssue(CodeRequired, requiredFieldMessage, id)
			}
			continue
		}

		if violation := Check(f.Type, value, f.Options); violation != nil {
			if violation.Code == CodeUnsupportedType {
				v.logger.Error("Schema declares an unsupported field type",
					zap.String("schema", v.schema.Name),
					zap.String("field", f.Key),
					zap.String("type", string(f.Type)))
			}
			run.addIssue(violation.Code, violation.Message, id)
		}
	}
}

// lookup returns the value stored under key and whether it counts as present.
// Missing keys, nil, the empty string and empty lists are all absent; zero and
// false are present.
func lookup(data Document, key string) (any, bool) {
	value, exists := data[key]
	if !exists || IsEmpty(value) {
		return nil, false
	}
	return value, true
}

// IsEmpty reports whether value is one of the absent sentinels: nil, "" or an
// empty list.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	if items, ok := toList(value); ok {
		return len(items) == 0
	}
	return false
}
