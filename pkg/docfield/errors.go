package docfield

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Display texts rendered in place of fields that cannot be resolved.
const (
	RefErrorText          = "Error! Reference source not found."
	DocVariableErrorText  = "Error! No document variable supplied."
	DocPropertyErrorText  = "Error! Unknown document property name."
	IfErrorText           = "Error! Missing test condition."
	FormulaErrorText      = "!Syntax Error"
	InvalidFieldErrorText = "Error! Invalid field code."
)

// ErrorText returns the display text used when a field of the given type fails.
func ErrorText(fieldType string) string {
	switch strings.ToUpper(fieldType) {
	case "REF":
		return RefErrorText
	case "DOCVARIABLE":
		return DocVariableErrorText
	case "DOCPROPERTY":
		return DocPropertyErrorText
	case "IF":
		return IfErrorText
	case "=":
		return FormulaErrorText
	default:
		return InvalidFieldErrorText
	}
}

// ParseError represents an error while parsing an instruction.
// Parse is total, so the engine never produces it; it is kept for callers
// that validate instructions up front.
type ParseError struct {
	Message  string
	Text     string
	Position int
}

func (e *ParseError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("parse error at position %d in '%s': %s", e.Position, e.Text, e.Message)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

// NewParseError creates a new parse error
func NewParseError(message, text string, position int) error {
	return &ParseError{
		Message:  message,
		Text:     text,
		Position: position,
	}
}

// UnsupportedFieldError is reported when no handler exists for a field type
type UnsupportedFieldError struct {
	FieldType string
}

func (e *UnsupportedFieldError) Error() string {
	if e.FieldType == "" {
		return "unsupported field: empty instruction"
	}
	return fmt.Sprintf("unsupported field type '%s'", e.FieldType)
}

// NewUnsupportedFieldError creates a new unsupported field error
func NewUnsupportedFieldError(fieldType string) error {
	return &UnsupportedFieldError{FieldType: fieldType}
}

// MalformedArgumentsError describes a field with too few arguments.
// It is logged, never returned from Eval.
type MalformedArgumentsError struct {
	FieldType string
	Want      int
	Got       int
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("malformed %s field: expected at least %d arguments, got %d", e.FieldType, e.Want, e.Got)
}

// NewMalformedArgumentsError creates a new malformed arguments error
func NewMalformedArgumentsError(fieldType string, want, got int) error {
	return &MalformedArgumentsError{FieldType: fieldType, Want: want, Got: got}
}

// UnbalancedBracesError describes a nested field with no closing brace.
// It is logged, never returned from Eval.
type UnbalancedBracesError struct {
	Text string
}

func (e *UnbalancedBracesError) Error() string {
	return fmt.Sprintf("unbalanced braces in '%s'", e.Text)
}

// NewUnbalancedBracesError creates a new unbalanced braces error
func NewUnbalancedBracesError(text string) error {
	return &UnbalancedBracesError{Text: text}
}

// ResolverError wraps a failure raised by a pluggable collaborator
// (value resolver, ref resolver, table resolver, prompter, formula function).
// It is always returned to the caller of Eval.
type ResolverError struct {
	Resolver string
	Name     string
	Cause    error
}

func (e *ResolverError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s failed for '%s': %v", e.Resolver, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Resolver, e.Cause)
}

func (e *ResolverError) Unwrap() error {
	return e.Cause
}

// NewResolverError wraps cause unless it already is a ResolverError.
func NewResolverError(resolver, name string, cause error) error {
	if cause == nil {
		return nil
	}
	var re *ResolverError
	if errors.As(cause, &re) {
		return cause
	}
	return &ResolverError{Resolver: resolver, Name: name, Cause: cause}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var contextParts []string
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsUnsupportedFieldError checks if an error is an unsupported field error
func IsUnsupportedFieldError(err error) bool {
	var target *UnsupportedFieldError
	return errors.As(err, &target)
}

// IsResolverError checks if an error came from a pluggable collaborator
func IsResolverError(err error) bool {
	var target *ResolverError
	return errors.As(err, &target)
}
