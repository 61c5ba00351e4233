package docfield

import (
	"fmt"
)

// FieldInstruction is one field occurrence as found in the document.
type FieldInstruction struct {
	// Text is the raw instruction, e.g. `REF Total \h`
	Text string
	// CachedResult is the result text stored in the document, when known
	CachedResult *string
}

// NewFieldInstruction creates an instruction without a cached result
func NewFieldInstruction(text string) FieldInstruction {
	return FieldInstruction{Text: text}
}

// WithCachedResult returns a copy of the instruction carrying cached
func (i FieldInstruction) WithCachedResult(cached string) FieldInstruction {
	i.CachedResult = &cached
	return i
}

// EvalStatus is the outcome of evaluating a field
type EvalStatus int

const (
	// StatusResolved means the field produced Text
	StatusResolved EvalStatus = iota
	// StatusUsedCache means the document's cached result was kept
	StatusUsedCache
	// StatusSkipped means the field contributes nothing
	StatusSkipped
	// StatusFailed means the field could not be evaluated; Err says why
	StatusFailed
)

func (s EvalStatus) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUsedCache:
		return "used_cache"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FieldEvalResult is what Eval returns for one instruction.
type FieldEvalResult struct {
	Status  EvalStatus
	Text    string
	HasText bool
	Err     error
}

// Resolved creates a result carrying text
func Resolved(text string) FieldEvalResult {
	return FieldEvalResult{Status: StatusResolved, Text: text, HasText: true}
}

// UsedCache creates a result that keeps the cached text
func UsedCache(text string) FieldEvalResult {
	return FieldEvalResult{Status: StatusUsedCache, Text: text, HasText: true}
}

// Skipped creates an empty result
func Skipped() FieldEvalResult {
	return FieldEvalResult{Status: StatusSkipped}
}

// Failed creates a failed result
func Failed(err error) FieldEvalResult {
	return FieldEvalResult{Status: StatusFailed, Err: err}
}

// DisplayText returns the text a renderer should show for the result.
// Failed results show the fixed error text of their field type.
func (r FieldEvalResult) DisplayText(fieldType string) string {
	switch r.Status {
	case StatusResolved, StatusUsedCache:
		return r.Text
	case StatusFailed:
		return ErrorText(fieldType)
	default:
		return ""
	}
}

func (r FieldEvalResult) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s(%v)", r.Status, r.Err)
	case r.HasText:
		return fmt.Sprintf("%s(%q)", r.Status, r.Text)
	default:
		return r.Status.String()
	}
}
