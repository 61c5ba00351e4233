package docfield

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorText(t *testing.T) {
	tests := map[string]string{
		"REF":         RefErrorText,
		"ref":         RefErrorText,
		"DOCVARIABLE": DocVariableErrorText,
		"DOCPROPERTY": DocPropertyErrorText,
		"IF":          IfErrorText,
		"=":           FormulaErrorText,
		"TOC":         InvalidFieldErrorText,
		"":            InvalidFieldErrorText,
	}
	for fieldType, want := range tests {
		assert.Equal(t, want, ErrorText(fieldType), fieldType)
	}
}

func TestResolverError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewResolverError("redis:vars", "Region", cause)
	assert.Equal(t, "redis:vars failed for 'Region': connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsResolverError(fmt.Errorf("eval: %w", err)))

	// already wrapped errors keep the innermost resolver
	again := NewResolverError("chain", "Region", err)
	assert.Same(t, err, again)

	assert.Nil(t, NewResolverError("x", "y", nil))
	assert.Equal(t, "prompt failed: eof", NewResolverError("prompt", "", errors.New("eof")).Error())
}

func TestTypedErrors(t *testing.T) {
	assert.True(t, IsParseError(NewParseError("unexpected }", "IF }", 3)))
	assert.Equal(t, "parse error at position 3 in 'IF }': unexpected }", NewParseError("unexpected }", "IF }", 3).Error())
	assert.True(t, IsUnsupportedFieldError(NewUnsupportedFieldError("TOC")))
	assert.False(t, IsUnsupportedFieldError(NewParseError("x", "", 0)))
	assert.Contains(t, NewMalformedArgumentsError("SET", 2, 0).Error(), "SET")
	assert.Equal(t, "unbalanced braces in '{ REF x'", NewUnbalancedBracesError("{ REF x").Error())
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	assert.NoError(t, m.Err())

	first := errors.New("core.xml")
	m.Add(nil)
	m.Add(first)
	assert.Same(t, first, m.Err())

	second := errors.New("custom.xml")
	m.Add(second)
	require.Equal(t, 2, m.Len())
	err := m.Err()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Contains(t, err.Error(), "[2] custom.xml")
}

func TestContextError(t *testing.T) {
	cause := errors.New("boom")
	err := WithContext(cause, "walk paragraph", map[string]interface{}{"paragraph": 4, "file": "a.docx"})
	assert.Equal(t, "walk paragraph [file=a.docx, paragraph=4]: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "op: boom", WithContext(cause, "op", nil).Error())
	assert.Nil(t, WithContext(nil, "op", nil))
}

func TestRecoverError(t *testing.T) {
	cause := errors.New("bad")
	assert.ErrorIs(t, RecoverError(cause), cause)
	assert.Equal(t, "panic recovered: oops", RecoverError("oops").Error())
	assert.Equal(t, "panic recovered: 42", RecoverError(42).Error())
}
