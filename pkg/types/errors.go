// Package types holds the error and diagnostic types shared by the lexer,
// parser, engine and API layers.
package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error tag constants.
const (
	TagLexicalError       = "LexicalError"
	TagSyntaxError        = "SyntaxError"
	TagZeroDivisionError  = "ZeroDivisionError"
	TagTrailingInputError = "TrailingInputError"
	TagInputLimitError    = "InputLimitError"
	TagNotFound           = "NotFound"
)

// CalcError is an evaluation failure: the input produced no result.
type CalcError struct {
	Message string
	Code    int64 // HTTP status the API reports for this error
	Tags    []string
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	return fmt.Sprintf("%s (code=%d, tags=[%s])", e.Message, e.Code, strings.Join(e.Tags, ", "))
}

// ToMap converts the error to the map used in API error payloads.
func (e *CalcError) ToMap() map[string]any {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	return map[string]any{
		"message": e.Message,
		"code":    e.Code,
		"tags":    tags,
	}
}

// HasTag returns true if the error has the specified tag.
func (e *CalcError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AsCalcError unwraps err to a *CalcError if it holds one.
func AsCalcError(err error) (*CalcError, bool) {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Common error constructors.

// NewSyntaxError creates a SyntaxError for input the grammar rejects.
func NewSyntaxError(msg string) *CalcError {
	return &CalcError{Message: msg, Code: http.StatusBadRequest, Tags: []string{TagSyntaxError}}
}

// NewMalformedExpressionError is the SyntaxError reported when no tree could
// be built.
func NewMalformedExpressionError() *CalcError {
	return NewSyntaxError("malformed expression")
}

// NewZeroDivisionError creates a ZeroDivisionError.
func NewZeroDivisionError() *CalcError {
	return &CalcError{Message: "division by zero", Code: http.StatusUnprocessableEntity, Tags: []string{TagZeroDivisionError}}
}

// NewTrailingInputError reports tokens left over after a complete expression.
func NewTrailingInputError(n int) *CalcError {
	return &CalcError{
		Message: fmt.Sprintf("%d unexpected trailing token(s)", n),
		Code:    http.StatusBadRequest,
		Tags:    []string{TagTrailingInputError, TagSyntaxError},
	}
}

// NewNestingLimitError reports an expression nested deeper than the parser
// accepts.
func NewNestingLimitError(depth int) *CalcError {
	return &CalcError{
		Message: fmt.Sprintf("expression nested deeper than %d levels", depth),
		Code:    http.StatusBadRequest,
		Tags:    []string{TagSyntaxError},
	}
}

// NewInputLimitError reports an expression longer than the configured limit.
func NewInputLimitError(limit int) *CalcError {
	return &CalcError{
		Message: fmt.Sprintf("expression exceeds maximum length of %d characters", limit),
		Code:    http.StatusRequestEntityTooLarge,
		Tags:    []string{TagInputLimitError},
	}
}

// NewNotFoundError creates a NotFound error.
func NewNotFoundError(msg string) *CalcError {
	return &CalcError{Message: msg, Code: http.StatusNotFound, Tags: []string{TagNotFound}}
}

// Diagnostic is a problem the evaluator recovered from: the result is still
// produced.
type Diagnostic struct {
	Tag     string `json:"tag" yaml:"tag"`
	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return d.Tag + ": " + d.Message
}
