package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind represents the category of a compile or tooling failure.
type Kind string

const (
	// KindEndOfInput signals clean exhaustion of the source. The tokenizer
	// uses it internally to stop scanning; it never escapes Compile.
	KindEndOfInput Kind = "end_of_input"
	// KindUnexpectedEOF is returned when the source ends inside a construct.
	KindUnexpectedEOF   Kind = "unexpected_eof"
	KindMalformedInput  Kind = "malformed_input"
	KindExpectedToken   Kind = "expected_token"
	KindUnexpectedToken Kind = "unexpected_token"
	KindIO              Kind = "io"
	KindConfig          Kind = "config"
	KindInternal        Kind = "internal"
)

// Error codes used across the pipeline.
const (
	CodeEndOfInput     = "EOF"
	CodeTruncated      = "TRUNCATED"
	CodeMissingBracket = "MISSING_GT"
	CodeMissingEquals  = "MISSING_EQ"
	CodeMissingQuote   = "MISSING_QUOTE"
	CodeEmptyName      = "EMPTY_NAME"
	CodeBadCharacter   = "BAD_CHAR"
	CodeTagMismatch    = "TAG_MISMATCH"
	CodeBadToken       = "BAD_TOKEN"
	CodeTrailing       = "TRAILING"
	CodeReadFailed     = "READ_FAILED"
	CodeWriteFailed    = "WRITE_FAILED"
	CodeInvalidConfig  = "INVALID_CONFIG"
)

// ErrEndOfInput is the sentinel for clean end of input.
var ErrEndOfInput = &CompileError{Kind: KindEndOfInput, Code: CodeEndOfInput, Message: "end of input"}

// CompileError is a structured error carrying the source location of a
// failure. Line and Column are 1-based; zero means unknown.
type CompileError struct {
	Kind    Kind
	Code    string
	Message string
	File    string
	Line    int
	Column  int
	Offset  int
	Cause   error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.File != "" || e.Line > 0 {
		location := e.File
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, strings.TrimPrefix(location, ":"))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CompileError of the same kind and code.
func (e *CompileError) Is(target error) bool {
	var t *CompileError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// WithFile attaches the originating file name.
func (e *CompileError) WithFile(file string) *CompileError {
	e.File = file

	return e
}

// WithLocation sets the source location.
func (e *CompileError) WithLocation(line, column, offset int) *CompileError {
	e.Line = line
	e.Column = column
	e.Offset = offset

	return e
}

// NewUnexpectedEOF reports that input ended while parsing what.
func NewUnexpectedEOF(what string) *CompileError {
	return &CompileError{
		Kind:    KindUnexpectedEOF,
		Code:    CodeTruncated,
		Message: "unexpected end of input while parsing " + what,
	}
}

// NewExpected reports that the description was expected but not found.
func NewExpected(code, description string) *CompileError {
	return &CompileError{
		Kind:    KindExpectedToken,
		Code:    code,
		Message: "expected " + description,
	}
}

// NewUnexpected reports an unexpected token or character.
func NewUnexpected(code, description string) *CompileError {
	return &CompileError{
		Kind:    KindUnexpectedToken,
		Code:    code,
		Message: "unexpected " + description,
	}
}

// NewMalformed reports a structural violation in the token stream.
func NewMalformed(code, message string) *CompileError {
	return &CompileError{
		Kind:    KindMalformedInput,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *CompileError {
	return &CompileError{
		Kind:    KindIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *CompileError {
	return &CompileError{
		Kind:    KindConfig,
		Code:    CodeInvalidConfig,
		Message: message,
		Cause:   cause,
	}
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}

	return false
}

// IsEndOfInput reports whether err is the clean end-of-input signal.
func IsEndOfInput(err error) bool {
	return IsKind(err, KindEndOfInput)
}

// IsParseError reports whether err originates from the compile pipeline.
func IsParseError(err error) bool {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case KindUnexpectedEOF, KindMalformedInput, KindExpectedToken, KindUnexpectedToken:
		return true
	}

	return false
}

// AsCompileError returns the first CompileError in err's chain.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	ok := errors.As(err, &ce)
	return ce, ok
}

// LocationOf extracts line and column from err, if present.
func LocationOf(err error) (line, column int, ok bool) {
	var ce *CompileError
	if errors.As(err, &ce) && ce.Line > 0 {
		return ce.Line, ce.Column, true
	}

	return 0, 0, false
}
