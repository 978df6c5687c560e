package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps err with a kind, code and message. An existing CompileError keeps
// its location so diagnostics still point at the source.
func Wrap(err error, kind Kind, code, message string) *CompileError {
	if err == nil {
		return nil
	}

	var ce *CompileError
	if errors.As(err, &ce) {
		return &CompileError{
			Kind:    kind,
			Code:    code,
			Message: message,
			Cause:   ce,
			File:    ce.File,
			Line:    ce.Line,
			Column:  ce.Column,
			Offset:  ce.Offset,
		}
	}

	return &CompileError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *CompileError {
	return Wrap(err, KindIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, message string) *CompileError {
	return Wrap(err, KindConfig, CodeInvalidConfig, message)
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// Fields flattens a CompileError into key/value pairs for structured logging.
func Fields(err error) []interface{} {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return []interface{}{"error_kind", "unknown"}
	}

	fields := []interface{}{"error_kind", string(ce.Kind), "error_code", ce.Code}
	if ce.File != "" {
		fields = append(fields, "file", ce.File)
	}
	if ce.Line > 0 {
		fields = append(fields, "line", ce.Line, "column", ce.Column)
	}

	return fields
}

// Root returns the innermost CompileError in the chain, or err itself.
func Root(err error) error {
	for err != nil {
		var ce *CompileError
		if !errors.As(err, &ce) || ce.Cause == nil {
			return err
		}
		var inner *CompileError
		if !errors.As(ce.Cause, &inner) {
			return ce
		}
		err = ce.Cause
	}

	return nil
}

// CombineErrors joins multiple errors, dropping nils.
func CombineErrors(errs ...error) error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	switch len(collected) {
	case 0:
		return nil
	case 1:
		return collected[0]
	}

	return fmt.Errorf("%d errors occurred: %w", len(collected), errors.Join(collected...))
}
