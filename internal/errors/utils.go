package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating an *Error if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *Error {
	if err == nil {
		return nil
	}

	// Keep the location of an existing structured error
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       e,
			Context:     e.Context,
			Component:   e.Component,
			FilePath:    e.FilePath,
			Recoverable: e.Recoverable,
		}
	}

	return &Error{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeHost,
	}
}

// WrapValidation wraps an error as a validation error
func WrapValidation(err error, code, message string) *Error {
	return Wrap(err, ErrorTypeValidation, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *Error {
	e := Wrap(err, ErrorTypeIO, code, message)
	if e != nil {
		e.Recoverable = false
	}
	return e
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *Error {
	e := Wrap(err, ErrorTypeConfig, code, message)
	if e != nil {
		e.Recoverable = false
	}
	return e
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *Error {
	e := Wrap(err, ErrorTypeInternal, code, message)
	if e != nil {
		e.Recoverable = false
	}
	return e
}

// Fields flattens a structured error into logger key/value pairs.
func Fields(err error) []interface{} {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	fields := []interface{}{"error_type", string(e.Type), "error_code", e.Code}
	if e.Component != "" {
		fields = append(fields, "component", e.Component)
	}
	if e.FilePath != "" {
		fields = append(fields, "file", e.FilePath)
	}
	for k, v := range e.Context {
		fields = append(fields, k, v)
	}
	return fields
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &Error{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("%d errors: %v", len(nonNil), messages),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
		},
		Recoverable: true,
	}
}
