// Package apperr carries a stable code alongside an error so handlers can
// choose a response without string matching.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Code string

const (
	CodeInvalid      Code = "invalid"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"
)

// AppError is a structured error with a code, a user-facing message and
// optional per-field messages for form errors.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Fields  map[string]string
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithField attaches a field-level message.
func (e *AppError) WithField(field, msg string) *AppError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
	return e
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Invalid builds a validation error from field messages.
func Invalid(fields map[string]string) *AppError {
	return &AppError{Code: CodeInvalid, Message: "please correct the errors below", Fields: fields}
}

// CodeOf returns the code of the first AppError in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// As returns the AppError in the chain, if any.
func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// IsUniqueViolation reports whether err comes from a unique constraint.
// TranslateError covers postgres and sqlite; the string checks catch drivers
// that do not translate.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// FromDB maps a gorm error to an AppError. not found and unique violations get
// their own codes, everything else is internal.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(err, CodeNotFound, what+" not found")
	}
	if IsUniqueViolation(err) {
		return Wrap(err, CodeConflict, what+" already exists")
	}
	return Wrap(err, CodeInternal, "database error")
}
