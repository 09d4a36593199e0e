package billing

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced by the command surface. Controllers translate
// them into HTTP statuses; they are distinct from internal reconciliation
// errors, which are plain wrapped errors.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
)

// Error is a user-facing command error with a stable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFound returns a NOT_FOUND command error.
func NewNotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// ErrorCode extracts the stable code from err, unwrapping if needed, or
// empty when err is not a command error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
