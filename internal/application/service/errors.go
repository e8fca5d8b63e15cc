package service

import "errors"

var (
	// ErrValidation is returned for malformed input. No state is changed.
	ErrValidation = errors.New("validation failed")

	// ErrUserNotFound is returned when the acting or submitting user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrCompanyNotFound is returned when the company does not exist
	ErrCompanyNotFound = errors.New("company not found")

	// ErrForbidden is returned when the caller's role does not allow the operation
	ErrForbidden = errors.New("operation not permitted for this user")
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
