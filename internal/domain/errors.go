package domain

import "errors"

// Code classifies an error for the transport layer.
type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeDependency      Code = "DEPENDENCY"
)

// Error is a classified failure. Message is safe to show to callers; Err is for operators.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two classified errors by code and message so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Validation reports malformed input with optional per-field detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

func Unauthenticated(message string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Dependency wraps a persistence or delivery failure behind a generic message.
func Dependency(message string, err error) *Error {
	return &Error{Code: CodeDependency, Message: message, Err: err}
}

// CodeOf returns the classification of err, treating unclassified errors as dependency failures.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeDependency
}

var (
	ErrEmailRegistered    = Conflict("Email already registered")
	ErrAlreadyVerified    = Conflict("Email already verified")
	ErrInvalidOTP         = Validation("Invalid or expired OTP", nil)
	ErrInvalidCredentials = Unauthenticated("Invalid credentials")
	ErrEmailNotVerified   = Forbidden("Please verify your email first")
	ErrAccountSuspended   = Forbidden("Account is suspended")
	ErrNotAuthenticated   = Unauthenticated("Not authenticated")
	ErrInsufficientRole   = Forbidden("Insufficient permissions")
	ErrUserNotFound       = NotFound("User not found")
	ErrQuizNotFound       = NotFound("Quiz not found")
)

// Storage-level sentinels, translated by the app layer.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOtpNoMatch      = errors.New("no matching otp challenge")
	ErrDuplicateEmail  = errors.New("duplicate email")
)
