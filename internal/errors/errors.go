/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors implements Tessera's typed error taxonomy (spec §7) and
// its one-to-one mapping onto HTTP status codes and the error envelope
// returned at the edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType names one of the error-handling design's nine kinds, plus a
// distinguished SchemaInvalid refinement of Validation for the 422
// "body schema invalid" status called out separately in spec §6.
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeSchemaInvalid  ErrorType = "schema_invalid"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeBusinessRule   ErrorType = "business_rule"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeUpstreamIO     ErrorType = "upstream_io"
	ErrorTypeInternal       ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	ErrorTypeAuthentication: http.StatusUnauthorized,
	ErrorTypeAuthorization:  http.StatusForbidden,
	ErrorTypeValidation:     http.StatusBadRequest,
	ErrorTypeSchemaInvalid:  http.StatusUnprocessableEntity,
	ErrorTypeNotFound:       http.StatusNotFound,
	ErrorTypeConflict:       http.StatusConflict,
	ErrorTypeBusinessRule:   http.StatusBadRequest,
	ErrorTypeRateLimit:      http.StatusTooManyRequests,
	ErrorTypeUpstreamIO:     http.StatusInternalServerError,
	ErrorTypeInternal:       http.StatusInternalServerError,
}

// AppError is a typed error carrying the HTTP status it maps to, plus
// optional caller-facing details and a wrapped cause for logging.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	StatusCode int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// New constructs an AppError of the given type with its mapped status
// code and no underlying cause.
func New(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusByType[t]}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(t ErrorType, format string, args ...any) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

// Wrap constructs an AppError of the given type around cause.
func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: statusByType[t], Cause: cause}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(cause error, t ErrorType, format string, args ...any) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

// WithDetails sets Details in place and returns the receiver, so callers
// can chain it onto a constructor.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithDetailsf is WithDetails with fmt.Sprintf-style formatting.
func (e *AppError) WithDetailsf(format string, args ...any) *AppError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// Predefined constructors for the taxonomy's most common shapes.

func NewAuthenticationError(message string) *AppError {
	return New(ErrorTypeAuthentication, message)
}

func NewAuthorizationError(message string) *AppError {
	return New(ErrorTypeAuthorization, message)
}

func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewSchemaInvalidError(message string) *AppError {
	return New(ErrorTypeSchemaInvalid, message)
}

func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

func NewConflictError(message string) *AppError {
	return New(ErrorTypeConflict, message)
}

func NewBusinessRuleError(message string) *AppError {
	return New(ErrorTypeBusinessRule, message)
}

func NewRateLimitError(message string) *AppError {
	return New(ErrorTypeRateLimit, message)
}

func NewUpstreamIOError(operation string, cause error) *AppError {
	return Wrap(cause, ErrorTypeUpstreamIO, fmt.Sprintf("upstream operation failed: %s", operation))
}

// IsType reports whether err is an *AppError of type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// GetType returns err's ErrorType, or ErrorTypeInternal for a plain error.
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode returns the HTTP status err maps to, or 500 for a plain
// error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// ErrorMessages holds the caller-safe text for kinds whose Message may
// carry internal detail unsafe to return verbatim.
var ErrorMessages = struct {
	ResourceNotFound       string
	AuthenticationFailed   string
	AuthorizationFailed    string
	OperationTimeout       string
	RateLimitExceeded      string
	ConcurrentModification string
	InternalError          string
}{
	ResourceNotFound:       "The requested resource was not found",
	AuthenticationFailed:   "Authentication failed",
	AuthorizationFailed:    "You do not have permission to perform this action",
	OperationTimeout:       "The operation timed out",
	RateLimitExceeded:      "Rate limit exceeded, please retry later",
	ConcurrentModification: "The resource was modified concurrently, please retry",
	InternalError:          "An internal error occurred",
}

// SafeErrorMessage returns the text safe to expose to an API caller:
// Validation, SchemaInvalid and BusinessRule messages are passed through
// verbatim (they describe the caller's own input or a rule it broke),
// every other kind is mapped to a generic, non-leaking message.
func SafeErrorMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return "An unexpected error occurred"
	}
	switch appErr.Type {
	case ErrorTypeValidation, ErrorTypeSchemaInvalid, ErrorTypeBusinessRule:
		return appErr.Message
	case ErrorTypeNotFound:
		return ErrorMessages.ResourceNotFound
	case ErrorTypeAuthentication:
		return ErrorMessages.AuthenticationFailed
	case ErrorTypeAuthorization:
		return ErrorMessages.AuthorizationFailed
	case ErrorTypeRateLimit:
		return ErrorMessages.RateLimitExceeded
	case ErrorTypeConflict:
		return ErrorMessages.ConcurrentModification
	default:
		return ErrorMessages.InternalError
	}
}

// LogFields returns a structured field map suitable for zap.Any-style
// logging of err, whatever its concrete type.
func LogFields(err error) map[string]any {
	fields := map[string]any{"error": err.Error()}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fields
	}
	fields["error_type"] = string(appErr.Type)
	fields["status_code"] = appErr.StatusCode
	if appErr.Details != "" {
		fields["error_details"] = appErr.Details
	}
	if appErr.Cause != nil {
		fields["underlying_error"] = appErr.Cause.Error()
	}
	return fields
}

// Chain joins zero or more errors (filtering nils) into a single error
// for contexts that need to report multiple accumulated failures (e.g.
// closing several resources). A single non-nil error is returned
// unwrapped; zero or all-nil yields nil.
func Chain(errs ...error) error {
	var msgs []string
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
			msgs = append(msgs, e.Error())
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return fmt.Errorf("%s", strings.Join(msgs, " -> "))
	}
}
