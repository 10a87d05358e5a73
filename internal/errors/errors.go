// Package errors defines the error kinds that travel between the backend
// client, the section managers and the HTTP layer.
//
// Managers never let these escape: a list failure becomes an error panel, a
// mutation failure becomes a toast and a validation failure is rendered next
// to the offending control.
//
//	payload, err := client.Request(ctx, url, nil)
//	if errors.Is(err, errors.ErrHTTPStatus) {
//	    // non-2xx from the library service
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error kind.
type Code string

const (
	CodeNetwork     Code = "NETWORK"
	CodeHTTPStatus  Code = "HTTP_STATUS"
	CodeParse       Code = "PARSE"
	CodeApplication Code = "APPLICATION"
	CodeValidation  Code = "VALIDATION"
	CodeNotFound    Code = "NOT_FOUND"
)

// Error is a kinded error with a message, optional details and cause.
type Error struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Details    any    `json:"details,omitempty"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: details, cause: e.cause}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNetwork     = &Error{Code: CodeNetwork, Message: "network error"}
	ErrHTTPStatus  = &Error{Code: CodeHTTPStatus, Message: "unexpected HTTP status"}
	ErrParse       = &Error{Code: CodeParse, Message: "invalid JSON response"}
	ErrApplication = &Error{Code: CodeApplication, Message: "request failed"}
	ErrValidation  = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound    = &Error{Code: CodeNotFound, Message: "not found"}
)

// Network wraps a transport failure (DNS, TLS, refused, offline).
func Network(err error) *Error {
	return &Error{Code: CodeNetwork, Message: "could not reach the library service", cause: err}
}

const maxBodyInMessage = 200

// HTTPStatus reports a non-2xx response. A plain-text body is kept in the
// message, cut to maxBodyInMessage bytes on a rune boundary. HTML error
// pages are left out.
func HTTPStatus(status int, body string) *Error {
	msg := fmt.Sprintf("library service returned HTTP %d", status)
	if body = strings.TrimSpace(body); body != "" && !strings.HasPrefix(body, "<") {
		body = strings.ToValidUTF8(body, "")
		if len(body) > maxBodyInMessage {
			n := maxBodyInMessage
			for n > 0 && !utf8.RuneStart(body[n]) {
				n--
			}
			body = body[:n]
		}
		msg += ": " + body
	}
	return &Error{Code: CodeHTTPStatus, Message: msg, StatusCode: status}
}

// Parse wraps a JSON decoding failure.
func Parse(err error) *Error {
	return &Error{Code: CodeParse, Message: "library service sent an invalid response", cause: err}
}

// Application reports a `success: false` body.
func Application(msg string) *Error {
	if msg == "" {
		msg = "the library service rejected the request"
	}
	return &Error{Code: CodeApplication, Message: msg}
}

// Validation creates a client-side precondition error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(msg string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FieldErrors returns per-field validation messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		if fields, ok := e.Details.(map[string]string); ok {
			return fields
		}
	}
	return nil
}

// IsAuthentication reports whether err looks like an authentication failure.
// The library service signals these with an error message mentioning
// "Authentication" (or a 401/403 status).
func IsAuthentication(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Code == CodeHTTPStatus && (e.StatusCode == 401 || e.StatusCode == 403) {
		return true
	}
	return strings.Contains(err.Error(), "Authentication")
}
