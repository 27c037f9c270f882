package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeNotFound           = "not_found"
	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeConflict           = "conflict"
	CodeInternal           = "internal_error"
	CodeServiceUnavailable = "service_unavailable"
	CodeUpstream           = "upstream_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeTokenInvalid       = "token_invalid"
	CodeQRInvalid          = "qr_invalid"
	CodeAttendanceConflict = "attendance_conflict"
	CodeDeviceUnbound      = "device_unbound"
)

// Error is the single error type that crosses package boundaries. Status is
// the HTTP status it renders as; Code is the stable machine-readable kind.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []any
	TraceID string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on Code so callers can compare against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID returns a copy carrying the given correlation id.
func (e *Error) WithTraceID(id string) *Error {
	cp := *e
	cp.TraceID = id
	return &cp
}

// Wrap returns a copy that records cause for logging. The cause never
// reaches the client.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	ErrNotFound           = &Error{Status: http.StatusNotFound, Code: CodeNotFound}
	ErrConflict           = &Error{Status: http.StatusConflict, Code: CodeConflict}
	ErrUnauthorized       = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized}
	ErrServiceUnavailable = &Error{Status: http.StatusServiceUnavailable, Code: CodeServiceUnavailable}
	ErrAttendanceConflict = &Error{Status: http.StatusConflict, Code: CodeAttendanceConflict}
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Code: CodeInvalidCredentials}
	ErrTokenInvalid       = &Error{Status: http.StatusBadRequest, Code: CodeTokenInvalid}
)

func New(status int, code, message string, details ...any) *Error {
	return &Error{Status: status, Code: code, Message: message, Details: details}
}

func NotFound(message string, details ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, orDefault(message, "Resource not found"), details...)
}

func BadRequest(message string, details ...any) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, orDefault(message, "Bad request"), details...)
}

func Unauthorized(message string, details ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, orDefault(message, "Unauthorized"), details...)
}

func Forbidden(message string, details ...any) *Error {
	return New(http.StatusForbidden, CodeForbidden, orDefault(message, "Forbidden"), details...)
}

func Conflict(message string, details ...any) *Error {
	return New(http.StatusConflict, CodeConflict, orDefault(message, "Conflict"), details...)
}

func Internal(message string, details ...any) *Error {
	return New(http.StatusInternalServerError, CodeInternal, orDefault(message, "Internal server error"), details...)
}

func ServiceUnavailable(message string, details ...any) *Error {
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, orDefault(message, "Service unavailable"), details...)
}

func InvalidCredentials() *Error {
	return New(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
}

func TokenInvalid(message string) *Error {
	return New(http.StatusBadRequest, CodeTokenInvalid, orDefault(message, "Invalid or expired token"))
}

func QRInvalid(message string) *Error {
	return New(http.StatusBadRequest, CodeQRInvalid, orDefault(message, "Invalid QR code"))
}

func AttendanceConflict(message string) *Error {
	return New(http.StatusConflict, CodeAttendanceConflict, orDefault(message, "Attendance already recorded"))
}

func DeviceUnbound(message string) *Error {
	return New(http.StatusBadRequest, CodeDeviceUnbound, orDefault(message, "Device not bound to any student"))
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal("").Wrap(err)
}

// StatusOf reports the HTTP status of err, 500 for unknown errors.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// HasStatus reports whether err is an *Error with the given HTTP status.
func HasStatus(err error, status int) bool {
	appErr, ok := As(err)
	return ok && appErr.Status == status
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
