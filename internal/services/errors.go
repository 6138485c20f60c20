package services

import (
	"errors"
	"fmt"

	"github.com/soaringjerry/gradtrack/internal/utils"
)

type ErrorCode string

const (
	ErrorInvalid         ErrorCode = "invalid"
	ErrorForbidden       ErrorCode = "forbidden"
	ErrorNotFound        ErrorCode = "not_found"
	ErrorConflict        ErrorCode = "conflict"
	ErrorUnauthorized    ErrorCode = "unauthorized"
	ErrorTooManyRequests ErrorCode = "too_many_requests"
)

// ServiceError is the error every service returns for a caller mistake. Field names the
// offending input, Key is the i18n message key used to localize Message.
type ServiceError struct {
	Code    ErrorCode
	Field   string
	Key     string
	Message string
	args    []any
}

func (e *ServiceError) Error() string { return e.Message }

// Localized renders the message in locale, falling back to Message.
func (e *ServiceError) Localized(locale string) string {
	if e.Key == "" {
		return e.Message
	}
	msg := utils.T(locale, e.Key)
	if len(e.args) > 0 {
		msg = fmt.Sprintf(msg, e.args...)
	}
	return msg
}

func newKeyed(code ErrorCode, field, key string, args ...any) error {
	msg := utils.T("en", key)
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &ServiceError{Code: code, Field: field, Key: key, Message: msg, args: args}
}

// NewInvalidError reports malformed input that has no translated message.
func NewInvalidError(msg string) error { return &ServiceError{Code: ErrorInvalid, Message: msg} }

// NewFieldError is a validation failure on one input field with a localized message.
func NewFieldError(field, key string, args ...any) error {
	return newKeyed(ErrorInvalid, field, key, args...)
}

// NewKeyedError builds a localized error with any code.
func NewKeyedError(code ErrorCode, key string) error {
	return newKeyed(code, "", key)
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
