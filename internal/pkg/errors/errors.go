// Package errors defines the API error taxonomy shared by services and handlers.
package errors

import (
	stderrors "errors"
	"net/http"
)

// APIError is a business failure that maps onto a fixed HTTP status.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches any APIError carrying the same code, so WithMessage copies
// still satisfy errors.Is against the sentinels below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Code: e.Code, Message: message, StatusCode: e.StatusCode}
}

var (
	ErrAuthenticationRequired = &APIError{
		Code:       "authentication_required",
		Message:    "authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAuthorizationDenied = &APIError{
		Code:       "authorization_denied",
		Message:    "you don't have permission to perform this action",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrValidationFailed = &APIError{
		Code:       "validation_failed",
		Message:    "invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "resource already exists",
		StatusCode: http.StatusConflict,
	}

	// ErrExpired is an OTP that matched but whose expiry has passed.
	ErrExpired = &APIError{
		Code:       "otp_expired",
		Message:    "invitation code has expired",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidCode = &APIError{
		Code:       "invalid_code",
		Message:    "invalid invitation code",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

func NotFound(resource string) *APIError {
	return ErrNotFound.WithMessage(resource + " not found")
}

func Validation(message string) *APIError {
	return ErrValidationFailed.WithMessage(message)
}

func Forbidden(message string) *APIError {
	return ErrAuthorizationDenied.WithMessage(message)
}

// AsAPIError unwraps err to an APIError. ok is false for unexpected failures.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
