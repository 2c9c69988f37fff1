package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithStatus creates a service error with specific HTTP status
func NewServiceErrorWithStatus(code, message string, statusCode int) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewServiceErrorWithCause creates a service error that wraps another error
func NewServiceErrorWithCause(code, message string, cause error) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// GetServiceError extracts a ServiceError from an error
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// IsCode reports whether err carries the given service error code.
func IsCode(err error, code string) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == code
}

// Error code constants
const (
	ErrCodeInsufficientPermissions  = "INSUFFICIENT_PERMISSIONS"
	ErrCodeLocationServicesDisabled = "LOCATION_SERVICES_DISABLED"
	ErrCodeTransientSignal          = "TRANSIENT_SIGNAL_ERROR"
	ErrCodeDeliveryFailure          = "DELIVERY_FAILURE"
	ErrCodeValidation               = "VALIDATION_ERROR"
	ErrCodeNotFound                 = "NOT_FOUND"
	ErrCodeUnauthorized             = "UNAUTHORIZED"
	ErrCodeForbidden                = "FORBIDDEN"
	ErrCodeConflict                 = "CONFLICT"
	ErrCodeInternal                 = "INTERNAL_ERROR"
	ErrCodeDatabase                 = "DATABASE_ERROR"
)

// NewInsufficientPermissionsError signals that the authorization capability
// is below what the requested monitoring operation needs. Recoverable by the
// user re-granting and retrying.
func NewInsufficientPermissionsError(details string) error {
	return ServiceError{
		Code:       ErrCodeInsufficientPermissions,
		Message:    "Location permission does not allow monitoring",
		Details:    details,
		StatusCode: http.StatusForbidden,
	}
}

// NewLocationServicesDisabledError signals that location services are off at
// the OS level. Requires a settings change, not a retry.
func NewLocationServicesDisabledError() error {
	return ServiceError{
		Code:       ErrCodeLocationServicesDisabled,
		Message:    "Location services are disabled",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewTransientSignalError records an intermittent location error. Never
// aborts an active session; kept only for diagnostics.
func NewTransientSignalError(cause error) error {
	return ServiceError{
		Code:       ErrCodeTransientSignal,
		Message:    "Temporary location signal error",
		Cause:      cause,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewDeliveryFailureError wraps an opaque error from the delivery
// collaborator. Logged, not retried.
func NewDeliveryFailureError(cause error) error {
	return ServiceError{
		Code:       ErrCodeDeliveryFailure,
		Message:    "Alert delivery failed",
		Cause:      cause,
		StatusCode: http.StatusBadGateway,
	}
}

func NewUnauthorizedError(message string) error {
	return ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) error {
	return ServiceError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewBadRequestError(message string) error {
	return ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewAlertNotFoundError() error {
	return NewNotFoundError("Alert")
}

func NewContactNotFoundError() error {
	return NewNotFoundError("Contact")
}
