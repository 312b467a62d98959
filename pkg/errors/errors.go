package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Code narrows an ErrorType to the specific failure a caller can branch on.
type Code string

const (
	CodeProviderNotFound    Code = "PROVIDER_NOT_FOUND"
	CodeSlotNotFound        Code = "SLOT_NOT_FOUND"
	CodeAppointmentNotFound Code = "APPOINTMENT_NOT_FOUND"
	CodeSlotUnavailable     Code = "SLOT_UNAVAILABLE"
	CodeSlotBusy            Code = "SLOT_BUSY"
	CodeAlreadyTerminal     Code = "ALREADY_TERMINAL"
	CodeInvalidParameters   Code = "INVALID_PARAMETERS"
)

// Sentinels for errors.Is. Matching is by Code, so a wrapped or re-worded
// AppError with the same Code still matches.
var (
	ErrProviderNotFound    = &AppError{Type: ErrorTypeNotFound, Code: CodeProviderNotFound, Message: "provider not found"}
	ErrSlotNotFound        = &AppError{Type: ErrorTypeNotFound, Code: CodeSlotNotFound, Message: "time slot not found"}
	ErrAppointmentNotFound = &AppError{Type: ErrorTypeNotFound, Code: CodeAppointmentNotFound, Message: "appointment not found"}
	ErrSlotUnavailable     = &AppError{Type: ErrorTypeConflict, Code: CodeSlotUnavailable, Message: "time slot is not available"}
	ErrSlotBusy            = &AppError{Type: ErrorTypeConflict, Code: CodeSlotBusy, Message: "time slot is being modified, retry"}
	ErrAlreadyTerminal     = &AppError{Type: ErrorTypeConflict, Code: CodeAlreadyTerminal, Message: "appointment is cancelled"}
	ErrInvalidParameters   = &AppError{Type: ErrorTypeValidation, Code: CodeInvalidParameters, Message: "invalid parameters"}
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same Code, or the same
// Type when target carries no Code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return t.Type != "" && e.Type == t.Type
}

// WithMessage returns a copy of a sentinel carrying a request-specific message.
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	return &AppError{
		Type:    e.Type,
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Err:     e.Err,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsNotFound reports whether err is a NOT_FOUND AppError
func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNotFound
}

// IsConflict reports whether err is a CONFLICT AppError
func IsConflict(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeConflict
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeInvalidParameters,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}
