package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrConflict          = errors.New("resource conflict")
	ErrInternal          = errors.New("internal server error")
	ErrValidation        = errors.New("validation error")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrSameLocation      = errors.New("origin and destination are the same location")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyZero       = errors.New("stock entry already at zero")
	ErrStorageConflict   = errors.New("storage conflict")
)

// StockShortage carries the structured detail of an insufficient-stock
// failure so callers can offer a "dispatch what's available" choice without
// a second round-trip.
type StockShortage struct {
	ItemID    string `json:"item_id,omitempty"`
	DrugID    string `json:"drug_id,omitempty"`
	DrugName  string `json:"drug_name,omitempty"`
	LotID     string `json:"lot_id,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	Shortage   *StockShortage    `json:"shortage,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// InvalidState signals an operation attempted from a lifecycle status that
// does not permit it.
func InvalidState(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidState,
		Code:       "INVALID_STATE",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// SameLocation signals a transfer whose origin equals its destination.
func SameLocation() *AppError {
	return &AppError{
		Err:        ErrSameLocation,
		Code:       "SAME_LOCATION",
		Message:    "origin and destination locations must differ",
		StatusCode: http.StatusBadRequest,
	}
}

// InsufficientStock signals that a requested or approved quantity exceeds
// what is on hand. The shortage detail travels as typed fields, never
// encoded into the message string.
func InsufficientStock(shortage StockShortage) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("insufficient stock: %d available, %d requested", shortage.Available, shortage.Requested),
		StatusCode: http.StatusBadRequest,
		Shortage:   &shortage,
	}
}

// AlreadyZero signals a disposal attempted on an already-emptied stock entry.
func AlreadyZero() *AppError {
	return &AppError{
		Err:        ErrAlreadyZero,
		Code:       "ALREADY_ZERO",
		Message:    "stock entry is already at zero",
		StatusCode: http.StatusBadRequest,
	}
}

// StorageConflict signals a transactional conflict (serialization failure or
// deadlock) at the persistence layer. The caller may retry.
func StorageConflict() *AppError {
	return &AppError{
		Err:        ErrStorageConflict,
		Code:       "STORAGE_CONFLICT",
		Message:    "storage conflict, retry the operation",
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
