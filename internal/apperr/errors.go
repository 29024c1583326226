// Package apperr defines the error kinds surfaced by the domain services.
// Handlers never inspect messages; they switch on the kind with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid_input")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrPermissionDenied  = errors.New("permission_denied")
	ErrConflict          = errors.New("conflict")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// Error is a kind plus a caller-facing message and optional structured details.
type Error struct {
	Kind    error
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return newf(ErrInvalidInput, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(ErrNotFound, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return newf(ErrPermissionDenied, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(ErrConflict, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return newf(ErrUnauthenticated, format, args...)
}

// InsufficientStockError names the ingredient and by how much the request exceeds stock.
type InsufficientStockError struct {
	IngredientID   uint
	IngredientName string
	Available      float64
	Required       float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s (id %d): available %.4f, required %.4f",
		e.IngredientName, e.IngredientID, e.Available, e.Required)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Kind returns the sentinel kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrInsufficientStock,
		ErrPermissionDenied,
		ErrConflict,
		ErrUnauthenticated,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
