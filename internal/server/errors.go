package server

import (
	"errors"

	"cafe-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[error]int{
	apperr.ErrInvalidInput:      fiber.StatusBadRequest,
	apperr.ErrNotFound:          fiber.StatusNotFound,
	apperr.ErrInsufficientStock: fiber.StatusConflict,
	apperr.ErrConflict:          fiber.StatusConflict,
	apperr.ErrPermissionDenied:  fiber.StatusForbidden,
	apperr.ErrUnauthenticated:   fiber.StatusUnauthorized,
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler renders domain errors as {"error", "message", "details"}.
// Anything unclassified is logged and hidden behind a generic 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ise *apperr.InsufficientStockError
		if errors.As(err, &ise) {
			return c.Status(fiber.StatusConflict).JSON(errorBody{
				Error:   apperr.ErrInsufficientStock.Error(),
				Message: ise.Error(),
				Details: map[string]any{
					"ingredient_id":   ise.IngredientID,
					"ingredient_name": ise.IngredientName,
					"available":       ise.Available,
					"required":        ise.Required,
				},
			})
		}

		var ae *apperr.Error
		if errors.As(err, &ae) {
			status, ok := kindStatus[ae.Kind]
			if !ok {
				status = fiber.StatusInternalServerError
			}
			return c.Status(status).JSON(errorBody{
				Error:   ae.Kind.Error(),
				Message: ae.Message,
				Details: ae.Details,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{
				Error:   "http_error",
				Message: fe.Message,
			})
		}

		log.Error("unexpected error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{
			Error:   "internal",
			Message: "unexpected server error",
		})
	}
}
