package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusMapper translates a domain error into an HTTP status. Zero means the
// error is unknown and becomes a 500.
type StatusMapper func(err error) int

// ErrorHandlerMiddleware renders any error returned further down the chain
// as an ErrorResponse envelope.
func ErrorHandlerMiddleware(mapStatus StatusMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := statusOf(err, mapStatus)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func statusOf(err error, mapStatus StatusMapper) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest
	}
	if mapStatus != nil {
		if code := mapStatus(err); code != 0 {
			return code
		}
	}
	return fiber.StatusInternalServerError
}
