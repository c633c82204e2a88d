package serverutils

import (
	"github.com/gofiber/fiber/v2"
)

// RequireClientHeader rejects state-changing requests that do not carry the
// named header. Browsers cannot attach a custom header cross-origin without a
// CORS preflight, so form posts and body-less POSTs from other pages fail here.
func RequireClientHeader(name string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		switch ctx.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return ctx.Next()
		}
		if ctx.Get(name) == "" {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Missing "+name+" header"))
		}
		return ctx.Next()
	}
}
