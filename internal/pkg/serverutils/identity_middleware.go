package serverutils

import (
	"ragchat-client/internal/entity"

	"github.com/gofiber/fiber/v2"
)

const UsernameLocal = "username"

// RequireIdentity rejects requests while nobody is signed in and exposes the
// current username to the handlers behind it.
func RequireIdentity(current func() *entity.Identity) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		identity := current()
		if identity == nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Not signed in"))
		}
		ctx.Locals(UsernameLocal, identity.Username)
		return ctx.Next()
	}
}
