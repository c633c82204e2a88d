package controller

import (
	"errors"

	"ragchat-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorStatus maps session errors to the status the bridge answers with.
func ErrorStatus(err error) int {
	var decodeErr *service.DecodeError
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidName), errors.As(err, &decodeErr):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNoActiveChat),
		errors.Is(err, service.ErrSendDisabled),
		errors.Is(err, service.ErrSessionReset):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrClosed):
		return fiber.StatusServiceUnavailable
	case service.IsRemote(err):
		return fiber.StatusBadGateway
	}
	return 0
}
