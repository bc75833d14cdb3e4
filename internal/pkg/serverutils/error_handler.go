package serverutils

import (
	"errors"

	"campus-chat-be/internal/chat"
	"campus-chat-be/pkg/attachment"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into BaseResponse bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest
	}

	switch {
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, attachment.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chat.ErrValidation), errors.Is(err, chat.ErrProtocol):
		return fiber.StatusBadRequest
	case errors.Is(err, chat.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
