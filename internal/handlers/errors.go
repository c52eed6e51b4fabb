package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"churninsight/dashboard/internal/services"
)

// ErrorHandler maps service errors onto status codes and renders them as
// {"error", "code"}.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()

		var fe *fiber.Error
		var ve *services.ValidationError
		var te *services.TransportError
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.As(err, &ve):
			code = fiber.StatusBadRequest
			message = ve.Message
		case services.IsAborted(err):
			code = fiber.StatusConflict
			message = "request superseded"
		case errors.As(err, &te):
			code = fiber.StatusBadGateway
			message = te.Error()
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("code", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
			"code":  code,
		})
	}
}
