package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/service"
)

// ErrorHandler renders every error that escapes a handler as
// {success:false, message}. Set it as fiber.Config.ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, message = fe.Code, fe.Message
	case errors.Is(err, service.ErrNotFound):
		code, message = fiber.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrInvalidInput):
		code, message = fiber.StatusBadRequest, err.Error()
	default:
		slog.Error("unhandled error", "component", "http", "request_id", middleware.RequestID(c), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// failure writes the generic pipeline failure body. The error detail is
// only exposed outside production.
func failure(c *fiber.Ctx, production bool, message string, err error) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if !production && err != nil {
		body["error"] = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// clientError maps service errors callers can act on to fiber errors and
// reports whether it did.
func clientError(err error) (*fiber.Error, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error()), true
	case errors.Is(err, service.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "bug not found"), true
	}
	return nil, false
}
