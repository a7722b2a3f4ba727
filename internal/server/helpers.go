package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"
)

// errResponseWritten indicates a helper already committed the HTTP response.
// Handlers must return nil rather than this error.
var errResponseWritten = errors.New("response already written")

const msgInvalidBody = "Invalid request body"

// parseID extracts a uuid route parameter. On failure it writes a 400 with
// message and returns errResponseWritten.
func parseID(c *fiber.Ctx, param, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(message))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// actorFrom converts the authenticated caller into a service actor.
func actorFrom(c *fiber.Ctx) service.Actor {
	caller, _ := middleware.CallerFrom(c)
	return service.Actor{ID: caller.ID, Role: caller.Role}
}

// respond renders err with the status derived from its code. Internal
// errors are logged with their cause.
func respond(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}
