package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vakki/pkg/pipeline"
	"github.com/papercomputeco/vakki/pkg/session"
	"github.com/papercomputeco/vakki/pkg/storage"
	"github.com/papercomputeco/vakki/pkg/tools"
)

// errNoAudit is reported when the audit log is disabled.
var errNoAudit = errors.New("audit log is not configured")

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var notFound storage.NotFoundError
	switch {
	case errors.Is(err, tools.ErrEmptyInput), errors.Is(err, session.ErrInvalidID):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrRetrievalFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
