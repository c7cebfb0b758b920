package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"tera/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RespondWithError writes the standard error body.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response models.ErrorResponse

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		response = models.ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
	} else {
		response = models.ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// respondWithAppError picks the status from the error itself.
func respondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, statusFor(err), err)
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusRequestTimeout
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// queryLimit parses ?limit. Absent means 0, the default page size. Upper
// bounds are checked by the service.
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit == 0 {
		return 0, models.NewValidationError("limit must be a positive integer")
	}
	return limit, nil
}

// viewerID returns the authenticated subject set by the auth middleware.
func viewerID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals("userID").(string)
	if !ok || id == "" {
		return "", models.NewUnauthorizedError("Authorization required")
	}
	return id, nil
}
