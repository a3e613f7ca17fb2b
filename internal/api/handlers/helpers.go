package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/transfer"
	"github.com/rs/zerolog/log"
)

// GetBrandID returns the brand the auth middleware stored on the request.
func GetBrandID(c *fiber.Ctx) int64 {
	switch v := c.Locals("brand_id").(type) {
	case int64:
		return v
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	}
	return 0
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", models.ErrInvalidInput, name)
	}
	return id, nil
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrInvalidInput)
	}
	return transfer.Validate(req)
}

// StatusFor maps an error class to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrNotConnected):
		return fiber.StatusPreconditionFailed
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorHandler is the fiber error handler for errors returned past the
// handlers, such as routing and body limit errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
