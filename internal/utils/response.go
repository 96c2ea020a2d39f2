package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pairworks/tpsflow/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ConflictResponse sends a status conflict error (409). The client lost a
// transition race and must refetch the report before retrying.
func ConflictResponse(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "E_STATUS - Refetch and reconcile with current status and retry."
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"status":      fiber.StatusConflict,
		"message":     message,
		"ok":          false,
		"statusError": true,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"url":         c.OriginalURL(),
		"type":        types.KindConflict,
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// RenderError maps a taxonomy error onto the matching JSON envelope.
func RenderError(c *fiber.Ctx, err error) error {
	var ce *types.CustomError
	if errors.As(err, &ce) {
		switch ce.Code {
		case fiber.StatusConflict:
			return ConflictResponse(c, ce.Message)
		case fiber.StatusNotFound:
			return NotFoundResponse(c, ce.Message)
		}
		return ErrorResponse(c, ce.Message, ce.Code, ce.Type)
	}
	return ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "internal")
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Ok          bool   `json:"ok"`
	Timestamp   string `json:"timestamp"`
	URL         string `json:"url"`
	Type        string `json:"type,omitempty"`
	StatusError bool   `json:"statusError,omitempty"`
}
