package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pairworks/tpsflow/internal/types"
)

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *fiber.Ctx) (string, error) {
	id, _ := c.Locals("userID").(string)
	if id == "" {
		return "", types.Forbidden("no authenticated user in request context")
	}
	return id, nil
}

// reportID parses the :id path parameter.
func reportID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, types.Validation("invalid report id %q", c.Params("id"))
	}
	return id, nil
}
