package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/pairworks/tpsflow/internal/calendar"
	"github.com/pairworks/tpsflow/internal/config"
	"github.com/pairworks/tpsflow/internal/services"
	"github.com/pairworks/tpsflow/internal/utils"
)

// CalendarHandler serves the user's follow-up events
type CalendarHandler struct {
	Scheduler *calendar.Scheduler
}

// ListEvents handles GET /api/calendar
// @Summary List the user's follow-up events
// @Tags Calendar
// @Produce json
// @Success 200 {array} models.CalendarEvent
// @Security CookieAuth
// @Router /calendar [get]
func (h *CalendarHandler) ListEvents(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	events, err := h.Scheduler.Upcoming(userID)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, events, fiber.StatusOK)
}

// HealthHandler reports service health
type HealthHandler struct {
	Cfg *config.Config
	DB  *gorm.DB
}

// Check handles GET /api/health
// @Summary Health check
// @Description Check database and Authorizer connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
