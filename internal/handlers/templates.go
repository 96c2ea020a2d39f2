package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/overlay"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/template"
	"github.com/pairworks/tpsflow/internal/types"
	"github.com/pairworks/tpsflow/internal/utils"
	"github.com/pairworks/tpsflow/internal/workflow"
)

// TemplatesHandler serves PDF templates, their parsed field descriptors,
// and the rendered report overlay.
type TemplatesHandler struct {
	Source  *template.Source
	Machine *workflow.Machine
}

// GetTemplate handles GET /api/templates/:key
// @Summary Download a PDF template
// @Tags Templates
// @Produce application/pdf
// @Param key path string true "Template key"
// @Success 200 {string} binary
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /templates/{key} [get]
func (h *TemplatesHandler) GetTemplate(c *fiber.Ctx) error {
	b, err := h.Source.Get(c.Params("key"))
	if err != nil {
		return utils.RenderError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Status(fiber.StatusOK).Send(b)
}

// GetTemplateFields handles GET /api/templates/:key/fields
// @Summary Get a template's form field descriptors
// @Description Parse the template and return its widget annotations as field descriptors
// @Tags Templates
// @Produce json
// @Param key path string true "Template key"
// @Success 200 {array} pdfform.Field
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /templates/{key}/fields [get]
func (h *TemplatesHandler) GetTemplateFields(c *fiber.Ctx) error {
	b, err := h.Source.Get(c.Params("key"))
	if err != nil {
		return utils.RenderError(c, err)
	}
	doc, err := pdfform.Parse(b)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, doc.Fields(), fiber.StatusOK)
}

// GetOverlay handles GET /api/reports/:id/overlay
// @Summary Render the report's interactive overlay
// @Description Position the template's fields over a raster surface and bind the report's values; read-only unless the user owns writes at the current status
// @Tags Reports
// @Produce html
// @Param id path int true "Report ID"
// @Param width query int false "Raster width in pixels" default(612)
// @Param height query int false "Raster height in pixels" default(792)
// @Param page query int false "Page number" default(1)
// @Param template query string false "Template key" default(tps-vanilla)
// @Success 200 {string} html
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id}/overlay [get]
func (h *TemplatesHandler) GetOverlay(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	id, err := reportID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	r, err := h.Machine.Get(userID, id)
	if err != nil {
		return utils.RenderError(c, err)
	}

	key := c.Query("template", template.CanonicalKey)
	b, err := h.Source.Get(key)
	if err != nil {
		return utils.RenderError(c, err)
	}
	doc, err := pdfform.Parse(b)
	if err != nil {
		return utils.RenderError(c, err)
	}

	pageNum := c.QueryInt("page", 1)
	if pageNum < 1 || pageNum > len(doc.Pages) {
		return utils.RenderError(c, types.NotFound("template %q has no page %d", key, pageNum))
	}
	page := doc.Pages[pageNum-1]

	values, err := formdata.FromJSON([]byte(r.FormData))
	if err != nil {
		return utils.RenderError(c, err)
	}

	surface := overlay.Surface{
		WidthPx:  c.QueryInt("width", 612),
		HeightPx: c.QueryInt("height", 792),
	}
	readOnly := r.Status.Terminal() || r.RoleOf(userID) != r.Status.Writer()

	ov, err := overlay.Build(surface, page, values, nil, readOnly)
	if err != nil {
		return utils.RenderError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).SendString(ov.HTML())
}
