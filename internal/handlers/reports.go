package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/store"
	"github.com/pairworks/tpsflow/internal/types"
	"github.com/pairworks/tpsflow/internal/utils"
	"github.com/pairworks/tpsflow/internal/workflow"
)

// ReportsHandler handles report lifecycle routes
type ReportsHandler struct {
	Machine   *workflow.Machine
	Store     store.ReportStore
	Snapshots workflow.SnapshotStore
}

// ReportEnvelope is a report enriched with the parties' display names.
type ReportEnvelope struct {
	models.Report
	CreatorName  string `json:"creatorName,omitempty"`
	ReceiverName string `json:"receiverName,omitempty"`
}

type createReportRequest struct {
	FormData formdata.Map `json:"formData"`
}

type transitionRequest struct {
	Action   string       `json:"action"`
	FormData formdata.Map `json:"formData"`
	Initials string       `json:"initials"`
}

// CreateReport handles POST /api/reports
// @Summary Create a report
// @Description Create a draft report from the authenticated user to their partner
// @Tags Reports
// @Accept json
// @Produce json
// @Param report body createReportRequest true "Initial form data"
// @Success 201 {object} ReportEnvelope
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports [post]
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	var req createReportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RenderError(c, types.Validation("malformed report payload: %v", err))
	}

	r, err := h.Machine.Create(userID, req.FormData)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, h.envelope(r), fiber.StatusCreated)
}

// ListReports handles GET /api/reports
// @Summary List the user's reports
// @Description List reports where the user is creator or receiver, newest first
// @Tags Reports
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} ReportEnvelope
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports [get]
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	reports, err := h.Store.ListReportsForUser(userID, models.Status(c.Query("status")))
	if err != nil {
		return utils.RenderError(c, err)
	}

	out := make([]ReportEnvelope, 0, len(reports))
	for i := range reports {
		out = append(out, h.envelope(&reports[i]))
	}
	return utils.SuccessResponse(c, out, fiber.StatusOK)
}

// GetReport handles GET /api/reports/:id
// @Summary Get one report
// @Description Fetch a report with party display names; records a viewed audit entry
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} ReportEnvelope
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id} [get]
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	id, err := reportID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	r, err := h.Machine.View(userID, id)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, h.envelope(r), fiber.StatusOK)
}

// Transition handles POST /api/reports/:id/transition
// @Summary Apply a lifecycle action
// @Description Apply save, submit, review, deny, approve, or abort to a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param transition body transitionRequest true "Action and optional form data / initials"
// @Success 200 {object} ReportEnvelope
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id}/transition [post]
func (h *ReportsHandler) Transition(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	id, err := reportID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RenderError(c, types.Validation("malformed transition payload: %v", err))
	}

	var r *models.Report
	switch req.Action {
	case "save":
		r, err = h.Machine.Save(userID, id, req.FormData)
	case "submit":
		r, err = h.Machine.Submit(userID, id)
	case "review":
		r, err = h.Machine.Review(userID, id, req.FormData, req.Initials)
	case "deny":
		r, err = h.Machine.Deny(userID, id)
	case "approve":
		r, err = h.Machine.Approve(userID, id, req.Initials)
	case "abort":
		r, err = h.Machine.Abort(userID, id)
	default:
		err = types.Validation("unknown transition action %q", req.Action)
	}
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, h.envelope(r), fiber.StatusOK)
}

// Replicate handles POST /api/reports/:id/replicate
// @Summary Replicate a terminal report
// @Description Copy a completed or aborted report into a fresh draft
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 201 {object} ReportEnvelope
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id}/replicate [post]
func (h *ReportsHandler) Replicate(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	id, err := reportID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	r, err := h.Machine.Replicate(userID, id)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, h.envelope(r), fiber.StatusCreated)
}

// GetLogs handles GET /api/reports/:id/logs
// @Summary Get a report's audit trail
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {array} models.Log
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id}/logs [get]
func (h *ReportsHandler) GetLogs(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}
	id, err := reportID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	logs, err := h.Machine.Logs(userID, id)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, logs, fiber.StatusOK)
}

// GetSnapshot handles GET /api/reports/:id/snapshot
// @Summary Download the filled-PDF snapshot
// @Tags Reports
// @Produce application/pdf
// @Param id path int true "Report ID"
// @Success 200 {string} binary
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /reports/{id}/snapshot [get]
func (h *ReportsHandler) GetSnapshot(c *fiber.Ctx) error {
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
	// Only a recorded path vouches for a committed completion; never serve
	// stray bytes for a report that has none.
	if r.PDFPath == "" {
		return utils.RenderError(c, types.NotFound("report %d has no snapshot", id))
	}
	b, err := h.Snapshots.Retrieve(id)
	if err != nil {
		return utils.RenderError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Status(fiber.StatusOK).Send(b)
}

// GetCounts handles GET /api/reports/counts
// @Summary Get the user's report counts
// @Description Aggregate pending, completed, and aborted counts
// @Tags Reports
// @Produce json
// @Success 200 {object} store.Counts
// @Security CookieAuth
// @Router /reports/counts [get]
func (h *ReportsHandler) GetCounts(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.RenderError(c, err)
	}

	counts, err := h.Store.StatusCounts(userID)
	if err != nil {
		return utils.RenderError(c, err)
	}
	return utils.SuccessResponse(c, counts, fiber.StatusOK)
}

func (h *ReportsHandler) envelope(r *models.Report) ReportEnvelope {
	env := ReportEnvelope{Report: *r}
	if creator, err := h.Store.GetUser(r.CreatorID); err == nil {
		env.CreatorName = creator.DisplayName
	}
	if receiver, err := h.Store.GetUser(r.ReceiverID); err == nil {
		env.ReceiverName = receiver.DisplayName
	}
	return env
}
