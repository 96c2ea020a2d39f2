package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pairworks/tpsflow/internal/handlers"
	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/store"
	"github.com/pairworks/tpsflow/internal/template"
	"github.com/pairworks/tpsflow/internal/workflow"
)

const (
	creatorID  = "11111111-1111-1111-1111-111111111111"
	receiverID = "22222222-2222-2222-2222-222222222222"
)

// testAuth stands in for the session middleware: the acting user comes
// from a request header instead of an Authorizer cookie.
func testAuth(c *fiber.Ctx) error {
	if id := c.Get("X-Test-User"); id != "" {
		c.Locals("userID", id)
	}
	return c.Next()
}

// stubSnapshots always has bytes on hand, so a refused download proves the
// handler checked the report's recorded path rather than the storage.
type stubSnapshots struct{}

func (stubSnapshots) Save(reportID uint64, b []byte) (string, error) {
	return fmt.Sprintf("/snapshots/report-%d.pdf", reportID), nil
}

func (stubSnapshots) Retrieve(reportID uint64) ([]byte, error) {
	return []byte("%PDF-stub"), nil
}

func setupApp(t *testing.T) (*fiber.App, *store.GormStore) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Report{}, &models.Log{}, &models.CalendarEvent{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	users := []models.User{
		{ID: creatorID, Email: "matt@example.com", DisplayName: "Matt", PartnerID: receiverID},
		{ID: receiverID, Email: "mina@example.com", DisplayName: "Mina", PartnerID: creatorID},
	}
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("Failed to seed user: %v", err)
		}
	}

	s := store.New(db)
	fields := map[string]pdfform.Field{
		"summary": {Name: "summary", Type: pdfform.FieldTypeText, MaxLen: 40},
	}
	machine := workflow.New(s, fields, nil, nil, nil, nil)

	app := fiber.New()
	app.Use(testAuth)

	reports := &handlers.ReportsHandler{Machine: machine, Store: s, Snapshots: stubSnapshots{}}
	templates := &handlers.TemplatesHandler{Source: template.NewSource(t.TempDir()), Machine: machine}

	api := app.Group("/api")
	api.Get("/reports/counts", reports.GetCounts)
	api.Post("/reports", reports.CreateReport)
	api.Get("/reports", reports.ListReports)
	api.Get("/reports/:id", reports.GetReport)
	api.Post("/reports/:id/transition", reports.Transition)
	api.Post("/reports/:id/replicate", reports.Replicate)
	api.Get("/reports/:id/logs", reports.GetLogs)
	api.Get("/reports/:id/snapshot", reports.GetSnapshot)
	api.Get("/templates/:key", templates.GetTemplate)
	api.Get("/templates/:key/fields", templates.GetTemplateFields)

	return app, s
}

func doJSON(t *testing.T, app *fiber.App, method, path, user string, body interface{}) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func createDraft(t *testing.T, app *fiber.App) uint64 {
	status, result := doJSON(t, app, "POST", "/api/reports", creatorID,
		map[string]interface{}{"formData": map[string]interface{}{"summary": "week one"}})
	if status != 201 {
		t.Fatalf("Expected status 201, got %d: %v", status, result)
	}
	return uint64(result["ID"].(float64))
}

func TestCreateReport(t *testing.T) {
	app, _ := setupApp(t)

	status, result := doJSON(t, app, "POST", "/api/reports", creatorID,
		map[string]interface{}{"formData": map[string]interface{}{"summary": "week one"}})
	if status != 201 {
		t.Fatalf("Expected status 201, got %d: %v", status, result)
	}
	if result["Status"] != "draft" {
		t.Errorf("Expected draft, got %v", result["Status"])
	}
	if result["creatorName"] != "Matt" || result["receiverName"] != "Mina" {
		t.Errorf("Expected party display names, got %v / %v", result["creatorName"], result["receiverName"])
	}
}

func TestCreateReportRequiresAuth(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doJSON(t, app, "POST", "/api/reports", "", map[string]interface{}{})
	if status != 403 {
		t.Errorf("Expected status 403, got %d", status)
	}
}

func TestCreateReportRejectsUnknownField(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doJSON(t, app, "POST", "/api/reports", creatorID,
		map[string]interface{}{"formData": map[string]interface{}{"rogue": "x"}})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
}

func TestTransitionRoleGate(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	// Receiver cannot submit the creator's draft.
	status, _ := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), receiverID,
		map[string]interface{}{"action": "submit"})
	if status != 403 {
		t.Errorf("Expected status 403, got %d", status)
	}

	// Creator can.
	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "submit"})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %v", status, result)
	}
	if result["Status"] != "pending_review" {
		t.Errorf("Expected pending_review, got %v", result["Status"])
	}
}

func TestTransitionWrongStatusIsConflict(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "approve", "initials": "MT"})
	if status != 409 {
		t.Fatalf("Expected status 409, got %d: %v", status, result)
	}
	if result["statusError"] != true {
		t.Errorf("Expected statusError flag, got %v", result)
	}
}

func TestTransitionUnknownAction(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	status, _ := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "promote"})
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
}

func TestGetReportAppendsViewLog(t *testing.T) {
	app, s := setupApp(t)
	id := createDraft(t, app)

	status, _ := doJSON(t, app, "GET", fmt.Sprintf("/api/reports/%d", id), receiverID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	logs, err := s.ListLogsByReport(id)
	if err != nil {
		t.Fatalf("ListLogsByReport failed: %v", err)
	}
	if len(logs) != 2 || logs[1].Action != models.LogViewed {
		t.Errorf("Expected a viewed log entry, got %v", logs)
	}
}

func TestGetReportUnknownID(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doJSON(t, app, "GET", "/api/reports/9999", creatorID, nil)
	if status != 404 {
		t.Errorf("Expected status 404, got %d", status)
	}
}

func TestReplicateNonTerminalRejected(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	status, _ := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/replicate", id), creatorID, nil)
	if status != 400 {
		t.Errorf("Expected status 400, got %d", status)
	}
}

func TestDenyThenReplicateFlow(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "submit"})
	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), receiverID,
		map[string]interface{}{"action": "deny"})
	if status != 200 || result["Status"] != "aborted" {
		t.Fatalf("Expected aborted, got %d: %v", status, result)
	}

	// Any further edit fails with 403.
	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "save", "formData": map[string]interface{}{"summary": "x"}})
	if status != 403 {
		t.Errorf("Expected status 403, got %d", status)
	}

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/replicate", id), creatorID, nil)
	if status != 201 {
		t.Fatalf("Expected status 201, got %d: %v", status, result)
	}
	if result["Status"] != "draft" {
		t.Errorf("Expected draft replica, got %v", result["Status"])
	}
}

func TestListReportsAndCounts(t *testing.T) {
	app, _ := setupApp(t)
	createDraft(t, app)
	id := createDraft(t, app)
	doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "submit"})

	req := httptest.NewRequest("GET", "/api/reports?status=draft", nil)
	req.Header.Set("X-Test-User", receiverID)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	defer resp.Body.Close()
	var list []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 draft for the receiver's union, got %d", len(list))
	}

	status, counts := doJSON(t, app, "GET", "/api/reports/counts", creatorID, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if counts["pending"] != float64(1) {
		t.Errorf("Expected 1 pending, got %v", counts["pending"])
	}
}

func TestSnapshotRefusedWithoutRecordedPath(t *testing.T) {
	app, _ := setupApp(t)
	id := createDraft(t, app)

	// Complete the report; the machine has no renderer here, so no path
	// is ever recorded.
	doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "submit"})
	doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), receiverID,
		map[string]interface{}{"action": "review"})
	status, result := doJSON(t, app, "POST", fmt.Sprintf("/api/reports/%d/transition", id), creatorID,
		map[string]interface{}{"action": "approve", "initials": "MT"})
	if status != 200 || result["Status"] != "completed" {
		t.Fatalf("Expected completed, got %d: %v", status, result)
	}

	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/reports/%d/snapshot", id), creatorID, nil)
	if status != 404 {
		t.Errorf("Expected status 404 for a report with no recorded snapshot, got %d", status)
	}
}

func TestTemplateRoutes(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doJSON(t, app, "GET", "/api/templates/missing", creatorID, nil)
	if status != 404 {
		t.Errorf("Expected status 404, got %d", status)
	}

	status, _ = doJSON(t, app, "GET", "/api/templates/..evil/fields", creatorID, nil)
	if status != 400 && status != 404 {
		t.Errorf("Expected rejection, got %d", status)
	}
}
