// Package store persists reports, logs, users, and calendar events. The
// state machine drives every mutation through it; the conditional status
// update here is what serializes concurrent transitions per report.
package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/types"
)

// Counts aggregates a user's reports by lifecycle bucket.
type Counts struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Aborted   int64 `json:"aborted"`
}

// ReportStore is the persistence contract the workflow machine depends on.
type ReportStore interface {
	CreateReport(r *models.Report) error
	CreateReportLogged(r *models.Report, l *models.Log) error
	GetReport(id uint64) (*models.Report, error)
	UpdateReport(r *models.Report, expected models.Status) error
	UpdateReportLogged(r *models.Report, expected models.Status, l *models.Log) error
	SetReportPDFPath(id uint64, path string) error
	ListReportsForUser(userID string, status models.Status) ([]models.Report, error)
	ListReportsByStatus(status models.Status) ([]models.Report, error)
	StatusCounts(userID string) (Counts, error)

	AppendLog(l *models.Log) error
	ListLogsByReport(reportID uint64) ([]models.Log, error)

	GetUser(id string) (*models.User, error)
	GetUserWithPartner(id string) (*models.User, *models.User, error)

	AddCalendarEvent(ev *models.CalendarEvent) error
	ListCalendarEvents(userID string) ([]models.CalendarEvent, error)
}

// GormStore implements ReportStore on a gorm.DB.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateReport persists a new report row.
func (s *GormStore) CreateReport(r *models.Report) error {
	return createReport(s.db, r)
}

// CreateReportLogged persists a new report row together with its audit entry
// in one transaction. A report without its "created" log never exists.
func (s *GormStore) CreateReportLogged(r *models.Report, l *models.Log) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := createReport(tx, r); err != nil {
			return err
		}
		l.ReportID = r.ID
		return appendLog(tx, l)
	})
}

func createReport(tx *gorm.DB, r *models.Report) error {
	if r.CreatorID == r.ReceiverID {
		return types.Validation("creator and receiver must be different users")
	}
	if !r.Status.Valid() {
		return types.Validation("invalid status %q", r.Status)
	}
	if err := tx.Create(r).Error; err != nil {
		return err
	}
	return nil
}

// GetReport fetches one report by id.
func (s *GormStore) GetReport(id uint64) (*models.Report, error) {
	var r models.Report
	if err := s.db.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("report %d not found", id)
		}
		return nil, err
	}
	return &r, nil
}

// UpdateReport applies r's mutable fields conditionally on the report still
// holding the expected status. The WHERE clause is the compare-and-swap:
// of two concurrent transition attempts exactly one matches the expected
// status, the other sees zero affected rows and fails.
//
// Terminal rows are refused outright, independent of the state machine's
// own check.
func (s *GormStore) UpdateReport(r *models.Report, expected models.Status) error {
	return updateReport(s.db, r, expected)
}

// UpdateReportLogged applies the conditional update and the audit entry in
// one transaction, so a transition either fully commits with its log entry
// or not at all.
func (s *GormStore) UpdateReportLogged(r *models.Report, expected models.Status, l *models.Log) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := updateReport(tx, r, expected); err != nil {
			return err
		}
		return appendLog(tx, l)
	})
}

func updateReport(tx *gorm.DB, r *models.Report, expected models.Status) error {
	if expected.Terminal() {
		return types.Forbidden("report %d is %s and can no longer change", r.ID, expected)
	}
	if !r.Status.Valid() {
		return types.Validation("invalid status %q", r.Status)
	}

	result := tx.Model(&models.Report{}).
		Where("id = ? AND status = ?", r.ID, expected).
		Updates(map[string]interface{}{
			"status":            r.Status,
			"form_data":         r.FormData,
			"creator_initials":  r.CreatorInitials,
			"receiver_initials": r.ReceiverInitials,
			"pdf_path":          r.PDFPath,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Zero rows: either the report is gone, or someone moved it first.
	var current models.Report
	if err := tx.First(&current, r.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFound("report %d not found", r.ID)
		}
		return err
	}
	if current.Status.Terminal() {
		return types.Forbidden("report %d is %s and can no longer change", r.ID, current.Status)
	}
	return types.Conflict("E_STATUS - report %d expected %q but is %q; refetch and retry",
		r.ID, expected, current.Status)
}

// SetReportPDFPath records where the rendered snapshot landed. Snapshots
// are written only after the completing transition has committed, so this
// targeted update is the one mutation allowed on a terminal row.
func (s *GormStore) SetReportPDFPath(id uint64, path string) error {
	result := s.db.Model(&models.Report{}).Where("id = ?", id).Update("pdf_path", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.NotFound("report %d not found", id)
	}
	return nil
}

// ListReportsForUser returns the union of reports where the user is the
// creator OR the receiver, newest first, optionally filtered by status.
func (s *GormStore) ListReportsForUser(userID string, status models.Status) ([]models.Report, error) {
	query := s.db.Where("creator_id = ? OR receiver_id = ?", userID, userID)
	if status != "" {
		if !status.Valid() {
			return nil, types.Validation("invalid status %q", status)
		}
		query = query.Where("status = ?", status)
	}

	var reports []models.Report
	if err := query.Order("updated_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// ListReportsByStatus returns all reports in one status, oldest first.
func (s *GormStore) ListReportsByStatus(status models.Status) ([]models.Report, error) {
	if !status.Valid() {
		return nil, types.Validation("invalid status %q", status)
	}
	var reports []models.Report
	if err := s.db.Where("status = ?", status).Order("id ASC").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// StatusCounts aggregates the user's reports into dashboard buckets.
func (s *GormStore) StatusCounts(userID string) (Counts, error) {
	var c Counts

	base := func() *gorm.DB {
		return s.db.Model(&models.Report{}).
			Where("creator_id = ? OR receiver_id = ?", userID, userID)
	}

	if err := base().
		Where("status IN ?", []models.Status{models.StatusPendingReview, models.StatusPendingApproval}).
		Count(&c.Pending).Error; err != nil {
		return c, err
	}
	if err := base().Where("status = ?", models.StatusCompleted).Count(&c.Completed).Error; err != nil {
		return c, err
	}
	if err := base().Where("status = ?", models.StatusAborted).Count(&c.Aborted).Error; err != nil {
		return c, err
	}
	return c, nil
}

// AppendLog writes one audit entry. Logs are append-only; there is no
// update or delete path anywhere in this package.
func (s *GormStore) AppendLog(l *models.Log) error {
	return appendLog(s.db, l)
}

func appendLog(tx *gorm.DB, l *models.Log) error {
	if l.EventID == "" {
		l.EventID = uuid.NewString()
	}
	return tx.Create(l).Error
}

// ListLogsByReport returns a report's audit trail in write order.
func (s *GormStore) ListLogsByReport(reportID uint64) ([]models.Log, error) {
	var logs []models.Log
	if err := s.db.Where("report_id = ?", reportID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetUser fetches one user by id.
func (s *GormStore) GetUser(id string) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("user %s not found", id)
		}
		return nil, err
	}
	return &u, nil
}

// GetUserWithPartner fetches a user and their fixed counterparty.
func (s *GormStore) GetUserWithPartner(id string) (*models.User, *models.User, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return nil, nil, err
	}
	partner, err := s.GetUser(u.PartnerID)
	if err != nil {
		return nil, nil, err
	}
	return u, partner, nil
}

// AddCalendarEvent persists one follow-up event.
func (s *GormStore) AddCalendarEvent(ev *models.CalendarEvent) error {
	return s.db.Create(ev).Error
}

// ListCalendarEvents returns a user's events, soonest first.
func (s *GormStore) ListCalendarEvents(userID string) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := s.db.Where("user_id = ?", userID).Order("starts_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
