// Package workflow is the report state machine: the authoritative lifecycle
// draft -> pending_review -> pending_approval -> completed|aborted, with
// role-gated transitions and their side effects.
//
// Role checks compare user ids against the report's creator and receiver
// columns, never display names. At each status exactly one role owns
// writes: the creator while draft or pending_approval, the receiver while
// pending_review. Terminal reports are read-only to both parties; the only
// way forward is replication into a new draft.
package workflow

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/pdfform"
	"github.com/pairworks/tpsflow/internal/store"
	"github.com/pairworks/tpsflow/internal/types"
)

// Follow-up events land one week after completion.
const followUpDelay = 7 * 24 * time.Hour

const defaultFollowUpTitle = "TPS report follow-up"

// Machine executes transitions against the store and dispatches the
// per-transition side effects. One Machine is bound to one template's field
// set; construct it per template, never share parsed fields across loads.
type Machine struct {
	store     store.ReportStore
	fields    map[string]pdfform.Field
	notifier  Notifier
	calendar  Calendar
	renderer  SnapshotRenderer
	snapshots SnapshotStore
	now       func() time.Time
}

func New(s store.ReportStore, fields map[string]pdfform.Field, notifier Notifier, calendar Calendar, renderer SnapshotRenderer, snapshots SnapshotStore) *Machine {
	return &Machine{
		store:     s,
		fields:    fields,
		notifier:  notifier,
		calendar:  calendar,
		renderer:  renderer,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// Create opens a new draft report from the creator to their fixed partner.
func (m *Machine) Create(creatorID string, data formdata.Map) (*models.Report, error) {
	creator, partner, err := m.store.GetUserWithPartner(creatorID)
	if err != nil {
		return nil, err
	}

	if data == nil {
		data = formdata.Map{}
	} else {
		data = data.Clone()
	}
	if _, ok := data[formdata.KeyDate]; !ok {
		data[formdata.KeyDate] = formdata.String(m.now().Format("2006-01-02"))
	}
	if err := data.Validate(m.fields); err != nil {
		return nil, err
	}
	raw, err := data.JSON()
	if err != nil {
		return nil, err
	}

	r := &models.Report{
		CreatorID:  creator.ID,
		ReceiverID: partner.ID,
		Status:     models.StatusDraft,
		FormData:   models.JSON(raw),
	}
	l := newLog(0, creatorID, models.LogCreated, nil)
	if err := m.store.CreateReportLogged(r, l); err != nil {
		return nil, err
	}
	return r, nil
}

// Get fetches a report for one of its parties.
func (m *Machine) Get(userID string, reportID uint64) (*models.Report, error) {
	r, err := m.store.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if !r.IsParty(userID) {
		return nil, types.Forbidden("user is not a party to report %d", reportID)
	}
	return r, nil
}

// View fetches a report and records the access in the audit trail.
func (m *Machine) View(userID string, reportID uint64) (*models.Report, error) {
	r, err := m.Get(userID, reportID)
	if err != nil {
		return nil, err
	}
	if err := m.store.AppendLog(newLog(r.ID, userID, models.LogViewed, nil)); err != nil {
		return nil, err
	}
	return r, nil
}

// Logs returns a report's audit trail for one of its parties.
func (m *Machine) Logs(userID string, reportID uint64) ([]models.Log, error) {
	if _, err := m.Get(userID, reportID); err != nil {
		return nil, err
	}
	return m.store.ListLogsByReport(reportID)
}

// Save updates form values without changing status. Only the role that owns
// writes at the current status may save; the conditional update catches a
// status that moved between read and write.
func (m *Machine) Save(userID string, reportID uint64, updates formdata.Map) (*models.Report, error) {
	r, err := m.store.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if err := m.authorizeWrite(userID, r); err != nil {
		return nil, err
	}

	upd := *r
	if err := m.mergeFormData(&upd, updates); err != nil {
		return nil, err
	}

	l := newLog(r.ID, userID, models.LogUpdated, nil)
	if err := m.store.UpdateReportLogged(&upd, r.Status, l); err != nil {
		return nil, err
	}
	return &upd, nil
}

// Submit hands a draft to the receiver for review.
func (m *Machine) Submit(userID string, reportID uint64) (*models.Report, error) {
	r, err := m.transition(userID, reportID,
		models.StatusDraft, models.StatusPendingReview, models.LogSubmitted, nil, nil)
	if err != nil {
		return nil, err
	}

	creator, receiver, uerr := m.parties(r)
	if uerr == nil {
		m.notify(receiver, "TPS report submitted",
			creator.DisplayName+" sent you a report to review.")
	}
	return r, nil
}

// Review moves a report from pending_review to pending_approval. The
// receiver may attach their initials and fill receiver-side fields such as
// emotional_state and notes; everything submitted is schema-validated.
func (m *Machine) Review(userID string, reportID uint64, updates formdata.Map, initials string) (*models.Report, error) {
	r, err := m.transition(userID, reportID,
		models.StatusPendingReview, models.StatusPendingApproval, models.LogReviewed, nil,
		func(upd *models.Report) error {
			if err := m.mergeFormData(upd, updates); err != nil {
				return err
			}
			if s := strings.TrimSpace(initials); s != "" {
				upd.ReceiverInitials = s
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	creator, receiver, uerr := m.parties(r)
	if uerr == nil {
		m.notify(creator, "TPS report reviewed",
			receiver.DisplayName+" reviewed your report; it is ready for your approval.")
	}
	return r, nil
}

// Deny ends a pending_review report without completing it. The wording is
// deliberately neutral: a denial closes the cycle, it is not a sanction.
func (m *Machine) Deny(userID string, reportID uint64) (*models.Report, error) {
	r, err := m.transition(userID, reportID,
		models.StatusPendingReview, models.StatusAborted, models.LogDenied, nil, nil)
	if err != nil {
		return nil, err
	}

	creator, receiver, uerr := m.parties(r)
	if uerr == nil {
		m.notify(creator, "TPS report returned",
			receiver.DisplayName+" returned this report without completing it. You can replicate it into a fresh draft whenever you like.")
	}
	return r, nil
}

// Approve completes the report. Requires the creator's initials; once the
// transition has committed it renders the filled-PDF snapshot and schedules
// one follow-up calendar event per party. Snapshot, notification, and
// calendar failures are logged, never fatal. A lost compare-and-swap aborts
// before any side effect runs.
func (m *Machine) Approve(userID string, reportID uint64, initials string) (*models.Report, error) {
	initials = strings.TrimSpace(initials)
	if initials == "" {
		return nil, types.Validation("approval requires the creator's initials")
	}

	var creator, receiver *models.User
	r, err := m.transition(userID, reportID,
		models.StatusPendingApproval, models.StatusCompleted, models.LogApproved, nil,
		func(upd *models.Report) error {
			upd.CreatorInitials = initials

			var uerr error
			creator, receiver, uerr = m.parties(upd)
			return uerr
		})
	if err != nil {
		return nil, err
	}

	m.writeSnapshot(r, creator, receiver)

	m.notify(creator, "TPS report completed", "Your report with "+receiver.DisplayName+" is complete.")
	m.notify(receiver, "TPS report completed", "Your report with "+creator.DisplayName+" is complete.")

	title := defaultFollowUpTitle
	if data, derr := formdata.FromJSON([]byte(r.FormData)); derr == nil {
		if s := data.GetString(formdata.KeyDisplayTitle); s != "" {
			title = s + " follow-up"
		}
	}
	startsAt := m.now().Add(followUpDelay)
	m.addEvent(creator.ID, r.ID, title, startsAt)
	m.addEvent(receiver.ID, r.ID, title, startsAt)

	return r, nil
}

// Abort ends a pending_approval report without completing it.
func (m *Machine) Abort(userID string, reportID uint64) (*models.Report, error) {
	r, err := m.transition(userID, reportID,
		models.StatusPendingApproval, models.StatusAborted, models.LogAborted, nil, nil)
	if err != nil {
		return nil, err
	}

	creator, receiver, uerr := m.parties(r)
	if uerr == nil {
		m.notify(receiver, "TPS report closed",
			creator.DisplayName+" closed this report before completion.")
	}
	return r, nil
}

// Replicate copies a terminal report into a fresh draft owned by the same
// parties. The date restarts at today, emotional-state and initials are
// cleared, everything else carries over. The source report is untouched.
func (m *Machine) Replicate(userID string, reportID uint64) (*models.Report, error) {
	src, err := m.Get(userID, reportID)
	if err != nil {
		return nil, err
	}
	if !src.Status.Terminal() {
		return nil, types.Validation("only completed or aborted reports can be replicated; report %d is %s", src.ID, src.Status)
	}

	data, err := formdata.FromJSON([]byte(src.FormData))
	if err != nil {
		return nil, err
	}
	raw, err := data.ResetForReplication(m.now()).JSON()
	if err != nil {
		return nil, err
	}

	srcID := src.ID
	r := &models.Report{
		CreatorID:        src.CreatorID,
		ReceiverID:       src.ReceiverID,
		Status:           models.StatusDraft,
		FormData:         models.JSON(raw),
		ReplicatedFromID: &srcID,
	}
	l := newLog(0, userID, models.LogReplicated, map[string]any{"replicated_from": srcID})
	if err := m.store.CreateReportLogged(r, l); err != nil {
		return nil, err
	}
	return r, nil
}

// transition runs the fetch-authorize-mutate-persist cycle shared by every
// status change. The persisted update is conditional on the status the
// caller saw, so of two racing transitions exactly one wins; the loser gets
// a Conflict and must refetch.
func (m *Machine) transition(userID string, reportID uint64, from, to models.Status, action models.LogAction, details map[string]any, mutate func(*models.Report) error) (*models.Report, error) {
	r, err := m.store.GetReport(reportID)
	if err != nil {
		return nil, err
	}
	if err := m.authorizeWrite(userID, r); err != nil {
		return nil, err
	}
	if r.Status != from {
		return nil, types.Conflict("E_STATUS - report %d is %q, not %q; refetch and retry", r.ID, r.Status, from)
	}

	upd := *r
	upd.Status = to
	if mutate != nil {
		if err := mutate(&upd); err != nil {
			return nil, err
		}
	}

	l := newLog(r.ID, userID, action, details)
	if err := m.store.UpdateReportLogged(&upd, from, l); err != nil {
		return nil, err
	}
	return &upd, nil
}

func (m *Machine) authorizeWrite(userID string, r *models.Report) error {
	role := r.RoleOf(userID)
	if role == models.RoleNone {
		return types.Forbidden("user is not a party to report %d", r.ID)
	}
	if r.Status.Terminal() {
		return types.Forbidden("report %d is %s and can no longer change", r.ID, r.Status)
	}
	if role != r.Status.Writer() {
		return types.Forbidden("only the %s may act while report %d is %s", r.Status.Writer(), r.ID, r.Status)
	}
	return nil
}

// mergeFormData overlays validated updates onto the report's current
// values. Partial updates go through the same schema pass as full ones.
func (m *Machine) mergeFormData(r *models.Report, updates formdata.Map) error {
	if len(updates) == 0 {
		return nil
	}
	current, err := formdata.FromJSON([]byte(r.FormData))
	if err != nil {
		return err
	}
	for k, v := range updates {
		current[k] = v
	}
	if err := current.Validate(m.fields); err != nil {
		return err
	}
	raw, err := current.JSON()
	if err != nil {
		return err
	}
	r.FormData = models.JSON(raw)
	return nil
}

func (m *Machine) parties(r *models.Report) (*models.User, *models.User, error) {
	creator, err := m.store.GetUser(r.CreatorID)
	if err != nil {
		return nil, nil, err
	}
	receiver, err := m.store.GetUser(r.ReceiverID)
	if err != nil {
		return nil, nil, err
	}
	return creator, receiver, nil
}

// writeSnapshot renders and stores the filled PDF for a committed
// completion, then records the artifact's path on the report row. Nothing
// here runs before the completing transition has committed, so a lost
// compare-and-swap never leaves a stray snapshot behind. Failures leave
// the path empty and the snapshot stays unserved.
func (m *Machine) writeSnapshot(r *models.Report, creator, receiver *models.User) {
	if m.renderer == nil || m.snapshots == nil {
		return
	}
	data, err := formdata.FromJSON([]byte(r.FormData))
	if err != nil {
		log.Printf("Snapshot skipped for report %d: %v", r.ID, err)
		return
	}
	b, err := m.renderer.Render(r, creator, receiver, data)
	if err != nil {
		log.Printf("Snapshot render failed for report %d: %v", r.ID, err)
		return
	}
	path, err := m.snapshots.Save(r.ID, b)
	if err != nil {
		log.Printf("Snapshot save failed for report %d: %v", r.ID, err)
		return
	}
	if err := m.store.SetReportPDFPath(r.ID, path); err != nil {
		log.Printf("Snapshot path for report %d not recorded: %v", r.ID, err)
		return
	}
	r.PDFPath = path
}

func (m *Machine) notify(to *models.User, subject, body string) {
	if m.notifier == nil || to == nil {
		return
	}
	if err := m.notifier.Send(to, subject, body); err != nil {
		log.Printf("Notification to %s failed: %v", to.Email, err)
	}
}

func (m *Machine) addEvent(userID string, reportID uint64, title string, startsAt time.Time) {
	if m.calendar == nil {
		return
	}
	if err := m.calendar.AddEvent(userID, reportID, title, startsAt); err != nil {
		log.Printf("Calendar event for %s failed: %v", userID, err)
	}
}

func newLog(reportID uint64, userID string, action models.LogAction, details map[string]any) *models.Log {
	l := &models.Log{
		ReportID: reportID,
		UserID:   userID,
		Action:   action,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			l.Details = models.JSON(raw)
		}
	}
	return l
}
