package workflow

import (
	"time"

	"github.com/pairworks/tpsflow/internal/formdata"
	"github.com/pairworks/tpsflow/internal/models"
)

// Notifier delivers a message to a party. Best-effort: the machine logs a
// delivery failure and moves on, it never fails a transition over one.
type Notifier interface {
	Send(to *models.User, subject, body string) error
}

// Calendar schedules a follow-up event for a user. Same best-effort
// contract as Notifier.
type Calendar interface {
	AddEvent(userID string, reportID uint64, title string, startsAt time.Time) error
}

// SnapshotRenderer produces the filled-PDF artifact for a completed report.
type SnapshotRenderer interface {
	Render(r *models.Report, creator, receiver *models.User, data formdata.Map) ([]byte, error)
}

// SnapshotStore persists rendered snapshots by report id.
type SnapshotStore interface {
	Save(reportID uint64, b []byte) (string, error)
	Retrieve(reportID uint64) ([]byte, error)
}
