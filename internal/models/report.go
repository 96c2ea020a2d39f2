package models

import (
	"time"
)

// Status is the report lifecycle state. Transitions only ever move forward
// along draft -> pending_review -> pending_approval -> completed|aborted;
// reaching an earlier state again requires replicating into a new report.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusPendingApproval Status = "pending_approval"
	StatusCompleted       Status = "completed"
	StatusAborted         Status = "aborted"
)

// Valid reports whether s is one of the enumerated lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPendingApproval, StatusCompleted, StatusAborted:
		return true
	}
	return false
}

// Terminal reports whether s permits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Role identifies which party a user plays on a given report.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleReceiver Role = "receiver"
	RoleNone     Role = ""
)

// Writer returns the role that owns writes while the report sits in s.
// Terminal states have no writer.
func (s Status) Writer() Role {
	switch s {
	case StatusDraft, StatusPendingApproval:
		return RoleCreator
	case StatusPendingReview:
		return RoleReceiver
	}
	return RoleNone
}

// Report is the workflow document moving between the two parties.
type Report struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	CreatorID        string `gorm:"type:char(36);not null;index"`
	ReceiverID       string `gorm:"type:char(36);not null;index"`
	Status           Status `gorm:"size:32;not null;default:'draft';index"`
	FormData         JSON   `gorm:"type:json"`
	CreatorInitials  string `gorm:"size:16"`
	ReceiverInitials string `gorm:"size:16"`
	ReplicatedFromID *uint64
	PDFPath          string `gorm:"size:512"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName overrides the table name for Report
func (Report) TableName() string {
	return "tps_reports"
}

// RoleOf resolves a user's role on this report strictly by id comparison.
func (r *Report) RoleOf(userID string) Role {
	switch userID {
	case r.CreatorID:
		return RoleCreator
	case r.ReceiverID:
		return RoleReceiver
	}
	return RoleNone
}

// IsParty reports whether userID is the creator or the receiver.
func (r *Report) IsParty(userID string) bool {
	return r.RoleOf(userID) != RoleNone
}
