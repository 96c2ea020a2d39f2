package models

import (
	"time"
)

// LogAction tags one audit trail entry.
type LogAction string

const (
	LogCreated    LogAction = "created"
	LogViewed     LogAction = "viewed"
	LogUpdated    LogAction = "updated"
	LogSubmitted  LogAction = "submitted"
	LogReviewed   LogAction = "reviewed"
	LogApproved   LogAction = "approved"
	LogDenied     LogAction = "denied"
	LogAborted    LogAction = "aborted"
	LogReplicated LogAction = "replicated"
)

// Log is the append-only audit trail. Rows are written as a side effect of
// every report-touching operation and are never updated or deleted.
type Log struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	EventID   string    `gorm:"type:char(36);not null;uniqueIndex"`
	ReportID  uint64    `gorm:"not null;index"`
	UserID    string    `gorm:"type:char(36);not null;index"`
	Action    LogAction `gorm:"size:32;not null;index"`
	Details   JSON      `gorm:"type:json"`
	CreatedAt time.Time
}

// TableName overrides the table name for Log
func (Log) TableName() string {
	return "tps_logs"
}
