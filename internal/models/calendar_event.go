package models

import (
	"time"
)

// CalendarEvent is a scheduled follow-up created when a report completes.
// One row per party.
type CalendarEvent struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:char(36);not null;index"`
	ReportID  uint64 `gorm:"not null;index"`
	Title     string `gorm:"size:255;not null"`
	StartsAt  time.Time
	CreatedAt time.Time
}

// TableName overrides the table name for CalendarEvent
func (CalendarEvent) TableName() string {
	return "calendar_events"
}
