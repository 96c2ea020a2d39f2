// Package calendar realizes the follow-up event contract on the report
// store. Events are plain rows a client can list and render; there is no
// external calendar provider in play.
package calendar

import (
	"time"

	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/store"
	"github.com/pairworks/tpsflow/internal/types"
)

// Scheduler persists calendar events through the store.
type Scheduler struct {
	store store.ReportStore
}

func New(s store.ReportStore) *Scheduler {
	return &Scheduler{store: s}
}

func (c *Scheduler) AddEvent(userID string, reportID uint64, title string, startsAt time.Time) error {
	ev := &models.CalendarEvent{
		UserID:   userID,
		ReportID: reportID,
		Title:    title,
		StartsAt: startsAt,
	}
	if err := c.store.AddCalendarEvent(ev); err != nil {
		return types.Unavailable("calendar event write failed: %v", err)
	}
	return nil
}

// Upcoming lists a user's events.
func (c *Scheduler) Upcoming(userID string) ([]models.CalendarEvent, error) {
	return c.store.ListCalendarEvents(userID)
}
