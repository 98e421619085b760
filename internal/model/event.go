package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/tally/internal/calendar"
)

// Event is a dated life event. Its next occurrence is computed on read.
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`           // YYYY-MM-DD
	Time      string `json:"time,omitempty"` // HH:MM, optional
	Recurring bool   `json:"recurring"`
}

type eventInput struct {
	Title string `validate:"required,max=80"`
	Date  string `validate:"required,datetime=2006-01-02"`
	Time  string `validate:"omitempty,datetime=15:04"`
}

// NewEvent validates the input and returns an event with a fresh id.
func NewEvent(title, date, clock string, recurring bool) (Event, error) {
	if err := validate.Struct(eventInput{Title: title, Date: date, Time: clock}); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	return Event{
		ID:        uuid.NewString(),
		Title:     title,
		Date:      date,
		Time:      clock,
		Recurring: recurring,
	}, nil
}

// NextOccurrence returns the next date the event falls on. ok is false when
// the stored date cannot be parsed.
func (e Event) NextOccurrence(today time.Time) (next time.Time, ok bool) {
	origin, err := calendar.ParseDateKey(e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return calendar.NextOccurrence(origin, e.Recurring, today), true
}

// DaysUntil returns days until the next occurrence; negative when a one-time
// event is overdue.
func (e Event) DaysUntil(today time.Time) (days int, ok bool) {
	next, ok := e.NextOccurrence(today)
	if !ok {
		return 0, false
	}
	return calendar.DaysBetween(today, next), true
}
