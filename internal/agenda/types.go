package agenda

import (
	"context"
	"time"
)

// Slot is a candidate meeting time offered to the lead. Computed on demand,
// never persisted.
type Slot struct {
	Date     string `json:"date"`     // YYYY-MM-DD
	Time     string `json:"time"`     // HH:MM
	DateTime string `json:"datetime"` // YYYY-MM-DDTHH:MM:SS
	Display  string `json:"display"`
}

// BusyInterval is an already-occupied window on the calendar.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// BookingRequest carries the lead's chosen slot and contact details.
type BookingRequest struct {
	Date         string
	Time         string
	Name         string
	Email        string
	Company      string
	Need         string
	LeadRecordID string
}

// Meeting is a committed booking.
type Meeting struct {
	ID           string `json:"meeting_id"`
	Link         string `json:"meeting_link"`
	DateTime     string `json:"meeting_datetime"` // ISO 8601
	LeadRecordID string `json:"lead_record_id,omitempty"`
	EventURI     string `json:"event_uri,omitempty"`
	Simulated    bool   `json:"simulated,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Event is the provider-neutral calendar event to create.
type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// CreatedEvent is the provider's record of a created event.
type CreatedEvent struct {
	ID       string
	JoinLink string
	HTMLLink string
}

// CalendarProvider abstracts the external calendar. Two interchangeable
// implementations exist (Google Calendar and Calendly), selected by static
// configuration. A nil provider means simulated mode.
type CalendarProvider interface {
	Name() string
	BusyIntervals(ctx context.Context, from, to time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error)
	CancelEvent(ctx context.Context, eventID string) error
}
