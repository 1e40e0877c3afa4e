package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarConfig carries the OAuth2 refresh-token credentials for the
// Google Calendar provider. The OAuth flow itself happens out of band; this
// provider only consumes its refresh token.
type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	CalendarID   string
	RedirectURL  string
}

// GoogleCalendarProvider books meetings as Google Calendar events with a
// Meet conference link and reads busy intervals via the FreeBusy API.
type GoogleCalendarProvider struct {
	svc        *calendar.Service
	calendarID string
	timezone   string
	logger     *logging.Logger
}

// NewGoogleCalendarProvider creates the provider, validating credentials.
func NewGoogleCalendarProvider(ctx context.Context, cfg GoogleCalendarConfig, timezone string, logger *logging.Logger) (*GoogleCalendarProvider, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" || strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, errors.New("agenda: google calendar oauth credentials are required")
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("agenda: create google calendar service: %w", err)
	}

	return &GoogleCalendarProvider{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     logger,
	}, nil
}

func (p *GoogleCalendarProvider) Name() string { return "google" }

// BusyIntervals queries FreeBusy for the configured calendar.
func (p *GoogleCalendarProvider) BusyIntervals(ctx context.Context, from, to time.Time) ([]BusyInterval, error) {
	resp, err := p.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: p.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy: %v", ErrUpstream, err)
	}

	cal, ok := resp.Calendars[p.calendarID]
	if !ok {
		return nil, nil
	}
	intervals := make([]BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent inserts the event with a Meet conference request and invites
// the attendee.
func (p *GoogleCalendarProvider) CreateEvent(ctx context.Context, ev Event) (*CreatedEvent, error) {
	event := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: p.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: p.timezone,
		},
		Attendees: []*calendar.EventAttendee{
			{Email: ev.AttendeeEmail},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: "meet-" + uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := p.svc.Events.Insert(p.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: insert event: %v", ErrUpstream, err)
	}

	p.logger.Info("google calendar event created",
		"event_id", created.Id, "meet_link", created.HangoutLink, "attendee", ev.AttendeeEmail)
	return &CreatedEvent{
		ID:       created.Id,
		JoinLink: created.HangoutLink,
		HTMLLink: created.HtmlLink,
	}, nil
}

// CancelEvent deletes the event and notifies attendees.
func (p *GoogleCalendarProvider) CancelEvent(ctx context.Context, eventID string) error {
	if err := p.svc.Events.Delete(p.calendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: delete event %s: %v", ErrUpstream, eventID, err)
	}
	return nil
}
