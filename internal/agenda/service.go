package agenda

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/internal/observability/metrics"
	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var agendaTracer = otel.Tracer("sdria.internal.agenda")

const (
	meetingDuration = 30 * time.Minute

	simulatedLinkBase = "https://meet.sdria.dev/"
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe  = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// MeetingAttacher records meeting metadata on the lead's CRM record.
type MeetingAttacher interface {
	AttachMeeting(ctx context.Context, recordID, link, datetime string) (string, error)
}

// Service computes availability and commits bookings. A nil provider puts
// the service in simulated mode.
type Service struct {
	provider CalendarProvider
	attacher MeetingAttacher
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
	loc      *time.Location
	now      func() time.Time
}

// NewService creates an agenda service. loc controls the local timezone of
// offered and booked slots.
func NewService(provider CalendarProvider, attacher MeetingAttacher, loc *time.Location, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		provider: provider,
		attacher: attacher,
		logger:   logger,
		metrics:  m,
		loc:      loc,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return "simulated"
	}
	return s.provider.Name()
}

// AvailableSlots returns offerable meeting slots. Provider failures degrade
// to the simulated schedule so availability always returns something
// bookable; the degradation is logged and counted, never silent.
func (s *Service) AvailableSlots(ctx context.Context) ([]Slot, error) {
	ctx, span := agendaTracer.Start(ctx, "agenda.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("sdria.calendar_provider", s.providerName()))

	now := s.now()
	if s.provider == nil {
		return SimulatedSlots(now), nil
	}

	from := startOfDay(now.AddDate(0, 0, 1))
	to := startOfDay(now.AddDate(0, 0, horizonDays+1))
	busy, err := s.provider.BusyIntervals(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("busy interval fetch failed; serving simulated slots",
			"provider", s.provider.Name(), "error", err)
		s.metrics.ObserveSimulatedFallback("availability")
		return SimulatedSlots(now), nil
	}
	return ListAvailableSlots(now, busy), nil
}

// BookMeeting validates the request, creates a 30-minute calendar event and
// best-effort attaches the meeting to the lead's CRM record. Provider
// failures degrade to a simulated meeting flagged as such.
func (s *Service) BookMeeting(ctx context.Context, req BookingRequest) (*Meeting, error) {
	ctx, span := agendaTracer.Start(ctx, "agenda.book_meeting")
	defer span.End()
	span.SetAttributes(
		attribute.String("sdria.calendar_provider", s.providerName()),
		attribute.String("sdria.meeting_date", req.Date),
	)

	start, err := s.validate(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	end := start.Add(meetingDuration)

	meeting := s.createMeeting(ctx, req, start, end)
	span.SetAttributes(attribute.Bool("sdria.simulated", meeting.Simulated))

	if req.LeadRecordID != "" && s.attacher != nil {
		meeting.LeadRecordID = req.LeadRecordID
		if _, err := s.attacher.AttachMeeting(ctx, req.LeadRecordID, meeting.Link, meeting.DateTime); err != nil {
			// Attach failures never fail a successful booking.
			s.logger.Warn("failed to attach meeting to lead record",
				"record_id", req.LeadRecordID, "meeting_id", meeting.ID, "error", err)
		}
	}
	return meeting, nil
}

// CancelMeeting cancels a previously booked meeting. Simulated meetings are
// acknowledged without an external call.
func (s *Service) CancelMeeting(ctx context.Context, meetingID string) error {
	ctx, span := agendaTracer.Start(ctx, "agenda.cancel_meeting")
	defer span.End()

	if s.provider == nil || strings.HasPrefix(meetingID, "sim_") {
		s.logger.Info("simulated meeting cancelled", "meeting_id", meetingID)
		return nil
	}
	if err := s.provider.CancelEvent(ctx, meetingID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: cancel %s: %v", ErrUpstream, meetingID, err)
	}
	s.logger.Info("meeting cancelled", "meeting_id", meetingID, "provider", s.provider.Name())
	return nil
}

func (s *Service) validate(req BookingRequest) (time.Time, error) {
	if !dateRe.MatchString(req.Date) {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, req.Date)
	}
	if !timeRe.MatchString(req.Time) {
		return time.Time{}, fmt.Errorf("%w: time %q must be HH:MM (24h)", ErrInvalidInput, req.Time)
	}
	if !emailRe.MatchString(strings.TrimSpace(req.Email)) {
		return time.Time{}, fmt.Errorf("%w: email %q is malformed", ErrInvalidInput, req.Email)
	}
	// The regex admits impossible dates like 2025-13-40; the parse catches them.
	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q is not a valid datetime", ErrInvalidInput, req.Date, req.Time)
	}
	return start, nil
}

func (s *Service) createMeeting(ctx context.Context, req BookingRequest, start, end time.Time) *Meeting {
	if s.provider == nil {
		s.logger.Info("simulated booking", "email", req.Email, "start", start)
		return s.simulatedMeeting(start, "meeting scheduled (simulated)")
	}

	created, err := s.provider.CreateEvent(ctx, Event{
		Summary:       "Sales Meeting - " + req.Name,
		Description:   eventDescription(req),
		Start:         start,
		End:           end,
		AttendeeEmail: strings.TrimSpace(req.Email),
	})
	if err != nil {
		// Degrade so the conversation can still confirm something; the
		// outage stays visible in logs and metrics.
		s.logger.Error("calendar event creation failed; falling back to simulated meeting",
			"provider", s.provider.Name(), "error", err)
		s.metrics.ObserveSimulatedFallback("booking")
		s.metrics.ObserveBooking(s.provider.Name(), "fallback")
		return s.simulatedMeeting(start, "meeting scheduled (simulated fallback)")
	}

	s.metrics.ObserveBooking(s.provider.Name(), "created")
	link := created.JoinLink
	if link == "" {
		link = created.HTMLLink
	}
	return &Meeting{
		ID:       created.ID,
		Link:     link,
		DateTime: start.Format(time.RFC3339),
		EventURI: created.HTMLLink,
		Message:  "meeting scheduled",
	}
}

func (s *Service) simulatedMeeting(start time.Time, message string) *Meeting {
	id := "sim_meeting_" + uuid.NewString()
	return &Meeting{
		ID:        id,
		Link:      simulatedLinkBase + id,
		DateTime:  start.Format(time.RFC3339),
		Simulated: true,
		Message:   message,
	}
}

func eventDescription(req BookingRequest) string {
	var b strings.Builder
	b.WriteString("Meeting scheduled by the SDR agent\n\n")
	b.WriteString("Lead: " + req.Name + "\n")
	b.WriteString("Email: " + req.Email + "\n")
	b.WriteString("Company: " + orUnknown(req.Company) + "\n")
	b.WriteString("Need: " + orUnknown(req.Need))
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
