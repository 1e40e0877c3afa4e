package agenda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	busy          []BusyInterval
	busyErr       error
	created       []Event
	createErr     error
	cancelled     []string
	cancelErr     error
	busyCalls     int
	createdResult *CreatedEvent
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) BusyIntervals(_ context.Context, _, _ time.Time) ([]BusyInterval, error) {
	f.busyCalls++
	return f.busy, f.busyErr
}

func (f *fakeProvider) CreateEvent(_ context.Context, ev Event) (*CreatedEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, ev)
	if f.createdResult != nil {
		return f.createdResult, nil
	}
	return &CreatedEvent{ID: "evt_1", JoinLink: "https://meet.example/evt_1", HTMLLink: "https://cal.example/evt_1"}, nil
}

func (f *fakeProvider) CancelEvent(_ context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeAttacher struct {
	calls []string
	err   error
}

func (f *fakeAttacher) AttachMeeting(_ context.Context, recordID, link, datetime string) (string, error) {
	f.calls = append(f.calls, recordID)
	return "attached", f.err
}

func newTestService(provider CalendarProvider, attacher MeetingAttacher) *Service {
	s := NewService(provider, attacher, time.UTC, nil, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func validRequest() BookingRequest {
	return BookingRequest{
		Date:         "2025-01-02",
		Time:         "10:00",
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		Company:      "Analytical Engines",
		Need:         "process automation",
		LeadRecordID: "card_9",
	}
}

func TestAvailableSlotsSimulatedWithoutProvider(t *testing.T) {
	s := newTestService(nil, nil)

	slots, err := s.AvailableSlots(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
	assert.LessOrEqual(t, len(slots), maxSimulatedSlots)
}

func TestAvailableSlotsUsesProviderBusyData(t *testing.T) {
	provider := &fakeProvider{busy: []BusyInterval{{
		Start: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 2, 11, 0, 0, 0, time.UTC),
	}}}
	s := newTestService(provider, nil)

	slots, err := s.AvailableSlots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.busyCalls)
	for _, slot := range slots {
		assert.False(t, slot.Date == "2025-01-02" && slot.Time == "10:00")
	}
}

func TestAvailableSlotsFallsBackOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{busyErr: errors.New("calendar unreachable")}
	s := newTestService(provider, nil)

	slots, err := s.AvailableSlots(context.Background())
	require.NoError(t, err, "availability must always return something bookable")
	assert.NotEmpty(t, slots)
	assert.LessOrEqual(t, len(slots), maxSimulatedSlots)
}

func TestBookMeetingRejectsInvalidInputBeforeAnyCall(t *testing.T) {
	provider := &fakeProvider{}
	s := newTestService(provider, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
	}{
		{"impossible date", func(r *BookingRequest) { r.Date = "2025-13-40" }},
		{"bad date format", func(r *BookingRequest) { r.Date = "02/01/2025" }},
		{"bad time", func(r *BookingRequest) { r.Time = "25:99" }},
		{"bad email", func(r *BookingRequest) { r.Email = "not-an-email" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := s.BookMeeting(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Empty(t, provider.created, "no external call may happen for invalid input")
}

func TestBookMeetingCreatesThirtyMinuteEvent(t *testing.T) {
	provider := &fakeProvider{}
	attacher := &fakeAttacher{}
	s := newTestService(provider, attacher)

	meeting, err := s.BookMeeting(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, provider.created, 1)
	ev := provider.created[0]
	assert.Equal(t, 30*time.Minute, ev.End.Sub(ev.Start))
	assert.Equal(t, "ada@example.com", ev.AttendeeEmail)
	assert.Contains(t, ev.Summary, "Ada Lovelace")

	assert.Equal(t, "evt_1", meeting.ID)
	assert.Equal(t, "https://meet.example/evt_1", meeting.Link)
	assert.False(t, meeting.Simulated)
	assert.Equal(t, "card_9", meeting.LeadRecordID)
	assert.Equal(t, []string{"card_9"}, attacher.calls)
}

func TestBookMeetingFallsBackToSimulatedOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{createErr: errors.New("insert failed")}
	s := newTestService(provider, nil)

	meeting, err := s.BookMeeting(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, meeting.Simulated, "fallback must be clearly flagged")
	assert.Contains(t, meeting.ID, "sim_meeting_")
	assert.Contains(t, meeting.Link, meeting.ID, "simulated link is derived from the id")
}

func TestBookMeetingAttachFailureDoesNotFailBooking(t *testing.T) {
	provider := &fakeProvider{}
	attacher := &fakeAttacher{err: errors.New("crm down")}
	s := newTestService(provider, attacher)

	meeting, err := s.BookMeeting(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "evt_1", meeting.ID)
}

func TestBookMeetingSimulatedWithoutProvider(t *testing.T) {
	s := newTestService(nil, nil)

	req := validRequest()
	req.LeadRecordID = ""
	meeting, err := s.BookMeeting(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, meeting.Simulated)
	assert.Empty(t, meeting.LeadRecordID)
}

func TestCancelMeeting(t *testing.T) {
	t.Run("simulated ids never hit the provider", func(t *testing.T) {
		provider := &fakeProvider{}
		s := newTestService(provider, nil)
		require.NoError(t, s.CancelMeeting(context.Background(), "sim_meeting_abc"))
		assert.Empty(t, provider.cancelled)
	})

	t.Run("real ids are cancelled upstream", func(t *testing.T) {
		provider := &fakeProvider{}
		s := newTestService(provider, nil)
		require.NoError(t, s.CancelMeeting(context.Background(), "evt_1"))
		assert.Equal(t, []string{"evt_1"}, provider.cancelled)
	})

	t.Run("provider failure surfaces as upstream error", func(t *testing.T) {
		provider := &fakeProvider{cancelErr: errors.New("nope")}
		s := newTestService(provider, nil)
		assert.ErrorIs(t, s.CancelMeeting(context.Background(), "evt_1"), ErrUpstream)
	})
}
