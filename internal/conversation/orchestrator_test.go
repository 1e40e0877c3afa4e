package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P3dr7/SDR-IA/internal/agenda"
	"github.com/P3dr7/SDR-IA/internal/crm"
)

// scriptedSession replays a fixed sequence of replies and records every
// input it receives.
type scriptedSession struct {
	replies []SessionReply
	inputs  []SessionInput
	sendErr error
}

func (s *scriptedSession) Send(_ context.Context, in SessionInput) (SessionReply, error) {
	s.inputs = append(s.inputs, in)
	if s.sendErr != nil {
		return SessionReply{}, s.sendErr
	}
	if len(s.replies) == 0 {
		return SessionReply{Text: "fallback"}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type scriptedClient struct {
	session  *scriptedSession
	startErr error
	started  int
}

func (c *scriptedClient) StartSession(_ context.Context) (DialogueSession, error) {
	c.started++
	if c.startErr != nil {
		return nil, c.startErr
	}
	return c.session, nil
}

type fakeLeads struct {
	calls  []crm.Lead
	result *crm.UpsertResult
	err    error
}

func (f *fakeLeads) UpsertLead(_ context.Context, lead crm.Lead) (*crm.UpsertResult, error) {
	f.calls = append(f.calls, lead)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSlots struct {
	slots []agenda.Slot
	err   error
	calls int
}

func (f *fakeSlots) AvailableSlots(_ context.Context) ([]agenda.Slot, error) {
	f.calls++
	return f.slots, f.err
}

type fakeBooker struct {
	calls   []agenda.BookingRequest
	meeting *agenda.Meeting
	err     error
}

func (f *fakeBooker) BookMeeting(_ context.Context, req agenda.BookingRequest) (*agenda.Meeting, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.meeting, nil
}

func newTestOrchestrator(t *testing.T, client DialogueClient, leads LeadUpserter, slots SlotLister, booker MeetingBooker) *Orchestrator {
	t.Helper()
	store := NewInMemorySessionStore(0, nil)
	t.Cleanup(store.Close)
	return NewOrchestrator(OrchestratorOptions{
		Dialogues: client,
		Sessions:  store,
		Leads:     leads,
		Slots:     slots,
		Booker:    booker,
	})
}

func TestHandleMessagePlainTextReply(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{Text: "Hi! I'm the SDR assistant. How can I help?"},
	}}
	client := &scriptedClient{session: session}
	o := newTestOrchestrator(t, client, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	id, reply, err := o.HandleMessage(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "Hi! I'm the SDR assistant. How can I help?", reply)
	require.Len(t, session.inputs, 1)
	assert.Equal(t, "hello", session.inputs[0].Text)
	assert.Nil(t, session.inputs[0].ToolResult)
}

func TestHandleMessageReusesConversation(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{Text: "first"},
		{Text: "second"},
	}}
	client := &scriptedClient{session: session}
	o := newTestOrchestrator(t, client, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	id1, _, err := o.HandleMessage(context.Background(), "", "hello")
	require.NoError(t, err)
	id2, reply, err := o.HandleMessage(context.Background(), id1, "again")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, "second", reply)
	assert.Equal(t, 1, client.started, "second message must not start a new dialogue")
}

func TestHandleMessageUnknownConversation(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{session: &scriptedSession{}}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	_, _, err := o.HandleMessage(context.Background(), "no-such-id", "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestHandleMessageEmptyMessage(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedClient{session: &scriptedSession{}}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	_, _, err := o.HandleMessage(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandleMessageRegisterLeadFlow(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: RegisterLeadCall{
			Name: "Ana", Email: "ana@acme.com", Company: "Acme",
			Need: "automation", InterestConfirmed: true,
		}},
		{Text: "Registered! Let me fetch some slots."},
	}}
	leads := &fakeLeads{result: &crm.UpsertResult{
		Action: crm.ActionCreated, RecordID: "card_1", Timestamp: time.Now(),
	}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, leads, &fakeSlots{}, &fakeBooker{})

	id, reply, err := o.HandleMessage(context.Background(), "", "yes, let's schedule")
	require.NoError(t, err)
	assert.Equal(t, "Registered! Let me fetch some slots.", reply)

	require.Len(t, leads.calls, 1)
	assert.Equal(t, "ana@acme.com", leads.calls[0].Email)
	require.NotNil(t, leads.calls[0].InterestConfirmed)
	assert.True(t, *leads.calls[0].InterestConfirmed)

	// The tool result goes back under the tool's name.
	require.Len(t, session.inputs, 2)
	result := session.inputs[1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, ToolRegisterLead, result.Name)
	assert.Equal(t, "created", result.Payload["action"])
	assert.Equal(t, "card_1", result.Payload["record_id"])

	// The record id sticks to the session for later scheduling.
	sess, ok := o.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, "card_1", sess.LeadRecordID)
}

func TestHandleMessageFetchSlots(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: FetchSlotsCall{}},
		{Text: "Here are the options."},
	}}
	slots := &fakeSlots{slots: []agenda.Slot{
		{Date: "2025-01-02", Time: "10:00", DateTime: "2025-01-02T10:00:00", Display: "Thursday, January 2 at 10:00"},
		{Date: "2025-01-02", Time: "14:00", DateTime: "2025-01-02T14:00:00", Display: "Thursday, January 2 at 14:00"},
	}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, slots, &fakeBooker{})

	_, reply, err := o.HandleMessage(context.Background(), "", "what times do you have?")
	require.NoError(t, err)
	assert.Equal(t, "Here are the options.", reply)
	assert.Equal(t, 1, slots.calls)

	result := session.inputs[1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Payload["total"])

	offered, ok := result.Payload["slots"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, offered, 2)
	assert.Equal(t, "2025-01-02T10:00:00", offered[0]["datetime"])
	assert.Equal(t, "Thursday, January 2 at 10:00", offered[0]["display"])
}

func TestHandleMessageScheduleReusesLeadRecord(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: RegisterLeadCall{Name: "Ana", Email: "ana@acme.com", Need: "automation", InterestConfirmed: true}},
		{ToolCall: FetchSlotsCall{}},
		{ToolCall: ScheduleMeetingCall{
			Date: "2025-01-02", Time: "10:00", Name: "Ana", Email: "ana@acme.com",
			Company: "Acme", Need: "automation",
		}},
		{Text: "Booked! See you then."},
	}}
	leads := &fakeLeads{result: &crm.UpsertResult{Action: crm.ActionCreated, RecordID: "card_1", Timestamp: time.Now()}}
	booker := &fakeBooker{meeting: &agenda.Meeting{
		ID: "evt_1", Link: "https://meet.example.com/abc", DateTime: "2025-01-02T10:00:00-03:00",
	}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, leads, &fakeSlots{}, booker)

	_, reply, err := o.HandleMessage(context.Background(), "", "book the 10am slot")
	require.NoError(t, err)
	assert.Equal(t, "Booked! See you then.", reply)

	// Exactly one CRM write: scheduleMeeting reuses the record from
	// registerLead instead of registering again.
	assert.Len(t, leads.calls, 1)
	require.Len(t, booker.calls, 1)
	assert.Equal(t, "card_1", booker.calls[0].LeadRecordID)

	// Qualification context travels with the booking so the calendar
	// event description can carry it.
	assert.Equal(t, "Acme", booker.calls[0].Company)
	assert.Equal(t, "automation", booker.calls[0].Need)
}

func TestHandleMessageScheduleRegistersImplicitly(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: ScheduleMeetingCall{Date: "2025-01-02", Time: "10:00", Name: "Ana", Email: "ana@acme.com"}},
		{Text: "Booked."},
	}}
	leads := &fakeLeads{result: &crm.UpsertResult{Action: crm.ActionCreated, RecordID: "card_9", Timestamp: time.Now()}}
	booker := &fakeBooker{meeting: &agenda.Meeting{ID: "evt_1", Link: "x", DateTime: "2025-01-02T10:00:00-03:00"}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, leads, &fakeSlots{}, booker)

	_, _, err := o.HandleMessage(context.Background(), "", "book it")
	require.NoError(t, err)

	// Choosing a slot is itself confirmation of interest.
	require.Len(t, leads.calls, 1)
	require.NotNil(t, leads.calls[0].InterestConfirmed)
	assert.True(t, *leads.calls[0].InterestConfirmed)
	require.Len(t, booker.calls, 1)
	assert.Equal(t, "card_9", booker.calls[0].LeadRecordID)
}

func TestHandleMessageScheduleAbortsWhenRegistrationFails(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: ScheduleMeetingCall{Date: "2025-01-02", Time: "10:00", Name: "Ana", Email: "ana@acme.com"}},
		{Text: "Sorry, I could not complete the booking."},
	}}
	leads := &fakeLeads{err: errors.New("crm down")}
	booker := &fakeBooker{meeting: &agenda.Meeting{ID: "evt_1"}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, leads, &fakeSlots{}, booker)

	_, reply, err := o.HandleMessage(context.Background(), "", "book it")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I could not complete the booking.", reply)

	// No meeting without a registered lead.
	assert.Empty(t, booker.calls)

	result := session.inputs[1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, true, result.Payload["error"])
	assert.Contains(t, result.Payload["message"], "meeting not booked")
}

func TestHandleMessageToolErrorFedBack(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: FetchSlotsCall{}},
		{Text: "Sorry, the calendar is unavailable right now."},
	}}
	slots := &fakeSlots{err: errors.New("calendar exploded")}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, slots, &fakeBooker{})

	_, reply, err := o.HandleMessage(context.Background(), "", "what times do you have?")
	require.NoError(t, err, "adapter failures must not abort the conversation")
	assert.Equal(t, "Sorry, the calendar is unavailable right now.", reply)

	result := session.inputs[1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, true, result.Payload["error"])
}

func TestHandleMessageUnknownToolFedBack(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{
		{ToolCall: UnknownCall{Name: "deleteEverything", Args: map[string]interface{}{}}},
		{Text: "Let's stay on topic."},
	}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	_, reply, err := o.HandleMessage(context.Background(), "", "hack the planet")
	require.NoError(t, err)
	assert.Equal(t, "Let's stay on topic.", reply)

	result := session.inputs[1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, "deleteEverything", result.Name)
	assert.Equal(t, true, result.Payload["error"])
}

func TestHandleMessageLoopExhaustion(t *testing.T) {
	// The session asks for slots forever and never produces text.
	endless := make([]SessionReply, 20)
	for i := range endless {
		endless[i] = SessionReply{ToolCall: FetchSlotsCall{}}
	}
	session := &scriptedSession{replies: endless}
	slots := &fakeSlots{}
	store := NewInMemorySessionStore(0, nil)
	t.Cleanup(store.Close)
	o := NewOrchestrator(OrchestratorOptions{
		Dialogues:     &scriptedClient{session: session},
		Sessions:      store,
		Leads:         &fakeLeads{},
		Slots:         slots,
		Booker:        &fakeBooker{},
		MaxIterations: 5,
	})

	_, _, err := o.HandleMessage(context.Background(), "", "loop forever")
	assert.ErrorIs(t, err, ErrOrchestrationExhausted)
	assert.Equal(t, 5, slots.calls)
}

// stalledSession never answers; it waits for the caller's context to expire.
type stalledSession struct{}

func (stalledSession) Send(ctx context.Context, _ SessionInput) (SessionReply, error) {
	<-ctx.Done()
	return SessionReply{}, ctx.Err()
}

func TestHandleMessageBudgetExceeded(t *testing.T) {
	store := NewInMemorySessionStore(0, nil)
	t.Cleanup(store.Close)
	o := NewOrchestrator(OrchestratorOptions{
		Dialogues: staticClient{session: stalledSession{}},
		Sessions:  store,
		Leads:     &fakeLeads{},
		Slots:     &fakeSlots{},
		Booker:    &fakeBooker{},
		Budget:    10 * time.Millisecond,
	})

	_, _, err := o.HandleMessage(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrOrchestrationExhausted,
		"blowing the wall-clock budget is exhaustion, not a transport failure")
}

func TestHandleMessageDialogueErrorPropagates(t *testing.T) {
	session := &scriptedSession{sendErr: errors.New("upstream 500")}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	_, _, err := o.HandleMessage(context.Background(), "", "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrchestrationExhausted)
}

func TestEndConversation(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{{Text: "hi"}}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	id, _, err := o.HandleMessage(context.Background(), "", "hello")
	require.NoError(t, err)

	require.NoError(t, o.EndConversation(id))
	assert.ErrorIs(t, o.EndConversation(id), ErrConversationNotFound)

	_, _, err = o.HandleMessage(context.Background(), id, "still there?")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestActiveConversations(t *testing.T) {
	session := &scriptedSession{replies: []SessionReply{{Text: "a"}, {Text: "b"}}}
	o := newTestOrchestrator(t, &scriptedClient{session: session}, &fakeLeads{}, &fakeSlots{}, &fakeBooker{})

	assert.Empty(t, o.ActiveConversations())
	id, _, err := o.HandleMessage(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, o.ActiveConversations())
}
