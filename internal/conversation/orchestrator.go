package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/P3dr7/SDR-IA/internal/agenda"
	"github.com/P3dr7/SDR-IA/internal/crm"
	"github.com/P3dr7/SDR-IA/internal/observability/metrics"
	"github.com/P3dr7/SDR-IA/pkg/logging"
)

var tracer = otel.Tracer("sdria.internal.conversation")

// LeadUpserter registers or updates a lead in the CRM.
type LeadUpserter interface {
	UpsertLead(ctx context.Context, lead crm.Lead) (*crm.UpsertResult, error)
}

// SlotLister produces the offerable meeting slots.
type SlotLister interface {
	AvailableSlots(ctx context.Context) ([]agenda.Slot, error)
}

// MeetingBooker books a meeting at a chosen slot.
type MeetingBooker interface {
	BookMeeting(ctx context.Context, req agenda.BookingRequest) (*agenda.Meeting, error)
}

// Orchestrator runs the tool-calling loop: it relays user messages to the
// dialogue session, dispatches the tool calls the model requests, feeds the
// results back, and returns the model's final text.
type Orchestrator struct {
	dialogues DialogueClient
	sessions  *InMemorySessionStore
	leads     LeadUpserter
	slots     SlotLister
	booker    MeetingBooker
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics

	maxIterations int
	budget        time.Duration
}

// OrchestratorOptions bundles the collaborators of an Orchestrator.
type OrchestratorOptions struct {
	Dialogues DialogueClient
	Sessions  *InMemorySessionStore
	Leads     LeadUpserter
	Slots     SlotLister
	Booker    MeetingBooker
	Logger    *logging.Logger
	Metrics   *metrics.ConversationMetrics

	// MaxIterations caps model turns per user message. Zero means the
	// default of 10.
	MaxIterations int
	// Budget is the wall-clock limit per user message. Zero means the
	// default of 60 seconds.
	Budget time.Duration
}

// NewOrchestrator wires an orchestrator from its options.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.Budget <= 0 {
		opts.Budget = 60 * time.Second
	}
	return &Orchestrator{
		dialogues:     opts.Dialogues,
		sessions:      opts.Sessions,
		leads:         opts.Leads,
		slots:         opts.Slots,
		booker:        opts.Booker,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		maxIterations: opts.MaxIterations,
		budget:        opts.Budget,
	}
}

// HandleMessage processes one user message for the given conversation and
// returns the conversation id and the assistant's reply. An empty
// conversationID starts a new conversation; an unknown one fails with
// ErrConversationNotFound.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, message string) (string, string, error) {
	if message == "" {
		return "", "", ErrEmptyMessage
	}

	sess, err := o.resolveSession(ctx, conversationID)
	if err != nil {
		return "", "", err
	}

	// One turn at a time per conversation. Concurrent sends for the same
	// id queue up here instead of interleaving dialogue history.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	o.sessions.Touch(sess)

	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	ctx, span := tracer.Start(ctx, "conversation.handle_message",
		trace.WithAttributes(attribute.String("conversation.id", sess.ID)))
	defer span.End()

	reply, err := o.runLoop(ctx, sess, message)
	if err != nil {
		return sess.ID, "", err
	}
	return sess.ID, reply, nil
}

func (o *Orchestrator) resolveSession(ctx context.Context, conversationID string) (*Session, error) {
	if conversationID != "" {
		sess, ok := o.sessions.Get(conversationID)
		if !ok {
			return nil, ErrConversationNotFound
		}
		return sess, nil
	}

	dialogue, err := o.dialogues.StartSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to start dialogue: %w", err)
	}
	sess := o.sessions.NewSession(dialogue)
	o.logger.Info("conversation started", "conversation_id", sess.ID)
	return sess, nil
}

func (o *Orchestrator) runLoop(ctx context.Context, sess *Session, message string) (string, error) {
	input := SessionInput{Text: message}

	for i := 0; i < o.maxIterations; i++ {
		reply, err := sess.Dialogue.Send(ctx, input)
		if err != nil {
			// The wall-clock budget is an exhaustion condition like the
			// iteration cap, not a transport failure.
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %v", ErrOrchestrationExhausted, err)
			}
			return "", err
		}

		if reply.ToolCall == nil {
			o.metrics.ObserveLoopIterations(i + 1)
			return reply.Text, nil
		}

		call := reply.ToolCall
		o.logger.Info("dispatching tool call",
			"conversation_id", sess.ID, "tool", call.ToolName(), "iteration", i+1)

		payload := o.dispatch(ctx, sess, call)
		input = SessionInput{ToolResult: &ToolResult{
			Name:    call.ToolName(),
			Payload: payload,
		}}
	}

	o.metrics.ObserveLoopIterations(o.maxIterations)
	o.logger.Error("tool loop exhausted", "conversation_id", sess.ID,
		"max_iterations", o.maxIterations)
	return "", ErrOrchestrationExhausted
}

// dispatch executes one tool call and packages the outcome for the model.
// Adapter failures never abort the conversation; they go back to the model
// as an error payload so it can apologize or retry.
func (o *Orchestrator) dispatch(ctx context.Context, sess *Session, call ToolCall) map[string]interface{} {
	ctx, span := tracer.Start(ctx, "conversation.dispatch_tool",
		trace.WithAttributes(attribute.String("tool.name", call.ToolName())))
	defer span.End()

	var (
		payload map[string]interface{}
		err     error
	)
	switch c := call.(type) {
	case RegisterLeadCall:
		payload, err = o.registerLead(ctx, sess, c)
	case FetchSlotsCall:
		payload, err = o.fetchSlots(ctx)
	case ScheduleMeetingCall:
		payload, err = o.scheduleMeeting(ctx, sess, c)
	case UnknownCall:
		err = fmt.Errorf("%w: %s", ErrUnknownTool, c.Name)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTool, call.ToolName())
	}

	status := "ok"
	if err != nil {
		status = "error"
		o.logger.Error("tool call failed",
			"conversation_id", sess.ID, "tool", call.ToolName(), "error", err)
		payload = map[string]interface{}{
			"error":   true,
			"message": err.Error(),
		}
	}
	o.metrics.ObserveToolDispatch(call.ToolName(), status)
	return payload
}

func (o *Orchestrator) registerLead(ctx context.Context, sess *Session, call RegisterLeadCall) (map[string]interface{}, error) {
	interest := call.InterestConfirmed
	result, err := o.leads.UpsertLead(ctx, crm.Lead{
		Name:              call.Name,
		Email:             call.Email,
		Company:           call.Company,
		Need:              call.Need,
		InterestConfirmed: &interest,
	})
	if err != nil {
		return nil, err
	}

	sess.LeadRecordID = result.RecordID
	return map[string]interface{}{
		"action":    string(result.Action),
		"record_id": result.RecordID,
		"timestamp": result.Timestamp.Format(time.RFC3339),
		"message":   result.Message,
	}, nil
}

func (o *Orchestrator) fetchSlots(ctx context.Context) (map[string]interface{}, error) {
	slots, err := o.slots.AvailableSlots(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]interface{}{
			"date":     s.Date,
			"time":     s.Time,
			"datetime": s.DateTime,
			"display":  s.Display,
		})
	}
	return map[string]interface{}{
		"total": len(slots),
		"slots": out,
	}, nil
}

// scheduleMeeting is a small saga: make sure the lead exists in the CRM
// first, then book. A failed implicit registration aborts the booking so a
// meeting never exists for an unregistered lead.
func (o *Orchestrator) scheduleMeeting(ctx context.Context, sess *Session, call ScheduleMeetingCall) (map[string]interface{}, error) {
	if sess.LeadRecordID == "" {
		interest := true
		result, err := o.leads.UpsertLead(ctx, crm.Lead{
			Name:              call.Name,
			Email:             call.Email,
			Company:           call.Company,
			Need:              call.Need,
			InterestConfirmed: &interest,
		})
		if err != nil {
			return nil, fmt.Errorf("lead registration failed, meeting not booked: %w", err)
		}
		sess.LeadRecordID = result.RecordID
	}

	meeting, err := o.booker.BookMeeting(ctx, agenda.BookingRequest{
		Date:         call.Date,
		Time:         call.Time,
		Name:         call.Name,
		Email:        call.Email,
		Company:      call.Company,
		Need:         call.Need,
		LeadRecordID: sess.LeadRecordID,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"meeting_id": meeting.ID,
		"link":       meeting.Link,
		"datetime":   meeting.DateTime,
		"simulated":  meeting.Simulated,
		"message":    meeting.Message,
	}, nil
}

// EndConversation removes a conversation from the store.
func (o *Orchestrator) EndConversation(conversationID string) error {
	if !o.sessions.Delete(conversationID) {
		return ErrConversationNotFound
	}
	o.logger.Info("conversation ended", "conversation_id", conversationID)
	return nil
}

// ActiveConversations lists the ids of live conversations.
func (o *Orchestrator) ActiveConversations() []string {
	return o.sessions.IDs()
}
