package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/P3dr7/SDR-IA/pkg/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var crmTracer = otel.Tracer("sdria.internal.crm")

// simulatedDuplicateEmail triggers the updated branch in simulated mode so
// dedup behavior stays exercisable without external credentials.
const simulatedDuplicateEmail = "duplicate@example.com"

const simulatedDuplicateRecordID = "sim_card_12345"

// cardGateway is the subset of Client the adapter needs. Tests substitute a fake.
type cardGateway interface {
	Configured() bool
	SearchCardsPage(ctx context.Context, after string) (*CardsPage, error)
	CreateCard(ctx context.Context, fields []FieldInput) (*Card, error)
	UpdateCardFields(ctx context.Context, cardID string, fields []FieldInput) error
}

// fieldResolver resolves the logical-to-external field mapping.
type fieldResolver interface {
	ResolveFieldMapping(ctx context.Context) (Mapping, error)
}

// Adapter performs idempotent lead upserts against the external CRM, keyed
// by normalized email.
type Adapter struct {
	gateway  cardGateway
	resolver fieldResolver
	logger   *logging.Logger
	now      func() time.Time
}

// NewAdapter creates a CRM adapter.
func NewAdapter(gateway cardGateway, resolver fieldResolver, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		gateway:  gateway,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail folds an email to its dedup key form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertLead creates or updates the lead record identified by the lead's
// email. At most one external record exists per email.
func (a *Adapter) UpsertLead(ctx context.Context, lead Lead) (*UpsertResult, error) {
	ctx, span := crmTracer.Start(ctx, "crm.upsert_lead")
	defer span.End()

	email := NormalizeEmail(lead.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	span.SetAttributes(attribute.String("sdria.lead_email", email))

	mapping, err := a.resolver.ResolveFieldMapping(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if mapping == nil {
		return a.simulatedUpsert(email), nil
	}

	existing, err := a.findCardByEmail(ctx, mapping, email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if existing != nil {
		// The email is the dedup key; rewriting it on update is a no-op.
		fields := prepareFields(lead, mapping, true)
		if len(fields) == 0 {
			return &UpsertResult{
				Action:    ActionNoChanges,
				RecordID:  existing.ID,
				Timestamp: a.now().UTC(),
				Message:   "lead already up to date",
			}, nil
		}
		if err := a.gateway.UpdateCardFields(ctx, existing.ID, fields); err != nil {
			span.RecordError(err)
			return nil, err
		}
		a.logger.Info("lead updated", "record_id", existing.ID, "email", email)
		return &UpsertResult{
			Action:    ActionUpdated,
			RecordID:  existing.ID,
			Timestamp: a.now().UTC(),
			Message:   "lead updated",
		}, nil
	}

	fields := prepareFields(lead, mapping, false)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no lead fields are mapped on the pipe", ErrSchemaUnavailable)
	}
	card, err := a.gateway.CreateCard(ctx, fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	a.logger.Info("lead created", "record_id", card.ID, "email", email)
	return &UpsertResult{
		Action:    ActionCreated,
		RecordID:  card.ID,
		Timestamp: a.now().UTC(),
		Message:   "lead registered",
	}, nil
}

// AttachMeeting records the meeting link and datetime on an existing lead
// record. Missing meeting fields are not an error: attaching meeting info
// must never abort a successful booking.
func (a *Adapter) AttachMeeting(ctx context.Context, recordID, link, datetime string) (string, error) {
	ctx, span := crmTracer.Start(ctx, "crm.attach_meeting")
	defer span.End()
	span.SetAttributes(attribute.String("sdria.record_id", recordID))

	mapping, err := a.resolver.ResolveFieldMapping(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if mapping == nil {
		a.logger.Info("simulated meeting attach", "record_id", recordID)
		return "meeting attached (simulated)", nil
	}

	var fields []FieldInput
	if ref, ok := mapping[FieldMeetingLink]; ok {
		fields = append(fields, FieldInput{FieldID: ref.ID, FieldValue: link})
	}
	if ref, ok := mapping[FieldMeetingDate]; ok {
		fields = append(fields, FieldInput{FieldID: ref.ID, FieldValue: datetime})
	}
	if len(fields) == 0 {
		a.logger.Warn("pipe has no meeting fields configured", "record_id", recordID)
		return "no meeting fields configured on the pipe", nil
	}

	if err := a.gateway.UpdateCardFields(ctx, recordID, fields); err != nil {
		span.RecordError(err)
		return "", err
	}
	return "meeting attached to lead record", nil
}

func (a *Adapter) simulatedUpsert(email string) *UpsertResult {
	if email == simulatedDuplicateEmail {
		a.logger.Info("simulated lead update", "email", email)
		return &UpsertResult{
			Action:    ActionUpdated,
			RecordID:  simulatedDuplicateRecordID,
			Timestamp: a.now().UTC(),
			Message:   "lead updated (simulated)",
			Simulated: true,
		}
	}
	id := "sim_card_" + uuid.NewString()
	a.logger.Info("simulated lead create", "email", email, "record_id", id)
	return &UpsertResult{
		Action:    ActionCreated,
		RecordID:  id,
		Timestamp: a.now().UTC(),
		Message:   "lead registered (simulated)",
		Simulated: true,
	}
}

// findCardByEmail pages through the full card set looking for a record whose
// mapped email field equals the normalized email.
func (a *Adapter) findCardByEmail(ctx context.Context, mapping Mapping, email string) (*Card, error) {
	emailRef, ok := mapping[FieldEmail]
	if !ok {
		// Without a mapped email field there is nothing to dedup against.
		a.logger.Warn("pipe has no email field; skipping dedup lookup")
		return nil, nil
	}

	cursor := ""
	for {
		page, err := a.gateway.SearchCardsPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for i := range page.Cards {
			card := page.Cards[i]
			for _, f := range card.Fields {
				if f.Field.ID == emailRef.ID && NormalizeEmail(f.Value) == email {
					return &card, nil
				}
			}
		}
		if !page.HasNextPage {
			return nil, nil
		}
		cursor = page.EndCursor
	}
}

// prepareFields maps the supplied lead values onto mapped external fields,
// skipping anything unset or unmapped. On updates the email field is skipped.
func prepareFields(lead Lead, mapping Mapping, isUpdate bool) []FieldInput {
	var fields []FieldInput

	add := func(logical, value string) {
		if value == "" {
			return
		}
		if ref, ok := mapping[logical]; ok {
			fields = append(fields, FieldInput{FieldID: ref.ID, FieldValue: value})
		}
	}

	add(FieldName, lead.Name)
	if !isUpdate {
		add(FieldEmail, lead.Email)
	}
	add(FieldCompany, lead.Company)
	add(FieldNeed, lead.Need)

	if lead.InterestConfirmed != nil {
		if ref, ok := mapping[FieldInterestConfirmed]; ok {
			value := "No"
			if *lead.InterestConfirmed {
				value = "Yes"
			}
			fields = append(fields, FieldInput{FieldID: ref.ID, FieldValue: value})
		}
	}
	return fields
}
