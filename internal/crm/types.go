package crm

import "time"

// Logical field names of the internal lead schema. The schema resolver binds
// each of these to an external field id discovered from the pipe.
const (
	FieldName              = "name"
	FieldEmail             = "email"
	FieldCompany           = "company"
	FieldNeed              = "need"
	FieldInterestConfirmed = "interest_confirmed"
	FieldMeetingLink       = "meeting_link"
	FieldMeetingDate       = "meeting_date"
)

// Lead is the internal qualification record collected by the conversation.
type Lead struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Need    string `json:"need"`
	// InterestConfirmed is tri-state: nil means the lead was never asked.
	InterestConfirmed *bool `json:"interest_confirmed,omitempty"`
}

// Action describes the outcome of an upsert.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionNoChanges Action = "no_changes"
)

// UpsertResult is returned by Adapter.UpsertLead.
type UpsertResult struct {
	Action    Action    `json:"action"`
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Simulated bool      `json:"simulated,omitempty"`
}

// FieldRef identifies an external CRM field.
type FieldRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Mapping binds logical field names (and normalized external labels) to
// external field references.
type Mapping map[string]FieldRef

// PipeField is one field of the external pipe's start form.
type PipeField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// FieldInput is a single field value sent on create/update mutations.
type FieldInput struct {
	FieldID    string `json:"field_id"`
	FieldValue string `json:"field_value"`
}

// Card is an external CRM record.
type Card struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Fields    []CardField `json:"fields,omitempty"`
	CreatedAt string      `json:"created_at,omitempty"`
	UpdatedAt string      `json:"updated_at,omitempty"`
}

// CardField is a populated field on an existing card.
type CardField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Field struct {
		ID string `json:"id"`
	} `json:"field"`
}
