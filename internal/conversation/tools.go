package conversation

import (
	"github.com/google/generative-ai-go/genai"
)

// Declared tool names. Anything else the model asks for is an UnknownCall.
const (
	ToolRegisterLead        = "registerLead"
	ToolFetchAvailableSlots = "fetchAvailableSlots"
	ToolScheduleMeeting     = "scheduleMeeting"
)

// ToolCall is the closed set of tool invocations the orchestrator can
// dispatch. The variants carry typed arguments; UnknownCall covers
// out-of-band model output.
type ToolCall interface {
	ToolName() string
}

// RegisterLeadCall upserts the lead in the CRM.
type RegisterLeadCall struct {
	Name              string
	Email             string
	Company           string
	Need              string
	InterestConfirmed bool
}

func (RegisterLeadCall) ToolName() string { return ToolRegisterLead }

// FetchSlotsCall lists offerable meeting slots. No arguments.
type FetchSlotsCall struct{}

func (FetchSlotsCall) ToolName() string { return ToolFetchAvailableSlots }

// ScheduleMeetingCall books the chosen slot.
type ScheduleMeetingCall struct {
	Date    string
	Time    string
	Name    string
	Email   string
	Company string
	Need    string
}

func (ScheduleMeetingCall) ToolName() string { return ToolScheduleMeeting }

// UnknownCall is a model-requested tool outside the declared set.
type UnknownCall struct {
	Name string
	Args map[string]interface{}
}

func (c UnknownCall) ToolName() string { return c.Name }

// ParseToolCall decodes a raw function call into its typed variant.
func ParseToolCall(name string, args map[string]interface{}) ToolCall {
	switch name {
	case ToolRegisterLead:
		return RegisterLeadCall{
			Name:              stringArg(args, "name"),
			Email:             stringArg(args, "email"),
			Company:           stringArg(args, "company"),
			Need:              stringArg(args, "need"),
			InterestConfirmed: boolArg(args, "interest_confirmed"),
		}
	case ToolFetchAvailableSlots:
		return FetchSlotsCall{}
	case ToolScheduleMeeting:
		return ScheduleMeetingCall{
			Date:    stringArg(args, "date"),
			Time:    stringArg(args, "time"),
			Name:    stringArg(args, "name"),
			Email:   stringArg(args, "email"),
			Company: stringArg(args, "company"),
			Need:    stringArg(args, "need"),
		}
	default:
		return UnknownCall{Name: name, Args: args}
	}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]interface{}, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// toolDeclarations is the fixed function schema bound to every dialogue
// session.
func toolDeclarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        ToolRegisterLead,
			Description: "Registers or updates a lead in the CRM. Call this whenever name, email and need have been collected, regardless of interest. Set interest_confirmed to true only if the lead explicitly confirmed interest in scheduling a meeting.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {
						Type:        genai.TypeString,
						Description: "Full name of the lead",
					},
					"email": {
						Type:        genai.TypeString,
						Description: "Email of the lead, used to avoid duplicates",
					},
					"company": {
						Type:        genai.TypeString,
						Description: "Company name (may be empty if not provided)",
					},
					"need": {
						Type:        genai.TypeString,
						Description: "The need, pain point or problem the lead wants to solve",
					},
					"interest_confirmed": {
						Type:        genai.TypeBoolean,
						Description: "true ONLY if the lead EXPLICITLY confirmed interest in scheduling a meeting. false otherwise.",
					},
				},
				Required: []string{"name", "email", "need", "interest_confirmed"},
			},
		},
		{
			Name:        ToolFetchAvailableSlots,
			Description: "Fetches the available meeting slots on the calendar",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			},
		},
		{
			Name:        ToolScheduleMeeting,
			Description: "Schedules a meeting with the lead at a specific slot. Use ONLY after the lead picked one of the slots returned by fetchAvailableSlots.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"date": {
						Type:        genai.TypeString,
						Description: "Meeting date in YYYY-MM-DD format (example: 2025-11-10)",
					},
					"time": {
						Type:        genai.TypeString,
						Description: "Meeting time in HH:MM format (example: 14:00)",
					},
					"name": {
						Type:        genai.TypeString,
						Description: "Name of the lead (same name used in registerLead)",
					},
					"email": {
						Type:        genai.TypeString,
						Description: "Email of the lead (same email used in registerLead)",
					},
					"company": {
						Type:        genai.TypeString,
						Description: "Company of the lead, if known",
					},
					"need": {
						Type:        genai.TypeString,
						Description: "Need of the lead, if known",
					},
				},
				Required: []string{"date", "time", "name", "email"},
			},
		},
	}
}
