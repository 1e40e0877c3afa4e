package conversation

import "errors"

var (
	// ErrConversationNotFound is returned when a supplied conversation id
	// has no live session.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyMessage is returned when an inbound message carries no text.
	ErrEmptyMessage = errors.New("message is required")

	// ErrOrchestrationExhausted is returned when the tool-calling loop hits
	// its iteration cap or wall-clock budget without a text reply.
	ErrOrchestrationExhausted = errors.New("tool-calling loop exhausted")

	// ErrUnknownTool marks a model-requested tool name outside the declared
	// set. It is packaged as a tool result, never surfaced to the caller.
	ErrUnknownTool = errors.New("unknown tool requested")
)
