package conversation

import "context"

// SessionInput is one turn's input to the dialogue session: plain user text
// on the first loop iteration, a tool result on subsequent ones.
type SessionInput struct {
	Text       string
	ToolResult *ToolResult
}

// ToolResult is the structured outcome of a dispatched tool invocation, fed
// back to the model under the tool's name.
type ToolResult struct {
	Name    string
	Payload map[string]interface{}
}

// SessionReply is the model's turn: either final text or one tool call.
// When the model emits a tool call alongside text, the text is discarded.
type SessionReply struct {
	Text     string
	ToolCall ToolCall
}

// DialogueSession is the stateful conversation context held by the LLM
// provider: message history plus the bound tool schema.
type DialogueSession interface {
	Send(ctx context.Context, in SessionInput) (SessionReply, error)
}

// DialogueClient starts new dialogue sessions with the fixed system
// instruction and tool declarations already bound.
type DialogueClient interface {
	StartSession(ctx context.Context) (DialogueSession, error)
}
