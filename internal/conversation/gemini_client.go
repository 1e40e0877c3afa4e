package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements DialogueClient using Google's Gemini API with the
// SDR tool schema bound to every session.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a new Gemini dialogue client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// StartSession starts a fresh chat with empty history, the fixed system
// instruction and the declared tools.
func (c *GeminiClient) StartSession(_ context.Context) (DialogueSession, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SetTopK(40)
	model.SetMaxOutputTokens(2048)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
	model.Tools = []*genai.Tool{{FunctionDeclarations: toolDeclarations()}}

	return &geminiSession{chat: model.StartChat()}, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

type geminiSession struct {
	chat *genai.ChatSession
}

// Send forwards one turn to Gemini. Tool results go back as a
// FunctionResponse part under the originating tool's name.
func (s *geminiSession) Send(ctx context.Context, in SessionInput) (SessionReply, error) {
	var part genai.Part
	if in.ToolResult != nil {
		part = genai.FunctionResponse{
			Name:     in.ToolResult.Name,
			Response: in.ToolResult.Payload,
		}
	} else {
		part = genai.Text(in.Text)
	}

	resp, err := s.chat.SendMessage(ctx, part)
	if err != nil {
		return SessionReply{}, fmt.Errorf("conversation: gemini send failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return SessionReply{}, errors.New("conversation: gemini returned no candidates")
	}

	// The first function call wins; at most one invocation is honored per
	// turn, and any accompanying text is discarded.
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		switch v := p.(type) {
		case genai.FunctionCall:
			return SessionReply{ToolCall: ParseToolCall(v.Name, v.Args)}, nil
		case genai.Text:
			text.WriteString(string(v))
		}
	}
	return SessionReply{Text: text.String()}, nil
}
