package llm

import (
	"context"
)

// Provider is the streaming chat boundary for both questionnaire stages.
// Streaming is required: a provider that cannot stream the completion back
// fails with StreamProtocolError rather than degrading to a one-shot call.
type Provider interface {
	// GenerateStream opens a streamed completion, feeds each text delta to
	// the callback, and returns the full accumulated text on completion.
	GenerateStream(ctx context.Context, request *GenerationRequest, callback StreamCallback) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// ToolKind identifies an auxiliary capability attached to a request.
type ToolKind string

// ToolKindWebSearch lets the model ground style or cultural references.
const ToolKindWebSearch ToolKind = "web_search"

// ToolDescriptor is an auxiliary tool the embedding application resolved at
// startup. The core never inspects the environment for capabilities itself.
type ToolDescriptor struct {
	Kind ToolKind
}

// GenerationConfig is immutable per-deployment tuning for one stage.
type GenerationConfig struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int64
	TopP            float64
	ReasoningEffort string // qualitative hint: minimal, low, medium, high
	StopSequence    string // optional
	Tools           []ToolDescriptor
}

// GenerationRequest contains all parameters for one streamed call. The
// pipeline always sends exactly one system instruction and one user turn.
type GenerationRequest struct {
	Operation    string // operation name for error tagging and tracing
	SystemPrompt string
	UserMessage  string
	Config       GenerationConfig
}

// TokenUsage is the provider-neutral token accounting for one call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// GenerationResponse contains the accumulated result from the LLM.
type GenerationResponse struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// StreamCallback is called for each streaming event. It is a projection
// sink for progress display only; callback errors never alter the stream.
type StreamCallback func(event StreamEvent) error

// StreamEvent represents a server-sent event during streaming
type StreamEvent struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// emit invokes the callback when one was supplied, discarding its error so
// the observer cannot affect control flow.
func emit(callback StreamCallback, event StreamEvent) {
	if callback != nil {
		_ = callback(event)
	}
}
