package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	// Provider name
	providerNameOpenAI = "openai"

	// Reasoning effort levels
	reasoningMinimal = "minimal"
	reasoningLow     = "low"
	reasoningMedium  = "medium"
	reasoningHigh    = "high"

	// Logging limits
	maxLogEventCountOpenAI = 5

	// Heartbeat cadence while consuming long streams
	heartbeatEventInterval = 50
)

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// buildRequestParams converts a GenerationRequest to OpenAI ResponseNewParams
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	cfg := request.Config

	params := responses.ResponseNewParams{
		Model: cfg.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(request.UserMessage, responses.EasyInputMessageRoleUser),
			},
		},
		Instructions: openai.String(request.SystemPrompt),
	}

	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		params.TopP = openai.Float(cfg.TopP)
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(cfg.MaxOutputTokens)
	}
	if cfg.StopSequence != "" {
		// The Responses API has no stop-sequence parameter; surfacing this in
		// the log keeps the mismatch visible instead of silently dropping it.
		log.Printf("⚠️  OPENAI: stop sequence %q not supported by Responses API, ignored", cfg.StopSequence)
	}

	params.Reasoning = shared.ReasoningParam{
		Effort: reasoningEffortFor(cfg.ReasoningEffort),
	}

	for _, tool := range cfg.Tools {
		if tool.Kind == ToolKindWebSearch {
			params.Tools = append(params.Tools, responses.ToolUnionParam{
				OfWebSearchPreview: &responses.WebSearchToolParam{
					Type: responses.WebSearchToolTypeWebSearchPreview,
				},
			})
			log.Printf("🔎 OPENAI: web search tool attached")
		}
	}

	return params
}

// reasoningEffortFor maps the qualitative hint to the Responses API enum.
func reasoningEffortFor(mode string) shared.ReasoningEffort {
	switch mode {
	case reasoningMinimal:
		return shared.ReasoningEffort(reasoningMinimal)
	case reasoningLow:
		return responses.ReasoningEffortLow
	case reasoningMedium:
		return responses.ReasoningEffortMedium
	case reasoningHigh:
		return responses.ReasoningEffortHigh
	default:
		return responses.ReasoningEffortLow
	}
}

// GenerateStream implements streaming generation using OpenAI's Responses API.
// It streams text chunks as they arrive and calls the callback for each one.
func (p *OpenAIProvider) GenerateStream(
	ctx context.Context,
	request *GenerationRequest,
	callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎨 OPENAI STREAMING REQUEST STARTED (op: %s, model: %s, prompt_len: %d)",
		request.Operation, request.Config.Model, len(request.SystemPrompt))

	transaction := sentry.StartTransaction(ctx, "openai.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Config.Model)
	transaction.SetTag("provider", providerNameOpenAI)
	transaction.SetTag("operation", request.Operation)

	params := p.buildRequestParams(request)

	emit(callback, StreamEvent{Type: "started", Message: "Starting generation..."})

	span := transaction.StartChild("openai.api_stream")
	stream := p.client.Responses.NewStreaming(ctx, params)
	defer stream.Close()

	var accumulated strings.Builder
	var finalResponse *responses.Response
	eventCount := 0

	for stream.Next() {
		event := stream.Current()
		eventCount++

		if eventCount <= maxLogEventCountOpenAI {
			log.Printf("📥 Stream event #%d: type=%s", eventCount, event.Type)
		}

		switch event.Type {
		case "response.output_text.delta":
			textDelta := event.AsResponseOutputTextDelta()
			if textDelta.Delta != "" {
				accumulated.WriteString(textDelta.Delta)
				emit(callback, StreamEvent{
					Type:    "text_delta",
					Message: textDelta.Delta,
					Data: map[string]any{
						"accumulated_length": accumulated.Len(),
					},
				})
			}

		case "response.output_text.done":
			log.Printf("✅ Text output complete: %d chars accumulated", accumulated.Len())

		case "response.completed":
			completedEvent := event.AsResponseCompleted()
			finalResponse = &completedEvent.Response

		case "response.failed":
			failedEvent := event.AsResponseFailed()
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("%s: streaming failed: %s", request.Operation, failedEvent.Response.Error.Message)

		case "error":
			errorEvent := event.AsError()
			span.Finish()
			transaction.SetTag("success", "false")
			return nil, fmt.Errorf("%s: stream error: %s", request.Operation, errorEvent.Message)
		}

		if eventCount%heartbeatEventInterval == 0 {
			emit(callback, StreamEvent{
				Type:    "heartbeat",
				Message: "Processing...",
				Data: map[string]any{
					"events_received": eventCount,
					"elapsed_seconds": int(time.Since(startTime).Seconds()),
				},
			})
		}
	}

	span.Finish()

	if err := stream.Err(); err != nil {
		transaction.SetTag("success", "false")
		if modErr := asModerationError(request.Operation, err); modErr != nil {
			return nil, modErr
		}
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%s: stream error: %w", request.Operation, err)
	}

	// A completion with zero stream events means the provider answered
	// without streaming. Streaming is required, so this is fatal.
	if eventCount == 0 {
		transaction.SetTag("success", "false")
		return nil, &StreamProtocolError{Op: request.Operation, Reason: "provider returned a non-streaming response"}
	}

	text := accumulated.String()
	if strings.TrimSpace(text) == "" {
		transaction.SetTag("success", "false")
		return nil, &StreamProtocolError{Op: request.Operation, Reason: "stream completed without usable content"}
	}

	log.Printf("✅ OPENAI STREAMING COMPLETE: %d events, %d chars, %v duration",
		eventCount, len(text), time.Since(startTime))

	emit(callback, StreamEvent{
		Type:    "completed",
		Message: "Generation complete",
		Data: map[string]any{
			"total_length": len(text),
			"event_count":  eventCount,
		},
	})

	response := &GenerationResponse{Text: text}
	if finalResponse != nil {
		response.Usage = &TokenUsage{
			InputTokens:  finalResponse.Usage.InputTokens,
			OutputTokens: finalResponse.Usage.OutputTokens,
			TotalTokens:  finalResponse.Usage.TotalTokens,
		}
		log.Printf("📊 USAGE: input=%d, output=%d, total=%d",
			finalResponse.Usage.InputTokens, finalResponse.Usage.OutputTokens, finalResponse.Usage.TotalTokens)
	}

	transaction.SetTag("success", "true")
	return response, nil
}

// asModerationError maps a policy refusal from the OpenAI SDK to the shared
// moderation error kind; returns nil for every other failure.
func asModerationError(op string, err error) *ModerationError {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	if apiErr.StatusCode == http.StatusForbidden {
		return &ModerationError{Op: op}
	}
	if strings.Contains(apiErr.Code, "content_policy") {
		return &ModerationError{Op: op}
	}
	return nil
}
