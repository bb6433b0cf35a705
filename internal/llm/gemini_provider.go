package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	maxLogEventCount   = 5
	geminiUserRole     = "user"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// buildGenerateConfig converts a GenerationRequest to Gemini's config type
func (p *GeminiProvider) buildGenerateConfig(request *GenerationRequest) *genai.GenerateContentConfig {
	cfg := request.Config

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		},
	}

	if cfg.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(cfg.Temperature))
	}
	if cfg.TopP > 0 {
		config.TopP = genai.Ptr(float32(cfg.TopP))
	}
	if cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.StopSequence != "" {
		config.StopSequences = []string{cfg.StopSequence}
	}

	for _, tool := range cfg.Tools {
		if tool.Kind == ToolKindWebSearch {
			config.Tools = append(config.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
			log.Printf("🔎 GEMINI: google search tool attached")
		}
	}

	return config
}

// GenerateStream implements streaming generation for Gemini
func (p *GeminiProvider) GenerateStream(
	ctx context.Context, request *GenerationRequest, callback StreamCallback,
) (*GenerationResponse, error) {
	startTime := time.Now()
	log.Printf("🎨 GEMINI STREAMING REQUEST STARTED (op: %s, model: %s, prompt_len: %d)",
		request.Operation, request.Config.Model, len(request.SystemPrompt))

	transaction := sentry.StartTransaction(ctx, "gemini.generate_stream")
	defer transaction.Finish()

	transaction.SetTag("model", request.Config.Model)
	transaction.SetTag("provider", providerNameGemini)
	transaction.SetTag("operation", request.Operation)

	contents := []*genai.Content{
		{
			Role:  geminiUserRole,
			Parts: []*genai.Part{{Text: request.UserMessage}},
		},
	}
	config := p.buildGenerateConfig(request)

	emit(callback, StreamEvent{Type: "started", Message: "Starting generation..."})

	span := transaction.StartChild("gemini.api_stream")
	iter := p.client.Models.GenerateContentStream(ctx, request.Config.Model, contents, config)

	response, err := p.processGeminiStream(request, iter, callback, startTime)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, err
	}

	transaction.SetTag("success", "true")
	log.Printf("✅ GEMINI STREAMING COMPLETED in %v", time.Since(startTime))

	return response, nil
}

// processGeminiStream consumes the Gemini stream, accumulating text deltas
func (p *GeminiProvider) processGeminiStream(
	request *GenerationRequest,
	iter func(yield func(*genai.GenerateContentResponse, error) bool),
	callback StreamCallback,
	startTime time.Time,
) (*GenerationResponse, error) {
	var accumulated strings.Builder
	var finalUsage *genai.GenerateContentResponseUsageMetadata
	eventCount := 0

	for chunk, err := range iter {
		if err != nil {
			log.Printf("❌ GEMINI STREAMING ERROR: %v", err)
			return nil, fmt.Errorf("%s: gemini stream error: %w", request.Operation, err)
		}

		eventCount++

		if eventCount%10 == 0 {
			emit(callback, StreamEvent{
				Type:    "heartbeat",
				Message: "Processing...",
				Data: map[string]any{
					"events_received": eventCount,
					"elapsed_seconds": int(time.Since(startTime).Seconds()),
				},
			})
		}

		if len(chunk.Candidates) > 0 && chunk.Candidates[0].Content != nil && len(chunk.Candidates[0].Content.Parts) > 0 {
			text := chunk.Candidates[0].Content.Parts[0].Text
			if text != "" {
				accumulated.WriteString(text)
				emit(callback, StreamEvent{
					Type:    "text_delta",
					Message: text,
					Data: map[string]any{
						"accumulated_length": accumulated.Len(),
					},
				})
			}
			if eventCount <= maxLogEventCount {
				log.Printf("✅ Gemini chunk #%d: +%d chars (total: %d)", eventCount, len(text), accumulated.Len())
			}
		}

		if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return nil, &ModerationError{Op: request.Operation}
		}

		if chunk.UsageMetadata != nil {
			finalUsage = chunk.UsageMetadata
		}
	}

	if eventCount == 0 {
		return nil, &StreamProtocolError{Op: request.Operation, Reason: "provider returned a non-streaming response"}
	}

	text := accumulated.String()
	if strings.TrimSpace(text) == "" {
		return nil, &StreamProtocolError{Op: request.Operation, Reason: "stream completed without usable content"}
	}

	response := &GenerationResponse{Text: text}
	if finalUsage != nil {
		response.Usage = &TokenUsage{
			InputTokens:  int64(finalUsage.PromptTokenCount),
			OutputTokens: int64(finalUsage.CandidatesTokenCount),
			TotalTokens:  int64(finalUsage.TotalTokenCount),
		}
		log.Printf("📊 GEMINI USAGE: input=%d, output=%d, total=%d",
			finalUsage.PromptTokenCount, finalUsage.CandidatesTokenCount, finalUsage.TotalTokenCount)
	}

	emit(callback, StreamEvent{
		Type:    "completed",
		Message: "Generation complete",
		Data: map[string]any{
			"total_length": len(text),
			"event_count":  eventCount,
		},
	})

	return response, nil
}
