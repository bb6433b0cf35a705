package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGeminiProvider(t *testing.T) *GeminiProvider {
	t.Helper()
	provider, err := NewGeminiProvider(context.Background(), "test-api-key")
	require.NoError(t, err)
	return provider
}

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

// fakeStream builds an iterator in the shape GenerateContentStream returns.
func fakeStream(chunks []*genai.GenerateContentResponse, streamErr error) func(yield func(*genai.GenerateContentResponse, error) bool) {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if streamErr != nil {
			yield(nil, streamErr)
		}
	}
}

func TestGeminiBuildGenerateConfig(t *testing.T) {
	provider := newTestGeminiProvider(t)

	request := &GenerationRequest{
		SystemPrompt: "test system prompt",
		Config: GenerationConfig{
			Model:           "gemini-2.5-flash",
			Temperature:     0.9,
			TopP:            0.95,
			MaxOutputTokens: 300,
			StopSequence:    "END",
			Tools:           []ToolDescriptor{{Kind: ToolKindWebSearch}},
		},
	}

	config := provider.buildGenerateConfig(request)

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "test system prompt", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.9, float64(*config.Temperature), 0.001)
	assert.Equal(t, int32(300), config.MaxOutputTokens)
	assert.Equal(t, []string{"END"}, config.StopSequences)
	require.Len(t, config.Tools, 1)
	assert.NotNil(t, config.Tools[0].GoogleSearch)
}

func TestProcessGeminiStream(t *testing.T) {
	provider := newTestGeminiProvider(t)
	request := &GenerationRequest{Operation: "followup_question"}

	iter := fakeStream([]*genai.GenerateContentResponse{
		textChunk("What placement "),
		textChunk("works best for you?"),
	}, nil)

	var deltas []string
	resp, err := provider.processGeminiStream(request, iter, func(event StreamEvent) error {
		if event.Type == "text_delta" {
			deltas = append(deltas, event.Message)
		}
		return nil
	}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, "What placement works best for you?", resp.Text)
	assert.Len(t, deltas, 2)
}

func TestProcessGeminiStreamTokenUsage(t *testing.T) {
	provider := newTestGeminiProvider(t)
	request := &GenerationRequest{Operation: "followup_question"}

	final := textChunk("works best for you?")
	final.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     812,
		CandidatesTokenCount: 41,
		TotalTokenCount:      853,
	}

	iter := fakeStream([]*genai.GenerateContentResponse{
		textChunk("What placement "),
		final,
	}, nil)

	resp, err := provider.processGeminiStream(request, iter, nil, time.Now())
	require.NoError(t, err)

	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(812), resp.Usage.InputTokens)
	assert.Equal(t, int64(41), resp.Usage.OutputTokens)
	assert.Equal(t, int64(853), resp.Usage.TotalTokens)
}

func TestProcessGeminiStreamSafetyBlock(t *testing.T) {
	provider := newTestGeminiProvider(t)
	request := &GenerationRequest{Operation: "followup_question"}

	blocked := textChunk("")
	blocked.Candidates[0].FinishReason = genai.FinishReasonSafety

	iter := fakeStream([]*genai.GenerateContentResponse{blocked}, nil)

	_, err := provider.processGeminiStream(request, iter, nil, time.Now())
	require.Error(t, err)

	var moderationErr *ModerationError
	require.True(t, errors.As(err, &moderationErr))
	assert.Equal(t, "followup_question", moderationErr.Op)
}

func TestProcessGeminiStreamZeroEvents(t *testing.T) {
	provider := newTestGeminiProvider(t)
	request := &GenerationRequest{Operation: "final_prompts"}

	iter := fakeStream(nil, nil)

	_, err := provider.processGeminiStream(request, iter, nil, time.Now())
	require.Error(t, err)

	var streamErr *StreamProtocolError
	require.True(t, errors.As(err, &streamErr))
}

func TestProcessGeminiStreamEmptyText(t *testing.T) {
	provider := newTestGeminiProvider(t)
	request := &GenerationRequest{Operation: "final_prompts"}

	iter := fakeStream([]*genai.GenerateContentResponse{
		textChunk("   "),
		textChunk("\n"),
	}, nil)

	_, err := provider.processGeminiStream(request, iter, nil, time.Now())
	require.Error(t, err)

	var streamErr *StreamProtocolError
	require.True(t, errors.As(err, &streamErr))
}
