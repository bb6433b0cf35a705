package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/inkmuse/inkmuse-api/internal/llm"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
	"github.com/inkmuse/inkmuse-api/internal/models"
	"github.com/inkmuse/inkmuse-api/internal/observability"
	"github.com/inkmuse/inkmuse-api/internal/prompt"
)

// Global metrics instance
var sentryMetrics = metrics.NewSentryMetrics()

// Fixed user turns for the two stages. The system instruction carries all
// questionnaire content; these never vary per session.
const (
	followUpUserTurn = "Based on my answers, what follow-up question would help perfect my tattoo design?"
	finalUserTurn    = "Create the final tattoo generation prompts as JSON based on all my answers."

	opFollowUp = "followup_question"
	opFinal    = "final_prompts"
)

// GenerationService runs the two questionnaire stages: validate, compile the
// stage instruction, stream the completion, and (for the final stage) parse
// and validate the structured result. It holds no per-session state.
type GenerationService struct {
	provider llm.Provider
	builder  *prompt.Builder
	model    string
	tools    []llm.ToolDescriptor
	metrics  *metrics.Client
}

// NewGenerationService creates a pipeline service bound to one provider and
// model. Tools were resolved by the embedding application at startup; the
// CloudWatch client may be nil, in which case only Sentry metrics are kept.
func NewGenerationService(provider llm.Provider, model string, tools []llm.ToolDescriptor, metricsClient *metrics.Client) *GenerationService {
	return &GenerationService{
		provider: provider,
		builder:  prompt.NewBuilder(),
		model:    model,
		tools:    tools,
		metrics:  metricsClient,
	}
}

// recordStageMetrics reports one stage outcome to Sentry and CloudWatch.
// Usage is nil when the provider call never completed.
func (s *GenerationService) recordStageMetrics(ctx context.Context, duration time.Duration, usage *llm.TokenUsage, success bool) {
	sentryMetrics.RecordGenerationDuration(ctx, duration, success)
	s.metrics.RecordGenerationDuration(duration, success)

	if usage != nil {
		sentryMetrics.RecordTokenUsage(ctx, s.model,
			int(usage.TotalTokens), int(usage.InputTokens), int(usage.OutputTokens))
		s.metrics.RecordTokenUsage(s.model,
			int(usage.TotalTokens), int(usage.InputTokens), int(usage.OutputTokens))
	}
}

// GenerateFollowUpQuestion runs stage 1: seven answers in, one clarifying
// question out. The returned text is opaque to the pipeline - it is shown to
// the end user by the questionnaire UI.
func (s *GenerationService) GenerateFollowUpQuestion(
	ctx context.Context,
	answers *models.AnswerSet,
	onChunk llm.StreamCallback,
) (string, error) {
	if err := answers.ValidateForStage(models.StageFollowUp); err != nil {
		return "", err
	}

	startTime := time.Now()
	trace := observability.GetClient().StartTrace(ctx, "tattoo_generation", map[string]any{
		"stage": string(models.StageFollowUp),
	})
	defer trace.Finish()

	instruction := s.builder.BuildFollowUpInstruction(answers)
	gen := trace.Generation(opFollowUp, s.model, map[string]any{"prompt_length": len(instruction)})
	gen.Input(instruction)

	resp, err := s.provider.GenerateStream(ctx, &llm.GenerationRequest{
		Operation:    opFollowUp,
		SystemPrompt: instruction,
		UserMessage:  followUpUserTurn,
		Config:       StageConfig(models.StageFollowUp, s.model, s.tools),
	}, onChunk)
	if err != nil {
		gen.SetLevel("ERROR")
		gen.Finish()
		s.recordStageMetrics(ctx, time.Since(startTime), nil, false)
		return "", err
	}

	question := strings.TrimSpace(resp.Text)
	gen.Output(question)
	gen.Finish()
	s.recordStageMetrics(ctx, time.Since(startTime), resp.Usage, true)

	log.Printf("✅ FOLLOW-UP QUESTION generated in %v (%d chars)", time.Since(startTime), len(question))
	return question, nil
}

// GenerateFinalPrompts runs stage 2: all eight answers in, a strictly
// validated FinalPromptResult out. Any missing field is a hard failure -
// a silently incomplete prompt would produce an unpredictable image.
func (s *GenerationService) GenerateFinalPrompts(
	ctx context.Context,
	answers *models.AnswerSet,
	onChunk llm.StreamCallback,
) (*models.FinalPromptResult, error) {
	if err := answers.ValidateForStage(models.StageFinal); err != nil {
		return nil, err
	}

	startTime := time.Now()
	trace := observability.GetClient().StartTrace(ctx, "tattoo_generation", map[string]any{
		"stage": string(models.StageFinal),
	})
	defer trace.Finish()

	instruction := s.builder.BuildFinalPromptInstruction(answers)
	gen := trace.Generation(opFinal, s.model, map[string]any{"prompt_length": len(instruction)})
	gen.Input(instruction)

	resp, err := s.provider.GenerateStream(ctx, &llm.GenerationRequest{
		Operation:    opFinal,
		SystemPrompt: instruction,
		UserMessage:  finalUserTurn,
		Config:       StageConfig(models.StageFinal, s.model, nil),
	}, onChunk)
	if err != nil {
		gen.SetLevel("ERROR")
		gen.Finish()
		s.recordStageMetrics(ctx, time.Since(startTime), nil, false)
		return nil, err
	}

	result, err := models.ParseFinalPromptResult(resp.Text)
	if err != nil {
		gen.SetLevel("ERROR")
		gen.Finish()
		s.recordStageMetrics(ctx, time.Since(startTime), resp.Usage, false)
		log.Printf("❌ FINAL PROMPTS: malformed model output (%d chars raw)", len(resp.Text))
		return nil, err
	}

	gen.Output(result)
	gen.Finish()
	s.recordStageMetrics(ctx, time.Since(startTime), resp.Usage, true)

	log.Printf("✅ FINAL PROMPTS generated in %v (style: %s)", time.Since(startTime), result.Style)
	return result, nil
}
