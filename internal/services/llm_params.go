package services

import (
	"github.com/inkmuse/inkmuse-api/internal/llm"
	"github.com/inkmuse/inkmuse-api/internal/models"
)

// Per-stage sampling presets. The follow-up stage runs hotter so the
// clarifying question feels conversational; the final stage runs tighter
// because its output must parse as strict JSON.
const (
	followUpTemperature     = 0.9
	followUpTopP            = 0.95
	followUpMaxOutputTokens = 300

	finalTemperature     = 0.7
	finalTopP            = 0.9
	finalMaxOutputTokens = 1200

	reasoningEffortLow     = "low"
	reasoningEffortMinimal = "minimal"
)

// StageConfig returns the GenerationConfig for a pipeline stage. Tools are
// only ever attached to the follow-up stage: the final stage must emit pure
// JSON and a tool round-trip there would only add failure modes.
func StageConfig(stage models.Stage, model string, tools []llm.ToolDescriptor) llm.GenerationConfig {
	switch stage {
	case models.StageFinal:
		return llm.GenerationConfig{
			Model:           model,
			Temperature:     finalTemperature,
			TopP:            finalTopP,
			MaxOutputTokens: finalMaxOutputTokens,
			ReasoningEffort: reasoningEffortMinimal,
		}
	default:
		return llm.GenerationConfig{
			Model:           model,
			Temperature:     followUpTemperature,
			TopP:            followUpTopP,
			MaxOutputTokens: followUpMaxOutputTokens,
			ReasoningEffort: reasoningEffortLow,
			Tools:           tools,
		}
	}
}
