package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkmuse/inkmuse-api/internal/config"
	"github.com/inkmuse/inkmuse-api/internal/llm"
	"github.com/inkmuse/inkmuse-api/internal/logger"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
	"github.com/inkmuse/inkmuse-api/internal/models"
	"github.com/inkmuse/inkmuse-api/internal/services"
)

// DesignHandler exposes the two questionnaire stages over SSE.
type DesignHandler struct {
	cfg     *config.Config
	factory *llm.ProviderFactory
	tools   []llm.ToolDescriptor
	metrics *metrics.Client
}

// NewDesignHandler builds the handler. Tool descriptors are resolved here,
// once, from startup configuration - the pipeline core never reads env.
func NewDesignHandler(cfg *config.Config, metricsClient *metrics.Client) *DesignHandler {
	var tools []llm.ToolDescriptor
	if cfg.WebSearchEnabled {
		tools = append(tools, llm.ToolDescriptor{Kind: llm.ToolKindWebSearch})
	}

	return &DesignHandler{
		cfg:     cfg,
		factory: llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey),
		tools:   tools,
		metrics: metricsClient,
	}
}

// StageRequest is the request body for both stage endpoints. The answer set
// arrives complete from the questionnaire UI; this core only re-checks the
// stage's required fields.
type StageRequest struct {
	Answers models.AnswerSet `json:"answers" binding:"required"`
	Model   string           `json:"model"`
}

func (h *DesignHandler) service(c *gin.Context, model string) (*services.GenerationService, error) {
	if model == "" {
		model = h.cfg.ChatModel
	}
	provider, err := h.factory.GetProvider(c.Request.Context(), model)
	if err != nil {
		return nil, err
	}
	return services.NewGenerationService(provider, model, h.tools, h.metrics), nil
}

// FollowUpQuestion handles POST /api/v1/designs/followup. It streams stage-1
// text deltas as SSE and finishes with a result event carrying the question.
func (h *DesignHandler) FollowUpQuestion(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate before committing to the event stream so a bad answer set
	// still gets a plain 400 instead of an SSE error frame.
	if err := req.Answers.ValidateForStage(models.StageFollowUp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := h.service(c, req.Model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	setSSEHeaders(c)
	startTime := time.Now()

	question, err := svc.GenerateFollowUpQuestion(c.Request.Context(), &req.Answers, sseCallback(c))
	if err != nil {
		writeSSEError(c, err)
		return
	}

	logger.Info("Follow-up question generated", logger.Fields{
		"request_id":  c.GetString("request_id"),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	writeSSEEvent(c, llm.StreamEvent{
		Type:    "result",
		Message: "Generation complete",
		Data: map[string]any{
			"question":   question,
			"request_id": c.GetString("request_id"),
		},
	})
}

// FinalPrompts handles POST /api/v1/designs/prompts. Stage 2 requires all
// eight answers; the result event carries the validated prompt object.
func (h *DesignHandler) FinalPrompts(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Answers.ValidateForStage(models.StageFinal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := h.service(c, req.Model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	setSSEHeaders(c)
	startTime := time.Now()

	result, err := svc.GenerateFinalPrompts(c.Request.Context(), &req.Answers, sseCallback(c))
	if err != nil {
		writeSSEError(c, err)
		return
	}

	logger.Info("Final prompts generated", logger.Fields{
		"request_id":  c.GetString("request_id"),
		"duration_ms": time.Since(startTime).Milliseconds(),
		"style":       result.Style,
	})

	writeSSEEvent(c, llm.StreamEvent{
		Type:    "result",
		Message: "Generation complete",
		Data: map[string]any{
			"prompts":    result,
			"request_id": c.GetString("request_id"),
		},
	})
}

func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// sseCallback forwards stream events to the client as SSE data frames.
func sseCallback(c *gin.Context) llm.StreamCallback {
	return func(event llm.StreamEvent) error {
		return writeSSEEvent(c, event)
	}
}

func writeSSEEvent(c *gin.Context, event llm.StreamEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON)
	c.Writer.Flush()
	return nil
}

// writeSSEError maps pipeline errors to a terminal SSE error frame. The raw
// model output behind a MalformedOutputError never reaches the client.
func writeSSEError(c *gin.Context, err error) {
	message := "Generation failed"
	kind := "provider_error"

	var validationErr *models.ValidationError
	var malformedErr *models.MalformedOutputError
	var streamErr *llm.StreamProtocolError
	var moderationErr *llm.ModerationError

	switch {
	case errors.As(err, &validationErr):
		kind = "validation_error"
		message = validationErr.Error()
	case errors.As(err, &malformedErr):
		kind = "malformed_output"
		message = "The model returned an unusable result"
	case errors.As(err, &streamErr):
		kind = "stream_protocol_error"
		message = "The model did not stream a usable response"
	case errors.As(err, &moderationErr):
		kind = "moderation_rejected"
		message = "This content is not allowed"
	}

	logger.Error("Stage generation failed", err, logger.Fields{
		"request_id": c.GetString("request_id"),
		"error_kind": kind,
	})

	_ = writeSSEEvent(c, llm.StreamEvent{
		Type:    "error",
		Message: message,
		Data: map[string]any{
			"kind":       kind,
			"request_id": c.GetString("request_id"),
		},
	})
}
