package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmuse/inkmuse-api/internal/config"
	"github.com/inkmuse/inkmuse-api/internal/llm"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
	"github.com/inkmuse/inkmuse-api/internal/models"
)

func testDesignRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		OpenAIAPIKey: "sk-test",
		ChatModel:    "gpt-5-mini",
	}

	router := gin.New()
	handler := NewDesignHandler(cfg, metrics.NewClient(context.Background(), "test"))
	router.POST("/followup", handler.FollowUpQuestion)
	router.POST("/prompts", handler.FinalPrompts)
	return router
}

func TestFollowUpQuestionRejectsBadJSON(t *testing.T) {
	router := testDesignRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/followup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowUpQuestionRejectsIncompleteAnswers(t *testing.T) {
	router := testDesignRouter(t)

	// card3 missing: must be a plain 400, never an SSE stream
	rec := postJSON(t, router, "/followup", StageRequest{
		Answers: models.AnswerSet{
			Card1: "blackwork",
			Card2: "black only",
			Card4: "10cm",
			Card5: "protection",
			Card6: "nothing religious",
			Card7: "geometric",
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "card3")
}

func TestFinalPromptsRequiresCard8(t *testing.T) {
	router := testDesignRouter(t)

	rec := postJSON(t, router, "/prompts", StageRequest{
		Answers: models.AnswerSet{
			Card1: "blackwork",
			Card2: "black only",
			Card3: "calf",
			Card4: "10cm",
			Card5: "protection",
			Card6: "nothing religious",
			Card7: "geometric",
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "card8")
}

func TestWriteSSEErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    string
		message string
	}{
		{
			name:    "validation",
			err:     &models.ValidationError{Stage: models.StageFinal, Field: "card8"},
			kind:    "validation_error",
			message: "card8",
		},
		{
			name:    "malformed output hides raw text",
			err:     &models.MalformedOutputError{Field: "mood", Raw: "secret client text"},
			kind:    "malformed_output",
			message: "unusable result",
		},
		{
			name:    "moderation",
			err:     &llm.ModerationError{Op: "followup_question"},
			kind:    "moderation_rejected",
			message: "not allowed",
		},
		{
			name:    "stream protocol",
			err:     &llm.StreamProtocolError{Op: "followup_question", Reason: "no deltas"},
			kind:    "stream_protocol_error",
			message: "did not stream",
		},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPost, "/prompts", nil)

			writeSSEError(c, tt.err)

			frame := strings.TrimPrefix(strings.TrimSpace(rec.Body.String()), "data: ")
			var event llm.StreamEvent
			require.NoError(t, json.Unmarshal([]byte(frame), &event))

			assert.Equal(t, "error", event.Type)
			assert.Contains(t, event.Message, tt.message)
			assert.Equal(t, tt.kind, event.Data["kind"])
			assert.NotContains(t, rec.Body.String(), "secret client text")
		})
	}
}
