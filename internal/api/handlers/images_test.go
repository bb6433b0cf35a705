package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmuse/inkmuse-api/internal/config"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
)

func testImageRouter(t *testing.T, providerStatus int, providerBody []byte) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if providerStatus != http.StatusOK {
			w.WriteHeader(providerStatus)
			return
		}
		w.Header().Set("finish-reason", "SUCCESS")
		w.Header().Set("seed", "42")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(providerBody)
	}))
	t.Cleanup(provider.Close)

	cfg := &config.Config{
		StabilityAPIKey:  "sk-test",
		StabilityBaseURL: provider.URL,
		ImageModel:       "sd3.5-large",
	}
	metricsClient := metrics.NewClient(context.Background(), "test")

	router := gin.New()
	handler := NewImageHandler(cfg, metricsClient)
	router.POST("/image", handler.GenerateImage)
	router.POST("/pair", handler.GeneratePair)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateImageEndpoint(t *testing.T) {
	router := testImageRouter(t, http.StatusOK, []byte("png-bytes"))

	rec := postJSON(t, router, "/image", ImageRequest{
		Prompt: "neo-traditional rose",
		Seed:   42,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Image imagePayload `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "color", body.Image.Kind)
	assert.Equal(t, int64(42), body.Image.Seed)

	decoded, err := base64.StdEncoding.DecodeString(body.Image.Image)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), decoded)
}

func TestGenerateImageEndpointValidation(t *testing.T) {
	router := testImageRouter(t, http.StatusOK, []byte("png-bytes"))

	// Missing prompt
	rec := postJSON(t, router, "/image", map[string]string{"model": "sd3.5-large"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown mode
	rec = postJSON(t, router, "/image", ImageRequest{Prompt: "rose", Mode: "inpaint"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Reference image that is not base64
	rec = postJSON(t, router, "/image", ImageRequest{Prompt: "rose", ReferenceImage: "not-base64!!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateImageEndpointModeration(t *testing.T) {
	router := testImageRouter(t, http.StatusForbidden, nil)

	rec := postJSON(t, router, "/image", ImageRequest{Prompt: "rose"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "This content is not allowed", body["error"])
}

func TestGenerateImageEndpointRateLimit(t *testing.T) {
	router := testImageRouter(t, http.StatusTooManyRequests, nil)

	rec := postJSON(t, router, "/image", ImageRequest{Prompt: "rose"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGeneratePairEndpoint(t *testing.T) {
	router := testImageRouter(t, http.StatusOK, []byte("png-bytes"))

	rec := postJSON(t, router, "/pair", PairRequest{
		Prompt: "dotwork mandala",
		Seed:   7,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Color   imagePayload `json:"color"`
		Stencil imagePayload `json:"stencil"`
		Seed    int64        `json:"seed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "color", body.Color.Kind)
	assert.Equal(t, "stencil", body.Stencil.Kind)
	assert.Equal(t, int64(7), body.Seed)
}

func TestGeneratePairEndpointSiblingFailure(t *testing.T) {
	router := testImageRouter(t, http.StatusInternalServerError, nil)

	rec := postJSON(t, router, "/pair", PairRequest{Prompt: "dotwork mandala"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "color", "a failed pair must not return partial images")
}
