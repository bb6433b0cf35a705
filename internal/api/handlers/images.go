package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkmuse/inkmuse-api/internal/config"
	"github.com/inkmuse/inkmuse-api/internal/imagegen"
	"github.com/inkmuse/inkmuse-api/internal/logger"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
	"github.com/inkmuse/inkmuse-api/internal/models"
)

// maxReferenceImageBytes caps uploaded reference images before they reach
// the provider, which would otherwise reject them with a 413 anyway.
const maxReferenceImageBytes = 10 << 20

// ImageHandler exposes single-image and color/stencil pair generation.
type ImageHandler struct {
	cfg     *config.Config
	client  *imagegen.Client
	metrics *metrics.Client
}

func NewImageHandler(cfg *config.Config, metricsClient *metrics.Client) *ImageHandler {
	return &ImageHandler{
		cfg:     cfg,
		client:  imagegen.NewClient(cfg.StabilityAPIKey, cfg.StabilityBaseURL),
		metrics: metricsClient,
	}
}

// ImageRequest is the JSON body for POST /api/v1/designs/image. Guided modes
// (image-to-image, sketch, structure) carry the reference image base64-encoded.
type ImageRequest struct {
	Prompt         string  `json:"prompt" binding:"required"`
	NegativePrompt string  `json:"negative_prompt"`
	Model          string  `json:"model"`
	AspectRatio    string  `json:"aspect_ratio"`
	Seed           int64   `json:"seed"`
	OutputFormat   string  `json:"output_format"`
	Kind           string  `json:"kind"`
	Mode           string  `json:"mode"`
	Strength       float64 `json:"strength"`
	ReferenceImage string  `json:"reference_image"`
}

// PairRequest is the JSON body for POST /api/v1/designs/pair.
type PairRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	NegativePrompt string `json:"negative_prompt"`
	Model          string `json:"model"`
	Seed           int64  `json:"seed"`
}

// imagePayload is the wire shape for one generated image. The binary travels
// base64-encoded inside the JSON envelope alongside its metadata.
type imagePayload struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Image        string `json:"image"`
	Seed         int64  `json:"seed"`
	OutputFormat string `json:"outputFormat"`
}

func toPayload(img *models.GeneratedImage) imagePayload {
	return imagePayload{
		ID:           img.ID,
		Kind:         string(img.Kind),
		Image:        base64.StdEncoding.EncodeToString(img.Data),
		Seed:         img.Seed,
		OutputFormat: img.OutputFormat,
	}
}

// GenerateImage handles POST /api/v1/designs/image.
func (h *ImageHandler) GenerateImage(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var reference []byte
	if req.ReferenceImage != "" {
		reference, err = base64.StdEncoding.DecodeString(req.ReferenceImage)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_image must be base64-encoded"})
			return
		}
		if len(reference) > maxReferenceImageBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "reference image exceeds 10MB"})
			return
		}
	}

	model := req.Model
	if model == "" {
		model = h.cfg.ImageModel
	}

	genReq := imagegen.Request{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Model:          model,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
		OutputFormat:   req.OutputFormat,
		Mode:           mode,
		Strength:       req.Strength,
		ReferenceImage: reference,
	}

	kind := string(models.ImageKindColor)
	if req.Kind == string(models.ImageKindStencil) {
		kind = string(models.ImageKindStencil)
	}

	startTime := time.Now()

	var img *models.GeneratedImage
	if kind == string(models.ImageKindStencil) {
		img, err = h.client.GenerateStencil(c.Request.Context(), genReq)
	} else {
		img, err = h.client.Generate(c.Request.Context(), genReq)
	}
	if err != nil {
		h.metrics.RecordImageGeneration(c.Request.Context(), kind, time.Since(startTime), false)
		h.writeImageError(c, err)
		return
	}

	h.metrics.RecordImageGeneration(c.Request.Context(), kind, time.Since(startTime), true)

	c.JSON(http.StatusOK, gin.H{
		"image":      toPayload(img),
		"request_id": c.GetString("request_id"),
	})
}

// GeneratePair handles POST /api/v1/designs/pair: one color render and one
// stencil render from the same prompt and seed.
func (h *ImageHandler) GeneratePair(c *gin.Context) {
	var req PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := req.Model
	if model == "" {
		model = h.cfg.ImageModel
	}

	startTime := time.Now()

	pair, err := h.client.GeneratePair(c.Request.Context(), req.Prompt, req.NegativePrompt, model, req.Seed)
	if err != nil {
		h.metrics.RecordImageGeneration(c.Request.Context(), "pair", time.Since(startTime), false)
		h.writeImageError(c, err)
		return
	}

	h.metrics.RecordImageGeneration(c.Request.Context(), "pair", time.Since(startTime), true)

	c.JSON(http.StatusOK, gin.H{
		"color":      toPayload(pair.Color),
		"stencil":    toPayload(pair.Stencil),
		"seed":       pair.Seed,
		"request_id": c.GetString("request_id"),
	})
}

func parseMode(raw string) (imagegen.Mode, error) {
	switch imagegen.Mode(raw) {
	case "", imagegen.ModeTextToImage:
		return imagegen.ModeTextToImage, nil
	case imagegen.ModeImageToImage, imagegen.ModeSketch, imagegen.ModeStructure:
		return imagegen.Mode(raw), nil
	default:
		return "", errors.New("mode must be one of text-to-image, image-to-image, sketch, structure")
	}
}

// writeImageError maps the imagegen error taxonomy to HTTP statuses. The
// moderation message is deliberately generic; provider details stay in logs.
func (h *ImageHandler) writeImageError(c *gin.Context, err error) {
	var moderationErr *imagegen.ModerationError
	var rateLimitErr *imagegen.RateLimitError
	var tooLargeErr *imagegen.PayloadTooLargeError
	var emptyErr *imagegen.EmptyResultError
	var providerErr *imagegen.ProviderError

	status := http.StatusBadGateway
	message := "Image generation failed"

	switch {
	case errors.As(err, &moderationErr):
		status = http.StatusForbidden
		message = "This content is not allowed"
	case errors.As(err, &rateLimitErr):
		status = http.StatusTooManyRequests
		message = "Image provider rate limit reached, try again shortly"
	case errors.As(err, &tooLargeErr):
		status = http.StatusRequestEntityTooLarge
		message = "Request payload too large"
	case errors.As(err, &emptyErr):
		message = "Image provider returned an empty result"
	case errors.As(err, &providerErr):
		message = "Image provider request failed"
	}

	logger.Error("Image generation failed", err, logger.Fields{
		"request_id": c.GetString("request_id"),
		"status":     status,
	})

	c.JSON(status, gin.H{
		"error":      message,
		"request_id": c.GetString("request_id"),
	})
}
