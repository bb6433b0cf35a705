package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/inkmuse/inkmuse-api/internal/models"
)

// Mode selects the diffusion endpoint variant.
type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToImage Mode = "image-to-image"
	ModeSketch       Mode = "sketch"
	ModeStructure    Mode = "structure"
)

const (
	defaultAspectRatio  = "1:1"
	defaultOutputFormat = "png"

	finishReasonFiltered = "CONTENT_FILTERED"

	// Stencil requests raise guidance strength so the model follows the
	// outline instructions more strictly than the color default.
	stencilCfgScale = 8.0

	stencilPositiveSuffix = ", black and white stencil, bold clean outlines, high contrast line art, no shading, pure white background"
	stencilNegativeSuffix = ", color, colored ink, shading, gradients, soft edges, grayscale fill, photorealistic texture"

	maxErrorBodyChars = 500
	requestTimeout    = 120 * time.Second
)

// endpoint maps a mode to its provider path. All variants share the same
// header contract (finish-reason, seed).
func (m Mode) endpoint() string {
	switch m {
	case ModeSketch:
		return "/v2beta/stable-image/control/sketch"
	case ModeStructure:
		return "/v2beta/stable-image/control/structure"
	default:
		return "/v2beta/stable-image/generate/sd3"
	}
}

// Request carries everything for one image-generation call. Seed 0 means
// "let the provider choose"; the seed actually used comes back in metadata.
type Request struct {
	Prompt         string
	NegativePrompt string
	Model          string
	AspectRatio    string
	Seed           int64
	OutputFormat   string
	Mode           Mode
	CfgScale       float64 // 0 = provider default
	Strength       float64 // guided modes only
	ReferenceImage []byte  // required for image-to-image, sketch, structure
}

// Client issues single image requests against a Stability-style diffusion
// API. Each call is a fresh HTTP request; no connection state is held.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient creates an image generation client
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Generate issues one image request and returns the decoded binary plus the
// metadata carried in response headers. Errors follow the taxonomy in
// errors.go; none of them are retried here.
func (c *Client) Generate(ctx context.Context, req Request) (*models.GeneratedImage, error) {
	return c.generate(ctx, req, models.ImageKindColor)
}

// GenerateStencil is the stencil variant: it rewrites both prompts for
// black-and-white outline output and raises guidance strength before
// sending. The rewrite lives here, not in the orchestrator, so every call
// site shares one definition of what "stencil" means.
func (c *Client) GenerateStencil(ctx context.Context, req Request) (*models.GeneratedImage, error) {
	req.Prompt += stencilPositiveSuffix
	req.NegativePrompt += stencilNegativeSuffix
	req.CfgScale = stencilCfgScale
	return c.generate(ctx, req, models.ImageKindStencil)
}

func (c *Client) generate(ctx context.Context, req Request, kind models.ImageKind) (*models.GeneratedImage, error) {
	op := "imagegen." + string(kind)
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "imagegen.generate")
	defer transaction.Finish()
	transaction.SetTag("model", req.Model)
	transaction.SetTag("kind", string(kind))
	transaction.SetTag("mode", string(req.Mode))

	if req.AspectRatio == "" {
		req.AspectRatio = defaultAspectRatio
	}
	if req.OutputFormat == "" {
		req.OutputFormat = defaultOutputFormat
	}
	if req.Mode == "" {
		req.Mode = ModeTextToImage
	}

	body, contentType, err := buildMultipartBody(req)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s: failed to build request body: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+req.Mode.endpoint(), body)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "image/*")

	log.Printf("🖼️  IMAGE REQUEST: kind=%s mode=%s model=%s seed=%d prompt_len=%d",
		kind, req.Mode, req.Model, req.Seed, len(req.Prompt))

	span := transaction.StartChild("imagegen.api_call")
	resp, err := c.httpClient.Do(httpReq)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("⚠️  Failed to close response body: %v", closeErr)
		}
	}()

	if err := checkStatus(op, resp); err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%s: failed to read image payload: %w", op, err)
	}

	finishReason := resp.Header.Get("finish-reason")
	if finishReason == finishReasonFiltered {
		transaction.SetTag("success", "false")
		return nil, &ModerationError{Op: op}
	}
	if len(data) == 0 {
		transaction.SetTag("success", "false")
		return nil, &EmptyResultError{Op: op}
	}

	seed := req.Seed
	if headerSeed := resp.Header.Get("seed"); headerSeed != "" {
		if parsed, parseErr := strconv.ParseInt(headerSeed, 10, 64); parseErr == nil {
			seed = parsed
		}
	}

	log.Printf("✅ IMAGE GENERATED: kind=%s seed=%d bytes=%d in %v", kind, seed, len(data), time.Since(startTime))
	transaction.SetTag("success", "true")

	return &models.GeneratedImage{
		ID:           uuid.New().String(),
		Kind:         kind,
		Data:         data,
		Seed:         seed,
		FinishReason: finishReason,
		OutputFormat: req.OutputFormat,
	}, nil
}

// checkStatus maps non-success statuses to the error taxonomy.
func checkStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return &ModerationError{Op: op}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Op: op}
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return &PayloadTooLargeError{Op: op}
	default:
		errBody, _ := io.ReadAll(resp.Body)
		return &ProviderError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   truncateString(string(errBody), maxErrorBodyChars),
		}
	}
}

// buildMultipartBody assembles the provider's multipart form. Guided modes
// carry the reference image blob; the sd3 endpoint additionally takes the
// text-to-image / image-to-image discriminator as a form field.
func buildMultipartBody(req Request) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"prompt":          req.Prompt,
		"negative_prompt": req.NegativePrompt,
		"model":           req.Model,
		"aspect_ratio":    req.AspectRatio,
		"seed":            strconv.FormatInt(req.Seed, 10),
		"output_format":   req.OutputFormat,
	}
	if req.Mode == ModeTextToImage || req.Mode == ModeImageToImage {
		fields["mode"] = string(req.Mode)
	}
	if req.CfgScale > 0 {
		fields["cfg_scale"] = strconv.FormatFloat(req.CfgScale, 'f', -1, 64)
	}
	if req.Strength > 0 {
		fields["strength"] = strconv.FormatFloat(req.Strength, 'f', -1, 64)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if req.Mode != ModeTextToImage {
		if len(req.ReferenceImage) == 0 {
			return nil, "", fmt.Errorf("mode %s requires a reference image", req.Mode)
		}
		part, err := writer.CreateFormFile("image", "reference."+req.OutputFormat)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(req.ReferenceImage); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
