package config

import "os"

// Config holds the application configuration
// Note: This is a stateless configuration - profiles, designs, and appointments
// live behind the gateway; this service only runs the generation pipeline.
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key

	// Diffusion provider
	StabilityAPIKey  string // Stability API key for image generation
	StabilityBaseURL string // Override for testing / self-hosted proxies

	// Model defaults
	ChatModel  string // Model used for both questionnaire stages
	ImageModel string // Diffusion model variant for the pair generator

	// Optional capabilities
	WebSearchEnabled bool // Attach the web search tool to the follow-up stage

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from the ink-cloud gateway
	AuthMode string
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		StabilityAPIKey:   getEnv("STABILITY_API_KEY", ""),
		StabilityBaseURL:  getEnv("STABILITY_BASE_URL", "https://api.stability.ai"),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-5-mini"),
		ImageModel:        getEnv("IMAGE_MODEL", "sd3.5-large"),
		WebSearchEnabled:  getEnv("WEB_SEARCH_ENABLED", "false") == "true",
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		AuthMode:          getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// IsGatewayMode returns true if running behind the ink-cloud gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}
