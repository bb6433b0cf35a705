package imagegen

import "fmt"

// ModerationError means the provider flagged the request (HTTP 403) or the
// finish reason indicates content filtering. Fatal, never retried.
type ModerationError struct {
	Op string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("%s: request rejected by content moderation", e.Op)
}

// RateLimitError means the provider throttled the request (HTTP 429). The
// caller may retry with backoff; this client never retries on its own so
// callers keep control of their budget.
type RateLimitError struct {
	Op string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: provider rate limit exceeded", e.Op)
}

// PayloadTooLargeError means the request exceeded the provider's size limit
// (HTTP 413). Fatal.
type PayloadTooLargeError struct {
	Op string
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("%s: request payload too large", e.Op)
}

// ProviderError is any other non-success provider response. Fatal.
type ProviderError struct {
	Op     string
	Status int
	Body   string // provider-supplied error body, truncated for logging
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Op, e.Status, e.Body)
}

// EmptyResultError means a success status carried a zero-length binary
// payload; treated as a provider integrity failure.
type EmptyResultError struct {
	Op string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: provider returned an empty image payload", e.Op)
}
