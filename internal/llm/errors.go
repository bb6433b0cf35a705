package llm

import "fmt"

// StreamProtocolError means the provider did not stream when streaming was
// required, or the stream finished without usable content. Fatal; callers
// never retry it.
type StreamProtocolError struct {
	Op     string
	Reason string
}

func (e *StreamProtocolError) Error() string {
	return fmt.Sprintf("%s: stream protocol violation: %s", e.Op, e.Reason)
}

// ModerationError means the provider refused the request on policy grounds.
// Callers should present a generic "content not allowed" message, not retry.
type ModerationError struct {
	Op string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("%s: request rejected by content moderation", e.Op)
}
