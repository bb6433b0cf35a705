package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabledOutsideProduction(t *testing.T) {
	for _, env := range []string{"test", "development", "staging", ""} {
		client := NewClient(context.Background(), env)
		require.NotNil(t, client, "environment %q", env)
		assert.False(t, client.enabled, "environment %q", env)
	}
}

func TestDisabledClientRecordsAreNoOps(t *testing.T) {
	client := NewClient(context.Background(), "test")

	// None of these may reach CloudWatch or panic on a disabled client.
	client.RecordAPIRequest("/api/designs/question", 200, 120*time.Millisecond)
	client.RecordTokenUsage("gpt-5-mini", 916, 820, 96)
	client.RecordImageGeneration(context.Background(), "color", 3*time.Second, true)
	client.RecordGenerationDuration(8*time.Second, false)
}

func TestNilClientRecordsAreNoOps(t *testing.T) {
	var client *Client

	client.RecordAPIRequest("/api/images", 502, time.Second)
	client.RecordTokenUsage("gemini-2.5-flash", 0, 0, 0)
	client.RecordImageGeneration(context.Background(), "pair", time.Second, false)
	client.RecordGenerationDuration(time.Second, true)
}
