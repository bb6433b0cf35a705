package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProviderOpenAI(t *testing.T) {
	factory := NewProviderFactory("sk-test", "gm-test")

	provider, err := factory.GetProvider(context.Background(), "gpt-5-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestGetProviderGemini(t *testing.T) {
	factory := NewProviderFactory("sk-test", "gm-test")

	provider, err := factory.GetProvider(context.Background(), "gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini", provider.Name())
}

func TestGetProviderUnknownModelDefaultsToOpenAI(t *testing.T) {
	factory := NewProviderFactory("sk-test", "")

	provider, err := factory.GetProvider(context.Background(), "some-future-model")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
}

func TestGetProviderMissingKeys(t *testing.T) {
	factory := NewProviderFactory("", "")

	_, err := factory.GetProvider(context.Background(), "gpt-5-mini")
	require.Error(t, err)

	_, err = factory.GetProvider(context.Background(), "gemini-2.5-flash")
	require.Error(t, err)
}
