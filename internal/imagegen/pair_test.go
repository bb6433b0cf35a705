package imagegen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairRecorder captures both concurrent multipart requests.
type pairRecorder struct {
	mu       sync.Mutex
	requests []map[string]string
}

func (r *pairRecorder) record(fields map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, fields)
}

func (r *pairRecorder) byKind() (color, stencil map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fields := range r.requests {
		if strings.Contains(fields["prompt"], "stencil") {
			stencil = fields
		} else {
			color = fields
		}
	}
	return color, stencil
}

func pairServer(t *testing.T, rec *pairRecorder) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		fields := map[string]string{}
		for name, values := range r.MultipartForm.Value {
			fields[name] = values[0]
		}
		rec.record(fields)

		w.Header().Set("finish-reason", "SUCCESS")
		w.Header().Set("seed", fields["seed"])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeneratePair(t *testing.T) {
	rec := &pairRecorder{}
	server := pairServer(t, rec)

	client := NewClient(testAPIKey, server.URL)
	pair, err := client.GeneratePair(context.Background(), "dotwork mandala", "blurry", "sd3.5-large", 42)
	require.NoError(t, err)

	require.NotNil(t, pair.Color)
	require.NotNil(t, pair.Stencil)
	assert.Equal(t, int64(42), pair.Seed)
	assert.Equal(t, int64(42), pair.Color.Seed)
	assert.Equal(t, int64(42), pair.Stencil.Seed)

	color, stencil := rec.byKind()
	require.NotNil(t, color, "one request must carry the untouched prompt")
	require.NotNil(t, stencil, "one request must carry the stencil rewrite")

	// Same seed and model on both legs; only the stencil prompt differs.
	assert.Equal(t, "42", color["seed"])
	assert.Equal(t, "42", stencil["seed"])
	assert.Equal(t, color["model"], stencil["model"])
	assert.Equal(t, "dotwork mandala", color["prompt"])
	assert.True(t, strings.HasPrefix(stencil["prompt"], "dotwork mandala"))
	assert.Equal(t, "8", stencil["cfg_scale"])
	assert.NotContains(t, color, "cfg_scale")
}

func TestGeneratePairDrawsSeed(t *testing.T) {
	rec := &pairRecorder{}
	server := pairServer(t, rec)

	client := NewClient(testAPIKey, server.URL)
	pair, err := client.GeneratePair(context.Background(), "dotwork mandala", "", "sd3.5-large", 0)
	require.NoError(t, err)

	// Seed 0 must never reach the provider: both legs share one drawn seed.
	assert.Greater(t, pair.Seed, int64(0))
	assert.LessOrEqual(t, pair.Seed, int64(4294967294))

	color, stencil := rec.byKind()
	require.NotNil(t, color)
	require.NotNil(t, stencil)
	assert.Equal(t, color["seed"], stencil["seed"])
	assert.NotEqual(t, "0", color["seed"])
}

func TestGeneratePairSiblingFailure(t *testing.T) {
	// The stencil leg is rejected by moderation; the whole pair must fail
	// with no partial result.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		prompt := r.MultipartForm.Value["prompt"][0]

		if strings.Contains(prompt, "stencil") {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("finish-reason", "SUCCESS")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(testAPIKey, server.URL)
	pair, err := client.GeneratePair(context.Background(), "dotwork mandala", "", "sd3.5-large", 7)
	require.Error(t, err)
	assert.Nil(t, pair)

	var target *ModerationError
	require.True(t, errors.As(err, &target))
}
