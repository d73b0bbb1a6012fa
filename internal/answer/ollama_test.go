package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/pkg/ollama"
)

func newOllamaServer(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllama(OllamaConfig{
		BaseURL: srv.URL,
		Model:   "llama3.1",
		Retry:   fastRetry(),
	})
}

func TestOllamaGenerate_Success(t *testing.T) {
	var gotReq ollama.GenerateRequest
	p := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"response":"Acme sells anvils.","done":true}`))
	})

	res, err := p.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Acme sells anvils.", res.Markdown)
	assert.Equal(t, "ollama/llama3.1", res.Model)

	// Single flattened prompt: instruction line first, then the brand block.
	assert.True(t, strings.HasPrefix(gotReq.Prompt, systemVerbose), "prompt should lead with the instruction")
	assert.Contains(t, gotReq.Prompt, "Brand: Acme")
	assert.Contains(t, gotReq.Prompt, "Context from sources:")
}

func TestOllamaGenerate_CompactInstruction(t *testing.T) {
	var gotReq ollama.GenerateRequest
	p := newOllamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	})

	req := testRequest()
	req.Compact = true
	_, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotReq.Prompt, systemCompact))
}

func TestOllamaGenerate_RetriesServerError(t *testing.T) {
	var attempts atomic.Int32
	p := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"response":"recovered","done":true}`))
	})

	res, err := p.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Markdown)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestOllamaGenerate_NoRetryOnRateLimit(t *testing.T) {
	var attempts atomic.Int32
	p := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Generate(context.Background(), testRequest())
	require.Error(t, err)
	// Local endpoint: 429 is not transient, one attempt only.
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllamaGenerate_EmptyResponseIsFailure(t *testing.T) {
	p := newOllamaServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"","done":true}`))
	})

	_, err := p.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestOllamaShouldRetry(t *testing.T) {
	assert.True(t, ollamaShouldRetry(&ollama.APIError{StatusCode: 500}))
	assert.False(t, ollamaShouldRetry(&ollama.APIError{StatusCode: 429}))
	assert.False(t, ollamaShouldRetry(&ollama.APIError{StatusCode: 404}))
}
