package answer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens/internal/resilience"
	"github.com/brandlens/brandlens/pkg/ollama"
)

// OllamaConfig configures the local generation backend.
type OllamaConfig struct {
	BaseURL string
	Model   string
	// Timeout bounds each HTTP call; zero keeps the client default.
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// OllamaProvider generates answers through a local Ollama endpoint. No
// credential is required.
type OllamaProvider struct {
	client ollama.Client
	model  string
	retry  resilience.RetryConfig
}

// NewOllama creates the local generation provider.
func NewOllama(cfg OllamaConfig, opts ...ollama.Option) *OllamaProvider {
	clientOpts := opts
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, ollama.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	clientOpts = append(clientOpts, ollama.WithModel(cfg.Model))

	retry := cfg.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = ollamaShouldRetry
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("ollama", "generate")
	}

	return &OllamaProvider{
		client: ollama.NewClient(clientOpts...),
		model:  cfg.Model,
		retry:  retry,
	}
}

func (p *OllamaProvider) Name() string { return "ollama/" + p.model }

// Generate sends one flattened-prompt request, retrying 5xx and
// network-transient failures only.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	genReq := ollama.GenerateRequest{
		Model:  p.model,
		Prompt: flatPrompt(req),
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*ollama.GenerateResponse, error) {
		return p.client.Generate(ctx, genReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "ollama provider: generate")
	}

	return validate(resp.Response, p.Name())
}

// ollamaShouldRetry retries 5xx and network failures. 429 is excluded:
// a single-tenant local endpoint does not rate-limit its caller.
func ollamaShouldRetry(err error) bool {
	var apiErr *ollama.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsLocalTransientStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
