package answer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens/internal/resilience"
	"github.com/brandlens/brandlens/pkg/openai"
)

// OpenAIConfig configures the OpenAI-compatible remote backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each HTTP call; zero keeps the client default.
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// OpenAIProvider generates answers through an OpenAI-compatible chat
// completion API.
type OpenAIProvider struct {
	client openai.Client
	apiKey string
	model  string
	retry  resilience.RetryConfig
}

// NewOpenAI creates the remote chat-completion provider.
func NewOpenAI(cfg OpenAIConfig, opts ...openai.Option) *OpenAIProvider {
	clientOpts := opts
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	clientOpts = append(clientOpts, openai.WithModel(cfg.Model))

	retry := cfg.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = openaiShouldRetry
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("openai", "chat_completion")
	}

	return &OpenAIProvider{
		client: openai.NewClient(cfg.APIKey, clientOpts...),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		retry:  retry,
	}
}

func (p *OpenAIProvider) Name() string { return "openai/" + p.model }

// Generate sends one chat completion request, retrying 429/5xx and
// network-transient failures. A missing credential fails immediately.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if p.apiKey == "" {
		return nil, eris.Wrap(ErrMissingCredential, "openai provider")
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt(req.Compact)},
			{Role: "user", Content: userPrompt(req)},
		},
	}

	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*openai.ChatCompletionResponse, error) {
		return p.client.ChatCompletion(ctx, chatReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai provider: generate")
	}

	if len(resp.Choices) == 0 {
		return nil, eris.New("openai provider: no choices in response")
	}
	return validate(resp.Choices[0].Message.Content, p.Name())
}

// openaiShouldRetry treats 429 and 5xx API statuses as transient, plus
// the usual network-level failures.
func openaiShouldRetry(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsRemoteTransientStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
