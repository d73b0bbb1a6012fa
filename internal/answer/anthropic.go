package answer

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens/internal/resilience"
)

// AnthropicConfig configures the Anthropic messages backend.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each API call; zero keeps the SDK default.
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// AnthropicProvider generates answers through the Anthropic messages API.
type AnthropicProvider struct {
	client sdk.Client
	apiKey string
	model  string
	retry  resilience.RetryConfig
}

// NewAnthropic creates the Anthropic remote provider. The SDK's own retry
// loop is disabled so the shared retry policy governs all backends alike.
func NewAnthropic(cfg AnthropicConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}

	retry := cfg.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = anthropicShouldRetry
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	}

	return &AnthropicProvider{
		client: sdk.NewClient(opts...),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		retry:  retry,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic/" + p.model }

// Generate sends one message request, retrying 429/5xx and
// network-transient failures. A missing credential fails immediately.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if p.apiKey == "" {
		return nil, eris.Wrap(ErrMissingCredential, "anthropic provider")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: 1024,
		System:    []sdk.TextBlockParam{{Text: systemPrompt(req.Compact)}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt(req))),
		},
	}

	msg, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*sdk.Message, error) {
		return p.client.Messages.New(ctx, params)
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic provider: generate")
	}

	return validate(firstText(msg), p.Name())
}

// firstText returns the first text content block, if any.
func firstText(msg *sdk.Message) string {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

// anthropicShouldRetry treats 429 and 5xx API statuses as transient, plus
// the usual network-level failures.
func anthropicShouldRetry(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return resilience.IsRemoteTransientStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
