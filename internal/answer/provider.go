// Package answer abstracts answer generation over interchangeable
// backends: an OpenAI-compatible chat API, the Anthropic messages API,
// and a local Ollama endpoint. Every backend sits behind the same
// single-method Provider capability so the orchestrator never branches
// on backend specifics.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredential is returned when a remote backend is asked to
// generate without an API credential. It is never retried.
var ErrMissingCredential = errors.New("missing API credential")

// Request carries everything a backend needs to produce an answer.
type Request struct {
	Brand    string
	SiteURL  string
	Question string
	// Context is the rendered source block; empty means ungrounded.
	Context string
	// Compact selects the terse system instruction over the verbose one.
	Compact bool
}

// Result is a successful generation: non-empty trimmed markdown plus the
// provider/model identifier that produced it.
type Result struct {
	Markdown string
	Model    string
}

// Provider generates a markdown answer for one request.
type Provider interface {
	// Name identifies the provider/model, e.g. "openai/gpt-4o-mini".
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Placeholder is the no-model provider: it always succeeds with a
// deterministic templated answer. It also supplies the text substituted
// when a live backend fails.
type Placeholder struct{}

// NewPlaceholder creates the deterministic fallback provider.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Generate(_ context.Context, req Request) (*Result, error) {
	return &Result{
		Markdown: PlaceholderText(req.Brand, req.SiteURL, req.Question),
		Model:    p.Name(),
	}, nil
}

// PlaceholderText renders the deterministic fallback answer. It is the
// guarantee that the pipeline always emits non-empty markdown.
func PlaceholderText(brand, siteURL, question string) string {
	return fmt.Sprintf(
		"**%s**\n\nA live answer to %q is not available right now. %s publishes details at %s.",
		brand, question, brand, siteURL,
	)
}

// validate rejects empty or whitespace-only generated content. A blank
// completion on HTTP 200 is a failure, not a valid result.
func validate(text, model string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: empty completion content", model)
	}
	return &Result{Markdown: trimmed, Model: model}, nil
}
