package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/answer"
	"github.com/brandlens/brandlens/internal/grounding"
	"github.com/brandlens/brandlens/internal/resilience"
	"github.com/brandlens/brandlens/internal/search"
	"github.com/brandlens/brandlens/internal/snippet"
)

var (
	askBrand        string
	askURL          string
	askQuestion     string
	askQuery        string
	askProvider     string
	askModel        string
	askGround       bool
	askMaxSearches  int
	askMaxSources   int
	askSnippetChars int
	askCompact      bool
	askMustLinkSite bool
	askRetries      int
	askTimeoutSecs  int
	askOut          string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question about a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyConfigDefaults(cmd)

		provider, err := buildProvider()
		if err != nil {
			return err
		}

		searchClient := search.NewClient(
			search.WithBaseURL(cfg.Search.BaseURL),
			search.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second,
			}),
		)
		fetcher := snippet.NewFetcher(
			snippet.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Snippet.TimeoutSecs) * time.Second,
			}),
		)

		orch := grounding.New(searchClient, fetcher, provider,
			grounding.WithFetchConcurrency(cfg.Snippet.MaxConcurrent),
		)

		payload := orch.Run(ctx, grounding.Request{
			Brand:        askBrand,
			SiteURL:      askURL,
			Question:     askQuestion,
			Query:        askQuery,
			Grounded:     askGround,
			MaxSearches:  askMaxSearches,
			MaxSources:   askMaxSources,
			SnippetChars: askSnippetChars,
			Compact:      askCompact,
			MustLinkSite: askMustLinkSite,
		})

		zap.L().Info("answer complete",
			zap.String("run_id", payload.Metadata.RunID),
			zap.String("model", payload.Metadata.Model),
			zap.Int("searches", payload.Metadata.Usage.Searches),
			zap.Int("sources_included", payload.Metadata.Usage.SourcesIncluded),
			zap.Int("citations", len(payload.Citations)),
		)

		return writePayload(payload)
	},
}

// applyConfigDefaults backfills flag values the caller left unset from
// the loaded configuration, so config.yaml governs defaults and flags
// govern overrides.
func applyConfigDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("max-searches") {
		askMaxSearches = cfg.Grounding.MaxSearches
	}
	if !flags.Changed("max-sources") {
		askMaxSources = cfg.Grounding.MaxSources
	}
	if !flags.Changed("snippet-chars") {
		askSnippetChars = cfg.Snippet.MaxChars
	}
	if !flags.Changed("compact") {
		askCompact = cfg.Answer.Compact
	}
	if !flags.Changed("retries") {
		askRetries = cfg.Answer.Retries
	}
	if !flags.Changed("timeout") {
		askTimeoutSecs = cfg.Answer.TimeoutSecs
	}
}

// buildProvider selects the generation backend once, per the configured
// or flag-supplied provider name. The empty and "placeholder" names both
// select the deterministic fallback backend.
func buildProvider() (answer.Provider, error) {
	name := askProvider
	if name == "" {
		name = cfg.Provider
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = askRetries + 1
	timeout := time.Duration(askTimeoutSecs) * time.Second

	switch name {
	case "", "placeholder":
		return answer.NewPlaceholder(), nil
	case "openai":
		model := askModel
		if model == "" {
			model = cfg.OpenAI.Model
		}
		return answer.NewOpenAI(answer.OpenAIConfig{
			APIKey:  cfg.OpenAI.Key,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   model,
			Timeout: timeout,
			Retry:   retry,
		}), nil
	case "anthropic":
		model := askModel
		if model == "" {
			model = cfg.Anthropic.Model
		}
		return answer.NewAnthropic(answer.AnthropicConfig{
			APIKey:  cfg.Anthropic.Key,
			BaseURL: cfg.Anthropic.BaseURL,
			Model:   model,
			Timeout: timeout,
			Retry:   retry,
		}), nil
	case "ollama":
		model := askModel
		if model == "" {
			model = cfg.Ollama.Model
		}
		return answer.NewOllama(answer.OllamaConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   model,
			Timeout: timeout,
			Retry:   retry,
		}), nil
	default:
		return nil, eris.Errorf("unknown provider %q (want openai, anthropic, ollama, or placeholder)", name)
	}
}

// writePayload emits the payload JSON to stdout or the --out file.
func writePayload(payload *grounding.Payload) error {
	out := os.Stdout
	if askOut != "" {
		f, err := os.Create(askOut)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func init() {
	askCmd.Flags().StringVar(&askBrand, "brand", "", "brand name (required)")
	askCmd.Flags().StringVar(&askURL, "url", "", "brand site URL (required)")
	askCmd.Flags().StringVar(&askQuestion, "question", "", "question text (required)")
	askCmd.Flags().StringVar(&askQuery, "query", "", "search query override (default \"<brand> <question>\")")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "generation backend: openai, anthropic, ollama, placeholder")
	askCmd.Flags().StringVar(&askModel, "model", "", "model identifier override")
	askCmd.Flags().BoolVar(&askGround, "ground", false, "search the web for grounding context")
	askCmd.Flags().IntVar(&askMaxSearches, "max-searches", 1, "search budget")
	askCmd.Flags().IntVar(&askMaxSources, "max-sources", 3, "source budget")
	askCmd.Flags().IntVar(&askSnippetChars, "snippet-chars", 500, "snippet size cap in characters")
	askCmd.Flags().BoolVar(&askCompact, "compact", false, "use the terse system instruction")
	askCmd.Flags().BoolVar(&askMustLinkSite, "must-link-site", false, "append the brand site URL when the answer omits it")
	askCmd.Flags().IntVar(&askRetries, "retries", 2, "retry count for transient generation failures")
	askCmd.Flags().IntVar(&askTimeoutSecs, "timeout", 60, "per-call generation timeout in seconds")
	askCmd.Flags().StringVar(&askOut, "out", "", "write the payload to this file instead of stdout")
	_ = askCmd.MarkFlagRequired("brand")
	_ = askCmd.MarkFlagRequired("url")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}
