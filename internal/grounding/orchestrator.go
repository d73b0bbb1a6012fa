package grounding

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brandlens/brandlens/internal/answer"
	"github.com/brandlens/brandlens/internal/search"
	"github.com/brandlens/brandlens/internal/snippet"
	"github.com/brandlens/brandlens/internal/urlutil"
)

const defaultSnippetChars = 500

// Orchestrator wires the search client, snippet fetcher, and answer
// provider into one run of the pipeline.
type Orchestrator struct {
	search   search.Client
	fetch    snippet.Fetcher
	provider answer.Provider

	// fetchConcurrency bounds parallel snippet fetches over the already
	// selected candidates. Selection order is preserved regardless.
	fetchConcurrency int
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithFetchConcurrency allows up to n snippet fetches in flight. The
// default of 1 keeps fetching strictly sequential.
func WithFetchConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.fetchConcurrency = n
		}
	}
}

// New creates an orchestrator. A nil provider selects the deterministic
// placeholder backend.
func New(searchClient search.Client, fetcher snippet.Fetcher, provider answer.Provider, opts ...Option) *Orchestrator {
	if provider == nil {
		provider = answer.NewPlaceholder()
	}
	o := &Orchestrator{
		search:           searchClient,
		fetch:            fetcher,
		provider:         provider,
		fetchConcurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for one request. It never returns an error:
// search and fetch failures degrade to less context, generation failure
// degrades to the placeholder answer, and the payload is always complete.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Payload {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("brand", req.Brand))

	snippetChars := req.SnippetChars
	if snippetChars <= 0 {
		snippetChars = defaultSnippetChars
	}

	var (
		searchesUsed int
		pairs        []Pair
		contextURLs  []string
	)

	if req.Grounded && req.MaxSearches > 0 && req.MaxSources > 0 {
		candidates, used := o.selectSources(ctx, req, log)
		searchesUsed = used

		pairs = o.fetchSnippets(ctx, candidates, snippetChars, log)
		for _, p := range pairs {
			contextURLs = append(contextURLs, p.URL)
		}
	}

	contextBlock := BuildContext(pairs)

	markdown, model := o.generate(ctx, req, contextBlock, log)

	if req.MustLinkSite && !strings.Contains(markdown, req.SiteURL) {
		markdown += "\n\nLearn more at " + req.SiteURL
	}

	citations := urlutil.ExtractURLs(markdown)
	mentions := urlutil.ExtractMentions(markdown, req.Brand)

	used := dedupe(append(append([]string{}, citations...), contextURLs...))
	owned, external := urlutil.PartitionOwned(used, req.SiteURL)

	return &Payload{
		HumanResponseMarkdown: markdown,
		Citations:             citations,
		Mentions:              mentions,
		OwnedSources:          owned,
		Sources:               external,
		Metadata: Metadata{
			RunID: runID,
			Model: model,
			Budgets: Budgets{
				MaxSearches: req.MaxSearches,
				MaxSources:  req.MaxSources,
			},
			Usage: Usage{
				Searches:        searchesUsed,
				SourcesIncluded: len(pairs),
			},
		},
	}
}

// selectSources issues the single search call and orders candidates
// owned-first, truncated to the source budget. A failed or empty search
// consumes no search budget and falls back to the brand site alone.
func (o *Orchestrator) selectSources(ctx context.Context, req Request, log *zap.Logger) (candidates []string, searchesUsed int) {
	query := req.Query
	if query == "" {
		query = req.Brand + " " + req.Question
	}

	results, err := o.search.Search(ctx, query)
	if err != nil {
		log.Warn("search failed, falling back to brand site", zap.Error(err))
	}
	if len(results) == 0 {
		// Brand-site fallback is not a search.
		return []string{req.SiteURL}, 0
	}

	owned, external := urlutil.PartitionOwned(results, req.SiteURL)
	candidates = append(owned, external...)
	if len(candidates) > req.MaxSources {
		candidates = candidates[:req.MaxSources]
	}
	return candidates, 1
}

// fetchSnippets fetches the selected candidates, skipping failures and
// empty snippets. Fetches may run in parallel but results keep selection
// order.
func (o *Orchestrator) fetchSnippets(ctx context.Context, urls []string, maxChars int, log *zap.Logger) []Pair {
	texts := make([]string, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.fetchConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			text, err := o.fetch.Fetch(gCtx, u, maxChars)
			if err != nil {
				log.Warn("snippet fetch failed, skipping source",
					zap.String("url", u),
					zap.Error(err),
				)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var pairs []Pair
	for i, u := range urls {
		if strings.TrimSpace(texts[i]) == "" {
			continue
		}
		pairs = append(pairs, Pair{URL: u, Text: texts[i]})
	}
	return pairs
}

// generate invokes the provider and substitutes the deterministic
// placeholder on any failure, annotating the model identifier.
func (o *Orchestrator) generate(ctx context.Context, req Request, contextBlock string, log *zap.Logger) (markdown, model string) {
	result, err := o.provider.Generate(ctx, answer.Request{
		Brand:    req.Brand,
		SiteURL:  req.SiteURL,
		Question: req.Question,
		Context:  contextBlock,
		Compact:  req.Compact,
	})
	if err != nil {
		log.Warn("generation failed, using placeholder answer",
			zap.String("provider", o.provider.Name()),
			zap.Error(err),
		)
		return answer.PlaceholderText(req.Brand, req.SiteURL, req.Question),
			o.provider.Name() + " (fallback: placeholder)"
	}
	return result.Markdown, result.Model
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(urls []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
