// Package grounding runs the answer pipeline: budget-gated search, source
// selection, snippet fetching, provider-backed generation with fallback,
// and citation-classified payload assembly.
package grounding

// Request is the immutable input for one run.
type Request struct {
	Brand    string
	SiteURL  string
	Question string

	// Query overrides the search query; empty means "<brand> <question>".
	Query string

	// Grounded requests web context. Grounding still requires both
	// budgets to be strictly positive.
	Grounded bool

	// MaxSearches caps search calls. The pipeline issues at most one
	// search regardless; the budget gates whether searching happens.
	MaxSearches int

	// MaxSources caps how many candidates are fetched for context.
	MaxSources int

	// SnippetChars caps each snippet's length. Zero means the default.
	SnippetChars int

	Compact      bool
	MustLinkSite bool
}

// Payload is the final accounted output of one run.
type Payload struct {
	HumanResponseMarkdown string   `json:"human_response_markdown"`
	Citations             []string `json:"citations"`
	Mentions              []string `json:"mentions"`
	OwnedSources          []string `json:"owned_sources"`
	Sources               []string `json:"sources"`
	Metadata              Metadata `json:"metadata"`
}

// Metadata records provenance and budget accounting.
type Metadata struct {
	RunID   string  `json:"run_id"`
	Model   string  `json:"model"`
	Budgets Budgets `json:"budgets"`
	Usage   Usage   `json:"usage"`
}

// Budgets echoes the caller-supplied caps, never mutated by usage.
type Budgets struct {
	MaxSearches int `json:"max_searches"`
	MaxSources  int `json:"max_sources"`
}

// Usage counts what the run actually spent.
type Usage struct {
	Searches        int `json:"searches"`
	SourcesIncluded int `json:"sources_included"`
}
