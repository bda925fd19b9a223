package research

import (
	"context"
	"strings"

	"github.com/ericmjl/canvas-research/pkg/search"
)

// Request is the inbound research request. Bounds are clamped before the
// run starts; the orchestrator never trusts caller-supplied values.
type Request struct {
	Instructions string `json:"instructions"`
	Context      string `json:"context,omitempty"`
	Model        string `json:"model,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`

	MaxIterations          int `json:"max_iterations,omitempty"`
	MaxSources             int `json:"max_sources,omitempty"`
	MaxQueriesPerIteration int `json:"max_queries_per_iteration,omitempty"`
	MaxResultsPerQuery     int `json:"max_results_per_query,omitempty"`
}

// Bound clamp ranges.
const (
	minIterationsBound = 1
	maxIterationsBound = 8
	minSourcesBound    = 5
	maxSourcesBound    = 80
	minQueriesPerIter  = 1
	maxQueriesPerIter  = 8
	minResultsPerQuery = 1
	maxResultsPerQuery = 25
)

// Defaults applied when a bound is unset (zero).
const (
	defaultIterations      = 3
	defaultSources         = 20
	defaultQueriesPerIter  = 3
	defaultResultsPerQuery = 8
)

// Validate reports whether the request can be run at all.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Instructions) == "" {
		return ErrEmptyInstructions
	}
	return nil
}

// Clamp normalizes all bounds into their safe ranges, substituting
// defaults for unset values first.
func (r *Request) Clamp() {
	r.MaxIterations = clamp(orDefault(r.MaxIterations, defaultIterations), minIterationsBound, maxIterationsBound)
	r.MaxSources = clamp(orDefault(r.MaxSources, defaultSources), minSourcesBound, maxSourcesBound)
	r.MaxQueriesPerIteration = clamp(orDefault(r.MaxQueriesPerIteration, defaultQueriesPerIter), minQueriesPerIter, maxQueriesPerIter)
	r.MaxResultsPerQuery = clamp(orDefault(r.MaxResultsPerQuery, defaultResultsPerQuery), minResultsPerQuery, maxResultsPerQuery)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Source is a single web page that was fetched, summarized and retained
// as evidence for the report. Immutable once appended to the run.
type Source struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
	Summary   string `json:"summary"`
	Iteration int    `json:"iteration"`
	Query     string `json:"query"`
}

// Citation is the (title, url) pair listed in the final sources event.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Searcher is the external search engine collaborator. It may return
// fewer results than requested or fail on rate limits; the orchestrator
// applies its own retry and backoff.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Archiver receives each completed source together with the fetched page
// content. Archive failures degrade (they are logged) but never affect
// the run.
type Archiver interface {
	Archive(ctx context.Context, src Source, content string) error
}
