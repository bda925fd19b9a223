// Package research implements the iterative deep-research loop: seed
// query generation, web search with retry, relevance filtering,
// bounded-concurrency fetch+summarize, a continuation policy, and final
// report synthesis, all streamed to the caller as progress events.
package research

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ericmjl/canvas-research/pkg/fetch"
	"github.com/ericmjl/canvas-research/pkg/llm"
	"github.com/ericmjl/canvas-research/pkg/search"
)

// Options tune orchestrator behavior that is not part of the per-request
// bounds.
type Options struct {
	// MinIterations is the iteration floor: the loop runs at least
	// min(MinIterations, MaxIterations) rounds before "reached max
	// sources" may stop it early.
	MinIterations int

	// Concurrency caps simultaneous in-flight fetch+summarize tasks.
	Concurrency int

	// SearchRetries and RetryBaseDelay govern search backoff: after a
	// failed or empty attempt the orchestrator waits base, 2*base,
	// 4*base, ... between retries.
	SearchRetries  int
	RetryBaseDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinIterations:  3,
		Concurrency:    6,
		SearchRetries:  3,
		RetryBaseDelay: 2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinIterations <= 0 {
		o.MinIterations = def.MinIterations
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.SearchRetries <= 0 {
		o.SearchRetries = def.SearchRetries
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = def.RetryBaseDelay
	}
	return o
}

// Orchestrator drives research runs. It is stateless across runs; all
// mutable run state lives in the per-request run object, so concurrent
// requests never interfere.
type Orchestrator struct {
	LLM     llm.Completer
	Search  Searcher
	Fetch   fetch.Fetcher
	Archive Archiver // optional
	Logger  *slog.Logger
	Options Options
}

func NewOrchestrator(completer llm.Completer, searcher Searcher, fetcher fetch.Fetcher) *Orchestrator {
	return &Orchestrator{
		LLM:     completer,
		Search:  searcher,
		Fetch:   fetcher,
		Logger:  slog.Default(),
		Options: DefaultOptions(),
	}
}

// run holds the mutable state of one research request. seenQueries keys
// are lowercased; seenURLs and sources are only mutated by the control
// loop, and URLs are claimed before fetch tasks are dispatched so two
// batches can never race on the same URL.
type run struct {
	o    *Orchestrator
	req  Request
	opts Options

	seenQueries map[string]bool
	queryOrder  []string
	seenURLs    map[string]bool
	pending     []string
	sources     []Source
}

// candidate is a filtered search result scheduled for fetch+summarize.
type candidate struct {
	result    search.Result
	query     string
	iteration int
}

// Stream runs the research request and yields progress events in order.
// The sequence ends with exactly one terminal event: done on success,
// error on the fatal conditions (nothing relevant on the first
// iteration, or zero sources at synthesis time). Stopping consumption
// stops the stream; in-flight fetch tasks drain in the background.
func (o *Orchestrator) Stream(ctx context.Context, req Request) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if err := req.Validate(); err != nil {
			yield(errorEvent(err.Error()))
			return
		}
		req.Clamp()

		r := &run{
			o:           o,
			req:         req,
			opts:        o.Options.withDefaults(),
			seenQueries: make(map[string]bool),
			seenURLs:    make(map[string]bool),
		}
		r.execute(ctx, yield)
	}
}

func (r *run) execute(ctx context.Context, yield func(Event) bool) {
	o := r.o
	gen := &queryGenerator{llm: o.LLM, req: r.req, logger: o.Logger}

	if !yield(statusEvent("Generating search queries...")) {
		return
	}

	r.pending = gen.seed(ctx)
	if len(r.pending) == 0 {
		// Degrade to searching the instructions themselves.
		r.pending = []string{truncateRunes(strings.TrimSpace(r.req.Instructions), fallbackQueryLength)}
	}
	o.Logger.Info("seed queries generated", "count", len(r.pending))

	minIterations := r.opts.MinIterations
	if r.req.MaxIterations < minIterations {
		minIterations = r.req.MaxIterations
	}

	for iteration := 1; ; iteration++ {
		selected := r.selectQueries()
		if len(selected) == 0 {
			if !yield(statusEvent("No new queries to explore; wrapping up.")) {
				return
			}
			break
		}

		if !yield(statusEvent(fmt.Sprintf("Iteration %d: searching %d queries...", iteration, len(selected)))) {
			return
		}

		candidates := r.gatherCandidates(ctx, iteration, selected)

		if len(candidates) == 0 {
			if iteration == 1 && len(r.sources) == 0 {
				yield(errorEvent("no relevant results found for the initial queries; try rephrasing the research instructions"))
				return
			}
			if !yield(statusEvent("No new relevant results this round; trying different angles.")) {
				return
			}
		} else {
			// Claim URLs before dispatch so later iterations skip them even
			// if a task fails.
			for _, cand := range candidates {
				r.seenURLs[cand.result.URL] = true
			}

			budget := r.req.MaxSources - len(r.sources)
			if len(candidates) > budget {
				candidates = candidates[:budget]
			}

			if len(candidates) > 0 {
				if !yield(statusEvent(fmt.Sprintf("Reading %d sources...", len(candidates)))) {
					return
				}
				if !r.fetchBatch(ctx, candidates, yield) {
					return
				}
			}
		}

		// Continuation policy: always run the iteration floor, then keep
		// going while both budget and iteration headroom remain.
		if iteration >= minIterations && (iteration >= r.req.MaxIterations || len(r.sources) >= r.req.MaxSources) {
			break
		}

		r.replenishQueries(ctx, gen)
	}

	r.synthesize(ctx, yield)
}

// selectQueries takes up to MaxQueriesPerIteration pending queries that
// have not been searched before and marks them seen. Unselected queries
// stay pending for later iterations.
func (r *run) selectQueries() []string {
	var selected []string
	var remaining []string
	for _, q := range r.pending {
		key := strings.ToLower(q)
		if r.seenQueries[key] {
			continue
		}
		if len(selected) >= r.req.MaxQueriesPerIteration {
			remaining = append(remaining, q)
			continue
		}
		r.seenQueries[key] = true
		r.queryOrder = append(r.queryOrder, q)
		selected = append(selected, q)
	}
	r.pending = remaining
	return selected
}

// gatherCandidates searches each query, applies the relevance filter and
// deduplicates against previously seen URLs and within the iteration.
func (r *run) gatherCandidates(ctx context.Context, iteration int, queries []string) []candidate {
	o := r.o
	inIteration := make(map[string]bool)
	var candidates []candidate

	for _, query := range queries {
		results := r.searchWithRetry(ctx, query)

		kept := 0
		for _, res := range results {
			if res.URL == "" || r.seenURLs[res.URL] || inIteration[res.URL] {
				continue
			}
			if !isRelevant(query, res) {
				continue
			}
			inIteration[res.URL] = true
			candidates = append(candidates, candidate{result: res, query: query, iteration: iteration})
			kept++
		}
		o.Logger.Info("query searched", "query", query, "results", len(results), "relevant", kept)
	}

	return candidates
}

// searchWithRetry retries transient failures and empty result sets with
// exponential backoff. Exhausted retries degrade to zero results.
func (r *run) searchWithRetry(ctx context.Context, query string) []search.Result {
	o := r.o
	delay := r.opts.RetryBaseDelay

	for attempt := 0; ; attempt++ {
		results, err := o.Search.Search(ctx, query, r.req.MaxResultsPerQuery)
		if err == nil && len(results) > 0 {
			return results
		}
		if attempt >= r.opts.SearchRetries {
			if err != nil {
				o.Logger.Warn("search failed after retries", "query", query, "error", err)
			}
			return nil
		}
		if err != nil {
			o.Logger.Warn("search failed, retrying", "query", query, "attempt", attempt+1, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// fetchBatch runs fetch+summarize for the candidates with at most
// opts.Concurrency tasks in flight, appending sources and emitting
// source events in completion order. Returns false when the consumer
// stopped; outstanding tasks still drain into the buffered channel.
func (r *run) fetchBatch(ctx context.Context, candidates []candidate, yield func(Event) bool) bool {
	results := make(chan *Source, len(candidates))
	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup

	for _, cand := range candidates {
		wg.Add(1)
		go func(cand candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- r.fetchAndSummarize(ctx, cand)
		}(cand)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for src := range results {
		if src == nil {
			continue
		}
		r.sources = append(r.sources, *src)
		if !yield(sourceEvent(*src)) {
			return false
		}
	}
	return true
}

// fetchAndSummarize produces a Source for one URL, or nil when any step
// fails. Failures here never abort sibling tasks.
func (r *run) fetchAndSummarize(ctx context.Context, cand candidate) *Source {
	o := r.o
	res := cand.result

	page, err := o.Fetch.Fetch(ctx, res.URL)
	if err != nil {
		o.Logger.Warn("fetch failed, skipping source", "url", res.URL, "error", err)
		return nil
	}
	if strings.TrimSpace(page.Content) == "" {
		return nil
	}

	title := pickTitle(page.Title, res.Title)

	summary, err := o.summarizePage(ctx, r.req, cand.query, res, title, page.Content)
	if err != nil {
		o.Logger.Warn("summarization failed, skipping source", "url", res.URL, "error", err)
		return nil
	}

	src := &Source{
		URL:       res.URL,
		Title:     title,
		Snippet:   res.Snippet,
		Summary:   strings.TrimSpace(summary),
		Iteration: cand.iteration,
		Query:     cand.query,
	}

	if o.Archive != nil {
		if err := o.Archive.Archive(ctx, *src, page.Content); err != nil {
			o.Logger.Warn("failed to archive source", "url", res.URL, "error", err)
		}
	}

	return src
}

// adjacentContext sizes: how much accumulated state is shown to the
// model when generating follow-up queries.
const (
	adjacentSourceWindow = 15
	adjacentQueryWindow  = 20
)

// replenishQueries generates adjacent queries for the next iteration,
// falling back to deterministic modifier queries when the model yields
// fewer than two usable ones.
func (r *run) replenishQueries(ctx context.Context, gen *queryGenerator) {
	recent := r.queryOrder
	if len(recent) > adjacentQueryWindow {
		recent = recent[len(recent)-adjacentQueryWindow:]
	}

	queries := gen.adjacent(ctx, learnedDigest(r.sources, adjacentSourceWindow), recent)

	usable := queries[:0]
	for _, q := range queries {
		if !r.seenQueries[strings.ToLower(q)] {
			usable = append(usable, q)
		}
	}

	if len(usable) < 2 {
		base := truncateRunes(strings.TrimSpace(r.req.Instructions), fallbackQueryLength)
		for _, mod := range fallbackModifiers {
			q := base + " " + mod
			if r.seenQueries[strings.ToLower(q)] {
				continue
			}
			usable = append(usable, q)
		}
		r.o.Logger.Info("using fallback adjacent queries", "count", len(usable))
	}

	r.pending = append(r.pending, usable...)
}

// synthesize emits the terminal portion of the stream: the report
// content, the citation list and done — or a single error event when no
// sources were ever collected.
func (r *run) synthesize(ctx context.Context, yield func(Event) bool) {
	o := r.o

	if len(r.sources) == 0 {
		yield(errorEvent("research produced no usable sources; cannot generate a report"))
		return
	}
	if len(r.sources) < 3 {
		if !yield(statusEvent(fmt.Sprintf("Only %d sources found; the report may be thin.", len(r.sources)))) {
			return
		}
	}

	if !yield(statusEvent(fmt.Sprintf("Synthesizing report from %d sources...", len(r.sources)))) {
		return
	}

	report, err := o.synthesizeReport(ctx, r.req, r.sources)
	if err != nil {
		o.Logger.Warn("report synthesis failed, degrading to source digest", "error", err)
		report = fallbackReport(r.sources, err)
	}
	if !looksComplete(report) {
		report += incompleteNotice
	}

	if !yield(contentEvent(report)) {
		return
	}

	citations := make([]Citation, 0, len(r.sources))
	for _, src := range r.sources {
		citations = append(citations, Citation{Title: src.Title, URL: src.URL})
	}
	if !yield(sourcesEvent(citations)) {
		return
	}

	yield(doneEvent())
}
