package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericmjl/canvas-research/pkg/llm"
	"github.com/ericmjl/canvas-research/pkg/search"
)

// summaryInputBudget is the rune budget for page content fed to the
// summarizer.
const summaryInputBudget = 10000

// isRelevant accepts a search result only when its title+snippet
// contains enough distinct words of the query: two matches, or one when
// the query has two words or fewer. Search engines pad result sets with
// loosely related pages; this filter suppresses them.
func isRelevant(query string, result search.Result) bool {
	words := distinctWords(query)
	if len(words) == 0 {
		return false
	}

	needed := 2
	if len(words) <= 2 {
		needed = 1
	}

	haystack := strings.ToLower(result.Title + " " + result.Snippet)
	matches := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			matches++
			if matches >= needed {
				return true
			}
		}
	}
	return false
}

func distinctWords(query string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

// genericTitles are placeholder page titles that lose to the search
// result's title when building a Source.
var genericTitles = map[string]bool{
	"":                 true,
	"untitled":         true,
	"access denied":    true,
	"just a moment...": true,
}

func pickTitle(fetched, fromSearch string) string {
	if genericTitles[strings.ToLower(strings.TrimSpace(fetched))] {
		return fromSearch
	}
	return fetched
}

// summarizePage condenses fetched page content into a short summary
// framed by the research instructions and the query that surfaced it.
func (o *Orchestrator) summarizePage(ctx context.Context, req Request, query string, result search.Result, title, content string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research instructions: %s\n", req.Instructions)
	if strings.TrimSpace(req.Context) != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	fmt.Fprintf(&b, "Found via query: %s\n", query)
	fmt.Fprintf(&b, "Page title: %s\nURL: %s\n", title, result.URL)
	if result.Snippet != "" {
		fmt.Fprintf(&b, "Search snippet: %s\n", result.Snippet)
	}
	b.WriteString("\nPage content:\n")
	b.WriteString(truncateRunes(content, summaryInputBudget))

	return o.LLM.Complete(ctx, llm.CompletionRequest{
		Model:       req.Model,
		System:      summarizePrompt,
		Prompt:      b.String(),
		Temperature: 0.3,
		APIKey:      req.APIKey,
		BaseURL:     req.BaseURL,
	})
}

// sourcesDigest renders the accumulated sources for the synthesis prompt
// and for the degraded fallback report.
func sourcesDigest(sources []Source) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   Summary: %s\n\n", i+1, src.Title, src.URL, src.Summary)
	}
	return b.String()
}

// learnedDigest renders up to the last n source summaries as context for
// adjacent query generation.
func learnedDigest(sources []Source, n int) string {
	if len(sources) > n {
		sources = sources[len(sources)-n:]
	}
	var b strings.Builder
	for _, src := range sources {
		fmt.Fprintf(&b, "- %s: %s\n", src.Title, src.Summary)
	}
	return b.String()
}

// synthesizeReport combines all accumulated sources into the final cited
// report. No output-length cap: the model's context window is the only
// limit.
func (o *Orchestrator) synthesizeReport(ctx context.Context, req Request, sources []Source) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research instructions: %s\n", req.Instructions)
	if strings.TrimSpace(req.Context) != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	b.WriteString("\nSources:\n\n")
	b.WriteString(sourcesDigest(sources))

	return o.LLM.Complete(ctx, llm.CompletionRequest{
		Model:       req.Model,
		System:      synthesizePrompt,
		Prompt:      b.String(),
		Temperature: 0.5,
		APIKey:      req.APIKey,
		BaseURL:     req.BaseURL,
	})
}

// fallbackReport stands in for the synthesized report when the synthesis
// call itself fails. The run degrades rather than erroring out.
func fallbackReport(sources []Source, synthErr error) string {
	var b strings.Builder
	b.WriteString("# Research Sources\n\n")
	b.WriteString("Report synthesis failed; the collected sources are listed below.\n\n")
	b.WriteString(sourcesDigest(sources))
	fmt.Fprintf(&b, "\n> Synthesis error: %v\n", synthErr)
	return b.String()
}

// incompleteNotice is appended when the report does not end in
// sentence-final punctuation or a structural delimiter. Truncation
// cannot be detected reliably; this only flags the risk.
const incompleteNotice = "\n\n*Note: the report may be incomplete.*"

func looksComplete(report string) bool {
	trimmed := strings.TrimRight(report, " \t\n")
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	last := runes[len(runes)-1]
	switch last {
	case '.', '!', '?', ':', ')', ']', '"', '\'', '`', '|', '*', '_':
		return true
	}
	return false
}
