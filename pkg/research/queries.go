package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericmjl/canvas-research/internal/jsonx"
	"github.com/ericmjl/canvas-research/pkg/llm"
)

// Requested query counts. The model is asked for these ranges but not
// trusted to obey them; results are truncated and deduplicated here.
const (
	seedQueryCap     = 6
	adjacentQueryCap = 5
)

// fallbackQueryLength is the rune budget when the raw instructions are
// used directly as a search query.
const fallbackQueryLength = 100

// queryGenerator turns instructions and accumulated context into search
// queries via the completion model.
type queryGenerator struct {
	llm    llm.Completer
	req    Request
	logger *slog.Logger
}

// seed generates the initial queries from instructions and context
// alone. Returns an empty slice on total parse failure; the caller
// supplies a fallback.
func (g *queryGenerator) seed(ctx context.Context) []string {
	prompt := "Research instructions: " + g.req.Instructions
	if strings.TrimSpace(g.req.Context) != "" {
		prompt += "\n\nContext:\n" + g.req.Context
	}

	return g.generate(ctx, seedQueriesPrompt, prompt, seedQueryCap)
}

// adjacent generates follow-up queries given a digest of what has been
// learned and the previously tried queries as negative examples.
func (g *queryGenerator) adjacent(ctx context.Context, learned string, previous []string) []string {
	var b strings.Builder
	b.WriteString("Research instructions: ")
	b.WriteString(g.req.Instructions)
	if strings.TrimSpace(g.req.Context) != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(g.req.Context)
	}
	if learned != "" {
		b.WriteString("\n\nLearned so far:\n")
		b.WriteString(learned)
	}
	if len(previous) > 0 {
		b.WriteString("\n\nAlready tried (do not repeat):\n")
		for _, q := range previous {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	return g.generate(ctx, adjacentQueriesPrompt, b.String(), adjacentQueryCap)
}

func (g *queryGenerator) generate(ctx context.Context, system, prompt string, limit int) []string {
	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Model:       g.req.Model,
		System:      system,
		Prompt:      prompt,
		Temperature: 0.7,
		APIKey:      g.req.APIKey,
		BaseURL:     g.req.BaseURL,
	})
	if err != nil {
		g.logger.Warn("query generation failed", "error", err)
		return nil
	}

	queries, err := jsonx.UnmarshalArray(resp)
	if err != nil {
		g.logger.Warn("failed to parse queries from model output", "error", err)
		return nil
	}

	queries = dedupeQueries(queries)
	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

// dedupeQueries removes empty and case-insensitively duplicate queries,
// preserving order. First occurrence wins.
func dedupeQueries(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// fallbackModifiers are appended to the instructions to form
// deterministic follow-up queries when the model yields too few.
var fallbackModifiers = []string{"overview", "tutorial", "how to", "examples", "best practices"}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
