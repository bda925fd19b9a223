package research

import (
	"strings"
	"testing"

	"github.com/ericmjl/canvas-research/pkg/search"
)

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		result search.Result
		want   bool
	}{
		{
			name:   "two word matches accepted",
			query:  "green tea health benefits",
			result: search.Result{Title: "Green tea and you", Snippet: "A look at tea."},
			want:   true,
		},
		{
			name:   "one match rejected for long query",
			query:  "green tea health benefits",
			result: search.Result{Title: "Coffee culture", Snippet: "All about green coffee."},
			want:   false,
		},
		{
			name:   "single-word query needs one match",
			query:  "matcha",
			result: search.Result{Title: "Matcha preparation", Snippet: ""},
			want:   true,
		},
		{
			name:   "two-word query needs one match",
			query:  "green tea",
			result: search.Result{Title: "Tea ceremonies of Japan", Snippet: ""},
			want:   true,
		},
		{
			name:   "case folded",
			query:  "GREEN TEA",
			result: search.Result{Title: "green tea guide", Snippet: ""},
			want:   true,
		},
		{
			name:   "no match rejected",
			query:  "green tea",
			result: search.Result{Title: "Stock market report", Snippet: "Prices rose."},
			want:   false,
		},
		{
			name:   "repeated query words counted once",
			query:  "tea tea tea benefits extra",
			result: search.Result{Title: "tea", Snippet: ""},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRelevant(tt.query, tt.result); got != tt.want {
				t.Errorf("isRelevant(%q, %+v) = %v, want %v", tt.query, tt.result, got, tt.want)
			}
		})
	}
}

func TestPickTitle(t *testing.T) {
	tests := []struct {
		name       string
		fetched    string
		fromSearch string
		want       string
	}{
		{"fetched preferred", "Deep Dive on Green Tea", "green tea - example.com", "Deep Dive on Green Tea"},
		{"empty falls back", "", "Search Title", "Search Title"},
		{"untitled falls back", "Untitled", "Search Title", "Search Title"},
		{"access denied falls back", "Access Denied", "Search Title", "Search Title"},
		{"cloudflare interstitial falls back", "Just a moment...", "Search Title", "Search Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickTitle(tt.fetched, tt.fromSearch); got != tt.want {
				t.Errorf("pickTitle(%q, %q) = %q, want %q", tt.fetched, tt.fromSearch, got, tt.want)
			}
		})
	}
}

func TestLooksComplete(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   bool
	}{
		{"sentence end", "The report concludes here.", true},
		{"trailing newline", "Done!\n\n", true},
		{"table row", "| a | b |", true},
		{"mid sentence", "and therefore the main factor is", false},
		{"empty", "", false},
		{"closing emphasis", "findings were *significant*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksComplete(tt.report); got != tt.want {
				t.Errorf("looksComplete(%q) = %v, want %v", tt.report, got, tt.want)
			}
		})
	}
}

func TestFallbackReportContainsSources(t *testing.T) {
	sources := []Source{
		{URL: "https://example.com/a", Title: "A", Summary: "alpha"},
		{URL: "https://example.com/b", Title: "B", Summary: "beta"},
	}

	report := fallbackReport(sources, errContextLength)
	if !strings.Contains(report, "https://example.com/a") || !strings.Contains(report, "beta") {
		t.Errorf("fallback report missing source digest: %q", report)
	}
	if !strings.Contains(report, "Synthesis error") {
		t.Errorf("fallback report missing error note: %q", report)
	}
}

func TestLearnedDigestWindow(t *testing.T) {
	var sources []Source
	for i := 0; i < 20; i++ {
		sources = append(sources, Source{Title: "t", Summary: "s"})
	}

	digest := learnedDigest(sources, 15)
	if got := strings.Count(digest, "\n"); got != 15 {
		t.Errorf("expected digest limited to 15 entries, got %d", got)
	}
}
