package search

import "testing"

const samplePage = `
<div class="result results_links results_links_deep web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fgreen-tea&amp;rut=abc">Green Tea <b>Benefits</b></a>
  </h2>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fgreen-tea">Green tea is rich in <b>antioxidants</b> &amp; polyphenols.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://example.org/matcha">Matcha Guide</a>
  <a class="result__snippet" href="https://example.org/matcha">Everything about matcha.</a>
</div>
`

func TestParseResults(t *testing.T) {
	results := parseResults(samplePage, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].URL != "https://example.com/green-tea" {
		t.Errorf("redirect not resolved: %q", results[0].URL)
	}
	if results[0].Title != "Green Tea Benefits" {
		t.Errorf("tags not stripped from title: %q", results[0].Title)
	}
	if results[0].Snippet != "Green tea is rich in antioxidants & polyphenols." {
		t.Errorf("unexpected snippet: %q", results[0].Snippet)
	}

	if results[1].URL != "https://example.org/matcha" {
		t.Errorf("plain link mangled: %q", results[1].URL)
	}
}

func TestParseResultsCap(t *testing.T) {
	results := parseResults(samplePage, 1)
	if len(results) != 1 {
		t.Fatalf("expected results capped at 1, got %d", len(results))
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"uddg redirect", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa&rut=x", "https://example.com/a"},
		{"plain https", "https://example.com/b", "https://example.com/b"},
		{"javascript", "javascript:void(0)", ""},
		{"relative", "/settings", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRedirect(tt.href); got != tt.want {
				t.Errorf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
