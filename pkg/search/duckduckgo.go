// Package search queries the DuckDuckGo HTML endpoint. No API key is
// required, but the endpoint rate-limits aggressively, so callers should
// retry with backoff.
package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Result is a single search engine result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Client scrapes the DuckDuckGo HTML endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Logger     *slog.Logger
}

const defaultBaseURL = "https://html.duckduckgo.com/html/"

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		BaseURL:    defaultBaseURL,
		Logger:     slog.Default(),
	}
}

var (
	resultRe  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	snippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// Search returns up to maxResults results for the query. Rate limiting
// and empty response bodies surface as errors so the caller can apply
// its own retry policy.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CanvasResearch/1.0)")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d for query %q", resp.StatusCode, query)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	results := parseResults(string(body), maxResults)
	c.Logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

func parseResults(page string, maxResults int) []Result {
	links := resultRe.FindAllStringSubmatch(page, -1)
	snippets := snippetRe.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range links {
		if len(results) >= maxResults {
			break
		}

		href := resolveRedirect(m[1])
		title := cleanText(m[2])
		if href == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = cleanText(snippets[i][1])
		}

		results = append(results, Result{
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
	}
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<encoded> redirect links
// to the target URL.
func resolveRedirect(href string) string {
	href = html.UnescapeString(href)

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}

func cleanText(fragment string) string {
	text := tagRe.ReplaceAllString(fragment, "")
	return strings.TrimSpace(html.UnescapeString(text))
}
