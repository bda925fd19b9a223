// Package fetch retrieves web pages as markdown. The primary strategy is
// the Jina Reader API, which converts most public pages cleanly; direct
// HTTP fetch plus HTML-to-markdown conversion is the fallback.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Page is fetched page content as markdown or plain text.
type Page struct {
	Title   string
	Content string
}

// Fetcher fetches a URL and returns its content. Non-2xx and
// blocked-domain responses surface as errors.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (Page, error)
}

// Client fetches pages via Jina Reader with a direct-fetch fallback. The
// HTTP client is shared so connections are reused across a research run.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     slog.Default(),
	}
}

func (c *Client) Fetch(ctx context.Context, pageURL string) (Page, error) {
	page, jinaErr := c.fetchViaJina(ctx, pageURL)
	if jinaErr == nil {
		return page, nil
	}
	c.Logger.Warn("Jina Reader failed, falling back to direct fetch", "url", pageURL, "error", jinaErr)

	page, directErr := c.fetchDirectly(ctx, pageURL)
	if directErr != nil {
		return Page{}, fmt.Errorf("all fetch strategies failed: jina: %v; direct: %w", jinaErr, directErr)
	}
	return page, nil
}

// fetchViaJina fetches via the Jina Reader API, which returns markdown.
func (c *Client) fetchViaJina(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://r.jina.ai/"+pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/markdown")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("jina request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("jina reader returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read jina response: %w", err)
	}
	content := string(body)

	if strings.Contains(content, "SecurityCompromiseError") || strings.Contains(strings.ToLower(content), "blocked") {
		return Page{}, fmt.Errorf("jina reader blocked this domain")
	}

	return Page{Title: titleFromMarkdown(content), Content: content}, nil
}

var htmlTitleRe = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

// fetchDirectly fetches the raw page and converts the HTML to markdown.
func (c *Client) fetchDirectly(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CanvasResearch/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("direct fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("direct fetch returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read page body: %w", err)
	}
	htmlContent := string(body)

	title := "Untitled"
	if m := htmlTitleRe.FindStringSubmatch(htmlContent); m != nil {
		title = strings.TrimSpace(m[1])
	}

	converter := md.NewConverter("", true, nil)
	content, err := converter.ConvertString(htmlContent)
	if err != nil {
		return Page{}, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return Page{Title: title, Content: content}, nil
}

// titleFromMarkdown extracts the first level-one heading.
func titleFromMarkdown(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return "Untitled"
}
