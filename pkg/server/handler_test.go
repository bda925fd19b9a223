package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericmjl/canvas-research/pkg/fetch"
	"github.com/ericmjl/canvas-research/pkg/llm"
	"github.com/ericmjl/canvas-research/pkg/research"
	"github.com/ericmjl/canvas-research/pkg/search"
)

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	// Valid for query generation, harmless as a summary, and a complete
	// report for synthesis.
	return `["alpha beta gamma"]`, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	return []search.Result{
		{Title: query + " guide", URL: fmt.Sprintf("https://example.com/%d", len(query)), Snippet: "about " + query},
		{Title: query + " reference", URL: fmt.Sprintf("https://example.org/%d", len(query)), Snippet: "more on " + query},
	}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (fetch.Page, error) {
	return fetch.Page{Title: "Page", Content: "# Page\n\nbody"}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	orch := research.NewOrchestrator(stubCompleter{}, stubSearcher{}, stubFetcher{})
	orch.Options.RetryBaseDelay = time.Millisecond

	r := gin.New()
	NewHandler(orch, nil).RegisterRoutes(r)
	return r
}

func TestStreamResearchSSE(t *testing.T) {
	router := newTestRouter()

	body := `{"instructions": "alpha beta gamma", "max_iterations": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	out := w.Body.String()
	for _, want := range []string{"event: status\n", "event: source\n", "event: content\n", "event: sources\n", "event: done\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("stream missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "event: error\n") {
		t.Errorf("unexpected error event in stream:\n%s", out)
	}

	// Every non-blank line must be an SSE field line.
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "event: ") && !strings.HasPrefix(line, "data: ") {
			t.Errorf("malformed SSE line %q", line)
		}
	}
}

func TestStreamResearchRejectsEmptyInstructions(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"instructions": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStreamResearchRejectsBadJSON(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(`{"instructions":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
