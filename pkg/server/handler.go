package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ericmjl/canvas-research/pkg/research"
)

type Handler struct {
	Orchestrator *research.Orchestrator
	Service      *Service // nil when no database is configured
}

func NewHandler(orch *research.Orchestrator, svc *Service) *Handler {
	return &Handler{Orchestrator: orch, Service: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/research", h.streamResearch)

		if h.Service != nil {
			api.POST("/research/runs", h.createRun)
			api.GET("/research/runs", h.listRuns)
			api.GET("/research/runs/:id", h.getRun)
			api.GET("/research/runs/:id/sources", h.getRunSources)
			api.GET("/research/runs/:id/logs", h.getRunLogs)
		}
	}
}

// streamResearch runs a research request and streams progress over SSE.
// The stream terminates with either a done or an error event, never
// both.
func (h *Handler) streamResearch(c *gin.Context) {
	var req research.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	// Client disconnect cancels the request context, which stops the
	// stream; the orchestrator lets the in-flight batch drain.
	for event := range h.Orchestrator.Stream(c.Request.Context(), req) {
		writeSSE(c, event)
		if c.Request.Context().Err() != nil {
			return
		}
	}
}

// writeSSE emits one named SSE event. Multi-line payloads (the report
// markdown) need every line prefixed with "data: " per the SSE framing
// rules.
func writeSSE(c *gin.Context, event research.Event) {
	_, _ = c.Writer.WriteString("event: " + string(event.Type) + "\n")
	for _, line := range strings.Split(event.Data(), "\n") {
		_, _ = c.Writer.WriteString("data: " + line + "\n")
	}
	_, _ = c.Writer.WriteString("\n")
	c.Writer.Flush()
}

func (h *Handler) createRun(c *gin.Context) {
	var req research.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.Service.CreateRun(c.Request.Context(), req)
	if err != nil {
		if err == research.ErrEmptyInstructions {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, run)
}

func (h *Handler) listRuns(c *gin.Context) {
	runs, err := h.Service.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) getRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	run, err := h.Service.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) getRunSources(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	sources, err := h.Service.GetRunSources(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sources == nil {
		sources = []research.Source{}
	}
	c.JSON(http.StatusOK, sources)
}

func (h *Handler) getRunLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	logs, err := h.Service.GetRunLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}
