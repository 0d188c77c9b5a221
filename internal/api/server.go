// Package api exposes the probe over HTTP: health, metrics, run history,
// manual triggers, a live event stream and the rendered report.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotrs-io/todomvc-e2e/internal/middleware"
	"github.com/gotrs-io/todomvc-e2e/internal/models"
	"github.com/gotrs-io/todomvc-e2e/internal/probe"
	"github.com/gotrs-io/todomvc-e2e/internal/report"
	"github.com/gotrs-io/todomvc-e2e/internal/results"
	"github.com/gotrs-io/todomvc-e2e/internal/version"
)

// Prober triggers and inspects catalog runs.
type Prober interface {
	RunNow(ctx context.Context, slug, trigger string) (*models.Run, error)
	Jobs() []*models.ProbeJob
	LastRun() (models.Run, bool)
}

// History reads persisted runs.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	prober   Prober
	history  History
	hub      *Hub
	gatherer prometheus.Gatherer
	logger   *log.Logger
	limit    int
	baseCtx  context.Context
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithHistory serves runs from a store instead of only the last run.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithHub mounts the websocket stream.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHistoryLimit caps how many runs list and report endpoints return.
func WithHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithBaseContext sets the parent context of runs started asynchronously.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.baseCtx = ctx }
}

func NewServer(prober Prober, opts ...Option) *Server {
	s := &Server{
		prober:   prober,
		gatherer: prometheus.DefaultGatherer,
		logger:   log.Default(),
		limit:    50,
		baseCtx:  context.Background(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(s.logger))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	r.GET("/report", s.handleReport)
	r.GET("/report.md", s.handleReportMarkdown)
	r.GET("/report.xlsx", s.handleReportXLSX)

	api := r.Group("/api")
	api.GET("/jobs", s.handleJobs)
	api.GET("/runs", s.handleListRuns)
	api.POST("/runs", s.handleTriggerRun)
	if s.hub != nil {
		api.GET("/runs/stream", s.hub.Serve)
	}
	api.GET("/runs/:id", s.handleGetRun)
	return r
}

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": middleware.GetRequestID(c),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok", "version": version.Short()}
	if run, ok := s.prober.LastRun(); ok {
		body["last_run"] = gin.H{
			"id":          run.ID,
			"status":      run.Status,
			"finished_at": run.FinishedAt,
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.prober.Jobs()})
}

func (s *Server) queryLimit(c *gin.Context) int {
	limit := s.limit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	return limit
}

func (s *Server) runs(ctx context.Context, limit int) ([]models.Run, error) {
	if s.history != nil {
		return s.history.ListRuns(ctx, limit)
	}
	if run, ok := s.prober.LastRun(); ok {
		return []models.Run{run}, nil
	}
	return []models.Run{}, nil
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.runs(c.Request.Context(), s.queryLimit(c))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id := c.Param("id")
	if s.history == nil {
		if run, ok := s.prober.LastRun(); ok && run.ID == id {
			c.JSON(http.StatusOK, run)
			return
		}
		errorJSON(c, http.StatusNotFound, results.ErrRunNotFound)
		return
	}

	run, err := s.history.GetRun(c.Request.Context(), id)
	switch {
	case errors.Is(err, results.ErrRunNotFound):
		errorJSON(c, http.StatusNotFound, err)
	case err != nil:
		errorJSON(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, run)
	}
}

// handleTriggerRun runs a job and answers with the finished run. With
// ?async=true it answers 202 at once and the run continues in the background.
func (s *Server) handleTriggerRun(c *gin.Context) {
	slug := c.DefaultQuery("job", probe.DefaultJobSlug)

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		requestID := middleware.GetRequestID(c)
		go func() {
			if _, err := s.prober.RunNow(s.baseCtx, slug, probe.TriggerAPI); err != nil {
				s.logger.Printf("[http] async run of %s failed: %v id=%s", slug, err, requestID)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "job": slug})
		return
	}

	run, err := s.prober.RunNow(c.Request.Context(), slug, probe.TriggerAPI)
	switch {
	case errors.Is(err, probe.ErrUnknownJob):
		errorJSON(c, http.StatusNotFound, err)
	case errors.Is(err, probe.ErrRunInProgress):
		errorJSON(c, http.StatusConflict, err)
	case err != nil:
		errorJSON(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusCreated, run)
	}
}

func (s *Server) handleReport(c *gin.Context) {
	runs, err := s.runs(c.Request.Context(), s.queryLimit(c))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	page, err := report.Page(runs, s.now())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) handleReportMarkdown(c *gin.Context) {
	runs, err := s.runs(c.Request.Context(), s.queryLimit(c))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	md, err := report.Markdown(runs, s.now())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (s *Server) handleReportXLSX(c *gin.Context) {
	runs, err := s.runs(c.Request.Context(), s.queryLimit(c))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="todoprobe-runs.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := report.WriteXLSX(c.Writer, runs); err != nil {
		s.logger.Printf("[http] xlsx export failed: %v", err)
	}
}
