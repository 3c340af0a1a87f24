// Package api exposes the query pipeline over HTTP: submit, status, result,
// and the token-guarded trace endpoint. Handlers stay thin and never touch
// the pipeline; they read and write through the query service only.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veriq-io/veriq/pkg/services"
)

// Server is the HTTP server over the query service.
type Server struct {
	service    *services.QueryService
	traceToken string
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer builds the router. An empty traceToken leaves the trace endpoint
// open; when set, the X-Internal-Token header must match verbatim.
func NewServer(service *services.QueryService, traceToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		service:    service,
		traceToken: traceToken,
		logger:     logger.With("component", "api"),
		engine:     engine,
	}

	engine.GET("/healthz", s.Health)

	queries := engine.Group("/api")
	queries.POST("/query", s.SubmitQuery)
	queries.GET("/query/:id/status", s.QueryStatus)
	queries.GET("/query/:id/result", s.QueryResult)
	// The token check runs before any ID validation, so probing the trace
	// endpoint without credentials learns nothing about session existence.
	queries.GET("/query/:id/trace", requireTraceToken(traceToken), s.QueryTrace)

	return s
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving on addr and blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
