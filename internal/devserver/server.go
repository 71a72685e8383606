// Package devserver runs a local generation endpoint that streams canned
// annotation text, so the engine and its hosts can be exercised without a
// model backend.
package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/osmia/marginalia/internal/model"
)

// DefaultAddr is where the dev server listens unless configured otherwise.
const DefaultAddr = "localhost:8787"

const defaultChunkInterval = 60 * time.Millisecond

// Config holds dev server settings.
type Config struct {
	Logger *slog.Logger
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string
	// ChunkInterval is the pause before each streamed chunk, imitating model
	// latency. Defaults to 60ms.
	ChunkInterval time.Duration
}

// Server serves the annotation generation endpoint.
type Server struct {
	echo     *echo.Echo
	logger   *slog.Logger
	addr     string
	interval time.Duration
}

// New creates a dev server. The zero config works.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = defaultChunkInterval
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			cfg.Logger.Debug("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			return err
		}
	})

	s := &Server{
		echo:     e,
		logger:   cfg.Logger,
		addr:     cfg.Addr,
		interval: cfg.ChunkInterval,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.POST("/api/annotations/generate", s.handleGenerate)
}

// Handler exposes the server as an http.Handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting annotation dev server", "addr", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down annotation dev server")
	return s.echo.Shutdown(ctx)
}

// GenerateRequest is the request body for POST /api/annotations/generate.
type GenerateRequest struct {
	Context    map[string]any `json:"context"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId"`
}

// ErrorResponse is the body returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleGenerate streams the canned annotation for the requested entity,
// flushing after every chunk. A dropped client aborts the stream between
// chunks.
func (s *Server) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid generation request", "error", err)
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	kind := model.EntityKind(req.EntityKind)
	if !kind.Valid() {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown entity kind: " + req.EntityKind})
	}
	if req.EntityID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "entityId is required"})
	}

	s.logger.Info("streaming annotation",
		"entity_kind", kind,
		"entity_id", req.EntityID)

	c.Response().Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	for _, chunk := range Script(kind, req.EntityID, req.Context) {
		select {
		case <-c.Request().Context().Done():
			s.logger.Debug("client dropped mid-stream", "entity_id", req.EntityID)
			return nil
		case <-time.After(s.interval):
		}
		if _, err := c.Response().Write([]byte(chunk)); err != nil {
			return nil
		}
		c.Response().Flush()
	}
	return nil
}
