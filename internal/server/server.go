// Package server exposes the clinicd HTTP API. It is a thin transport layer:
// handlers marshal requests into the chat, explain, retrieval, and registry
// operations and map their errors onto HTTP status codes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/chat"
	"github.com/fyrsmithlabs/clinicd/internal/conversation"
	"github.com/fyrsmithlabs/clinicd/internal/explain"
	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// Config holds HTTP server configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Server is the clinicd HTTP server.
type Server struct {
	echo     *echo.Echo
	config   Config
	registry patients.Repository
	index    *vectorstore.Index
	chat     *chat.Service
	composer *explain.Composer
	log      *conversation.Log
	logger   *zap.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	cfg Config,
	registry patients.Repository,
	index *vectorstore.Index,
	chatSvc *chat.Service,
	composer *explain.Composer,
	convLog *conversation.Log,
	logger *zap.Logger,
) (*Server, error) {
	if registry == nil || index == nil || chatSvc == nil || composer == nil || convLog == nil {
		return nil, fmt.Errorf("all service dependencies are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:     e,
		config:   cfg,
		registry: registry,
		index:    index,
		chat:     chatSvc,
		composer: composer,
		log:      convLog,
		logger:   logger.Named("http"),
	}
	s.registerRoutes()

	return s, nil
}

// requestLogger logs each request with its status, duration, and request ID.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.POST("/patients", s.handleRegisterPatient)
	api.GET("/patients/:id", s.handleGetPatient)
	api.GET("/patients/:id/verify", s.handleVerifyPatient)
	api.GET("/patients/:id/history", s.handlePatientHistory)
	api.DELETE("/patients/:id", s.handleDeletePatient)
	api.POST("/chat", s.handleChat)
	api.POST("/explain", s.handleExplain)
	api.POST("/query", s.handleQuery)
	api.GET("/stats", s.handleStats)
}

// Start runs the server and blocks until ctx is cancelled, then shuts down
// gracefully within the configured timeout. Returns http.ErrServerClosed on
// clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
