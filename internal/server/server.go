// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kikiluvv/replaycoach/internal/analysis"
	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/kikiluvv/replaycoach/internal/metrics"
	"github.com/kikiluvv/replaycoach/internal/pipeline"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Service runs analyses on stored videos
type Service interface {
	Analyze(ctx context.Context, path string) (*analysis.Stats, error)
	Run(ctx context.Context, path string, p profile.Profile) (*pipeline.Result, error)
}

// Server handles uploads and serves analysis results
type Server struct {
	logger  zerolog.Logger
	svc     Service
	metrics *metrics.Manager
	tempDir string
	cfg     config.ServerConfig
}

// New creates a server. m may be nil, in which case /metrics is not routed.
func New(logger zerolog.Logger, svc Service, m *metrics.Manager, tempDir string, cfg config.ServerConfig) *Server {
	return &Server{
		logger:  logger.With().Str("component", "server").Logger(),
		svc:     svc,
		metrics: m,
		tempDir: tempDir,
		cfg:     cfg,
	}
}

// Routes builds the gin engine
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog(), s.observe())

	r.POST("/analyze", s.handleAnalyze)
	r.POST("/report", s.handleReport)
	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// up to the configured shutdown timeout
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
