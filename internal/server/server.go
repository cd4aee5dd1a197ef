// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server implements the paperpress HTTP API: upload, convert,
// treatment, and EPUB packaging, plus the embedded browser UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperpress/internal/container"
	"github.com/pdiddy/paperpress/internal/convert"
	"github.com/pdiddy/paperpress/internal/store"
	"github.com/pdiddy/paperpress/internal/treat"
	"github.com/pdiddy/paperpress/internal/web"
	"github.com/pdiddy/paperpress/pkg/types"
)

// Server holds the HTTP API's collaborators. Uploads and their derived
// images live in a work directory that is swept periodically and, when
// the directory was created by New, removed on Close.
type Server struct {
	cfg    types.Config
	logger *slog.Logger

	store     *store.Store
	converter convert.Converter
	backend   treat.Backend

	markerOK    bool
	workDir     string
	ownsWorkDir bool
}

// New builds a Server from the configuration. A nil logger discards all
// output. An empty work dir means a fresh temp directory owned (and
// removed on Close) by the server.
func New(cfg types.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		workDir: cfg.Server.WorkDir,
	}

	if s.workDir == "" {
		dir, err := os.MkdirTemp("", "paperpress-*")
		if err != nil {
			return nil, fmt.Errorf("creating work directory: %w", err)
		}
		s.workDir = dir
		s.ownsWorkDir = true
	}

	st, err := store.Open(s.workDir)
	if err != nil {
		if s.ownsWorkDir {
			os.RemoveAll(s.workDir)
		}
		return nil, fmt.Errorf("opening upload store: %w", err)
	}
	s.store = st

	s.converter = convert.NewFitzConverter()
	if cfg.Conversion.Backend == types.BackendMarker {
		if mc, err := newMarkerConverter(); err != nil {
			logger.Warn("marker backend unavailable, using local rendering", "error", err)
		} else {
			s.converter = mc
			s.markerOK = true
		}
	}

	if cfg.Treatment.APIKey != "" {
		s.backend = &treat.GeminiBackend{
			APIKey:     cfg.Treatment.APIKey,
			Model:      cfg.Treatment.Model,
			MaxRetries: cfg.Treatment.MaxRetries,
		}
	}

	return s, nil
}

// newMarkerConverter detects a container runtime and checks the marker
// image. Split out so New stays readable.
func newMarkerConverter() (convert.Converter, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	return convert.NewMarkerConverter(rt)
}

// Start runs the HTTP server and the upload sweeper until ctx is
// canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.routes(),
		// Conversion holds the response open for minutes on long papers.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 20 * time.Minute,
		IdleTimeout:  time.Minute,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		s.sweep(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	s.logger.Info("stopped server")
	return nil
}

// sweep periodically removes uploads older than the configured TTL.
func (s *Server) sweep(ctx context.Context) {
	ttl := s.cfg.Server.SweepTTL
	if ttl <= 0 {
		return
	}
	interval := s.cfg.Server.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.Sweep(ctx, ttl)
			if err != nil {
				s.logger.Warn("upload sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("swept expired uploads", "count", n)
			}
		}
	}
}

// Close releases the upload store and, when the server created its own
// work directory, removes it along with all uploads.
func (s *Server) Close() error {
	err := s.store.Close()
	if s.ownsWorkDir {
		if rmErr := os.RemoveAll(s.workDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload-pdf", s.handleUpload)
		r.Post("/convert/{fileID}", s.handleConvert)
		r.Post("/apply-treatment", s.handleTreatment)
		r.Post("/generate-epub", s.handleGenerate)
		r.Post("/convert-to-markdown", s.handleLegacyConvert)
	})

	// Converted figures
	r.Handle("/temp-images/*", http.StripPrefix("/temp-images/",
		http.FileServer(http.Dir(s.store.ImageRoot()))))

	// Browser UI
	r.Handle("/*", http.FileServerFS(web.StaticFS))

	return r
}
