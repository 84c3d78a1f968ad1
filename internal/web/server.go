// Package web serves the analysis engine over HTTP: a JSON API for
// programmatic clients and a small HTML front end for browsers.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/listcutter/internal/config"
	"github.com/JonMunkholm/listcutter/internal/core"
	"github.com/JonMunkholm/listcutter/internal/source"
	"github.com/JonMunkholm/listcutter/internal/store"
	"github.com/JonMunkholm/listcutter/internal/web/middleware"
)

// MetaStore records saved files and analysis runs. *store.Store implements it.
type MetaStore interface {
	CreateFile(ctx context.Context, p store.CreateFileParams) (*store.SavedFile, error)
	RegisterFile(ctx context.Context, p store.CreateFileParams) (*store.SavedFile, bool, error)
	GetFile(ctx context.Context, id uuid.UUID) (*store.SavedFile, error)
	ListFiles(ctx context.Context, opts store.ListOptions) ([]store.SavedFile, error)
	RecordRun(ctx context.Context, p store.RecordRunParams) (*store.AnalysisRun, error)
	ListRuns(ctx context.Context, fileID uuid.UUID, limit int) ([]store.AnalysisRun, error)
}

// Deps are the optional backends. Without Files and Meta the server only
// analyses uploads; saved files and run history respond 501.
type Deps struct {
	Files source.Store
	Meta  MetaStore
}

// Server is the HTTP server for the analysis API.
type Server struct {
	cfg        *config.Config
	limits     core.Limits
	engineOpts []core.Option
	files      source.Store
	meta       MetaStore
	limiter    *AnalysisLimiter
	rate       *clientLimiter
	done       chan struct{}
	stopOnce   sync.Once
	router     *chi.Mux
	server     *http.Server
}

// NewServer builds the router. opts are passed to every per-request engine
// after the request logger.
func NewServer(cfg *config.Config, deps Deps, opts ...core.Option) *Server {
	engineOpts := opts
	if cfg.Limits.LenientFilters {
		engineOpts = append([]core.Option{core.WithLenientFilters()}, opts...)
	}

	s := &Server{
		cfg:        cfg,
		limits:     cfg.Limits.CoreLimits(),
		engineOpts: engineOpts,
		files:      deps.Files,
		meta:       deps.Meta,
		limiter:    NewAnalysisLimiter(cfg.Limits.MaxConcurrent, cfg.Limits.MaxWaitTime),
		done:       make(chan struct{}),
		router:     chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.rate = newClientLimiter(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst)
		go s.rate.run(s.done)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// savedEnabled reports whether saved files can be stored and listed.
func (s *Server) savedEnabled() bool {
	return s.files != nil && s.meta != nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.rate != nil {
		s.router.Use(s.rate.middleware(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited)
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Post("/columns", s.handleColumns)
		r.Post("/crosstab", s.handleCrosstab)
		r.Post("/crosstab/export", s.handleCrosstabExport)
		r.Post("/detect-types", s.handleDetectTypes)
		r.Post("/filter", s.handleFilter)
		r.Post("/filter/export", s.handleFilterExport)

		r.Get("/files", s.handleListFiles)
		r.Post("/files", s.handleCreateFile)
		r.Get("/files/{id}", s.handleGetFile)
		r.Get("/files/{id}/download", s.handleDownloadFile)
		r.Get("/files/{id}/runs", s.handleListRuns)

		r.Get("/status", s.handleStatus)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for in-flight analyses.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		slog.Warn("analyses still running at shutdown", "active", s.limiter.ActiveCount())
		return err
	}
	return nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// status has already been sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "path", r.URL.Path, "error", err)
	}
}

// healthResponse reports backend availability.
type healthResponse struct {
	Status     string `json:"status"`
	SavedFiles bool   `json:"savedFiles"`
	Time       string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:     "ok",
		SavedFiles: s.savedEnabled(),
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
}
