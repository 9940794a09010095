package web

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/annot/internal/config"
	"github.com/hpungsan/annot/internal/docstore"
)

// NewRouter builds the API router with its middleware stack.
func NewRouter(h *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(securityHeaders)
	r.Use(cors(cfg.CORSOrigins))

	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/upload", h.HandleUpload)
	r.Get("/documents", h.HandleListDocuments)
	r.Get("/documents/{doc_id}/notes/export", h.HandleExportNotes)
	r.Get("/uploads/{name}", h.HandleServeUpload)

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.HandleCreateNote)
		r.Get("/", h.HandleListNotes)
		r.Get("/{id}", h.HandleGetNote)
		r.Put("/{id}", h.HandleUpdateNote)
		r.Delete("/{id}", h.HandleDeleteNote)
	})

	return r
}

// NewServer creates and configures the HTTP server for the annotation API.
func NewServer(database *sql.DB, store *docstore.Store, cfg *config.Config, logger *slog.Logger) *http.Server {
	logger = logger.With("component", "web")
	h := NewHandlers(database, store, cfg, logger)

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(h, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, srv, logger)
}

// serve runs srv until it fails or ctx is cancelled, then shuts it down.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("annot API listening", "addr", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

