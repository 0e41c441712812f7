// Package api exposes the storage gateway over HTTP.
//
// The adapter owns the translation between HTTP and the storage contract:
// it extracts file names from request paths and multipart metadata, streams
// request and response bodies, and maps the storage error taxonomy onto
// status codes. It never touches the filesystem itself.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/picloudlabs/picloud/internal/logger"
	"github.com/picloudlabs/picloud/pkg/metrics"
	"github.com/picloudlabs/picloud/pkg/storage"
)

// Config contains the HTTP server settings.
type Config struct {
	// ListenAddr is the address to bind, e.g. ":8080".
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// ReadTimeout bounds reading the full request, body included.
	// Uploads larger than the link can move in this window will fail;
	// size it for the deployment.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`

	// WriteTimeout bounds writing the full response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`

	// IdleTimeout bounds keep-alive waits between requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`

	// MaxUploadBytes caps the accepted upload body size.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`

	// CORSAllowedOrigins lists allowed origins ("*" for any).
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Server binds the storage gateway to its HTTP routes and manages the
// listener lifecycle.
type Server struct {
	config  Config
	store   storage.Store
	router  chi.Router
	metrics *metrics.HTTPMetrics
}

// New creates the HTTP adapter for the given store.
//
// The prometheus /metrics route is registered only when the global metrics
// registry has been initialized.
func New(config Config, store storage.Store) *Server {
	s := &Server{
		config:  config,
		store:   store,
		metrics: metrics.NewHTTPMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	if len(config.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: config.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Post("/file/upload", s.handleUpload)
	r.Get("/file/download/*", s.handleDownload)
	r.Delete("/file/delete/*", s.handleDelete)
	r.Get("/files", s.handleList)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if reg := metrics.GetRegistry(); reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// Handler returns the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve starts the HTTP listener and blocks until the context is cancelled
// or the listener fails.
//
// On cancellation the server stops accepting connections and waits up to
// ShutdownTimeout for in-flight requests to finish.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.config.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}

// observe is the request logging and metrics middleware.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()

		s.metrics.ObserveRequest(route, r.Method, strconv.Itoa(ww.Status()), elapsed)
		logger.Debug("%s %s -> %d (%d bytes, %s)",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), elapsed)
	})
}
