// Package server provides the HTTP server of the mudra sign recognition
// system: the JSON API, the annotated MJPEG stream, live predictions over
// WebSocket and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Config holds the server collaborators. Routes whose collaborator is nil are
// not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	State     *pipeline.State
	Modes     api.Modes
	Templates api.Templates
	Feed      *overlay.Feed
	Metrics   http.Handler
	Logger    *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *Hub
	logger *slog.Logger
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "server"),
		start:  time.Now(),
	}
	if config.State != nil {
		s.hub = NewHub(config.State, s.logger)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.State != nil {
		s.mux.Handle("/api/prediction", api.NewPredictionHandler(s.config.State))
		s.mux.Handle("/api/ws", s.hub)
	}

	if s.config.Modes != nil {
		s.mux.Handle("/api/mode", api.NewModeHandler(s.config.Modes, s.logger))
	}

	if s.config.Store != nil {
		signs := api.NewSignHandler(s.config.Store, s.config.Templates, s.logger)
		samples := api.NewSamplesHandler(s.config.Store, s.config.Templates, s.logger)

		signRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// /api/signs/{id}/samples
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samples.ServeHTTP(w, r)
				return
			}
			signs.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/signs", signRouter)
		s.mux.Handle("/api/signs/", signRouter)
		s.mux.Handle("/api/predictions", api.NewHistoryHandler(s.config.Store, s.logger))
	}

	if s.config.Feed != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Feed))
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the WebSocket hub, or nil when no State is configured.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Modes != nil {
		response["mode"] = s.config.Modes.Mode().String()
	}
	if s.hub != nil {
		response["clients"] = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully. The
// WebSocket hub runs alongside the listener.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.hub != nil {
		g.Go(func() error {
			s.hub.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
