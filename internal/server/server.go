// Package server provides the HTTP server for the museum guide.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/app"
	"github.com/fabriziosardo/AR-Project/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Logger    zerolog.Logger
}

// Server represents the HTTP server for the guide.
type Server struct {
	config   Config
	mux      *http.ServeMux
	start    time.Time
	tracking *TrackingHandler

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.Handle("/api/entities", api.NewEntitiesHandler(a.Manager()))
		s.mux.Handle("/api/dialogue/", api.NewDialogueHandler(a.Dialogue()))
		s.mux.Handle("/api/references", api.NewReferencesHandler(a.Images))
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)

		s.tracking = NewTrackingHandler(a.Ingest(), a.Manager(),
			s.config.Logger.With().Str("component", "tracking").Logger())
		s.mux.Handle("/api/tracking", s.tracking)

		// Catalog endpoints need the store.
		if st := a.Store(); st != nil {
			artworks := api.NewArtworkHandler(st, a.LoadArtworks)
			s.mux.Handle("/api/artworks", artworks)
			s.mux.Handle("/api/artworks/", artworks)
			s.mux.Handle("/api/anchors", api.NewAnchorHandler(st))
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["enabled"] = a.IsEnabled()
		response["stats"] = a.Stats()
		response["artworks"] = a.Registry().Len()
		response["entities"] = a.Manager().Len()
	}
	writeJSON(w, response)
}

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

// handleEnabled reads (GET) or sets (PUT) the pause state.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	a := s.config.App
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		var body enabledBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
			http.Error(w, "Expected {\"enabled\": true|false}", http.StatusBadRequest)
			return
		}
		a.SetEnabled(*body.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]bool{"enabled": a.IsEnabled()})
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.config.Logger.Info().Str("addr", addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and its snapshot broadcast. Open websocket
// connections are not waited for.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.tracking != nil {
		s.tracking.Close()
	}
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
