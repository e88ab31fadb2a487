// Package server contains the read-only HTTP and websocket surface of the
// gameserver.
package server

import (
	"context"
	"net/http"
	"time"
)

// Server is the HTTP server for the viewer API.
type Server struct {
	httpServer *http.Server
}

// New creates the viewer server. metricsHandler serves /metrics (the
// Prometheus export) and may be nil.
func New(addr string, h *Handlers, metricsHandler http.Handler) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)
	mux.HandleFunc("GET /api/games", h.ListGames)
	mux.HandleFunc("GET /api/games/{id}", h.GetGame)
	mux.HandleFunc("GET /api/games/{id}/scoreboard", h.GetScoreboard)
	mux.HandleFunc("GET /ws/game/{id}", h.WatchGame)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// No WriteTimeout: websocket connections outlive any sane value.
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
