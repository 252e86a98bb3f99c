// Package server contains the HTTP API server.
package server

import (
	"context"
	"net/http"
	"time"

	"cookplane/internal/server/handlers"
	"cookplane/internal/server/middleware"
	"cookplane/internal/store"
)

// Server is the HTTP server for the cookplane API.
type Server struct {
	httpServer *http.Server
}

// New creates a new API server.
func New(addr string, sessions handlers.SessionService, timers handlers.TimerService, rooms handlers.RoomService, db handlers.Pinger, users store.UserStore, metrics http.Handler) *Server {
	h := handlers.New(sessions, timers, rooms, db)
	authMW := middleware.AuthMiddleware(users)
	rateMW := middleware.RateLimitMiddleware()

	protect := func(handler http.HandlerFunc) http.Handler {
		return authMW(rateMW(handler))
	}

	mux := http.NewServeMux()

	// Sessions
	mux.Handle("POST /sessions", protect(h.StartSession))
	mux.Handle("GET /sessions", protect(h.ListSessions))
	mux.Handle("GET /sessions/{id}", protect(h.GetSession))
	mux.Handle("PATCH /sessions/{id}/progress", protect(h.UpdateProgress))
	mux.Handle("POST /sessions/{id}/pause", protect(h.PauseSession))
	mux.Handle("POST /sessions/{id}/resume", protect(h.ResumeSession))
	mux.Handle("POST /sessions/{id}/complete", protect(h.CompleteSession))
	mux.Handle("POST /sessions/{id}/abandon", protect(h.AbandonSession))
	mux.Handle("PUT /sessions/{id}/steps/{index}", protect(h.CompleteStep))
	mux.Handle("GET /sessions/{id}/steps", protect(h.ListStepCompletions))

	// Timers
	mux.Handle("POST /sessions/{id}/timers", protect(h.CreateTimer))
	mux.Handle("GET /sessions/{id}/timers", protect(h.ListTimers))
	mux.Handle("GET /timers/{id}", protect(h.GetTimer))
	mux.Handle("POST /timers/{id}/pause", protect(h.PauseTimer))
	mux.Handle("POST /timers/{id}/resume", protect(h.ResumeTimer))
	mux.Handle("POST /timers/{id}/complete", protect(h.CompleteTimer))
	mux.Handle("POST /timers/{id}/cancel", protect(h.CancelTimer))

	// Rooms
	mux.Handle("POST /rooms", protect(h.CreateRoom))
	mux.Handle("GET /rooms", protect(h.ListRooms))
	mux.Handle("POST /rooms/join", protect(h.JoinRoom))
	mux.Handle("GET /rooms/{id}", protect(h.GetRoom))
	mux.Handle("POST /rooms/{id}/leave", protect(h.LeaveRoom))
	mux.Handle("PUT /rooms/{id}/activity", protect(h.UpdateActivity))
	mux.Handle("GET /rooms/{id}/participants", protect(h.ListParticipants))
	mux.Handle("POST /rooms/{id}/end", protect(h.EndRoom))

	// Probes and metrics are unauthenticated.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
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
