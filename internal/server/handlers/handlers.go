// Package handlers contains HTTP handlers for the API server.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cookplane/internal/breakdown"
	"cookplane/internal/room"
	"cookplane/internal/server/middleware"
	"cookplane/internal/session"
	"cookplane/internal/store"
	"cookplane/internal/timer"
	"cookplane/pkg/api"

	"github.com/google/uuid"
)

// SessionService is the session-lifecycle surface the handlers call.
type SessionService interface {
	Start(ctx context.Context, userID uuid.UUID, p session.StartParams) (*store.CookingSession, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*store.CookingSession, error)
	UpdateProgress(ctx context.Context, userID, sessionID uuid.UUID, newStepIndex int, notes *string) (*store.CookingSession, error)
	Pause(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	Resume(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	Complete(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	Abandon(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)
	CompleteStep(ctx context.Context, userID, sessionID uuid.UUID, p session.CompleteStepParams) error
	StepCompletions(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.StepCompletion, error)
}

// TimerService is the countdown surface the handlers call.
type TimerService interface {
	Create(ctx context.Context, userID, sessionID uuid.UUID, p timer.CreateParams) (*store.CookingTimer, error)
	Get(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	Pause(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	Resume(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	Complete(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	Cancel(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)
	ListBySession(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.CookingTimer, error)
}

// RoomService is the room-coordination surface the handlers call.
type RoomService interface {
	Create(ctx context.Context, creatorID uuid.UUID, p room.CreateParams) (*store.BodyDoublingRoom, error)
	JoinByCode(ctx context.Context, userID uuid.UUID, code string, password *string, sessionID *uuid.UUID, recipeName *string) (uuid.UUID, error)
	Leave(ctx context.Context, userID, roomID uuid.UUID) error
	UpdateActivity(ctx context.Context, userID, roomID uuid.UUID, currentStep *string, energy *int) error
	GetRoom(ctx context.Context, userID, roomID uuid.UUID) (*store.BodyDoublingRoom, error)
	Participants(ctx context.Context, userID, roomID uuid.UUID) ([]*store.Participant, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*store.BodyDoublingRoom, error)
	End(ctx context.Context, userID, roomID uuid.UUID) error
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	sessions SessionService
	timers   TimerService
	rooms    RoomService
	db       Pinger
}

// New creates a new Handlers instance with the given service dependencies.
func New(sessions SessionService, timers TimerService, rooms RoomService, db Pinger) *Handlers {
	return &Handlers{sessions: sessions, timers: timers, rooms: rooms, db: db}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, status int, code api.ErrorCode) {
	h.respondJson(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// serviceError translates domain errors into HTTP responses. Every
// handler funnels service failures through here so the status and code
// mapping stays in one place.
func (h *Handlers) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, "Not found", http.StatusNotFound, api.CodeNotFound)

	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, timer.ErrInvalidTransition),
		errors.Is(err, room.ErrInvalidTransition):
		h.httpError(w, err.Error(), http.StatusConflict, api.CodeInvalidState)

	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrCodeGenerationExhausted),
		errors.Is(err, room.ErrPasswordRequired),
		errors.Is(err, room.ErrIncorrectPassword),
		errors.Is(err, store.ErrCodeTaken):
		h.httpError(w, err.Error(), http.StatusConflict, api.CodeConflict)

	case errors.Is(err, session.ErrValidation),
		errors.Is(err, timer.ErrValidation),
		errors.Is(err, room.ErrValidation),
		errors.Is(err, breakdown.ErrInvalidLevel):
		h.httpError(w, err.Error(), http.StatusBadRequest, api.CodeValidation)

	default:
		h.httpError(w, "Internal error", http.StatusInternalServerError, api.CodeInternal)
	}
}

// requireUser extracts the authenticated user ID or writes a 401.
func (h *Handlers) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized, api.CodeUnauthorized)
	}
	return userID, ok
}

// pathID parses the named path segment as a UUID.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.httpError(w, "Invalid "+name, http.StatusBadRequest, api.CodeValidation)
		return uuid.Nil, false
	}
	return id, true
}
