package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"cookplane/internal/store"
	"cookplane/internal/timer"
	"cookplane/pkg/api"

	"github.com/google/uuid"
)

// CreateTimer handles POST /sessions/{id}/timers.
// The timer starts counting down immediately.
func (h *Handlers) CreateTimer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.CreateTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	t, err := h.timers.Create(r.Context(), userID, sessionID, timer.CreateParams{
		Name:            req.Name,
		DurationSeconds: req.DurationSeconds,
		StepIndex:       req.StepIndex,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusCreated, toTimerResponse(t))
}

// GetTimer handles GET /timers/{id}.
func (h *Handlers) GetTimer(w http.ResponseWriter, r *http.Request) {
	h.transitionTimer(w, r, h.timers.Get)
}

// PauseTimer handles POST /timers/{id}/pause.
func (h *Handlers) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.transitionTimer(w, r, h.timers.Pause)
}

// ResumeTimer handles POST /timers/{id}/resume.
func (h *Handlers) ResumeTimer(w http.ResponseWriter, r *http.Request) {
	h.transitionTimer(w, r, h.timers.Resume)
}

// CompleteTimer handles POST /timers/{id}/complete.
func (h *Handlers) CompleteTimer(w http.ResponseWriter, r *http.Request) {
	h.transitionTimer(w, r, h.timers.Complete)
}

// CancelTimer handles POST /timers/{id}/cancel.
func (h *Handlers) CancelTimer(w http.ResponseWriter, r *http.Request) {
	h.transitionTimer(w, r, h.timers.Cancel)
}

func (h *Handlers) transitionTimer(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error)) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	timerID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := op(r.Context(), userID, timerID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, toTimerResponse(t))
}

// ListTimers handles GET /sessions/{id}/timers.
func (h *Handlers) ListTimers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	timers, err := h.timers.ListBySession(r.Context(), userID, sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListTimersResponse{Timers: make([]api.TimerResponse, 0, len(timers))}
	for _, t := range timers {
		resp.Timers = append(resp.Timers, toTimerResponse(t))
	}
	h.respondJson(w, http.StatusOK, resp)
}

func toTimerResponse(t *store.CookingTimer) api.TimerResponse {
	return api.TimerResponse{
		ID:                        t.ID.String(),
		SessionID:                 t.SessionID.String(),
		StepIndex:                 t.StepIndex,
		Name:                      t.Name,
		DurationSeconds:           t.DurationSeconds,
		RemainingSeconds:          t.RemainingSeconds,
		Status:                    string(t.Status),
		TotalPauseDurationSeconds: t.TotalPauseDurationSeconds,
		CreatedAt:                 t.CreatedAt,
		CompletedAt:               t.CompletedAt,
	}
}
