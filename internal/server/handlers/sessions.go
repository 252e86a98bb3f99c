package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"cookplane/internal/session"
	"cookplane/internal/store"
	"cookplane/pkg/api"

	"github.com/google/uuid"
)

// StartSession handles POST /sessions.
// Resolves a breakdown, optionally joins a room, and creates the
// session in active status at step 0.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	s, err := h.sessions.Start(ctx, userID, session.StartParams{
		RecipeID:         req.RecipeID,
		RecipeName:       req.RecipeName,
		GranularityLevel: req.GranularityLevel,
		EnergyLevel:      req.EnergyLevel,
		JoinRoomCode:     req.JoinRoomCode,
		RoomPassword:     req.RoomPassword,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.respondJson(w, http.StatusCreated, toSessionResponse(s))
}

// GetSession handles GET /sessions/{id}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, toSessionResponse(s))
}

// ListSessions handles GET /sessions.
// Only the caller's non-terminal sessions are returned.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListActive(r.Context(), userID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListSessionsResponse{Sessions: make([]api.SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// UpdateProgress handles PATCH /sessions/{id}/progress.
func (h *Handlers) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	s, err := h.sessions.UpdateProgress(r.Context(), userID, sessionID, req.CurrentStepIndex, req.Notes)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, toSessionResponse(s))
}

// PauseSession handles POST /sessions/{id}/pause.
func (h *Handlers) PauseSession(w http.ResponseWriter, r *http.Request) {
	h.transitionSession(w, r, h.sessions.Pause)
}

// ResumeSession handles POST /sessions/{id}/resume.
func (h *Handlers) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.transitionSession(w, r, h.sessions.Resume)
}

// CompleteSession handles POST /sessions/{id}/complete.
func (h *Handlers) CompleteSession(w http.ResponseWriter, r *http.Request) {
	h.transitionSession(w, r, h.sessions.Complete)
}

// AbandonSession handles POST /sessions/{id}/abandon.
func (h *Handlers) AbandonSession(w http.ResponseWriter, r *http.Request) {
	h.transitionSession(w, r, h.sessions.Abandon)
}

func (h *Handlers) transitionSession(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error)) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	s, err := op(r.Context(), userID, sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, toSessionResponse(s))
}

// CompleteStep handles PUT /sessions/{id}/steps/{index}.
// The write is an idempotent upsert keyed by (session, step index).
func (h *Handlers) CompleteStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	stepIndex, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.httpError(w, "Invalid step index", http.StatusBadRequest, api.CodeValidation)
		return
	}

	var req api.CompleteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest, api.CodeValidation)
		return
	}

	err = h.sessions.CompleteStep(r.Context(), userID, sessionID, session.CompleteStepParams{
		StepIndex:        stepIndex,
		StepText:         req.StepText,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Skipped:          req.Skipped,
		DifficultyRating: req.DifficultyRating,
		Notes:            req.Notes,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.respondJson(w, http.StatusNoContent, nil)
}

// ListStepCompletions handles GET /sessions/{id}/steps.
func (h *Handlers) ListStepCompletions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	steps, err := h.sessions.StepCompletions(r.Context(), userID, sessionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	resp := api.ListStepCompletionsResponse{Steps: make([]api.StepCompletionResponse, 0, len(steps))}
	for _, c := range steps {
		resp.Steps = append(resp.Steps, api.StepCompletionResponse{
			StepIndex:        c.StepIndex,
			StepText:         c.StepText,
			Skipped:          c.Skipped,
			TimeTakenSeconds: c.TimeTakenSeconds,
			DifficultyRating: c.DifficultyRating,
			Notes:            c.Notes,
			CompletedAt:      c.CompletedAt,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

func toSessionResponse(s *store.CookingSession) api.SessionResponse {
	resp := api.SessionResponse{
		ID:                        s.ID.String(),
		RecipeID:                  s.RecipeID,
		BreakdownID:               s.BreakdownID.String(),
		Status:                    string(s.Status),
		CurrentStepIndex:          s.CurrentStepIndex,
		TotalSteps:                s.TotalSteps,
		TotalPauseDurationSeconds: s.TotalPauseDurationSeconds,
		StartedAt:                 s.StartedAt,
		CompletedAt:               s.CompletedAt,
	}
	if s.RoomID != nil {
		id := s.RoomID.String()
		resp.RoomID = &id
	}
	return resp
}
