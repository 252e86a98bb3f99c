// Package session owns the cooking-session lifecycle state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

// Sentinel errors returned by the manager.
var (
	// ErrInvalidTransition is returned when an operation is illegal for
	// the session's current status.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
)

// BreakdownResolver resolves or generates a recipe breakdown.
type BreakdownResolver interface {
	Resolve(ctx context.Context, recipeID string, granularity int, energy *int) (*store.RecipeBreakdown, error)
}

// RoomService is the slice of room coordination the manager needs.
// The manager only ever holds opaque room identifiers.
type RoomService interface {
	// JoinByCode joins the user into the room with the given code and
	// returns the room ID.
	JoinByCode(ctx context.Context, userID uuid.UUID, code string, password *string, sessionID *uuid.UUID, recipeName *string) (uuid.UUID, error)

	// Leave marks the user's membership inactive.
	Leave(ctx context.Context, userID, roomID uuid.UUID) error

	// MirrorStep updates the user's human-readable step summary in the room.
	MirrorStep(ctx context.Context, userID, roomID uuid.UUID, summary string) error
}

// StartParams are the inputs for starting a session.
type StartParams struct {
	RecipeID         string
	RecipeName       string
	GranularityLevel int
	EnergyLevel      *int
	JoinRoomCode     *string
	RoomPassword     *string
}

// CompleteStepParams are the inputs for recording a step outcome.
type CompleteStepParams struct {
	StepIndex        int
	StepText         string
	TimeTakenSeconds *int
	Skipped          bool
	DifficultyRating *int
	Notes            *string
}

// Manager owns cooking sessions. All transitions on one session are
// serialized through a per-session lock: a pause and a complete can
// never race into an inconsistent state.
type Manager struct {
	store      store.SessionStore
	breakdowns BreakdownResolver
	rooms      RoomService
	log        *slog.Logger

	locks sync.Map // session ID -> *sync.Mutex
}

// NewManager creates a session manager.
func NewManager(s store.SessionStore, breakdowns BreakdownResolver, rooms RoomService, log *slog.Logger) *Manager {
	return &Manager{store: s, breakdowns: breakdowns, rooms: rooms, log: log}
}

// Start resolves a breakdown, optionally joins a room, and creates a
// session in active status at step 0. If a room join is requested and
// cannot succeed, the whole operation fails and no session is created.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID, p StartParams) (*store.CookingSession, error) {
	if p.RecipeID == "" {
		return nil, fmt.Errorf("%w: recipe id is required", ErrValidation)
	}

	b, err := m.breakdowns.Resolve(ctx, p.RecipeID, p.GranularityLevel, p.EnergyLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &store.CookingSession{
		ID:               uuid.New(),
		UserID:           userID,
		RecipeID:         p.RecipeID,
		RecipeName:       p.RecipeName,
		BreakdownID:      b.ID,
		Status:           store.SessionStatusActive,
		CurrentStepIndex: 0,
		TotalSteps:       len(b.Steps),
		StartedAt:        now,
		UpdatedAt:        now,
	}

	if p.JoinRoomCode != nil {
		var recipeName *string
		if p.RecipeName != "" {
			recipeName = &p.RecipeName
		}
		roomID, err := m.rooms.JoinByCode(ctx, userID, *p.JoinRoomCode, p.RoomPassword, &session.ID, recipeName)
		if err != nil {
			return nil, err
		}
		session.RoomID = &roomID
	}

	if err := m.store.CreateSession(ctx, nil, session); err != nil {
		// Unwind the seat so a failed insert never leaves a participant
		// row pointing at a session that was never created.
		if session.RoomID != nil {
			if leaveErr := m.rooms.Leave(ctx, userID, *session.RoomID); leaveErr != nil {
				m.log.WarnContext(ctx, "failed to leave room after session create failure",
					"room_id", *session.RoomID, "error", leaveErr)
			}
		}
		return nil, err
	}

	m.log.InfoContext(ctx, "session started",
		"session_id", session.ID, "recipe_id", p.RecipeID, "total_steps", session.TotalSteps)
	return session, nil
}

// Get returns the session if it belongs to the user. Sessions owned by
// other users are reported as not found.
func (m *Manager) Get(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.owned(ctx, userID, sessionID)
}

// ListActive returns the user's non-terminal sessions.
func (m *Manager) ListActive(ctx context.Context, userID uuid.UUID) ([]*store.CookingSession, error) {
	return m.store.ListActiveSessions(ctx, userID)
}

// UpdateProgress moves the session to a new step index. If the session
// is room-bound, a step summary is mirrored to the room; the mirror is
// best-effort and never blocks or fails this operation.
func (m *Manager) UpdateProgress(ctx context.Context, userID, sessionID uuid.UUID, newStepIndex int, notes *string) (*store.CookingSession, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	session, err := m.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session is %s: %w", session.Status, ErrInvalidTransition)
	}
	if newStepIndex < 0 || newStepIndex > session.TotalSteps {
		return nil, fmt.Errorf("%w: step index %d out of range [0, %d]", ErrValidation, newStepIndex, session.TotalSteps)
	}

	session.CurrentStepIndex = newStepIndex
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateSession(ctx, nil, session); err != nil {
		return nil, err
	}

	if session.RoomID != nil {
		m.mirrorStep(userID, *session.RoomID, session)
	}
	return session, nil
}

// Pause transitions active -> paused and records the pause start.
func (m *Manager) Pause(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	session, err := m.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionStatusActive {
		return nil, fmt.Errorf("cannot pause a %s session: %w", session.Status, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	session.Status = store.SessionStatusPaused
	session.PausedAt = &now
	session.UpdatedAt = now
	if err := m.store.UpdateSession(ctx, nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Resume transitions paused -> active and accumulates the paused time.
func (m *Manager) Resume(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	session, err := m.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionStatusPaused {
		return nil, fmt.Errorf("cannot resume a %s session: %w", session.Status, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if session.PausedAt != nil {
		session.TotalPauseDurationSeconds += int(now.Sub(*session.PausedAt).Seconds())
	}
	session.Status = store.SessionStatusActive
	session.PausedAt = nil
	session.UpdatedAt = now
	if err := m.store.UpdateSession(ctx, nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Complete transitions the session to its completed terminal status.
func (m *Manager) Complete(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.finish(ctx, userID, sessionID, store.SessionStatusCompleted)
}

// Abandon transitions the session to its abandoned terminal status.
// Abandonment is a first-class outcome, not a failure.
func (m *Manager) Abandon(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	return m.finish(ctx, userID, sessionID, store.SessionStatusAbandoned)
}

func (m *Manager) finish(ctx context.Context, userID, sessionID uuid.UUID, status store.SessionStatus) (*store.CookingSession, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	session, err := m.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session is already %s: %w", session.Status, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if session.Status == store.SessionStatusPaused && session.PausedAt != nil {
		session.TotalPauseDurationSeconds += int(now.Sub(*session.PausedAt).Seconds())
	}
	session.Status = status
	session.PausedAt = nil
	session.CompletedAt = &now
	session.UpdatedAt = now
	if err := m.store.UpdateSession(ctx, nil, session); err != nil {
		return nil, err
	}

	// Leaving the room is part of finishing but never fails it.
	if session.RoomID != nil {
		if err := m.rooms.Leave(ctx, userID, *session.RoomID); err != nil {
			m.log.WarnContext(ctx, "failed to leave room on session finish",
				"session_id", session.ID, "room_id", *session.RoomID, "error", err)
		}
	}

	m.log.InfoContext(ctx, "session finished", "session_id", session.ID, "status", status)
	return session, nil
}

// CompleteStep records the outcome of one step. The record is an
// idempotent upsert keyed by (session, step index): re-completing a
// step overwrites its record rather than duplicating it.
func (m *Manager) CompleteStep(ctx context.Context, userID, sessionID uuid.UUID, p CompleteStepParams) error {
	session, err := m.owned(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if p.StepIndex < 0 || p.StepIndex >= session.TotalSteps {
		return fmt.Errorf("%w: step index %d out of range [0, %d)", ErrValidation, p.StepIndex, session.TotalSteps)
	}
	if p.DifficultyRating != nil && (*p.DifficultyRating < 1 || *p.DifficultyRating > 5) {
		return fmt.Errorf("%w: difficulty rating %d out of range [1, 5]", ErrValidation, *p.DifficultyRating)
	}

	return m.store.UpsertStepCompletion(ctx, &store.StepCompletion{
		SessionID:        sessionID,
		StepIndex:        p.StepIndex,
		StepText:         p.StepText,
		Skipped:          p.Skipped,
		TimeTakenSeconds: p.TimeTakenSeconds,
		DifficultyRating: p.DifficultyRating,
		Notes:            p.Notes,
		CompletedAt:      time.Now().UTC(),
	})
}

// StepCompletions returns the session's step records ordered by index.
func (m *Manager) StepCompletions(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.StepCompletion, error) {
	if _, err := m.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return m.store.ListStepCompletions(ctx, sessionID)
}

// owned loads the session and verifies ownership. Ownership failures
// are indistinguishable from absence.
func (m *Manager) owned(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	session, err := m.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, store.ErrNotFound
	}
	return session, nil
}

func (m *Manager) lock(sessionID uuid.UUID) func() {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// mirrorStep pushes a step summary to the room off the request path.
// A failed mirror is logged and superseded by the next heartbeat.
func (m *Manager) mirrorStep(userID, roomID uuid.UUID, session *store.CookingSession) {
	summary := fmt.Sprintf("Step %d of %d", session.CurrentStepIndex+1, session.TotalSteps)
	if session.CurrentStepIndex >= session.TotalSteps {
		summary = "Finishing up"
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.rooms.MirrorStep(ctx, userID, roomID, summary); err != nil {
			m.log.Warn("failed to mirror step to room",
				"session_id", session.ID, "room_id", roomID, "error", err)
		}
	}()
}
