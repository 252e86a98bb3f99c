// Package timer runs the countdown engine for cooking timers.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cookplane/internal/notify"
	"cookplane/internal/store"

	"github.com/google/uuid"
)

// Sentinel errors returned by the engine.
var (
	// ErrInvalidTransition is returned when an operation is illegal for
	// the timer's current status.
	ErrInvalidTransition = errors.New("invalid timer state transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
)

// flushEvery bounds how many ticks a decrement can live only in memory
// before it is written back to the store.
const flushEvery = 30

// SessionGetter is the slice of session access the engine needs to
// scope timers to their owning session.
type SessionGetter interface {
	GetSessionByID(ctx context.Context, id uuid.UUID) (*store.CookingSession, error)
}

// Engine owns every live timer in the process. Timers count down in
// memory on a fixed tick; the store is the durable record and the
// engine arena is rebuilt from it on startup.
type Engine struct {
	store    store.TimerStore
	sessions SessionGetter
	notifier notify.Notifier
	log      *slog.Logger
	tick     time.Duration

	mu    sync.Mutex
	arena map[uuid.UUID]*store.CookingTimer
	ticks uint64
}

// NewEngine creates a timer engine. tick is the countdown resolution.
func NewEngine(s store.TimerStore, sessions SessionGetter, n notify.Notifier, tick time.Duration, log *slog.Logger) *Engine {
	return &Engine{
		store:    s,
		sessions: sessions,
		notifier: n,
		log:      log,
		tick:     tick,
		arena:    make(map[uuid.UUID]*store.CookingTimer),
	}
}

// Restore loads all running and paused timers into the arena. Called
// once at startup before Run.
func (e *Engine) Restore(ctx context.Context) error {
	timers, err := e.store.ListLiveTimers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list live timers: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range timers {
		e.arena[t.ID] = t
	}
	if len(timers) > 0 {
		e.log.Info("restored live timers", "count", len(timers))
	}
	return nil
}

// Run drives the countdown until ctx is cancelled. Blocks.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.flush(context.Background())
			return
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

// step advances every running timer by one tick. Timers that reach
// zero complete and fire their notification exactly once.
func (e *Engine) step(ctx context.Context) {
	e.mu.Lock()
	e.ticks++
	persist := e.ticks%flushEvery == 0

	var completed []*store.CookingTimer
	var dirty []*store.CookingTimer
	for id, t := range e.arena {
		if t.Status != store.TimerStatusRunning {
			continue
		}
		t.RemainingSeconds--
		if t.RemainingSeconds <= 0 {
			t.RemainingSeconds = 0
			now := time.Now().UTC()
			t.Status = store.TimerStatusCompleted
			t.CompletedAt = &now
			delete(e.arena, id)
			completed = append(completed, t)
		} else if persist {
			// Snapshot so the write outside the lock never races a
			// concurrent transition mutating the arena entry.
			copied := *t
			dirty = append(dirty, &copied)
		}
	}
	e.mu.Unlock()

	for _, t := range completed {
		e.finishTimer(ctx, t)
	}
	for _, t := range dirty {
		if err := e.store.UpdateTimer(ctx, t); err != nil {
			e.log.Warn("failed to flush timer", "timer_id", t.ID, "error", err)
		}
	}
}

// finishTimer persists a completed timer and notifies once. The
// notification flag is written before delivery is attempted so a
// retried write can never ring twice.
func (e *Engine) finishTimer(ctx context.Context, t *store.CookingTimer) {
	notifyNow := !t.NotificationSent
	t.NotificationSent = true
	if err := e.store.UpdateTimer(ctx, t); err != nil {
		e.log.Error("failed to persist completed timer", "timer_id", t.ID, "error", err)
	}
	if notifyNow {
		if err := e.notifier.Notify(ctx, t.ID, t.Name); err != nil {
			e.log.Warn("timer notification failed", "timer_id", t.ID, "error", err)
		}
	}
	e.log.InfoContext(ctx, "timer completed", "timer_id", t.ID, "name", t.Name)
}

// flush writes every in-memory remaining value back to the store.
func (e *Engine) flush(ctx context.Context) {
	e.mu.Lock()
	timers := make([]*store.CookingTimer, 0, len(e.arena))
	for _, t := range e.arena {
		copied := *t
		timers = append(timers, &copied)
	}
	e.mu.Unlock()

	for _, t := range timers {
		if err := e.store.UpdateTimer(ctx, t); err != nil {
			e.log.Warn("failed to flush timer on shutdown", "timer_id", t.ID, "error", err)
		}
	}
}

// CreateParams are the inputs for creating a timer.
type CreateParams struct {
	Name            string
	DurationSeconds int
	StepIndex       *int
}

// Create starts a new timer in running status under the given session.
func (e *Engine) Create(ctx context.Context, userID, sessionID uuid.UUID, p CreateParams) (*store.CookingTimer, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: timer name is required", ErrValidation)
	}
	if p.DurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	session, err := e.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session is %s: %w", session.Status, ErrInvalidTransition)
	}

	t := &store.CookingTimer{
		ID:               uuid.New(),
		SessionID:        sessionID,
		StepIndex:        p.StepIndex,
		Name:             p.Name,
		DurationSeconds:  p.DurationSeconds,
		RemainingSeconds: p.DurationSeconds,
		Status:           store.TimerStatusRunning,
		CreatedAt:        time.Now().UTC(),
	}
	if err := e.store.CreateTimer(ctx, t); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.arena[t.ID] = t
	e.mu.Unlock()

	e.log.InfoContext(ctx, "timer created",
		"timer_id", t.ID, "session_id", sessionID, "duration_seconds", p.DurationSeconds)
	return t, nil
}

// Pause stops the countdown of a running timer.
func (e *Engine) Pause(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return e.transition(ctx, userID, timerID, func(t *store.CookingTimer) error {
		if t.Status != store.TimerStatusRunning {
			return fmt.Errorf("cannot pause a %s timer: %w", t.Status, ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = store.TimerStatusPaused
		t.PausedAt = &now
		return nil
	})
}

// Resume restarts the countdown of a paused timer. Time spent paused
// accumulates; the remaining seconds are untouched.
func (e *Engine) Resume(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return e.transition(ctx, userID, timerID, func(t *store.CookingTimer) error {
		if t.Status != store.TimerStatusPaused {
			return fmt.Errorf("cannot resume a %s timer: %w", t.Status, ErrInvalidTransition)
		}
		if t.PausedAt != nil {
			t.TotalPauseDurationSeconds += int(time.Since(*t.PausedAt).Seconds())
		}
		t.Status = store.TimerStatusRunning
		t.PausedAt = nil
		return nil
	})
}

// Complete marks the timer done ahead of its countdown. No completion
// notification fires for a manual complete.
func (e *Engine) Complete(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return e.transition(ctx, userID, timerID, func(t *store.CookingTimer) error {
		if t.Status.Terminal() {
			return fmt.Errorf("timer is already %s: %w", t.Status, ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = store.TimerStatusCompleted
		t.CompletedAt = &now
		t.NotificationSent = true
		return nil
	})
}

// Cancel discards the timer.
func (e *Engine) Cancel(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	return e.transition(ctx, userID, timerID, func(t *store.CookingTimer) error {
		if t.Status.Terminal() {
			return fmt.Errorf("timer is already %s: %w", t.Status, ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = store.TimerStatusCancelled
		t.CompletedAt = &now
		return nil
	})
}

// Get returns a single timer scoped to its session owner.
func (e *Engine) Get(ctx context.Context, userID, timerID uuid.UUID) (*store.CookingTimer, error) {
	e.mu.Lock()
	if t, ok := e.arena[timerID]; ok {
		copied := *t
		e.mu.Unlock()
		if _, err := e.ownedSession(ctx, userID, copied.SessionID); err != nil {
			return nil, err
		}
		return &copied, nil
	}
	e.mu.Unlock()

	t, err := e.store.GetTimerByID(ctx, timerID)
	if err != nil {
		return nil, err
	}
	if _, err := e.ownedSession(ctx, userID, t.SessionID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListBySession returns all timers of a session, live state included.
func (e *Engine) ListBySession(ctx context.Context, userID, sessionID uuid.UUID) ([]*store.CookingTimer, error) {
	if _, err := e.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	timers, err := e.store.ListTimersBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Overlay the arena so callers see up-to-date countdowns rather
	// than the last flushed value.
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range timers {
		if live, ok := e.arena[t.ID]; ok {
			copied := *live
			timers[i] = &copied
		}
	}
	return timers, nil
}

// RunningCount returns the number of timers currently counting down.
func (e *Engine) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.arena {
		if t.Status == store.TimerStatusRunning {
			n++
		}
	}
	return n
}

// transition applies a state change under the engine lock and persists
// the result. Terminal timers leave the arena.
func (e *Engine) transition(ctx context.Context, userID, timerID uuid.UUID, apply func(*store.CookingTimer) error) (*store.CookingTimer, error) {
	e.mu.Lock()
	t, ok := e.arena[timerID]
	e.mu.Unlock()
	if !ok {
		// Not live: either unknown or already terminal. Both are state
		// errors for a mutation; only reads report absence as such.
		stored, err := e.store.GetTimerByID(ctx, timerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no such timer: %w", ErrInvalidTransition)
		}
		if err != nil {
			return nil, err
		}
		if _, err := e.ownedSession(ctx, userID, stored.SessionID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("timer is %s: %w", stored.Status, ErrInvalidTransition)
	}

	if _, err := e.ownedSession(ctx, userID, t.SessionID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	// Re-check: the tick loop may have completed the timer while the
	// ownership lookup ran.
	t, ok = e.arena[timerID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("timer already finished: %w", ErrInvalidTransition)
	}
	if err := apply(t); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if t.Status.Terminal() {
		delete(e.arena, timerID)
	}
	copied := *t
	e.mu.Unlock()

	if err := e.store.UpdateTimer(ctx, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (e *Engine) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*store.CookingSession, error) {
	session, err := e.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, store.ErrNotFound
	}
	return session, nil
}
