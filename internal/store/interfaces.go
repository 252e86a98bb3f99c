package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
// Callers must not distinguish "absent" from "exists but not yours".
var ErrNotFound = errors.New("not found")

// ErrCodeTaken is returned when a room code collides with an active room.
var ErrCodeTaken = errors.New("room code taken")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// UserStore handles retrieving user information for authentication.
type UserStore interface {
	// CreateUser inserts a new user with the given token hash.
	CreateUser(ctx context.Context, user *User, hashedToken string) error

	// GetUserByID returns a user by its ID.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetUserByTokenHash returns a user by its token hash.
	GetUserByTokenHash(ctx context.Context, hash string) (*User, error)
}

// BreakdownStore handles persistence of generated recipe breakdowns.
type BreakdownStore interface {
	// CreateBreakdown inserts a newly generated breakdown.
	CreateBreakdown(ctx context.Context, b *RecipeBreakdown) error

	// GetBreakdownByKey returns a breakdown by its natural key
	// (recipe, granularity, energy). energy nil matches rows without one.
	GetBreakdownByKey(ctx context.Context, recipeID string, granularity int, energy *int) (*RecipeBreakdown, error)

	// GetBreakdownByID returns a breakdown by its ID.
	GetBreakdownByID(ctx context.Context, id uuid.UUID) (*RecipeBreakdown, error)

	// TouchBreakdown increments the usage count and stamps last use.
	TouchBreakdown(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// SessionStore handles persistence of cooking sessions and step completions.
type SessionStore interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, tx DBTransaction, s *CookingSession) error

	// GetSessionByID returns a session by its ID.
	GetSessionByID(ctx context.Context, id uuid.UUID) (*CookingSession, error)

	// UpdateSession persists mutable session fields.
	UpdateSession(ctx context.Context, tx DBTransaction, s *CookingSession) error

	// ListActiveSessions returns the user's non-terminal sessions.
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*CookingSession, error)

	// CountActiveSessions returns the number of non-terminal sessions.
	CountActiveSessions(ctx context.Context) (int64, error)

	// UpsertStepCompletion inserts or overwrites the completion record
	// keyed by (session, step index).
	UpsertStepCompletion(ctx context.Context, c *StepCompletion) error

	// ListStepCompletions returns completions ordered by step index.
	ListStepCompletions(ctx context.Context, sessionID uuid.UUID) ([]*StepCompletion, error)
}

// TimerStore handles persistence of cooking timers.
type TimerStore interface {
	// CreateTimer inserts a new timer.
	CreateTimer(ctx context.Context, t *CookingTimer) error

	// GetTimerByID returns a timer by its ID.
	GetTimerByID(ctx context.Context, id uuid.UUID) (*CookingTimer, error)

	// UpdateTimer persists mutable timer fields.
	UpdateTimer(ctx context.Context, t *CookingTimer) error

	// ListTimersBySession returns all timers of a session.
	ListTimersBySession(ctx context.Context, sessionID uuid.UUID) ([]*CookingTimer, error)

	// ListLiveTimers returns all running and paused timers across
	// sessions. Used to rebuild the engine arena on startup.
	ListLiveTimers(ctx context.Context) ([]*CookingTimer, error)
}

// RoomStore handles persistence of rooms and their participants.
type RoomStore interface {
	BeginTx(ctx context.Context) (Tx, error)

	// CreateRoom inserts a new room. Returns ErrCodeTaken when the code
	// collides with another active room.
	CreateRoom(ctx context.Context, room *BodyDoublingRoom) error

	// GetRoomByID returns a room regardless of status.
	GetRoomByID(ctx context.Context, id uuid.UUID) (*BodyDoublingRoom, error)

	// GetActiveRoomByCode returns an active room by its code.
	GetActiveRoomByCode(ctx context.Context, code string) (*BodyDoublingRoom, error)

	// LockRoom takes a row lock on the room for the duration of the
	// transaction. Serializes capacity checks between concurrent joins.
	LockRoom(ctx context.Context, tx DBTransaction, id uuid.UUID) error

	// EndRoom marks the room ended and stamps the end time.
	EndRoom(ctx context.Context, id uuid.UUID, endedAt time.Time) error

	// ListPublicRooms returns active public rooms, newest first.
	ListPublicRooms(ctx context.Context, limit, offset int) ([]*BodyDoublingRoom, error)

	// ListIdleRoomIDs returns active rooms whose every participant has
	// been inactive since before the cutoff.
	ListIdleRoomIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// CountActiveParticipants returns the live number of active members.
	// Must be read inside the same transaction as the join decision.
	CountActiveParticipants(ctx context.Context, tx DBTransaction, roomID uuid.UUID) (int64, error)

	// UpsertParticipant inserts a membership or reactivates the existing
	// row for (room, user).
	UpsertParticipant(ctx context.Context, tx DBTransaction, p *Participant) error

	// GetParticipant returns the membership row for (room, user).
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*Participant, error)

	// ListParticipants returns all membership rows of a room.
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*Participant, error)

	// DeactivateParticipant marks the membership inactive and stamps
	// the leave time. The row is kept for history.
	DeactivateParticipant(ctx context.Context, roomID, userID uuid.UUID, leftAt time.Time) error

	// TouchParticipant updates the heartbeat and optional presence
	// fields of an active membership.
	TouchParticipant(ctx context.Context, roomID, userID uuid.UUID, currentStep *string, energy *int, at time.Time) error
}
