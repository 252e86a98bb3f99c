// Package store contains the database layer for cookplane.
package store

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system. Identity itself is external;
// a user is known here only by an opaque token, stored hashed.
type User struct {
	ID             uuid.UUID
	Name           string
	RateLimit      int // requests per second, 0 means unlimited
	RateLimitBurst int
	CreatedAt      time.Time
}

// RecipeBreakdown is a generated step-by-step decomposition of a recipe.
// Immutable once generated; only usage telemetry fields change afterwards.
type RecipeBreakdown struct {
	ID                 uuid.UUID
	RecipeID           string
	GranularityLevel   int  // 1 = maximally fine-grained, 5 = minimal
	EnergyLevel        *int // optional 1-5 bias
	Steps              []BreakdownStep
	TotalTimeSeconds   int
	ActiveTimeSeconds  int
	UsageCount         int
	LastUsedAt         *time.Time
	CreatedAt          time.Time
}

// BreakdownStep is a single ordered step within a breakdown.
type BreakdownStep struct {
	Index           int             `json:"index"`
	Instruction     string          `json:"instruction"`
	DurationSeconds int             `json:"duration_seconds,omitempty"`
	Timers          []TimerTemplate `json:"timers,omitempty"`
	DependsOn       []int           `json:"depends_on,omitempty"`
	Tips            []string        `json:"tips,omitempty"`
}

// TimerTemplate is a timer suggestion embedded in a breakdown step.
type TimerTemplate struct {
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SessionStatus represents the state of a cooking session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// CookingSession tracks a user's progress through a recipe breakdown.
// Sessions are never hard-deleted; terminal sessions are retained for history.
type CookingSession struct {
	ID                        uuid.UUID
	UserID                    uuid.UUID
	RecipeID                  string
	RecipeName                string
	BreakdownID               uuid.UUID
	Status                    SessionStatus
	CurrentStepIndex          int
	TotalSteps                int
	TotalPauseDurationSeconds int
	PausedAt                  *time.Time
	RoomID                    *uuid.UUID
	StartedAt                 time.Time
	CompletedAt               *time.Time
	UpdatedAt                 time.Time
}

// StepCompletion records the outcome of a single step. One row per
// (session, step index); re-completing a step overwrites the row.
type StepCompletion struct {
	SessionID        uuid.UUID
	StepIndex        int
	StepText         string
	Skipped          bool
	TimeTakenSeconds *int
	DifficultyRating *int
	Notes            *string
	CompletedAt      time.Time
}

// TimerStatus represents the state of a cooking timer.
type TimerStatus string

const (
	TimerStatusRunning   TimerStatus = "running"
	TimerStatusPaused    TimerStatus = "paused"
	TimerStatusCompleted TimerStatus = "completed"
	TimerStatusCancelled TimerStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s TimerStatus) Terminal() bool {
	return s == TimerStatusCompleted || s == TimerStatusCancelled
}

// CookingTimer is an independent countdown timer scoped to a session.
// Timers transition to a terminal status instead of being removed.
type CookingTimer struct {
	ID                        uuid.UUID
	SessionID                 uuid.UUID
	StepIndex                 *int
	Name                      string
	DurationSeconds           int
	RemainingSeconds          int
	Status                    TimerStatus
	TotalPauseDurationSeconds int
	PausedAt                  *time.Time
	NotificationSent          bool
	CreatedAt                 time.Time
	CompletedAt               *time.Time
}

// RoomStatus represents the state of a body doubling room.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusEnded  RoomStatus = "ended"
)

// BodyDoublingRoom is a shared room for co-cooking. The room code is
// unique among active rooms only; ended rooms free their codes.
type BodyDoublingRoom struct {
	ID              uuid.UUID
	CreatorID       uuid.UUID
	Name            string
	Code            string
	PasswordHash    *string
	MaxParticipants int
	IsPublic        bool
	Status          RoomStatus
	ScheduledStart  *time.Time
	StartedAt       time.Time
	EndedAt         *time.Time
	CreatedAt       time.Time
}

// Participant binds a user (and optionally their active session) to a room.
// A user has at most one membership row per room; rejoining reactivates it.
type Participant struct {
	ID             uuid.UUID
	RoomID         uuid.UUID
	UserID         uuid.UUID
	SessionID      *uuid.UUID
	RecipeName     *string
	IsActive       bool
	CurrentStep    *string
	EnergyLevel    *int
	JoinedAt       time.Time
	LeftAt         *time.Time
	LastActivityAt time.Time
}
