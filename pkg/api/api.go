// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import "time"

// ErrorCode is a machine-readable error category returned by the API.
// The CLI matches on these exhaustively when rendering messages.
type ErrorCode string

const (
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeInvalidState       ErrorCode = "invalid_state"
	CodeConflict           ErrorCode = "conflict"
	CodeValidation         ErrorCode = "validation"
	CodeTransient          ErrorCode = "transient"
	CodeMaxRetriesExceeded ErrorCode = "max_retries_exceeded"
	CodeInternal           ErrorCode = "internal"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code,omitempty"`
}

// StepTemplate describes one step of a generated recipe breakdown.
type StepTemplate struct {
	Index           int             `json:"index"`
	Instruction     string          `json:"instruction"`
	DurationSeconds int             `json:"duration_seconds,omitempty"`
	Timers          []TimerTemplate `json:"timers,omitempty"`
	DependsOn       []int           `json:"depends_on,omitempty"`
	Tips            []string        `json:"tips,omitempty"`
}

// TimerTemplate describes a timer embedded in a breakdown step.
type TimerTemplate struct {
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
}

// StartSessionRequest is the request body for starting a cooking session.
type StartSessionRequest struct {
	RecipeID         string  `json:"recipe_id"`
	RecipeName       string  `json:"recipe_name,omitempty"`
	GranularityLevel int     `json:"granularity_level"`
	EnergyLevel      *int    `json:"energy_level,omitempty"`
	JoinRoomCode     *string `json:"join_room_code,omitempty"`
	RoomPassword     *string `json:"room_password,omitempty"`
}

// SessionResponse represents a cooking session in API responses.
type SessionResponse struct {
	ID                        string     `json:"id"`
	RecipeID                  string     `json:"recipe_id"`
	BreakdownID               string     `json:"breakdown_id"`
	Status                    string     `json:"status"`
	CurrentStepIndex          int        `json:"current_step_index"`
	TotalSteps                int        `json:"total_steps"`
	TotalPauseDurationSeconds int        `json:"total_pause_duration_seconds"`
	RoomID                    *string    `json:"room_id,omitempty"`
	StartedAt                 time.Time  `json:"started_at"`
	CompletedAt               *time.Time `json:"completed_at,omitempty"`
}

// UpdateProgressRequest is the request body for advancing a session.
type UpdateProgressRequest struct {
	CurrentStepIndex int     `json:"current_step_index"`
	Notes            *string `json:"notes,omitempty"`
}

// CompleteStepRequest is the request body for recording a step completion.
// The operation is an idempotent upsert keyed by (session, step index).
type CompleteStepRequest struct {
	StepText         string  `json:"step_text"`
	TimeTakenSeconds *int    `json:"time_taken_seconds,omitempty"`
	Skipped          bool    `json:"skipped"`
	DifficultyRating *int    `json:"difficulty_rating,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// StepCompletionResponse represents a recorded step outcome.
type StepCompletionResponse struct {
	StepIndex        int       `json:"step_index"`
	StepText         string    `json:"step_text"`
	Skipped          bool      `json:"skipped"`
	TimeTakenSeconds *int      `json:"time_taken_seconds,omitempty"`
	DifficultyRating *int      `json:"difficulty_rating,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// ListStepCompletionsResponse is the response body for listing step outcomes.
type ListStepCompletionsResponse struct {
	Steps []StepCompletionResponse `json:"steps"`
}

// CreateTimerRequest is the request body for starting a countdown timer.
type CreateTimerRequest struct {
	Name            string `json:"name"`
	DurationSeconds int    `json:"duration_seconds"`
	StepIndex       *int   `json:"step_index,omitempty"`
}

// TimerResponse represents a cooking timer in API responses.
type TimerResponse struct {
	ID                        string     `json:"id"`
	SessionID                 string     `json:"session_id"`
	StepIndex                 *int       `json:"step_index,omitempty"`
	Name                      string     `json:"name"`
	DurationSeconds           int        `json:"duration_seconds"`
	RemainingSeconds          int        `json:"remaining_seconds"`
	Status                    string     `json:"status"`
	TotalPauseDurationSeconds int        `json:"total_pause_duration_seconds"`
	CreatedAt                 time.Time  `json:"created_at"`
	CompletedAt               *time.Time `json:"completed_at,omitempty"`
}

// CreateRoomRequest is the request body for creating a body doubling room.
type CreateRoomRequest struct {
	Name            string     `json:"name"`
	MaxParticipants int        `json:"max_participants"`
	IsPublic        bool       `json:"is_public"`
	Password        *string    `json:"password,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	MaxParticipants int        `json:"max_participants"`
	IsPublic        bool       `json:"is_public"`
	HasPassword     bool       `json:"has_password"`
	Status          string     `json:"status"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JoinRoomRequest is the request body for joining a room by code.
type JoinRoomRequest struct {
	Code       string  `json:"code"`
	Password   *string `json:"password,omitempty"`
	SessionID  *string `json:"session_id,omitempty"`
	RecipeName *string `json:"recipe_name,omitempty"`
}

// JoinRoomResponse is the response body for a successful join.
type JoinRoomResponse struct {
	RoomID string `json:"room_id"`
}

// UpdateActivityRequest is the participant heartbeat payload.
type UpdateActivityRequest struct {
	CurrentStep *string `json:"current_step,omitempty"`
	EnergyLevel *int    `json:"energy_level,omitempty"`
}

// ParticipantResponse represents a room participant in API responses.
type ParticipantResponse struct {
	UserID         string     `json:"user_id"`
	SessionID      *string    `json:"session_id,omitempty"`
	RecipeName     *string    `json:"recipe_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	CurrentStep    *string    `json:"current_step,omitempty"`
	EnergyLevel    *int       `json:"energy_level,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// ListRoomsResponse is the response body for listing public rooms.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// ListParticipantsResponse is the response body for listing room members.
type ListParticipantsResponse struct {
	Participants []ParticipantResponse `json:"participants"`
}

// ListSessionsResponse is the response body for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// ListTimersResponse is the response body for listing session timers.
type ListTimersResponse struct {
	Timers []TimerResponse `json:"timers"`
}

// Granularity and energy levels are 1-5 scales.
const (
	GranularityMin = 1
	GranularityMax = 5

	EnergyMin = 1
	EnergyMax = 5
)

// Room capacity bounds.
const (
	RoomCapacityMin = 2
	RoomCapacityMax = 50
)
