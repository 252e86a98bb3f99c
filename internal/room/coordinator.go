// Package room coordinates shared body doubling rooms and their
// participants.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"cookplane/internal/auth"
	"cookplane/internal/store"
	"cookplane/pkg/api"

	"github.com/google/uuid"
)

// maxCodeAttempts bounds room code generation. Codes come from a small
// vocabulary, so collisions are expected and retried, not fatal on the
// first hit.
const maxCodeAttempts = 5

// Sentinel errors returned by the coordinator.
var (
	// ErrRoomFull is returned when a join would exceed the room's capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrCodeGenerationExhausted is returned when every code attempt
	// collided with an active room.
	ErrCodeGenerationExhausted = errors.New("room code generation exhausted")

	// ErrPasswordRequired is returned when joining a protected room
	// without a password.
	ErrPasswordRequired = errors.New("room password required")

	// ErrIncorrectPassword is returned when the supplied password does
	// not match.
	ErrIncorrectPassword = errors.New("incorrect room password")

	// ErrInvalidTransition is returned when an operation is illegal for
	// the room's current status.
	ErrInvalidTransition = errors.New("invalid room state transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
)

// Coordinator owns rooms and memberships. Capacity is enforced at join
// time against a live count taken under a row lock, never against a
// cached counter.
type Coordinator struct {
	store store.RoomStore
	log   *slog.Logger
}

// NewCoordinator creates a room coordinator.
func NewCoordinator(s store.RoomStore, log *slog.Logger) *Coordinator {
	return &Coordinator{store: s, log: log}
}

// CreateParams are the inputs for creating a room.
type CreateParams struct {
	Name            string
	MaxParticipants int
	IsPublic        bool
	Password        *string
	ScheduledStart  *time.Time
}

// Create generates a room code, persists the room and auto-joins the
// creator as its first participant.
func (c *Coordinator) Create(ctx context.Context, creatorID uuid.UUID, p CreateParams) (*store.BodyDoublingRoom, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if p.MaxParticipants < api.RoomCapacityMin || p.MaxParticipants > api.RoomCapacityMax {
		return nil, fmt.Errorf("%w: max participants %d out of range [%d, %d]",
			ErrValidation, p.MaxParticipants, api.RoomCapacityMin, api.RoomCapacityMax)
	}

	var passwordHash *string
	if p.Password != nil && *p.Password != "" {
		h := auth.HashToken(*p.Password)
		passwordHash = &h
	}

	now := time.Now().UTC()
	room := &store.BodyDoublingRoom{
		ID:              uuid.New(),
		CreatorID:       creatorID,
		Name:            p.Name,
		PasswordHash:    passwordHash,
		MaxParticipants: p.MaxParticipants,
		IsPublic:        p.IsPublic,
		Status:          store.RoomStatusActive,
		ScheduledStart:  p.ScheduledStart,
		StartedAt:       now,
		CreatedAt:       now,
	}

	created := false
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room.Code = generateCode(attempt)
		err := c.store.CreateRoom(ctx, room)
		if errors.Is(err, store.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = true
		break
	}
	if !created {
		return nil, ErrCodeGenerationExhausted
	}

	participant := &store.Participant{
		ID:             uuid.New(),
		RoomID:         room.ID,
		UserID:         creatorID,
		IsActive:       true,
		JoinedAt:       now,
		LastActivityAt: now,
	}
	if err := c.store.UpsertParticipant(ctx, nil, participant); err != nil {
		return nil, fmt.Errorf("failed to seat creator: %w", err)
	}

	c.log.InfoContext(ctx, "room created",
		"room_id", room.ID, "code", room.Code, "max_participants", room.MaxParticipants)
	return room, nil
}

// generateCode draws a themed word and appends the current year. Retry
// attempts carry an extra randomized two-digit suffix.
func generateCode(attempt int) string {
	word := codeWords[rand.IntN(len(codeWords))]
	code := fmt.Sprintf("%s-%d", word, time.Now().Year())
	if attempt > 0 {
		code = fmt.Sprintf("%s-%02d", code, rand.IntN(90)+10)
	}
	return code
}

// JoinByCode joins the user into the active room with the given code.
// The capacity check and the membership write happen in one transaction
// under a row lock, so concurrent joins can never over-admit.
func (c *Coordinator) JoinByCode(ctx context.Context, userID uuid.UUID, code string, password *string, sessionID *uuid.UUID, recipeName *string) (uuid.UUID, error) {
	room, err := c.store.GetActiveRoomByCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}

	if room.PasswordHash != nil {
		if password == nil || *password == "" {
			return uuid.Nil, ErrPasswordRequired
		}
		if auth.HashToken(*password) != *room.PasswordHash {
			return uuid.Nil, ErrIncorrectPassword
		}
	}

	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	if err := c.store.LockRoom(ctx, tx, room.ID); err != nil {
		return uuid.Nil, err
	}

	rejoining := false
	if existing, err := c.store.GetParticipant(ctx, room.ID, userID); err == nil && existing.IsActive {
		rejoining = true
	}
	if !rejoining {
		count, err := c.store.CountActiveParticipants(ctx, tx, room.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if count >= int64(room.MaxParticipants) {
			return uuid.Nil, ErrRoomFull
		}
	}

	now := time.Now().UTC()
	participant := &store.Participant{
		ID:             uuid.New(),
		RoomID:         room.ID,
		UserID:         userID,
		SessionID:      sessionID,
		RecipeName:     recipeName,
		IsActive:       true,
		JoinedAt:       now,
		LastActivityAt: now,
	}
	if err := c.store.UpsertParticipant(ctx, tx, participant); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	c.log.InfoContext(ctx, "participant joined room", "room_id", room.ID, "code", code)
	return room.ID, nil
}

// Leave marks the user's membership inactive. The row is kept.
func (c *Coordinator) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	return c.store.DeactivateParticipant(ctx, roomID, userID, time.Now().UTC())
}

// MirrorStep updates the member's human-readable step summary.
func (c *Coordinator) MirrorStep(ctx context.Context, userID, roomID uuid.UUID, summary string) error {
	return c.store.TouchParticipant(ctx, roomID, userID, &summary, nil, time.Now().UTC())
}

// UpdateActivity is the member heartbeat. Fails when the caller has no
// active membership.
func (c *Coordinator) UpdateActivity(ctx context.Context, userID, roomID uuid.UUID, currentStep *string, energy *int) error {
	if energy != nil && (*energy < api.EnergyMin || *energy > api.EnergyMax) {
		return fmt.Errorf("%w: energy level %d out of range [%d, %d]",
			ErrValidation, *energy, api.EnergyMin, api.EnergyMax)
	}
	return c.store.TouchParticipant(ctx, roomID, userID, currentStep, energy, time.Now().UTC())
}

// GetRoom returns the room if the caller may see it. Public rooms are
// visible to anyone; private rooms only to the creator and members.
func (c *Coordinator) GetRoom(ctx context.Context, userID, roomID uuid.UUID) (*store.BodyDoublingRoom, error) {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := c.visible(ctx, userID, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Participants returns the room's membership rows, subject to the same
// visibility rule as GetRoom.
func (c *Coordinator) Participants(ctx context.Context, userID, roomID uuid.UUID) ([]*store.Participant, error) {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := c.visible(ctx, userID, room); err != nil {
		return nil, err
	}
	return c.store.ListParticipants(ctx, roomID)
}

// ListPublic returns active public rooms, newest first.
func (c *Coordinator) ListPublic(ctx context.Context, limit, offset int) ([]*store.BodyDoublingRoom, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return c.store.ListPublicRooms(ctx, limit, offset)
}

// End marks the room ended. Only the creator may end a room; for
// everyone else the room behaves as if it does not exist.
func (c *Coordinator) End(ctx context.Context, userID, roomID uuid.UUID) error {
	room, err := c.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != userID {
		return store.ErrNotFound
	}
	if room.Status != store.RoomStatusActive {
		return fmt.Errorf("room is already %s: %w", room.Status, ErrInvalidTransition)
	}
	if err := c.store.EndRoom(ctx, roomID, time.Now().UTC()); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "room ended", "room_id", roomID)
	return nil
}

// RunSweeper ends rooms whose every member has been idle past the
// inactivity window. Blocks until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context, interval, window time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx, window)
		}
	}
}

func (c *Coordinator) sweep(ctx context.Context, window time.Duration) {
	cutoff := time.Now().UTC().Add(-window)
	ids, err := c.store.ListIdleRoomIDs(ctx, cutoff)
	if err != nil {
		c.log.Warn("failed to list idle rooms", "error", err)
		return
	}
	for _, id := range ids {
		if err := c.store.EndRoom(ctx, id, time.Now().UTC()); err != nil {
			c.log.Warn("failed to end idle room", "room_id", id, "error", err)
			continue
		}
		c.log.Info("ended idle room", "room_id", id)
	}
}

func (c *Coordinator) visible(ctx context.Context, userID uuid.UUID, room *store.BodyDoublingRoom) error {
	if room.IsPublic || room.CreatorID == userID {
		return nil
	}
	if _, err := c.store.GetParticipant(ctx, room.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}
