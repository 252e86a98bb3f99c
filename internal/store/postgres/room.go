package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cookplane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const roomColumns = `id, creator_id, name, code, password_hash, max_participants,
	is_public, status, scheduled_start, started_at, ended_at, created_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

func (s *Store) CreateRoom(ctx context.Context, room *store.BodyDoublingRoom) error {
	query := `
		INSERT INTO body_doubling_rooms
			(id, creator_id, name, code, password_hash, max_participants,
			 is_public, status, scheduled_start, started_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		room.ID,
		room.CreatorID,
		room.Name,
		room.Code,
		room.PasswordHash,
		room.MaxParticipants,
		room.IsPublic,
		room.Status,
		room.ScheduledStart,
		room.StartedAt,
		room.EndedAt,
		room.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.ErrCodeTaken
		}
		return fmt.Errorf("failed to create room %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) GetRoomByID(ctx context.Context, id uuid.UUID) (*store.BodyDoublingRoom, error) {
	query := fmt.Sprintf("SELECT %s FROM body_doubling_rooms WHERE id = $1", roomColumns)
	return scanRoom(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetActiveRoomByCode(ctx context.Context, code string) (*store.BodyDoublingRoom, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM body_doubling_rooms WHERE code = $1 AND status = 'active'
	`, roomColumns)
	return scanRoom(s.db.QueryRowContext(ctx, query, code))
}

func (s *Store) LockRoom(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	executor := s.getExecutor(tx)

	var locked uuid.UUID
	err := executor.QueryRowContext(ctx,
		"SELECT id FROM body_doubling_rooms WHERE id = $1 AND status = 'active' FOR UPDATE", id,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) EndRoom(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE body_doubling_rooms SET status = 'ended', ended_at = $2 WHERE id = $1 AND status = 'active'",
		id, endedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to end room %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPublicRooms(ctx context.Context, limit, offset int) ([]*store.BodyDoublingRoom, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM body_doubling_rooms
		WHERE status = 'active' AND is_public
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, roomColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list public rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.BodyDoublingRoom
	for rows.Next() {
		room, err := scanRoomRows(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *Store) ListIdleRoomIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	// A room is idle when no participant has been active since the cutoff.
	query := `
		SELECT r.id FROM body_doubling_rooms r
		WHERE r.status = 'active'
		AND NOT EXISTS (
			SELECT 1 FROM room_participants p
			WHERE p.room_id = r.id AND p.is_active AND p.last_activity_at >= $1
		)
	`

	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle rooms: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CountActiveParticipants(ctx context.Context, tx store.DBTransaction, roomID uuid.UUID) (int64, error) {
	executor := s.getExecutor(tx)

	var count int64
	err := executor.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM room_participants WHERE room_id = $1 AND is_active", roomID,
	).Scan(&count)
	return count, err
}

// CountParticipantsInActiveRooms reports how many people are cooking
// together right now, across all rooms. Feeds the observable gauge.
func (s *Store) CountParticipantsInActiveRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM room_participants p
		 JOIN body_doubling_rooms r ON r.id = p.room_id
		 WHERE p.is_active AND r.status = 'active'`,
	).Scan(&count)
	return count, err
}

func (s *Store) UpsertParticipant(ctx context.Context, tx store.DBTransaction, p *store.Participant) error {
	executor := s.getExecutor(tx)

	// Rejoin reactivates the same logical membership instead of creating
	// a duplicate row.
	query := `
		INSERT INTO room_participants
			(id, room_id, user_id, session_id, recipe_name, is_active,
			 current_step, energy_level, joined_at, left_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
			recipe_name = EXCLUDED.recipe_name,
			is_active = TRUE,
			left_at = NULL,
			last_activity_at = EXCLUDED.last_activity_at
	`

	_, err := executor.ExecContext(ctx, query,
		p.ID,
		p.RoomID,
		p.UserID,
		p.SessionID,
		p.RecipeName,
		p.IsActive,
		p.CurrentStep,
		p.EnergyLevel,
		p.JoinedAt,
		p.LeftAt,
		p.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert participant (%s, %s): %w", p.RoomID, p.UserID, err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*store.Participant, error) {
	query := `
		SELECT id, room_id, user_id, session_id, recipe_name, is_active,
			current_step, energy_level, joined_at, left_at, last_activity_at
		FROM room_participants
		WHERE room_id = $1 AND user_id = $2
	`

	var p store.Participant
	err := s.db.QueryRowContext(ctx, query, roomID, userID).Scan(
		&p.ID,
		&p.RoomID,
		&p.UserID,
		&p.SessionID,
		&p.RecipeName,
		&p.IsActive,
		&p.CurrentStep,
		&p.EnergyLevel,
		&p.JoinedAt,
		&p.LeftAt,
		&p.LastActivityAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*store.Participant, error) {
	query := `
		SELECT id, room_id, user_id, session_id, recipe_name, is_active,
			current_step, energy_level, joined_at, left_at, last_activity_at
		FROM room_participants
		WHERE room_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*store.Participant
	for rows.Next() {
		var p store.Participant
		if err := rows.Scan(
			&p.ID,
			&p.RoomID,
			&p.UserID,
			&p.SessionID,
			&p.RecipeName,
			&p.IsActive,
			&p.CurrentStep,
			&p.EnergyLevel,
			&p.JoinedAt,
			&p.LeftAt,
			&p.LastActivityAt,
		); err != nil {
			return nil, err
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

func (s *Store) DeactivateParticipant(ctx context.Context, roomID, userID uuid.UUID, leftAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE room_participants
		SET is_active = FALSE, left_at = $3
		WHERE room_id = $1 AND user_id = $2 AND is_active
	`, roomID, userID, leftAt)
	if err != nil {
		return fmt.Errorf("failed to deactivate participant (%s, %s): %w", roomID, userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchParticipant(ctx context.Context, roomID, userID uuid.UUID, currentStep *string, energy *int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE room_participants
		SET last_activity_at = $3,
			current_step = COALESCE($4, current_step),
			energy_level = COALESCE($5, energy_level)
		WHERE room_id = $1 AND user_id = $2 AND is_active
	`, roomID, userID, at, currentStep, energy)
	if err != nil {
		return fmt.Errorf("failed to touch participant (%s, %s): %w", roomID, userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanRoom(row *sql.Row) (*store.BodyDoublingRoom, error) {
	var room store.BodyDoublingRoom
	err := row.Scan(
		&room.ID,
		&room.CreatorID,
		&room.Name,
		&room.Code,
		&room.PasswordHash,
		&room.MaxParticipants,
		&room.IsPublic,
		&room.Status,
		&room.ScheduledStart,
		&room.StartedAt,
		&room.EndedAt,
		&room.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func scanRoomRows(rows *sql.Rows) (*store.BodyDoublingRoom, error) {
	var room store.BodyDoublingRoom
	err := rows.Scan(
		&room.ID,
		&room.CreatorID,
		&room.Name,
		&room.Code,
		&room.PasswordHash,
		&room.MaxParticipants,
		&room.IsPublic,
		&room.Status,
		&room.ScheduledStart,
		&room.StartedAt,
		&room.EndedAt,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
