package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

const sessionColumns = `id, user_id, recipe_id, recipe_name, breakdown_id, status,
	current_step_index, total_steps, total_pause_duration_seconds,
	paused_at, room_id, started_at, completed_at, updated_at`

func (s *Store) CreateSession(ctx context.Context, tx store.DBTransaction, session *store.CookingSession) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO cooking_sessions
			(id, user_id, recipe_id, recipe_name, breakdown_id, status,
			 current_step_index, total_steps, total_pause_duration_seconds,
			 paused_at, room_id, started_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := executor.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RecipeID,
		session.RecipeName,
		session.BreakdownID,
		session.Status,
		session.CurrentStepIndex,
		session.TotalSteps,
		session.TotalPauseDurationSeconds,
		session.PausedAt,
		session.RoomID,
		session.StartedAt,
		session.CompletedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}
	return nil
}

func (s *Store) GetSessionByID(ctx context.Context, id uuid.UUID) (*store.CookingSession, error) {
	query := fmt.Sprintf("SELECT %s FROM cooking_sessions WHERE id = $1", sessionColumns)
	return scanSession(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) UpdateSession(ctx context.Context, tx store.DBTransaction, session *store.CookingSession) error {
	executor := s.getExecutor(tx)

	query := `
		UPDATE cooking_sessions
		SET status = $2, current_step_index = $3, total_pause_duration_seconds = $4,
			paused_at = $5, room_id = $6, completed_at = $7, updated_at = $8
		WHERE id = $1
	`

	res, err := executor.ExecContext(ctx, query,
		session.ID,
		session.Status,
		session.CurrentStepIndex,
		session.TotalPauseDurationSeconds,
		session.PausedAt,
		session.RoomID,
		session.CompletedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", session.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*store.CookingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cooking_sessions
		WHERE user_id = $1 AND status IN ('active', 'paused')
		ORDER BY started_at DESC
	`, sessionColumns)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.CookingSession
	for rows.Next() {
		session, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Store) CountActiveSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cooking_sessions WHERE status IN ('active', 'paused')",
	).Scan(&count)
	return count, err
}

func (s *Store) UpsertStepCompletion(ctx context.Context, c *store.StepCompletion) error {
	// Idempotent by (session_id, step_index): the last write wins.
	query := `
		INSERT INTO step_completions
			(session_id, step_index, step_text, skipped, time_taken_seconds,
			 difficulty_rating, notes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, step_index) DO UPDATE
		SET step_text = EXCLUDED.step_text,
			skipped = EXCLUDED.skipped,
			time_taken_seconds = EXCLUDED.time_taken_seconds,
			difficulty_rating = EXCLUDED.difficulty_rating,
			notes = EXCLUDED.notes,
			completed_at = EXCLUDED.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		c.SessionID,
		c.StepIndex,
		c.StepText,
		c.Skipped,
		c.TimeTakenSeconds,
		c.DifficultyRating,
		c.Notes,
		c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert step completion (%s, %d): %w", c.SessionID, c.StepIndex, err)
	}
	return nil
}

func (s *Store) ListStepCompletions(ctx context.Context, sessionID uuid.UUID) ([]*store.StepCompletion, error) {
	query := `
		SELECT session_id, step_index, step_text, skipped, time_taken_seconds,
			difficulty_rating, notes, completed_at
		FROM step_completions
		WHERE session_id = $1
		ORDER BY step_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step completions: %w", err)
	}
	defer rows.Close()

	var completions []*store.StepCompletion
	for rows.Next() {
		var c store.StepCompletion
		if err := rows.Scan(
			&c.SessionID,
			&c.StepIndex,
			&c.StepText,
			&c.Skipped,
			&c.TimeTakenSeconds,
			&c.DifficultyRating,
			&c.Notes,
			&c.CompletedAt,
		); err != nil {
			return nil, err
		}
		completions = append(completions, &c)
	}
	return completions, rows.Err()
}

func scanSession(row *sql.Row) (*store.CookingSession, error) {
	var session store.CookingSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RecipeID,
		&session.RecipeName,
		&session.BreakdownID,
		&session.Status,
		&session.CurrentStepIndex,
		&session.TotalSteps,
		&session.TotalPauseDurationSeconds,
		&session.PausedAt,
		&session.RoomID,
		&session.StartedAt,
		&session.CompletedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func scanSessionRows(rows *sql.Rows) (*store.CookingSession, error) {
	var session store.CookingSession
	err := rows.Scan(
		&session.ID,
		&session.UserID,
		&session.RecipeID,
		&session.RecipeName,
		&session.BreakdownID,
		&session.Status,
		&session.CurrentStepIndex,
		&session.TotalSteps,
		&session.TotalPauseDurationSeconds,
		&session.PausedAt,
		&session.RoomID,
		&session.StartedAt,
		&session.CompletedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
