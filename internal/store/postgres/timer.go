package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

const timerColumns = `id, session_id, step_index, name, duration_seconds, remaining_seconds,
	status, total_pause_duration_seconds, paused_at, notification_sent, created_at, completed_at`

func (s *Store) CreateTimer(ctx context.Context, t *store.CookingTimer) error {
	query := `
		INSERT INTO cooking_timers
			(id, session_id, step_index, name, duration_seconds, remaining_seconds,
			 status, total_pause_duration_seconds, paused_at, notification_sent,
			 created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.SessionID,
		t.StepIndex,
		t.Name,
		t.DurationSeconds,
		t.RemainingSeconds,
		t.Status,
		t.TotalPauseDurationSeconds,
		t.PausedAt,
		t.NotificationSent,
		t.CreatedAt,
		t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create timer %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTimerByID(ctx context.Context, id uuid.UUID) (*store.CookingTimer, error) {
	query := fmt.Sprintf("SELECT %s FROM cooking_timers WHERE id = $1", timerColumns)

	t, err := scanTimer(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

func (s *Store) UpdateTimer(ctx context.Context, t *store.CookingTimer) error {
	query := `
		UPDATE cooking_timers
		SET remaining_seconds = $2, status = $3, total_pause_duration_seconds = $4,
			paused_at = $5, notification_sent = $6, completed_at = $7
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.RemainingSeconds,
		t.Status,
		t.TotalPauseDurationSeconds,
		t.PausedAt,
		t.NotificationSent,
		t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update timer %s: %w", t.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListTimersBySession(ctx context.Context, sessionID uuid.UUID) ([]*store.CookingTimer, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cooking_timers WHERE session_id = $1 ORDER BY created_at ASC
	`, timerColumns)

	return s.listTimers(ctx, query, sessionID)
}

func (s *Store) ListLiveTimers(ctx context.Context) ([]*store.CookingTimer, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cooking_timers
		WHERE status IN ('running', 'paused')
		ORDER BY created_at ASC
	`, timerColumns)

	return s.listTimers(ctx, query)
}

func (s *Store) listTimers(ctx context.Context, query string, args ...interface{}) ([]*store.CookingTimer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	defer rows.Close()

	var timers []*store.CookingTimer
	for rows.Next() {
		var t store.CookingTimer
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&t.StepIndex,
			&t.Name,
			&t.DurationSeconds,
			&t.RemainingSeconds,
			&t.Status,
			&t.TotalPauseDurationSeconds,
			&t.PausedAt,
			&t.NotificationSent,
			&t.CreatedAt,
			&t.CompletedAt,
		); err != nil {
			return nil, err
		}
		timers = append(timers, &t)
	}
	return timers, rows.Err()
}

func scanTimer(row *sql.Row) (*store.CookingTimer, error) {
	var t store.CookingTimer
	err := row.Scan(
		&t.ID,
		&t.SessionID,
		&t.StepIndex,
		&t.Name,
		&t.DurationSeconds,
		&t.RemainingSeconds,
		&t.Status,
		&t.TotalPauseDurationSeconds,
		&t.PausedAt,
		&t.NotificationSent,
		&t.CreatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
