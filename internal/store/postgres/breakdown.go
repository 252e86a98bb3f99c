package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

const breakdownColumns = `id, recipe_id, granularity_level, energy_level, steps,
	total_time_seconds, active_time_seconds, usage_count, last_used_at, created_at`

func (s *Store) CreateBreakdown(ctx context.Context, b *store.RecipeBreakdown) error {
	steps, err := json.Marshal(b.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown steps: %w", err)
	}

	query := `
		INSERT INTO recipe_breakdowns
			(id, recipe_id, granularity_level, energy_level, steps,
			 total_time_seconds, active_time_seconds, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID,
		b.RecipeID,
		b.GranularityLevel,
		b.EnergyLevel,
		steps,
		b.TotalTimeSeconds,
		b.ActiveTimeSeconds,
		b.UsageCount,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create breakdown for recipe %s: %w", b.RecipeID, err)
	}
	return nil
}

func (s *Store) GetBreakdownByKey(ctx context.Context, recipeID string, granularity int, energy *int) (*store.RecipeBreakdown, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM recipe_breakdowns
		WHERE recipe_id = $1 AND granularity_level = $2 AND COALESCE(energy_level, 0) = COALESCE($3, 0)
	`, breakdownColumns)

	return s.scanBreakdown(s.db.QueryRowContext(ctx, query, recipeID, granularity, energy))
}

func (s *Store) GetBreakdownByID(ctx context.Context, id uuid.UUID) (*store.RecipeBreakdown, error) {
	query := fmt.Sprintf("SELECT %s FROM recipe_breakdowns WHERE id = $1", breakdownColumns)
	return s.scanBreakdown(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) TouchBreakdown(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE recipe_breakdowns
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1
	`

	_, err := s.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to touch breakdown %s: %w", id, err)
	}
	return nil
}

func (s *Store) scanBreakdown(row *sql.Row) (*store.RecipeBreakdown, error) {
	var b store.RecipeBreakdown
	var steps []byte

	err := row.Scan(
		&b.ID,
		&b.RecipeID,
		&b.GranularityLevel,
		&b.EnergyLevel,
		&steps,
		&b.TotalTimeSeconds,
		&b.ActiveTimeSeconds,
		&b.UsageCount,
		&b.LastUsedAt,
		&b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &b.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown steps: %w", err)
	}

	return &b, nil
}
