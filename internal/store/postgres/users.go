package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cookplane/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, user *store.User, hashedToken string) error {
	query := `
		INSERT INTO users (id, name, token_hash, rate_limit, rate_limit_burst, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		hashedToken,
		user.RateLimit,
		user.RateLimitBurst,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	query := "SELECT id, name, rate_limit, rate_limit_burst, created_at FROM users WHERE id = $1"

	var u store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.RateLimit,
		&u.RateLimitBurst,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (s *Store) GetUserByTokenHash(ctx context.Context, hash string) (*store.User, error) {
	query := "SELECT id, name, rate_limit, rate_limit_burst, created_at FROM users WHERE token_hash = $1"

	var u store.User
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&u.ID,
		&u.Name,
		&u.RateLimit,
		&u.RateLimitBurst,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}
