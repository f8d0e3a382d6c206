package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arsenal-bot/internal/model"
)

// ErrProfileNotFound is returned when a user never configured a profile.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository persists profile customisation.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get retrieves a user's profile.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*model.Profile, error) {
	const query = `SELECT user_id, style, bio, accent_color, updated_at FROM profiles WHERE user_id = $1`

	var p model.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Style, &p.Bio, &p.AccentColor, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Upsert stores a profile, replacing any previous one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	const query = `
		INSERT INTO profiles (user_id, style, bio, accent_color, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			style = EXCLUDED.style,
			bio = EXCLUDED.bio,
			accent_color = EXCLUDED.accent_color,
			updated_at = NOW()
		RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query, p.UserID, p.Style, p.Bio, p.AccentColor).Scan(&p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Delete removes a user's profile. Deleting a missing profile is not an error.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
