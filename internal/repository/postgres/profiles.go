package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

type ProfileRepository struct {
	db repository.DBTX
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `INSERT INTO user_infos (user_id, name, age, gender, profile_image)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.Name, profile.Age, string(profile.Gender), profile.ProfileImage)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert profile: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	query := `SELECT user_id, name, age, gender, profile_image
		FROM user_infos
		WHERE user_id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

// GetByUserIDForUpdate holds a row lock until the transaction ends, so two
// concurrent updates cannot both diff against the same old values.
func (r *ProfileRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Profile, error) {
	query := `SELECT user_id, name, age, gender, profile_image
		FROM user_infos
		WHERE user_id = $1
		FOR UPDATE`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	query := `UPDATE user_infos
		SET name = $1, age = $2, gender = $3, profile_image = $4
		WHERE user_id = $5`

	res, err := r.db.ExecContext(ctx, query,
		profile.Name, profile.Age, string(profile.Gender), profile.ProfileImage, profile.UserID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update profile: %w", repository.ErrNotFound)
	}
	return nil
}

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var (
		profile domain.Profile
		gender  string
	)
	err := row.Scan(&profile.UserID, &profile.Name, &profile.Age, &gender, &profile.ProfileImage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.Gender = domain.Gender(gender)
	return &profile, nil
}
