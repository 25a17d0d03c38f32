package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS user_infos (
	user_id INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	age INTEGER NOT NULL DEFAULT 0,
	gender TEXT NOT NULL,
	profile_image TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

type ProfileRepository struct {
	db repository.DBTX
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO user_infos (user_id, name, age, gender, profile_image)
VALUES (?, ?, ?, ?, ?)`,
		profile.UserID,
		profile.Name,
		profile.Age,
		string(profile.Gender),
		profile.ProfileImage,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert profile: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, name, age, gender, profile_image
FROM user_infos
WHERE user_id = ?`,
		userID,
	)
	return scanProfile(row)
}

// GetByUserIDForUpdate is a plain read: the single connection opened by
// Open already keeps other writers out of the transaction.
func (r *ProfileRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Profile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE user_infos
SET name=?, age=?, gender=?, profile_image=?
WHERE user_id=?`,
		profile.Name,
		profile.Age,
		string(profile.Gender),
		profile.ProfileImage,
		profile.UserID,
	)
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

func scanProfile(row interface {
	Scan(dest ...any) error
}) (*domain.Profile, error) {
	var (
		profile domain.Profile
		gender  string
	)
	if err := row.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Age,
		&gender,
		&profile.ProfileImage,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.Gender = domain.Gender(gender)
	return &profile, nil
}
