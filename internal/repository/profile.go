package repository

import (
	"context"

	"userinfo-api/internal/domain"
)

// ProfileRepository manages the 1:1 profile row of a user.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error)
	// GetByUserIDForUpdate reads the profile and locks it until the
	// surrounding transaction ends, where the backend supports row locks.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
}

// HistoryRepository appends and lists profile change records.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByUser(ctx context.Context, userID int64) ([]domain.HistoryEntry, error)
}
