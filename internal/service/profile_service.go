package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

// ErrProfileNotFound means an authenticated user has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileService reads and changes a user's profile. Every change is
// recorded in the user's history in the same transaction.
type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (*domain.UserWithProfile, error)
	UpdateProfile(ctx context.Context, userID int64, update domain.ProfileUpdate) ([]domain.FieldChange, error)
	ListHistory(ctx context.Context, userID int64) ([]domain.HistoryEntry, error)
}

type profileService struct {
	store  repository.Store
	logger logrus.FieldLogger
}

func NewProfileService(store repository.Store, logger logrus.FieldLogger) ProfileService {
	return &profileService{store: store, logger: logger}
}

func (s *profileService) GetProfile(ctx context.Context, userID int64) (*domain.UserWithProfile, error) {
	db := s.store.DB()
	user, err := s.store.Users(db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	profile, err := s.store.Profiles(db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &domain.UserWithProfile{User: *sanitizeUser(user), Profile: *profile}, nil
}

// UpdateProfile applies update and returns the fields that changed. The
// current profile is read and locked inside the transaction, so the recorded
// old values are the ones actually overwritten.
func (s *profileService) UpdateProfile(ctx context.Context, userID int64, update domain.ProfileUpdate) ([]domain.FieldChange, error) {
	update, err := update.Normalized()
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, nil
	}

	var changes []domain.FieldChange
	err = repository.InTx(ctx, s.store, func(ctx context.Context, tx repository.DBTX) error {
		profiles := s.store.Profiles(tx)
		current, err := profiles.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		next, diff := update.Apply(*current)
		if len(diff) == 0 {
			return nil
		}
		if err := profiles.Update(ctx, &next); err != nil {
			return err
		}

		histories := s.store.Histories(tx)
		for _, change := range diff {
			if err := histories.Append(ctx, &domain.HistoryEntry{
				UserID:       userID,
				ChangedField: change.Field,
				OldValue:     change.OldValue,
				NewValue:     change.NewValue,
			}); err != nil {
				return err
			}
		}
		changes = diff
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if len(changes) > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"changed": len(changes),
		}).Info("profile updated")
	}
	return changes, nil
}

func (s *profileService) ListHistory(ctx context.Context, userID int64) ([]domain.HistoryEntry, error) {
	entries, err := s.store.Histories(s.store.DB()).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
