package session

import (
	"context"
	"errors"
	"time"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

// SQLStore keeps sessions in the same relational database as the users.
type SQLStore struct {
	store repository.Store
}

func NewSQLStore(store repository.Store) *SQLStore {
	return &SQLStore{store: store}
}

func (s *SQLStore) sessions() repository.SessionRepository {
	return s.store.Sessions(s.store.DB())
}

func (s *SQLStore) Save(ctx context.Context, sess domain.Session) error {
	return s.sessions().Create(ctx, &sess)
}

func (s *SQLStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.sessions().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.sessions().Delete(ctx, id)
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.sessions().DeleteExpired(ctx, now)
}
