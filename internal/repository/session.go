package repository

import (
	"context"
	"time"

	"userinfo-api/internal/domain"
)

// SessionRepository stores server side sessions in the relational database.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
