package session

import (
	"context"
	"errors"
	"time"

	"userinfo-api/internal/domain"
)

// ErrSessionNotFound is returned by a Store for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Store persists session records.
type Store interface {
	Save(ctx context.Context, s domain.Session) error
	Load(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired at or before now and
	// reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
