package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"userinfo-api/internal/domain"
)

// ErrNoSession means the request carries no usable session.
var ErrNoSession = errors.New("no valid session")

const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = 15 * time.Minute
)

type Config struct {
	Secret        string
	TTL           time.Duration
	SweepInterval time.Duration
	Logger        logrus.FieldLogger
}

// Issued is a freshly created session together with its cookie value.
type Issued struct {
	Session domain.Session
	Token   string
}

// Manager creates, resolves and destroys sessions and sweeps expired ones
// in the background.
type Manager struct {
	cfg   Config
	store Store
	codec *Codec
	now   func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(cfg Config, store Store) (*Manager, error) {
	codec, err := NewCodec(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		codec: codec,
		now:   time.Now,
	}, nil
}

// TTL is the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.cfg.TTL
}

// Create opens a session for userID.
func (m *Manager) Create(ctx context.Context, userID int64) (*Issued, error) {
	now := m.now().UTC().Truncate(time.Second)
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	token, err := m.codec.Encode(sess)
	if err != nil {
		return nil, err
	}
	return &Issued{Session: sess, Token: token}, nil
}

// Resolve maps a cookie value to a live session. Invalid, unknown or expired
// sessions yield ErrNoSession; store failures are returned as they are.
func (m *Manager) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	now := m.now()
	id, err := m.codec.Decode(token, now)
	if err != nil {
		if id != "" {
			m.drop(ctx, id)
		}
		return nil, err
	}

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if sess.Expired(now) {
		m.drop(ctx, sess.ID)
		return nil, ErrNoSession
	}
	return sess, nil
}

func (m *Manager) drop(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, id); err != nil {
		m.cfg.Logger.WithError(err).WithField("session", id).Warn("delete expired session")
	}
}

// Destroy removes the session with the given id.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Sweep deletes every expired session once.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

// Start launches the background sweeper. A negative sweep interval
// disables it.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.SweepInterval < 0 {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.Sweep(ctx)
				if err != nil {
					if ctx.Err() == nil {
						m.cfg.Logger.WithError(err).Warn("sweep expired sessions")
					}
					continue
				}
				if n > 0 {
					m.cfg.Logger.WithField("removed", n).Info("expired sessions swept")
				}
			}
		}
	}()
	m.cfg.Logger.Infof("session sweeper started, interval: %s", m.cfg.SweepInterval)
}

// Shutdown stops the sweeper and waits for it to exit.
func (m *Manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("session sweeper stopped")
}
