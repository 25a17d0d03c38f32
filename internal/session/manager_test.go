package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository/sqlite"
)

func newTestManager(t *testing.T, interval time.Duration) (*Manager, *SQLStore, int64) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	user := &domain.User{Email: "a@x.com", PasswordHash: "hash"}
	id, err := store.Users(store.DB()).Create(context.Background(), user)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	sessions := NewSQLStore(store)
	m, err := NewManager(Config{
		Secret:        "secret",
		TTL:           time.Hour,
		SweepInterval: interval,
		Logger:        logger,
	}, sessions)
	require.NoError(t, err)
	return m, sessions, id
}

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager(Config{Secret: "s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.TTL())
	assert.Equal(t, DefaultSweepInterval, m.cfg.SweepInterval)

	_, err = NewManager(Config{}, nil)
	require.Error(t, err)
}

func TestManager_CreateResolveDestroy(t *testing.T) {
	m, _, userID := newTestManager(t, -1)
	ctx := context.Background()

	issued, err := m.Create(ctx, userID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, userID, issued.Session.UserID)
	assert.Equal(t, time.Hour, issued.Session.ExpiresAt.Sub(issued.Session.CreatedAt))

	sess, err := m.Resolve(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.Session.ID, sess.ID)
	assert.Equal(t, userID, sess.UserID)

	require.NoError(t, m.Destroy(ctx, sess.ID))

	_, err = m.Resolve(ctx, issued.Token)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestManager_ResolveRejectsGarbage(t *testing.T) {
	m, _, _ := newTestManager(t, -1)

	_, err := m.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoSession))

	_, err = m.Resolve(context.Background(), "garbage")
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestManager_ResolveExpiredDropsRecord(t *testing.T) {
	m, store, userID := newTestManager(t, -1)
	ctx := context.Background()

	issued, err := m.Create(ctx, userID)
	require.NoError(t, err)

	later := issued.Session.ExpiresAt.Add(time.Minute)
	m.now = func() time.Time { return later }

	_, err = m.Resolve(ctx, issued.Token)
	assert.True(t, errors.Is(err, ErrNoSession))

	_, err = store.Load(ctx, issued.Session.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestManager_Sweep(t *testing.T) {
	m, store, userID := newTestManager(t, -1)
	ctx := context.Background()

	old, err := m.Create(ctx, userID)
	require.NoError(t, err)

	m.now = func() time.Time { return old.Session.ExpiresAt }
	fresh, err := m.Create(ctx, userID)
	require.NoError(t, err)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.Load(ctx, old.Session.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.Load(ctx, fresh.Session.ID)
	assert.NoError(t, err)
}

func TestManager_BackgroundSweeper(t *testing.T) {
	m, store, userID := newTestManager(t, 10*time.Millisecond)
	ctx := context.Background()

	issued, err := m.Create(ctx, userID)
	require.NoError(t, err)

	expired := issued.Session.ExpiresAt
	m.now = func() time.Time { return expired }

	m.Start(ctx)
	defer m.Shutdown()

	require.Eventually(t, func() bool {
		_, err := store.Load(ctx, issued.Session.ID)
		return errors.Is(err, ErrSessionNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_ShutdownWithoutStart(t *testing.T) {
	m, err := NewManager(Config{Secret: "s", Logger: logrus.New()}, nil)
	require.NoError(t, err)
	m.Shutdown()
}
