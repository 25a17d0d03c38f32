package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"userinfo-api/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Store is the PostgreSQL backed repository.Store.
type Store struct {
	db      *sql.DB
	closeFn func()
}

// NewStore wraps db. closeFn, when not nil, runs after db is closed and is
// where the underlying pool gets released.
func NewStore(db *sql.DB, closeFn func()) *Store {
	return &Store{db: db, closeFn: closeFn}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

func (s *Store) Close() error {
	err := s.db.Close()
	if s.closeFn != nil {
		s.closeFn()
	}
	return err
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUp(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Users(db repository.DBTX) repository.UserRepository {
	return &UserRepository{db: db}
}

func (s *Store) Profiles(db repository.DBTX) repository.ProfileRepository {
	return &ProfileRepository{db: db}
}

func (s *Store) Histories(db repository.DBTX) repository.HistoryRepository {
	return &HistoryRepository{db: db}
}

func (s *Store) Sessions(db repository.DBTX) repository.SessionRepository {
	return &SessionRepository{db: db}
}
