package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"userinfo-api/internal/repository"
)

// Store is the SQLite backed repository.Store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB { return s.db }

// TxOptions returns nil; SQLite transactions are always serializable.
func (s *Store) TxOptions() *sql.TxOptions { return nil }

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	steps := []struct {
		name string
		ddl  string
	}{
		{"users", createUsersTable},
		{"user_infos", createProfilesTable},
		{"user_histories", createHistoriesTable},
		{"sessions", createSessionsTable},
	}
	for _, step := range steps {
		if _, err := s.db.ExecContext(ctx, step.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", step.name, err)
		}
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

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
