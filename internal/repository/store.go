package repository

import (
	"context"
	"database/sql"
)

// Store vends repositories bound to either the connection pool or a
// transaction, and owns the schema of its backend.
type Store interface {
	DB() *sql.DB
	// TxOptions are used for every multi-statement write.
	TxOptions() *sql.TxOptions
	Migrate(ctx context.Context) error
	Close() error

	Users(db DBTX) UserRepository
	Profiles(db DBTX) ProfileRepository
	Histories(db DBTX) HistoryRepository
	Sessions(db DBTX) SessionRepository
}

// InTx runs fn inside a transaction opened with the store's options.
func InTx(ctx context.Context, s Store, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, s.DB(), s.TxOptions(), fn)
}
