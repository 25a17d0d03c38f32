package sqlite

import (
	"context"
	"fmt"
	"time"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

const createHistoriesTable = `
CREATE TABLE IF NOT EXISTS user_histories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	changed_field TEXT NOT NULL,
	old_value TEXT NOT NULL,
	new_value TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_user_histories_user_id ON user_histories(user_id);
`

type HistoryRepository struct {
	db repository.DBTX
}

func (r *HistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	entry.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO user_histories (user_id, changed_field, old_value, new_value, created_at)
VALUES (?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.ChangedField,
		entry.OldValue,
		entry.NewValue,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("history last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64) ([]domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, changed_field, old_value, new_value, created_at
FROM user_histories
WHERE user_id=?
ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query histories: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ChangedField, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
