package postgres

import (
	"context"
	"fmt"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/repository"
)

type HistoryRepository struct {
	db repository.DBTX
}

func (r *HistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `INSERT INTO user_histories (user_id, changed_field, old_value, new_value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, entry.UserID, entry.ChangedField, entry.OldValue, entry.NewValue).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64) ([]domain.HistoryEntry, error) {
	query := `SELECT id, user_id, changed_field, old_value, new_value, created_at
		FROM user_histories
		WHERE user_id = $1
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
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
