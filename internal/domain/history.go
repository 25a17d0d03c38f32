package domain

import "time"

// HistoryEntry records one profile field transition. Entries are append-only.
type HistoryEntry struct {
	ID           int64
	UserID       int64
	ChangedField string
	OldValue     string
	NewValue     string
	CreatedAt    time.Time
}
