package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ SyncStore = (*SyncRepository)(nil)

// SyncRepository handles per-author sync state. Full-sync status is only
// ever upgraded; incremental runs never downgrade it.
type SyncRepository struct {
	db *DB
}

// NewSyncRepository creates a new sync state repository
func NewSyncRepository(db *DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// IsFullSync reports whether the author's history has been fully crawled.
// A missing row means "never fully synced".
func (r *SyncRepository) IsFullSync(platform, author string) (bool, error) {
	var done int
	err := r.db.QueryRow(`
		SELECT full_sync_done FROM sync_state WHERE platform = ? AND author = ?
	`, platform, author).Scan(&done)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read sync state: %w", err)
	}
	return done != 0, nil
}

// MarkFullSync records that a full crawl of the author's history completed
func (r *SyncRepository) MarkFullSync(platform, author string) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_state (platform, author, full_sync_done, last_sync_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (platform, author) DO UPDATE SET
			full_sync_done = 1,
			last_sync_at = excluded.last_sync_at
	`, platform, author, now())
	if err != nil {
		return fmt.Errorf("failed to mark full sync: %w", err)
	}
	return nil
}

// UpdateLastSync bumps the author's last sync timestamp without touching
// the full-sync flag
func (r *SyncRepository) UpdateLastSync(platform, author string) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_state (platform, author, full_sync_done, last_sync_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (platform, author) DO UPDATE SET
			last_sync_at = excluded.last_sync_at
	`, platform, author, now())
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
