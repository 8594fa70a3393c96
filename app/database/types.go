package database

import (
	"time"
)

// PostRecord is one archived post in the local index. The slug is assigned
// on first sync and reused on every re-sync of the same post ID.
type PostRecord struct {
	Platform  string
	Author    string
	PostID    string
	Title     string
	Slug      string
	PostDate  string
	SourceURL string
	LocalPath string
	Tags      []string
	SyncedAt  time.Time
}

// SyncState tracks per-author sync progress. A missing row means the author
// has never completed a full sync.
type SyncState struct {
	Platform     string
	Author       string
	FullSyncDone bool
	LastSyncAt   *time.Time
}
