package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

var _ PostStore = (*PostRepository)(nil)

// PostRepository handles database operations for archived posts
type PostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostExists checks whether a post is already present in the index
func (r *PostRepository) PostExists(platform, author, postID string) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM posts WHERE platform = ? AND author = ? AND post_id = ?
	`, platform, author, postID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return true, nil
}

// UpsertPost inserts or replaces a post record keyed by (platform, author, post_id)
func (r *PostRepository) UpsertPost(record PostRecord) error {
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO posts (platform, author, post_id, title, slug, post_date, source_url, local_path, tags, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, author, post_id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			post_date = excluded.post_date,
			source_url = excluded.source_url,
			local_path = excluded.local_path,
			tags = excluded.tags,
			synced_at = excluded.synced_at
	`, record.Platform, record.Author, record.PostID, record.Title, record.Slug,
		record.PostDate, record.SourceURL, record.LocalPath, string(tags),
		record.SyncedAt.UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}
	return nil
}

// GetPost returns a post record, or nil when absent
func (r *PostRepository) GetPost(platform, author, postID string) (*PostRecord, error) {
	row := r.db.QueryRow(`
		SELECT platform, author, post_id, title, slug, post_date, source_url, local_path, tags, synced_at
		FROM posts WHERE platform = ? AND author = ? AND post_id = ?
	`, platform, author, postID)
	return scanPost(row)
}

// GetPostBySourceURL looks a post up by its original URL
func (r *PostRepository) GetPostBySourceURL(sourceURL string) (*PostRecord, error) {
	row := r.db.QueryRow(`
		SELECT platform, author, post_id, title, slug, post_date, source_url, local_path, tags, synced_at
		FROM posts WHERE source_url = ?
	`, sourceURL)
	return scanPost(row)
}

// AllPostIDs returns the set of known post IDs for an author
func (r *PostRepository) AllPostIDs(platform, author string) (map[string]bool, error) {
	rows, err := r.db.Query(`
		SELECT post_id FROM posts WHERE platform = ? AND author = ?
	`, platform, author)
	if err != nil {
		return nil, fmt.Errorf("failed to get post IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post ID: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// AllPosts returns every record for an author
func (r *PostRepository) AllPosts(platform, author string) ([]PostRecord, error) {
	rows, err := r.db.Query(`
		SELECT platform, author, post_id, title, slug, post_date, source_url, local_path, tags, synced_at
		FROM posts WHERE platform = ? AND author = ?
	`, platform, author)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var records []PostRecord
	for rows.Next() {
		record, err := scanPostRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// CountPosts returns the number of archived posts for an author
func (r *PostRepository) CountPosts(platform, author string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM posts WHERE platform = ? AND author = ?
	`, platform, author).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row *sql.Row) (*PostRecord, error) {
	record, err := scanPostRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

func scanPostRows(row rowScanner) (*PostRecord, error) {
	var record PostRecord
	var title, slug, postDate, sourceURL, localPath, tags, syncedAt sql.NullString

	err := row.Scan(&record.Platform, &record.Author, &record.PostID,
		&title, &slug, &postDate, &sourceURL, &localPath, &tags, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	record.Title = title.String
	record.Slug = slug.String
	record.PostDate = postDate.String
	record.SourceURL = sourceURL.String
	record.LocalPath = localPath.String

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &record.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if syncedAt.Valid && syncedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, syncedAt.String); err == nil {
			record.SyncedAt = t
		}
	}

	return &record, nil
}
