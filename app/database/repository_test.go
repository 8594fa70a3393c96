package database

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(postID string) PostRecord {
	return PostRecord{
		Platform:  "sponsr",
		Author:    "author",
		PostID:    postID,
		Title:     "Title",
		Slug:      "2024-01-01-title-" + postID,
		PostDate:  "2024-01-01 10:00:00",
		SourceURL: "https://sponsr.ru/author/" + postID + "/",
		LocalPath: "/backup/sponsr/author/posts/2024-01-01-title-" + postID,
		Tags:      []string{"one", "two"},
		SyncedAt:  time.Now().UTC(),
	}
}

func TestPostRepository_UpsertAndGet(t *testing.T) {
	repo := NewPostRepository(testDB(t))

	if err := repo.UpsertPost(testRecord("1")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	record, err := repo.GetPost("sponsr", "author", "1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("Expected record, got nil")
	}
	if record.Title != "Title" {
		t.Errorf("Expected title 'Title', got '%s'", record.Title)
	}
	if len(record.Tags) != 2 || record.Tags[0] != "one" {
		t.Errorf("Expected tags round-tripped, got %v", record.Tags)
	}
}

func TestPostRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewPostRepository(testDB(t))

	record, err := repo.GetPost("sponsr", "author", "absent")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil for missing post, got %+v", record)
	}
}

func TestPostRepository_UpsertIsIdempotent(t *testing.T) {
	repo := NewPostRepository(testDB(t))

	record := testRecord("1")
	if err := repo.UpsertPost(record); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	record.Title = "Updated title"
	if err := repo.UpsertPost(record); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	count, err := repo.CountPosts("sponsr", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 post after re-upsert, got %d", count)
	}

	got, _ := repo.GetPost("sponsr", "author", "1")
	if got.Title != "Updated title" {
		t.Errorf("Expected updated title, got '%s'", got.Title)
	}
}

func TestPostRepository_PostExists(t *testing.T) {
	repo := NewPostRepository(testDB(t))

	exists, err := repo.PostExists("sponsr", "author", "1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if exists {
		t.Error("Expected post absent before upsert")
	}

	repo.UpsertPost(testRecord("1"))

	exists, err = repo.PostExists("sponsr", "author", "1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !exists {
		t.Error("Expected post present after upsert")
	}
}

func TestPostRepository_AllPostIDsScopedToAuthor(t *testing.T) {
	repo := NewPostRepository(testDB(t))

	repo.UpsertPost(testRecord("1"))
	repo.UpsertPost(testRecord("2"))
	other := testRecord("3")
	other.Author = "someone-else"
	repo.UpsertPost(other)

	ids, err := repo.AllPostIDs("sponsr", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(ids) != 2 || !ids["1"] || !ids["2"] {
		t.Errorf("Expected IDs {1, 2}, got %v", ids)
	}
}

func TestPostRepository_GetPostBySourceURL(t *testing.T) {
	repo := NewPostRepository(testDB(t))
	repo.UpsertPost(testRecord("1"))

	record, err := repo.GetPostBySourceURL("https://sponsr.ru/author/1/")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record == nil || record.PostID != "1" {
		t.Errorf("Expected post 1, got %+v", record)
	}
}

func TestSyncRepository_FullSyncUpgrade(t *testing.T) {
	repo := NewSyncRepository(testDB(t))

	done, err := repo.IsFullSync("boosty", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if done {
		t.Error("Expected no full sync before first run")
	}

	if err := repo.MarkFullSync("boosty", "author"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	done, err = repo.IsFullSync("boosty", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !done {
		t.Error("Expected full sync recorded")
	}
}

func TestSyncRepository_UpdateLastSyncKeepsFullFlag(t *testing.T) {
	repo := NewSyncRepository(testDB(t))

	repo.MarkFullSync("boosty", "author")
	if err := repo.UpdateLastSync("boosty", "author"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	done, err := repo.IsFullSync("boosty", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !done {
		t.Error("Expected full-sync flag preserved by timestamp update")
	}
}

func TestSyncRepository_UpdateLastSyncWithoutFullSync(t *testing.T) {
	repo := NewSyncRepository(testDB(t))

	if err := repo.UpdateLastSync("boosty", "author"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	done, err := repo.IsFullSync("boosty", "author")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if done {
		t.Error("Expected timestamp update not to set the full-sync flag")
	}
}
