package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akornilov/postvault/app/config"
	"github.com/akornilov/postvault/app/crawl"
	"github.com/akornilov/postvault/app/database"
)

// memPostStore is an in-memory PostStore for driver tests.
type memPostStore struct {
	database.PostStore
	records map[string]database.PostRecord
}

func newMemPostStore() *memPostStore {
	return &memPostStore{records: map[string]database.PostRecord{}}
}

func (m *memPostStore) key(platform, author, postID string) string {
	return platform + "|" + author + "|" + postID
}

func (m *memPostStore) GetPost(platform, author, postID string) (*database.PostRecord, error) {
	if r, ok := m.records[m.key(platform, author, postID)]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memPostStore) AllPostIDs(platform, author string) (map[string]bool, error) {
	ids := map[string]bool{}
	for _, r := range m.records {
		if r.Platform == platform && r.Author == author {
			ids[r.PostID] = true
		}
	}
	return ids, nil
}

func (m *memPostStore) AllPosts(platform, author string) ([]database.PostRecord, error) {
	var out []database.PostRecord
	for _, r := range m.records {
		if r.Platform == platform && r.Author == author {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPostStore) GetPostBySourceURL(sourceURL string) (*database.PostRecord, error) {
	for _, r := range m.records {
		if r.SourceURL == sourceURL {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memPostStore) CountPosts(platform, author string) (int, error) {
	count := 0
	for _, r := range m.records {
		if r.Platform == platform && r.Author == author {
			count++
		}
	}
	return count, nil
}

func (m *memPostStore) UpsertPost(record database.PostRecord) error {
	m.records[m.key(record.Platform, record.Author, record.PostID)] = record
	return nil
}

// memSyncStore is an in-memory SyncStore.
type memSyncStore struct {
	fullDone bool
	lastSync int
}

func (m *memSyncStore) IsFullSync(_, _ string) (bool, error) { return m.fullDone, nil }
func (m *memSyncStore) MarkFullSync(_, _ string) error       { m.fullDone = true; return nil }
func (m *memSyncStore) UpdateLastSync(_, _ string) error     { m.lastSync++; return nil }

// fakeClient serves a fixed listing split into chunks.
type fakeClient struct {
	chunks        [][]*Post
	requiresFetch bool
	fetchCalls    []string
}

func (f *fakeClient) Platform() string    { return "fakeplatform" }
func (f *fakeClient) RequiresFetch() bool { return f.requiresFetch }

func (f *fakeClient) FetchPage(_ context.Context, _ string, offset int) (crawl.Page, error) {
	idx, count := 0, 0
	for idx < len(f.chunks) && count < offset {
		count += len(f.chunks[idx])
		idx++
	}
	if idx >= len(f.chunks) {
		return crawl.Page{}, nil
	}

	var page crawl.Page
	for _, post := range f.chunks[idx] {
		raw, _ := json.Marshal(map[string]string{"id": post.ID})
		page.Items = append(page.Items, crawl.Item{ID: post.ID, Raw: raw})
	}
	return page, nil
}

func (f *fakeClient) FetchPost(_ context.Context, postID string) (*Post, error) {
	f.fetchCalls = append(f.fetchCalls, postID)
	for _, chunk := range f.chunks {
		for _, post := range chunk {
			if post.ID == postID {
				return post, nil
			}
		}
	}
	return nil, fmt.Errorf("post %s not found", postID)
}

func (f *fakeClient) ParseListItem(raw json.RawMessage) (*Post, error) {
	var entry struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	for _, chunk := range f.chunks {
		for _, post := range chunk {
			if post.ID == entry.ID {
				return post, nil
			}
		}
	}
	return nil, fmt.Errorf("post %s not in listing", entry.ID)
}

func (f *fakeClient) RenderBody(post *Post, _ map[string]string) (string, error) {
	return "body of " + post.ID + "\n", nil
}

func fakePost(id, title, date string) *Post {
	return &Post{
		ID:        id,
		Title:     title,
		Date:      date,
		SourceURL: "https://example.com/" + id,
	}
}

func newTestSyncer(t *testing.T, client *fakeClient, posts *memPostStore, state *memSyncStore) *Syncer {
	t.Helper()
	return NewSyncer(Options{
		Client:    client,
		Source:    config.Source{Platform: "fakeplatform", Author: "author"},
		Posts:     posts,
		State:     state,
		OutputDir: t.TempDir(),
	})
}

func TestSyncer_Run_FullSync(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("1", "Первый пост", "2024-01-01 10:00:00")},
		{fakePost("2", "Второй пост", "2024-02-01 10:00:00")},
	}}
	posts := newMemPostStore()
	state := &memSyncStore{}
	s := newTestSyncer(t, client, posts, state)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(posts.records) != 2 {
		t.Errorf("Expected 2 posts recorded, got %d", len(posts.records))
	}
	if !state.fullDone {
		t.Error("Expected full sync marked after first complete run")
	}
	if state.lastSync != 1 {
		t.Errorf("Expected last sync updated once, got %d", state.lastSync)
	}

	record, _ := posts.GetPost("fakeplatform", "author", "1")
	if record == nil {
		t.Fatal("Expected post 1 recorded")
	}
	if record.Slug != "2024-01-01-pervyi-post" {
		t.Errorf("Expected date-prefixed transliterated slug, got '%s'", record.Slug)
	}

	data, err := os.ReadFile(filepath.Join(record.LocalPath, "index.md"))
	if err != nil {
		t.Fatalf("Expected post file written: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		t.Errorf("Expected front matter header, got:\n%s", content)
	}
	if !strings.Contains(content, "title: Первый пост\n") {
		t.Errorf("Expected title in front matter, got:\n%s", content)
	}
	if !strings.Contains(content, "post_id: \"1\"\n") && !strings.Contains(content, "post_id: 1\n") {
		t.Errorf("Expected post ID in front matter, got:\n%s", content)
	}
	if !strings.HasSuffix(content, "---\n\nbody of 1\n") {
		t.Errorf("Expected rendered body after front matter, got:\n%s", content)
	}
}

func TestSyncer_Run_RepeatedRunLeavesArchiveUnchanged(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("1", "Первый пост", "2024-01-01 10:00:00")},
		{fakePost("2", "Второй пост", "2024-02-01 10:00:00")},
	}}
	posts := newMemPostStore()
	state := &memSyncStore{}
	s := newTestSyncer(t, client, posts, state)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	snapshot := map[string][]byte{}
	for _, r := range posts.records {
		data, err := os.ReadFile(filepath.Join(r.LocalPath, "index.md"))
		if err != nil {
			t.Fatalf("Expected post file after first run: %v", err)
		}
		snapshot[r.Slug] = data
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error on second run: %v", err)
	}

	if len(posts.records) != len(snapshot) {
		t.Fatalf("Expected %d posts after second run, got %d", len(snapshot), len(posts.records))
	}
	for _, r := range posts.records {
		previous, ok := snapshot[r.Slug]
		if !ok {
			t.Errorf("Expected slug '%s' kept across runs", r.Slug)
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.LocalPath, "index.md"))
		if err != nil {
			t.Fatalf("Expected post file after second run: %v", err)
		}
		if string(data) != string(previous) {
			t.Errorf("Expected identical file for slug '%s', got:\n%s", r.Slug, data)
		}
	}
}

func TestSyncer_Run_IncrementalStopsEarly(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("1", "Old", "2024-01-01")},
		{fakePost("2", "Never reached", "2024-02-01")},
	}}
	posts := newMemPostStore()
	posts.UpsertPost(database.PostRecord{
		Platform: "fakeplatform", Author: "author", PostID: "1",
		Slug: "2024-01-01-old", LocalPath: "/nowhere",
	})
	state := &memSyncStore{fullDone: true}
	s := newTestSyncer(t, client, posts, state)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The first chunk is entirely known, so the crawl stops before the
	// second chunk is ever listed
	if _, ok := posts.records[posts.key("fakeplatform", "author", "2")]; ok {
		t.Error("Expected incremental run to stop before reaching post 2")
	}
}

func TestSyncer_Run_FirstRunIgnoresKnownIDs(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("1", "Old", "2024-01-01")},
		{fakePost("2", "New", "2024-02-01")},
	}}
	posts := newMemPostStore()
	posts.UpsertPost(database.PostRecord{
		Platform: "fakeplatform", Author: "author", PostID: "1",
		Slug: "2024-01-01-old", LocalPath: "/nowhere",
	})
	// An aborted earlier run left posts behind without the full-sync flag
	state := &memSyncStore{}
	s := newTestSyncer(t, client, posts, state)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, ok := posts.records[posts.key("fakeplatform", "author", "2")]; !ok {
		t.Error("Expected complete crawl while full sync is unfinished")
	}
	if !state.fullDone {
		t.Error("Expected full sync marked after completing the crawl")
	}
}

func TestSyncer_Run_RefetchesWhenListingTruncated(t *testing.T) {
	client := &fakeClient{
		chunks:        [][]*Post{{fakePost("1", "Post", "2024-01-01")}},
		requiresFetch: true,
	}
	s := newTestSyncer(t, client, newMemPostStore(), &memSyncStore{})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(client.fetchCalls) != 1 || client.fetchCalls[0] != "1" {
		t.Errorf("Expected full fetch of post 1, got %v", client.fetchCalls)
	}
}

func TestSyncer_SlugStableAcrossTitleChange(t *testing.T) {
	client := &fakeClient{}
	posts := newMemPostStore()
	s := newTestSyncer(t, client, posts, &memSyncStore{})

	post := fakePost("1", "Первое название", "2024-01-01 10:00:00")
	if err := s.SavePost(context.Background(), post); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	first, _ := posts.GetPost("fakeplatform", "author", "1")

	post.Title = "Совсем другое название"
	if err := s.SavePost(context.Background(), post); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, _ := posts.GetPost("fakeplatform", "author", "1")

	if first.Slug != second.Slug {
		t.Errorf("Expected slug kept across title change, got '%s' then '%s'", first.Slug, second.Slug)
	}
	if second.Title != "Совсем другое название" {
		t.Errorf("Expected title updated, got '%s'", second.Title)
	}
}

func TestSyncer_DistinctSlugsForSameTitleAndDate(t *testing.T) {
	client := &fakeClient{}
	posts := newMemPostStore()
	s := newTestSyncer(t, client, posts, &memSyncStore{})

	if err := s.SavePost(context.Background(), fakePost("1", "Одинаковый", "2024-01-01")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.SavePost(context.Background(), fakePost("2", "Одинаковый", "2024-01-01")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	first, _ := posts.GetPost("fakeplatform", "author", "1")
	second, _ := posts.GetPost("fakeplatform", "author", "2")

	if first.Slug == second.Slug {
		t.Errorf("Expected distinct slugs, both got '%s'", first.Slug)
	}
	if !strings.HasPrefix(second.Slug, first.Slug+"-") {
		t.Errorf("Expected hash-suffixed slug, got '%s'", second.Slug)
	}
}

func TestSyncer_DownloadSingle(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("7", "Один пост", "2024-05-01 12:00:00")},
	}}
	posts := newMemPostStore()
	s := newTestSyncer(t, client, posts, &memSyncStore{})

	if err := s.DownloadSingle(context.Background(), "7"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	record, _ := posts.GetPost("fakeplatform", "author", "7")
	if record == nil {
		t.Fatal("Expected post recorded")
	}
	if _, err := os.Stat(filepath.Join(record.LocalPath, "index.md")); err != nil {
		t.Errorf("Expected post file written: %v", err)
	}
}

func TestSyncer_DownloadSingle_RefreshKeepsSlug(t *testing.T) {
	client := &fakeClient{chunks: [][]*Post{
		{fakePost("7", "Один пост", "2024-05-01 12:00:00")},
	}}
	posts := newMemPostStore()
	s := newTestSyncer(t, client, posts, &memSyncStore{})

	if err := s.DownloadSingle(context.Background(), "7"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	first, _ := posts.GetPost("fakeplatform", "author", "7")

	if err := s.DownloadSingle(context.Background(), "7"); err != nil {
		t.Fatalf("Unexpected error on refresh: %v", err)
	}
	second, _ := posts.GetPost("fakeplatform", "author", "7")

	if len(posts.records) != 1 {
		t.Errorf("Expected a single record after refresh, got %d", len(posts.records))
	}
	if first.Slug != second.Slug {
		t.Errorf("Expected slug kept on refresh, got '%s' then '%s'", first.Slug, second.Slug)
	}
}

func TestSyncer_Run_CreatesSectionIndexes(t *testing.T) {
	client := &fakeClient{}
	posts := newMemPostStore()
	outputDir := t.TempDir()
	s := NewSyncer(Options{
		Client:    client,
		Source:    config.Source{Platform: "fakeplatform", Author: "author", DisplayName: "Автор"},
		Posts:     posts,
		State:     &memSyncStore{},
		OutputDir: outputDir,
	})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	platformIndex, err := os.ReadFile(filepath.Join(outputDir, "fakeplatform", "_index.md"))
	if err != nil {
		t.Fatalf("Expected platform index: %v", err)
	}
	if !strings.Contains(string(platformIndex), "title: Fakeplatform") {
		t.Errorf("Expected title-cased platform, got:\n%s", platformIndex)
	}

	authorIndex, err := os.ReadFile(filepath.Join(outputDir, "fakeplatform", "author", "_index.md"))
	if err != nil {
		t.Fatalf("Expected author index: %v", err)
	}
	if !strings.Contains(string(authorIndex), "Автор") {
		t.Errorf("Expected display name in author index, got:\n%s", authorIndex)
	}

	if _, err := os.Stat(filepath.Join(outputDir, "fakeplatform", "author", "posts", "_index.md")); err != nil {
		t.Errorf("Expected posts index: %v", err)
	}
}
