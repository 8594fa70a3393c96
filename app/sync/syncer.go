// Package sync drives the archive flow for one author: crawl the listing,
// fetch and render new posts, download their assets and record everything
// in the local index.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/akornilov/postvault/app/assets"
	"github.com/akornilov/postvault/app/config"
	"github.com/akornilov/postvault/app/crawl"
	"github.com/akornilov/postvault/app/database"
	"github.com/akornilov/postvault/app/links"
	"github.com/akornilov/postvault/app/site"
)

// Options wires a Syncer's collaborators.
type Options struct {
	Client       Client
	Source       config.Source
	Posts        database.PostStore
	State        database.SyncStore
	Assets       *assets.Pipeline
	OutputDir    string
	SafetyChunks int
}

// Syncer archives one author of one platform.
type Syncer struct {
	client       Client
	source       config.Source
	posts        database.PostStore
	state        database.SyncStore
	pipeline     *assets.Pipeline
	outputDir    string
	safetyChunks int
}

func NewSyncer(opts Options) *Syncer {
	return &Syncer{
		client:       opts.Client,
		source:       opts.Source,
		posts:        opts.Posts,
		state:        opts.State,
		pipeline:     opts.Assets,
		outputDir:    opts.OutputDir,
		safetyChunks: opts.SafetyChunks,
	}
}

// Run syncs every post of the author that the index does not hold yet. The
// crawl runs incrementally once a full sync has completed before; the first
// run always reads the complete history.
func (s *Syncer) Run(ctx context.Context) error {
	platform := s.client.Platform()
	slog.Info("Syncing author", "platform", platform, "author", s.source.Author)

	if err := site.EnsureIndexFiles(s.outputDir, platform, s.source); err != nil {
		return fmt.Errorf("failed to create section indexes: %w", err)
	}

	known, err := s.posts.AllPostIDs(platform, s.source.Author)
	if err != nil {
		return fmt.Errorf("failed to load known post IDs: %w", err)
	}
	fullDone, err := s.state.IsFullSync(platform, s.source.Author)
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}

	opts := crawl.Options{SafetyChunks: s.safetyChunks}
	if fullDone && len(known) > 0 {
		opts.KnownIDs = known
	}

	items, err := crawl.Run(ctx, s.client.FetchPage, opts)
	if err != nil {
		return fmt.Errorf("failed to crawl post listing: %w", err)
	}

	var fresh []crawl.Item
	for _, item := range items {
		if !known[item.ID] {
			fresh = append(fresh, item)
		}
	}
	slog.Info("Post listing crawled",
		"platform", platform, "author", s.source.Author,
		"listed", len(items), "new", len(fresh))

	synced, failed := 0, 0
	for _, item := range fresh {
		if err := s.syncItem(ctx, item); err != nil {
			slog.Warn("Skipping post", "platform", platform, "post_id", item.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	if !fullDone {
		if err := s.state.MarkFullSync(platform, s.source.Author); err != nil {
			return fmt.Errorf("failed to mark full sync: %w", err)
		}
	}

	if synced > 0 {
		if err := links.NewRewriter(s.posts).Run(platform, s.source.Author); err != nil {
			slog.Warn("Internal link rewrite failed", "platform", platform, "author", s.source.Author, "error", err)
		}
	}

	if err := s.state.UpdateLastSync(platform, s.source.Author); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	total, err := s.posts.CountPosts(platform, s.source.Author)
	if err != nil {
		return fmt.Errorf("failed to count archived posts: %w", err)
	}
	slog.Info("Author synced",
		"platform", platform, "author", s.source.Author,
		"synced", synced, "failed", failed, "total", total)
	return nil
}

// DownloadSingle archives one post by ID, bypassing the listing crawl. A
// post already held by the index is refreshed in place.
func (s *Syncer) DownloadSingle(ctx context.Context, postID string) error {
	if err := site.EnsureIndexFiles(s.outputDir, s.client.Platform(), s.source); err != nil {
		return fmt.Errorf("failed to create section indexes: %w", err)
	}
	post, err := s.client.FetchPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to fetch post %s: %w", postID, err)
	}
	if existing, err := s.posts.GetPostBySourceURL(post.SourceURL); err == nil && existing != nil {
		slog.Info("Post already archived, refreshing", "slug", existing.Slug)
	}
	return s.SavePost(ctx, post)
}

// syncItem turns one listing entry into an archived post. Platforms whose
// listing entries are truncated re-fetch the full post first, falling back
// to the listing payload when that fails.
func (s *Syncer) syncItem(ctx context.Context, item crawl.Item) error {
	var post *Post
	var err error

	if s.client.RequiresFetch() {
		post, err = s.client.FetchPost(ctx, item.ID)
		if err != nil {
			slog.Warn("Full post fetch failed, using listing entry",
				"platform", s.client.Platform(), "post_id", item.ID, "error", err)
			post, err = s.client.ParseListItem(item.Raw)
		}
	} else {
		post, err = s.client.ParseListItem(item.Raw)
	}
	if err != nil {
		return err
	}

	return s.SavePost(ctx, post)
}

// SavePost renders a post to its on-disk directory and records it in the
// index. Re-saving an existing post keeps its slug and path.
func (s *Syncer) SavePost(ctx context.Context, post *Post) error {
	platform := s.client.Platform()

	slug, err := s.slugFor(post)
	if err != nil {
		return fmt.Errorf("failed to assign slug: %w", err)
	}

	postDir := filepath.Join(s.outputDir, platform, s.source.Author, "posts", slug)
	if err := os.MkdirAll(postDir, 0o755); err != nil {
		return fmt.Errorf("failed to create post directory: %w", err)
	}

	assetMap := map[string]string{}
	if s.source.DownloadAssets && len(post.Assets) > 0 && s.pipeline != nil {
		assetsDir := filepath.Join(postDir, "assets")
		if err := os.MkdirAll(assetsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create assets directory: %w", err)
		}
		assetMap = s.pipeline.DownloadAll(ctx, post.Assets, assetsDir)
	}

	body, err := s.client.RenderBody(post, assetMap)
	if err != nil {
		return fmt.Errorf("failed to render post body: %w", err)
	}

	front, err := frontMatter(post, platform, s.source.Author)
	if err != nil {
		return fmt.Errorf("failed to build front matter: %w", err)
	}

	if err := os.WriteFile(filepath.Join(postDir, "index.md"), []byte(front+body), 0o644); err != nil {
		return fmt.Errorf("failed to write post file: %w", err)
	}

	record := database.PostRecord{
		Platform:  platform,
		Author:    s.source.Author,
		PostID:    post.ID,
		Title:     post.Title,
		Slug:      slug,
		PostDate:  post.Date,
		SourceURL: post.SourceURL,
		LocalPath: postDir,
		Tags:      post.Tags,
		SyncedAt:  time.Now().UTC(),
	}
	if err := s.posts.UpsertPost(record); err != nil {
		return fmt.Errorf("failed to record post: %w", err)
	}

	slog.Info("Post archived", "platform", platform, "post_id", post.ID, "slug", slug)
	return nil
}

// frontMatterDoc is the metadata header of every rendered post.
type frontMatterDoc struct {
	Title    string   `yaml:"title"`
	Date     string   `yaml:"date"`
	Source   string   `yaml:"source"`
	Author   string   `yaml:"author"`
	Platform string   `yaml:"platform"`
	PostID   string   `yaml:"post_id"`
	Tags     []string `yaml:"tags,omitempty"`
}

func frontMatter(post *Post, platform, author string) (string, error) {
	doc := frontMatterDoc{
		Title:    post.Title,
		Date:     post.Date,
		Source:   post.SourceURL,
		Author:   author,
		Platform: platform,
		PostID:   post.ID,
		Tags:     post.Tags,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", err
	}
	return "---\n" + string(data) + "---\n\n", nil
}
