package sync

import (
	"context"
	"encoding/json"

	"github.com/akornilov/postvault/app/assets"
	"github.com/akornilov/postvault/app/crawl"
)

// Post is the platform-independent shape of one fetched post. Content holds
// the platform-native body: an HTML fragment or a JSON block array.
type Post struct {
	ID        string
	Title     string
	Content   []byte
	Date      string
	SourceURL string
	Tags      []string
	Assets    []assets.Asset
}

// Client is the capability set a platform implements. One generic driver
// composes these into the full sync flow.
type Client interface {
	Platform() string

	// FetchPage reads one listing page; cursor/offset semantics are
	// platform-specific (see crawl.PageFunc).
	FetchPage(ctx context.Context, cursor string, offset int) (crawl.Page, error)

	// FetchPost retrieves one post in full by ID.
	FetchPost(ctx context.Context, postID string) (*Post, error)

	// ParseListItem parses a raw listing entry into a Post.
	ParseListItem(raw json.RawMessage) (*Post, error)

	// RequiresFetch reports whether listing entries carry truncated
	// content, so new posts must be re-fetched in full via FetchPost.
	RequiresFetch() bool

	// RenderBody converts a post's platform-native content into
	// Markdown, substituting downloaded asset paths.
	RenderBody(post *Post, assetMap map[string]string) (string, error)
}
