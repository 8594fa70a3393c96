// Package boosty archives posts from boosty.to. The API returns post bodies
// as a JSON block array, which is normalized into the canonical document
// before rendering.
package boosty

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/akornilov/postvault/app/assets"
	"github.com/akornilov/postvault/app/crawl"
	"github.com/akornilov/postvault/app/fetch"
	"github.com/akornilov/postvault/app/markdown"
	"github.com/akornilov/postvault/app/sync"
)

const apiBase = "https://api.boosty.to/v1"

// listing page size accepted by the API
const pageLimit = 20

// Client talks to the Boosty API for one author.
type Client struct {
	client *fetch.Client
	author string
}

func NewClient(client *fetch.Client, author string) *Client {
	return &Client{client: client, author: author}
}

func (c *Client) Platform() string { return "boosty" }

// RequiresFetch is false: listing entries carry full post bodies.
func (c *Client) RequiresFetch() bool { return false }

// FetchPage reads one listing page. Pagination uses the opaque cursor the
// API returns in extra.offset.
func (c *Client) FetchPage(ctx context.Context, cursor string, _ int) (crawl.Page, error) {
	url := fmt.Sprintf("%s/blog/%s/post/?limit=%d", apiBase, c.author, pageLimit)
	if cursor != "" {
		url += "&offset=" + cursor
	}

	var resp listResponse
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return crawl.Page{}, fmt.Errorf("failed to fetch post listing: %w", err)
	}

	page := crawl.Page{
		IsLast:     resp.Extra.IsLast,
		NextCursor: decodeCursor(resp.Extra.Offset),
		HasCursor:  true,
	}
	for _, raw := range resp.Data {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.ID == "" {
			continue
		}
		page.Items = append(page.Items, crawl.Item{ID: probe.ID, Raw: raw})
	}
	return page, nil
}

// FetchPost retrieves one post in full by ID.
func (c *Client) FetchPost(ctx context.Context, postID string) (*sync.Post, error) {
	url := fmt.Sprintf("%s/blog/%s/post/%s", apiBase, c.author, postID)

	var data postData
	if err := c.client.GetJSON(ctx, url, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch post %s: %w", postID, err)
	}
	return c.buildPost(data)
}

// ParseListItem parses a raw listing entry into a Post.
func (c *Client) ParseListItem(raw json.RawMessage) (*sync.Post, error) {
	var data postData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse listing entry: %w", err)
	}
	return c.buildPost(data)
}

func (c *Client) buildPost(data postData) (*sync.Post, error) {
	if data.ID == "" {
		return nil, fmt.Errorf("post entry carries no ID")
	}

	title := data.Title
	if title == "" {
		title = "Untitled"
	}

	author := data.User.BlogURL
	if author == "" {
		author = c.author
	}

	var tags []string
	for _, t := range data.Tags {
		if t.Title != "" {
			tags = append(tags, t.Title)
		}
	}

	content, err := json.Marshal(data.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content blocks: %w", err)
	}

	return &sync.Post{
		ID:        data.ID,
		Title:     title,
		Content:   content,
		Date:      time.Unix(data.CreatedAt, 0).UTC().Format(time.RFC3339),
		SourceURL: fmt.Sprintf("https://boosty.to/%s/posts/%s", author, data.ID),
		Tags:      tags,
		Assets:    extractAssets(decodeBlocks(data.Data)),
	}, nil
}

// RenderBody converts the stored block array into Markdown.
func (c *Client) RenderBody(post *sync.Post, assetMap map[string]string) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(post.Content, &raw); err != nil {
		return "", fmt.Errorf("failed to decode content blocks: %w", err)
	}

	doc := BuildDocument(decodeBlocks(raw))
	return markdown.NewRenderer(assetMap).Render(doc), nil
}

// extractAssets collects downloadable media from content blocks. For videos
// the best player URL is preferred; the preview image is a fallback only.
func extractAssets(blocks []Block) []assets.Asset {
	var list []assets.Asset
	for _, block := range blocks {
		switch block.Type {
		case "image":
			if block.URL != "" {
				list = append(list, assets.Asset{URL: block.URL, Label: string(block.ID)})
			}
		case "audio_file":
			if block.URL != "" {
				label := block.Title
				if label == "" {
					label = string(block.ID)
				}
				list = append(list, assets.Asset{URL: block.URL, Label: label})
			}
		case "ok_video":
			if url := bestPlayerURL(block); url != "" {
				list = append(list, assets.Asset{URL: url, Label: "video-" + string(block.ID)})
				continue
			}
			preview := block.PreviewURL
			if preview == "" {
				preview = block.Preview
			}
			if preview != "" {
				list = append(list, assets.Asset{URL: preview, Label: "video-preview-" + string(block.ID)})
			}
		}
	}
	return list
}

func decodeBlocks(raw []json.RawMessage) []Block {
	blocks := make([]Block, 0, len(raw))
	for _, r := range raw {
		var b Block
		if err := json.Unmarshal(r, &b); err != nil {
			// Unknown block shapes are skipped, not fatal.
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// decodeCursor normalizes extra.offset, which the API serves either as a
// string or a number.
func decodeCursor(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
