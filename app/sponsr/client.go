// Package sponsr archives posts from sponsr.ru. Post bodies are HTML
// fragments, normalized through DOM rewrite passes before conversion to
// Markdown.
package sponsr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/akornilov/postvault/app/assets"
	"github.com/akornilov/postvault/app/crawl"
	"github.com/akornilov/postvault/app/fetch"
	"github.com/akornilov/postvault/app/sync"
)

const baseURL = "https://sponsr.ru"

// Client talks to sponsr.ru for one author. The numeric project ID backing
// the listing API is resolved lazily from the author page.
type Client struct {
	client    *fetch.Client
	author    string
	projectID string
}

func NewClient(client *fetch.Client, author string) *Client {
	return &Client{client: client, author: author}
}

func (c *Client) Platform() string { return "sponsr" }

// RequiresFetch is true: listing rows carry truncated post bodies, so new
// posts are re-fetched in full from their page.
func (c *Client) RequiresFetch() bool { return true }

// resolveProjectID reads the author page once and extracts project.id from
// its __NEXT_DATA__ payload.
func (c *Client) resolveProjectID(ctx context.Context) (string, error) {
	if c.projectID != "" {
		return c.projectID, nil
	}

	pageURL := fmt.Sprintf("%s/%s/", baseURL, c.author)
	body, err := c.client.GetBody(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch author page: %w", err)
	}

	data, err := parseNextData(body)
	if err != nil {
		return "", fmt.Errorf("author page %s: %w", pageURL, err)
	}
	id := string(data.Props.PageProps.Project.ID)
	if id == "" {
		return "", fmt.Errorf("no project ID in author page %s", pageURL)
	}

	c.projectID = id
	return id, nil
}

// FetchPage reads one listing page. Pagination is by accumulated offset;
// the crawler stops on the first empty page.
func (c *Client) FetchPage(ctx context.Context, _ string, offset int) (crawl.Page, error) {
	projectID, err := c.resolveProjectID(ctx)
	if err != nil {
		return crawl.Page{}, err
	}

	listURL := fmt.Sprintf("%s/project/%s/more-posts/?offset=%d", baseURL, projectID, offset)
	var resp listResponse
	if err := c.client.GetJSON(ctx, listURL, &resp); err != nil {
		return crawl.Page{}, fmt.Errorf("failed to fetch post listing: %w", err)
	}

	var page crawl.Page
	for _, raw := range resp.Response.Rows {
		var probe struct {
			PostID flexString `json:"post_id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.PostID == "" {
			continue
		}
		page.Items = append(page.Items, crawl.Item{ID: string(probe.PostID), Raw: raw})
	}
	return page, nil
}

// FetchPost retrieves one post in full: first from its page's __NEXT_DATA__
// payload, then by scanning the listing API, and as a last resort through
// readability extraction of the page itself.
func (c *Client) FetchPost(ctx context.Context, postID string) (*sync.Post, error) {
	pageURL := fmt.Sprintf("%s/%s/%s/", baseURL, c.author, postID)

	body, pageErr := c.client.GetBody(ctx, pageURL)
	if pageErr == nil {
		if data, err := parseNextData(body); err == nil && len(data.Props.PageProps.Post) > 0 {
			post, err := c.ParseListItem(data.Props.PageProps.Post)
			if err == nil {
				return post, nil
			}
		}
	}

	if post, err := c.findInListing(ctx, postID); err == nil && post != nil {
		return post, nil
	}

	if pageErr == nil {
		if post, err := c.extractWithReadability(body, pageURL, postID); err == nil {
			return post, nil
		}
	}

	return nil, fmt.Errorf("post %s not found on page or in listing", postID)
}

// findInListing pages through the listing API until the post shows up.
func (c *Client) findInListing(ctx context.Context, postID string) (*sync.Post, error) {
	offset := 0
	for {
		page, err := c.FetchPage(ctx, "", offset)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			return nil, nil
		}
		for _, item := range page.Items {
			if item.ID == postID {
				return c.ParseListItem(item.Raw)
			}
		}
		offset += len(page.Items)
	}
}

// extractWithReadability salvages a post from its page when the structured
// payload is absent, keeping title and article body only.
func (c *Client) extractWithReadability(body []byte, pageURL, postID string) (*sync.Post, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, fmt.Errorf("readability produced no content for %s", pageURL)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Untitled"
	}

	return &sync.Post{
		ID:        postID,
		Title:     title,
		Content:   []byte(article.Content),
		SourceURL: pageURL,
		Assets:    ExtractAssets(article.Content),
	}, nil
}

// ParseListItem parses a raw listing row or page payload into a Post.
func (c *Client) ParseListItem(raw json.RawMessage) (*sync.Post, error) {
	var row postRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("failed to parse post row: %w", err)
	}

	id := string(row.PostID)
	if id == "" {
		id = string(row.ID)
	}
	if id == "" {
		return nil, fmt.Errorf("post row carries no ID")
	}

	title := row.PostTitle
	if title == "" {
		title = row.Title
	}
	if title == "" {
		title = "Untitled"
	}

	date := row.PostDate
	if date == "" {
		date = row.Date
	}

	sourceURL := row.PostURL
	if sourceURL == "" {
		sourceURL = fmt.Sprintf("/%s/%s/", c.author, id)
	}
	if !strings.HasPrefix(sourceURL, "http") {
		sourceURL = baseURL + sourceURL
	}

	content := row.PostText.Text
	if content == "" {
		content = row.Text.Text
	}

	var tags []string
	for _, t := range row.Tags {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}

	return &sync.Post{
		ID:        id,
		Title:     title,
		Content:   []byte(content),
		Date:      date,
		SourceURL: sourceURL,
		Tags:      tags,
		Assets:    ExtractAssets(content),
	}, nil
}

// ExtractAssets collects image references from a post's HTML. Lazy-loaded
// images keep their URL in data-src; captions live on the wrapping
// post-image container.
func ExtractAssets(htmlContent string) []assets.Asset {
	if htmlContent == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	var list []assets.Asset
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src == "" {
			return
		}
		if !strings.HasPrefix(src, "http") {
			src = absoluteURL(src)
		}

		alt, _ := img.Attr("alt")
		if alt == "" {
			if parent := img.ParentsFiltered("div.post-image").First(); parent.Length() > 0 {
				alt, _ = parent.Attr("data-alt")
			}
		}
		list = append(list, assets.Asset{URL: src, Label: alt})
	})
	return list
}

// RenderBody converts the stored HTML into Markdown: asset URLs are swapped
// for local paths, the DOM is normalized, and conversion artifacts are
// cleaned by a final text pass.
func (c *Client) RenderBody(post *sync.Post, assetMap map[string]string) (string, error) {
	htmlContent := string(post.Content)
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	for remote, local := range assetMap {
		htmlContent = strings.ReplaceAll(htmlContent, remote, "assets/"+local)
	}

	normalized, err := NormalizeHTML(htmlContent)
	if err != nil {
		return "", err
	}

	md, err := convertToMarkdown(normalized)
	if err != nil {
		return "", err
	}

	return PostProcess(md), nil
}

func parseNextData(body []byte) (*nextData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	payload := doc.Find("script#__NEXT_DATA__").First().Text()
	if payload == "" {
		return nil, fmt.Errorf("no __NEXT_DATA__ payload")
	}

	var data nextData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode __NEXT_DATA__: %w", err)
	}
	return &data, nil
}

func absoluteURL(src string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}
