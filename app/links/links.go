// Package links resolves references between posts on the supported
// platforms: parsing post URLs and rewriting cross-post links in rendered
// Markdown into local relative paths.
package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	sponsrLinkPattern = regexp.MustCompile(`https?://sponsr\.ru/([^/\s]+)/(\d+)(?:/[^\s\)\]"'<>]*)?`)
	boostyLinkPattern = regexp.MustCompile(`https?://boosty\.to/([^/\s]+)/posts/([a-f0-9-]+)(?:[^\s\)\]"'<>]*)?`)
)

// PostRef identifies a post on one of the supported platforms.
type PostRef struct {
	Platform string
	Author   string
	PostID   string
}

// ParsePostURL extracts (platform, author, post ID) from a post URL.
func ParsePostURL(rawURL string) (PostRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PostRef{}, fmt.Errorf("failed to parse URL: %w", err)
	}

	parts := splitPath(u.Path)

	switch {
	case strings.Contains(u.Host, "sponsr.ru"):
		if len(parts) < 2 {
			return PostRef{}, fmt.Errorf("unexpected sponsr URL format: %s", rawURL)
		}
		return PostRef{Platform: "sponsr", Author: parts[0], PostID: parts[1]}, nil

	case strings.Contains(u.Host, "boosty.to"):
		if len(parts) < 3 || parts[1] != "posts" {
			return PostRef{}, fmt.Errorf("unexpected boosty URL format: %s", rawURL)
		}
		return PostRef{Platform: "boosty", Author: parts[0], PostID: parts[2]}, nil
	}

	return PostRef{}, fmt.Errorf("unknown platform in URL: %s", rawURL)
}

// IsPostURL reports whether text is a URL pointing at a post.
func IsPostURL(text string) bool {
	_, err := ParsePostURL(text)
	return err == nil
}

// InternalLink is one cross-post URL occurrence found in a rendered body.
type InternalLink struct {
	FullURL  string
	Platform string
	PostID   string
}

// ExtractInternalLinks finds every platform post URL in content.
func ExtractInternalLinks(content string) []InternalLink {
	var found []InternalLink

	for _, m := range sponsrLinkPattern.FindAllStringSubmatch(content, -1) {
		found = append(found, InternalLink{FullURL: m[0], Platform: "sponsr", PostID: m[2]})
	}
	for _, m := range boostyLinkPattern.FindAllStringSubmatch(content, -1) {
		found = append(found, InternalLink{FullURL: m[0], Platform: "boosty", PostID: m[2]})
	}

	return found
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
