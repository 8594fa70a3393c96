package links

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/akornilov/postvault/app/database"
)

// Rewriter rewrites cross-post URLs in rendered posts into relative links
// once all sibling slugs are known.
type Rewriter struct {
	postRepo database.PostStore
}

func NewRewriter(postRepo database.PostStore) *Rewriter {
	return &Rewriter{postRepo: postRepo}
}

// Run rewrites internal links in every post of the author. Only the body is
// touched; front matter is split off and rejoined untouched.
func (r *Rewriter) Run(platform, author string) error {
	posts, err := r.postRepo.AllPosts(platform, author)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	idToSlug := make(map[string]string, len(posts))
	for _, p := range posts {
		idToSlug[p.PostID] = p.Slug
	}

	rewritten := 0
	for _, post := range posts {
		changed, err := r.rewriteFile(filepath.Join(post.LocalPath, "index.md"), idToSlug)
		if err != nil {
			slog.Warn("Failed to rewrite internal links", "post_id", post.PostID, "error", err)
			continue
		}
		if changed {
			rewritten++
		}
	}

	if rewritten > 0 {
		slog.Info("Rewrote internal links", "platform", platform, "author", author, "files", rewritten)
	}
	return nil
}

func (r *Rewriter) rewriteFile(path string, idToSlug map[string]string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	content := string(data)
	if !strings.HasPrefix(content, "---") {
		return false, nil
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return false, nil
	}
	frontMatter, body := parts[1], parts[2]

	newBody := body
	for _, link := range ExtractInternalLinks(body) {
		slug, ok := idToSlug[link.PostID]
		if !ok {
			continue
		}
		newBody = strings.ReplaceAll(newBody, link.FullURL, "../"+slug+"/")
	}

	if newBody == body {
		return false, nil
	}

	out := "---" + frontMatter + "---" + newBody
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
