package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/akornilov/postvault/app/translit"
)

const slugTitleLimit = 60

// slugFor assigns the post's directory slug. A post that was archived before
// keeps its original slug forever, so later title edits never move the
// directory. A new slug that collides with a different post gets a short
// hash of the post ID appended.
func (s *Syncer) slugFor(post *Post) (string, error) {
	platform := s.client.Platform()

	existing, err := s.posts.GetPost(platform, s.source.Author, post.ID)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.Slug != "" {
		return existing.Slug, nil
	}

	datePrefix := post.Date
	if len(datePrefix) >= 10 {
		datePrefix = datePrefix[:10]
	}
	slug := datePrefix + "-" + translit.Slugify(post.Title, slugTitleLimit)

	taken, err := s.slugTakenByOther(slug, post.ID)
	if err != nil {
		return "", err
	}
	if taken {
		sum := sha256.Sum256([]byte(post.ID))
		slug = fmt.Sprintf("%s-%s", slug, hex.EncodeToString(sum[:4]))
	}
	return slug, nil
}

func (s *Syncer) slugTakenByOther(slug, postID string) (bool, error) {
	records, err := s.posts.AllPosts(s.client.Platform(), s.source.Author)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Slug == slug && r.PostID != postID {
			return true, nil
		}
	}
	return false, nil
}
