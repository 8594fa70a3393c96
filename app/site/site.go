// Package site maintains the Hugo scaffolding around the archive: section
// index files, the generated site configuration and the content symlink.
package site

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"

	"github.com/akornilov/postvault/app/config"
)

// EnsureIndexFiles writes the _index.md files Hugo needs to render the
// platform, author and posts sections. The platform index is created only
// once; the author index is rewritten so display name changes take effect.
func EnsureIndexFiles(outputDir, platform string, source config.Source) error {
	platformDir := filepath.Join(outputDir, platform)
	if err := os.MkdirAll(platformDir, 0o755); err != nil {
		return fmt.Errorf("failed to create platform directory: %w", err)
	}

	platformIndex := filepath.Join(platformDir, "_index.md")
	if _, err := os.Stat(platformIndex); os.IsNotExist(err) {
		content := fmt.Sprintf("---\ntitle: %s\n---\n", titleCase(platform))
		if err := os.WriteFile(platformIndex, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write platform index: %w", err)
		}
	}

	authorDir := filepath.Join(platformDir, source.Author)
	if err := os.MkdirAll(authorDir, 0o755); err != nil {
		return fmt.Errorf("failed to create author directory: %w", err)
	}

	displayName := source.DisplayName
	if displayName == "" {
		displayName = source.Author
	}
	displayName = strings.ReplaceAll(displayName, `"`, `\"`)
	content := fmt.Sprintf("---\ntitle: %q\n---\n", displayName)
	if err := os.WriteFile(filepath.Join(authorDir, "_index.md"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write author index: %w", err)
	}

	postsDir := filepath.Join(authorDir, "posts")
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create posts directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(postsDir, "_index.md"), []byte("---\ntitle: \"Посты\"\n---\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write posts index: %w", err)
	}

	return nil
}

type hugoConfig struct {
	BaseURL      string            `toml:"baseURL"`
	LanguageCode string            `toml:"languageCode"`
	Title        string            `toml:"title"`
	RelativeURLs bool              `toml:"relativeURLs"`
	Params       hugoParams        `toml:"params"`
	Markup       hugoMarkup        `toml:"markup"`
	Taxonomies   map[string]string `toml:"taxonomies"`
	Outputs      hugoOutputs       `toml:"outputs"`
	Services     hugoServices      `toml:"services"`
}

type hugoParams struct {
	DefaultTheme string `toml:"default_theme"`
}

type hugoMarkup struct {
	Goldmark struct {
		Renderer struct {
			Unsafe bool `toml:"unsafe"`
		} `toml:"renderer"`
	} `toml:"goldmark"`
}

type hugoOutputs struct {
	Home    []string `toml:"home"`
	Section []string `toml:"section"`
}

type hugoServices struct {
	RSS struct {
		Limit int `toml:"limit"`
	} `toml:"rss"`
}

// WriteHugoConfig regenerates site/hugo.toml from the backup configuration.
// A missing site directory means Hugo is not set up here, so nothing is
// written.
func WriteHugoConfig(hugo config.Hugo) error {
	if _, err := os.Stat("site"); os.IsNotExist(err) {
		return nil
	}

	cfg := hugoConfig{
		BaseURL:      hugo.BaseURL,
		LanguageCode: hugo.LanguageCode,
		Title:        hugo.Title,
		RelativeURLs: true,
		Params:       hugoParams{DefaultTheme: hugo.DefaultTheme},
		Taxonomies:   map[string]string{"tag": "tags"},
		Outputs: hugoOutputs{
			Home:    []string{"HTML"},
			Section: []string{"HTML", "RSS"},
		},
	}
	cfg.Markup.Goldmark.Renderer.Unsafe = true
	cfg.Services.RSS.Limit = 50

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode Hugo config: %w", err)
	}
	if err := os.WriteFile(filepath.Join("site", "hugo.toml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write Hugo config: %w", err)
	}
	return nil
}

// EnsureContentLink points site/content at the output directory. Inside a
// container the paths differ from the host's, so when BACKUP_OUTPUT_DIR is
// set the link is left to the launch script.
func EnsureContentLink(outputDir string) error {
	if os.Getenv("BACKUP_OUTPUT_DIR") != "" {
		return nil
	}

	linkPath := filepath.Join("site", "content")
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}

	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			current, err := filepath.EvalSymlinks(linkPath)
			if err == nil && !filepath.IsAbs(current) {
				current, err = filepath.Abs(current)
			}
			if err == nil {
				if resolved, err := filepath.EvalSymlinks(absOutput); err == nil && current == resolved {
					return nil
				}
			}
			if err := os.Remove(linkPath); err != nil {
				return fmt.Errorf("failed to remove stale content link: %w", err)
			}
		} else {
			slog.Warn("site/content exists and is not a symlink, leaving it alone")
			return nil
		}
	}

	siteDir, err := filepath.Abs("site")
	if err != nil {
		return fmt.Errorf("failed to resolve site directory: %w", err)
	}
	if _, err := os.Stat(siteDir); os.IsNotExist(err) {
		return nil
	}

	rel, err := filepath.Rel(siteDir, absOutput)
	if err != nil {
		return fmt.Errorf("failed to compute relative content path: %w", err)
	}
	if err := os.Symlink(rel, linkPath); err != nil {
		return fmt.Errorf("failed to create content link: %w", err)
	}
	slog.Info("Content link created", "target", rel)
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
