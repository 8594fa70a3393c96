// Package assets downloads a post's media files concurrently and assigns
// collision-free local filenames.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akornilov/postvault/app/fetch"
	"github.com/akornilov/postvault/app/translit"
)

// Pipeline downloads assets with a bounded worker pool. Categories narrows
// the allowed asset kinds per source; empty means all categories.
type Pipeline struct {
	client     *fetch.Client
	workers    int
	categories map[string]bool
}

func NewPipeline(client *fetch.Client, workers int, categories []string) *Pipeline {
	if workers <= 0 {
		workers = 5
	}
	var cats map[string]bool
	if len(categories) > 0 {
		cats = make(map[string]bool, len(categories))
		for _, c := range categories {
			cats[c] = true
		}
	}
	return &Pipeline{client: client, workers: workers, categories: cats}
}

// DownloadAll fetches every asset into dir and returns the mapping from
// remote URL to local filename. Failed or rejected assets are absent from
// the map; they never abort the batch.
func (p *Pipeline) DownloadAll(ctx context.Context, list []Asset, dir string) map[string]string {
	assetMap := make(map[string]string)
	if len(list) == 0 {
		return assetMap
	}

	var (
		mu      sync.Mutex
		claimed = make(map[string]string) // filename -> URL
		wg      sync.WaitGroup
	)

	jobs := make(chan Asset)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				filename, err := p.downloadOne(ctx, asset, dir, &mu, claimed)
				if err != nil {
					slog.Warn("Asset download failed", "url", asset.URL, "error", err)
					continue
				}
				if filename == "" {
					continue
				}
				mu.Lock()
				assetMap[asset.URL] = filename
				mu.Unlock()
			}
		}()
	}

	for _, asset := range list {
		jobs <- asset
	}
	close(jobs)
	wg.Wait()

	return assetMap
}

// downloadOne returns the claimed local filename, or "" when the asset is
// filtered out by type.
func (p *Pipeline) downloadOne(ctx context.Context, asset Asset, dir string, mu *sync.Mutex, claimed map[string]string) (string, error) {
	ext := strings.ToLower(path.Ext(urlPath(asset.URL)))
	if ext != "" && !p.allowedExtension(ext) {
		return "", nil
	}

	resp, err := p.client.Get(ctx, asset.URL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !p.shouldDownload(ext, contentType) {
		return "", nil
	}

	candidate := p.deriveFilename(asset, contentType)

	filename, err := claimFilename(candidate, asset.URL, dir, mu, claimed)
	if err != nil {
		return "", err
	}

	file, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filename, nil
}

// shouldDownload approves an asset by extension when the URL carries one,
// otherwise by the declared content type.
func (p *Pipeline) shouldDownload(ext, contentType string) bool {
	if ext != "" {
		return p.allowedExtension(ext)
	}
	return p.allowedContentType(contentType)
}

func (p *Pipeline) allowedExtension(ext string) bool {
	category, ok := extensionCategories[ext]
	if !ok {
		return false
	}
	return p.categories == nil || p.categories[category]
}

func (p *Pipeline) allowedContentType(contentType string) bool {
	return p.contentTypeCategory(contentType) != ""
}

func (p *Pipeline) contentTypeCategory(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))

	var category string
	switch {
	case strings.HasPrefix(ct, "image/"):
		category = "image"
	case strings.HasPrefix(ct, "video/"):
		category = "video"
	case strings.HasPrefix(ct, "audio/"):
		category = "audio"
	case ct == "application/pdf":
		category = "document"
	default:
		return ""
	}

	if p.categories != nil && !p.categories[category] {
		return ""
	}
	return category
}

// deriveFilename builds a local name from the asset label or the URL path,
// taking the extension from the URL or the content type.
func (p *Pipeline) deriveFilename(asset Asset, contentType string) string {
	urlP := urlPath(asset.URL)
	ext := strings.ToLower(path.Ext(urlP))

	if _, ok := extensionCategories[ext]; !ok {
		ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
		ext = contentTypeExtensions[ct]
		if ext == "" {
			ext = ".bin"
		}
	}

	var name string
	if asset.Label != "" {
		name = translit.Slugify(asset.Label, 50)
	}
	if name == "" {
		stem := strings.TrimSuffix(path.Base(urlP), path.Ext(urlP))
		name = translit.Slugify(stem, 50)
	}
	if name == "" {
		name = "asset"
	}

	return name + ext
}

// claimFilename reserves a unique name under dir. Two concurrent downloads
// can never claim the same final name for different URLs; a name taken by
// another URL, in this run or on disk, gets a short URL hash appended.
func claimFilename(candidate, rawURL, dir string, mu *sync.Mutex, claimed map[string]string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	free := func(name string) bool {
		owner, taken := claimed[name]
		if taken {
			return owner == rawURL
		}
		return true
	}

	if free(candidate) && !fileExists(filepath.Join(dir, candidate)) {
		claimed[candidate] = rawURL
		return candidate, nil
	}

	ext := path.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)
	sum := sha256.Sum256([]byte(rawURL))

	for _, n := range []int{4, 8, 16} {
		name := fmt.Sprintf("%s-%s%s", stem, hex.EncodeToString(sum[:n]), ext)
		if free(name) {
			// A hashed name already on disk was produced by this same
			// URL on a previous run and is safe to overwrite.
			claimed[name] = rawURL
			return name, nil
		}
	}

	return "", fmt.Errorf("failed to claim unique filename for %s", rawURL)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
