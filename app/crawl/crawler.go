// Package crawl drives an author's paginated post listing and decides when
// an incremental run has seen enough already-known posts to stop early.
package crawl

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Item is one listing entry: its post ID plus the raw payload the platform
// returned for it.
type Item struct {
	ID  string
	Raw json.RawMessage
}

// Page is one chunk of listing results.
type Page struct {
	Items []Item

	// NextCursor continues pagination. Platforms using numeric offsets
	// leave it empty and the crawler advances by accumulated count.
	NextCursor string

	// IsLast is the platform's explicit last-page signal.
	IsLast bool

	// HasCursor distinguishes "no cursor supplied" from offset paging.
	HasCursor bool
}

// PageFunc fetches one page. cursor is empty on the first call; offset is
// the count of items accumulated so far.
type PageFunc func(ctx context.Context, cursor string, offset int) (Page, error)

// Options controls early termination.
type Options struct {
	// KnownIDs enables incremental mode when non-nil.
	KnownIDs map[string]bool

	// SafetyChunks is the number of additional clean chunks confirmed
	// after the first before an incremental crawl stops.
	SafetyChunks int
}

// Run walks the listing until exhaustion or an early incremental stop and
// returns every item seen.
func Run(ctx context.Context, fetch PageFunc, opts Options) ([]Item, error) {
	var all []Item
	cursor := ""
	cleanChunks := 0

	for {
		page, err := fetch(ctx, cursor, len(all))
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		all = append(all, page.Items...)

		if opts.KnownIDs != nil {
			if allKnown(page.Items, opts.KnownIDs) {
				cleanChunks++
				slog.Debug("Listing chunk already synced", "total", len(all), "clean_chunks", cleanChunks)
				if cleanChunks > opts.SafetyChunks {
					slog.Debug("Stopping incremental crawl early", "total", len(all))
					break
				}
			} else {
				cleanChunks = 0
			}
		}

		if page.IsLast {
			break
		}
		if page.HasCursor {
			if page.NextCursor == "" {
				// A non-final page without a continuation cursor
				// cannot be advanced safely.
				slog.Warn("Listing page missing continuation cursor, stopping")
				break
			}
			cursor = page.NextCursor
		}
	}

	return all, nil
}

func allKnown(items []Item, known map[string]bool) bool {
	for _, item := range items {
		if !known[item.ID] {
			return false
		}
	}
	return true
}
