// Package search queries external indexes for news candidates.
package search

import (
	"context"
	"log/slog"
)

// Candidate is one search result. It is never persisted directly.
type Candidate struct {
	Title   string
	Link    string
	Snippet string
	// ImageHint is the page's og:image when the index exposes it.
	ImageHint   string
	Thumbnail   string
	Description string
}

// Gateway runs a query restricted to a recency window such as "d1".
// Missing credentials or exhausted quota yield an empty result, not an error.
type Gateway interface {
	Search(ctx context.Context, query, window string) ([]Candidate, error)
}

// Chain asks each gateway in turn and returns the first non-empty result.
type Chain []Gateway

func (c Chain) Search(ctx context.Context, query, window string) ([]Candidate, error) {
	var lastErr error
	for _, g := range c {
		if g == nil {
			continue
		}
		cands, err := g.Search(ctx, query, window)
		if err != nil {
			slog.Warn("search gateway failed, trying next", "query", query, "err", err)
			lastErr = err
			continue
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}
	return nil, lastErr
}
