// Package dedup keeps already-stored stories out of the pipeline.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/newscrawler/internal/model"
	"github.com/deusflow/newscrawler/internal/search"
)

// RecentTitles is how many stored titles DropKnownTitles compares against.
const RecentTitles = 100

// Store is the part of storage.NewsStore the checks read.
type Store interface {
	CheckExists(ctx context.Context, urls []string) (map[string]bool, error)
	GetByCategory(ctx context.Context, category, city string, limit int) ([]model.NewsItem, error)
}

type Deduplicator struct {
	store Store
}

func New(store Store) *Deduplicator {
	return &Deduplicator{store: store}
}

// FilterNew drops candidates whose link is already stored or repeats an
// earlier candidate in the same batch. It runs before any model call.
func (d *Deduplicator) FilterNew(ctx context.Context, cands []search.Candidate) ([]search.Candidate, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(cands))
	for _, c := range cands {
		urls = append(urls, c.Link)
	}
	existing, err := d.store.CheckExists(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("check existing links: %w", err)
	}

	seen := make(map[string]bool, len(cands))
	out := make([]search.Candidate, 0, len(cands))
	for _, c := range cands {
		if existing[c.Link] || seen[c.Link] {
			slog.Debug("duplicate link", "link", c.Link)
			continue
		}
		seen[c.Link] = true
		out = append(out, c)
	}

	if dropped := len(cands) - len(out); dropped > 0 {
		slog.Info("dropped known links", "dropped", dropped, "remaining", len(out))
	}
	return out, nil
}

// DropKnownTitles drops items whose trimmed title matches one of the most
// recent stored titles for category (and city, when set), or an earlier item
// in the batch. The same story often reappears under another link.
func (d *Deduplicator) DropKnownTitles(ctx context.Context, category, city string, items []model.NewsItem) ([]model.NewsItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	recent, err := d.store.GetByCategory(ctx, category, city, RecentTitles)
	if err != nil {
		return nil, fmt.Errorf("load recent titles: %w", err)
	}

	seen := make(map[string]bool, len(recent)+len(items))
	for _, it := range recent {
		seen[strings.TrimSpace(it.Title)] = true
	}

	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if seen[title] {
			slog.Debug("duplicate title", "category", category, "title", title)
			continue
		}
		seen[title] = true
		out = append(out, it)
	}

	if dropped := len(items) - len(out); dropped > 0 {
		slog.Info("dropped known titles", "category", category, "dropped", dropped, "remaining", len(out))
	}
	return out, nil
}
