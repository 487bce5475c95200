// Package retention evicts stored items that are too old or beyond a
// category's count limit.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newscrawler/internal/blob"
	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/model"
)

// MaxAge is the fixed age cutoff. Unlike the count limit it is not read from
// settings.
const MaxAge = 48 * time.Hour

// Store is the part of storage.NewsStore the enforcer needs.
type Store interface {
	GetByCategory(ctx context.Context, category, city string, limit int) ([]model.NewsItem, error)
	DeleteMany(ctx context.Context, ids []string) error
}

// BlobDeleter removes generated images. blob.Store satisfies it.
type BlobDeleter interface {
	Delete(ctx context.Context, url string) error
}

type Report struct {
	Category string
	Limit    int
	Stored   int
	Expired  int
	Overflow int
	Evicted  int
	Blobs    int
}

type Enforcer struct {
	store    Store
	blobs    BlobDeleter
	settings config.Provider

	Now func() time.Time
}

func New(store Store, blobs BlobDeleter, settings config.Provider) *Enforcer {
	return &Enforcer{
		store:    store,
		blobs:    blobs,
		settings: settings,
		Now:      time.Now,
	}
}

// Enforce evicts every item in category that is older than MaxAge or not
// among the newest countLimit items. Either criterion alone evicts; a limit
// smaller than one ingestion batch therefore trims fresh items too.
// Generated images of evicted items are deleted first; a failed blob delete
// is logged and does not keep the record.
func (e *Enforcer) Enforce(ctx context.Context, category string) (Report, error) {
	limit := e.limit(category)
	rep := Report{Category: category, Limit: limit}

	items, err := e.store.GetByCategory(ctx, category, "", 0)
	if err != nil {
		return rep, fmt.Errorf("load %s for retention: %w", category, err)
	}
	rep.Stored = len(items)

	cutoff := e.Now().Add(-MaxAge)
	evict := Select(items, limit, cutoff)
	if len(evict) == 0 {
		return rep, nil
	}

	ids := make([]string, 0, len(evict))
	for _, it := range evict {
		if it.Timestamp.Before(cutoff) {
			rep.Expired++
		} else {
			rep.Overflow++
		}
		ids = append(ids, it.ID)

		if e.blobs != nil && blob.IsGenerated(it.ImageURL) {
			if err := e.blobs.Delete(ctx, it.ImageURL); err != nil {
				slog.Warn("failed to delete generated image", "category", category, "url", it.ImageURL, "err", err)
				continue
			}
			rep.Blobs++
		}
	}

	if err := e.store.DeleteMany(ctx, ids); err != nil {
		return rep, fmt.Errorf("evict %d %s items: %w", len(ids), category, err)
	}
	rep.Evicted = len(ids)

	slog.Info("retention enforced", "category", category, "limit", limit,
		"stored", rep.Stored, "expired", rep.Expired, "overflow", rep.Overflow, "blobs", rep.Blobs)
	return rep, nil
}

func (e *Enforcer) limit(category string) int {
	if e.settings == nil {
		return config.DefaultRetentionLimit
	}
	return e.settings.Get().RetentionLimit(category)
}

// Select returns the union of items older than cutoff and items beyond the
// newest limit. items must be ordered newest first. Each item appears once.
func Select(items []model.NewsItem, limit int, cutoff time.Time) []model.NewsItem {
	var out []model.NewsItem
	seen := make(map[string]bool)
	for i, it := range items {
		if seen[it.ID] {
			continue
		}
		if it.Timestamp.Before(cutoff) || (limit > 0 && i >= limit) {
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	return out
}
