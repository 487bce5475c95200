// Package storage persists news items.
package storage

import (
	"context"
	"time"

	"github.com/deusflow/newscrawler/internal/model"
)

// NewsStore is the persistence boundary of the crawler. Save is an upsert by
// id so concurrent runs that race past deduplication stay idempotent.
type NewsStore interface {
	// GetByCategory returns items newest first. An empty city matches every
	// item; limit <= 0 returns all.
	GetByCategory(ctx context.Context, category, city string, limit int) ([]model.NewsItem, error)
	// CheckExists returns the subset of urls already stored as a source URL.
	CheckExists(ctx context.Context, urls []string) (map[string]bool, error)
	Save(ctx context.Context, items []model.NewsItem) error
	DeleteMany(ctx context.Context, ids []string) error
	// GetLastUpdateTime returns the newest timestamp in category, or the
	// zero time when it has no items.
	GetLastUpdateTime(ctx context.Context, category string) (time.Time, error)
	Stats(ctx context.Context) ([]CategoryStats, error)
	Close() error
}

type CategoryStats struct {
	Category   string
	Count      int
	LastUpdate time.Time
}

// batchSize bounds the number of bound parameters in one IN clause.
const batchSize = 500

func chunks(values []string, size int) [][]string {
	var out [][]string
	for len(values) > size {
		out = append(out, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

// fromMillis converts a stored timestamp; zero stays the zero time.
func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
