package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/newscrawler/internal/category"
)

// ShouldUpdate reports whether the effective category of (cat, locCtx) has
// gone longer than its refresh interval without new items. A category with
// no items is always due.
func (c *Crawler) ShouldUpdate(ctx context.Context, cat, locCtx string) (bool, error) {
	cfg := c.settings.Get()
	t := category.Build(cfg, cat, locCtx)

	last, err := c.store.GetLastUpdateTime(ctx, t.Category)
	if err != nil {
		return false, fmt.Errorf("last update of %s: %w", t.Category, err)
	}
	if last.IsZero() {
		return true, nil
	}
	return c.Now().Sub(last) >= cfg.RefreshInterval(t.Category), nil
}

// ForceRefresh runs (cat, locCtx) now, regardless of its refresh interval.
func (c *Crawler) ForceRefresh(ctx context.Context, cat, locCtx string) (Report, error) {
	c.log.Info("forced refresh", "category", cat, "context", locCtx)
	return c.Run(ctx, cat, locCtx)
}

// Tick evaluates the next category in round-robin order and runs it when it
// is due. It returns the evaluated category. Errors are logged, never
// returned, so one category cannot stop the loop.
func (c *Crawler) Tick(ctx context.Context) string {
	cats := category.Categories(c.settings.Get())
	if len(cats) == 0 {
		return ""
	}

	c.mu.Lock()
	cat := cats[c.cursor%uint64(len(cats))]
	c.cursor++
	c.mu.Unlock()

	due, err := c.ShouldUpdate(ctx, cat, "")
	if err != nil {
		c.log.Warn("scheduler check failed", "category", cat, "err", err)
		return cat
	}
	if !due {
		c.log.Debug("category fresh, skipping", "category", cat)
		return cat
	}

	rep, err := c.Run(ctx, cat, "")
	if err != nil {
		c.log.Error("scheduled run failed", "category", cat, "err", err)
		return cat
	}
	c.log.Info("scheduled run finished", "report", rep.String())
	return cat
}

// Start ticks immediately and then every Interval until ctx is done. Runs
// never overlap within the loop.
func (c *Crawler) Start(ctx context.Context) error {
	c.log.Info("scheduler started", "interval", c.Interval)
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		c.Tick(ctx)
		select {
		case <-ctx.Done():
			c.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
