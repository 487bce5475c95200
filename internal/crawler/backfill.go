package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/newscrawler/internal/model"
)

// Runner runs one category. *Crawler satisfies it.
type Runner interface {
	Run(ctx context.Context, cat, locCtx string) (Report, error)
}

// Backfill sweeps LOCAL for each city, then each category, pausing Delay
// between calls to stay under upstream rate limits.
type Backfill struct {
	Runner     Runner
	Cities     []string
	Categories []string
	Delay      time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

type job struct {
	cat, ctx string
}

// Run returns the joined errors of every failed call. A cancelled context
// stops the sweep.
func (b *Backfill) Run(ctx context.Context) error {
	var jobs []job
	for _, city := range b.Cities {
		jobs = append(jobs, job{model.Local, city})
	}
	for _, cat := range b.Categories {
		jobs = append(jobs, job{cat, ""})
	}

	sleep := b.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var errs []error
	for i, j := range jobs {
		if i > 0 && b.Delay > 0 {
			if err := sleep(ctx, b.Delay); err != nil {
				errs = append(errs, err)
				break
			}
		}

		rep, err := b.Runner.Run(ctx, j.cat, j.ctx)
		if err != nil {
			slog.Error("backfill run failed", "category", j.cat, "context", j.ctx, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", strings.TrimSpace(j.cat+" "+j.ctx), err))
			continue
		}
		slog.Info("backfill run finished", "step", i+1, "of", len(jobs), "report", rep.String())
	}
	return errors.Join(errs...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
