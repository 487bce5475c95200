// Package crawler runs the ingestion pipeline and schedules it across
// categories.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newscrawler/internal/blob"
	"github.com/deusflow/newscrawler/internal/category"
	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/dedup"
	"github.com/deusflow/newscrawler/internal/filter"
	"github.com/deusflow/newscrawler/internal/images"
	"github.com/deusflow/newscrawler/internal/logger"
	"github.com/deusflow/newscrawler/internal/metrics"
	"github.com/deusflow/newscrawler/internal/model"
	"github.com/deusflow/newscrawler/internal/notify"
	"github.com/deusflow/newscrawler/internal/retention"
	"github.com/deusflow/newscrawler/internal/scraper"
	"github.com/deusflow/newscrawler/internal/search"
	"github.com/deusflow/newscrawler/internal/storage"
	"github.com/deusflow/newscrawler/internal/summarize"
)

const (
	DefaultInterval    = time.Minute
	DefaultConcurrency = 4
)

type Summarizer interface {
	Summarize(ctx context.Context, inputs []summarize.Input) ([]summarize.Result, error)
	SummarizeOne(ctx context.Context, url string) (*summarize.Result, error)
}

type ImageResolver interface {
	Resolve(ctx context.Context, req images.ImageRequest) string
}

type Enforcer interface {
	Enforce(ctx context.Context, category string) (retention.Report, error)
}

// Options wires a Crawler. Store, Settings, Search and Summarizer are
// required; the rest may be nil.
type Options struct {
	Store      storage.NewsStore
	Settings   config.Provider
	Search     search.Gateway
	Fetcher    summarize.PageFetcher
	Summarizer Summarizer
	Images     ImageResolver
	Retention  Enforcer
	Blobs      retention.BlobDeleter
	Publisher  notify.Publisher

	Concurrency int
	Interval    time.Duration
}

// Crawler owns the pipeline collaborators and the scheduler state.
type Crawler struct {
	store      storage.NewsStore
	settings   config.Provider
	search     search.Gateway
	fetcher    summarize.PageFetcher
	summarizer Summarizer
	images     ImageResolver
	retention  Enforcer
	blobs      retention.BlobDeleter
	publisher  notify.Publisher
	dedup      *dedup.Deduplicator
	log        *slog.Logger

	concurrency int

	// Interval is the scheduler tick period.
	Interval time.Duration
	Now      func() time.Time
	newID    func() string

	mu     sync.Mutex
	cursor uint64
}

func New(o Options) *Crawler {
	c := &Crawler{
		store:       o.Store,
		settings:    o.Settings,
		search:      o.Search,
		fetcher:     o.Fetcher,
		summarizer:  o.Summarizer,
		images:      o.Images,
		retention:   o.Retention,
		blobs:       o.Blobs,
		publisher:   o.Publisher,
		dedup:       dedup.New(o.Store),
		log:         logger.With("crawler"),
		concurrency: o.Concurrency,
		Interval:    o.Interval,
		Now:         time.Now,
		newID:       uuid.NewString,
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.publisher == nil {
		c.publisher = notify.Discard{}
	}
	if c.retention == nil {
		c.retention = retention.New(o.Store, o.Blobs, o.Settings)
	}
	return c
}

// Report summarises one run. Counts are the survivors of each stage.
type Report struct {
	Category   string
	Context    string
	Searched   int
	Filtered   int
	New        int
	Summarized int
	Saved      int
	Evicted    int
	Duration   time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("%s searched=%d filtered=%d new=%d summarized=%d saved=%d evicted=%d",
		r.Category, r.Searched, r.Filtered, r.New, r.Summarized, r.Saved, r.Evicted)
}

// Run executes the full pipeline for (cat, locCtx): resolve, search, filter,
// drop known links, fetch, summarize, resolve images, drop known titles,
// save and enforce retention. A stage that leaves nothing ends the run with a
// nil error. Upstream failures are logged and end the run the same way; only
// store failures are returned.
func (c *Crawler) Run(ctx context.Context, cat, locCtx string) (Report, error) {
	start := c.Now()
	t := category.Build(c.settings.Get(), cat, locCtx)
	rep := Report{Category: t.Category, Context: t.Context}
	log := c.log.With("category", t.Category, "context", t.Context)

	query := t.Query()
	cands, err := c.search.Search(ctx, query, t.TimeWindow)
	if err != nil {
		log.Warn("search failed", "query", query, "err", err)
		c.record(&rep, 0, start)
		return rep, nil
	}
	rep.Searched = len(cands)
	log.Info("search complete", "query", query, "window", t.TimeWindow, "candidates", len(cands))

	cands = filter.Apply(cands, t)
	rep.Filtered = len(cands)
	if len(cands) == 0 {
		c.record(&rep, 0, start)
		return rep, nil
	}

	cands, err = c.dedup.FilterNew(ctx, cands)
	if err != nil {
		return rep, c.fail(err)
	}
	duplicates := rep.Filtered - len(cands)
	if len(cands) > t.ArticleCount && t.ArticleCount > 0 {
		cands = cands[:t.ArticleCount]
	}
	rep.New = len(cands)
	if len(cands) == 0 {
		log.Info("no new candidates")
		c.record(&rep, duplicates, start)
		return rep, nil
	}

	pages := c.fetchPages(ctx, cands)

	inputs := make([]summarize.Input, len(cands))
	for i, cand := range cands {
		inputs[i] = summarize.Input{ID: i, Title: cand.Title, Context: bestContext(cand, pages[i])}
	}
	results, err := c.summarizer.Summarize(ctx, inputs)
	if err != nil {
		metrics.Global.IncrementSummarizationsFailed()
		log.Warn("summarization failed, skipping run", "err", err)
		c.record(&rep, duplicates, start)
		return rep, nil
	}
	rep.Summarized = len(results)

	now := c.Now()
	used := make(map[int]bool, len(results))
	items := make([]model.NewsItem, 0, len(results))
	for _, r := range results {
		if r.ID < 0 || r.ID >= len(cands) || used[r.ID] {
			continue
		}
		used[r.ID] = true
		cand, page := cands[r.ID], pages[r.ID]

		req := images.ImageRequest{Headline: r.Title, Category: t.Category, OGImage: cand.ImageHint, Thumbnail: cand.Thumbnail}
		if req.OGImage == "" && page != nil {
			req.OGImage = page.OGImage
		}
		items = append(items, c.newItem(t, r, cand.Link, c.resolveImage(ctx, req), now))
	}

	kept, err := c.dedup.DropKnownTitles(ctx, t.Category, t.City(), items)
	if err != nil {
		return rep, c.fail(err)
	}
	duplicates += len(items) - len(kept)
	c.discardImages(ctx, items, kept)
	if len(kept) == 0 {
		c.record(&rep, duplicates, start)
		return rep, nil
	}

	if err := c.save(ctx, t, kept, &rep); err != nil {
		return rep, err
	}
	c.record(&rep, duplicates, start)
	log.Info("run complete", "saved", rep.Saved, "evicted", rep.Evicted, "took", rep.Duration)
	return rep, nil
}

// save persists items, enforces retention and publishes the update.
// Retention is skipped when the save fails.
func (c *Crawler) save(ctx context.Context, t category.Target, items []model.NewsItem, rep *Report) error {
	if err := c.store.Save(ctx, items); err != nil {
		c.log.Error("failed to save items", "category", t.Category, "count", len(items), "err", err)
		return c.fail(fmt.Errorf("save %s items: %w", t.Category, err))
	}
	rep.Saved = len(items)

	ret, err := c.retention.Enforce(ctx, t.Category)
	if err != nil {
		c.log.Warn("retention failed", "category", t.Category, "err", err)
	}
	rep.Evicted = ret.Evicted

	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	c.publisher.Publish(notify.Event{
		Type:     notify.TypeNewsUpdated,
		Category: t.Category,
		Context:  t.City(),
		Count:    len(items),
		Titles:   titles,
		Time:     c.Now(),
	})
	return nil
}

// fetchPages downloads candidate pages with bounded concurrency. A failed
// fetch leaves a nil page.
func (c *Crawler) fetchPages(ctx context.Context, cands []search.Candidate) []*scraper.Page {
	pages := make([]*scraper.Page, len(cands))
	if c.fetcher == nil {
		return pages
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, cand := range cands {
		g.Go(func() error {
			p, err := c.fetcher.Fetch(gctx, cand.Link)
			if err != nil {
				c.log.Debug("content fetch failed, using snippet", "link", cand.Link, "err", err)
				return nil
			}
			pages[i] = p
			return nil
		})
	}
	_ = g.Wait()
	return pages
}

func (c *Crawler) resolveImage(ctx context.Context, req images.ImageRequest) string {
	if c.images == nil {
		if req.OGImage != "" {
			return req.OGImage
		}
		return req.Thumbnail
	}
	return c.images.Resolve(ctx, req)
}

// discardImages deletes generated images of items that were dropped after
// image resolution.
func (c *Crawler) discardImages(ctx context.Context, all, kept []model.NewsItem) {
	if c.blobs == nil || len(all) == len(kept) {
		return
	}
	keep := make(map[string]bool, len(kept))
	for _, it := range kept {
		keep[it.ID] = true
	}
	for _, it := range all {
		if keep[it.ID] || !blob.IsGenerated(it.ImageURL) {
			continue
		}
		if err := c.blobs.Delete(ctx, it.ImageURL); err != nil {
			c.log.Warn("failed to delete unused generated image", "url", it.ImageURL, "err", err)
		}
	}
}

func (c *Crawler) newItem(t category.Target, r summarize.Result, link, image string, now time.Time) model.NewsItem {
	source := r.Source
	if source == "" {
		source = summarize.SourceName(link)
	}
	return model.NewsItem{
		ID:         c.itemID(t.Category, now),
		Title:      strings.TrimSpace(r.Title),
		Summary:    r.Summary,
		Content:    r.Content,
		Category:   t.Category,
		Timestamp:  now,
		ImageURL:   image,
		Source:     source,
		SourceURL:  link,
		YoutubeURL: r.YoutubeURL,
		City:       t.City(),
	}
}

// itemID is <unix ms>-<category>-<8 random hex chars>.
func (c *Crawler) itemID(cat string, now time.Time) string {
	id := strings.ReplaceAll(c.newID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), strings.ToLower(cat), id)
}

func (c *Crawler) record(rep *Report, duplicates int, start time.Time) {
	rep.Duration = c.Now().Sub(start)
	metrics.Global.RecordRun(metrics.RunStats{
		Category:   rep.Category,
		Searched:   rep.Searched,
		Filtered:   rep.Filtered,
		Duplicates: duplicates,
		Saved:      rep.Saved,
		Evicted:    rep.Evicted,
		Duration:   rep.Duration,
	})
}

func (c *Crawler) fail(err error) error {
	metrics.Global.SetError(err.Error())
	return err
}

// bestContext prefers fetched article text, then the search snippet, then
// page or search descriptions.
func bestContext(cand search.Candidate, page *scraper.Page) string {
	if page != nil && strings.TrimSpace(page.Text) != "" {
		return page.Text
	}
	if s := strings.TrimSpace(cand.Snippet); s != "" {
		return s
	}
	if page != nil && page.OGDescription != "" {
		return page.OGDescription
	}
	return cand.Description
}
