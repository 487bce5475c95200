package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/deusflow/newscrawler/internal/category"
	"github.com/deusflow/newscrawler/internal/images"
	"github.com/deusflow/newscrawler/internal/metrics"
	"github.com/deusflow/newscrawler/internal/model"
)

// ErrAlreadyStored is returned by InsertURL for a link that is already stored.
var ErrAlreadyStored = errors.New("url already stored")

// ErrDuplicateTitle is returned by InsertURL when the summary's title matches
// a recent item.
var ErrDuplicateTitle = errors.New("title already stored")

// InsertURL summarizes a single article and stores it under (cat, city).
func (c *Crawler) InsertURL(ctx context.Context, link, cat, city string) (*model.NewsItem, error) {
	if u, err := url.Parse(link); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q", link)
	}

	exists, err := c.store.CheckExists(ctx, []string{link})
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", link, err)
	}
	if exists[link] {
		return nil, ErrAlreadyStored
	}

	t := category.Build(c.settings.Get(), cat, city)
	res, err := c.summarizer.SummarizeOne(ctx, link)
	if err != nil {
		metrics.Global.IncrementSummarizationsFailed()
		return nil, err
	}

	req := images.ImageRequest{Headline: res.Title, Category: t.Category}
	if c.fetcher != nil {
		// Served from the fetch cache populated by SummarizeOne.
		if page, err := c.fetcher.Fetch(ctx, link); err == nil {
			req.OGImage = page.OGImage
		}
	}
	item := c.newItem(t, *res, link, c.resolveImage(ctx, req), c.Now())

	kept, err := c.dedup.DropKnownTitles(ctx, t.Category, t.City(), []model.NewsItem{item})
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		c.discardImages(ctx, []model.NewsItem{item}, nil)
		return nil, ErrDuplicateTitle
	}

	rep := Report{Category: t.Category, Context: t.Context}
	if err := c.save(ctx, t, kept, &rep); err != nil {
		return nil, err
	}
	c.log.Info("inserted article", "category", t.Category, "id", item.ID, "url", link)
	return &item, nil
}
