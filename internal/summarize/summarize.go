// Package summarize turns fetched article text into titled summaries with a
// generative text model.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/ratelimit"
	"github.com/deusflow/newscrawler/internal/retry"
	"github.com/deusflow/newscrawler/internal/scraper"
)

// ErrBudgetExhausted is returned when the daily text model budget is spent.
var ErrBudgetExhausted = errors.New("text model budget exhausted")

// maxContextRunes bounds the text sent for each item.
const maxContextRunes = 3000

// Request is one call to a text model.
type Request struct {
	System string
	Prompt string
	// JSON asks the backend for a JSON-constrained response. Callers still
	// parse the output as untrusted text.
	JSON bool
}

type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// PageFetcher retrieves article text for SummarizeOne.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Page, error)
}

// Input is one candidate in a combined prompt. ID maps the result back.
type Input struct {
	ID      int
	Title   string
	Context string
}

type Result struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Content    string `json:"content"`
	Source     string `json:"source"`
	YoutubeURL string `json:"youtubeUrl,omitempty"`
}

type Summarizer struct {
	backend  Backend
	settings config.Provider
	budget   *ratelimit.Budget
	fetcher  PageFetcher

	Retry retry.RetryConfig
}

func New(backend Backend, settings config.Provider, budget *ratelimit.Budget, fetcher PageFetcher) *Summarizer {
	return &Summarizer{
		backend:  backend,
		settings: settings,
		budget:   budget,
		fetcher:  fetcher,
		Retry: retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       1000 * time.Millisecond,
			Backoff:     true,
		},
	}
}

// Summarize sends all inputs in one prompt. The model call is retried; a
// response without a JSON array yields no results and no error. Results
// whose id does not match an input are dropped.
func (s *Summarizer) Summarize(ctx context.Context, inputs []Input) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	req := Request{
		System: systemInstruction(s.language()),
		Prompt: buildPrompt(inputs),
		JSON:   true,
	}

	raw, err := s.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	known := make(map[int]bool, len(inputs))
	for _, in := range inputs {
		known[in.ID] = true
	}

	var out []Result
	for _, r := range ParseResults(CleanJSON(raw)) {
		if !known[r.ID] {
			slog.Debug("dropping summary with unknown id", "id", r.ID)
			continue
		}
		out = append(out, r)
	}
	slog.Info("summarized", "inputs", len(inputs), "results", len(out))
	return out, nil
}

// SummarizeOne fetches url and summarizes it alone.
func (s *Summarizer) SummarizeOne(ctx context.Context, pageURL string) (*Result, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no page fetcher configured")
	}
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}

	text := page.Text
	if text == "" {
		text = page.OGDescription
	}
	results, err := s.Summarize(ctx, []Input{{ID: 0, Title: page.Title, Context: text}})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no summary produced for %s", pageURL)
	}

	r := results[0]
	if r.Source == "" {
		r.Source = SourceName(pageURL)
	}
	return &r, nil
}

func (s *Summarizer) generate(ctx context.Context, req Request) (string, error) {
	var raw string
	cfg := s.Retry
	cfg.OnRetry = func(attempt int, err error) {
		slog.Warn("text model call failed, retrying", "attempt", attempt, "err", err)
	}

	err := retry.WithRetry(ctx, cfg, func() error {
		if err := s.budget.UseText(); err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", ErrBudgetExhausted, err))
		}
		out, err := s.backend.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return raw, nil
}

func (s *Summarizer) language() string {
	if s.settings == nil {
		return config.DefaultLanguage
	}
	return s.settings.Get().Language
}

func systemInstruction(language string) string {
	return fmt.Sprintf(`You are a news editor. For each numbered article you receive, write in %s:
- "title": a concise headline
- "summary": at least 200 characters summarizing the key facts
- "content": a fuller rewrite of the article in a few paragraphs
- "source": the name of the publishing outlet
- "youtubeUrl": a related YouTube link only if one appears in the text, otherwise ""
Keep the "id" exactly as given. Do not invent facts.
Respond with a JSON array of objects with the keys id, title, summary, content, source, youtubeUrl.`, language)
}

func buildPrompt(inputs []Input) string {
	var b strings.Builder
	b.WriteString("Articles:\n")
	for _, in := range inputs {
		fmt.Fprintf(&b, "\n[id %d]\nTitle: %s\nText: %s\n",
			in.ID, strings.TrimSpace(in.Title), scraper.Truncate(strings.TrimSpace(in.Context), maxContextRunes))
	}
	return b.String()
}

// SourceName derives an outlet name from a link's host.
func SourceName(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
