package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newscrawler/internal/cache"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 5 << 20
	minFragmentRunes = 20
)

// Page is the readable part of an article.
type Page struct {
	URL           string
	Title         string
	Text          string
	OGImage       string
	OGDescription string
}

// Fetcher retrieves article pages and extracts their text.
type Fetcher struct {
	Client    *http.Client
	UserAgent string

	cache *cache.Cache[*Page]
	ttl   time.Duration
}

// NewFetcher returns a Fetcher. A nil cache disables memoisation.
func NewFetcher(client *http.Client, c *cache.Cache[*Page], ttl time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		Client:    client,
		UserAgent: defaultUserAgent,
		cache:     c,
		ttl:       ttl,
	}
}

// Fetch downloads url and extracts its content. An error means there is
// nothing usable; callers fall back to the search snippet.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	key := cache.Key("page", url)
	if f.cache != nil {
		if p, ok := f.cache.Get(key); ok {
			return p, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9,zh-CN;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	page := Extract(doc)
	page.URL = url
	if page.Text == "" {
		return nil, fmt.Errorf("can't get content")
	}

	if f.cache != nil && f.ttl > 0 {
		f.cache.Set(key, page, f.ttl)
	}
	slog.Debug("page fetched", "url", url, "runes", utf8.RuneCountInString(page.Text))
	return page, nil
}

// Extract reads title, metadata and body text from a parsed document.
func Extract(doc *goquery.Document) *Page {
	page := &Page{
		Title:         extractTitle(doc),
		OGImage:       metaContent(doc, "og:image"),
		OGDescription: metaContent(doc, "og:description"),
	}
	removeNoise(doc)
	page.Text = extractText(doc)
	return page
}

// noiseSelectors are removed before any container is chosen. Whole forms
// stay: some sites wrap the entire body in one.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"button", "select", "textarea", "form[role='search']",
	"nav", "header", "footer", "aside",
	".ad", ".ads", ".advert", ".advertisement", "[class*='sponsor']",
	".menu", "[role='navigation']", "[class*='cookie']", "[id*='cookie']",
	".newsletter", ".paywall",
}

// containerStrategies are tried in order; the first with text wins.
var containerStrategies = []string{
	"article",
	"main",
	".post-content",
	".article-body",
	"body",
}

// skipAncestors mark subtrees whose text is not part of the article.
var skipAncestors = []string{
	"[class*='related']", "[id*='related']",
	"[class*='comment']", "[id*='comment']",
	"[class*='share']", "[class*='social']",
}

func removeNoise(doc *goquery.Document) {
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
}

func extractText(doc *goquery.Document) string {
	for _, sel := range containerStrategies {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if text := walkContainer(container); text != "" {
			return text
		}
	}
	return ""
}

func walkContainer(container *goquery.Selection) string {
	skip := strings.Join(skipAncestors, ", ")
	var parts []string

	container.Find("h1, h2, h3, h4, p, li").Each(func(i int, s *goquery.Selection) {
		if s.Is(skip) || s.ParentsUntilSelection(container).Filter(skip).Length() > 0 {
			return
		}
		// Paragraphs inside list items are picked up by the li itself.
		if goquery.NodeName(s) == "p" && s.ParentsFiltered("li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if utf8.RuneCountInString(text) < minFragmentRunes {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3", "h4":
			parts = append(parts, "## "+text)
		case "li":
			parts = append(parts, "• "+text)
		default:
			parts = append(parts, text)
		}
	})

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	if t := metaContent(doc, "og:title"); t != "" {
		return t
	}
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
		".entry-title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}

	return ""
}

func metaContent(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf("meta[property='%s'], meta[name='%s']", property, property)
	v, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(v)
}

// Truncate limits text to maxRunes, cutting at the last sentence end when one
// falls in the second half of the allowance.
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}

	cut := string(runes[:maxRunes])
	best := -1
	for _, end := range []string{". ", "! ", "? ", "。", "！", "？", ".\n"} {
		i := strings.LastIndex(cut, end)
		if i < 0 {
			continue
		}
		if e := i + len(strings.TrimRight(end, " \n")); e > best {
			best = e
		}
	}
	if best > 0 && utf8.RuneCountInString(cut[:best]) > maxRunes/2 {
		return strings.TrimSpace(cut[:best])
	}
	return strings.TrimSpace(cut) + "..."
}
