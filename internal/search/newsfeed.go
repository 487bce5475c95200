package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const defaultNewsFeedURL = "https://news.google.com/rss/search"

// NewsFeed searches a news RSS endpoint. It needs no credentials and backs
// up CustomSearch when quota runs out.
type NewsFeed struct {
	BaseURL  string
	Language string
	Region   string
	MaxItems int

	parser *gofeed.Parser
}

func NewNewsFeed(client *http.Client) *NewsFeed {
	parser := gofeed.NewParser()
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser.Client = client
	return &NewsFeed{
		BaseURL:  defaultNewsFeedURL,
		Language: "en-CA",
		Region:   "CA",
		MaxItems: 30,
		parser:   parser,
	}
}

func (n *NewsFeed) Search(ctx context.Context, query, window string) ([]Candidate, error) {
	u, err := url.Parse(n.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing feed url: %w", err)
	}

	q := strings.TrimSpace(query)
	if when := windowToWhen(window); when != "" {
		q += " when:" + when
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("hl", n.Language)
	params.Set("gl", n.Region)
	params.Set("ceid", n.Region+":"+strings.SplitN(n.Language, "-", 2)[0])
	u.RawQuery = params.Encode()

	feed, err := n.parser.ParseURLWithContext(u.String(), ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching news feed: %w", err)
	}

	var out []Candidate
	for _, item := range feed.Items {
		if n.MaxItems > 0 && len(out) >= n.MaxItems {
			break
		}
		if item.Link == "" || item.Title == "" {
			continue
		}
		c := Candidate{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Snippet: htmlText(item.Description),
		}
		if item.Image != nil {
			c.Thumbnail = item.Image.URL
		}
		for _, enc := range item.Enclosures {
			if c.Thumbnail == "" && strings.HasPrefix(enc.Type, "image/") {
				c.Thumbnail = enc.URL
			}
		}
		out = append(out, c)
	}
	slog.Debug("news feed search", "query", q, "results", len(out))
	return out, nil
}

// windowToWhen converts a recency window like "d1" or "w1" into the feed's
// "when:" syntax.
func windowToWhen(window string) string {
	if len(window) < 2 {
		return ""
	}
	n, err := strconv.Atoi(window[1:])
	if err != nil || n <= 0 {
		return ""
	}
	switch window[0] {
	case 'd':
		return fmt.Sprintf("%dd", n)
	case 'w':
		return fmt.Sprintf("%dd", n*7)
	case 'm':
		return fmt.Sprintf("%dd", n*30)
	case 'y':
		return fmt.Sprintf("%dy", n)
	}
	return ""
}

// htmlText flattens an HTML fragment into plain text.
func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
