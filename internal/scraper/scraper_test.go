package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscrawler/internal/cache"
)

const articleHTML = `<html><head>
<title>Site title</title>
<meta property="og:title" content="Council approves transit line">
<meta property="og:image" content="https://img.test/og.jpg">
<meta property="og:description" content="The vote passed 20-4.">
<script>var tracking = "this is a long script body that must be ignored";</script>
</head><body>
<nav><p>Home | News | Sports | Weather | Contact the newsroom</p></nav>
<article>
  <h2>Council approves the new transit line</h2>
  <p>City council voted on Tuesday to approve a new transit line across the city.</p>
  <p>Short.</p>
  <ul><li>The line will have fourteen stations along its route.</li></ul>
  <div class="related-stories"><p>Another story that should never be included here.</p></div>
  <div id="comments"><p>A reader comment that is definitely long enough.</p></div>
</article>
</body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract_ArticleContainer(t *testing.T) {
	page := Extract(parse(t, articleHTML))

	assert.Equal(t, "Council approves transit line", page.Title)
	assert.Equal(t, "https://img.test/og.jpg", page.OGImage)
	assert.Equal(t, "The vote passed 20-4.", page.OGDescription)

	want := "## Council approves the new transit line\n\n" +
		"City council voted on Tuesday to approve a new transit line across the city.\n\n" +
		"• The line will have fourteen stations along its route."
	assert.Equal(t, want, page.Text)
}

func TestExtract_FallbackChain(t *testing.T) {
	html := `<html><body>
<article><p>tiny</p></article>
<div class="post-content"><p>This paragraph lives in a post-content container.</p></div>
</body></html>`
	page := Extract(parse(t, html))
	assert.Equal(t, "This paragraph lives in a post-content container.", page.Text)
}

func TestExtract_BodyFallback(t *testing.T) {
	html := `<html><body><div><p>Plain body paragraph with enough characters.</p></div></body></html>`
	page := Extract(parse(t, html))
	assert.Equal(t, "Plain body paragraph with enough characters.", page.Text)
}

func TestExtract_BodyWrappedInForm(t *testing.T) {
	html := `<html><body><form id="aspnetForm" method="post">
<form role="search"><p>Search the whole site for anything you like.</p></form>
<div class="article-body"><p>The article text sits inside the page-wide form element.</p></div>
<button>Subscribe to our daily newsletter today</button>
</form></body></html>`
	page := Extract(parse(t, html))
	assert.Equal(t, "The article text sits inside the page-wide form element.", page.Text)
}

func TestFetcher_Fetch(t *testing.T) {
	var hits int32
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	c := cache.New[*Page](time.Hour)
	defer c.Close()
	f := NewFetcher(srv.Client(), c, time.Hour)

	page, err := f.Fetch(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/story", page.URL)
	assert.Contains(t, gotUA.Load(), "Mozilla/5.0")

	_, err = f.Fetch(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch is served from cache")
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), nil, 0)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetcher_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), nil, 0).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))

	text := "First sentence here. Second sentence is here. Third one runs past the limit"
	got := Truncate(text, 50)
	assert.Equal(t, "First sentence here. Second sentence is here.", got)

	noStops := strings.Repeat("a", 30)
	assert.Equal(t, strings.Repeat("a", 10)+"...", Truncate(noStops, 10))

	zh := "第一句话。第二句话很长很长。第三句"
	assert.Equal(t, "第一句话。第二句话很长很长。", Truncate(zh, 16))
}
