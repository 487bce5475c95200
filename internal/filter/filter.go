// Package filter drops search candidates that are not worth summarizing.
package filter

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/deusflow/newscrawler/internal/category"
	"github.com/deusflow/newscrawler/internal/search"
)

// minDeepLinkLength is the path or query length a link must exceed to be
// treated as an article rather than a landing page.
const minDeepLinkLength = 10

// genericPaths are whole paths that always denote a landing page.
var genericPaths = map[string]bool{
	"news": true, "home": true, "index": true, "index.html": true, "index.htm": true,
	"index.php": true, "default.aspx": true, "latest": true, "live": true,
	"video": true, "videos": true, "local": true, "world": true, "canada": true,
	"politics": true, "business": true, "sports": true, "weather": true,
	"archive": true, "archives": true, "search": true, "news/local": true,
	"news/canada": true, "news/world": true, "news/latest": true,
}

// listingPrefixes mark taxonomy pages when the path has at most two segments.
var listingPrefixes = map[string]bool{
	"category": true, "categories": true, "tag": true, "tags": true,
	"topic": true, "topics": true, "section": true, "sections": true,
}

// boilerplatePhrases reject a title wherever they appear.
var boilerplatePhrases = []string{
	// English
	"live stream", "livestream", "watch live", "live updates", "live blog",
	"breaking news", "latest news", "top stories", "news headlines",
	"press release", "media release", "investor relations", "about us", "contact us",
	"our team", "meet the team", "station profile", "tv schedule", "radio schedule",
	"news archive", "tag archive", "category archive",
	"page not found", "subscribe to", "sign up for",
	// Chinese
	"现场直播", "新闻联播", "头条新闻", "最新新闻", "新闻稿",
	"关于我们", "联系我们", "公司简介", "电台介绍",
}

// boilerplateLabels are generic words that also occur in real headlines.
// They only reject a title when a title segment is the label or ends with it.
var boilerplateLabels = []string{
	"archive", "archives",
	"直播", "标签", "分类", "归档", "新闻中心", "节目表",
}

// Apply runs the checks in order: deep link, boilerplate title, literal
// location, then region keywords.
func Apply(cands []search.Candidate, t category.Target) []search.Candidate {
	stages := []struct {
		name string
		keep func(search.Candidate) bool
	}{
		{"deep_link", func(c search.Candidate) bool { return IsDeepLink(c.Link) }},
		{"boilerplate", func(c search.Candidate) bool { return !IsBoilerplateTitle(c.Title) }},
		{"location", func(c search.Candidate) bool { return !t.StrictContext() || mentions(c, t.Context) }},
		{"region", func(c search.Candidate) bool {
			return len(t.RegionKeywords) == 0 || containsAny(c.Title+" "+c.Snippet, t.RegionKeywords)
		}},
	}

	out := cands
	for _, st := range stages {
		kept := out[:0:0]
		for _, c := range out {
			if st.keep(c) {
				kept = append(kept, c)
				continue
			}
			slog.Debug("candidate rejected", "stage", st.name, "category", t.Category, "link", c.Link)
		}
		if rejected := len(out) - len(kept); rejected > 0 {
			slog.Info("filter stage", "stage", st.name, "category", t.Category, "rejected", rejected, "remaining", len(kept))
		}
		out = kept
		if len(out) == 0 {
			break
		}
	}
	return out
}

// IsDeepLink reports whether link looks like an article page.
func IsDeepLink(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	path := strings.ToLower(strings.Trim(u.Path, "/"))
	if path == "" && u.RawQuery == "" {
		return false
	}
	if genericPaths[path] {
		return false
	}
	segments := strings.Split(path, "/")
	if listingPrefixes[segments[0]] && len(segments) <= 2 {
		return false
	}
	return len(path) > minDeepLinkLength || len(u.RawQuery) > minDeepLinkLength
}

func IsBoilerplateTitle(title string) bool {
	if containsAny(title, boilerplatePhrases) {
		return true
	}
	for _, seg := range titleSegments(title) {
		for _, label := range boilerplateLabels {
			if seg == label || strings.HasSuffix(seg, " "+label) {
				return true
			}
			if !isASCIIWord(label) && strings.HasSuffix(seg, label) {
				return true
			}
		}
	}
	return false
}

// titleSegments splits a title on the separators sites put between a page
// name and the site name.
func titleSegments(title string) []string {
	parts := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		switch r {
		case '|', ':', '-', '–', '—', '·', '｜', '：', '丨', '_':
			return true
		}
		return false
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mentions(c search.Candidate, place string) bool {
	text := strings.ToLower(c.Title + " " + c.Snippet)
	return strings.Contains(text, strings.ToLower(strings.TrimSpace(place)))
}
