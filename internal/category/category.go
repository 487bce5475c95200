// Package category maps category codes and location contexts to search
// targets.
package category

import (
	"strings"

	"github.com/deusflow/newscrawler/internal/config"
	"github.com/deusflow/newscrawler/internal/model"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindLocal
	KindRegion
	KindNational
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRegion:
		return "region"
	case KindNational:
		return "national"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

const (
	localArticleCount    = 6
	nationalArticleCount = 8
	customArticleCount   = 5
	unknownArticleCount  = 5

	windowDay   = "d1"
	windowThree = "d3"
)

// defaultContexts are contexts that mean "no particular place".
var defaultContexts = map[string]bool{
	"":        true,
	"local":   true,
	"default": true,
	"本地":      true,
}

// IsDefaultContext reports whether ctx names no particular location.
func IsDefaultContext(ctx string) bool {
	return defaultContexts[strings.ToLower(strings.TrimSpace(ctx))]
}

// Resolve maps (category, context) to the effective category and context.
// LOCAL with a known location becomes a regional code; an unknown location
// stays LOCAL with the context kept as a literal place name. Every other
// category is returned unchanged.
func Resolve(cat, ctx string) (string, string) {
	cat = model.Normalize(cat)
	ctx = strings.TrimSpace(ctx)
	if cat != model.Local || IsDefaultContext(ctx) {
		return cat, ctx
	}

	lower := strings.ToLower(ctx)
	for _, r := range regions {
		for _, alias := range r.Aliases {
			if strings.Contains(lower, alias) {
				return r.Code, ctx
			}
		}
	}
	return model.Local, ctx
}

// Target is everything needed to search and filter one category run.
type Target struct {
	Category       string
	Context        string
	Kind           Kind
	Topic          string
	Keywords       []string
	SiteFilter     []string
	RegionKeywords []string
	ArticleCount   int
	TimeWindow     string
}

// City is the value stored on items of this run. Only LOCAL items carry one.
func (t Target) City() string {
	if t.Category == model.Local {
		return t.Context
	}
	return ""
}

// StrictContext reports whether candidates must mention the literal context.
func (t Target) StrictContext() bool {
	return t.Kind == KindLocal && t.Context != ""
}

// Query composes the search query: topic, an OR group of keywords and an
// OR group of site: filters.
func (t Target) Query() string {
	parts := []string{t.Topic}
	if g := orGroup(t.Keywords, quote); g != "" {
		parts = append(parts, g)
	}
	if g := orGroup(t.SiteFilter, func(s string) string { return "site:" + s }); g != "" {
		parts = append(parts, g)
	}
	return strings.Join(parts, " ")
}

func orGroup(items []string, format func(string) string) string {
	var terms []string
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			terms = append(terms, format(it))
		}
	}
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	default:
		return "(" + strings.Join(terms, " OR ") + ")"
	}
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// Build resolves (cat, ctx) and fills the query parameters from cfg,
// falling back to built-in defaults for anything cfg leaves unset.
// LOCAL without a context uses cfg.DefaultCity.
func Build(cfg *config.AppConfig, cat, ctx string) Target {
	if cfg == nil {
		cfg = config.DefaultAppConfig()
	}
	cat = model.Normalize(cat)
	if cat == model.Local && IsDefaultContext(ctx) {
		ctx = cfg.DefaultCity
	}
	effCat, effCtx := Resolve(cat, ctx)

	t := Target{Category: effCat, Context: effCtx}

	switch {
	case effCat == model.Local:
		t.Kind = KindLocal
		t.Topic = quote(effCtx) + " news"
		t.ArticleCount = localArticleCount
		t.TimeWindow = windowDay
	case model.IsRegional(effCat):
		r, _ := regionByCode(effCat)
		t.Kind = KindRegion
		t.Topic = orGroup(r.Places, quote) + " news"
		t.SiteFilter = append([]string(nil), r.Sites...)
		t.RegionKeywords = regionKeywords(r)
		t.ArticleCount = localArticleCount
		t.TimeWindow = windowDay
	case model.IsReserved(effCat):
		n := national[effCat]
		t.Kind = KindNational
		t.Topic = n.Topic
		t.Keywords = append([]string(nil), n.Keywords...)
		t.ArticleCount = nationalArticleCount
		t.TimeWindow = windowDay
	default:
		if cc, ok := cfg.Custom(effCat); ok {
			t.Kind = KindCustom
			t.Topic = firstNonEmpty(cc.Topic, cc.Name, cc.ID)
			t.Keywords = append([]string(nil), cc.Keywords...)
			t.ArticleCount = customArticleCount
			if cc.ArticleCount > 0 {
				t.ArticleCount = cc.ArticleCount
			}
			t.TimeWindow = firstNonEmpty(cc.TimeWindow, windowThree)
			return t
		}
		t.Kind = KindUnknown
		t.Topic = effCat
		t.ArticleCount = unknownArticleCount
		t.TimeWindow = windowDay
		return t
	}

	if o, ok := cfg.Categories[effCat]; ok {
		if o.Topic != "" {
			t.Topic = o.Topic
		}
		if len(o.Keywords) > 0 {
			t.Keywords = append([]string(nil), o.Keywords...)
		}
		if o.TimeWindow != "" {
			t.TimeWindow = o.TimeWindow
		}
		if o.ArticleCount > 0 {
			t.ArticleCount = o.ArticleCount
		}
	}
	return t
}

// regionKeywords returns every place name and alias of r, lowercased and
// deduplicated.
func regionKeywords(r region) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{r.Places, r.Aliases} {
		for _, k := range list {
			k = strings.ToLower(k)
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// Categories lists the scheduler order: canonical codes, then custom ids.
func Categories(cfg *config.AppConfig) []string {
	out := append([]string(nil), model.Canonical...)
	if cfg == nil {
		return out
	}
	for _, cc := range cfg.CustomCategories {
		out = append(out, cc.ID)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
