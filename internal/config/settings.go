package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/newscrawler/internal/model"
)

// ErrCategoryCollision is returned when a custom category reuses a canonical code.
var ErrCategoryCollision = errors.New("custom category id collides with a canonical code")

// AppConfig is the settings object read by the pipeline on every run.
type AppConfig struct {
	Language         string                      `yaml:"language"`
	DefaultCity      string                      `yaml:"default_city"`
	RefreshMinutes   map[string]int              `yaml:"refresh_minutes"`
	RetentionLimits  map[string]int              `yaml:"retention_limits"`
	Categories       map[string]CategorySettings `yaml:"categories"`
	CustomCategories []CustomCategory            `yaml:"custom_categories"`
	Backfill         BackfillSettings            `yaml:"backfill"`
}

// CategorySettings overrides the query parameters of a canonical category.
type CategorySettings struct {
	Topic        string   `yaml:"topic"`
	Keywords     []string `yaml:"keywords"`
	TimeWindow   string   `yaml:"time_window"`
	ArticleCount int      `yaml:"article_count"`
}

// CustomCategory is a user-defined category.
type CustomCategory struct {
	ID                     string   `yaml:"id"`
	Name                   string   `yaml:"name"`
	Topic                  string   `yaml:"topic"`
	Keywords               []string `yaml:"keywords"`
	TimeWindow             string   `yaml:"time_window"`
	ArticleCount           int      `yaml:"article_count"`
	RetentionLimit         int      `yaml:"retention_limit"`
	RefreshIntervalMinutes int      `yaml:"refresh_interval_minutes"`
}

type BackfillSettings struct {
	Cities     []string      `yaml:"cities"`
	Categories []string      `yaml:"categories"`
	Delay      time.Duration `yaml:"delay"`
}

const (
	DefaultLanguage       = "Simplified Chinese"
	DefaultCity           = "Toronto"
	DefaultRetentionLimit = 50
	DefaultBackfillDelay  = 30 * time.Second

	defaultLocalRefreshMinutes    = 60
	defaultNationalRefreshMinutes = 120
	defaultCustomRefreshMinutes   = 240
)

// DefaultAppConfig returns an AppConfig populated with every default.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Language:    DefaultLanguage,
		DefaultCity: DefaultCity,
		RefreshMinutes: map[string]int{
			model.Local:         defaultLocalRefreshMinutes,
			model.Canada:        defaultNationalRefreshMinutes,
			model.USA:           defaultNationalRefreshMinutes,
			model.China:         defaultNationalRefreshMinutes,
			model.International: defaultNationalRefreshMinutes,
		},
		RetentionLimits:  map[string]int{},
		Categories:       map[string]CategorySettings{},
		CustomCategories: []CustomCategory{},
		Backfill: BackfillSettings{
			Cities:     []string{"Toronto", "Vancouver", "Montreal", "Ottawa", "Calgary", "Edmonton", "Waterloo"},
			Categories: []string{model.Canada, model.USA, model.China, model.International},
			Delay:      DefaultBackfillDelay,
		},
	}
}

// applyDefaults fills every zero field from DefaultAppConfig, so files
// written by older versions pick up new settings.
func (c *AppConfig) applyDefaults() {
	def := DefaultAppConfig()

	if strings.TrimSpace(c.Language) == "" {
		c.Language = def.Language
	}
	if strings.TrimSpace(c.DefaultCity) == "" {
		c.DefaultCity = def.DefaultCity
	}
	if c.RefreshMinutes == nil {
		c.RefreshMinutes = map[string]int{}
	}
	for code, minutes := range def.RefreshMinutes {
		if c.RefreshMinutes[code] <= 0 {
			c.RefreshMinutes[code] = minutes
		}
	}
	if c.RetentionLimits == nil {
		c.RetentionLimits = map[string]int{}
	}
	if c.Categories == nil {
		c.Categories = map[string]CategorySettings{}
	}
	if c.CustomCategories == nil {
		c.CustomCategories = []CustomCategory{}
	}
	if len(c.Backfill.Cities) == 0 {
		c.Backfill.Cities = def.Backfill.Cities
	}
	if len(c.Backfill.Categories) == 0 {
		c.Backfill.Categories = def.Backfill.Categories
	}
	for i, code := range c.Backfill.Categories {
		c.Backfill.Categories[i] = model.Normalize(code)
	}
	if c.Backfill.Delay <= 0 {
		c.Backfill.Delay = def.Backfill.Delay
	}
}

// dropCollisions removes custom categories that reuse reserved codes or
// duplicate an earlier id. It returns the ids that were dropped.
func (c *AppConfig) dropCollisions() []string {
	var dropped []string
	seen := map[string]bool{}
	kept := c.CustomCategories[:0]
	for _, cc := range c.CustomCategories {
		id := strings.TrimSpace(cc.ID)
		if id == "" || model.IsReserved(id) || seen[id] {
			dropped = append(dropped, cc.ID)
			continue
		}
		seen[id] = true
		cc.ID = id
		kept = append(kept, cc)
	}
	c.CustomCategories = kept
	return dropped
}

// Validate checks invariants that Save refuses to persist.
func (c *AppConfig) Validate() error {
	seen := map[string]bool{}
	for _, cc := range c.CustomCategories {
		id := strings.TrimSpace(cc.ID)
		if id == "" {
			return fmt.Errorf("custom category %q: id is required", cc.Name)
		}
		if model.IsReserved(id) {
			return fmt.Errorf("custom category %q: %w", id, ErrCategoryCollision)
		}
		if seen[id] {
			return fmt.Errorf("custom category %q: duplicate id", id)
		}
		seen[id] = true
	}
	return nil
}

// Custom returns the custom category with the given id.
func (c *AppConfig) Custom(id string) (CustomCategory, bool) {
	for _, cc := range c.CustomCategories {
		if cc.ID == id {
			return cc, true
		}
	}
	return CustomCategory{}, false
}

// RefreshInterval returns the refresh interval for an effective category code.
// Regional codes share the LOCAL interval unless they have their own entry.
func (c *AppConfig) RefreshInterval(code string) time.Duration {
	if m := c.RefreshMinutes[code]; m > 0 {
		return time.Duration(m) * time.Minute
	}
	if cc, ok := c.Custom(code); ok {
		if cc.RefreshIntervalMinutes > 0 {
			return time.Duration(cc.RefreshIntervalMinutes) * time.Minute
		}
		return defaultCustomRefreshMinutes * time.Minute
	}
	switch {
	case code == model.Local || model.IsRegional(code):
		if m := c.RefreshMinutes[model.Local]; m > 0 {
			return time.Duration(m) * time.Minute
		}
		return defaultLocalRefreshMinutes * time.Minute
	case model.IsReserved(code):
		return defaultNationalRefreshMinutes * time.Minute
	default:
		return defaultCustomRefreshMinutes * time.Minute
	}
}

// RetentionLimit returns the count ceiling for a category.
func (c *AppConfig) RetentionLimit(code string) int {
	if n := c.RetentionLimits[code]; n > 0 {
		return n
	}
	if cc, ok := c.Custom(code); ok && cc.RetentionLimit > 0 {
		return cc.RetentionLimit
	}
	return DefaultRetentionLimit
}

// Clone returns a deep copy so callers can mutate it before Save.
func (c *AppConfig) Clone() *AppConfig {
	out := *c
	out.RefreshMinutes = make(map[string]int, len(c.RefreshMinutes))
	for k, v := range c.RefreshMinutes {
		out.RefreshMinutes[k] = v
	}
	out.RetentionLimits = make(map[string]int, len(c.RetentionLimits))
	for k, v := range c.RetentionLimits {
		out.RetentionLimits[k] = v
	}
	out.Categories = make(map[string]CategorySettings, len(c.Categories))
	for k, v := range c.Categories {
		v.Keywords = append([]string(nil), v.Keywords...)
		out.Categories[k] = v
	}
	out.CustomCategories = make([]CustomCategory, len(c.CustomCategories))
	for i, cc := range c.CustomCategories {
		cc.Keywords = append([]string(nil), cc.Keywords...)
		out.CustomCategories[i] = cc
	}
	out.Backfill.Cities = append([]string(nil), c.Backfill.Cities...)
	out.Backfill.Categories = append([]string(nil), c.Backfill.Categories...)
	return &out
}
