// Package model holds the types shared by the crawler pipeline and its stores.
package model

import (
	"strings"
	"time"
)

// Canonical category codes.
const (
	Local         = "LOCAL"
	Canada        = "CANADA"
	USA           = "USA"
	China         = "CHINA"
	International = "INTERNATIONAL"
)

// Regional category codes reached through LOCAL + a location context.
const (
	GTA       = "GTA"
	Vancouver = "VANCOUVER"
	Montreal  = "MONTREAL"
	Ottawa    = "OTTAWA"
	Calgary   = "CALGARY"
	Edmonton  = "EDMONTON"
	Waterloo  = "WATERLOO"
)

// Canonical lists the canonical codes in scheduler order.
var Canonical = []string{Local, Canada, USA, China, International}

// Regional lists the fixed regional codes.
var Regional = []string{GTA, Vancouver, Montreal, Ottawa, Calgary, Edmonton, Waterloo}

// IsReserved reports whether code is a canonical or regional code. Custom
// categories may not use these ids.
func IsReserved(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Canonical {
		if c == code {
			return true
		}
	}
	return IsRegional(code)
}

// Normalize upper-cases reserved codes given in any case. Custom ids are
// returned trimmed but otherwise unchanged since they match exactly.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if up := strings.ToUpper(code); IsReserved(up) {
		return up
	}
	return code
}

func IsRegional(code string) bool {
	for _, c := range Regional {
		if c == code {
			return true
		}
	}
	return false
}

// NewsItem is the persisted unit. Timestamp is the ingestion time and drives
// both ordering and retention. City is only set for LOCAL items.
type NewsItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Timestamp  time.Time `json:"timestamp"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Source     string    `json:"source"`
	SourceURL  string    `json:"sourceUrl,omitempty"`
	YoutubeURL string    `json:"youtubeUrl,omitempty"`
	City       string    `json:"city,omitempty"`
}
