package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const resultsPerPage = 10

// CustomSearch queries a Programmable Search Engine.
type CustomSearch struct {
	svc      *customsearch.Service
	engineID string
	maxPages int
}

// NewCustomSearch returns nil when the key or engine id is missing, so the
// caller can leave it out of a Chain.
func NewCustomSearch(ctx context.Context, apiKey, engineID string, maxPages int, opts ...option.ClientOption) (*CustomSearch, error) {
	if apiKey == "" || engineID == "" {
		return nil, nil
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating custom search client: %w", err)
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &CustomSearch{svc: svc, engineID: engineID, maxPages: maxPages}, nil
}

func (s *CustomSearch) Search(ctx context.Context, query, window string) ([]Candidate, error) {
	if s == nil || s.svc == nil {
		return nil, nil
	}

	var out []Candidate
	for page := 0; page < s.maxPages; page++ {
		call := s.svc.Cse.List().
			Cx(s.engineID).
			Q(query).
			Num(resultsPerPage).
			Start(int64(page*resultsPerPage + 1)).
			Context(ctx)
		if window != "" {
			call = call.DateRestrict(window)
		}

		res, err := call.Do()
		if err != nil {
			if isQuotaOrAuth(err) {
				slog.Warn("custom search unavailable", "err", err)
				return out, nil
			}
			if len(out) > 0 {
				slog.Warn("custom search page failed, keeping earlier pages", "page", page, "err", err)
				return out, nil
			}
			return nil, fmt.Errorf("custom search: %w", err)
		}

		for _, item := range res.Items {
			out = append(out, candidateFromResult(item))
		}
		if len(res.Items) < resultsPerPage {
			break
		}
	}
	return out, nil
}

func isQuotaOrAuth(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusTooManyRequests, http.StatusForbidden, http.StatusUnauthorized:
		return true
	}
	return false
}

func candidateFromResult(item *customsearch.Result) Candidate {
	c := Candidate{
		Title:   item.Title,
		Link:    item.Link,
		Snippet: item.Snippet,
	}
	if len(item.Pagemap) == 0 {
		return c
	}
	pm, err := decodePagemap(item.Pagemap)
	if err != nil {
		return c
	}
	c.Thumbnail = pagemapString(pm, "cse_thumbnail", "src")
	c.ImageHint = pagemapString(pm, "metatags", "og:image")
	c.Description = pagemapString(pm, "metatags", "og:description")
	return c
}

// pagemapString reads the first value of key in the named pagemap object list.
// Pagemap is loosely typed JSON.
func pagemapString(m map[string]any, object, key string) string {
	list, ok := m[object].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	entry, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	v, _ := entry[key].(string)
	return v
}

func decodePagemap(pm googleapi.RawMessage) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(pm, &m); err != nil {
		return nil, err
	}
	return m, nil
}
