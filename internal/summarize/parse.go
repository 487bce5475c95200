package summarize

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// CleanJSON strips code fences and isolates the outermost JSON array. It
// returns "" when there is no bracket pair.
func CleanJSON(s string) string {
	s = stripCodeFences(s)
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseResults decodes a JSON array of results element by element. Elements
// without an integer id, a non-empty string title or a string summary are
// dropped. A syntax error or truncation stops decoding but keeps every
// element read before it.
func ParseResults(s string) []Result {
	if s == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		slog.Warn("model output is not a JSON array")
		return nil
	}

	var out []Result
	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			slog.Warn("unparseable model output, keeping earlier elements", "index", i, "kept", len(out), "err", err)
			break
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			slog.Debug("dropping non-object summary element", "index", i)
			continue
		}
		r, ok := resultFromMap(m)
		if !ok {
			slog.Debug("dropping invalid summary element", "index", i)
			continue
		}
		out = append(out, r)
	}
	return out
}

func resultFromMap(m map[string]any) (Result, bool) {
	id, ok := intField(m["id"])
	if !ok {
		return Result{}, false
	}
	title, ok := m["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return Result{}, false
	}
	summary, ok := m["summary"].(string)
	if !ok {
		return Result{}, false
	}

	r := Result{
		ID:      id,
		Title:   strings.TrimSpace(title),
		Summary: strings.TrimSpace(summary),
	}
	r.Content, _ = m["content"].(string)
	r.Source, _ = m["source"].(string)
	r.YoutubeURL, _ = m["youtubeUrl"].(string)
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		r.Content = r.Summary
	}
	r.Source = strings.TrimSpace(r.Source)
	r.YoutubeURL = strings.TrimSpace(r.YoutubeURL)
	return r, true
}

func intField(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
