package filter

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

var (
	wordRegexMu sync.Mutex
	wordRegex   = map[string]*regexp.Regexp{}
)

// containsAny distinguishes phrases and short words (avoids "ai" matching "said").
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		// Phrase -> substring match
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		// Short ASCII tokens (<=3) -> whole word match
		if utf8.RuneCountInString(k) <= 3 && isASCIIWord(k) {
			if wordPattern(k).MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func wordPattern(k string) *regexp.Regexp {
	wordRegexMu.Lock()
	defer wordRegexMu.Unlock()
	re, ok := wordRegex[k]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
		wordRegex[k] = re
	}
	return re
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
