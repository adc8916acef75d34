package service

import (
	"strings"

	"marketpipe/internal/client/polymarket/gamma"
)

// MatchesKeywords reports whether any keyword is a case-insensitive substring
// of the text. An empty keyword list matches nothing.
func MatchesKeywords(text string, keywords []string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// FilterMarkets keeps the listings whose question or description matches the
// keyword set. Input order is preserved.
func FilterMarkets(items []gamma.Market, keywords []string) []gamma.Market {
	out := make([]gamma.Market, 0, len(items))
	for _, item := range items {
		if MatchesKeywords(item.Question, keywords) || MatchesKeywords(item.Description, keywords) {
			out = append(out, item)
		}
	}
	return out
}
