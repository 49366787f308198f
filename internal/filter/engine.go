// Package filter implements the keyword matching engine for feed items.
package filter

import "strings"

// MatchKeywords reports whether an item with the given title and description
// matches the keyword set. Keywords are case-insensitive substring terms
// matched against either field; an empty set matches everything.
func MatchKeywords(title, description string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	title = strings.ToLower(title)
	description = strings.ToLower(description)

	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) || strings.Contains(description, kw) {
			return true
		}
	}
	return false
}
