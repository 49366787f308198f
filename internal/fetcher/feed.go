package fetcher

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Feed is a normalized feed produced fresh on every fetch. Only data derived
// from it (watermarks, recency identifiers) is ever persisted.
type Feed struct {
	Title         string
	Link          string
	Description   string
	PubDate       time.Time
	LastBuildDate time.Time
	Items         []Item
}

// Item is a single entry of a normalized feed.
type Item struct {
	Title        string
	Link         string
	Description  string
	PubDate      time.Time
	GUID         string
	EnclosureURL string
}

// ItemID returns the identifier used for duplicate suppression.
// The item link is preferred; items without one fall back to a digest of
// title and description.
func ItemID(item Item) string {
	if item.Link != "" {
		return item.Link
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Description))
	return fmt.Sprintf("sha256:%x", h[:16])
}
