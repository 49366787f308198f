// Package fetcher downloads feeds and parses them into normalized records.
// It is deliberately tolerant: feeds in the wild disagree on schemas and
// date formats, so extraction is best-effort and malformed pieces are
// dropped rather than failing the whole feed.
package fetcher

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

type rssDoc struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	PubDate       string    `xml:"pubDate"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       *string `xml:"title"`
	Description *string `xml:"description"`
	Link        string  `xml:"link"`
	PubDate     string  `xml:"pubDate"`
	GUID        string  `xml:"guid"`
	Enclosure   struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

type atomDoc struct {
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle"`
	Updated  string      `xml:"updated"`
	Links    []atomLink  `xml:"link"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     *string    `xml:"title"`
	Content   *string    `xml:"content"`
	Published string     `xml:"published"`
	ID        string     `xml:"id"`
	Links     []atomLink `xml:"link"`
}

// Parse converts raw feed bytes into a normalized feed. The root element
// decides the schema: <rss> for RSS 2.0, <feed> for Atom. Anything else,
// including malformed XML, yields an error and no feed.
func Parse(data []byte) (*Feed, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("sniff root element: %w", err)
	}

	switch root {
	case "rss":
		return parseRSS(data)
	case "feed":
		return parseAtom(data)
	default:
		return nil, fmt.Errorf("unrecognized feed root element %q", root)
	}
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("document has no elements")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func parseRSS(data []byte) (*Feed, error) {
	var doc rssDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	feed := &Feed{
		Title:         doc.Channel.Title,
		Link:          doc.Channel.Link,
		Description:   doc.Channel.Description,
		PubDate:       parseRSSDate(doc.Channel.PubDate),
		LastBuildDate: parseRSSDate(doc.Channel.LastBuildDate),
	}

	for _, it := range doc.Channel.Items {
		// An item with neither title nor description is malformed;
		// drop it and keep the rest of the feed.
		if it.Title == nil && it.Description == nil {
			continue
		}
		feed.Items = append(feed.Items, Item{
			Title:        strOrEmpty(it.Title),
			Description:  strOrEmpty(it.Description),
			Link:         it.Link,
			PubDate:      parseRSSDate(it.PubDate),
			GUID:         it.GUID,
			EnclosureURL: it.Enclosure.URL,
		})
	}

	return feed, nil
}

func parseAtom(data []byte) (*Feed, error) {
	var doc atomDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode atom: %w", err)
	}

	updated := parseISODate(doc.Updated)
	feed := &Feed{
		Title:         doc.Title,
		Link:          pickLink(doc.Links),
		Description:   doc.Subtitle,
		PubDate:       updated,
		LastBuildDate: updated,
	}

	for _, e := range doc.Entries {
		if e.Title == nil && e.Content == nil {
			continue
		}
		link := pickLink(e.Links)
		feed.Items = append(feed.Items, Item{
			Title:       strOrEmpty(e.Title),
			Description: strOrEmpty(e.Content),
			Link:        link,
			PubDate:     parseISODate(e.Published),
			GUID:        e.ID,
			// Atom has no enclosure element worth relying on; point at
			// the entry itself.
			EnclosureURL: link,
		})
	}

	return feed, nil
}

// pickLink prefers the alternate (or untyped) link, falling back to the
// first one present.
func pickLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
