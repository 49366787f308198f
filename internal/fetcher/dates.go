package fetcher

import (
	"strings"
	"time"
)

// Feed dates come in two loosely observed grammars: RFC 822-ish strings in
// RSS and ISO 8601 variants in Atom. Both parsers are best-effort; anything
// that does not match returns the zero time, which the rest of the system
// treats as "unset".

// parseRSSDate parses the RSS flavor: "[weekday,] day month year time zone",
// exactly six space-separated tokens. A single-digit day is padded, and a
// zone token longer than four characters gets a colon inserted before its
// last two digits so that "+0000" and "+00:00" style variants both land on
// the same layout.
func parseRSSDate(s string) time.Time {
	parts := strings.Split(s, " ")
	if len(parts) != 6 {
		return time.Time{}
	}

	day := parts[1]
	if len(day) == 1 {
		day = "0" + day
	}

	zone := parts[5]
	if len(zone) > 4 {
		zone = zone[:len(zone)-2] + ":" + zone[len(zone)-2:]
	}

	assembled := day + " " + parts[2] + " " + parts[3] + " " + parts[4] + " " + zone
	t, err := time.Parse("02 Jan 2006 15:04:05 -07:00", assembled)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isoLayouts covers extended and basic separators, optional seconds, and
// three zone designator widths. Tried in order; first exact match wins.
var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"20060102T150405Z0700",
	"20060102T150405Z07",
	"20060102T1504Z0700",
	"20060102T1504Z07",
}

func parseISODate(s string) time.Time {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
