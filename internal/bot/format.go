package bot

import (
	"fmt"
	"html"
	"strings"

	"rssmon/internal/fetcher"
	"rssmon/internal/model"
)

// FormatNotification formats a feed item as an HTML link-formatted message.
func FormatNotification(feedTitle string, item fetcher.Item) string {
	title := item.Title
	if title == "" {
		title = item.Link
	}

	var b strings.Builder
	if feedTitle != "" {
		fmt.Fprintf(&b, "[%s]\n\n", html.EscapeString(feedTitle))
	}
	if item.Link != "" {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, item.Link, html.EscapeString(title))
	} else {
		b.WriteString(html.EscapeString(title))
	}
	if item.Description != "" {
		desc := item.Description
		if len(desc) > 300 {
			desc = desc[:300] + "..."
		}
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(desc))
	}
	return b.String()
}

// FormatSubscriptionList renders a user's subscriptions with their
// positional indices, in insertion order.
func FormatSubscriptionList(name string, l *model.SubscriptionList) string {
	if len(l.Entries) == 0 {
		return fmt.Sprintf("%s, you have no subscriptions yet. Use /add <url> to add one.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, here are your subscriptions:\n", name)
	for i, e := range l.Entries {
		fmt.Fprintf(&b, "\n%d: %s", i, e.URL)
		if len(e.Keywords) > 0 {
			fmt.Fprintf(&b, " %s", strings.Join(e.Keywords, " "))
		}
	}
	return b.String()
}

func helpText(name string) string {
	return fmt.Sprintf(`Hello %s, here are the commands I can understand:

/add <rss_url> [keywords]
    - subscribe to the rss feed, with optional keywords to filter by

/list
    - list current subscriptions

/del <number>
    - delete subscription by the number

/words <number> [keywords]
    - replace the keyword list for a subscription, keywords can be empty
/words add <number> <word>
    - add one keyword to a subscription
/words del <number> <word>
    - remove one keyword from a subscription

/mute
    - mute everything, you would keep receiving updates but without any notifications

/unmute
    - unmute everything

/hours <from> <to>
    - only alert between those hours of the day (delivery continues silently otherwise)

/stop
    - stop the bot completely, do any edit to un-stop it

GDPR PRIVACY NOTICE:
There is no privacy. Consider anything you send to this bot as public.`, name)
}
