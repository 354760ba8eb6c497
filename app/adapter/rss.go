package adapter

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// RSSAdapter ingests breach-notification feeds. Several regulators publish
// new notices as RSS/Atom; each item becomes one raw row in the generic
// triple shape plus the notice link.
type RSSAdapter struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
}

func NewRSSAdapter(fetcher *Fetcher) *RSSAdapter {
	return &RSSAdapter{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Type() string {
	return "rss"
}

func (a *RSSAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	data, err := a.fetcher.Get(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := a.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	rows := make([]normalize.RawRow, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		noticeDate := ""
		if item.PublishedParsed != nil {
			noticeDate = item.PublishedParsed.UTC().Format("2006-01-02")
		} else if formatted, ok := normalize.FormatDate(item.Published); ok {
			noticeDate = formatted
		}

		rows = append(rows, normalize.RawRow{
			"notice_date": noticeDate,
			"entity":      item.Title,
			"records":     "",
			"notice_url":  item.Link,
		})
	}

	return rows, nil
}
