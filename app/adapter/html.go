package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// HTMLAdapter scrapes breach tables straight out of portal HTML. The
// portal's selector matches one element per table row; cell order decides
// field meaning. Two layouts exist: the 8-column breach-chronology layout
// (columns: breach) and the generic 3-column {notice_date, entity, records}
// triple most attorney-general sites publish.
type HTMLAdapter struct {
	fetcher *Fetcher
}

func NewHTMLAdapter(fetcher *Fetcher) *HTMLAdapter {
	return &HTMLAdapter{fetcher: fetcher}
}

func (a *HTMLAdapter) Type() string {
	return "html"
}

func (a *HTMLAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	data, err := a.fetcher.Get(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows []normalize.RawRow
	doc.Find(p.Selector).Each(func(_ int, tr *goquery.Selection) {
		var cols []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})

		var row normalize.RawRow
		if p.Columns == "breach" {
			row = breachChronologyRow(tr, cols)
		} else {
			row = genericTableRow(cols)
		}
		if row != nil {
			rows = append(rows, row)
		}
	})

	return rows, nil
}

// breachChronologyRow maps the 8-column layout: entity, breach date,
// notice date, records, breach type, entity type, state, notice URL.
func breachChronologyRow(tr *goquery.Selection, cols []string) normalize.RawRow {
	if len(cols) < 8 {
		return nil
	}

	var noticeURL any
	if href, ok := tr.Find("a").First().Attr("href"); ok {
		noticeURL = href
	}

	return normalize.RawRow{
		"entity":      cols[0],
		"breach_date": cols[1],
		"notice_date": cols[2],
		"records":     cols[3],
		"breach_type": cols[4],
		"entity_type": cols[5],
		"state":       cols[6],
		"notice_url":  noticeURL,
	}
}

// genericTableRow maps the {notice_date, entity, records} triple.
func genericTableRow(cols []string) normalize.RawRow {
	if len(cols) < 3 {
		return nil
	}
	return normalize.RawRow{
		"notice_date": cols[0],
		"entity":      cols[1],
		"records":     cols[2],
	}
}
