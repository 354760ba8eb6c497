package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// BrowserAdapter drives a headless browser for portals that only render
// their breach table client-side (dashboard embeds and the like). The
// portal supplies a wait selector and a JavaScript expression that
// evaluates to an array of row objects once the page has settled.
type BrowserAdapter struct {
	userAgent string
}

func NewBrowserAdapter(userAgent string) *BrowserAdapter {
	return &BrowserAdapter{userAgent: userAgent}
}

func (a *BrowserAdapter) Type() string {
	return "browser"
}

func (a *BrowserAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	rowsExpr := p.Param("rows_expr", "")
	if rowsExpr == "" {
		return nil, fmt.Errorf("browser portal requires a rows_expr param")
	}
	waitSelector := p.Param("wait_selector", "body")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(a.userAgent),
		chromedp.Flag("headless", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	settle := 2 * time.Second
	if d, err := time.ParseDuration(p.Param("settle", "")); err == nil && d > 0 {
		settle = d
	}

	var rows []map[string]any
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(p.URL),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
		chromedp.Sleep(settle),
		chromedp.Evaluate(rowsExpr, &rows),
	)
	if err != nil {
		return nil, fmt.Errorf("browser automation failed: %w", err)
	}

	out := make([]normalize.RawRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, normalize.RawRow(r))
	}
	return out, nil
}
