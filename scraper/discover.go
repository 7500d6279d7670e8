package scraper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
)

const harvestLinksJS = `
(() => {
	const selectors = [%q, %q];
	const hrefs = [];
	for (const sel of selectors) {
		for (const a of document.querySelectorAll(sel)) {
			const href = a.getAttribute('href') || '';
			if (href.includes('/rooms/')) hrefs.push(href);
		}
	}
	return hrefs;
})();
`

const harvestPricesJS = `
(() => {
	const out = [];
	for (const el of document.querySelectorAll(%q)) {
		const m = el.textContent.match(/\$(\d+)/);
		if (m) out.push(parseInt(m[1], 10));
	}
	return out;
})();
`

// Discover drives the search-results page through a bounded scroll/poll
// loop, harvesting and deduping listing links until the target count is
// reached, the scroll ceiling is hit, or the page stops yielding new URLs.
// It also harvests coarse list-view prices as per-listing hints.
func Discover(tabCtx context.Context, searchURL string, target int, cfg config.Config) (*Frontier, error) {
	navCtx, cancel := context.WithTimeout(tabCtx, cfg.NavTimeout)
	err := chromedp.Run(navCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(3*time.Second),
	)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigate search page %s: %w", searchURL, err)
	}

	frontier := NewFrontier()
	linkScript := fmt.Sprintf(harvestLinksJS, ListingLinkSelector, CardContainerSelector)

	for !frontier.Done(target, cfg.MaxScrolls, cfg.NoChangeThreshold) {
		if err := tabCtx.Err(); err != nil {
			return frontier, err
		}

		scrollCtx, cancelScroll := context.WithTimeout(tabCtx, cfg.SettleTimeout)
		var hrefs []string
		err := chromedp.Run(scrollCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(cfg.ScrollDelay),
			chromedp.Evaluate(linkScript, &hrefs),
		)
		cancelScroll()
		if err != nil {
			// A stalled scroll round counts as a no-change iteration; the
			// threshold will end the loop if it keeps happening.
			frontier.RecordScroll(0)
			continue
		}

		added := 0
		for _, href := range hrefs {
			if frontier.Size() >= target {
				break
			}
			if frontier.Add(href) {
				added++
			}
		}
		frontier.RecordScroll(added)

		if frontier.scrolls%5 == 0 {
			log.Debug("discovery progress",
				"found", frontier.Size(), "scrolls", frontier.scrolls, "noChange", frontier.noChange)
		}
	}

	harvestPriceHints(tabCtx, frontier, cfg)

	if cfg.ScreenshotPath != "" {
		saveScreenshot(tabCtx, cfg.ScreenshotPath)
	}

	return frontier, nil
}

// harvestPriceHints reads the list-view price widgets and pairs them with
// discovered listings by position. Best effort only: a failure here costs
// nothing but the hints.
func harvestPriceHints(tabCtx context.Context, frontier *Frontier, cfg config.Config) {
	priceCtx, cancel := context.WithTimeout(tabCtx, cfg.SettleTimeout)
	defer cancel()

	var prices []int
	script := fmt.Sprintf(harvestPricesJS, ListPriceSelector)
	if err := chromedp.Run(priceCtx, chromedp.Evaluate(script, &prices)); err != nil {
		log.Debug("list-view price harvest failed", "err", err)
		return
	}
	for i, p := range prices {
		frontier.SetPriceHint(i, p)
	}
}

func saveScreenshot(tabCtx context.Context, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	shotCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		log.Debug("screenshot failed", "err", err)
		return
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		log.Debug("screenshot write failed", "path", path, "err", err)
	}
}
