package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Ahmed-Esso/airbnb-analytics/config"
)

// ErrErrorPage marks a URL that resolved to a removed or invalid listing.
// It is a skip, not a system fault.
var ErrErrorPage = errors.New("listing resolved to an error page")

// PageSnapshot is everything the extractor needs from one fetched page.
// Capturing it up front keeps extraction a pure function, testable without
// a browser.
type PageSnapshot struct {
	Title       string
	H1          string
	VisibleText string
	HTML        string

	// AriaRatingLabel is the aria-label of the rating widget, when present,
	// e.g. "4.8 out of 5 rating".
	AriaRatingLabel string

	// AmenityTexts holds the text of element-level amenity rows when the
	// page exposes them; empty means fall back to VisibleText.
	AmenityTexts []string

	// PriceTexts holds the text of the detail-page price widgets, tried
	// before the free-text price patterns.
	PriceTexts []string

	// H2s are the section headings, used by the room-type fallback chain.
	H2s []string
}

const snapshotJS = `
(() => {
	const h1 = document.querySelector('h1');
	const ratingEl = document.querySelector('span[aria-label*="rating"]');

	const priceTexts = Array.from(document.querySelectorAll(%q))
		.map(el => el.textContent.trim())
		.filter(t => t.length > 0)
		.slice(0, 10);

	const amenitySelectors = [
		'[data-section-id="AMENITIES_DEFAULT"] div[role="listitem"]',
		'div[data-testid="amenity-row"]',
	];
	let amenities = [];
	for (const sel of amenitySelectors) {
		const items = Array.from(document.querySelectorAll(sel))
			.map(el => el.textContent.trim())
			.filter(t => t.length > 0);
		if (items.length > 0) { amenities = items; break; }
	}

	return {
		title: document.title || '',
		h1: h1 ? h1.textContent.trim() : '',
		text: document.body ? document.body.innerText : '',
		ariaRating: ratingEl ? (ratingEl.getAttribute('aria-label') || '') : '',
		amenities: amenities,
		priceTexts: priceTexts,
		h2s: Array.from(document.querySelectorAll('h2')).map(el => el.textContent.trim()),
	};
})();
`

type snapshotPayload struct {
	Title      string   `json:"title"`
	H1         string   `json:"h1"`
	Text       string   `json:"text"`
	AriaRating string   `json:"ariaRating"`
	Amenities  []string `json:"amenities"`
	PriceTexts []string `json:"priceTexts"`
	H2s        []string `json:"h2s"`
}

// CaptureSnapshot navigates an isolated tab to the listing URL, waits for
// content to settle, and reads everything the extractor needs in two
// round-trips. A navigation timeout surfaces as an error; the caller treats
// it as a skipped task.
func CaptureSnapshot(tabCtx context.Context, url string, cfg config.Config) (*PageSnapshot, error) {
	navCtx, cancel := context.WithTimeout(tabCtx, cfg.DetailTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	var payload snapshotPayload
	script := fmt.Sprintf(snapshotJS, DetailPriceSelector)
	if err := chromedp.Run(navCtx, chromedp.Evaluate(script, &payload)); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", url, err)
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("read markup %s: %w", url, err)
	}

	return &PageSnapshot{
		Title:           payload.Title,
		H1:              payload.H1,
		VisibleText:     payload.Text,
		HTML:            html,
		AriaRatingLabel: payload.AriaRating,
		AmenityTexts:    payload.Amenities,
		PriceTexts:      payload.PriceTexts,
		H2s:             payload.H2s,
	}, nil
}

// IsErrorPage checks the title and primary heading against the known
// removed-listing signatures.
func (p *PageSnapshot) IsErrorPage() bool {
	title := strings.ToLower(p.Title)
	h1 := strings.ToLower(p.H1)
	return strings.Contains(title, "oops") ||
		strings.Contains(h1, "oops") ||
		strings.Contains(title, "not found")
}
