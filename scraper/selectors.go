package scraper

// CSS selectors used across the scraper.
// Centralising them makes future updates trivial.
const (
	// Search results page: listing links, most to least specific.
	ListingLinkSelector   = `a[href*="/rooms/"]`
	CardContainerSelector = `div[data-testid="card-container"] a`

	// List-view price widgets on the search page.
	ListPriceSelector = `[data-testid="price-availability-row"] span, span._tyxjp1, span[class*="price"]`

	// Detail page price widgets, tried in order before text patterns.
	DetailPriceSelector = `span._1y74zjx, span._tyxjp1, div._1jo4hgw span, span[class*="price"]`
)
