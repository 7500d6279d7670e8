package scraper

import (
	"strings"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

// Extract produces a best-effort record from a page snapshot. It returns
// nil for error pages; otherwise a record is returned even when most fields
// stayed unset — partial extraction is the expected common case. Within one
// pass a field is written at most once, by the first strategy whose value
// passes validation.
func Extract(snap *PageSnapshot) *models.Record {
	if snap == nil || snap.IsErrorPage() {
		return nil
	}

	rec := &models.Record{}
	pool := ExtractJSONPool(snap.HTML)
	lowerText := strings.ToLower(snap.VisibleText)

	if rt, ok := extractRoomType(snap, pool); ok {
		rec.RoomType = rt
		lower := strings.ToLower(rt)
		rec.IsPrivate = strings.Contains(lower, "private room")
		rec.IsShared = strings.Contains(lower, "shared room")
	}

	if p, ok := extractPrice(snap, pool); ok {
		rec.Price = &p
	}

	if n, ok := extractCount(snap, pool, []string{"personCapacity", "person_capacity", "guestCapacity", "maxGuests"}, guestsRe); ok {
		rec.PersonCapacity = &n
	}
	if n, ok := extractCount(snap, pool, []string{"bedrooms", "bedroomCount", "bedroom_count", "numberOfBedrooms", "bedroomsCount"}, bedroomRe); ok {
		rec.Bedrooms = &n
	}
	if n, ok := extractBeds(snap, pool); ok {
		rec.Beds = &n
	}
	if n, ok := extractBathrooms(snap); ok {
		rec.Bathrooms = &n
	}

	if city, ok := extractCity(snap); ok {
		rec.City = city
	}

	if lat, lng, ok := extractCoordinates(snap, pool); ok {
		rec.Latitude = &lat
		rec.Longitude = &lng
	}

	if r, ok := extractOverallRating(snap); ok {
		rec.OverallRating = &r
	}
	if r, ok := extractCleanlinessRating(snap); ok {
		rec.CleanlinessRating = &r
	}
	if n, ok := extractReviewCount(snap); ok {
		rec.ReviewCount = &n
	}

	rec.HostIsSuperhost = strings.Contains(lowerText, "superhost")

	head := lowerText
	if len(head) > multiBizWindow {
		head = head[:multiBizWindow]
	}
	rec.IsMultiListing = containsAny(head, multiTokens)
	rec.IsBusinessReady = containsAny(head, bizTokens)

	flags := ExtractAmenities(snap.AmenityTexts, snap.VisibleText)
	rec.Wifi = flags.Wifi
	rec.Kitchen = flags.Kitchen
	rec.AirConditioning = flags.AirConditioning
	rec.Parking = flags.Parking
	rec.TV = flags.TV
	rec.Heating = flags.Heating

	return rec
}

// ApplyHints folds the cheaper list-view signals into a record: the search
// URL's city always wins over the title heuristic, and the list-view price
// backfills only when the detail page yielded none.
func ApplyHints(rec *models.Record, task models.Task) {
	if rec == nil {
		return
	}
	if task.CityHint != "" {
		rec.City = task.CityHint
	}
	if rec.Price == nil && task.PriceHint != nil {
		p := *task.PriceHint
		rec.Price = &p
	}
}
