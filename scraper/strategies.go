package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Each field runs an ordered chain of strategies; the first candidate that
// passes the field's guard wins and the rest of the chain is skipped.
// A candidate failing its guard is discarded and the chain continues — never
// a fatal condition.

// ── Validation guards ─────────────────────────────────────────────────────────

// ValidPrice accepts nightly prices strictly inside (5, 50000).
func ValidPrice(p int) bool { return p > 5 && p < 50000 }

// ValidRating accepts ratings in (0, 5].
func ValidRating(r float64) bool { return r > 0 && r <= 5 }

// ValidCount accepts non-negative integers.
func ValidCount(n int) bool { return n >= 0 }

// ValidCoordinate rejects the near-zero placeholder pair some pages ship
// before the map loads.
func ValidCoordinate(v float64) bool { return v > 0.1 || v < -0.1 }

// ── Loose parsing helpers ─────────────────────────────────────────────────────

func parseIntLoose(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// asInt coerces a decoded JSON value into an int. JSON numbers arrive as
// float64; some payloads carry them as strings.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		return parseIntLoose(t)
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ── Price ─────────────────────────────────────────────────────────────────────

var (
	// Most specific first: an amount explicitly tied to "night".
	pricePerNightRe = regexp.MustCompile(`(?i)[\$€£¥₹]\s*([\d,]+)\s*(?:per\s*)?(?:/\s*)?night`)
	// Bare currency amount, only trusted near the top of the page.
	priceBareRe   = regexp.MustCompile(`[\$€£]([\d,]+)`)
	priceDigitsRe = regexp.MustCompile(`([\d,]+)`)
)

const priceBareWindow = 5000

// extractPrice runs the price chain: structured payloads, the detail-page
// price widgets, the per-night text pattern, then a bare currency amount in
// the page head.
func extractPrice(snap *PageSnapshot, pool []any) (int, bool) {
	if v, ok := DeepFindAll(pool, []string{"priceString", "price_string"}); ok {
		if s, ok := asString(v); ok {
			if m := priceDigitsRe.FindStringSubmatch(s); m != nil {
				if p, ok := parseIntLoose(m[1]); ok && ValidPrice(p) {
					return p, true
				}
			}
		}
	}

	for _, text := range snap.PriceTexts {
		if m := priceBareRe.FindStringSubmatch(text); m != nil {
			if p, ok := parseIntLoose(m[1]); ok && ValidPrice(p) {
				return p, true
			}
		}
	}

	for _, m := range pricePerNightRe.FindAllStringSubmatch(snap.VisibleText, -1) {
		if p, ok := parseIntLoose(m[1]); ok && ValidPrice(p) {
			return p, true
		}
	}

	head := snap.VisibleText
	if len(head) > priceBareWindow {
		head = head[:priceBareWindow]
	}
	for _, m := range priceBareRe.FindAllStringSubmatch(head, -1) {
		if p, ok := parseIntLoose(m[1]); ok && ValidPrice(p) {
			return p, true
		}
	}

	return 0, false
}

// ── Ratings ───────────────────────────────────────────────────────────────────

var (
	ratingNumberRe  = regexp.MustCompile(`([\d.]+)`)
	overallPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([\d.]+)\s*rating`),
		regexp.MustCompile(`(?i)rated\s*([\d.]+)`),
		regexp.MustCompile(`(?i)rating[:\s]*([\d.]+)`),
		regexp.MustCompile(`★\s*([\d.]+)`),
	}
	cleanlinessRe = regexp.MustCompile(`(?i)cleanliness\s*[:\s]*([\d.]+)`)
)

func extractOverallRating(snap *PageSnapshot) (float64, bool) {
	if snap.AriaRatingLabel != "" {
		if m := ratingNumberRe.FindStringSubmatch(snap.AriaRatingLabel); m != nil {
			if r, err := strconv.ParseFloat(m[1], 64); err == nil && ValidRating(r) {
				return r, true
			}
		}
	}

	lower := strings.ToLower(snap.VisibleText)
	for _, re := range overallPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if r, err := strconv.ParseFloat(m[1], 64); err == nil && ValidRating(r) {
				return r, true
			}
		}
	}
	return 0, false
}

func extractCleanlinessRating(snap *PageSnapshot) (float64, bool) {
	if m := cleanlinessRe.FindStringSubmatch(snap.VisibleText); m != nil {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && ValidRating(r) {
			return r, true
		}
	}
	return 0, false
}

// ── Capacity / rooms / reviews ────────────────────────────────────────────────

var (
	guestsRe  = regexp.MustCompile(`(?i)(\d+)\s*guest`)
	bedroomRe = regexp.MustCompile(`(?i)(\d+)\s*bedroom`)
	// (?!room) is unsupported by RE2; exclude bedrooms by matching "bed" not
	// followed by "room" via a bounded alternative set instead.
	bedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(?:single|double|queen|king|twin|full)\s*beds?`),
		regexp.MustCompile(`(?i)(\d+)\s*beds?\s*[·•]`),
		regexp.MustCompile(`(?i)(\d+)\s*beds?(?:\s|$|[.,])`),
	}
	bathRe   = regexp.MustCompile(`(?i)([\d.]+)\s*(?:shared\s*|private\s*)?bath`)
	reviewRe = regexp.MustCompile(`(?i)([\d,]+)\s*review`)
)

func extractCount(snap *PageSnapshot, pool []any, aliases []string, re *regexp.Regexp) (int, bool) {
	if v, ok := DeepFindAll(pool, aliases); ok {
		if n, ok := asInt(v); ok && ValidCount(n) {
			return n, true
		}
	}
	if m := re.FindStringSubmatch(snap.VisibleText); m != nil {
		if n, ok := parseIntLoose(m[1]); ok && ValidCount(n) {
			return n, true
		}
	}
	return 0, false
}

func extractBeds(snap *PageSnapshot, pool []any) (int, bool) {
	if v, ok := DeepFindAll(pool, []string{"beds", "bedCount", "bed_count", "numberOfBeds", "bedsCount"}); ok {
		if n, ok := asInt(v); ok && ValidCount(n) {
			return n, true
		}
	}
	for _, re := range bedPatterns {
		if m := re.FindStringSubmatch(snap.VisibleText); m != nil {
			if n, ok := parseIntLoose(m[1]); ok && ValidCount(n) {
				return n, true
			}
		}
	}
	return 0, false
}

func extractBathrooms(snap *PageSnapshot) (int, bool) {
	if m := bathRe.FindStringSubmatch(snap.VisibleText); m != nil {
		// "1.5 baths" style values round down to whole rooms.
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			n := int(f)
			if ValidCount(n) {
				return n, true
			}
		}
	}
	return 0, false
}

func extractReviewCount(snap *PageSnapshot) (int, bool) {
	if m := reviewRe.FindStringSubmatch(snap.VisibleText); m != nil {
		if n, ok := parseIntLoose(m[1]); ok && ValidCount(n) {
			return n, true
		}
	}
	return 0, false
}

// ── Coordinates ───────────────────────────────────────────────────────────────

var (
	latRe = regexp.MustCompile(`"lat(?:itude)?"\s*:\s*(-?[\d.]+)`)
	lngRe = regexp.MustCompile(`"(?:lng|longitude)"\s*:\s*(-?[\d.]+)`)
)

// extractCoordinates returns a lat/lng pair only when both components look
// real; a near-zero pair is the unset placeholder, not a location.
func extractCoordinates(snap *PageSnapshot, pool []any) (lat, lng float64, ok bool) {
	latV, latOK := DeepFindAll(pool, []string{"lat", "latitude"})
	lngV, lngOK := DeepFindAll(pool, []string{"lng", "longitude"})
	if latOK && lngOK {
		if la, ok1 := asFloat(latV); ok1 {
			if ln, ok2 := asFloat(lngV); ok2 && ValidCoordinate(la) && ValidCoordinate(ln) {
				return la, ln, true
			}
		}
	}

	latM := latRe.FindStringSubmatch(snap.HTML)
	lngM := lngRe.FindStringSubmatch(snap.HTML)
	if latM != nil && lngM != nil {
		la, err1 := strconv.ParseFloat(latM[1], 64)
		ln, err2 := strconv.ParseFloat(lngM[1], 64)
		if err1 == nil && err2 == nil && ValidCoordinate(la) && ValidCoordinate(ln) {
			return la, ln, true
		}
	}

	return 0, 0, false
}

// ── Room type ─────────────────────────────────────────────────────────────────

// Canonical room types.
const (
	RoomEntireHome = "Entire home/apt"
	RoomPrivate    = "Private room"
	RoomShared     = "Shared room"
	RoomHotel      = "Hotel room"
)

// NormalizeRoomType maps free text onto the closed room-type set.
// Text that matches no rule is kept verbatim rather than discarded.
func NormalizeRoomType(raw string) string {
	rt := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(rt, "entire") &&
		(strings.Contains(rt, "home") || strings.Contains(rt, "apartment") || strings.Contains(rt, "place")):
		return RoomEntireHome
	case strings.Contains(rt, "private room"), strings.Contains(rt, "room in"):
		return RoomPrivate
	case strings.Contains(rt, "shared room"):
		return RoomShared
	case strings.Contains(rt, "hotel"):
		return RoomHotel
	}
	return strings.TrimSpace(raw)
}

const (
	roomTypeHTMLWindow = 1000
	roomTypeTextWindow = 2000
)

var roomTypeAliases = []string{
	"roomType", "room_type", "roomTypeCategory",
	"roomTypeName", "room_type_category", "room_type_name",
	"propertyType", "property_type",
}

// extractRoomType runs the room-type chain. Structured data is authoritative;
// the heading, markup-prefix and text-prefix heuristics only fill in when it
// is silent.
func extractRoomType(snap *PageSnapshot, pool []any) (string, bool) {
	if v, ok := DeepFindAll(pool, roomTypeAliases); ok {
		if s, ok := asString(v); ok && strings.TrimSpace(s) != "" {
			return NormalizeRoomType(s), true
		}
	}

	// Structured-data text fields still beat DOM heuristics.
	for _, key := range []string{"name", "title", "description"} {
		if v, ok := DeepFindAll(pool, []string{key}); ok {
			if s, ok := asString(v); ok {
				if rt := roomTypeFromText(strings.ToLower(s)); rt != "" {
					return rt, true
				}
			}
		}
	}

	for _, h2 := range snap.H2s {
		if rt := roomTypeFromText(strings.ToLower(h2)); rt != "" {
			return rt, true
		}
	}

	htmlHead := strings.ToLower(snap.HTML)
	if len(htmlHead) > roomTypeHTMLWindow {
		htmlHead = htmlHead[:roomTypeHTMLWindow]
	}
	if rt := roomTypeFromText(htmlHead); rt != "" {
		return rt, true
	}

	textHead := strings.ToLower(snap.VisibleText)
	if len(textHead) > roomTypeTextWindow {
		textHead = textHead[:roomTypeTextWindow]
	}
	if rt := roomTypeFromText(textHead); rt != "" {
		return rt, true
	}

	return "", false
}

// roomTypeFromText recognizes a canonical room type mentioned inside free
// text. Unlike NormalizeRoomType it never returns unmatched text verbatim.
func roomTypeFromText(lower string) string {
	switch {
	case strings.Contains(lower, "entire home"),
		strings.Contains(lower, "entire apartment"),
		strings.Contains(lower, "entire place"):
		return RoomEntireHome
	case strings.Contains(lower, "shared room"):
		return RoomShared
	case strings.Contains(lower, "hotel room"):
		return RoomHotel
	case strings.Contains(lower, "private room"), strings.Contains(lower, "room in"):
		return RoomPrivate
	}
	return ""
}

// ── City ──────────────────────────────────────────────────────────────────────

// extractCity pulls a city name out of the page title, which ends in
// "... - <City>, <Country> - Airbnb".
func extractCity(snap *PageSnapshot) (string, bool) {
	parts := strings.Split(snap.Title, " - ")
	if len(parts) < 2 {
		return "", false
	}
	location := parts[len(parts)-1]
	if strings.Contains(location, "Airbnb") {
		location = parts[len(parts)-2]
	}
	city := strings.TrimSpace(strings.Split(location, ",")[0])
	if city == "" || strings.Contains(strings.ToLower(city), "airbnb") {
		return "", false
	}
	return city, true
}

// ── Text-signal booleans ──────────────────────────────────────────────────────

const (
	multiBizWindow = 3000
)

var (
	multiTokens = []string{"multiple rooms", "several rooms", "多个房间"}
	bizTokens   = []string{"business", "work", "desk", "workspace", "entrepreneur"}
)

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// ── Amenities ─────────────────────────────────────────────────────────────────

// AmenityFlags is the fixed set of amenity booleans we derive.
type AmenityFlags struct {
	Wifi            bool
	Kitchen         bool
	AirConditioning bool
	Parking         bool
	TV              bool
	Heating         bool
}

// ExtractAmenities derives the amenity flags as a pure function of text:
// the concatenated element-level amenity rows when the page exposes them,
// the full visible text otherwise. Each flag is true iff one of its synonym
// tokens appears.
func ExtractAmenities(amenityTexts []string, visibleText string) AmenityFlags {
	var source string
	if len(amenityTexts) > 0 {
		source = strings.ToLower(strings.Join(amenityTexts, " "))
	} else {
		source = strings.ToLower(visibleText)
	}

	return AmenityFlags{
		Wifi:            containsAny(source, []string{"wifi", "wi-fi", "internet"}),
		Kitchen:         strings.Contains(source, "kitchen"),
		AirConditioning: containsAny(source, []string{"air conditioning", "a/c", "ac", "cooling"}),
		Parking:         containsAny(source, []string{"parking", "garage"}),
		TV:              containsAny(source, []string{"tv", "television", "hdtv"}),
		Heating:         strings.Contains(source, "heating"),
	}
}
