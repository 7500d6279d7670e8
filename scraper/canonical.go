package scraper

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

const baseHost = "https://www.airbnb.com"

var roomPathRe = regexp.MustCompile(`/rooms/(\d+)`)

// Canonicalize normalizes a raw listing URL into the dedup key: absolute,
// scheme and host resolved, query string and fragment dropped. It is
// idempotent — feeding a canonical URL back in returns it unchanged.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if strings.HasPrefix(raw, "/") {
		raw = baseHost + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// Identify builds the listing identity for a raw URL. The id is the numeric
// /rooms/ path segment; URLs without one get a stable hash substitute so
// they still dedup consistently.
func Identify(raw string) (models.Identity, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return models.Identity{}, err
	}

	id := ""
	if m := roomPathRe.FindStringSubmatch(canonical); m != nil {
		id = m[1]
	} else {
		h := fnv.New64a()
		_, _ = h.Write([]byte(canonical))
		id = fmt.Sprintf("scraped_%x", h.Sum64())
	}

	return models.Identity{CanonicalURL: canonical, ID: id}, nil
}

// WithCurrency appends currency=USD to a URL unless it already pins one.
// Applied to search and listing URLs alike so prices come back comparable.
func WithCurrency(raw string) string {
	if strings.Contains(raw, "currency=") {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "currency=USD"
}

// SearchURL builds the search-results URL for a city name.
func SearchURL(city string) string {
	return WithCurrency(fmt.Sprintf("%s/s/%s/homes", baseHost, strings.ReplaceAll(strings.TrimSpace(city), " ", "-")))
}

var searchCityRe = regexp.MustCompile(`/s/([^/]+)/homes`)

// CityFromSearchURL recovers a display city name from a search URL,
// e.g. /s/New-York/homes -> "New York". Empty when the URL is not a
// city search.
func CityFromSearchURL(searchURL string) string {
	m := searchCityRe.FindStringSubmatch(searchURL)
	if m == nil {
		return ""
	}
	city := strings.ReplaceAll(m[1], "-", " ")
	city = strings.ReplaceAll(city, "%20", " ")
	return titleCase(city)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
