package scraper

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractJSONPool pulls every embedded JSON payload worth searching out of
// the raw page markup: the framework data blob (__NEXT_DATA__ / deferred
// state), ld+json blocks and generic application/json blocks. Payloads that
// fail to parse are skipped silently — a malformed blob is normal, not an
// error.
func ExtractJSONPool(html string) []any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var pool []any

	doc.Find(`script#__NEXT_DATA__, script[id^="data-deferred-state"]`).Each(func(_ int, s *goquery.Selection) {
		if v := parseJSONObject(s.Text()); v != nil {
			pool = append(pool, v)
		}
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return
		}
		switch t := v.(type) {
		case map[string]any:
			pool = append(pool, t)
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					pool = append(pool, m)
				}
			}
		}
	})

	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		if v := parseJSONObject(s.Text()); v != nil {
			pool = append(pool, v)
		}
	})

	return pool
}

func parseJSONObject(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// normalizeKey folds case and separators so that roomType, room_type and
// room-type all compare equal.
func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	return k
}

// DeepFind walks a decoded JSON tree depth-first, pre-order, and returns
// the first value whose key matches any of the given aliases under
// normalizeKey. Direct keys of a map are checked before descending into its
// values, so shallower matches win.
func DeepFind(obj any, aliases []string) (any, bool) {
	want := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		want[normalizeKey(a)] = struct{}{}
	}
	return deepFind(obj, want)
}

func deepFind(obj any, want map[string]struct{}) (any, bool) {
	switch t := obj.(type) {
	case map[string]any:
		// Walk keys in sorted order: map iteration is randomized and the
		// extractor must yield the same record for the same page content.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, ok := want[normalizeKey(k)]; ok {
				return t[k], true
			}
		}
		for _, k := range keys {
			if found, ok := deepFind(t[k], want); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range t {
			if found, ok := deepFind(item, want); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// DeepFindAll searches every payload in a pool in order and returns the
// first hit across all of them.
func DeepFindAll(pool []any, aliases []string) (any, bool) {
	for _, obj := range pool {
		if v, ok := DeepFind(obj, aliases); ok {
			return v, true
		}
	}
	return nil, false
}
