package scraper

import (
	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

// Frontier is the growing, deduped, insertion-ordered set of listing
// identities for one discovery session. Dedup is keyed exclusively on the
// canonical URL.
type Frontier struct {
	seen  map[string]struct{}
	order []models.Identity

	priceHints map[string]int
	scrolls    int
	noChange   int
}

func NewFrontier() *Frontier {
	return &Frontier{
		seen:       make(map[string]struct{}),
		priceHints: make(map[string]int),
	}
}

// Add canonicalizes a harvested href and records it. It reports whether the
// URL was new; repeats and unparseable hrefs are dropped silently.
func (f *Frontier) Add(href string) bool {
	identity, err := Identify(href)
	if err != nil {
		return false
	}
	if _, dup := f.seen[identity.CanonicalURL]; dup {
		return false
	}
	f.seen[identity.CanonicalURL] = struct{}{}
	f.order = append(f.order, identity)
	return true
}

// Size returns the number of distinct listings discovered so far.
func (f *Frontier) Size() int { return len(f.order) }

// Identities returns the discovered identities in insertion order.
func (f *Frontier) Identities() []models.Identity {
	out := make([]models.Identity, len(f.order))
	copy(out, f.order)
	return out
}

// SetPriceHint attaches a list-view price to the identity at the given
// insertion position. Out-of-range prices are ignored.
func (f *Frontier) SetPriceHint(index int, price int) {
	if index < 0 || index >= len(f.order) || !ValidPrice(price) {
		return
	}
	f.priceHints[f.order[index].CanonicalURL] = price
}

// PriceHint looks up the list-view price for an identity.
func (f *Frontier) PriceHint(identity models.Identity) (int, bool) {
	p, ok := f.priceHints[identity.CanonicalURL]
	return p, ok
}

// RecordScroll updates the loop counters after one scroll iteration.
// Any iteration that added at least one new URL resets the no-change streak.
func (f *Frontier) RecordScroll(added int) {
	f.scrolls++
	if added > 0 {
		f.noChange = 0
	} else {
		f.noChange++
	}
}

// Done reports whether the discovery loop should stop: target reached, the
// scroll safety ceiling hit, or too many consecutive scrolls without a new
// URL (end of results or a load stall).
func (f *Frontier) Done(target, maxScrolls, noChangeThreshold int) bool {
	return f.Size() >= target ||
		f.scrolls >= maxScrolls ||
		f.noChange >= noChangeThreshold
}

// Tasks converts the frontier into orchestrator work units, attaching the
// city hint and any harvested price hints.
func (f *Frontier) Tasks(cityHint string) []models.Task {
	tasks := make([]models.Task, 0, len(f.order))
	for _, identity := range f.order {
		task := models.Task{Identity: identity, CityHint: cityHint}
		if p, ok := f.priceHints[identity.CanonicalURL]; ok {
			hint := p
			task.PriceHint = &hint
		}
		tasks = append(tasks, task)
	}
	return tasks
}
