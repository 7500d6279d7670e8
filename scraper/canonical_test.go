package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	t.Run("strips query string", func(t *testing.T) {
		t.Parallel()
		got, err := Canonicalize("https://www.airbnb.com/rooms/55?x=1&currency=USD")
		require.NoError(t, err)
		assert.Equal(t, "https://www.airbnb.com/rooms/55", got)
	})

	t.Run("urls differing only by query string collapse to one key", func(t *testing.T) {
		t.Parallel()
		a, err := Canonicalize("https://www.airbnb.com/rooms/55?x=1")
		require.NoError(t, err)
		b, err := Canonicalize("https://www.airbnb.com/rooms/55?x=2")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("resolves root-relative paths", func(t *testing.T) {
		t.Parallel()
		got, err := Canonicalize("/rooms/123?adults=2")
		require.NoError(t, err)
		assert.Equal(t, "https://www.airbnb.com/rooms/123", got)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		once, err := Canonicalize("https://www.airbnb.com/rooms/55?x=1")
		require.NoError(t, err)
		twice, err := Canonicalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("rejects empty and hostless input", func(t *testing.T) {
		t.Parallel()
		_, err := Canonicalize("")
		assert.Error(t, err)
		_, err = Canonicalize("rooms/55")
		assert.Error(t, err)
	})
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	t.Run("parses numeric rooms id", func(t *testing.T) {
		t.Parallel()
		identity, err := Identify("https://www.airbnb.com/rooms/55?x=1")
		require.NoError(t, err)
		assert.Equal(t, "55", identity.ID)
		assert.Equal(t, "https://www.airbnb.com/rooms/55", identity.CanonicalURL)
	})

	t.Run("falls back to stable hash without rooms segment", func(t *testing.T) {
		t.Parallel()
		a, err := Identify("https://www.airbnb.com/some/listing")
		require.NoError(t, err)
		b, err := Identify("https://www.airbnb.com/some/listing?q=1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(a.ID, "scraped_"))
		assert.Equal(t, a.ID, b.ID)
	})
}

func TestWithCurrency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://x.com/a?currency=USD", WithCurrency("https://x.com/a"))
	assert.Equal(t, "https://x.com/a?b=1&currency=USD", WithCurrency("https://x.com/a?b=1"))
	assert.Equal(t, "https://x.com/a?currency=EUR", WithCurrency("https://x.com/a?currency=EUR"))
}

func TestSearchURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.airbnb.com/s/New-York/homes?currency=USD", SearchURL("New York"))
}

func TestCityFromSearchURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "New York", CityFromSearchURL("https://www.airbnb.com/s/New-York/homes?currency=USD"))
	assert.Equal(t, "Paris", CityFromSearchURL("https://www.airbnb.com/s/paris/homes"))
	assert.Equal(t, "", CityFromSearchURL("https://www.airbnb.com/rooms/55"))
}
