package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPool(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<script id="__NEXT_DATA__" type="application/json">{"props":{"roomType":"Private room"}}</script>
		<script type="application/ld+json">{"@type":"Product","name":"Cozy flat"}</script>
		<script type="application/ld+json">[{"@type":"Offer"},{"@type":"Place"}]</script>
		<script type="application/json">{"bootstrap":true}</script>
		<script type="application/json">not json at all</script>
		<script>var x = 1;</script>
	</head><body></body></html>`

	pool := ExtractJSONPool(html)
	// __NEXT_DATA__ matches both the id selector and the generic
	// application/json selector, so it appears twice; the malformed blob
	// and the plain script are skipped.
	require.Len(t, pool, 6)
}

func TestDeepFind(t *testing.T) {
	t.Parallel()

	t.Run("matches case and separator insensitive aliases", func(t *testing.T) {
		t.Parallel()
		obj := map[string]any{"listing": map[string]any{"room_type": "Shared room"}}
		v, ok := DeepFind(obj, []string{"roomType"})
		require.True(t, ok)
		assert.Equal(t, "Shared room", v)
	})

	t.Run("checks direct keys before descending", func(t *testing.T) {
		t.Parallel()
		obj := map[string]any{
			"a":        map[string]any{"roomType": "deep"},
			"roomType": "shallow",
		}
		v, ok := DeepFind(obj, []string{"room-type"})
		require.True(t, ok)
		assert.Equal(t, "shallow", v)
	})

	t.Run("walks into arrays", func(t *testing.T) {
		t.Parallel()
		obj := []any{map[string]any{"x": 1.0}, map[string]any{"beds": 3.0}}
		v, ok := DeepFind(obj, []string{"beds"})
		require.True(t, ok)
		assert.Equal(t, 3.0, v)
	})

	t.Run("misses cleanly", func(t *testing.T) {
		t.Parallel()
		_, ok := DeepFind(map[string]any{"a": 1.0}, []string{"beds"})
		assert.False(t, ok)
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		t.Parallel()
		obj := map[string]any{
			"b": map[string]any{"lat": 2.0},
			"a": map[string]any{"lat": 1.0},
		}
		first, ok := DeepFind(obj, []string{"lat"})
		require.True(t, ok)
		for i := 0; i < 20; i++ {
			v, ok := DeepFind(obj, []string{"lat"})
			require.True(t, ok)
			assert.Equal(t, first, v)
		}
		// Sorted-key walk means the "a" subtree always wins.
		assert.Equal(t, 1.0, first)
	})
}

func TestDeepFindAll(t *testing.T) {
	t.Parallel()

	pool := []any{
		map[string]any{"unrelated": true},
		map[string]any{"bedrooms": 2.0},
		map[string]any{"bedrooms": 9.0},
	}
	v, ok := DeepFindAll(pool, []string{"bedrooms"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v, "first payload with a hit wins")
}
