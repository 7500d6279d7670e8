package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierDedup(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	assert.True(t, f.Add("/rooms/55?x=1"))
	assert.False(t, f.Add("/rooms/55?x=2"))
	assert.True(t, f.Add("/rooms/56"))

	require.Equal(t, 2, f.Size())
	identities := f.Identities()
	assert.Equal(t, "55", identities[0].ID)
	assert.Equal(t, "https://www.airbnb.com/rooms/55", identities[0].CanonicalURL)
	assert.Equal(t, "56", identities[1].ID)
}

func TestFrontierIgnoresGarbage(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	assert.False(t, f.Add(""))
	assert.False(t, f.Add("   "))
	assert.Equal(t, 0, f.Size())
}

func TestFrontierTermination(t *testing.T) {
	t.Parallel()

	t.Run("stops at target count", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		f.Add("/rooms/1")
		f.Add("/rooms/2")
		assert.True(t, f.Done(2, 150, 8))
	})

	t.Run("stops after no-change threshold even when target unreached", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		f.Add("/rooms/1")
		for i := 0; i < 8; i++ {
			assert.False(t, f.Done(50, 150, 8), "iteration %d", i)
			f.RecordScroll(0)
		}
		assert.True(t, f.Done(50, 150, 8))
	})

	t.Run("new url resets the no-change streak", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		for i := 0; i < 7; i++ {
			f.RecordScroll(0)
		}
		f.Add("/rooms/9")
		f.RecordScroll(1)
		assert.False(t, f.Done(50, 150, 8))
	})

	t.Run("stops at the scroll safety ceiling", func(t *testing.T) {
		t.Parallel()
		f := NewFrontier()
		for i := 0; i < 150; i++ {
			f.Add("/rooms/1") // dup after the first; keeps streak alive
			f.RecordScroll(1)
		}
		assert.True(t, f.Done(10_000, 150, 10_000))
	})
}

func TestFrontierPriceHints(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.Add("/rooms/1")
	f.Add("/rooms/2")

	f.SetPriceHint(0, 120)
	f.SetPriceHint(1, 3)    // out of guard range, dropped
	f.SetPriceHint(5, 200)  // out of bounds index, dropped
	f.SetPriceHint(-1, 200) // negative index, dropped

	identities := f.Identities()
	p, ok := f.PriceHint(identities[0])
	require.True(t, ok)
	assert.Equal(t, 120, p)
	_, ok = f.PriceHint(identities[1])
	assert.False(t, ok)

	tasks := f.Tasks("Paris")
	require.Len(t, tasks, 2)
	assert.Equal(t, "Paris", tasks[0].CityHint)
	require.NotNil(t, tasks[0].PriceHint)
	assert.Equal(t, 120, *tasks[0].PriceHint)
	assert.Nil(t, tasks[1].PriceHint)
}
