package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

func identity(id string) models.Identity {
	return models.Identity{ID: id, CanonicalURL: "https://www.airbnb.com/rooms/" + id}
}

func viableRecord(roomType string) *models.Record {
	return &models.Record{RoomType: roomType}
}

func TestSinkAdd(t *testing.T) {
	t.Parallel()

	t.Run("rejects records below the viability gate", func(t *testing.T) {
		t.Parallel()
		s := NewSink()
		price := 120
		assert.False(t, s.Add(identity("1"), &models.Record{Price: &price}))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("last write wins per identity", func(t *testing.T) {
		t.Parallel()
		s := NewSink()
		require.True(t, s.Add(identity("1"), viableRecord("Private room")))
		require.True(t, s.Add(identity("1"), viableRecord("Shared room")))

		require.Equal(t, 1, s.Len())
		assert.Equal(t, "Shared room", s.Records()[0].RoomType)
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		t.Parallel()
		s := NewSink()
		s.Add(identity("b"), viableRecord("Private room"))
		s.Add(identity("a"), viableRecord("Private room"))
		s.Add(identity("b"), viableRecord("Hotel room")) // replacement keeps slot

		records := s.Records()
		require.Len(t, records, 2)
		assert.Equal(t, "https://www.airbnb.com/rooms/b", records[0].URL)
		assert.Equal(t, "Hotel room", records[0].RoomType)
		assert.Equal(t, "https://www.airbnb.com/rooms/a", records[1].URL)
	})

	t.Run("fills the url from the identity", func(t *testing.T) {
		t.Parallel()
		s := NewSink()
		s.Add(identity("9"), viableRecord("Private room"))
		assert.Equal(t, "https://www.airbnb.com/rooms/9", s.Records()[0].URL)
	})
}

func TestSinkExportCSV(t *testing.T) {
	t.Parallel()

	s := NewSink()
	price := 135
	beds := 2
	lat, lng := 41.1579, -8.6291
	s.Add(identity("1"), &models.Record{
		RoomType:  "Private room",
		IsPrivate: true,
		Price:     &price,
		Beds:      &beds,
		City:      "Porto",
		Latitude:  &lat,
		Longitude: &lng,
		Wifi:      true,
	})
	s.Add(identity("2"), viableRecord("Shared room"))

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, s.ExportCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, models.ExportColumns, rows[0])

	col := func(name string) int {
		for i, c := range models.ExportColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %q", name)
		return -1
	}

	first := rows[1]
	assert.Equal(t, "https://www.airbnb.com/rooms/1", first[col("url")])
	assert.Equal(t, "135", first[col("price")])
	assert.Equal(t, "Private room", first[col("roomType")])
	assert.Equal(t, "true", first[col("isPrivate")])
	assert.Equal(t, "false", first[col("isShared")])
	assert.Equal(t, "2", first[col("beds")])
	assert.Equal(t, "Porto", first[col("city")])
	assert.Equal(t, "41.1579", first[col("latitude")])
	assert.Equal(t, "-8.6291", first[col("longitude")])
	assert.Equal(t, "true", first[col("wifi")])
	assert.Equal(t, "false", first[col("kitchen")])

	// Absent optionals are empty cells, not zeros.
	second := rows[2]
	assert.Equal(t, "", second[col("price")])
	assert.Equal(t, "", second[col("bedrooms")])
	assert.Equal(t, "", second[col("latitude")])
}

func TestSinkExportJSONMatchesCSV(t *testing.T) {
	t.Parallel()

	s := NewSink()
	s.Add(identity("1"), viableRecord("Private room"))
	s.Add(identity("2"), viableRecord("Hotel room"))

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, s.ExportCSV(csvPath))
	require.NoError(t, s.ExportJSON(jsonPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded []models.Record
	require.NoError(t, json.Unmarshal(data, &decoded))

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Same records, same order, in both serializations.
	require.Len(t, decoded, len(rows)-1)
	for i, rec := range decoded {
		assert.Equal(t, rec.URL, rows[i+1][0])
	}
}

func TestSinkExportGroup(t *testing.T) {
	t.Parallel()

	s := NewSink()
	dir := t.TempDir()

	s.Add(identity("1"), viableRecord("Private room"))
	s.Add(identity("2"), viableRecord("Private room"))

	n, err := s.ExportGroup("porto", filepath.Join(dir, "porto.csv"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s.Add(identity("3"), viableRecord("Shared room"))

	// Only the records added since the previous boundary are written.
	n, err = s.ExportGroup("lisbon", filepath.Join(dir, "lisbon.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := os.Open(filepath.Join(dir, "lisbon.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://www.airbnb.com/rooms/3", rows[1][0])

	t.Run("empty group writes nothing", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		n, err := s.ExportGroup("empty", path)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	// The full export still covers every record regardless of boundaries.
	assert.Equal(t, 3, s.Len())
	full := filepath.Join(dir, "all.csv")
	require.NoError(t, s.ExportCSV(full))
	f2, err := os.Open(full)
	require.NoError(t, err)
	defer f2.Close()
	rows, err = csv.NewReader(f2).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
