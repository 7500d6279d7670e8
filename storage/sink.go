package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

// Sink accumulates validated records keyed by canonical URL. Re-adding an
// identity replaces the prior record (last write wins within a session);
// insertion order is preserved for export. The orchestrator's collector
// loop is the only writer; the mutex covers export reads racing a
// still-running collector.
type Sink struct {
	mu    sync.Mutex
	byURL map[string]*models.Record
	order []string

	// groupStart marks the export boundary for incremental per-group
	// exports: records added before it have already been written out.
	groupStart int
}

func NewSink() *Sink {
	return &Sink{byURL: make(map[string]*models.Record)}
}

// Add stores a record under its identity. Records failing the
// minimum-viability gate are rejected.
func (s *Sink) Add(identity models.Identity, rec *models.Record) bool {
	if !rec.Viable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.URL == "" {
		rec.URL = identity.CanonicalURL
	}
	if _, exists := s.byURL[identity.CanonicalURL]; !exists {
		s.order = append(s.order, identity.CanonicalURL)
	}
	s.byURL[identity.CanonicalURL] = rec
	return true
}

// Len returns the number of distinct stored records.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Records returns all stored records in insertion order.
func (s *Sink) Records() []*models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsLocked(0)
}

func (s *Sink) recordsLocked(from int) []*models.Record {
	out := make([]*models.Record, 0, len(s.order)-from)
	for _, url := range s.order[from:] {
		out = append(out, s.byURL[url])
	}
	return out
}

// ExportCSV writes every record in the fixed column order, header first.
// Absent values serialize as empty cells.
func (s *Sink) ExportCSV(path string) error {
	return writeCSV(path, s.Records())
}

// ExportJSON writes the same record set as an indented JSON array. The two
// serializations always describe identical records.
func (s *Sink) ExportJSON(path string) error {
	return writeJSON(path, s.Records())
}

// ExportGroup writes only the records added since the previous group
// boundary to a group-scoped CSV (e.g. one file per city in a batch run),
// then advances the boundary.
func (s *Sink) ExportGroup(group, path string) (int, error) {
	s.mu.Lock()
	records := s.recordsLocked(s.groupStart)
	s.groupStart = len(s.order)
	s.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	if err := writeCSV(path, records); err != nil {
		return 0, fmt.Errorf("export group %s: %w", group, err)
	}
	return len(records), nil
}

func writeCSV(path string, records []*models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("write row %s: %w", rec.URL, err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, records []*models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// csvRow serializes one record in ExportColumns order.
func csvRow(r *models.Record) []string {
	return []string{
		r.URL,
		intCell(r.Price),
		r.RoomType,
		boolCell(r.IsShared),
		boolCell(r.IsPrivate),
		intCell(r.PersonCapacity),
		boolCell(r.HostIsSuperhost),
		boolCell(r.IsMultiListing),
		boolCell(r.IsBusinessReady),
		floatCell(r.CleanlinessRating),
		floatCell(r.OverallRating),
		intCell(r.Bedrooms),
		r.City,
		floatCell(r.Longitude),
		floatCell(r.Latitude),
		intCell(r.Beds),
		intCell(r.Bathrooms),
		boolCell(r.Wifi),
		boolCell(r.Kitchen),
		boolCell(r.AirConditioning),
		boolCell(r.Parking),
		boolCell(r.TV),
		boolCell(r.Heating),
	}
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func boolCell(v bool) string {
	return strconv.FormatBool(v)
}
