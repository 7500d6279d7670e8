package models

// Identity names one listing for dedup purposes. CanonicalURL is the
// listing URL with its query string stripped; ID is the numeric segment of
// the /rooms/ path, or a stable hash substitute when the path carries none.
type Identity struct {
	CanonicalURL string `json:"url"`
	ID           string `json:"id"`
}

// Record holds every field we try to extract from a listing page.
// All fields are independently optional; pointer fields distinguish
// "absent" from a genuine zero.
type Record struct {
	URL string `json:"url"`

	Price    *int   `json:"price"`
	RoomType string `json:"roomType,omitempty"`

	IsShared  bool `json:"isShared"`
	IsPrivate bool `json:"isPrivate"`

	PersonCapacity *int `json:"personCapacity"`
	Bedrooms       *int `json:"bedrooms"`
	Beds           *int `json:"beds"`
	Bathrooms      *int `json:"bathrooms"`

	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	CleanlinessRating *float64 `json:"cleanlinessRating"`
	OverallRating     *float64 `json:"overallRating"`
	ReviewCount       *int     `json:"reviewCount"`

	HostIsSuperhost bool `json:"hostIsSuperhost"`
	IsMultiListing  bool `json:"isMultiListing"`
	IsBusinessReady bool `json:"isBusinessReady"`

	Wifi            bool `json:"wifi"`
	Kitchen         bool `json:"kitchen"`
	AirConditioning bool `json:"airConditioning"`
	Parking         bool `json:"parking"`
	TV              bool `json:"tv"`
	Heating         bool `json:"heating"`
}

// Viable reports whether the record clears the minimum bar for a scrape to
// count at all: at least one of beds or room type made it through.
func (r *Record) Viable() bool {
	return r != nil && (r.Beds != nil || r.RoomType != "")
}

// ExportColumns is the agreed column order for tabular export. It never
// changes with record contents; unset fields serialize as empty cells.
var ExportColumns = []string{
	"url",
	"price",
	"roomType",
	"isShared",
	"isPrivate",
	"personCapacity",
	"hostIsSuperhost",
	"isMultiListing",
	"isBusinessReady",
	"cleanlinessRating",
	"overallRating",
	"bedrooms",
	"city",
	"longitude",
	"latitude",
	"beds",
	"bathrooms",
	"wifi",
	"kitchen",
	"airConditioning",
	"parking",
	"tv",
	"heating",
}

// Task is one unit of work for the orchestrator. The hints come from the
// cheaper list-view signals on the search page and only backfill fields the
// detail-page extraction misses (price) or override ones it gets wrong
// less reliably (city).
type Task struct {
	Identity  Identity
	CityHint  string
	PriceHint *int
}

// TaskResult is sent back from a worker in completion order.
type TaskResult struct {
	Identity Identity
	Record   *Record // nil when the page failed, was an error page, or was skipped
	Err      error
}

// Progress is emitted after each task settles.
type Progress struct {
	Completed int
	Total     int
}
