package utils

import (
	"sort"
	"strings"

	"github.com/Ahmed-Esso/airbnb-analytics/models"
)

type CityCount struct {
	City  string
	Count int
}

type SummaryStats struct {
	TotalListings   int
	PricedListings  int
	AveragePrice    float64
	MinimumPrice    int
	MaximumPrice    int
	MostExpensive   *models.Record
	ListingsPerCity []CityCount
	TopRated        []*models.Record
}

// BuildSummaryStats computes run-level stats over the final record set.
// Price aggregates only consider records that actually carry a price.
func BuildSummaryStats(records []*models.Record) SummaryStats {
	stats := SummaryStats{TotalListings: len(records)}
	if len(records) == 0 {
		return stats
	}

	cityCounts := make(map[string]int)
	var totalPrice int

	for _, rec := range records {
		city := strings.TrimSpace(rec.City)
		if city == "" {
			city = "Unknown"
		}
		cityCounts[city]++

		if rec.Price == nil {
			continue
		}
		p := *rec.Price
		totalPrice += p
		if stats.PricedListings == 0 || p < stats.MinimumPrice {
			stats.MinimumPrice = p
		}
		if stats.PricedListings == 0 || p > stats.MaximumPrice {
			stats.MaximumPrice = p
			stats.MostExpensive = rec
		}
		stats.PricedListings++
	}

	if stats.PricedListings > 0 {
		stats.AveragePrice = float64(totalPrice) / float64(stats.PricedListings)
	}

	perCity := make([]CityCount, 0, len(cityCounts))
	for city, count := range cityCounts {
		perCity = append(perCity, CityCount{City: city, Count: count})
	}
	sort.Slice(perCity, func(i, j int) bool {
		if perCity[i].Count == perCity[j].Count {
			return perCity[i].City < perCity[j].City
		}
		return perCity[i].Count > perCity[j].Count
	})
	stats.ListingsPerCity = perCity

	rated := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		if rec.OverallRating != nil {
			rated = append(rated, rec)
		}
	}
	sort.Slice(rated, func(i, j int) bool {
		if *rated[i].OverallRating == *rated[j].OverallRating {
			return rated[i].URL < rated[j].URL
		}
		return *rated[i].OverallRating > *rated[j].OverallRating
	})
	if len(rated) > 5 {
		rated = rated[:5]
	}
	stats.TopRated = rated

	return stats
}
