package geo

import (
	"sort"

	"github.com/example/minglin/internal/models"
)

// FilterByRadius keeps only deals whose location lies within radiusKm of the
// origin and orders them nearest first. Deals without a location never match
// a radius filter. Filtering distance is the true great-circle distance, not
// the display approximation.
func FilterByRadius(deals []models.Deal, lat, lon, radiusKm float64) []models.Deal {
	type scored struct {
		deal     models.Deal
		distance float64
	}

	matched := make([]scored, 0, len(deals))
	for _, deal := range deals {
		if !deal.HasLocation() {
			continue
		}
		d := HaversineKm(lat, lon, *deal.Latitude, *deal.Longitude)
		if d <= radiusKm {
			matched = append(matched, scored{deal: deal, distance: d})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].distance < matched[j].distance
	})

	result := make([]models.Deal, 0, len(matched))
	for _, m := range matched {
		result = append(result, m.deal)
	}
	return result
}
