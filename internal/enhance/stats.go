package enhance

import (
	"fmt"
	"time"

	"github.com/refill-spot/enrich-cli/internal/geocode"
	"github.com/refill-spot/enrich-cli/internal/price"
)

// EnhancementStats summarizes one enhancement run. Counters measure
// outcomes: GeocodingSuccess counts records that hold coordinates by the
// end of the geocoding step, whether the step produced them or they were
// already present.
type EnhancementStats struct {
	RunID             string        `json:"run_id"`
	TotalStores       int           `json:"total_stores"`
	GeocodingSuccess  int           `json:"geocoding_success"`
	PriceNormalized   int           `json:"price_normalized"`
	CategoriesMapped  int           `json:"categories_mapped"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	ProcessingTime    time.Duration `json:"processing_time"`

	Geocoding geocode.SessionStats `json:"geocoding"`
	Price     price.SessionStats   `json:"price"`
}

// Summary renders a one-screen report of the run.
func (s EnhancementStats) Summary() string {
	pct := func(n int) float64 {
		if s.TotalStores == 0 {
			return 0
		}
		return float64(n) / float64(s.TotalStores) * 100
	}
	return fmt.Sprintf(
		"run %s: %d stores in %s\n"+
			"  geocoded:    %d (%.1f%%)\n"+
			"  priced:      %d (%.1f%%)\n"+
			"  categorized: %d (%.1f%%)\n"+
			"  duplicates removed: %d\n"+
			"  geocode api success rate: %.1f%%, price parse success rate: %.1f%%",
		s.RunID, s.TotalStores, s.ProcessingTime.Round(time.Millisecond),
		s.GeocodingSuccess, pct(s.GeocodingSuccess),
		s.PriceNormalized, pct(s.PriceNormalized),
		s.CategoriesMapped, pct(s.CategoriesMapped),
		s.DuplicatesRemoved,
		s.Geocoding.SuccessRate()*100, s.Price.SuccessRate()*100,
	)
}
