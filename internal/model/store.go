// Package model defines the record types flowing through the enrichment pipeline.
package model

// StoreRecord is a single scraped restaurant listing. Every field except
// PlaceID is optional; empty values mean "the scraper did not find this",
// never an error. Coordinates are pointers so that absence is distinguishable
// from (0, 0).
type StoreRecord struct {
	PlaceID     string   `json:"place_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Address     string   `json:"address,omitempty"`
	PositionLat *float64 `json:"position_lat,omitempty"`
	PositionLng *float64 `json:"position_lng,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	Price       string   `json:"price,omitempty"`
	PriceRange  string   `json:"price_range,omitempty"`
	OpenHours   string   `json:"open_hours,omitempty"`
	Description string   `json:"description,omitempty"`

	ImageURLs     []string `json:"image_urls,omitempty"`
	MenuItems     []string `json:"menu_items,omitempty"`
	RefillItems   []string `json:"refill_items,omitempty"`
	RawCategories []string `json:"raw_categories,omitempty"`

	// Enrichment output. Populated by the enhancer, empty on raw input.
	GeocodingSource     string     `json:"geocoding_source,omitempty"`
	GeocodingConfidence float64    `json:"geocoding_confidence,omitempty"`
	NormalizedPrice     *PriceInfo `json:"normalized_price,omitempty"`
	StandardCategories  []string   `json:"standard_categories,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *StoreRecord) HasCoordinates() bool {
	return r.PositionLat != nil && r.PositionLng != nil
}

// SetCoordinates stores a lat/lng pair on the record.
func (r *StoreRecord) SetCoordinates(lat, lng float64) {
	r.PositionLat = &lat
	r.PositionLng = &lng
}

// PriceText returns the first non-empty of the price and price-range fields.
func (r *StoreRecord) PriceText() string {
	if r.Price != "" {
		return r.Price
	}
	return r.PriceRange
}

// Clone returns a deep copy of the record. Merge mutates its survivor, so
// callers that need the original intact copy first.
func (r *StoreRecord) Clone() *StoreRecord {
	c := *r
	if r.PositionLat != nil {
		lat := *r.PositionLat
		c.PositionLat = &lat
	}
	if r.PositionLng != nil {
		lng := *r.PositionLng
		c.PositionLng = &lng
	}
	c.ImageURLs = append([]string(nil), r.ImageURLs...)
	c.MenuItems = append([]string(nil), r.MenuItems...)
	c.RefillItems = append([]string(nil), r.RefillItems...)
	c.RawCategories = append([]string(nil), r.RawCategories...)
	c.StandardCategories = append([]string(nil), r.StandardCategories...)
	if r.NormalizedPrice != nil {
		p := r.NormalizedPrice.Clone()
		c.NormalizedPrice = p
	}
	return &c
}

// GeocodingResult is the outcome of one geocode attempt. It is merged into
// the enhanced record and never persisted standalone.
type GeocodingResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	Confidence       float64 `json:"confidence"`
	Source           string  `json:"source"` // "kakao" or "estimated"
}
