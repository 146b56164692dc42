package model

// PriceType classifies how a free-text price string was interpreted.
type PriceType string

// Price classifications, in rough order of how much structure was recovered.
const (
	PriceSingle      PriceType = "single"
	PriceRange       PriceType = "range"
	PriceTimeBased   PriceType = "time_based"
	PriceConditional PriceType = "conditional"
	PriceInquiry     PriceType = "inquiry"
	PriceUnknown     PriceType = "unknown"
)

// PriceBand is a min/max pair for one time slot.
type PriceBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// PriceInfo is a normalized price record. Invariants: for single,
// MinPrice == MaxPrice; for range and time_based, MinPrice <= MaxPrice;
// for inquiry and unknown both prices are nil.
type PriceInfo struct {
	Type         PriceType            `json:"price_type"`
	MinPrice     *int                 `json:"min_price,omitempty"`
	MaxPrice     *int                 `json:"max_price,omitempty"`
	Currency     string               `json:"currency"`
	TimeBased    map[string]PriceBand `json:"time_based,omitempty"`
	Conditions   string               `json:"conditions,omitempty"`
	OriginalText string               `json:"original_text,omitempty"`
	Confidence   float64              `json:"confidence"`
}

// Clone returns a deep copy of the price info.
func (p *PriceInfo) Clone() *PriceInfo {
	c := *p
	if p.MinPrice != nil {
		v := *p.MinPrice
		c.MinPrice = &v
	}
	if p.MaxPrice != nil {
		v := *p.MaxPrice
		c.MaxPrice = &v
	}
	if p.TimeBased != nil {
		c.TimeBased = make(map[string]PriceBand, len(p.TimeBased))
		for k, v := range p.TimeBased {
			c.TimeBased[k] = v
		}
	}
	return &c
}

// HasPrice reports whether at least one bound was recovered.
func (p *PriceInfo) HasPrice() bool {
	return p.MinPrice != nil || p.MaxPrice != nil
}
