package dedupe

import (
	"go.uber.org/zap"

	"github.com/refill-spot/enrich-cli/internal/model"
)

// Completeness weights. Coordinates only count when both are present.
const (
	weightName        = 1.0
	weightAddress     = 1.0
	weightCoordinates = 2.0
	weightPhone       = 0.5
	weightHours       = 0.5
	weightPrice       = 0.5
	weightImages      = 0.3
	weightMenu        = 0.3
	weightDescription = 0.2
)

// CompletenessScore rates how fully populated a record is. The most
// complete member of a duplicate group survives the merge.
func CompletenessScore(r *model.StoreRecord) float64 {
	if r == nil {
		return 0
	}
	score := 0.0
	if r.Name != "" {
		score += weightName
	}
	if r.Address != "" {
		score += weightAddress
	}
	if r.HasCoordinates() {
		score += weightCoordinates
	}
	if r.PhoneNumber != "" {
		score += weightPhone
	}
	if r.OpenHours != "" {
		score += weightHours
	}
	if r.PriceText() != "" {
		score += weightPrice
	}
	if len(r.ImageURLs) > 0 {
		score += weightImages
	}
	if len(r.MenuItems) > 0 {
		score += weightMenu
	}
	if r.Description != "" {
		score += weightDescription
	}
	return score
}

// MergeDuplicates collapses each group into its most complete member,
// backfilling empty fields from the others and taking the union of list
// fields. Records outside any group pass through unchanged; output keeps
// the input order of the surviving records.
func MergeDuplicates(records []*model.StoreRecord, groups [][]int) []*model.StoreRecord {
	absorbed := make(map[int]struct{})
	merged := make(map[int]*model.StoreRecord)

	for _, group := range groups {
		survivor := group[0]
		best := CompletenessScore(records[survivor])
		for _, idx := range group[1:] {
			if score := CompletenessScore(records[idx]); score > best {
				best = score
				survivor = idx
			}
		}

		out := records[survivor].Clone()
		for _, idx := range group {
			if idx == survivor {
				continue
			}
			absorbed[idx] = struct{}{}
			fillEmpty(out, records[idx])
		}
		merged[survivor] = out

		zap.L().Debug("dedupe: merged group",
			zap.Int("members", len(group)),
			zap.String("survivor", out.Name))
	}

	result := make([]*model.StoreRecord, 0, len(records)-len(absorbed))
	for i, r := range records {
		if _, gone := absorbed[i]; gone {
			continue
		}
		if m, ok := merged[i]; ok {
			result = append(result, m)
			continue
		}
		result = append(result, r)
	}
	return result
}

// fillEmpty copies fields that are empty on dst and populated on src.
// Scalars are first-writer-wins across group members; the named list
// fields accumulate as a union instead.
func fillEmpty(dst, src *model.StoreRecord) {
	if src == nil {
		return
	}
	if dst.PlaceID == "" {
		dst.PlaceID = src.PlaceID
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Address == "" {
		dst.Address = src.Address
	}
	if !dst.HasCoordinates() && src.HasCoordinates() {
		dst.SetCoordinates(*src.PositionLat, *src.PositionLng)
		dst.GeocodingSource = src.GeocodingSource
		dst.GeocodingConfidence = src.GeocodingConfidence
	}
	if dst.PhoneNumber == "" {
		dst.PhoneNumber = src.PhoneNumber
	}
	if dst.Price == "" {
		dst.Price = src.Price
	}
	if dst.PriceRange == "" {
		dst.PriceRange = src.PriceRange
	}
	if dst.OpenHours == "" {
		dst.OpenHours = src.OpenHours
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.NormalizedPrice == nil && src.NormalizedPrice != nil {
		dst.NormalizedPrice = src.NormalizedPrice.Clone()
	}

	dst.ImageURLs = unionLists(dst.ImageURLs, src.ImageURLs)
	dst.MenuItems = unionLists(dst.MenuItems, src.MenuItems)
	dst.RefillItems = unionLists(dst.RefillItems, src.RefillItems)
	dst.RawCategories = unionLists(dst.RawCategories, src.RawCategories)
	dst.StandardCategories = unionLists(dst.StandardCategories, src.StandardCategories)
}

// unionLists appends elements of b not already in a, preserving order.
func unionLists(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		a = append(a, s)
	}
	return a
}
