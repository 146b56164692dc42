// Package geocode orchestrates address geocoding with validation and
// sibling-based fallback estimation.
package geocode

import (
	"context"

	"go.uber.org/zap"

	"github.com/refill-spot/enrich-cli/internal/address"
	"github.com/refill-spot/enrich-cli/internal/geo"
	"github.com/refill-spot/enrich-cli/internal/model"
	"github.com/refill-spot/enrich-cli/pkg/kakao"
)

// Source values attached to geocoding results.
const (
	SourceKakao     = "kakao"
	SourceEstimated = "estimated"
)

// Config holds geocoding tunables.
type Config struct {
	// EstimateConfidence is the fixed confidence assigned to coordinates
	// borrowed from a sibling record.
	EstimateConfidence float64 `yaml:"estimate_confidence" mapstructure:"estimate_confidence"`
}

// DefaultConfig returns the geocoding defaults.
func DefaultConfig() Config {
	return Config{EstimateConfidence: 0.6}
}

// Manager resolves addresses to coordinates: normalize, query the API,
// validate, and fall back to estimating from sibling records. Managers are
// stateless and safe for concurrent use; per-run counters live on the
// Session passed to each call.
type Manager struct {
	client    kakao.Client
	validator *geo.Validator
	cfg       Config
}

// NewManager creates a Manager. client may be nil, in which case only
// sibling estimation is attempted.
func NewManager(client kakao.Client, validator *geo.Validator, cfg Config) *Manager {
	if cfg.EstimateConfidence <= 0 {
		cfg.EstimateConfidence = DefaultConfig().EstimateConfidence
	}
	return &Manager{client: client, validator: validator, cfg: cfg}
}

// GeocodeAddress resolves addr to coordinates. A nil result means the
// coordinates remain unknown; it is never an error condition for the batch.
// Siblings, when provided, are used both to backfill a missing region and as
// coordinate donors for the estimation fallback.
func (m *Manager) GeocodeAddress(ctx context.Context, addr string, siblings []*model.StoreRecord, sess *Session) *model.GeocodingResult {
	sess.addRequest()

	if addr == "" {
		sess.addNotFound()
		return nil
	}

	normalized := address.Normalize(addr)
	enhanced := address.EnhanceIncomplete(normalized, siblings)

	if m.client != nil {
		result, err := m.client.Geocode(ctx, enhanced)
		switch {
		case err != nil:
			// Transport failure is a miss; the fallback below still runs.
			zap.L().Warn("geocode: api request failed",
				zap.String("address", enhanced), zap.Error(err))
		case result.Matched:
			if m.validator.Validate(result.Latitude, result.Longitude, enhanced) {
				sess.addAPISuccess()
				return &model.GeocodingResult{
					Latitude:         result.Latitude,
					Longitude:        result.Longitude,
					FormattedAddress: result.FormattedAddress,
					Confidence:       result.Confidence,
					Source:           SourceKakao,
				}
			}
			sess.addValidationFailed()
			zap.L().Warn("geocode: api result rejected by validation",
				zap.String("address", enhanced),
				zap.Float64("lat", result.Latitude),
				zap.Float64("lng", result.Longitude))
		}
	}

	if est := m.estimateFromSiblings(enhanced, siblings); est != nil {
		sess.addEstimated()
		return est
	}

	sess.addNotFound()
	zap.L().Debug("geocode: no result", zap.String("address", addr))
	return nil
}

// estimateFromSiblings borrows coordinates from the most address-similar
// sibling on the same road or in the same neighborhood. Returns nil when no
// sibling qualifies.
func (m *Manager) estimateFromSiblings(addr string, siblings []*model.StoreRecord) *model.GeocodingResult {
	target := address.Extract(addr)

	var best *model.StoreRecord
	bestSim := -1.0
	for _, s := range siblings {
		if s == nil || !s.HasCoordinates() || s.Address == "" {
			continue
		}
		sc := address.Extract(s.Address)
		sameRoad := target.Road != "" && target.Road == sc.Road
		sameDong := target.Neighborhood != "" && target.Neighborhood == sc.Neighborhood
		if !sameRoad && !sameDong {
			continue
		}
		if sim := address.Similarity(addr, s.Address); sim > bestSim {
			bestSim = sim
			best = s
		}
	}
	if best == nil {
		return nil
	}

	return &model.GeocodingResult{
		Latitude:         *best.PositionLat,
		Longitude:        *best.PositionLng,
		FormattedAddress: addr,
		Confidence:       m.cfg.EstimateConfidence,
		Source:           SourceEstimated,
	}
}
