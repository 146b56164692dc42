// Package geo validates coordinates against known geography.
package geo

import (
	"math"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Bounds are stored as go-geom XY boxes, so X is longitude and Y is latitude.

// koreaBounds is the approximate national bounding box.
var koreaBounds = geom.NewBounds(geom.XY).Set(124.5, 33.0, 132.0, 38.6)

// impossibleBounds are boxes where a restaurant cannot exist. Currently the
// Incheon airport runway area; extend as bad geocodes are discovered.
var impossibleBounds = []*geom.Bounds{
	geom.NewBounds(geom.XY).Set(126.43, 37.44, 126.46, 37.47),
}

// cityCenter pairs a region name appearing in addresses with its center
// point, used to reject geocodes that landed in the wrong city. Ordered so
// lookup is deterministic when an address names more than one city.
type cityCenter struct {
	name     string
	lat, lng float64
}

var cityCenters = []cityCenter{
	{"서울", 37.5665, 126.9780},
	{"부산", 35.1796, 129.0756},
	{"대구", 35.8714, 128.6014},
	{"인천", 37.4563, 126.7052},
	{"광주", 35.1595, 126.8526},
	{"대전", 36.3504, 127.3845},
	{"울산", 35.5384, 129.3114},
}

// Config holds validation tunables.
type Config struct {
	// MaxCityCenterKm rejects a coordinate whose address names a city more
	// than this many kilometers away from the city's center point.
	MaxCityCenterKm float64 `yaml:"max_city_center_km" mapstructure:"max_city_center_km"`
}

// DefaultConfig returns the validation defaults.
func DefaultConfig() Config {
	return Config{MaxCityCenterKm: 50}
}

// Validator checks that a coordinate pair is plausible. It is advisory:
// a false result means the caller should discard the coordinate and fall
// back, never raise.
type Validator struct {
	cfg Config
}

// NewValidator creates a Validator. A zero MaxCityCenterKm gets the default.
func NewValidator(cfg Config) *Validator {
	if cfg.MaxCityCenterKm <= 0 {
		cfg.MaxCityCenterKm = DefaultConfig().MaxCityCenterKm
	}
	return &Validator{cfg: cfg}
}

// Validate reports whether (lat, lng) is a plausible store location.
// If addr is non-empty, the coordinate must also be consistent with any
// city the address names.
func (v *Validator) Validate(lat, lng float64, addr string) bool {
	point := geom.Coord{lng, lat}

	if !koreaBounds.OverlapsPoint(geom.XY, point) {
		zap.L().Warn("geo: coordinate outside national bounds",
			zap.Float64("lat", lat), zap.Float64("lng", lng))
		return false
	}

	for _, b := range impossibleBounds {
		if b.OverlapsPoint(geom.XY, point) {
			zap.L().Warn("geo: coordinate in impossible location",
				zap.Float64("lat", lat), zap.Float64("lng", lng))
			return false
		}
	}

	if addr != "" && !v.matchesAddressCity(addr, lat, lng) {
		zap.L().Warn("geo: coordinate inconsistent with address",
			zap.String("address", addr),
			zap.Float64("lat", lat), zap.Float64("lng", lng))
		return false
	}

	return true
}

// matchesAddressCity checks the coordinate against the center of the first
// city the address mentions. Addresses naming no known city always pass.
func (v *Validator) matchesAddressCity(addr string, lat, lng float64) bool {
	for _, city := range cityCenters {
		if strings.Contains(addr, city.name) {
			return DistanceKm(lat, lng, city.lat, city.lng) <= v.cfg.MaxCityCenterKm
		}
	}
	return true
}

const earthRadiusKm = 6371

// DistanceKm computes the great-circle distance between two points using the
// haversine formula on a spherical earth.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceMeters is DistanceKm in meters, for proximity thresholds.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceKm(lat1, lng1, lat2, lng2) * 1000
}
