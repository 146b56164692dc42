package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newValidator() *Validator {
	return NewValidator(DefaultConfig())
}

func TestValidate_OutsideNationalBounds(t *testing.T) {
	v := newValidator()

	assert.False(t, v.Validate(0, 0, ""))
	assert.False(t, v.Validate(35.6762, 139.6503, ""))   // Tokyo
	assert.False(t, v.Validate(-37.5665, 126.9780, "")) // sign flip
}

func TestValidate_ValidCityCenter(t *testing.T) {
	v := newValidator()

	assert.True(t, v.Validate(37.5665, 126.9780, "")) // Seoul city hall
	assert.True(t, v.Validate(35.1796, 129.0756, "")) // Busan
}

func TestValidate_ImpossibleLocation(t *testing.T) {
	v := newValidator()

	// Incheon airport runway area.
	assert.False(t, v.Validate(37.455, 126.445, ""))
}

func TestValidate_AddressCityConsistency(t *testing.T) {
	v := newValidator()

	// Seoul coordinates with a Seoul address pass.
	assert.True(t, v.Validate(37.5665, 126.9780, "서울 강남구 테헤란로 123"))
	// Seoul coordinates with a Busan address are rejected.
	assert.False(t, v.Validate(37.5665, 126.9780, "부산 해운대구 우동 123"))
	// Address naming no known city passes on bounds alone.
	assert.True(t, v.Validate(37.5665, 126.9780, "제주 애월읍 123"))
}

func TestValidate_CityRadiusConfig(t *testing.T) {
	// A very tight radius rejects even correct coordinates away from the
	// center point.
	v := NewValidator(Config{MaxCityCenterKm: 1})
	assert.False(t, v.Validate(37.5000, 126.9000, "서울 강서구 공항대로 100"))
}

func TestDistanceKm(t *testing.T) {
	// Seoul to Busan is roughly 325 km.
	d := DistanceKm(37.5665, 126.9780, 35.1796, 129.0756)
	assert.InDelta(t, 325, d, 15)

	assert.Equal(t, 0.0, DistanceKm(37.5, 127.0, 37.5, 127.0))
}

func TestDistanceMeters(t *testing.T) {
	// ~0.0009 degrees of latitude is about 100 m.
	d := DistanceMeters(37.5665, 126.9780, 37.5674, 126.9780)
	assert.InDelta(t, 100, d, 5)
}
