package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-spot/enrich-cli/internal/model"
)

func TestCompletenessScore(t *testing.T) {
	assert.Equal(t, 0.0, CompletenessScore(nil))
	assert.Equal(t, 0.0, CompletenessScore(&model.StoreRecord{}))

	full := storeAt("가게", 37.5, 127.0)
	full.Address = "서울 강남구 테헤란로 123"
	full.PhoneNumber = "02-1234-5678"
	full.OpenHours = "11:00-22:00"
	full.Price = "15000원"
	full.ImageURLs = []string{"http://img"}
	full.MenuItems = []string{"삼겹살"}
	full.Description = "무한리필 전문점"
	assert.InDelta(t, 6.3, CompletenessScore(full), 1e-9)

	// Coordinates only count as a pair.
	half := &model.StoreRecord{Name: "가게"}
	lat := 37.5
	half.PositionLat = &lat
	assert.InDelta(t, 1.0, CompletenessScore(half), 1e-9)
}

func TestMergeDuplicates_SurvivorByCompleteness(t *testing.T) {
	sparse := &model.StoreRecord{
		Name:        "맛있는삼겹살집",
		PhoneNumber: "02-1234-5678",
		MenuItems:   []string{"삼겹살"},
	}
	rich := storeAt("맛있는 삼겹살집", 37.4979, 127.0276)
	rich.Address = "서울 강남구 테헤란로 123"
	rich.MenuItems = []string{"목살"}

	merged := MergeDuplicates([]*model.StoreRecord{sparse, rich}, [][]int{{0, 1}})
	require.Len(t, merged, 1)

	out := merged[0]
	// The richer record survives and backfills from the sparse one.
	assert.Equal(t, "맛있는 삼겹살집", out.Name)
	assert.Equal(t, "02-1234-5678", out.PhoneNumber)
	assert.Equal(t, "서울 강남구 테헤란로 123", out.Address)
	// List fields accumulate as a union.
	assert.ElementsMatch(t, []string{"목살", "삼겹살"}, out.MenuItems)
}

func TestMergeDuplicates_DoesNotMutateInputs(t *testing.T) {
	a := storeAt("가게", 37.5, 127.0)
	a.MenuItems = []string{"하나"}
	b := &model.StoreRecord{Name: "가게", MenuItems: []string{"둘"}}

	MergeDuplicates([]*model.StoreRecord{a, b}, [][]int{{0, 1}})
	assert.Equal(t, []string{"하나"}, a.MenuItems)
	assert.Equal(t, []string{"둘"}, b.MenuItems)
}

func TestMergeDuplicates_PreservesOrderAndPassthrough(t *testing.T) {
	r0 := &model.StoreRecord{Name: "첫번째"}
	r1 := storeAt("중복 가게", 37.5, 127.0)
	r2 := &model.StoreRecord{Name: "중복 가게"}
	r3 := &model.StoreRecord{Name: "마지막"}

	merged := MergeDuplicates([]*model.StoreRecord{r0, r1, r2, r3}, [][]int{{1, 2}})
	require.Len(t, merged, 3)
	assert.Equal(t, "첫번째", merged[0].Name)
	assert.Equal(t, "중복 가게", merged[1].Name)
	assert.True(t, merged[1].HasCoordinates())
	assert.Equal(t, "마지막", merged[2].Name)
	// Untouched records pass through by reference.
	assert.Same(t, r0, merged[0])
	assert.Same(t, r3, merged[2])
}

func TestMergeDuplicates_CoordinateBackfill(t *testing.T) {
	noCoords := &model.StoreRecord{
		Name:    "가게",
		Address: "서울 강남구 테헤란로 123",
		Price:   "15000원",
		Description: "상세 설명",
		OpenHours:   "11:00-22:00",
	}
	withCoords := storeAt("가게", 37.4979, 127.0276)
	withCoords.GeocodingSource = "kakao"
	withCoords.GeocodingConfidence = 0.9

	merged := MergeDuplicates([]*model.StoreRecord{noCoords, withCoords}, [][]int{{0, 1}})
	require.Len(t, merged, 1)

	out := merged[0]
	// The text-rich record wins but borrows the coordinate pair with its
	// provenance.
	assert.Equal(t, "서울 강남구 테헤란로 123", out.Address)
	require.True(t, out.HasCoordinates())
	assert.InDelta(t, 37.4979, *out.PositionLat, 1e-9)
	assert.Equal(t, "kakao", out.GeocodingSource)
	assert.Equal(t, 0.9, out.GeocodingConfidence)
}

func TestMergeDuplicates_Idempotent(t *testing.T) {
	d := NewDetector(DefaultConfig())

	a := storeAt("맛있는 삼겹살집", 37.4979, 127.0276)
	b := storeAt("맛있는삼겹살집", 37.49808, 127.0276)
	records := []*model.StoreRecord{a, b}

	groups := d.FindDuplicates(records)
	require.Len(t, groups, 1)
	merged := MergeDuplicates(records, groups)
	require.Len(t, merged, 1)

	// Re-running detection on the merged output finds nothing further.
	assert.Empty(t, d.FindDuplicates(merged))
}

func TestUnionLists(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, unionLists([]string{"a", "b"}, nil))
	assert.Equal(t, []string{"a", "b", "c"}, unionLists([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, unionLists(nil, []string{"a", "a"}))
}
