package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func intPtrStore(v int) *int { return &v }

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r := &model.StoreRecord{
		PlaceID:     "p1",
		Name:        "맛있는 삼겹살집",
		Address:     "서울 강남구 테헤란로 123",
		PhoneNumber: "02-1234-5678",
		Price:       "15000원",
		MenuItems:   []string{"삼겹살", "목살"},
		RefillItems: []string{"삼겹살"},
		RawCategories: []string{
			"#삼겹살무한리필",
		},
		GeocodingSource:     "kakao",
		GeocodingConfidence: 0.95,
		NormalizedPrice: &model.PriceInfo{
			Type:     model.PriceSingle,
			MinPrice: intPtrStore(15000),
			MaxPrice: intPtrStore(15000),
			Currency: "KRW",
		},
		StandardCategories: []string{"고기", "한식"},
	}
	r.SetCoordinates(37.4979, 127.0276)

	n, err := s.UpsertStores(ctx, []*model.StoreRecord{r})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetStore(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "맛있는 삼겹살집", got.Name)
	assert.Equal(t, "02-1234-5678", got.PhoneNumber)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 37.4979, *got.PositionLat, 1e-9)
	assert.Equal(t, []string{"삼겹살", "목살"}, got.MenuItems)
	assert.Equal(t, []string{"삼겹살"}, got.RefillItems)
	require.NotNil(t, got.NormalizedPrice)
	assert.Equal(t, model.PriceSingle, got.NormalizedPrice.Type)
	assert.Equal(t, 15000, *got.NormalizedPrice.MinPrice)
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := &model.StoreRecord{PlaceID: "p1", Name: "처음 이름"}
	_, err := s.UpsertStores(ctx, []*model.StoreRecord{first})
	require.NoError(t, err)

	second := &model.StoreRecord{PlaceID: "p1", Name: "바뀐 이름", Price: "9000원"}
	n, err := s.UpsertStores(ctx, []*model.StoreRecord{second})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetStore(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "바뀐 이름", got.Name)
	assert.Equal(t, "9000원", got.Price)

	// Still a single row.
	all, err := s.ListStores(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_UpsertSkipsMissingPlaceID(t *testing.T) {
	s := newTestSQLite(t)

	n, err := s.UpsertStores(context.Background(), []*model.StoreRecord{
		nil,
		{Name: "아이디 없는 가게"},
		{PlaceID: "p1", Name: "정상 가게"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_GetStore_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetStore(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListStores_CategoryFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	records := []*model.StoreRecord{
		{PlaceID: "p1", Name: "가 삼겹살집", StandardCategories: []string{"고기", "한식"}},
		{PlaceID: "p2", Name: "나 초밥집", StandardCategories: []string{"일식", "해산물"}},
		{PlaceID: "p3", Name: "다 정육식당", StandardCategories: []string{"고기"}},
	}
	_, err := s.UpsertStores(ctx, records)
	require.NoError(t, err)

	meat, err := s.ListStores(ctx, Filter{Category: "고기"})
	require.NoError(t, err)
	require.Len(t, meat, 2)
	assert.Equal(t, "가 삼겹살집", meat[0].Name)
	assert.Equal(t, "다 정육식당", meat[1].Name)

	limited, err := s.ListStores(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "나 초밥집", limited[0].Name)
}

func TestSQLiteStore_CategoryLinksReplaced(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r := &model.StoreRecord{PlaceID: "p1", Name: "가게", StandardCategories: []string{"고기"}}
	_, err := s.UpsertStores(ctx, []*model.StoreRecord{r})
	require.NoError(t, err)

	r.StandardCategories = []string{"일식"}
	_, err = s.UpsertStores(ctx, []*model.StoreRecord{r})
	require.NoError(t, err)

	meat, err := s.ListStores(ctx, Filter{Category: "고기"})
	require.NoError(t, err)
	assert.Empty(t, meat)

	jp, err := s.ListStores(ctx, Filter{Category: "일식"})
	require.NoError(t, err)
	assert.Len(t, jp, 1)
}

func TestSQLiteStore_SaveRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	stats := enhance.EnhancementStats{RunID: "run-1", TotalStores: 3}
	require.NoError(t, s.SaveRun(ctx, stats))

	// Run IDs are unique per run.
	err := s.SaveRun(ctx, stats)
	assert.Error(t, err)
}
