package enhance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-spot/enrich-cli/internal/category"
	"github.com/refill-spot/enrich-cli/internal/dedupe"
	"github.com/refill-spot/enrich-cli/internal/geo"
	"github.com/refill-spot/enrich-cli/internal/geocode"
	"github.com/refill-spot/enrich-cli/internal/model"
	"github.com/refill-spot/enrich-cli/internal/price"
	"github.com/refill-spot/enrich-cli/pkg/kakao"
)

// fakeGeocoder returns one canned result for every query.
type fakeGeocoder struct {
	result *kakao.Result
	calls  int
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (*kakao.Result, error) {
	f.calls++
	if f.result == nil {
		return &kakao.Result{Matched: false}, nil
	}
	return f.result, nil
}

func newTestEnhancer(t *testing.T, client kakao.Client, cfg Config) *Enhancer {
	t.Helper()
	mapper, err := category.NewMapper(category.DefaultRules())
	require.NoError(t, err)
	return NewEnhancer(
		geocode.NewManager(client, geo.NewValidator(geo.DefaultConfig()), geocode.DefaultConfig()),
		price.NewNormalizer(price.DefaultConfig()),
		mapper,
		dedupe.NewDetector(dedupe.DefaultConfig()),
		cfg,
	)
}

func TestEnhance_EmptyBatch(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	enhanced, stats := e.Enhance(context.Background(), nil)
	assert.Empty(t, enhanced)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 0, stats.TotalStores)
	assert.Equal(t, 0, stats.GeocodingSuccess)
	assert.Equal(t, 0, stats.PriceNormalized)
	assert.Equal(t, 0, stats.CategoriesMapped)
	assert.Equal(t, 0, stats.DuplicatesRemoved)
}

// The canonical two-listing scenario: same store scraped twice with slightly
// different name, address, and price spellings.
func TestEnhance_EndToEnd(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	records := []*model.StoreRecord{
		{
			Name:          "맛있는 삼겹살집",
			Address:       "서울 강남구 테헤란로 123",
			Price:         "1만5천원",
			RawCategories: []string{"#삼겹살무한리필", "#고기", "#강남맛집"},
		},
		{
			Name:          "맛있는삼겹살집",
			Address:       "서울 강남구 테헤란로 125",
			Price:         "15000원",
			RawCategories: []string{"#무한리필", "#삼겹살"},
		},
	}

	enhanced, stats := e.Enhance(context.Background(), records)

	assert.Equal(t, 2, stats.TotalStores)

	// Both price spellings normalize to the same single price.
	for _, r := range enhanced {
		require.NotNil(t, r.NormalizedPrice)
		assert.Equal(t, model.PriceSingle, r.NormalizedPrice.Type)
		assert.Equal(t, 15000, *r.NormalizedPrice.MinPrice)
		assert.Equal(t, 15000, *r.NormalizedPrice.MaxPrice)
		assert.Contains(t, r.StandardCategories, "고기")
	}

	// Without an API client neither record gains coordinates, so the
	// proximity criteria cannot fire and the pair stays separate. Only a
	// shared phone number could merge them (covered below).
	assert.Len(t, enhanced, 2)
	assert.Equal(t, 0, stats.DuplicatesRemoved)
	assert.Equal(t, 0, stats.GeocodingSuccess)
	assert.Equal(t, 2, stats.PriceNormalized)
	assert.Equal(t, 2, stats.CategoriesMapped)
}

func TestEnhance_EndToEnd_PhoneMerges(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	records := []*model.StoreRecord{
		{Name: "맛있는 삼겹살집", Address: "서울 강남구 테헤란로 123", PhoneNumber: "02-1234-5678", Price: "1만5천원"},
		{Name: "맛있는삼겹살집", Address: "서울 강남구 테헤란로 125", PhoneNumber: "0212345678", Price: "15000원"},
	}

	enhanced, stats := e.Enhance(context.Background(), records)
	assert.Len(t, enhanced, 1)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
}

func TestEnhance_GeocodesViaAPI(t *testing.T) {
	client := &fakeGeocoder{result: &kakao.Result{
		Latitude:         37.4979,
		Longitude:        127.0276,
		FormattedAddress: "서울 강남구 테헤란로 123",
		Confidence:       0.95,
		Matched:          true,
	}}
	e := newTestEnhancer(t, client, DefaultConfig())

	records := []*model.StoreRecord{
		{Name: "가게", Address: "서울 강남구 테헤란로 123"},
	}
	enhanced, stats := e.Enhance(context.Background(), records)

	require.Len(t, enhanced, 1)
	require.True(t, enhanced[0].HasCoordinates())
	assert.Equal(t, geocode.SourceKakao, enhanced[0].GeocodingSource)
	assert.Equal(t, 0.95, enhanced[0].GeocodingConfidence)
	assert.Equal(t, 1, stats.GeocodingSuccess)
	assert.Equal(t, 1, stats.Geocoding.APISuccess)
}

func TestEnhance_ExistingCoordinatesCount(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	r := &model.StoreRecord{Name: "가게", Address: "서울 강남구 테헤란로 123"}
	r.SetCoordinates(37.4979, 127.0276)

	_, stats := e.Enhance(context.Background(), []*model.StoreRecord{r})

	// The counter measures "has coordinates by end of step"; no geocode
	// request is issued for a record that already has them.
	assert.Equal(t, 1, stats.GeocodingSuccess)
	assert.Equal(t, 0, stats.Geocoding.TotalRequests)
}

func TestEnhance_SiblingEstimation(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	donor := &model.StoreRecord{Name: "이웃 가게", Address: "서울 강남구 테헤란로 125"}
	donor.SetCoordinates(37.4980, 127.0270)
	target := &model.StoreRecord{Name: "좌표 없는 가게", Address: "서울 강남구 테헤란로 123"}

	enhanced, stats := e.Enhance(context.Background(), []*model.StoreRecord{donor, target})
	require.Len(t, enhanced, 2)

	var got *model.StoreRecord
	for _, r := range enhanced {
		if r.Name == "좌표 없는 가게" {
			got = r
		}
	}
	require.NotNil(t, got)
	require.True(t, got.HasCoordinates())
	assert.Equal(t, geocode.SourceEstimated, got.GeocodingSource)
	assert.Equal(t, 2, stats.GeocodingSuccess)
	assert.Equal(t, 1, stats.Geocoding.EstimatedSuccess)
}

func TestEnhance_DoesNotMutateInput(t *testing.T) {
	e := newTestEnhancer(t, nil, DefaultConfig())

	records := []*model.StoreRecord{
		{Name: "가게", Price: "15000원", RawCategories: []string{"#삼겹살"}},
	}
	e.Enhance(context.Background(), records)

	assert.Nil(t, records[0].NormalizedPrice)
	assert.Nil(t, records[0].StandardCategories)
}

func TestEnhance_RecordFailureKeepsRaw(t *testing.T) {
	// A nil mapper makes category mapping panic; the per-record guard must
	// contain it and emit the raw record.
	e := NewEnhancer(
		geocode.NewManager(nil, geo.NewValidator(geo.DefaultConfig()), geocode.DefaultConfig()),
		price.NewNormalizer(price.DefaultConfig()),
		nil,
		dedupe.NewDetector(dedupe.DefaultConfig()),
		DefaultConfig(),
	)

	records := []*model.StoreRecord{
		{Name: "가게", Price: "15000원"},
	}
	enhanced, stats := e.Enhance(context.Background(), records)

	require.Len(t, enhanced, 1)
	assert.Equal(t, "가게", enhanced[0].Name)
	assert.Nil(t, enhanced[0].NormalizedPrice)
	assert.Equal(t, 1, stats.TotalStores)
	assert.Equal(t, 0, stats.CategoriesMapped)
}

func TestEnhance_Concurrent(t *testing.T) {
	e := newTestEnhancer(t, nil, Config{Concurrency: 4})

	var records []*model.StoreRecord
	for i := 0; i < 20; i++ {
		records = append(records, &model.StoreRecord{
			Name:  "가게",
			Price: "15000원",
		})
	}
	enhanced, stats := e.Enhance(context.Background(), records)

	assert.Equal(t, 20, stats.TotalStores)
	assert.Equal(t, 20, stats.PriceNormalized)
	for _, r := range enhanced {
		require.NotNil(t, r.NormalizedPrice)
		assert.Equal(t, model.PriceSingle, r.NormalizedPrice.Type)
	}
}

func TestStatsSummary(t *testing.T) {
	stats := EnhancementStats{RunID: "run-1", TotalStores: 10, GeocodingSuccess: 8}
	s := stats.Summary()
	assert.Contains(t, s, "run-1")
	assert.Contains(t, s, "10 stores")
}
