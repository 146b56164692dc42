package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/refill-spot/enrich-cli/internal/category"
	"github.com/refill-spot/enrich-cli/internal/dedupe"
	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/geo"
	"github.com/refill-spot/enrich-cli/internal/geocode"
	"github.com/refill-spot/enrich-cli/internal/price"
	"github.com/refill-spot/enrich-cli/internal/store"
	"github.com/refill-spot/enrich-cli/pkg/kakao"
)

// initStore builds the configured persistence backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "enrich.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildEnhancer assembles the enrichment pipeline from configuration. When
// no Kakao API key is configured, geocoding falls back to sibling
// estimation only. rulesPath optionally overrides the built-in category
// rule table.
func buildEnhancer(rulesPath string) (*enhance.Enhancer, error) {
	var geocodeClient kakao.Client
	if cfg.Kakao.Key != "" {
		timeout := time.Duration(cfg.Kakao.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		geocodeClient = kakao.NewClient(cfg.Kakao.Key,
			kakao.WithBaseURL(cfg.Kakao.BaseURL),
			kakao.WithRateLimit(cfg.Kakao.RateLimit),
			kakao.WithDailyLimit(cfg.Kakao.DailyLimit),
			kakao.WithHTTPClient(&http.Client{Timeout: timeout}),
		)
	}

	validator := geo.NewValidator(cfg.Geo)
	geocoder := geocode.NewManager(geocodeClient, validator, cfg.Geocode)
	normalizer := price.NewNormalizer(cfg.Price)
	detector := dedupe.NewDetector(cfg.Dedupe)

	rules := category.DefaultRules()
	if rulesPath != "" {
		data, err := os.ReadFile(rulesPath)
		if err != nil {
			return nil, eris.Wrapf(err, "read category rules %s", rulesPath)
		}
		rules, err = category.ParseRules(data)
		if err != nil {
			return nil, err
		}
	}
	mapper, err := category.NewMapper(rules)
	if err != nil {
		return nil, err
	}

	return enhance.NewEnhancer(geocoder, normalizer, mapper, detector, cfg.Enhance), nil
}
