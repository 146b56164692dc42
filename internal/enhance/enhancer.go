// Package enhance orchestrates the per-record enrichment pipeline and the
// batch-level deduplication that follows it.
package enhance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refill-spot/enrich-cli/internal/category"
	"github.com/refill-spot/enrich-cli/internal/dedupe"
	"github.com/refill-spot/enrich-cli/internal/geocode"
	"github.com/refill-spot/enrich-cli/internal/model"
	"github.com/refill-spot/enrich-cli/internal/price"
)

// Config holds orchestration tunables.
type Config struct {
	// MaxSiblings caps how many nearby records are offered to the geocoder
	// as coordinate donors.
	MaxSiblings int `yaml:"max_siblings" mapstructure:"max_siblings"`
	// MinSharedTokens is how many whitespace-split address tokens two
	// records must share to count as nearby.
	MinSharedTokens int `yaml:"min_shared_tokens" mapstructure:"min_shared_tokens"`
	// Concurrency bounds parallel per-record enhancement. Zero or one means
	// sequential, which is the default.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// DefaultConfig returns the orchestration defaults.
func DefaultConfig() Config {
	return Config{MaxSiblings: 10, MinSharedTokens: 2, Concurrency: 1}
}

// Enhancer runs geocoding, price normalization, and category mapping per
// record, then deduplicates the batch.
type Enhancer struct {
	geocoder   *geocode.Manager
	normalizer *price.Normalizer
	mapper     *category.Mapper
	detector   *dedupe.Detector
	cfg        Config
}

// NewEnhancer assembles the pipeline.
func NewEnhancer(geocoder *geocode.Manager, normalizer *price.Normalizer, mapper *category.Mapper, detector *dedupe.Detector, cfg Config) *Enhancer {
	def := DefaultConfig()
	if cfg.MaxSiblings <= 0 {
		cfg.MaxSiblings = def.MaxSiblings
	}
	if cfg.MinSharedTokens <= 0 {
		cfg.MinSharedTokens = def.MinSharedTokens
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Enhancer{
		geocoder:   geocoder,
		normalizer: normalizer,
		mapper:     mapper,
		detector:   detector,
		cfg:        cfg,
	}
}

// recordOutcome carries per-record counter contributions so the concurrent
// path can aggregate without shared counters.
type recordOutcome struct {
	geocoded    bool
	priced      bool
	categorized bool
}

// Enhance enriches every record and deduplicates the batch. Single-record
// failures never abort the run: a record that cannot be enriched is emitted
// with its raw fields intact. The input slice is not mutated.
func (e *Enhancer) Enhance(ctx context.Context, records []*model.StoreRecord) ([]*model.StoreRecord, EnhancementStats) {
	stats := EnhancementStats{
		RunID:       uuid.NewString(),
		TotalStores: len(records),
	}
	start := time.Now()

	if len(records) == 0 {
		stats.ProcessingTime = time.Since(start)
		return []*model.StoreRecord{}, stats
	}

	geoSess := geocode.NewSession()
	priceSess := price.NewSession()

	enhanced := make([]*model.StoreRecord, len(records))
	outcomes := make([]recordOutcome, len(records))

	if e.cfg.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Concurrency)
		for i := range records {
			g.Go(func() error {
				enhanced[i], outcomes[i] = e.enhanceOne(gctx, records, i, geoSess, priceSess)
				return nil
			})
		}
		// Workers never return errors; Wait only joins them.
		_ = g.Wait()
	} else {
		for i := range records {
			enhanced[i], outcomes[i] = e.enhanceOne(ctx, records, i, geoSess, priceSess)
		}
	}

	for _, o := range outcomes {
		if o.geocoded {
			stats.GeocodingSuccess++
		}
		if o.priced {
			stats.PriceNormalized++
		}
		if o.categorized {
			stats.CategoriesMapped++
		}
	}

	groups := e.detector.FindDuplicates(enhanced)
	deduped := dedupe.MergeDuplicates(enhanced, groups)
	stats.DuplicatesRemoved = len(enhanced) - len(deduped)

	stats.Geocoding = geoSess.Stats()
	stats.Price = priceSess.Stats()
	stats.ProcessingTime = time.Since(start)

	zap.L().Info("enhance: run complete",
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.TotalStores),
		zap.Int("geocoded", stats.GeocodingSuccess),
		zap.Int("duplicates_removed", stats.DuplicatesRemoved),
		zap.Duration("elapsed", stats.ProcessingTime))
	return deduped, stats
}

// enhanceOne enriches a single record. A panic inside any sub-step is
// contained here; the record is emitted unenriched rather than dropped.
func (e *Enhancer) enhanceOne(ctx context.Context, batch []*model.StoreRecord, idx int, geoSess *geocode.Session, priceSess *price.Session) (out *model.StoreRecord, outcome recordOutcome) {
	raw := batch[idx]
	out = raw.Clone()

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("enhance: record enrichment failed, keeping raw fields",
				zap.String("place_id", raw.PlaceID),
				zap.String("name", raw.Name),
				zap.Any("panic", r))
			out = raw.Clone()
			outcome = recordOutcome{}
		}
	}()

	if !out.HasCoordinates() {
		siblings := e.gatherSiblings(batch, idx)
		if result := e.geocoder.GeocodeAddress(ctx, out.Address, siblings, geoSess); result != nil {
			out.SetCoordinates(result.Latitude, result.Longitude)
			out.GeocodingSource = result.Source
			out.GeocodingConfidence = result.Confidence
		}
	}
	outcome.geocoded = out.HasCoordinates()

	hadPrice := out.PriceText() != ""
	extra := append(append([]string(nil), out.MenuItems...), out.RefillItems...)
	info := e.normalizer.Normalize(out.PriceText(), extra, priceSess)
	out.NormalizedPrice = &info
	outcome.priced = hadPrice

	if len(out.RawCategories) > 0 {
		outcome.categorized = true
	}
	out.StandardCategories = e.mapper.Map(out.RawCategories, out.Name, out.MenuItems)

	return out, outcome
}

// gatherSiblings selects up to MaxSiblings records from the batch whose
// addresses share at least MinSharedTokens whitespace tokens with the
// candidate's address.
func (e *Enhancer) gatherSiblings(batch []*model.StoreRecord, idx int) []*model.StoreRecord {
	target := batch[idx]
	if target.Address == "" {
		return nil
	}
	targetTokens := tokenSet(target.Address)

	var siblings []*model.StoreRecord
	for i, r := range batch {
		if i == idx || r == nil || r.Address == "" {
			continue
		}
		if sharedTokens(targetTokens, r.Address) >= e.cfg.MinSharedTokens {
			siblings = append(siblings, r)
			if len(siblings) == e.cfg.MaxSiblings {
				break
			}
		}
	}
	return siblings
}

func tokenSet(addr string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(addr) {
		tokens[t] = struct{}{}
	}
	return tokens
}

func sharedTokens(target map[string]struct{}, addr string) int {
	n := 0
	for _, t := range strings.Fields(addr) {
		if _, ok := target[t]; ok {
			n++
		}
	}
	return n
}
