package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/refill-spot/enrich-cli/internal/db"
	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS stores (
	place_id             TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	address              TEXT NOT NULL DEFAULT '',
	position_lat         DOUBLE PRECISION,
	position_lng         DOUBLE PRECISION,
	phone_number         TEXT NOT NULL DEFAULT '',
	price                TEXT NOT NULL DEFAULT '',
	price_range          TEXT NOT NULL DEFAULT '',
	open_hours           TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	image_urls           JSONB NOT NULL DEFAULT '[]',
	menu_items           JSONB NOT NULL DEFAULT '[]',
	refill_items         JSONB NOT NULL DEFAULT '[]',
	raw_categories       JSONB NOT NULL DEFAULT '[]',
	geocoding_source     TEXT NOT NULL DEFAULT '',
	geocoding_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	normalized_price     JSONB,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS categories (
	id   SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS store_categories (
	store_id    TEXT NOT NULL REFERENCES stores(place_id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (store_id, category_id)
);

CREATE TABLE IF NOT EXISTS enhancement_runs (
	id         TEXT PRIMARY KEY,
	stats      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_stores_name ON stores(name);
CREATE INDEX IF NOT EXISTS idx_store_categories_category ON store_categories(category_id);

INSERT INTO categories (name) VALUES
	('고기'), ('해산물'), ('양식'), ('한식'), ('중식'), ('일식'), ('디저트')
ON CONFLICT (name) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var storeColumns = []string{
	"place_id", "name", "address", "position_lat", "position_lng",
	"phone_number", "price", "price_range", "open_hours", "description",
	"image_urls", "menu_items", "refill_items", "raw_categories",
	"geocoding_source", "geocoding_confidence", "normalized_price", "updated_at",
}

// UpsertStores bulk-upserts records keyed by place_id and refreshes the
// category junction rows. Records without a place_id are skipped; the
// returned count covers only persisted records.
func (s *PostgresStore) UpsertStores(ctx context.Context, records []*model.StoreRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	kept := make([]*model.StoreRecord, 0, len(records))
	now := time.Now().UTC()

	for _, r := range records {
		if r == nil || r.PlaceID == "" {
			continue
		}
		row, err := storeRow(r, now)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
		kept = append(kept, r)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "stores",
		Columns:      storeColumns,
		ConflictKeys: []string{"place_id"},
	}, rows); err != nil {
		return 0, err
	}

	if err := s.refreshCategoryLinks(ctx, kept); err != nil {
		return 0, err
	}
	return len(kept), nil
}

// refreshCategoryLinks replaces the junction rows for the given stores with
// their current standard categories.
func (s *PostgresStore) refreshCategoryLinks(ctx context.Context, records []*model.StoreRecord) error {
	categoryIDs, err := s.categoryIDs(ctx)
	if err != nil {
		return err
	}

	placeIDs := make([]string, len(records))
	for i, r := range records {
		placeIDs[i] = r.PlaceID
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM store_categories WHERE store_id = ANY($1)`, placeIDs,
	); err != nil {
		return eris.Wrap(err, "postgres: clear category links")
	}

	var links [][]any
	for _, r := range records {
		for _, c := range r.StandardCategories {
			id, ok := categoryIDs[c]
			if !ok {
				// Category outside the seeded taxonomy; nothing to link.
				continue
			}
			links = append(links, []any{r.PlaceID, id})
		}
	}
	_, err = db.CopyFrom(ctx, s.pool, "store_categories", []string{"store_id", "category_id"}, links)
	return err
}

func (s *PostgresStore) categoryIDs(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	ids := make(map[string]int)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		ids[name] = id
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate categories")
}

func (s *PostgresStore) GetStore(ctx context.Context, placeID string) (*model.StoreRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM stores WHERE place_id = $1`, placeID,
	)
	r, err := scanStore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListStores(ctx context.Context, filter Filter) ([]model.StoreRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM stores`
	var args []any

	if filter.Category != "" {
		query += ` JOIN store_categories sc ON sc.store_id = stores.place_id
			JOIN categories c ON c.id = sc.category_id AND c.name = $1`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY stores.name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stores")
	}
	defer rows.Close()

	var out []model.StoreRecord
	for rows.Next() {
		r, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list stores iterate")
}

func (s *PostgresStore) SaveRun(ctx context.Context, stats enhance.EnhancementStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stats")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO enhancement_runs (id, stats, created_at) VALUES ($1, $2, $3)`,
		stats.RunID, statsJSON, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save run")
}

// helpers

// Columns are qualified so that list queries can join the categories table
// without making name ambiguous.
const selectColumns = `stores.place_id, stores.name, stores.address, stores.position_lat, stores.position_lng,
	stores.phone_number, stores.price, stores.price_range, stores.open_hours, stores.description,
	stores.image_urls, stores.menu_items, stores.refill_items, stores.raw_categories,
	stores.geocoding_source, stores.geocoding_confidence, stores.normalized_price`

func storeRow(r *model.StoreRecord, now time.Time) ([]any, error) {
	lists := make([][]byte, 0, 4)
	for _, l := range [][]string{r.ImageURLs, r.MenuItems, r.RefillItems, r.RawCategories} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal list field")
		}
		lists = append(lists, b)
	}

	var priceJSON []byte
	if r.NormalizedPrice != nil {
		b, err := json.Marshal(r.NormalizedPrice)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal normalized price")
		}
		priceJSON = b
	}

	return []any{
		r.PlaceID, r.Name, r.Address, r.PositionLat, r.PositionLng,
		r.PhoneNumber, r.Price, r.PriceRange, r.OpenHours, r.Description,
		lists[0], lists[1], lists[2], lists[3],
		r.GeocodingSource, r.GeocodingConfidence, priceJSON, now,
	}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStore(row scannable) (*model.StoreRecord, error) {
	var r model.StoreRecord
	var imageJSON, menuJSON, refillJSON, rawCatJSON, priceJSON []byte

	err := row.Scan(
		&r.PlaceID, &r.Name, &r.Address, &r.PositionLat, &r.PositionLng,
		&r.PhoneNumber, &r.Price, &r.PriceRange, &r.OpenHours, &r.Description,
		&imageJSON, &menuJSON, &refillJSON, &rawCatJSON,
		&r.GeocodingSource, &r.GeocodingConfidence, &priceJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan store")
	}

	for _, f := range []struct {
		data []byte
		dst  *[]string
	}{
		{imageJSON, &r.ImageURLs},
		{menuJSON, &r.MenuItems},
		{refillJSON, &r.RefillItems},
		{rawCatJSON, &r.RawCategories},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal list field")
		}
	}
	if len(priceJSON) > 0 {
		r.NormalizedPrice = &model.PriceInfo{}
		if err := json.Unmarshal(priceJSON, r.NormalizedPrice); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal normalized price")
		}
	}
	return &r, nil
}
