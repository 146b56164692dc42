package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// runs without a PostgreSQL server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS stores (
	place_id             TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	address              TEXT NOT NULL DEFAULT '',
	position_lat         REAL,
	position_lng         REAL,
	phone_number         TEXT NOT NULL DEFAULT '',
	price                TEXT NOT NULL DEFAULT '',
	price_range          TEXT NOT NULL DEFAULT '',
	open_hours           TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	image_urls           TEXT NOT NULL DEFAULT '[]',
	menu_items           TEXT NOT NULL DEFAULT '[]',
	refill_items         TEXT NOT NULL DEFAULT '[]',
	raw_categories       TEXT NOT NULL DEFAULT '[]',
	geocoding_source     TEXT NOT NULL DEFAULT '',
	geocoding_confidence REAL NOT NULL DEFAULT 0,
	normalized_price     TEXT,
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS store_categories (
	store_id    TEXT NOT NULL REFERENCES stores(place_id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (store_id, category_id)
);

CREATE TABLE IF NOT EXISTS enhancement_runs (
	id         TEXT PRIMARY KEY,
	stats      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stores_name ON stores(name);
CREATE INDEX IF NOT EXISTS idx_store_categories_category ON store_categories(category_id);

INSERT OR IGNORE INTO categories (name) VALUES
	('고기'), ('해산물'), ('양식'), ('한식'), ('중식'), ('일식'), ('디저트');
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsert = `
INSERT INTO stores (
	place_id, name, address, position_lat, position_lng,
	phone_number, price, price_range, open_hours, description,
	image_urls, menu_items, refill_items, raw_categories,
	geocoding_source, geocoding_confidence, normalized_price, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(place_id) DO UPDATE SET
	name = excluded.name,
	address = excluded.address,
	position_lat = excluded.position_lat,
	position_lng = excluded.position_lng,
	phone_number = excluded.phone_number,
	price = excluded.price,
	price_range = excluded.price_range,
	open_hours = excluded.open_hours,
	description = excluded.description,
	image_urls = excluded.image_urls,
	menu_items = excluded.menu_items,
	refill_items = excluded.refill_items,
	raw_categories = excluded.raw_categories,
	geocoding_source = excluded.geocoding_source,
	geocoding_confidence = excluded.geocoding_confidence,
	normalized_price = excluded.normalized_price,
	updated_at = excluded.updated_at`

// UpsertStores upserts records keyed by place_id inside one transaction and
// rewrites their category junction rows. Records without a place_id are
// skipped.
func (s *SQLiteStore) UpsertStores(ctx context.Context, records []*model.StoreRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	categoryIDs, err := sqliteCategoryIDs(ctx, tx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	saved := 0
	for _, r := range records {
		if r == nil || r.PlaceID == "" {
			continue
		}
		row, err := storeRow(r, now)
		if err != nil {
			return 0, err
		}
		args := make([]any, len(row))
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				args[i] = string(b)
			} else {
				args[i] = v
			}
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsert, args...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert store %s", r.PlaceID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM store_categories WHERE store_id = ?`, r.PlaceID,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: clear category links %s", r.PlaceID)
		}
		for _, c := range r.StandardCategories {
			id, ok := categoryIDs[c]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO store_categories (store_id, category_id) VALUES (?, ?)`,
				r.PlaceID, id,
			); err != nil {
				return 0, eris.Wrapf(err, "sqlite: link category %s", c)
			}
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return saved, nil
}

func sqliteCategoryIDs(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM categories`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list categories")
	}
	defer rows.Close()

	ids := make(map[string]int)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		ids[name] = id
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate categories")
}

func (s *SQLiteStore) GetStore(ctx context.Context, placeID string) (*model.StoreRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM stores WHERE place_id = ?`, placeID,
	)
	r, err := scanSQLiteStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) ListStores(ctx context.Context, filter Filter) ([]model.StoreRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM stores`
	var args []any

	if filter.Category != "" {
		query += ` JOIN store_categories sc ON sc.store_id = stores.place_id
			JOIN categories c ON c.id = sc.category_id AND c.name = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY stores.name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stores")
	}
	defer rows.Close()

	var out []model.StoreRecord
	for rows.Next() {
		r, err := scanSQLiteStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list stores iterate")
}

func (s *SQLiteStore) SaveRun(ctx context.Context, stats enhance.EnhancementStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run stats")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enhancement_runs (id, stats, created_at) VALUES (?, ?, ?)`,
		stats.RunID, string(statsJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save run")
}

// scanSQLiteStore mirrors scanStore but goes through database/sql null
// types, since modernc's driver cannot scan into pointer-to-pointer fields.
func scanSQLiteStore(row scannable) (*model.StoreRecord, error) {
	var r model.StoreRecord
	var lat, lng sql.NullFloat64
	var imageJSON, menuJSON, refillJSON, rawCatJSON string
	var priceJSON sql.NullString

	err := row.Scan(
		&r.PlaceID, &r.Name, &r.Address, &lat, &lng,
		&r.PhoneNumber, &r.Price, &r.PriceRange, &r.OpenHours, &r.Description,
		&imageJSON, &menuJSON, &refillJSON, &rawCatJSON,
		&r.GeocodingSource, &r.GeocodingConfidence, &priceJSON,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan store")
	}

	if lat.Valid && lng.Valid {
		r.SetCoordinates(lat.Float64, lng.Float64)
	}
	for _, f := range []struct {
		data string
		dst  *[]string
	}{
		{imageJSON, &r.ImageURLs},
		{menuJSON, &r.MenuItems},
		{refillJSON, &r.RefillItems},
		{rawCatJSON, &r.RawCategories},
	} {
		if f.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.data), f.dst); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal list field")
		}
	}
	if priceJSON.Valid && priceJSON.String != "" {
		r.NormalizedPrice = &model.PriceInfo{}
		if err := json.Unmarshal([]byte(priceJSON.String), r.NormalizedPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal normalized price")
		}
	}
	return &r, nil
}
