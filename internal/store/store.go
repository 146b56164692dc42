// Package store persists enhanced store records, category links, and run
// summaries behind a backend-neutral interface.
package store

import (
	"context"

	"github.com/refill-spot/enrich-cli/internal/enhance"
	"github.com/refill-spot/enrich-cli/internal/model"
)

// Filter specifies criteria for listing stores.
type Filter struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
// Records without a place_id cannot be upserted and are skipped.
type Store interface {
	// Stores
	UpsertStores(ctx context.Context, records []*model.StoreRecord) (int, error)
	GetStore(ctx context.Context, placeID string) (*model.StoreRecord, error)
	ListStores(ctx context.Context, filter Filter) ([]model.StoreRecord, error)

	// Runs
	SaveRun(ctx context.Context, stats enhance.EnhancementStats) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
