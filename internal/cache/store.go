package cache

import (
	"context"
	"time"

	"blockdates/internal/models"
)

// Entry is one cached sub-range result. Entries are replaced wholesale,
// never mutated in place.
type Entry struct {
	Payload   []models.BlockedDate `json:"payload"`
	Tier      models.CacheTier     `json:"tier"`
	CreatedAt time.Time            `json:"created_at"`
	Version   uint64               `json:"version"`
}

// Store is the physical cache backend. Implementations: in-memory map and
// Redis. Backend failures surface as errors; the Manager degrades them to
// misses so a broken backend never fails a query.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
