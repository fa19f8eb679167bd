package ports

import (
	"context"

	"fleet-routing-service/internal/domain"
)

// Cache for finished travel matrices, keyed by a content hash of the
// rounded coordinates, departure time, and routing preference.
type MatrixCache interface {
	// Get returns the cached matrix for key. ok=false if missing.
	Get(ctx context.Context, key string) (m *domain.TravelMatrix, ok bool, err error)
	// Put stores the matrix under key.
	Put(ctx context.Context, key string, m *domain.TravelMatrix) error
}

// Cache mapping normalized addresses to coordinates. Keys are expected to
// be consistent (e.g., already normalized) by the caller.
type GeocodeCache interface {
	// Fetch cached coordinates for the given addresses.
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	// Store address -> coordinate mappings in the cache.
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
