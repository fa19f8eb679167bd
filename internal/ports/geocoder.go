package ports

import (
	"context"

	"fleet-routing-service/internal/domain"
)

// Contract for resolving a free-text address to geographic coordinates.
// Implementations perform an outbound provider call and nothing else;
// caching happens at the stop-set level in the matrix builder.
type Geocoder interface {
	// Resolve returns the coordinates for the given address or a
	// *domain.ResolutionError when the address cannot be matched.
	Resolve(ctx context.Context, address string) (domain.Coordinates, error)
}
