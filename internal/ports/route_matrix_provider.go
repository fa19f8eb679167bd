package ports

import (
	"context"
	"time"

	"fleet-routing-service/internal/domain"
)

// A single origin->destination element of a batched route-matrix response.
// Duration and Distance are pointers because the provider omits them for
// unroutable pairs; an absent Condition means the route exists.
type MatrixElement struct {
	OriginIndex      int
	DestinationIndex int
	Condition        string
	DurationSeconds  *float64
	DistanceMeters   *int64
}

// Routable reports whether the element carries a usable duration and distance.
func (e MatrixElement) Routable() bool {
	return (e.Condition == "" || e.Condition == "ROUTE_EXISTS") &&
		e.DurationSeconds != nil && e.DistanceMeters != nil
}

// Options shared by every block of one matrix build.
type BlockOptions struct {
	RoutingPreference string
	DepartureTime     *time.Time
}

// Contract for fetching one batched block of travel times and distances.
// Block sizes are bounded by the caller to respect provider batch limits.
type RouteMatrixProvider interface {
	// ComputeBlock returns the elements for every origin/destination pair of
	// the block. Elements may be missing for unroutable pairs; provider-level
	// failures surface as *domain.UpstreamError.
	ComputeBlock(
		ctx context.Context,
		origins []domain.Coordinates,
		destinations []domain.Coordinates,
		opts BlockOptions,
	) ([]MatrixElement, error)
}
