package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/platform/obs"
	"fleet-routing-service/internal/ports"
)

// MatrixBuilder produces pairwise travel-time/distance matrices for a stop
// set, resolving addresses through the geocoder as needed.
//
// It coordinates:
//   - Coordinate resolution with an optional persistent geocode cache
//   - Whole-matrix caching keyed by a content hash of the input
//   - Batched, bounded-concurrency block fetches against the provider
//
// The builder is safe for concurrent use; identical concurrent requests
// share a single computation via singleflight.
type MatrixBuilder struct {
	geocoder ports.Geocoder
	provider ports.RouteMatrixProvider
	cache    ports.MatrixCache
	geoCache ports.GeocodeCache

	group         singleflight.Group
	batchSize     int
	maxConcurrent int
}

type MatrixBuilderOptions struct {
	BatchSize           int
	MaxConcurrentBlocks int
}

func NewMatrixBuilder(
	geocoder ports.Geocoder,
	provider ports.RouteMatrixProvider,
	cache ports.MatrixCache,
	geoCache ports.GeocodeCache,
	opts MatrixBuilderOptions,
) *MatrixBuilder {
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	if opts.MaxConcurrentBlocks < 1 {
		opts.MaxConcurrentBlocks = 4
	}
	return &MatrixBuilder{
		geocoder:      geocoder,
		provider:      provider,
		cache:         cache,
		geoCache:      geoCache,
		batchSize:     opts.BatchSize,
		maxConcurrent: opts.MaxConcurrentBlocks,
	}
}

type BuildRequest struct {
	Stops              []domain.Stop
	DepartureTime      *time.Time
	RoutingPreference  string
	RequireCoordinates bool
}

// Build returns the travel matrix for the request's stops, from cache when
// an identical stop set was already computed.
func (b *MatrixBuilder) Build(ctx context.Context, req BuildRequest) (_ *domain.TravelMatrix, err error) {
	defer obs.Time(ctx, "matrix.Build")(&err)
	timer := prometheus.NewTimer(metrics.MatrixBuildDuration)
	defer timer.ObserveDuration()

	if len(req.Stops) == 0 {
		return nil, &domain.InvalidInputError{Reason: "stop list is empty"}
	}
	if req.RoutingPreference == "" {
		req.RoutingPreference = "TRAFFIC_AWARE"
	}

	ids := make([]string, len(req.Stops))
	for i, s := range req.Stops {
		ids[i] = s.ID
	}

	coords, err := b.resolveCoordinates(ctx, req)
	if err != nil {
		return nil, err
	}

	key := cacheKey(coords, req.DepartureTime, req.RoutingPreference)

	if m, ok, err := b.cache.Get(ctx, key); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("matrix cache read failed")
	} else if ok {
		metrics.MatrixCacheHits.WithLabelValues("hit").Inc()
		return m, nil
	}
	metrics.MatrixCacheHits.WithLabelValues("miss").Inc()

	// Per-key computation is deduplicated so two requests racing on the same
	// stop set trigger at most one round of provider calls.
	v, err, _ := b.group.Do(key, func() (any, error) {
		if m, ok, err := b.cache.Get(ctx, key); err == nil && ok {
			return m, nil
		}

		m, err := b.compute(ctx, ids, coords, req.DepartureTime, req.RoutingPreference)
		if err != nil {
			return nil, err
		}

		if err := b.cache.Put(ctx, key, m); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("matrix cache write failed")
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.TravelMatrix), nil
}

// normalize ensures consistent geocode cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveCoordinates produces one coordinate per stop: explicit coordinates
// win, then the geocode cache, then the geocoder. Fresh resolutions are
// written back to the cache.
func (b *MatrixBuilder) resolveCoordinates(ctx context.Context, req BuildRequest) ([]domain.Coordinates, error) {
	coords := make([]domain.Coordinates, len(req.Stops))

	// stop indices awaiting resolution, keyed by normalized address
	pending := make(map[string][]int)
	order := make([]string, 0)

	for i, s := range req.Stops {
		switch {
		case s.Coordinate != nil:
			coords[i] = *s.Coordinate
		case req.RequireCoordinates:
			return nil, &domain.InvalidInputError{StopID: s.ID, Reason: "missing lat/lng (geocoding disabled)"}
		case normalize(s.Address) != "":
			addr := normalize(s.Address)
			if _, ok := pending[addr]; !ok {
				order = append(order, addr)
			}
			pending[addr] = append(pending[addr], i)
		default:
			return nil, &domain.InvalidInputError{StopID: s.ID, Reason: "missing both (lat,lng) and address"}
		}
	}

	if len(pending) == 0 {
		return coords, nil
	}

	hits := make(map[string]domain.Coordinates)
	if b.geoCache != nil {
		var err error
		hits, err = b.geoCache.GetMany(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("build matrix: geocode cache: %w", err)
		}
	}

	fresh := make(map[string]domain.Coordinates)
	for _, addr := range order {
		if _, ok := hits[addr]; ok {
			continue
		}
		c, err := b.geocoder.Resolve(ctx, addr)
		if err != nil {
			return nil, err
		}
		fresh[addr] = c
	}

	if b.geoCache != nil && len(fresh) > 0 {
		if err := b.geoCache.PutMany(ctx, fresh); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("geocode cache write failed")
		}
	}

	for addr, idxs := range pending {
		c, ok := hits[addr]
		if !ok {
			c = fresh[addr]
		}
		for _, i := range idxs {
			coords[i] = c
		}
	}
	return coords, nil
}

// cacheKey hashes the rounded coordinate list, departure time, and routing
// preference. Rounding to 6 decimals absorbs floating-point noise from
// repeated geocoding of the same address.
func cacheKey(coords []domain.Coordinates, departureTime *time.Time, routingPreference string) string {
	h := sha256.New()
	for _, c := range coords {
		r := c.Round6()
		fmt.Fprintf(h, "%.6f,%.6f;", r.Lat, r.Lng)
	}
	dep := ""
	if departureTime != nil {
		dep = departureTime.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(h, "|dep=%s|pref=%s", dep, routingPreference)
	return hex.EncodeToString(h.Sum(nil))
}

// compute fetches every origin-block x destination-block pair and merges
// the results into the full matrix. Blocks are independent and each writes
// a disjoint sub-rectangle, so no synchronization is needed beyond the
// errgroup join.
func (b *MatrixBuilder) compute(
	ctx context.Context,
	ids []string,
	coords []domain.Coordinates,
	departureTime *time.Time,
	routingPreference string,
) (*domain.TravelMatrix, error) {
	n := len(coords)
	minutes := make([][]int, n)
	meters := make([][]int, n)
	for i := range minutes {
		minutes[i] = make([]int, n)
		meters[i] = make([]int, n)
	}

	opts := ports.BlockOptions{
		RoutingPreference: routingPreference,
		DepartureTime:     departureTime,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)

	for oStart := 0; oStart < n; oStart += b.batchSize {
		oEnd := min(oStart+b.batchSize, n)
		for dStart := 0; dStart < n; dStart += b.batchSize {
			dEnd := min(dStart+b.batchSize, n)

			oBase, dBase := oStart, dStart
			origins := coords[oStart:oEnd]
			destinations := coords[dStart:dEnd]

			g.Go(func() error {
				elems, err := b.provider.ComputeBlock(gctx, origins, destinations, opts)
				if err != nil {
					return err
				}

				// Entries absent from the response stay at the sentinel.
				for i := 0; i < len(origins); i++ {
					for j := 0; j < len(destinations); j++ {
						minutes[oBase+i][dBase+j] = domain.SentinelMinutes
						meters[oBase+i][dBase+j] = domain.SentinelMeters
					}
				}

				for _, e := range elems {
					if e.OriginIndex < 0 || e.OriginIndex >= len(origins) ||
						e.DestinationIndex < 0 || e.DestinationIndex >= len(destinations) {
						return &domain.UpstreamError{Detail: fmt.Sprintf(
							"element index out of block range: origin=%d destination=%d",
							e.OriginIndex, e.DestinationIndex,
						)}
					}
					if !e.Routable() {
						continue
					}
					minutes[oBase+e.OriginIndex][dBase+e.DestinationIndex] = int(math.Round(*e.DurationSeconds / 60))
					meters[oBase+e.OriginIndex][dBase+e.DestinationIndex] = int(*e.DistanceMeters)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A stop is always at zero cost from itself, whatever the provider says.
	for i := 0; i < n; i++ {
		minutes[i][i] = 0
		meters[i][i] = 0
	}

	return &domain.TravelMatrix{IDs: ids, Minutes: minutes, Meters: meters}, nil
}
