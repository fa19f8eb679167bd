package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/platform/obs"
	"fleet-routing-service/internal/ports"
)

// RouteMatrixProvider fetches batched travel-time/distance blocks from the
// Google Routes API (distanceMatrix/v2:computeRouteMatrix).
//
// It coordinates:
//   - Request construction with the field mask the builder needs
//   - External API calls with retry/backoff and rate limiting
//   - Tolerant response parsing (JSON array or NDJSON stream)
//
// The provider is safe for concurrent use.
type RouteMatrixProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

type RouteMatrixOptions struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
}

func NewRouteMatrixProvider(opts RouteMatrixOptions) (*RouteMatrixProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("google routes: api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}

	return &RouteMatrixProvider{
		session: &http.Client{Timeout: 90 * time.Second},
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}, nil
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type waypoint struct {
	Waypoint struct {
		Location struct {
			LatLng latLng `json:"latLng"`
		} `json:"location"`
	} `json:"waypoint"`
}

type routeMatrixRequest struct {
	Origins           []waypoint `json:"origins"`
	Destinations      []waypoint `json:"destinations"`
	TravelMode        string     `json:"travelMode"`
	RoutingPreference string     `json:"routingPreference"`
	DepartureTime     string     `json:"departureTime,omitempty"`
}

func toWaypoints(coords []domain.Coordinates) []waypoint {
	out := make([]waypoint, len(coords))
	for i, c := range coords {
		out[i].Waypoint.Location.LatLng = latLng{Latitude: c.Lat, Longitude: c.Lng}
	}
	return out
}

// ComputeBlock fetches one origin-block x destination-block request and
// returns the normalized elements. Provider-level failures (HTTP errors,
// error payloads, malformed lines) surface as *domain.UpstreamError.
func (p *RouteMatrixProvider) ComputeBlock(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
	opts ports.BlockOptions,
) (_ []ports.MatrixElement, err error) {
	defer obs.Time(ctx, "google.computeRouteMatrix")(&err)

	if len(origins) == 0 || len(destinations) == 0 {
		return nil, errors.New("compute block: origins and destinations must be non-empty")
	}

	body := routeMatrixRequest{
		Origins:           toWaypoints(origins),
		Destinations:      toWaypoints(destinations),
		TravelMode:        "DRIVE",
		RoutingPreference: opts.RoutingPreference,
	}
	// The API rejects a departure time under TRAFFIC_UNAWARE.
	if opts.DepartureTime != nil && opts.RoutingPreference != "TRAFFIC_UNAWARE" {
		body.DepartureTime = opts.DepartureTime.UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &domain.UpstreamError{Detail: "marshal route matrix request", Err: err}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := doWithRetry(ctx, p.session, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", p.apiKey)
		req.Header.Set("X-Goog-FieldMask", "originIndex,destinationIndex,duration,distanceMeters,condition")
		return req, nil
	})
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("route_matrix", "error").Inc()
		var he *httpStatusError
		if errors.As(err, &he) {
			return nil, &domain.UpstreamError{Status: he.Code, Detail: truncate(he.Body, 400)}
		}
		return nil, &domain.UpstreamError{Detail: "route matrix request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("route_matrix", "error").Inc()
		return nil, &domain.UpstreamError{Detail: "read route matrix response", Err: err}
	}

	elems, err := parseRouteMatrixBody(raw)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("route_matrix", "error").Inc()
		return nil, err
	}

	metrics.ProviderRequests.WithLabelValues("route_matrix", "OK").Inc()
	return elems, nil
}
