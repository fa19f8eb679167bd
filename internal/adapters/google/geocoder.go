package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/platform/obs"
)

// Geocoder resolves free-text addresses through the Google Geocoding API.
// It is a pure lookup with no caching; the matrix builder caches at the
// stop-set level. Safe for concurrent use.
type Geocoder struct {
	session  *http.Client
	apiKey   string
	baseURL  string
	language string
	region   string
}

type GeocoderOptions struct {
	APIKey   string
	BaseURL  string
	Language string
	Region   string
}

func NewGeocoder(opts GeocoderOptions) (*Geocoder, error) {
	if opts.APIKey == "" {
		return nil, errors.New("google geocoder: api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}

	return &Geocoder{
		session:  &http.Client{Timeout: 20 * time.Second},
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		language: opts.Language,
		region:   opts.Region,
	}, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve looks up the coordinates for one address. Non-OK provider
// statuses, empty result sets, and transport failures all surface as
// *domain.ResolutionError.
func (g *Geocoder) Resolve(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "google.geocode")(&err)

	address = strings.Join(strings.Fields(address), " ")
	if address == "" {
		return domain.Coordinates{}, &domain.ResolutionError{Address: address, Status: "EMPTY_ADDRESS"}
	}

	resp, err := doWithRetry(ctx, g.session, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL, nil)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("address", address)
		q.Set("key", g.apiKey)
		if g.language != "" {
			q.Set("language", g.language)
		}
		if g.region != "" {
			q.Set("region", g.region)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("geocode", "error").Inc()
		return domain.Coordinates{}, &domain.ResolutionError{Address: address, Err: err}
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.ProviderRequests.WithLabelValues("geocode", "error").Inc()
		return domain.Coordinates{}, &domain.ResolutionError{Address: address, Err: err}
	}

	if decoded.Status != "OK" || len(decoded.Results) == 0 {
		metrics.ProviderRequests.WithLabelValues("geocode", decoded.Status).Inc()
		return domain.Coordinates{}, &domain.ResolutionError{Address: address, Status: decoded.Status}
	}

	metrics.ProviderRequests.WithLabelValues("geocode", "OK").Inc()
	loc := decoded.Results[0].Geometry.Location
	return domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}
