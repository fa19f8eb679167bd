package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/ports"
)

func TestComputeBlockRequestShape(t *testing.T) {
	var got routeMatrixRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "k", r.Header.Get("X-Goog-Api-Key"))
		require.Equal(t,
			"originIndex,destinationIndex,duration,distanceMeters,condition",
			r.Header.Get("X-Goog-FieldMask"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `[{"originIndex":0,"destinationIndex":1,"duration":"120s","distanceMeters":2000}]`)
	}))
	defer srv.Close()

	p, err := NewRouteMatrixProvider(RouteMatrixOptions{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	dep := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	elems, err := p.ComputeBlock(context.Background(),
		[]domain.Coordinates{{Lat: 35.6, Lng: 139.7}, {Lat: 35.7, Lng: 139.8}},
		[]domain.Coordinates{{Lat: 35.6, Lng: 139.7}, {Lat: 35.7, Lng: 139.8}},
		ports.BlockOptions{RoutingPreference: "TRAFFIC_AWARE", DepartureTime: &dep},
	)
	require.NoError(t, err)
	require.Len(t, elems, 1)

	require.Equal(t, "DRIVE", got.TravelMode)
	require.Equal(t, "TRAFFIC_AWARE", got.RoutingPreference)
	require.Equal(t, "2026-08-29T09:00:00Z", got.DepartureTime)
	require.Len(t, got.Origins, 2)
	require.Len(t, got.Destinations, 2)
	require.InDelta(t, 35.6, got.Origins[0].Waypoint.Location.LatLng.Latitude, 1e-9)
}

func TestComputeBlockOmitsDepartureTimeWhenTrafficUnaware(t *testing.T) {
	var got routeMatrixRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	p, err := NewRouteMatrixProvider(RouteMatrixOptions{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	dep := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	_, err = p.ComputeBlock(context.Background(),
		[]domain.Coordinates{{Lat: 1, Lng: 1}},
		[]domain.Coordinates{{Lat: 2, Lng: 2}},
		ports.BlockOptions{RoutingPreference: "TRAFFIC_UNAWARE", DepartureTime: &dep},
	)
	require.NoError(t, err)
	require.Empty(t, got.DepartureTime)
}

func TestComputeBlockHTTPErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key invalid"}}`)
	}))
	defer srv.Close()

	p, err := NewRouteMatrixProvider(RouteMatrixOptions{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	_, err = p.ComputeBlock(context.Background(),
		[]domain.Coordinates{{Lat: 1, Lng: 1}},
		[]domain.Coordinates{{Lat: 2, Lng: 2}},
		ports.BlockOptions{RoutingPreference: "TRAFFIC_UNAWARE"},
	)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusForbidden, upstream.Status)
}

func TestComputeBlockRetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"originIndex":0,"destinationIndex":0,"duration":"0s","distanceMeters":0}]`)
	}))
	defer srv.Close()

	p, err := NewRouteMatrixProvider(RouteMatrixOptions{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	elems, err := p.ComputeBlock(context.Background(),
		[]domain.Coordinates{{Lat: 1, Lng: 1}},
		[]domain.Coordinates{{Lat: 1, Lng: 1}},
		ports.BlockOptions{RoutingPreference: "TRAFFIC_UNAWARE"},
	)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, elems, 1)
}
