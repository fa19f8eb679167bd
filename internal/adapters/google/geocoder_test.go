package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fleet-routing-service/internal/domain"
)

func TestGeocoderResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Tokyo Station", r.URL.Query().Get("address"))
		require.Equal(t, "ja", r.URL.Query().Get("language"))
		require.Equal(t, "JP", r.URL.Query().Get("region"))
		fmt.Fprint(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":35.681236,"lng":139.767125}}}]}`)
	}))
	defer srv.Close()

	g, err := NewGeocoder(GeocoderOptions{APIKey: "k", BaseURL: srv.URL, Language: "ja", Region: "JP"})
	require.NoError(t, err)

	c, err := g.Resolve(context.Background(), "  Tokyo   Station ")
	require.NoError(t, err)
	require.InDelta(t, 35.681236, c.Lat, 1e-9)
	require.InDelta(t, 139.767125, c.Lng, 1e-9)
}

func TestGeocoderResolveZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	}))
	defer srv.Close()

	g, err := NewGeocoder(GeocoderOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Resolve(context.Background(), "nowhere at all")
	var resErr *domain.ResolutionError
	require.True(t, errors.As(err, &resErr))
	require.Equal(t, "ZERO_RESULTS", resErr.Status)
	require.Equal(t, "nowhere at all", resErr.Address)
}

func TestGeocoderResolveRetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":1,"lng":2}}}]}`)
	}))
	defer srv.Close()

	g, err := NewGeocoder(GeocoderOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	c, err := g.Resolve(context.Background(), "somewhere")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, domain.Coordinates{Lat: 1, Lng: 2}, c)
}
