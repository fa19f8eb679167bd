package google

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"fleet-routing-service/internal/domain"
)

func TestParseRouteMatrixBodyArray(t *testing.T) {
	body := `[
		{"originIndex":0,"destinationIndex":1,"condition":"ROUTE_EXISTS","duration":"600s","distanceMeters":8000},
		{"originIndex":1,"destinationIndex":0,"condition":"ROUTE_NOT_FOUND"}
	]`

	elems, err := parseRouteMatrixBody([]byte(body))
	require.NoError(t, err)
	require.Len(t, elems, 2)

	require.True(t, elems[0].Routable())
	require.Equal(t, 0, elems[0].OriginIndex)
	require.Equal(t, 1, elems[0].DestinationIndex)
	require.Equal(t, 600.0, *elems[0].DurationSeconds)
	require.Equal(t, int64(8000), *elems[0].DistanceMeters)

	require.False(t, elems[1].Routable())
}

func TestParseRouteMatrixBodyNDJSON(t *testing.T) {
	body := ")]}'\n[\n" +
		`{"originIndex":0,"destinationIndex":0,"duration":"0s","distanceMeters":0},` + "\n" +
		`{"destinationIndex":1,"condition":"ROUTE_EXISTS","duration":"90s","distanceMeters":1500}` + "\n" +
		"]\n"

	elems, err := parseRouteMatrixBody([]byte(body))
	require.NoError(t, err)
	require.Len(t, elems, 2)

	// proto3 JSON omits zero-valued indices; they default correctly.
	require.Equal(t, 0, elems[1].OriginIndex)
	require.Equal(t, 1, elems[1].DestinationIndex)
	require.Equal(t, 90.0, *elems[1].DurationSeconds)
}

func TestParseRouteMatrixBodyErrorPayloads(t *testing.T) {
	var upstream *domain.UpstreamError

	_, err := parseRouteMatrixBody([]byte(`[{"error":{"code":403,"message":"denied"}}]`))
	require.Error(t, err)
	require.True(t, errors.As(err, &upstream))

	_, err = parseRouteMatrixBody([]byte(`{"error":{"code":429}}`))
	require.Error(t, err)
	require.True(t, errors.As(err, &upstream))

	_, err = parseRouteMatrixBody([]byte("{not json"))
	require.Error(t, err)
	require.True(t, errors.As(err, &upstream))
}

func TestParseRouteMatrixBodyEmpty(t *testing.T) {
	elems, err := parseRouteMatrixBody([]byte("  \n"))
	require.NoError(t, err)
	require.Empty(t, elems)
}
