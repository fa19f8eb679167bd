package google

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/ports"
)

// durationSeconds decodes the Routes API duration encoding ("160s") into
// seconds, tolerating a bare number.
type durationSeconds float64

func (d *durationSeconds) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = durationSeconds(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse duration %s", string(b))
	}
	*d = durationSeconds(f)
	return nil
}

type rawElement struct {
	OriginIndex      int              `json:"originIndex"`
	DestinationIndex int              `json:"destinationIndex"`
	Condition        string           `json:"condition"`
	Duration         *durationSeconds `json:"duration"`
	DistanceMeters   *int64           `json:"distanceMeters"`
	Error            json.RawMessage  `json:"error"`
}

func (r rawElement) toPort() ports.MatrixElement {
	e := ports.MatrixElement{
		OriginIndex:      r.OriginIndex,
		DestinationIndex: r.DestinationIndex,
		Condition:        r.Condition,
		DistanceMeters:   r.DistanceMeters,
	}
	if r.Duration != nil {
		secs := float64(*r.Duration)
		e.DurationSeconds = &secs
	}
	return e
}

// parseRouteMatrixBody accepts both response encodings the Routes API
// produces for the same logical payload:
//
//  1. Full JSON array:   [ {..}, {..} ]
//  2. NDJSON stream:     {..}\n{..}\n
//
// It also tolerates brackets/commas on separate lines, trailing commas,
// and an XSSI guard prefix. Embedded {"error": ...} payloads fail the
// whole block.
func parseRouteMatrixBody(raw []byte) ([]ports.MatrixElement, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "[") {
		var elems []rawElement
		if err := json.Unmarshal([]byte(s), &elems); err != nil {
			return nil, &domain.UpstreamError{Detail: "bad JSON array from Routes API: " + truncate(s, 160)}
		}
		out := make([]ports.MatrixElement, 0, len(elems))
		for _, e := range elems {
			// Some error payloads are arrays with one {error: ...}.
			if len(e.Error) > 0 {
				return nil, &domain.UpstreamError{Detail: truncate(s, 400)}
			}
			out = append(out, e.toPort())
		}
		return out, nil
	}

	var out []ports.MatrixElement
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || t == "[" || t == "]" || t == "," {
			continue
		}
		if strings.HasPrefix(t, ")]}'") {
			continue // XSSI guard
		}
		t = strings.TrimSuffix(t, ",")
		if strings.HasPrefix(t, `{"error"`) {
			return nil, &domain.UpstreamError{Detail: truncate(t, 400)}
		}

		var e rawElement
		if err := json.Unmarshal([]byte(t), &e); err != nil {
			return nil, &domain.UpstreamError{Detail: "bad JSON line from Routes API: " + truncate(t, 160)}
		}
		if len(e.Error) > 0 {
			return nil, &domain.UpstreamError{Detail: truncate(t, 400)}
		}
		out = append(out, e.toPort())
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
