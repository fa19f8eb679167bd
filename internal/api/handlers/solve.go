package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"fleet-routing-service/internal/api/dto"
	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/services"
)

// MatrixBuilder is the slice of the matrix service the solve handler needs.
type MatrixBuilder interface {
	Build(ctx context.Context, req services.BuildRequest) (*domain.TravelMatrix, error)
}

// SolveFunc runs the routing engine over a prepared matrix.
type SolveFunc func(ctx context.Context, req services.SolveRequest, params services.SearchParams) ([]domain.VehicleRoute, error)

type SolveHandler struct {
	Builder MatrixBuilder
	Solve   SolveFunc
	Search  services.SearchParams
}

const (
	defaultVehicleCount    = 2
	defaultVehicleCapacity = 2
)

// SolveRoutes builds the travel matrix for the requested stops and
// dispatches them across the fleet, honoring pickup/drop pairings.
func (h *SolveHandler) SolveRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.SolveRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if len(req.Stops) == 0 {
		writeError(w, r, http.StatusBadRequest, "stops is required")
		return
	}

	stops := make([]domain.Stop, 0, len(req.Stops))
	seen := make(map[string]bool, len(req.Stops))
	for i, s := range req.Stops {
		if s.ID == "" {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("stops[%d] is missing an id", i))
			return
		}
		if seen[s.ID] {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("duplicate stop id %q", s.ID))
			return
		}
		seen[s.ID] = true
		if (s.Lat == nil) != (s.Lng == nil) {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("stop %q must set both lat and lng or neither", s.ID))
			return
		}
		stop := domain.Stop{ID: s.ID, Address: s.Address}
		if s.Lat != nil {
			stop.Coordinate = &domain.Coordinates{Lat: *s.Lat, Lng: *s.Lng}
		}
		stops = append(stops, stop)
	}

	vehicleCount := defaultVehicleCount
	if req.VehicleCount != nil {
		vehicleCount = *req.VehicleCount
	}
	if vehicleCount < 1 {
		writeError(w, r, http.StatusBadRequest, "vehicle_count must be >= 1")
		return
	}

	vehicleCapacity := defaultVehicleCapacity
	if req.VehicleCapacity != nil {
		vehicleCapacity = *req.VehicleCapacity
	}
	if vehicleCapacity < 0 {
		writeError(w, r, http.StatusBadRequest, "vehicle_capacity must be >= 0")
		return
	}

	pairs := make([]domain.PickupDropPair, 0, len(req.PickupDropPairs))
	for _, p := range req.PickupDropPairs {
		pairs = append(pairs, domain.PickupDropPair{Pickup: p[0], Drop: p[1]})
	}

	matrix, err := h.Builder.Build(r.Context(), services.BuildRequest{
		Stops:             stops,
		DepartureTime:     req.DepartureTime,
		RoutingPreference: req.RoutingPreference,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	routes, err := h.Solve(r.Context(), services.SolveRequest{
		StopIDs:         matrix.IDs,
		Minutes:         matrix.Minutes,
		Pairs:           pairs,
		VehicleCount:    vehicleCount,
		VehicleCapacity: vehicleCapacity,
	}, h.Search)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	res := dto.SolveResponse{
		Status: "ok",
		Routes: make([]dto.VehicleRouteResponse, 0, len(routes)),
	}
	for _, route := range routes {
		rs := make([]dto.RouteStopResponse, 0, len(route.Stops))
		for _, s := range route.Stops {
			rs = append(rs, dto.RouteStopResponse{
				StopID:     s.StopID,
				LoadAtStop: s.LoadAtStop,
				TimeMin:    s.TimeMinutes,
			})
		}
		res.Routes = append(res.Routes, dto.VehicleRouteResponse{
			VehicleID:          route.VehicleID,
			Stops:              rs,
			TotalTravelTimeMin: route.TotalTravelTimeMinutes,
			MaxLoad:            route.MaxLoad,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// writeDomainError maps service errors onto HTTP statuses: bad input is
// the caller's fault, geocoding and matrix provider failures are a bad
// gateway, and an unsatisfiable model is unprocessable.
func (h *SolveHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid    *domain.InvalidInputError
		resolution *domain.ResolutionError
		upstream   *domain.UpstreamError
		infeasible *domain.InfeasibleError
	)
	switch {
	case errors.As(err, &invalid):
		writeError(w, r, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &resolution):
		writeError(w, r, http.StatusBadGateway, resolution.Error())
	case errors.As(err, &upstream):
		writeError(w, r, http.StatusBadGateway, upstream.Error())
	case errors.As(err, &infeasible):
		writeError(w, r, http.StatusUnprocessableEntity, infeasible.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("solve request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
