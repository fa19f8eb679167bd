package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fleet-routing-service/internal/domain"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/platform/obs"
)

// SolveRequest describes one pickup/drop-off routing problem: the stop ids,
// the travel-time matrix over them, the pairings, and the fleet shape.
type SolveRequest struct {
	StopIDs         []string
	Minutes         [][]int
	Pairs           []domain.PickupDropPair
	VehicleCount    int
	VehicleCapacity int
	DepotIndex      int
}

// SearchParams tunes the solver. Zero values fall back to the defaults the
// service has always used (30 minutes of slack, a 24h horizon, 10 seconds
// of search).
type SearchParams struct {
	SlackMinutes   int
	HorizonMinutes int
	TimeBudget     time.Duration
	Seed           int64
}

func (p *SearchParams) setDefaults() {
	if p.SlackMinutes == 0 {
		p.SlackMinutes = 30
	}
	if p.HorizonMinutes == 0 {
		p.HorizonMinutes = 1440
	}
	if p.TimeBudget == 0 {
		p.TimeBudget = 10 * time.Second
	}
}

// Solve assigns every stop to a vehicle route that respects capacity,
// pickup-before-drop precedence, same-vehicle pairing, and the time
// horizon, minimizing total fleet travel time.
//
// The search constructs an initial solution by cheapest insertion and then
// improves it with guided local search until the wall-clock budget expires.
// It returns *domain.InfeasibleError when no feasible assignment exists or
// none was found in time.
func Solve(ctx context.Context, req SolveRequest, params SearchParams) (_ []domain.VehicleRoute, err error) {
	defer obs.Time(ctx, "solver.Solve")(&err)
	timer := prometheus.NewTimer(metrics.SolveDuration)
	defer timer.ObserveDuration()

	params.setDefaults()

	m, err := newModel(req, params)
	if err != nil {
		return nil, err
	}

	routes, err := m.search(params)
	if err != nil {
		metrics.SolveInfeasible.Inc()
		return nil, err
	}

	return m.extract(routes), nil
}

// unit is the smallest relocatable piece of a solution: a pickup/drop pair
// that must travel together, or a single unpaired stop.
type unit struct {
	pickup int
	drop   int // -1 for singletons
}

func (u unit) isPair() bool { return u.drop >= 0 }

type model struct {
	ids      []string
	minutes  [][]int
	depot    int
	vehicles int
	capacity int
	horizon  int

	// demand is a direct stop-index lookup: +1 pickup, -1 drop, 0 otherwise.
	demand []int
	units  []unit
}

func newModel(req SolveRequest, params SearchParams) (*model, error) {
	n := len(req.StopIDs)
	if n == 0 {
		return nil, &domain.InvalidInputError{Reason: "stop list is empty"}
	}
	if len(req.Minutes) != n {
		return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
			"matrix has %d rows for %d stops", len(req.Minutes), n,
		)}
	}
	for i, row := range req.Minutes {
		if len(row) != n {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
				"matrix row %d has %d columns for %d stops", i, len(row), n,
			)}
		}
	}
	if req.VehicleCount < 1 {
		return nil, &domain.InvalidInputError{Reason: "vehicle count must be >= 1"}
	}
	if req.VehicleCapacity < 0 {
		return nil, &domain.InvalidInputError{Reason: "vehicle capacity must be >= 0"}
	}
	if req.DepotIndex < 0 || req.DepotIndex >= n {
		return nil, &domain.InvalidInputError{Reason: fmt.Sprintf("depot index %d out of range", req.DepotIndex)}
	}

	demand := make([]int, n)
	booked := make([]bool, n)
	for _, p := range req.Pairs {
		if p.Pickup < 0 || p.Pickup >= n || p.Drop < 0 || p.Drop >= n {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
				"pair (%d,%d) out of range", p.Pickup, p.Drop,
			)}
		}
		if p.Pickup == p.Drop {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
				"pair (%d,%d) uses the same stop for pickup and drop", p.Pickup, p.Drop,
			)}
		}
		if p.Pickup == req.DepotIndex || p.Drop == req.DepotIndex {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
				"pair (%d,%d) references the depot", p.Pickup, p.Drop,
			)}
		}
		if booked[p.Pickup] || booked[p.Drop] {
			return nil, &domain.InvalidInputError{Reason: fmt.Sprintf(
				"pair (%d,%d) double-books a stop", p.Pickup, p.Drop,
			)}
		}
		booked[p.Pickup] = true
		booked[p.Drop] = true
		demand[p.Pickup] = 1
		demand[p.Drop] = -1
	}

	units := make([]unit, 0, len(req.Pairs)+n)
	for _, p := range req.Pairs {
		units = append(units, unit{pickup: p.Pickup, drop: p.Drop})
	}
	for i := 0; i < n; i++ {
		if i != req.DepotIndex && !booked[i] {
			units = append(units, unit{pickup: i, drop: -1})
		}
	}

	return &model{
		ids:      req.StopIDs,
		minutes:  req.Minutes,
		depot:    req.DepotIndex,
		vehicles: req.VehicleCount,
		capacity: req.VehicleCapacity,
		horizon:  params.HorizonMinutes,
		demand:   demand,
		units:    units,
	}, nil
}

// routeStats simulates a route (depot -> stops -> depot), returning the
// total travel time and whether capacity and horizon hold at every point.
func (m *model) routeStats(route []int) (total int, feasible bool) {
	t := 0
	load := 0
	prev := m.depot
	for _, s := range route {
		t += m.minutes[prev][s]
		if t > m.horizon {
			return t, false
		}
		load += m.demand[s]
		if load < 0 || load > m.capacity {
			return t, false
		}
		prev = s
	}
	t += m.minutes[prev][m.depot]
	return t, t <= m.horizon
}

func (m *model) totalCost(routes [][]int) int {
	total := 0
	for _, r := range routes {
		t, _ := m.routeStats(r)
		total += t
	}
	return total
}

// extract walks each vehicle's route recording stop id, cumulative time,
// and load, including the depot start and the final depot return.
func (m *model) extract(routes [][]int) []domain.VehicleRoute {
	out := make([]domain.VehicleRoute, 0, len(routes))
	for v, route := range routes {
		stops := make([]domain.RouteStop, 0, len(route)+2)
		stops = append(stops, domain.RouteStop{StopID: m.ids[m.depot], TimeMinutes: 0, LoadAtStop: 0})

		t := 0
		load := 0
		maxLoad := 0
		prev := m.depot
		for _, s := range route {
			t += m.minutes[prev][s]
			load += m.demand[s]
			if load > maxLoad {
				maxLoad = load
			}
			stops = append(stops, domain.RouteStop{StopID: m.ids[s], TimeMinutes: t, LoadAtStop: load})
			prev = s
		}

		t += m.minutes[prev][m.depot]
		stops = append(stops, domain.RouteStop{StopID: m.ids[m.depot], TimeMinutes: t, LoadAtStop: load})

		out = append(out, domain.VehicleRoute{
			VehicleID:              v,
			Stops:                  stops,
			TotalTravelTimeMinutes: t,
			MaxLoad:                maxLoad,
		})
	}
	return out
}
