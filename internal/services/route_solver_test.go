package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fleet-routing-service/internal/domain"
)

var solveIDs = []string{"DEPOT", "R001_P", "R001_D", "R002_P", "R002_D", "R003_P", "R003_D"}

var solveMinutes = [][]int{
	{0, 10, 15, 12, 18, 20, 25},
	{10, 0, 8, 9, 14, 16, 21},
	{15, 8, 0, 7, 10, 12, 17},
	{12, 9, 7, 0, 6, 11, 15},
	{18, 14, 10, 6, 0, 9, 12},
	{20, 16, 12, 11, 9, 0, 8},
	{25, 21, 17, 15, 12, 8, 0},
}

var solvePairs = []domain.PickupDropPair{
	{Pickup: 1, Drop: 2},
	{Pickup: 3, Drop: 4},
	{Pickup: 5, Drop: 6},
}

func testParams() SearchParams {
	return SearchParams{TimeBudget: 150 * time.Millisecond, Seed: 1}
}

// visitCounts returns how many times each non-depot stop id appears
// across all routes, excluding the depot bookends.
func visitCounts(routes []domain.VehicleRoute) map[string]int {
	counts := map[string]int{}
	for _, r := range routes {
		for i, s := range r.Stops {
			if i == 0 || i == len(r.Stops)-1 {
				continue
			}
			counts[s.StopID]++
		}
	}
	return counts
}

func stopPosition(r domain.VehicleRoute, id string) int {
	for i, s := range r.Stops {
		if s.StopID == id {
			return i
		}
	}
	return -1
}

func requirePrecedence(t *testing.T, routes []domain.VehicleRoute, pickup, drop string) {
	t.Helper()
	for _, r := range routes {
		p := stopPosition(r, pickup)
		d := stopPosition(r, drop)
		if p >= 0 || d >= 0 {
			require.GreaterOrEqual(t, p, 1, "pickup %s missing from the route serving %s", pickup, drop)
			require.Greater(t, d, p, "drop %s must come after pickup %s", drop, pickup)
			return
		}
	}
	t.Fatalf("pair %s/%s not found in any route", pickup, drop)
}

func TestSolveSingleVehicleVisitsEveryStop(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    1,
		VehicleCapacity: 3,
	}, testParams())
	require.NoError(t, err)
	require.Len(t, routes, 1)

	counts := visitCounts(routes)
	for _, id := range solveIDs[1:] {
		require.Equal(t, 1, counts[id], "stop %s", id)
	}

	r := routes[0]
	require.Equal(t, "DEPOT", r.Stops[0].StopID)
	require.Equal(t, 0, r.Stops[0].TimeMinutes)
	require.Equal(t, 0, r.Stops[0].LoadAtStop)
	require.Equal(t, "DEPOT", r.Stops[len(r.Stops)-1].StopID)
	require.Equal(t, 0, r.Stops[len(r.Stops)-1].LoadAtStop)
	require.LessOrEqual(t, r.MaxLoad, 3)
	require.Positive(t, r.TotalTravelTimeMinutes)

	requirePrecedence(t, routes, "R001_P", "R001_D")
	requirePrecedence(t, routes, "R002_P", "R002_D")
	requirePrecedence(t, routes, "R003_P", "R003_D")
}

func TestSolveTwoVehiclesRespectCapacity(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    2,
		VehicleCapacity: 2,
	}, testParams())
	require.NoError(t, err)
	require.Len(t, routes, 2)

	counts := visitCounts(routes)
	for _, id := range solveIDs[1:] {
		require.Equal(t, 1, counts[id], "stop %s", id)
	}
	for _, r := range routes {
		require.LessOrEqual(t, r.MaxLoad, 2)
		for _, s := range r.Stops {
			require.GreaterOrEqual(t, s.LoadAtStop, 0)
		}
	}
	requirePrecedence(t, routes, "R001_P", "R001_D")
	requirePrecedence(t, routes, "R002_P", "R002_D")
	requirePrecedence(t, routes, "R003_P", "R003_D")
}

func TestSolveCapacityOneForcesSequentialPairs(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    1,
		VehicleCapacity: 1,
	}, testParams())
	require.NoError(t, err)

	counts := visitCounts(routes)
	for _, id := range solveIDs[1:] {
		require.Equal(t, 1, counts[id], "stop %s", id)
	}
	require.Equal(t, 1, routes[0].MaxLoad)
}

func TestSolveZeroCapacityWithPairsIsInfeasible(t *testing.T) {
	_, err := Solve(context.Background(), SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    2,
		VehicleCapacity: 0,
	}, testParams())

	var infeasible *domain.InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	require.Equal(t, 2, infeasible.Vehicles)
	require.Equal(t, 0, infeasible.Capacity)
}

func TestSolveUnreachableStopIsInfeasible(t *testing.T) {
	s := domain.SentinelMinutes
	_, err := Solve(context.Background(), SolveRequest{
		StopIDs: []string{"DEPOT", "A_P", "A_D"},
		Minutes: [][]int{
			{0, s, 20},
			{s, 0, s},
			{20, s, 0},
		},
		Pairs:           []domain.PickupDropPair{{Pickup: 1, Drop: 2}},
		VehicleCount:    1,
		VehicleCapacity: 1,
	}, testParams())

	var infeasible *domain.InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}

func TestSolveRoutesAroundAvoidableSentinelEdge(t *testing.T) {
	// A -> B is blocked but every other edge is cheap, so serving B
	// before A keeps the route feasible.
	s := domain.SentinelMinutes
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs: []string{"DEPOT", "A", "B"},
		Minutes: [][]int{
			{0, 5, 7},
			{5, 0, s},
			{7, 6, 0},
		},
		VehicleCount:    1,
		VehicleCapacity: 0,
	}, testParams())
	require.NoError(t, err)

	counts := visitCounts(routes)
	require.Equal(t, 1, counts["A"])
	require.Equal(t, 1, counts["B"])
	require.Less(t, routes[0].TotalTravelTimeMinutes, domain.SentinelMinutes)
}

func TestSolveSingletonStopsWithZeroCapacity(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs: []string{"DEPOT", "A", "B"},
		Minutes: [][]int{
			{0, 5, 7},
			{5, 0, 3},
			{7, 3, 0},
		},
		VehicleCount:    1,
		VehicleCapacity: 0,
	}, testParams())
	require.NoError(t, err)

	counts := visitCounts(routes)
	require.Equal(t, 1, counts["A"])
	require.Equal(t, 1, counts["B"])
	require.Equal(t, 0, routes[0].MaxLoad)
}

func TestSolveIdleVehicleStaysAtDepot(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs: []string{"DEPOT", "A"},
		Minutes: [][]int{
			{0, 5},
			{5, 0},
		},
		VehicleCount:    3,
		VehicleCapacity: 1,
	}, testParams())
	require.NoError(t, err)
	require.Len(t, routes, 3)

	busy := 0
	for _, r := range routes {
		if len(r.Stops) > 2 {
			busy++
			continue
		}
		require.Len(t, r.Stops, 2)
		require.Equal(t, "DEPOT", r.Stops[0].StopID)
		require.Equal(t, "DEPOT", r.Stops[1].StopID)
		require.Zero(t, r.TotalTravelTimeMinutes)
	}
	require.Equal(t, 1, busy)
}

func TestSolveValidation(t *testing.T) {
	base := SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    1,
		VehicleCapacity: 1,
	}

	cases := []struct {
		name   string
		mutate func(*SolveRequest)
	}{
		{"empty stops", func(r *SolveRequest) { r.StopIDs = nil; r.Minutes = nil; r.Pairs = nil }},
		{"ragged matrix", func(r *SolveRequest) {
			m := make([][]int, len(solveMinutes))
			copy(m, solveMinutes)
			m[2] = []int{1, 2}
			r.Minutes = m
		}},
		{"zero vehicles", func(r *SolveRequest) { r.VehicleCount = 0 }},
		{"negative capacity", func(r *SolveRequest) { r.VehicleCapacity = -1 }},
		{"depot out of range", func(r *SolveRequest) { r.DepotIndex = 99 }},
		{"pair out of range", func(r *SolveRequest) {
			r.Pairs = []domain.PickupDropPair{{Pickup: 1, Drop: 42}}
		}},
		{"pair self reference", func(r *SolveRequest) {
			r.Pairs = []domain.PickupDropPair{{Pickup: 3, Drop: 3}}
		}},
		{"pair references depot", func(r *SolveRequest) {
			r.Pairs = []domain.PickupDropPair{{Pickup: 0, Drop: 2}}
		}},
		{"double booked stop", func(r *SolveRequest) {
			r.Pairs = []domain.PickupDropPair{{Pickup: 1, Drop: 2}, {Pickup: 2, Drop: 4}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := Solve(context.Background(), req, testParams())

			var invalid *domain.InvalidInputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestSolveCumulativeTimesMatchMatrix(t *testing.T) {
	routes, err := Solve(context.Background(), SolveRequest{
		StopIDs:         solveIDs,
		Minutes:         solveMinutes,
		Pairs:           solvePairs,
		VehicleCount:    1,
		VehicleCapacity: 3,
	}, testParams())
	require.NoError(t, err)

	index := map[string]int{}
	for i, id := range solveIDs {
		index[id] = i
	}

	r := routes[0]
	t0 := 0
	for i := 1; i < len(r.Stops); i++ {
		from := index[r.Stops[i-1].StopID]
		to := index[r.Stops[i].StopID]
		t0 += solveMinutes[from][to]
		require.Equal(t, t0, r.Stops[i].TimeMinutes)
	}
	require.Equal(t, t0, r.TotalTravelTimeMinutes)
}
