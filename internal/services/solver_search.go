package services

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"fleet-routing-service/internal/domain"
)

// penaltyWeight scales arc penalties relative to the mean arc cost of the
// first local optimum. 0.3 sits in the usual range for guided local search
// on routing problems.
const penaltyWeight = 0.3

// search runs cheapest-insertion construction followed by guided local
// search until the time budget expires, returning the best feasible
// solution found.
func (m *model) search(params SearchParams) ([][]int, error) {
	if err := m.checkServiceable(); err != nil {
		return nil, err
	}

	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &searcher{
		m:        m,
		rng:      rand.New(rand.NewSource(seed)),
		penalty:  newIntMatrix(len(m.ids)),
		deadline: time.Now().Add(params.TimeBudget),
	}
	return s.run()
}

// checkServiceable fast-fails problems where some unit cannot be served
// even by an otherwise empty vehicle. That covers zero capacity with
// pairs present and stops only reachable through unroutable edges, since
// a sentinel edge alone exceeds any sane horizon.
func (m *model) checkServiceable() error {
	for _, u := range m.units {
		route := []int{u.pickup}
		if u.isPair() {
			route = []int{u.pickup, u.drop}
		}
		if _, ok := m.routeStats(route); !ok {
			return &domain.InfeasibleError{
				Vehicles: m.vehicles,
				Capacity: m.capacity,
				Reason:   fmt.Sprintf("stop %s cannot be served by an empty vehicle", m.ids[u.pickup]),
			}
		}
	}
	return nil
}

type searcher struct {
	m        *model
	rng      *rand.Rand
	penalty  [][]int
	lambda   float64
	deadline time.Time
}

func newIntMatrix(n int) [][]int {
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
	}
	return rows
}

func (s *searcher) run() ([][]int, error) {
	routes, ok := s.construct(s.m.units)
	if ok && len(s.m.units) == 0 {
		return routes, nil
	}
	for !ok {
		if !time.Now().Before(s.deadline) {
			return nil, &domain.InfeasibleError{
				Vehicles: s.m.vehicles,
				Capacity: s.m.capacity,
				Reason:   "no feasible assignment found within the search budget",
			}
		}
		order := make([]unit, len(s.m.units))
		copy(order, s.m.units)
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		routes, ok = s.construct(order)
	}

	best := cloneRoutes(routes)
	bestCost := s.m.totalCost(best)

	for time.Now().Before(s.deadline) {
		if s.improveOnce(routes) {
			if c := s.m.totalCost(routes); c < bestCost {
				best = cloneRoutes(routes)
				bestCost = c
			}
			continue
		}
		// Local optimum under the augmented objective. Record it if it is
		// the best true-cost solution so far, then penalize the highest
		// utility arcs to push the search elsewhere.
		if c := s.m.totalCost(routes); c < bestCost {
			best = cloneRoutes(routes)
			bestCost = c
		}
		if s.lambda == 0 {
			s.lambda = s.initialLambda(routes)
		}
		s.penalizeMaxUtility(routes)
	}

	return best, nil
}

// construct builds an initial solution by inserting each unit at its
// cheapest feasible position across all vehicles.
func (s *searcher) construct(order []unit) ([][]int, bool) {
	routes := make([][]int, s.m.vehicles)
	for i := range routes {
		routes[i] = []int{}
	}
	for _, u := range order {
		v, route, ok := s.bestInsertion(routes, u, func(r []int) float64 {
			t, feasible := s.m.routeStats(r)
			if !feasible {
				return math.Inf(1)
			}
			return float64(t)
		})
		if !ok {
			return nil, false
		}
		routes[v] = route
	}
	return routes, true
}

// bestInsertion tries every position for u in every route and returns the
// vehicle and the new route minimizing the given route cost. Ties break
// toward the lowest vehicle index and the earliest position, keeping the
// construction deterministic for a fixed unit order.
func (s *searcher) bestInsertion(routes [][]int, u unit, cost func([]int) float64) (int, []int, bool) {
	bestV := -1
	var bestRoute []int
	bestDelta := math.Inf(1)

	for v, route := range routes {
		base := cost(route)
		for i := 0; i <= len(route); i++ {
			if u.isPair() {
				for j := i; j <= len(route); j++ {
					cand := insertPair(route, u.pickup, u.drop, i, j)
					if d := cost(cand) - base; d < bestDelta {
						bestDelta, bestV, bestRoute = d, v, cand
					}
				}
			} else {
				cand := insertOne(route, u.pickup, i)
				if d := cost(cand) - base; d < bestDelta {
					bestDelta, bestV, bestRoute = d, v, cand
				}
			}
		}
	}
	if bestV < 0 || math.IsInf(bestDelta, 1) {
		return 0, nil, false
	}
	return bestV, bestRoute, true
}

// insertPair places pickup before position i and drop before position j of
// the resulting route, preserving pickup-before-drop for any i <= j.
func insertPair(route []int, pickup, drop, i, j int) []int {
	out := make([]int, 0, len(route)+2)
	out = append(out, route[:i]...)
	out = append(out, pickup)
	out = append(out, route[i:j]...)
	out = append(out, drop)
	out = append(out, route[j:]...)
	return out
}

func insertOne(route []int, stop, i int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:i]...)
	out = append(out, stop)
	out = append(out, route[i:]...)
	return out
}

// removeUnit returns the route with the unit's stops taken out.
func removeUnit(route []int, u unit) []int {
	out := make([]int, 0, len(route))
	for _, s := range route {
		if s == u.pickup || (u.isPair() && s == u.drop) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// improveOnce scans relocation then exchange moves over the augmented
// objective and applies the first strict improvement found. With penalties
// active a move may worsen true travel time, which is how the search
// escapes local optima.
func (s *searcher) improveOnce(routes [][]int) bool {
	return s.relocateOnce(routes) || s.exchangeOnce(routes)
}

// relocateOnce removes one unit and reinserts it at its best position in
// any route, including its own (intra-route reinsertion).
func (s *searcher) relocateOnce(routes [][]int) bool {
	const eps = 1e-9
	for _, u := range s.m.units {
		from := s.findRoute(routes, u)
		if from < 0 {
			continue
		}
		current := s.augCost(routes[from])

		without := removeUnit(routes[from], u)
		baseSaving := current - s.augCost(without)

		trial := make([][]int, len(routes))
		copy(trial, routes)
		trial[from] = without

		v, route, ok := s.bestInsertion(trial, u, s.feasibleAugCost)
		if !ok {
			continue
		}
		added := s.augCost(route) - s.augCost(trial[v])
		if added < baseSaving-eps {
			routes[from] = without
			routes[v] = route
			return true
		}
	}
	return false
}

// exchangeOnce swaps two units between different routes, reinserting each
// at its best position in the other's route.
func (s *searcher) exchangeOnce(routes [][]int) bool {
	const eps = 1e-9
	for ai := 0; ai < len(s.m.units); ai++ {
		a := s.m.units[ai]
		va := s.findRoute(routes, a)
		if va < 0 {
			continue
		}
		for bi := ai + 1; bi < len(s.m.units); bi++ {
			b := s.m.units[bi]
			vb := s.findRoute(routes, b)
			if vb < 0 || vb == va {
				continue
			}

			before := s.augCost(routes[va]) + s.augCost(routes[vb])

			ra := removeUnit(routes[va], a)
			rb := removeUnit(routes[vb], b)

			newA, okA := s.bestInsertionIntoRoute(ra, b)
			if !okA {
				continue
			}
			newB, okB := s.bestInsertionIntoRoute(rb, a)
			if !okB {
				continue
			}

			if s.augCost(newA)+s.augCost(newB) < before-eps {
				routes[va] = newA
				routes[vb] = newB
				return true
			}
		}
	}
	return false
}

// bestInsertionIntoRoute places u at its cheapest feasible position within
// a single route.
func (s *searcher) bestInsertionIntoRoute(route []int, u unit) ([]int, bool) {
	var best []int
	bestCost := math.Inf(1)
	for i := 0; i <= len(route); i++ {
		if u.isPair() {
			for j := i; j <= len(route); j++ {
				cand := insertPair(route, u.pickup, u.drop, i, j)
				if c := s.feasibleAugCost(cand); c < bestCost {
					bestCost, best = c, cand
				}
			}
		} else {
			cand := insertOne(route, u.pickup, i)
			if c := s.feasibleAugCost(cand); c < bestCost {
				bestCost, best = c, cand
			}
		}
	}
	return best, best != nil
}

func (s *searcher) feasibleAugCost(route []int) float64 {
	if _, ok := s.m.routeStats(route); !ok {
		return math.Inf(1)
	}
	return s.augCost(route)
}

// augCost is the guided-local-search objective for one route: true travel
// time plus lambda times the accumulated arc penalties.
func (s *searcher) augCost(route []int) float64 {
	t, _ := s.m.routeStats(route)
	pen := 0
	prev := s.m.depot
	for _, stop := range route {
		pen += s.penalty[prev][stop]
		prev = stop
	}
	pen += s.penalty[prev][s.m.depot]
	return float64(t) + s.lambda*float64(pen)
}

func (s *searcher) findRoute(routes [][]int, u unit) int {
	for v, route := range routes {
		for _, stop := range route {
			if stop == u.pickup {
				return v
			}
		}
	}
	return -1
}

// initialLambda scales penalties to the mean cost of the arcs used by the
// first local optimum, so a single penalty unit is worth a typical leg.
func (s *searcher) initialLambda(routes [][]int) float64 {
	var costs []float64
	s.forEachArc(routes, func(a, b int) {
		costs = append(costs, float64(s.m.minutes[a][b]))
	})
	if len(costs) == 0 {
		return 1
	}
	mean := stat.Mean(costs, nil)
	if mean <= 0 {
		return 1
	}
	return penaltyWeight * mean
}

// penalizeMaxUtility increments the penalty on every used arc whose
// utility cost/(1+penalty) is maximal in the current solution.
func (s *searcher) penalizeMaxUtility(routes [][]int) {
	maxUtil := 0.0
	s.forEachArc(routes, func(a, b int) {
		if u := s.utility(a, b); u > maxUtil {
			maxUtil = u
		}
	})
	if maxUtil == 0 {
		return
	}
	s.forEachArc(routes, func(a, b int) {
		if s.utility(a, b) == maxUtil {
			s.penalty[a][b]++
		}
	})
}

func (s *searcher) utility(a, b int) float64 {
	return float64(s.m.minutes[a][b]) / float64(1+s.penalty[a][b])
}

func (s *searcher) forEachArc(routes [][]int, fn func(a, b int)) {
	for _, route := range routes {
		if len(route) == 0 {
			continue
		}
		prev := s.m.depot
		for _, stop := range route {
			fn(prev, stop)
			prev = stop
		}
		fn(prev, s.m.depot)
	}
}

func cloneRoutes(routes [][]int) [][]int {
	out := make([][]int, len(routes))
	for i, r := range routes {
		out[i] = append([]int(nil), r...)
	}
	return out
}
