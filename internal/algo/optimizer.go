package algo

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// ErrInfeasible indicates no assignment satisfies all hard
// constraints within the solver budget.
var ErrInfeasible = errors.New("algo: no feasible plan within budget")

// Options configures one optimizer run.
type Options struct {
	Seed    int64
	Workers int
	Budget  time.Duration

	PickingTime int // minutes between consecutive picks
	DepotTime   int // minutes per depot drop-off
	Horizon     int // planning horizon in minutes
	MaxTrips    int // trips per agent
}

// Optimizer jointly solves assignment, trip partitioning, sequencing
// and timing for a set of orders, minimizing makespan. It builds a
// deterministic greedy solution first, then improves it with seeded
// local-search workers under the wall-clock budget; every candidate
// is validated by the schedule evaluator, so accepted solutions
// satisfy all hard constraints by construction.
type Optimizer struct {
	inst  *core.Instance
	table *DistanceTable
	opts  Options
	log   *zap.Logger

	eval       evaluator
	humanCount int
}

// NewOptimizer creates an optimizer over the instance and its
// distance table.
func NewOptimizer(inst *core.Instance, table *DistanceTable, opts Options, log *zap.Logger) *Optimizer {
	humans := 0
	for _, a := range inst.Agents {
		if a.Type == core.TypeHuman {
			humans++
		}
	}
	return &Optimizer{
		inst:  inst,
		table: table,
		opts:  opts,
		log:   log,
		eval: evaluator{
			table:       table,
			prep:        inst.Warehouse.Prep,
			pickingTime: opts.PickingTime,
			depotTime:   opts.DepotTime,
			horizon:     opts.Horizon,
			maxTrips:    opts.MaxTrips,
		},
		humanCount: humans,
	}
}

// Solve plans the given orders. Returns ErrInfeasible when no plan
// satisfies every hard constraint.
func (o *Optimizer) Solve(orders []*core.Order) (*core.Plan, error) {
	units, err := o.inst.MaterializeUnits(orders)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return core.NewPlan(), nil
	}

	compat := make([][]int, len(units))
	for i, u := range units {
		for ai, a := range o.inst.Agents {
			if !a.CanCarry(u.Product, o.inst.Warehouse.RobotAccessible) {
				continue
			}
			// Units in robot-accessible storage go to robots only.
			if o.inst.Warehouse.RobotAccessible[u.Product.Location] && a.Type != core.TypeRobot {
				continue
			}
			compat[i] = append(compat[i], ai)
		}
		if len(compat[i]) == 0 {
			o.log.Warn("unit has no compatible agent",
				zap.String("product", string(u.Product.ID)),
				zap.String("order", string(u.Order.ID)))
			return nil, ErrInfeasible
		}
	}

	routes, err := o.construct(units, compat)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	routes = o.improve(routes, compat)
	o.log.Info("optimizer finished",
		zap.Int("units", len(units)),
		zap.Int("makespan", o.makespan(routes)),
		zap.Duration("elapsed", time.Since(start)))

	return o.buildPlan(routes)
}

// construct builds the initial solution: units sorted express-first
// then by deadline, each placed on the compatible agent that finishes
// earliest. Appending to the current trip is tried first, then a
// fresh trip, then a full insertion scan.
func (o *Optimizer) construct(units []*core.Unit, compat [][]int) ([]tripSeq, error) {
	ordered := append([]*core.Unit(nil), units...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() == core.PriorityExpress
		}
		if ordered[i].Deadline() != ordered[j].Deadline() {
			return ordered[i].Deadline() < ordered[j].Deadline()
		}
		return ordered[i].Index < ordered[j].Index
	})

	routes := make([]tripSeq, len(o.inst.Agents))

	for _, u := range ordered {
		bestAgent := -1
		bestEnd := 0
		var bestRoute tripSeq

		for _, ai := range compat[u.Index] {
			if !o.mayActivate(routes, ai) {
				continue
			}
			cand, end, ok := o.placeAppend(routes[ai], o.inst.Agents[ai], u)
			if !ok {
				cand, end, ok = o.placeInsert(routes[ai], o.inst.Agents[ai], u)
			}
			if ok && (bestAgent == -1 || end < bestEnd) {
				bestAgent, bestEnd, bestRoute = ai, end, cand
			}
		}
		if bestAgent == -1 {
			o.log.Warn("no agent can take unit within constraints",
				zap.String("product", string(u.Product.ID)),
				zap.Int("deadline", u.Deadline()))
			return nil, ErrInfeasible
		}
		routes[bestAgent] = bestRoute
	}
	return routes, nil
}

// mayActivate rejects putting the first unit on a cart when every
// human is already escorting another cart.
func (o *Optimizer) mayActivate(routes []tripSeq, ai int) bool {
	if o.inst.Agents[ai].Type != core.TypeCart || routes[ai].units() > 0 {
		return true
	}
	return o.activeCarts(routes)+1 <= o.humanCount
}

func (o *Optimizer) activeCarts(routes []tripSeq) int {
	n := 0
	for ai, r := range routes {
		if o.inst.Agents[ai].Type == core.TypeCart && r.units() > 0 {
			n++
		}
	}
	return n
}

// placeAppend tries the unit at the tail of the last trip, then as a
// new trip.
func (o *Optimizer) placeAppend(trips tripSeq, a *core.Agent, u *core.Unit) (tripSeq, int, bool) {
	if len(trips) > 0 {
		cand := trips.clone()
		last := len(cand) - 1
		cand[last] = append(cand[last], u)
		if end, ok := o.eval.endTime(a, cand); ok {
			return cand, end, true
		}
	}
	cand := trips.clone()
	cand = append(cand, []*core.Unit{u})
	if end, ok := o.eval.endTime(a, cand); ok {
		return cand, end, true
	}
	return nil, 0, false
}

// placeInsert scans every position in every trip, plus a new trip at
// every rank, and keeps the feasible placement with the earliest end.
func (o *Optimizer) placeInsert(trips tripSeq, a *core.Agent, u *core.Unit) (tripSeq, int, bool) {
	bestEnd := 0
	var best tripSeq
	found := false

	try := func(cand tripSeq) {
		if end, ok := o.eval.endTime(a, cand); ok && (!found || end < bestEnd) {
			best, bestEnd, found = cand, end, true
		}
	}

	for ti := range trips {
		for pos := 0; pos <= len(trips[ti]); pos++ {
			cand := trips.clone()
			trip := cand[ti]
			trip = append(trip[:pos], append([]*core.Unit{u}, trip[pos:]...)...)
			cand[ti] = trip
			try(cand)
		}
	}
	for ti := 0; ti <= len(trips); ti++ {
		cand := trips.clone()
		cand = append(cand[:ti], append(tripSeq{{u}}, cand[ti:]...)...)
		try(cand)
	}
	return best, bestEnd, found
}

// improve runs one seeded local-search worker per configured thread
// and keeps the best result. Workers derive their seeds from the base
// seed and are ranked (makespan, worker index), so a fixed seed and
// worker count reproduce the same plan.
func (o *Optimizer) improve(routes []tripSeq, compat [][]int) []tripSeq {
	workers := o.opts.Workers
	if workers < 1 {
		workers = 1
	}
	deadline := time.Now().Add(o.opts.Budget)

	type result struct {
		routes   []tripSeq
		makespan int
	}
	results := make([]result, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			r := o.localSearch(cloneRoutes(routes), compat, o.opts.Seed+int64(w), deadline)
			results[w] = result{routes: r, makespan: o.makespan(r)}
			return nil
		})
	}
	_ = g.Wait()

	best := result{routes: routes, makespan: o.makespan(routes)}
	for _, r := range results {
		if r.makespan < best.makespan {
			best = r
		}
	}
	return best.routes
}

// localSearch hill-climbs with relocate and swap moves. Iteration
// count is bounded both by a deterministic cap and the wall clock.
func (o *Optimizer) localSearch(routes []tripSeq, compat [][]int, seed int64, deadline time.Time) []tripSeq {
	rng := rand.New(rand.NewSource(seed))
	maxIters := 4000 + 200*o.totalUnits(routes)

	best := cloneRoutes(routes)
	bestSpan := o.makespan(best)

	for it := 0; it < maxIters; it++ {
		if it%64 == 0 && time.Now().After(deadline) {
			break
		}
		var cand []tripSeq
		if rng.Intn(10) < 7 {
			cand = o.moveRelocate(routes, compat, rng)
		} else {
			cand = o.moveSwap(routes, compat, rng)
		}
		if cand == nil {
			continue
		}
		span := o.makespan(cand)
		if span <= o.makespan(routes) {
			routes = cand
			if span < bestSpan {
				best, bestSpan = cloneRoutes(cand), span
			}
		}
	}
	return best
}

// moveRelocate removes a random unit and re-inserts it at the best
// position on a random compatible agent. Returns nil when the move is
// not applicable or infeasible.
func (o *Optimizer) moveRelocate(routes []tripSeq, compat [][]int, rng *rand.Rand) []tripSeq {
	ai, ti, pos, ok := o.randomStop(routes, rng)
	if !ok {
		return nil
	}
	u := routes[ai][ti][pos]

	targets := compat[u.Index]
	target := targets[rng.Intn(len(targets))]

	cand := cloneRoutes(routes)
	trip := cand[ai][ti]
	cand[ai][ti] = append(trip[:pos], trip[pos+1:]...)
	cand[ai] = cand[ai].compact()

	if target != ai && !o.mayActivate(cand, target) {
		return nil
	}
	placed, _, ok := o.placeInsert(cand[target], o.inst.Agents[target], u)
	if !ok {
		return nil
	}
	cand[target] = placed

	// The shrunken source route must still schedule (it always does:
	// removing a unit never violates a constraint), the target was
	// validated by placeInsert.
	return cand
}

// moveSwap exchanges two units between two different agents in place.
func (o *Optimizer) moveSwap(routes []tripSeq, compat [][]int, rng *rand.Rand) []tripSeq {
	a1, t1, p1, ok := o.randomStop(routes, rng)
	if !ok {
		return nil
	}
	a2, t2, p2, ok := o.randomStop(routes, rng)
	if !ok || a1 == a2 {
		return nil
	}
	u1, u2 := routes[a1][t1][p1], routes[a2][t2][p2]
	if !contains(compat[u1.Index], a2) || !contains(compat[u2.Index], a1) {
		return nil
	}

	cand := cloneRoutes(routes)
	cand[a1][t1][p1], cand[a2][t2][p2] = u2, u1
	if _, ok := o.eval.endTime(o.inst.Agents[a1], cand[a1]); !ok {
		return nil
	}
	if _, ok := o.eval.endTime(o.inst.Agents[a2], cand[a2]); !ok {
		return nil
	}
	return cand
}

// randomStop picks a uniformly random stop across all routes.
func (o *Optimizer) randomStop(routes []tripSeq, rng *rand.Rand) (agent, trip, pos int, ok bool) {
	total := o.totalUnits(routes)
	if total == 0 {
		return 0, 0, 0, false
	}
	n := rng.Intn(total)
	for ai, r := range routes {
		for ti, t := range r {
			if n < len(t) {
				return ai, ti, n, true
			}
			n -= len(t)
		}
	}
	return 0, 0, 0, false
}

func (o *Optimizer) totalUnits(routes []tripSeq) int {
	n := 0
	for _, r := range routes {
		n += r.units()
	}
	return n
}

// makespan is the objective: the largest end time across agents, with
// unused agents contributing 0. Routes passed here are always
// feasible, so a failed schedule means a bug; it is scored as the
// horizon to keep it from winning.
func (o *Optimizer) makespan(routes []tripSeq) int {
	span := 0
	for ai, r := range routes {
		end, ok := o.eval.endTime(o.inst.Agents[ai], r)
		if !ok {
			end = o.opts.Horizon
		}
		if end > span {
			span = end
		}
	}
	return span
}

// buildPlan freezes the winning routes into a Plan and pairs every
// active cart with a human escort.
func (o *Optimizer) buildPlan(routes []tripSeq) (*core.Plan, error) {
	plan := core.NewPlan()

	for ai, r := range routes {
		if r.units() == 0 {
			continue
		}
		a := o.inst.Agents[ai]
		stops, ok := o.eval.schedule(a, r)
		if !ok {
			return nil, ErrInfeasible
		}
		plan.Routes[a.ID] = &core.Route{Agent: a, Stops: stops}
	}

	// Escort pairing: active carts and humans in fleet order, one
	// human per cart. Each human escorts at most one cart.
	var humans []*core.Agent
	for _, a := range o.inst.Agents {
		if a.Type == core.TypeHuman {
			humans = append(humans, a)
		}
	}
	next := 0
	for _, a := range o.inst.Agents {
		if a.Type != core.TypeCart {
			continue
		}
		if r, active := plan.Routes[a.ID]; !active || len(r.Stops) == 0 {
			continue
		}
		if next >= len(humans) {
			return nil, ErrInfeasible
		}
		plan.CartEscorts[a.ID] = humans[next].ID
		next++
	}
	return plan, nil
}

func cloneRoutes(routes []tripSeq) []tripSeq {
	out := make([]tripSeq, len(routes))
	for i, r := range routes {
		out[i] = r.clone()
	}
	return out
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
