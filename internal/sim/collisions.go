package sim

import (
	"sort"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// DelayStep is how many minutes a colliding agent is pushed back per
// resolver iteration.
const DelayStep = 2

// AssignDepots gives each active agent the next unused cell from the
// depot pool, iterating agents in stable id order. An exhausted pool
// degrades to sharing the preparation cell; logged, not fatal.
func AssignDepots(plan *core.Plan, pool []core.Cell, prep core.Cell, log *zap.Logger) map[core.AgentID]core.Cell {
	depots := make(map[core.AgentID]core.Cell)
	for i, a := range plan.ActiveAgents() {
		if i < len(pool) {
			depots[a.ID] = pool[i]
			continue
		}
		depots[a.ID] = prep
		log.Warn("depot pool exhausted, agent shares preparation cell",
			zap.String("agent", string(a.ID)))
	}
	return depots
}

// ResolveResult is the outcome of the collision-resolution loop.
type ResolveResult struct {
	Trajectories map[core.AgentID]core.Trajectory
	DepotEvents  map[core.AgentID][]core.Cell
	Collisions   []core.Collision // residual; non-empty is not an error
	Delays       map[core.AgentID]int
	Depots       map[core.AgentID]core.Cell
	Iterations   int
}

// Resolver runs the fixed-point delay loop over a plan.
type Resolver struct {
	Warehouse     *core.Warehouse
	MaxIterations int
	DepotTime     int
	Log           *zap.Logger
}

// Resolve assigns depots, then repeatedly rebuilds all trajectories
// and delays the agent involved in the most collisions by DelayStep
// minutes until no collisions remain or the iteration cap is hit.
// Residual collisions are surfaced in the result.
func (r *Resolver) Resolve(plan *core.Plan) *ResolveResult {
	depots := AssignDepots(plan, r.Warehouse.DepotPool, r.Warehouse.Prep, r.Log)

	agents := plan.ActiveAgents()
	delays := make(map[core.AgentID]int, len(agents))
	for _, a := range agents {
		delays[a.ID] = 0
	}

	res := &ResolveResult{
		Trajectories: make(map[core.AgentID]core.Trajectory),
		DepotEvents:  make(map[core.AgentID][]core.Cell),
		Delays:       delays,
		Depots:       depots,
	}

	for iter := 1; iter <= r.MaxIterations; iter++ {
		res.Iterations = iter
		for _, a := range agents {
			traj, events := BuildTrajectory(r.Warehouse, plan.Routes[a.ID], depots[a.ID], delays[a.ID], r.DepotTime, r.Log)
			res.Trajectories[a.ID] = traj
			res.DepotEvents[a.ID] = events
		}

		res.Collisions = DetectCollisions(res.Trajectories)
		if len(res.Collisions) == 0 {
			break
		}

		victim := mostCollidingAgent(res.Collisions, agents)
		delays[victim] += DelayStep
		r.Log.Debug("delaying agent to break collisions",
			zap.String("agent", string(victim)),
			zap.Int("iteration", iter),
			zap.Int("collisions", len(res.Collisions)),
			zap.Int("delay", delays[victim]))
	}

	if len(res.Collisions) > 0 {
		r.Log.Warn("residual collisions after iteration cap",
			zap.Int("collisions", len(res.Collisions)),
			zap.Int("iterations", res.Iterations))
	}
	return res
}

// DetectCollisions finds every pair of agents occupying the same cell
// at the same minute. Pairs and minutes are scanned in sorted order,
// so the returned list is deterministic. Edge swaps across a minute
// boundary are intentionally not detected.
func DetectCollisions(trajectories map[core.AgentID]core.Trajectory) []core.Collision {
	ids := make([]core.AgentID, 0, len(trajectories))
	for id := range trajectories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	minutes := make(map[core.AgentID][]int, len(ids))
	for _, id := range ids {
		ms := make([]int, 0, len(trajectories[id]))
		for m := range trajectories[id] {
			ms = append(ms, m)
		}
		sort.Ints(ms)
		minutes[id] = ms
	}

	var collisions []core.Collision
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			t1, t2 := trajectories[ids[i]], trajectories[ids[j]]
			for _, m := range minutes[ids[i]] {
				p2, ok := t2[m]
				if !ok {
					continue
				}
				if p1 := t1[m]; p1 == p2 {
					collisions = append(collisions, core.Collision{
						A: ids[i], B: ids[j], Minute: m, Cell: p1,
					})
				}
			}
		}
	}
	return collisions
}

// mostCollidingAgent counts each agent's collision participations and
// returns the maximum, breaking ties in favor of the agent appearing
// first in the given order.
func mostCollidingAgent(collisions []core.Collision, agents []*core.Agent) core.AgentID {
	counts := make(map[core.AgentID]int)
	for _, c := range collisions {
		counts[c.A]++
		counts[c.B]++
	}
	victim := agents[0].ID
	best := -1
	for _, a := range agents {
		if counts[a.ID] > best {
			victim = a.ID
			best = counts[a.ID]
		}
	}
	return victim
}
