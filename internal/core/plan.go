package core

import "sort"

// Stop is one pick in an agent's route: a unit, the trip carrying it,
// and the optimizer's visit time in minutes.
type Stop struct {
	Unit  *Unit
	Trip  int
	Visit int
}

// Route is one agent's ordered pick sequence, sorted by (trip, visit).
type Route struct {
	Agent *Agent
	Stops []Stop
}

// LastVisit returns the visit time of the final stop, or 0 for an
// empty route.
func (r *Route) LastVisit() int {
	if len(r.Stops) == 0 {
		return 0
	}
	return r.Stops[len(r.Stops)-1].Visit
}

// Trips returns the number of distinct trips in the route.
func (r *Route) Trips() int {
	seen := make(map[int]bool)
	for _, s := range r.Stops {
		seen[s.Trip] = true
	}
	return len(seen)
}

// TripLoad sums weight (grams) and volume (dm³) of one trip.
func (r *Route) TripLoad(trip int) (grams, volume int) {
	for _, s := range r.Stops {
		if s.Trip == trip {
			grams += s.Unit.Product.WeightGrams
			volume += s.Unit.Product.Volume
		}
	}
	return grams, volume
}

// Plan is the optimizer output: one route per active agent plus the
// cart→human escort pairing.
type Plan struct {
	Routes map[AgentID]*Route

	// CartEscorts maps each active cart to the human paired with it.
	CartEscorts map[AgentID]AgentID
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{
		Routes:      make(map[AgentID]*Route),
		CartEscorts: make(map[AgentID]AgentID),
	}
}

// ActiveAgents returns the agents with non-empty routes, sorted by id
// so every consumer iterates in the same order.
func (p *Plan) ActiveAgents() []*Agent {
	var agents []*Agent
	for _, r := range p.Routes {
		if len(r.Stops) > 0 {
			agents = append(agents, r.Agent)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// TotalUnits counts stops across all routes.
func (p *Plan) TotalUnits() int {
	n := 0
	for _, r := range p.Routes {
		n += len(r.Stops)
	}
	return n
}

// Makespan returns the largest visit time across routes, each shifted
// by that agent's start delay (nil delays means no shifts).
func (p *Plan) Makespan(delays map[AgentID]int) int {
	makespan := 0
	for id, r := range p.Routes {
		if len(r.Stops) == 0 {
			continue
		}
		end := r.LastVisit() + delays[id]
		if end > makespan {
			makespan = end
		}
	}
	return makespan
}

// Trajectory maps an integer minute to the agent's cell, densely
// populated from the agent's effective start through its final
// arrival back at the entry point.
type Trajectory map[int]Cell

// Clone returns an independent copy.
func (t Trajectory) Clone() Trajectory {
	out := make(Trajectory, len(t))
	for m, c := range t {
		out[m] = c
	}
	return out
}

// Span returns the first and last stamped minutes. ok is false for an
// empty trajectory.
func (t Trajectory) Span() (first, last int, ok bool) {
	if len(t) == 0 {
		return 0, 0, false
	}
	first, last = int(^uint(0)>>1), -1
	for m := range t {
		if m < first {
			first = m
		}
		if m > last {
			last = m
		}
	}
	return first, last, true
}

// Collision is two agents occupying the same cell at the same minute.
type Collision struct {
	A, B   AgentID
	Minute int
	Cell   Cell
}
