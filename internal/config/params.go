// Package config holds the planner parameter surface and defaults.
package config

import (
	"time"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// Planning constants fixed by the problem, not exposed as knobs.
const (
	// HorizonMinutes is the scheduling horizon: 8 hours from the
	// nominal start.
	HorizonMinutes = 480
	// MaxTrips bounds trips per agent.
	MaxTrips = 15
)

// CostRates are currency-agnostic hourly rates per agent type.
type CostRates struct {
	Robot float64
	Human float64
	Cart  float64
}

// Rate returns the hourly rate for an agent type.
func (r CostRates) Rate(t core.AgentType) float64 {
	switch t {
	case core.TypeRobot:
		return r.Robot
	case core.TypeHuman:
		return r.Human
	default:
		return r.Cart
	}
}

// AgentOverride adjusts the spec of every agent of one type. Zero
// fields leave the catalog value in place.
type AgentOverride struct {
	CapacityWeightKg float64
	CapacityVolume   int
	Speed            float64
}

// Params enumerates every planner option.
type Params struct {
	RandomSeed     int64
	SearchWorkers  int
	MaxTimeSeconds int // solver wall-clock ceiling; 0 picks the adaptive budget

	MaxIterations      int // collision-resolver iteration cap
	DepotTimeMinutes   int // dwell per depot drop-off
	PickingTimeSeconds int // optimizer's inter-pick picking time
	StartHour          int // nominal clock start

	Rates     CostRates
	Overrides map[core.AgentType]AgentOverride

	// Warehouse grid size overrides; 0 keeps the catalog value.
	WarehouseWidth  int
	WarehouseHeight int
}

// Default returns the parameter set matching the source system's
// defaults.
func Default() Params {
	return Params{
		RandomSeed:         12345,
		SearchWorkers:      9,
		MaxIterations:      250,
		DepotTimeMinutes:   2,
		PickingTimeSeconds: 60,
		StartHour:          9,
		Rates:              CostRates{Robot: 5.0, Human: 25.0, Cart: 3.0},
	}
}

// SolverBudget resolves the wall-clock budget: an explicit
// MaxTimeSeconds wins, otherwise the budget adapts to order count.
func (p Params) SolverBudget(numOrders int) time.Duration {
	if p.MaxTimeSeconds > 0 {
		return time.Duration(p.MaxTimeSeconds) * time.Second
	}
	switch {
	case numOrders <= 20:
		return 45 * time.Second
	case numOrders <= 50:
		return 120 * time.Second
	default:
		return 300 * time.Second
	}
}

// PickingMinutes converts the picking time to whole minutes, at least
// one.
func (p Params) PickingMinutes() int {
	m := (p.PickingTimeSeconds + 59) / 60
	if m < 1 {
		m = 1
	}
	return m
}

// Apply rewrites agent specs in place according to the per-type
// overrides.
func (p Params) Apply(agents []*core.Agent) {
	for _, a := range agents {
		o, ok := p.Overrides[a.Type]
		if !ok {
			continue
		}
		if o.CapacityWeightKg > 0 {
			a.CapacityGrams = int(o.CapacityWeightKg * 1000)
		}
		if o.CapacityVolume > 0 {
			a.CapacityVolume = o.CapacityVolume
		}
		if o.Speed > 0 {
			a.Speed = o.Speed
		}
	}
}
