// Package report aggregates a deconflicted plan into makespan,
// per-agent statistics, and total cost.
package report

import (
	"sort"

	"github.com/elektrokombinacija/optipick/internal/config"
	"github.com/elektrokombinacija/optipick/internal/core"
	"github.com/elektrokombinacija/optipick/internal/sim"
)

// Severity buckets for residual collisions.
const (
	SeverityNone    = "none"
	SeverityMinor   = "minor"
	SeverityWarning = "warning"
	SeveritySevere  = "severe"
)

// CollisionSeverity classifies a residual-collision count.
func CollisionSeverity(n int) string {
	switch {
	case n == 0:
		return SeverityNone
	case n <= 3:
		return SeverityMinor
	case n <= 10:
		return SeverityWarning
	default:
		return SeveritySevere
	}
}

// AgentStats summarizes one active agent.
type AgentStats struct {
	Agent          core.AgentID   `json:"agent"`
	Type           core.AgentType `json:"-"`
	TypeName       string         `json:"type"`
	Units          int            `json:"units"`
	Trips          int            `json:"trips"`
	StartDelay     int            `json:"start_delay_minutes"`
	Start          string         `json:"start"`
	End            string         `json:"end"`
	WorkingMinutes int            `json:"working_minutes"`
	WeightKg       float64        `json:"weight_kg"`
	Volume         int            `json:"volume_dm3"`
	Cost           float64        `json:"cost"`
}

// Summary is the reporter output.
type Summary struct {
	Makespan           int          `json:"makespan_minutes"`
	MakespanClock      string       `json:"makespan_clock"`
	TotalUnits         int          `json:"total_units"`
	TotalTrips         int          `json:"total_trips"`
	TotalDelay         int          `json:"total_delay_minutes"`
	TotalCost          float64      `json:"total_cost"`
	Bottleneck         core.AgentID `json:"bottleneck,omitempty"`
	ResidualCollisions int          `json:"residual_collisions"`
	CollisionSeverity  string       `json:"collision_severity"`
	Agents             []AgentStats `json:"agents"`
}

// Summarize derives the summary from a plan and its collision
// resolution. Agents are listed by working duration, longest first;
// the bottleneck is the last-finishing agent.
func Summarize(plan *core.Plan, res *sim.ResolveResult, rates config.CostRates, startHour int) *Summary {
	s := &Summary{
		TotalUnits:         plan.TotalUnits(),
		ResidualCollisions: len(res.Collisions),
		CollisionSeverity:  CollisionSeverity(len(res.Collisions)),
	}

	bottleneckEnd := -1
	for _, a := range plan.ActiveAgents() {
		route := plan.Routes[a.ID]
		delay := res.Delays[a.ID]
		// Working window runs from the delayed start to the delayed
		// last visit; its length is the undelayed last visit.
		working := route.LastVisit()
		end := working + delay

		grams := 0
		volume := 0
		for _, stop := range route.Stops {
			grams += stop.Unit.Product.WeightGrams
			volume += stop.Unit.Product.Volume
		}

		cost := float64(working) / 60.0 * rates.Rate(a.Type)

		s.Agents = append(s.Agents, AgentStats{
			Agent:          a.ID,
			Type:           a.Type,
			TypeName:       a.Type.String(),
			Units:          len(route.Stops),
			Trips:          route.Trips(),
			StartDelay:     delay,
			Start:          core.FormatClock(delay, startHour),
			End:            core.FormatClock(end, startHour),
			WorkingMinutes: working,
			WeightKg:       float64(grams) / 1000.0,
			Volume:         volume,
			Cost:           cost,
		})

		s.TotalTrips += route.Trips()
		s.TotalDelay += delay
		s.TotalCost += cost
		if end > s.Makespan {
			s.Makespan = end
		}
		if end > bottleneckEnd {
			s.Bottleneck = a.ID
			bottleneckEnd = end
		}
	}

	// Every active cart additionally bills its escort human over the
	// cart's working window, whether or not that human also runs a
	// route of its own.
	for cartID := range plan.CartEscorts {
		route, ok := plan.Routes[cartID]
		if !ok || len(route.Stops) == 0 {
			continue
		}
		s.TotalCost += float64(route.LastVisit()) / 60.0 * rates.Human
	}

	s.MakespanClock = core.FormatClock(s.Makespan, startHour)

	sort.SliceStable(s.Agents, func(i, j int) bool {
		if s.Agents[i].WorkingMinutes != s.Agents[j].WorkingMinutes {
			return s.Agents[i].WorkingMinutes > s.Agents[j].WorkingMinutes
		}
		return s.Agents[i].Agent < s.Agents[j].Agent
	})

	return s
}
