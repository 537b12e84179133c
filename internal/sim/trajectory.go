// Package sim expands optimizer plans into minute-resolution
// trajectories and resolves space-time collisions between agents.
package sim

import (
	"errors"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/optipick/internal/algo"
	"github.com/elektrokombinacija/optipick/internal/core"
)

// At the trajectory layer every agent advances one cell per minute;
// the optimizer's speed model is deliberately decoupled (see the
// scale constants in internal/algo).

// BuildTrajectory expands one agent's route into a minute-indexed
// trajectory. The agent starts at the entry point at startDelay,
// walks to each pick (dwelling until the optimizer's visit time plus
// delay), returns to its depot between trips and after the last pick
// (dwelling depotTime minutes and recording a depot event), and
// finally walks back to the entry point. The returned map and event
// list are fresh copies owned by the caller.
func BuildTrajectory(w *core.Warehouse, route *core.Route, depot core.Cell, startDelay, depotTime int, log *zap.Logger) (core.Trajectory, []core.Cell) {
	traj := make(core.Trajectory)
	var depotEvents []core.Cell

	if len(route.Stops) == 0 {
		return traj, depotEvents
	}

	current := w.Entry
	t := startDelay

	for i, stop := range route.Stops {
		pickup := stop.Unit.Product.Pickup

		for _, cell := range walkSteps(w, current, pickup, log) {
			traj[t] = cell
			t++
		}
		// Dwell until the plan's visit time; this synchronizes the
		// minute clock with the optimizer's schedule.
		for t <= stop.Visit+startDelay {
			traj[t] = pickup
			t++
		}
		current = pickup

		last := i == len(route.Stops)-1
		if !last && route.Stops[i+1].Trip == stop.Trip {
			continue
		}

		// Trip ended: drop off at the depot.
		for _, cell := range walkSteps(w, current, depot, log) {
			traj[t] = cell
			t++
		}
		for d := 0; d < depotTime; d++ {
			traj[t] = depot
			t++
		}
		depotEvents = append(depotEvents, depot)
		current = depot

		if last {
			for _, cell := range walkSteps(w, current, w.Entry, log) {
				traj[t] = cell
				t++
			}
			traj[t] = w.Entry
		}
	}

	return traj, depotEvents
}

// walkSteps returns the cells an agent stamps while walking from one
// cell to another: the shortest path minus the starting cell. When
// the pathfinder reports no path the shape degrades to a Manhattan
// walk (x first, then y) with a warning; never fatal.
func walkSteps(w *core.Warehouse, from, to core.Cell, log *zap.Logger) []core.Cell {
	if len(w.NavGrid) > 0 {
		path, err := algo.Path(w, from, to)
		if err == nil {
			return path[1:]
		}
		if errors.Is(err, algo.ErrNoPath) {
			log.Warn("no grid path, falling back to Manhattan walk",
				zap.Stringer("from", from), zap.Stringer("to", to))
		}
	}
	return manhattanSteps(from, to)
}

// manhattanSteps walks x first, then y, one cell per step, excluding
// the starting cell.
func manhattanSteps(from, to core.Cell) []core.Cell {
	var steps []core.Cell
	cur := from
	for cur.X != to.X {
		if cur.X < to.X {
			cur.X++
		} else {
			cur.X--
		}
		steps = append(steps, cur)
	}
	for cur.Y != to.Y {
		if cur.Y < to.Y {
			cur.Y++
		} else {
			cur.Y--
		}
		steps = append(steps, cur)
	}
	return steps
}
