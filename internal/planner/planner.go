// Package planner wires the pipeline together: distance oracle, tour
// optimizer, depot assignment, trajectory expansion, collision
// resolution, and reporting.
package planner

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/optipick/internal/algo"
	"github.com/elektrokombinacija/optipick/internal/config"
	"github.com/elektrokombinacija/optipick/internal/core"
	"github.com/elektrokombinacija/optipick/internal/report"
	"github.com/elektrokombinacija/optipick/internal/sim"
)

// Status discriminates planning outcomes. Errors do not propagate as
// panics; every layer returns an outcome and the planner maps it
// here.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// RouteStop is one pick in the reported route.
type RouteStop struct {
	Product    core.ProductID `json:"product"`
	Order      core.OrderID   `json:"order"`
	Trip       int            `json:"trip"`
	Visit      int            `json:"visit_minutes"`
	VisitClock string         `json:"visit"`
	Priority   string         `json:"priority"`
	Deadline   string         `json:"deadline"`
	Pickup     core.Cell      `json:"-"`
}

// AgentRoute is one agent's reported route.
type AgentRoute struct {
	Agent      core.AgentID      `json:"agent"`
	Type       string            `json:"type"`
	Depot      core.Cell         `json:"-"`
	DepotCell  [2]int            `json:"depot"`
	StartDelay int               `json:"start_delay_minutes"`
	Stops      []RouteStop       `json:"stops"`
	Trajectory []TrajectoryPoint `json:"trajectory"`
}

// TrajectoryPoint is one minute of an agent's trajectory.
type TrajectoryPoint struct {
	Minute int `json:"minute"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// CollisionReport is one residual collision.
type CollisionReport struct {
	Agents [2]core.AgentID `json:"agents"`
	Minute int             `json:"minute"`
	Clock  string          `json:"clock"`
	Cell   [2]int          `json:"cell"`
}

// Result is the planner output. Times are HH:MM strings derived from
// minutes since the configured start hour.
type Result struct {
	PlanID      string                       `json:"plan_id"`
	Status      Status                       `json:"status"`
	Error       string                       `json:"error,omitempty"`
	Orders      int                          `json:"orders"`
	Routes      []AgentRoute                 `json:"routes"`
	CartEscorts map[core.AgentID]core.AgentID `json:"cart_escorts,omitempty"`
	Collisions  []CollisionReport            `json:"residual_collisions"`
	Summary     *report.Summary              `json:"summary,omitempty"`

	// Plan and Resolution expose the underlying artifacts to
	// programmatic callers; the JSON carries the flattened view.
	Plan       *core.Plan         `json:"-"`
	Resolution *sim.ResolveResult `json:"-"`
}

// Plan runs the full pipeline over the first numOrders orders of the
// instance.
func Plan(inst *core.Instance, numOrders int, params config.Params, log *zap.Logger) *Result {
	res := &Result{PlanID: uuid.NewString(), Status: StatusSuccess}

	if err := inst.Validate(); err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}

	params.Apply(inst.Agents)
	applyWarehouseOverride(inst.Warehouse, params, log)

	if numOrders < 0 {
		numOrders = 0
	}
	if numOrders > len(inst.Orders) {
		log.Warn("requested more orders than available",
			zap.Int("requested", numOrders), zap.Int("available", len(inst.Orders)))
		numOrders = len(inst.Orders)
	}
	orders := inst.Orders[:numOrders]
	res.Orders = len(orders)

	table := algo.BuildDistanceTable(inst.Warehouse, inst.Products)
	log.Info("distance table built",
		zap.Int("points", len(inst.Products)+1),
		zap.Bool("grid", table.UsedGrid()))

	opt := algo.NewOptimizer(inst, table, algo.Options{
		Seed:        params.RandomSeed,
		Workers:     params.SearchWorkers,
		Budget:      params.SolverBudget(len(orders)),
		PickingTime: params.PickingMinutes(),
		DepotTime:   params.DepotTimeMinutes,
		Horizon:     config.HorizonMinutes,
		MaxTrips:    config.MaxTrips,
	}, log)

	plan, err := opt.Solve(orders)
	if err != nil {
		if errors.Is(err, algo.ErrInfeasible) {
			res.Status = StatusInfeasible
			res.Error = err.Error()
			return res
		}
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	res.Plan = plan

	resolver := &sim.Resolver{
		Warehouse:     inst.Warehouse,
		MaxIterations: params.MaxIterations,
		DepotTime:     params.DepotTimeMinutes,
		Log:           log,
	}
	resolution := resolver.Resolve(plan)
	res.Resolution = resolution

	res.Summary = report.Summarize(plan, resolution, params.Rates, params.StartHour)
	res.CartEscorts = plan.CartEscorts
	res.Routes = buildRouteReports(plan, resolution, params.StartHour)
	res.Collisions = buildCollisionReports(resolution.Collisions, params.StartHour)
	return res
}

func applyWarehouseOverride(w *core.Warehouse, params config.Params, log *zap.Logger) {
	if params.WarehouseWidth == 0 && params.WarehouseHeight == 0 {
		return
	}
	if len(w.NavGrid) > 0 {
		log.Warn("warehouse size override ignored: layout carries a navigation grid")
		return
	}
	if params.WarehouseWidth > 0 {
		w.Width = params.WarehouseWidth
	}
	if params.WarehouseHeight > 0 {
		w.Height = params.WarehouseHeight
	}
}

func buildRouteReports(plan *core.Plan, resolution *sim.ResolveResult, startHour int) []AgentRoute {
	var routes []AgentRoute
	for _, a := range plan.ActiveAgents() {
		route := plan.Routes[a.ID]
		delay := resolution.Delays[a.ID]
		depot := resolution.Depots[a.ID]

		ar := AgentRoute{
			Agent:      a.ID,
			Type:       a.Type.String(),
			Depot:      depot,
			DepotCell:  [2]int{depot.X, depot.Y},
			StartDelay: delay,
		}
		for _, stop := range route.Stops {
			ar.Stops = append(ar.Stops, RouteStop{
				Product:    stop.Unit.Product.ID,
				Order:      stop.Unit.Order.ID,
				Trip:       stop.Trip,
				Visit:      stop.Visit + delay,
				VisitClock: core.FormatClock(stop.Visit+delay, startHour),
				Priority:   stop.Unit.Priority().String(),
				Deadline:   core.FormatClock(stop.Unit.Deadline(), startHour),
				Pickup:     stop.Unit.Product.Pickup,
			})
		}
		ar.Trajectory = flattenTrajectory(resolution.Trajectories[a.ID])
		routes = append(routes, ar)
	}
	return routes
}

func flattenTrajectory(t core.Trajectory) []TrajectoryPoint {
	points := make([]TrajectoryPoint, 0, len(t))
	for m, c := range t {
		points = append(points, TrajectoryPoint{Minute: m, X: c.X, Y: c.Y})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Minute < points[j].Minute })
	return points
}

func buildCollisionReports(collisions []core.Collision, startHour int) []CollisionReport {
	reports := make([]CollisionReport, 0, len(collisions))
	for _, c := range collisions {
		reports = append(reports, CollisionReport{
			Agents: [2]core.AgentID{c.A, c.B},
			Minute: c.Minute,
			Clock:  core.FormatClock(c.Minute, startHour),
			Cell:   [2]int{c.Cell.X, c.Cell.Y},
		})
	}
	return reports
}
