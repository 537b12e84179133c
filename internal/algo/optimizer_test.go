package algo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/optipick/internal/core"
)

func testWarehouse() *core.Warehouse {
	prep := core.Cell{X: 6, Y: 5}
	return &core.Warehouse{
		Width:           11,
		Height:          10,
		Entry:           core.Cell{X: 6, Y: 10},
		Prep:            prep,
		RobotAccessible: map[string]bool{"storage_b": true},
		DepotPool:       core.DefaultDepotPool(prep),
	}
}

func newTestOptimizer(inst *core.Instance) *Optimizer {
	table := BuildDistanceTable(inst.Warehouse, inst.Products)
	return NewOptimizer(inst, table, Options{
		Seed:        7,
		Workers:     2,
		Budget:      2 * time.Second,
		PickingTime: 1,
		DepotTime:   2,
		Horizon:     480,
		MaxTrips:    15,
	}, zap.NewNop())
}

func human(id string, capacityKg float64) *core.Agent {
	return &core.Agent{ID: core.AgentID(id), Type: core.TypeHuman, CapacityGrams: int(capacityKg * 1000), CapacityVolume: 50, Speed: 1.5}
}

func robot(id string) *core.Agent {
	return &core.Agent{ID: core.AgentID(id), Type: core.TypeRobot, CapacityGrams: 20000, CapacityVolume: 30, Speed: 2.0}
}

func cart(id string) *core.Agent {
	return &core.Agent{ID: core.AgentID(id), Type: core.TypeCart, CapacityGrams: 120000, CapacityVolume: 200, Speed: 1.0}
}

func product(id, location string, kg float64, cell core.Cell) *core.Product {
	return &core.Product{ID: core.ProductID(id), Category: "general", WeightGrams: int(kg * 1000), Volume: 1, Location: location, Pickup: cell}
}

func order(id string, prio core.Priority, deadline int, items ...core.OrderItem) *core.Order {
	return &core.Order{ID: core.OrderID(id), Priority: prio, DeadlineMinutes: deadline, Items: items}
}

func TestSolveEmptyOrders(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Agents:    []*core.Agent{human("H1", 35)},
	}
	plan, err := newTestOptimizer(inst).Solve(nil)
	if err != nil {
		t.Fatal(err)
	}
	if plan.TotalUnits() != 0 || len(plan.ActiveAgents()) != 0 {
		t.Errorf("empty orders produced a non-empty plan")
	}
}

func TestRobotZoneForcing(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  []*core.Product{product("P1", "storage_b", 2, core.Cell{X: 3, Y: 3})},
		Agents:    []*core.Agent{human("H1", 35), robot("R1")},
	}
	orders := []*core.Order{order("O1", core.PriorityStandard, 180, core.OrderItem{Product: "P1", Quantity: 1})}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	route, ok := plan.Routes["R1"]
	if !ok || len(route.Stops) != 1 {
		t.Fatalf("robot-zone unit not carried by the robot: routes %v", plan.Routes)
	}
	if _, ok := plan.Routes["H1"]; ok {
		t.Error("human should be idle")
	}
}

func TestCapacitySplit(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  []*core.Product{product("P1", "storage_a", 15, core.Cell{X: 3, Y: 3})},
		Agents:    []*core.Agent{human("H1", 20)},
	}
	orders := []*core.Order{order("O1", core.PriorityStandard, 480, core.OrderItem{Product: "P1", Quantity: 3})}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	route := plan.Routes["H1"]
	if route == nil || len(route.Stops) != 3 {
		t.Fatalf("expected 3 stops on H1")
	}
	if got := route.Trips(); got != 3 {
		t.Errorf("trips = %d, want 3 (15kg each, 20kg capacity)", got)
	}
	for trip := 1; trip <= route.Trips(); trip++ {
		grams, _ := route.TripLoad(trip)
		if grams > inst.Agents[0].CapacityGrams {
			t.Errorf("trip %d load %dg exceeds capacity", trip, grams)
		}
	}
}

func TestCapacityBoundary(t *testing.T) {
	// Two units exactly fill the agent; a third forces another trip.
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  []*core.Product{product("P1", "storage_a", 10, core.Cell{X: 3, Y: 3})},
		Agents:    []*core.Agent{human("H1", 20)},
	}
	orders := []*core.Order{order("O1", core.PriorityStandard, 480, core.OrderItem{Product: "P1", Quantity: 2})}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Routes["H1"].Trips(); got != 1 {
		t.Errorf("exact fill should stay one trip, got %d", got)
	}

	orders[0].Items[0].Quantity = 3
	plan, err = newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	if got := plan.Routes["H1"].Trips(); got != 2 {
		t.Errorf("one extra unit must open a second trip, got %d", got)
	}
}

func TestIncompatibilitySplit(t *testing.T) {
	p1 := product("P1", "storage_a", 2, core.Cell{X: 3, Y: 3})
	p2 := product("P2", "storage_a", 2, core.Cell{X: 4, Y: 3})
	p1.IncompatibleWith = []core.ProductID{"P2"}
	p2.IncompatibleWith = []core.ProductID{"P1"}

	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  []*core.Product{p1, p2},
		Agents:    []*core.Agent{human("H1", 35)},
	}
	orders := []*core.Order{order("O1", core.PriorityStandard, 480,
		core.OrderItem{Product: "P1", Quantity: 1},
		core.OrderItem{Product: "P2", Quantity: 1})}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	route := plan.Routes["H1"]
	if route == nil || len(route.Stops) != 2 {
		t.Fatalf("expected both units on H1")
	}
	if route.Stops[0].Trip == route.Stops[1].Trip {
		t.Errorf("incompatible units share trip %d", route.Stops[0].Trip)
	}
}

func TestExpressBeforeStandard(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products: []*core.Product{
			product("P1", "storage_a", 1, core.Cell{X: 2, Y: 2}),
			product("P2", "storage_a", 1, core.Cell{X: 9, Y: 8}),
		},
		Agents: []*core.Agent{human("H1", 35)},
	}
	orders := []*core.Order{
		order("O1", core.PriorityStandard, 480, core.OrderItem{Product: "P1", Quantity: 2}),
		order("O2", core.PriorityExpress, 480, core.OrderItem{Product: "P2", Quantity: 2}),
	}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	route := plan.Routes["H1"]
	maxExpress, minStandard := -1, 1<<30
	for _, stop := range route.Stops {
		if stop.Unit.Priority() == core.PriorityExpress {
			if stop.Visit > maxExpress {
				maxExpress = stop.Visit
			}
		} else if stop.Visit < minStandard {
			minStandard = stop.Visit
		}
	}
	if maxExpress < 0 || minStandard == 1<<30 {
		t.Fatal("expected both priority classes on the agent")
	}
	if maxExpress >= minStandard {
		t.Errorf("express visit %d not strictly before standard visit %d", maxExpress, minStandard)
	}
}

func TestInfeasibleDeadline(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  []*core.Product{product("P1", "storage_a", 2, core.Cell{X: 3, Y: 3})},
		Agents:    []*core.Agent{human("H1", 35)},
	}
	// Deadline at minute 0: even the anchored first pick needs >= 1.
	orders := []*core.Order{order("O1", core.PriorityStandard, 0, core.OrderItem{Product: "P1", Quantity: 1})}

	_, err := newTestOptimizer(inst).Solve(orders)
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("err = %v, want ErrInfeasible", err)
	}
}

func TestCartNeedsHumanEscort(t *testing.T) {
	heavy := product("P1", "storage_a", 60, core.Cell{X: 3, Y: 3}) // above any human capacity

	t.Run("no human in fleet", func(t *testing.T) {
		inst := &core.Instance{
			Warehouse: testWarehouse(),
			Products:  []*core.Product{heavy},
			Agents:    []*core.Agent{cart("C1")},
		}
		orders := []*core.Order{order("O1", core.PriorityStandard, 480, core.OrderItem{Product: "P1", Quantity: 1})}
		if _, err := newTestOptimizer(inst).Solve(orders); !errors.Is(err, ErrInfeasible) {
			t.Errorf("cart without a human must be unusable, err = %v", err)
		}
	})

	t.Run("human escorts the cart", func(t *testing.T) {
		inst := &core.Instance{
			Warehouse: testWarehouse(),
			Products:  []*core.Product{heavy},
			Agents:    []*core.Agent{human("H1", 35), cart("C1")},
		}
		orders := []*core.Order{order("O1", core.PriorityStandard, 480, core.OrderItem{Product: "P1", Quantity: 1})}
		plan, err := newTestOptimizer(inst).Solve(orders)
		if err != nil {
			t.Fatal(err)
		}
		if len(plan.Routes["C1"].Stops) != 1 {
			t.Fatal("heavy unit must ride the cart")
		}
		if got := plan.CartEscorts["C1"]; got != "H1" {
			t.Errorf("cart escort = %q, want H1", got)
		}
	})
}

func TestSequencingRecurrence(t *testing.T) {
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products: []*core.Product{
			product("P1", "storage_a", 12, core.Cell{X: 2, Y: 2}),
			product("P2", "storage_a", 12, core.Cell{X: 9, Y: 2}),
			product("P3", "storage_a", 12, core.Cell{X: 9, Y: 8}),
		},
		Agents: []*core.Agent{human("H1", 25)},
	}
	orders := []*core.Order{order("O1", core.PriorityStandard, 480,
		core.OrderItem{Product: "P1", Quantity: 1},
		core.OrderItem{Product: "P2", Quantity: 1},
		core.OrderItem{Product: "P3", Quantity: 1})}

	opt := newTestOptimizer(inst)
	plan, err := opt.Solve(orders)
	if err != nil {
		t.Fatal(err)
	}
	route := plan.Routes["H1"]
	if len(route.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(route.Stops))
	}

	a := inst.Agents[0]
	for i := 1; i < len(route.Stops); i++ {
		prev, cur := route.Stops[i-1], route.Stops[i]
		var need int
		if prev.Trip == cur.Trip {
			d := opt.table.Distance(PointID(prev.Unit.Product.ID), PointID(cur.Unit.Product.ID))
			need = TravelMinutes(d, a.Speed) + 1
		} else {
			need = PrepTravelMinutes(prev.Unit.Product.Pickup, inst.Warehouse.Prep, a.Speed) +
				2 +
				PrepTravelMinutes(cur.Unit.Product.Pickup, inst.Warehouse.Prep, a.Speed) + 1
		}
		if cur.Visit-prev.Visit < need {
			t.Errorf("stop %d: gap %d < required %d (trips %d->%d)",
				i, cur.Visit-prev.Visit, need, prev.Trip, cur.Trip)
		}
	}
}

func TestSolveInvariants(t *testing.T) {
	products := []*core.Product{
		product("P1", "storage_a", 3, core.Cell{X: 2, Y: 2}),
		product("P2", "storage_a", 5, core.Cell{X: 9, Y: 2}),
		product("P3", "storage_b", 4, core.Cell{X: 9, Y: 8}),
		product("P4", "storage_a", 7, core.Cell{X: 2, Y: 8}),
		product("P5", "storage_b", 2, core.Cell{X: 4, Y: 7}),
	}
	inst := &core.Instance{
		Warehouse: testWarehouse(),
		Products:  products,
		Agents:    []*core.Agent{robot("R1"), human("H1", 35), human("H2", 35)},
	}
	orders := []*core.Order{
		order("O1", core.PriorityExpress, 120, core.OrderItem{Product: "P1", Quantity: 2}, core.OrderItem{Product: "P3", Quantity: 1}),
		order("O2", core.PriorityStandard, 300, core.OrderItem{Product: "P2", Quantity: 2}, core.OrderItem{Product: "P5", Quantity: 2}),
		order("O3", core.PriorityStandard, 480, core.OrderItem{Product: "P4", Quantity: 3}),
	}

	plan, err := newTestOptimizer(inst).Solve(orders)
	if err != nil {
		t.Fatal(err)
	}

	units, _ := inst.MaterializeUnits(orders)
	if got := plan.TotalUnits(); got != len(units) {
		t.Errorf("planned units = %d, want %d", got, len(units))
	}

	for id, route := range plan.Routes {
		agent := inst.AgentByID(id)
		for trip := 1; trip <= route.Trips(); trip++ {
			grams, volume := route.TripLoad(trip)
			if grams > agent.CapacityGrams || volume > agent.CapacityVolume {
				t.Errorf("agent %s trip %d overloaded: %dg/%ddm³", id, trip, grams, volume)
			}
		}
		for _, stop := range route.Stops {
			if stop.Visit > stop.Unit.Deadline() {
				t.Errorf("agent %s visits %s at %d past deadline %d", id, stop.Unit.Product.ID, stop.Visit, stop.Unit.Deadline())
			}
			if inst.Warehouse.RobotAccessible[stop.Unit.Product.Location] && agent.Type != core.TypeRobot {
				t.Errorf("robot-zone unit %s carried by %s", stop.Unit.Product.ID, agent.Type)
			}
		}
	}
}

func TestSolveDeterministic(t *testing.T) {
	build := func() string {
		inst := &core.Instance{
			Warehouse: testWarehouse(),
			Products: []*core.Product{
				product("P1", "storage_a", 3, core.Cell{X: 2, Y: 2}),
				product("P2", "storage_a", 5, core.Cell{X: 9, Y: 2}),
				product("P3", "storage_a", 4, core.Cell{X: 9, Y: 8}),
			},
			Agents: []*core.Agent{human("H1", 35), human("H2", 35)},
		}
		orders := []*core.Order{
			order("O1", core.PriorityStandard, 300, core.OrderItem{Product: "P1", Quantity: 2}, core.OrderItem{Product: "P2", Quantity: 1}),
			order("O2", core.PriorityExpress, 200, core.OrderItem{Product: "P3", Quantity: 2}),
		}
		plan, err := newTestOptimizer(inst).Solve(orders)
		if err != nil {
			t.Fatal(err)
		}
		out := ""
		for _, a := range plan.ActiveAgents() {
			out += string(a.ID) + ":"
			for _, s := range plan.Routes[a.ID].Stops {
				out += fmt.Sprintf("%s/t%d@%d;", s.Unit.Product.ID, s.Trip, s.Visit)
			}
		}
		return out
	}

	first := build()
	for i := 0; i < 3; i++ {
		if again := build(); again != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
}
