package core

import "testing"

func TestCanCarry(t *testing.T) {
	access := map[string]bool{"storage_b": true}
	robot := &Agent{ID: "R1", Type: TypeRobot, NoFragile: true, MaxItemGrams: 10000}
	human := &Agent{ID: "H1", Type: TypeHuman}
	cart := &Agent{ID: "C1", Type: TypeCart}

	tests := []struct {
		name    string
		agent   *Agent
		product Product
		want    bool
	}{
		{"robot in accessible zone", robot, Product{Location: "storage_b", Category: "general", WeightGrams: 5000}, true},
		{"robot outside accessible zone", robot, Product{Location: "storage_a", Category: "general", WeightGrams: 5000}, false},
		{"robot refuses food", robot, Product{Location: "storage_b", Category: "food", WeightGrams: 1000}, false},
		{"robot refuses fragile", robot, Product{Location: "storage_b", Category: "general", Fragile: true, WeightGrams: 1000}, false},
		{"robot refuses heavy item", robot, Product{Location: "storage_b", Category: "general", WeightGrams: 12000}, false},
		{"human carries anything", human, Product{Location: "storage_b", Category: "food", Fragile: true, WeightGrams: 30000}, true},
		{"cart carries anything", cart, Product{Location: "storage_a", Category: "food", WeightGrams: 30000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agent.CanCarry(&tt.product, access); got != tt.want {
				t.Errorf("CanCarry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTraversableGridAddressing(t *testing.T) {
	// 3x2 grid; row 0 of the array is y=2. Only (1,2) is blocked.
	w := &Warehouse{
		Width:  3,
		Height: 2,
		NavGrid: [][]int{
			{0, 1, 1}, // y = 2
			{1, 1, 1}, // y = 1
		},
	}

	if w.Traversable(Cell{X: 1, Y: 2}) {
		t.Error("(1,2) should be blocked")
	}
	for _, c := range []Cell{{1, 1}, {2, 1}, {3, 1}, {2, 2}, {3, 2}} {
		if !w.Traversable(c) {
			t.Errorf("%v should be traversable", c)
		}
	}
	for _, c := range []Cell{{0, 1}, {4, 1}, {1, 0}, {1, 3}} {
		if w.Traversable(c) {
			t.Errorf("%v is out of range, must not be traversable", c)
		}
	}
}

func TestDefaultDepotPool(t *testing.T) {
	prep := Cell{X: 6, Y: 5}
	pool := DefaultDepotPool(prep)

	if len(pool) != 8 {
		t.Fatalf("pool size = %d, want 8", len(pool))
	}
	seen := make(map[Cell]bool)
	for _, c := range pool {
		if c == prep {
			t.Errorf("pool contains the preparation cell %v", prep)
		}
		if seen[c] {
			t.Errorf("duplicate pool cell %v", c)
		}
		seen[c] = true
		if c.Manhattan(prep) > 2 || c.Manhattan(prep) == 0 {
			t.Errorf("pool cell %v not adjacent to %v", c, prep)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	tests := []struct {
		clock   string
		minutes int
	}{
		{"09:00", 0},
		{"12:00", 180},
		{"10:30", 90},
		{"08:00", -60},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.clock, 9)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tt.clock, err)
		}
		if got != tt.minutes {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.clock, got, tt.minutes)
		}
		if tt.minutes >= 0 {
			if back := FormatClock(tt.minutes, 9); back != tt.clock {
				t.Errorf("FormatClock(%d) = %q, want %q", tt.minutes, back, tt.clock)
			}
		}
	}

	if _, err := ParseClock("25:00", 9); err == nil {
		t.Error("ParseClock(25:00) should fail")
	}
	if _, err := ParseClock("noon", 9); err == nil {
		t.Error("ParseClock(noon) should fail")
	}
}

func TestMaterializeUnits(t *testing.T) {
	p1 := &Product{ID: "P1"}
	p2 := &Product{ID: "P2"}
	inst := &Instance{
		Products: []*Product{p1, p2},
		Orders: []*Order{
			{ID: "O1", Items: []OrderItem{{Product: "P1", Quantity: 3}, {Product: "P2", Quantity: 1}}},
		},
	}

	units, err := inst.MaterializeUnits(inst.Orders)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 4 {
		t.Fatalf("units = %d, want 4", len(units))
	}
	for i, u := range units {
		if u.Index != i {
			t.Errorf("unit %d has index %d", i, u.Index)
		}
	}
	if units[0].Product != p1 || units[2].Product != p1 || units[3].Product != p2 {
		t.Error("expansion does not preserve order and line order")
	}

	inst.Orders[0].Items = append(inst.Orders[0].Items, OrderItem{Product: "missing", Quantity: 1})
	if _, err := inst.MaterializeUnits(inst.Orders); err == nil {
		t.Error("unknown product reference should fail")
	}
}
