// Command gen_catalog emits a deterministic sample catalog (the five
// JSON files the planner consumes) for benchmarks and local runs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// CatalogParams defines the generator knobs.
type CatalogParams struct {
	Seed      int64 `json:"seed"`
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Products  int   `json:"products"`
	Orders    int   `json:"orders"`
	Robots    int   `json:"robots"`
	Humans    int   `json:"humans"`
	Carts     int   `json:"carts"`
	MaxItems  int   `json:"max_items_per_order"`
	MaxQty    int   `json:"max_quantity_per_item"`
}

type warehouseOut struct {
	Width                  int                        `json:"width"`
	Height                 int                        `json:"height"`
	EntryPoint             [2]int                     `json:"entry_point"`
	PreparationZone        [2]int                     `json:"preparation_zone"`
	Zones                  map[string]map[string][][2]int `json:"zones"`
	NavigationGrid         [][]int                    `json:"navigation_grid"`
	RobotAccessibleStorage []string                   `json:"robot_accessible_storage"`
}

type productOut struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Weight           float64  `json:"weight"`
	Volume           int      `json:"volume"`
	Fragile          bool     `json:"fragile"`
	Location         string   `json:"location"`
	PickupLocation   [2]int   `json:"pickup_location"`
	IncompatibleWith []string `json:"incompatible_with"`
}

type agentOut struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	CapacityWeight float64         `json:"capacity_weight"`
	CapacityVolume int             `json:"capacity_volume"`
	Speed          float64         `json:"speed"`
	Restrictions   *restrictionOut `json:"restrictions,omitempty"`
}

type restrictionOut struct {
	NoFragile     bool    `json:"no_fragile"`
	MaxItemWeight float64 `json:"max_item_weight"`
}

type orderOut struct {
	ID       string     `json:"id"`
	Priority string     `json:"priority"`
	Deadline string     `json:"deadline"`
	Items    []itemOut  `json:"items"`
}

type itemOut struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func main() {
	params := CatalogParams{}
	flag.Int64Var(&params.Seed, "seed", 42, "generator seed")
	flag.IntVar(&params.Width, "width", 11, "warehouse width")
	flag.IntVar(&params.Height, "height", 10, "warehouse height")
	flag.IntVar(&params.Products, "products", 30, "product count")
	flag.IntVar(&params.Orders, "orders", 10, "order count")
	flag.IntVar(&params.Robots, "robots", 2, "robot count")
	flag.IntVar(&params.Humans, "humans", 2, "human count")
	flag.IntVar(&params.Carts, "carts", 1, "cart count")
	flag.IntVar(&params.MaxItems, "max-items", 3, "max lines per order")
	flag.IntVar(&params.MaxQty, "max-qty", 2, "max quantity per line")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	if err := generate(params, *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "gen_catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("catalog written to %s (seed %d, %d products, %d orders)\n",
		*outDir, params.Seed, params.Products, params.Orders)
}

func generate(p CatalogParams, dir string) error {
	rng := rand.New(rand.NewSource(p.Seed))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	entry := [2]int{p.Width/2 + 1, p.Height}
	prep := [2]int{p.Width/2 + 1, p.Height / 2}

	// Storage racks occupy every third column except the two outer
	// passages; rack cells are blocked, pickups sit beside them.
	grid := make([][]int, p.Height)
	for r := range grid {
		grid[r] = make([]int, p.Width)
		for c := range grid[r] {
			grid[r][c] = 1
		}
	}
	var rackCells [][2]int
	for x := 3; x <= p.Width-2; x += 3 {
		for y := 2; y <= p.Height-2; y++ {
			if xy := [2]int{x, y}; xy != prep && xy != entry {
				grid[p.Height-y][x-1] = 0
				rackCells = append(rackCells, xy)
			}
		}
	}
	// Depot neighborhood around the preparation zone stays clear.
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			x, y := prep[0]+dx, prep[1]+dy
			if x >= 1 && x <= p.Width && y >= 1 && y <= p.Height {
				grid[p.Height-y][x-1] = 1
			}
		}
	}

	zones := map[string]map[string][][2]int{
		"storage_a":     {"coords": {}},
		"storage_b":     {"coords": {}},
		"refrigerated":  {"coords": {}},
		"preparation":   {"coords": {prep}},
		"entry_exit":    {"coords": {entry}},
	}
	labels := []string{"storage_a", "storage_b", "refrigerated"}
	for i, c := range rackCells {
		label := labels[i%len(labels)]
		zones[label]["coords"] = append(zones[label]["coords"], c)
	}
	robotAccessible := []string{"storage_b"}

	warehouse := warehouseOut{
		Width:                  p.Width,
		Height:                 p.Height,
		EntryPoint:             entry,
		PreparationZone:        prep,
		Zones:                  zones,
		NavigationGrid:         grid,
		RobotAccessibleStorage: robotAccessible,
	}

	// Pickup cells: the traversable cell right of each rack cell.
	products := make([]productOut, p.Products)
	categories := []string{"general", "food", "electronics", "household"}
	for i := range products {
		rack := rackCells[rng.Intn(len(rackCells))]
		location := labels[0]
		for _, label := range labels {
			for _, c := range zones[label]["coords"] {
				if c == rack {
					location = label
				}
			}
		}
		category := categories[rng.Intn(len(categories))]
		weight := float64(rng.Intn(12000)+250) / 1000.0
		fragile := rng.Intn(5) == 0
		if location == "storage_b" {
			// Robot-zone stock must stay carryable by the robots:
			// no food, nothing fragile, nothing above their item cap.
			if category == "food" {
				category = "general"
			}
			fragile = false
			if weight > 9.5 {
				weight = 9.5
			}
		}
		products[i] = productOut{
			ID:             fmt.Sprintf("P%03d", i+1),
			Name:           fmt.Sprintf("Article %03d", i+1),
			Category:       category,
			Weight:         weight,
			Volume:         rng.Intn(8) + 1,
			Fragile:        fragile,
			Location:       location,
			PickupLocation: [2]int{rack[0] + 1, rack[1]},
		}
	}
	// A couple of mutually incompatible pairs.
	for i := 0; i+1 < len(products) && i < 6; i += 3 {
		products[i].IncompatibleWith = []string{products[i+1].ID}
		products[i+1].IncompatibleWith = []string{products[i].ID}
	}

	agents := make([]agentOut, 0, p.Robots+p.Humans+p.Carts)
	for i := 0; i < p.Robots; i++ {
		agents = append(agents, agentOut{
			ID: fmt.Sprintf("R%d", i+1), Type: "robot",
			CapacityWeight: 20, CapacityVolume: 30, Speed: 2.0,
			Restrictions: &restrictionOut{NoFragile: true, MaxItemWeight: 10},
		})
	}
	for i := 0; i < p.Humans; i++ {
		agents = append(agents, agentOut{
			ID: fmt.Sprintf("H%d", i+1), Type: "human",
			CapacityWeight: 35, CapacityVolume: 50, Speed: 1.5,
		})
	}
	for i := 0; i < p.Carts; i++ {
		agents = append(agents, agentOut{
			ID: fmt.Sprintf("C%d", i+1), Type: "cart",
			CapacityWeight: 120, CapacityVolume: 200, Speed: 1.0,
		})
	}

	deadlines := []string{"10:30", "11:00", "12:00", "13:00", "14:30", "16:00"}
	orders := make([]orderOut, p.Orders)
	for i := range orders {
		priority := "standard"
		if rng.Intn(4) == 0 {
			priority = "express"
		}
		o := orderOut{
			ID:       fmt.Sprintf("ORD%03d", i+1),
			Priority: priority,
			Deadline: deadlines[rng.Intn(len(deadlines))],
		}
		lines := rng.Intn(p.MaxItems) + 1
		for l := 0; l < lines; l++ {
			o.Items = append(o.Items, itemOut{
				ProductID: products[rng.Intn(len(products))].ID,
				Quantity:  rng.Intn(p.MaxQty) + 1,
			})
		}
		orders[i] = o
	}

	files := map[string]any{
		"warehouse.json":    warehouse,
		"products.json":     products,
		"agents.json":       agents,
		"orders.json":       orders,
		"zones_access.json": map[string][]string{"robot_accessible_storage": robotAccessible},
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644); err != nil {
			return err
		}
	}
	return nil
}
