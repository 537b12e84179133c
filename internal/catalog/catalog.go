// Package catalog loads the warehouse, product, agent, and order
// catalogs from their JSON files into typed domain records.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// ErrInvalidInput marks malformed or inconsistent catalog data. No
// plan is produced when it is returned.
var ErrInvalidInput = errors.New("catalog: invalid input")

// Default catalog file names inside a data directory.
const (
	WarehouseFile   = "warehouse.json"
	ProductsFile    = "products.json"
	AgentsFile      = "agents.json"
	OrdersFile      = "orders.json"
	ZonesAccessFile = "zones_access.json"
)

type warehouseRecord struct {
	Width                 int                       `json:"width"`
	Height                int                       `json:"height"`
	EntryPoint            [2]int                    `json:"entry_point"`
	PreparationZone       [2]int                    `json:"preparation_zone"`
	Zones                 map[string]zoneRecord     `json:"zones"`
	NavigationGrid        [][]int                   `json:"navigation_grid"`
	RobotAccessibleStorage []string                 `json:"robot_accessible_storage"`
}

type zoneRecord struct {
	Coords [][2]int `json:"coords"`
}

type productRecord struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Weight           decimal.Decimal `json:"weight"`
	Volume           int             `json:"volume"`
	Fragile          bool            `json:"fragile"`
	Location         string          `json:"location"`
	PickupLocation   [2]int          `json:"pickup_location"`
	IncompatibleWith []string        `json:"incompatible_with"`
}

type agentRecord struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	CapacityWeight decimal.Decimal     `json:"capacity_weight"`
	CapacityVolume int                 `json:"capacity_volume"`
	Speed          float64             `json:"speed"`
	Restrictions   *restrictionsRecord `json:"restrictions,omitempty"`
}

type restrictionsRecord struct {
	NoFragile     bool            `json:"no_fragile"`
	MaxItemWeight decimal.Decimal `json:"max_item_weight"`
}

type orderRecord struct {
	ID       string            `json:"id"`
	Priority string            `json:"priority"`
	Deadline string            `json:"deadline"`
	Items    []orderItemRecord `json:"items"`
}

type orderItemRecord struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type zonesAccessRecord struct {
	RobotAccessibleStorage []string `json:"robot_accessible_storage"`
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	return nil
}

// gramsOf converts a kg decimal (3-decimal precision in the catalogs)
// to integer grams without float drift.
func gramsOf(kg decimal.Decimal) int {
	return int(kg.Mul(decimal.NewFromInt(1000)).IntPart())
}

func cell(xy [2]int) core.Cell {
	return core.Cell{X: xy[0], Y: xy[1]}
}

// LoadWarehouse reads and validates the warehouse layout. The depot
// pool is derived from the preparation zone.
func LoadWarehouse(path string) (*core.Warehouse, error) {
	var rec warehouseRecord
	if err := readJSON(path, &rec); err != nil {
		return nil, err
	}
	if rec.Width < 1 || rec.Height < 1 {
		return nil, fmt.Errorf("%w: warehouse dimensions %dx%d", ErrInvalidInput, rec.Width, rec.Height)
	}
	if len(rec.NavigationGrid) > 0 {
		if len(rec.NavigationGrid) != rec.Height {
			return nil, fmt.Errorf("%w: navigation grid has %d rows, want %d", ErrInvalidInput, len(rec.NavigationGrid), rec.Height)
		}
		for r, row := range rec.NavigationGrid {
			if len(row) != rec.Width {
				return nil, fmt.Errorf("%w: navigation grid row %d has %d cells, want %d", ErrInvalidInput, r, len(row), rec.Width)
			}
			for _, v := range row {
				if v != 0 && v != 1 {
					return nil, fmt.Errorf("%w: navigation grid row %d holds value %d", ErrInvalidInput, r, v)
				}
			}
		}
	}

	w := &core.Warehouse{
		Width:           rec.Width,
		Height:          rec.Height,
		NavGrid:         rec.NavigationGrid,
		Entry:           cell(rec.EntryPoint),
		Prep:            cell(rec.PreparationZone),
		Zones:           make(map[string][]core.Cell, len(rec.Zones)),
		RobotAccessible: make(map[string]bool),
	}
	for name, z := range rec.Zones {
		cells := make([]core.Cell, len(z.Coords))
		for i, xy := range z.Coords {
			cells[i] = cell(xy)
			if !w.InBounds(cells[i]) {
				return nil, fmt.Errorf("%w: zone %s cell %v out of range", ErrInvalidInput, name, cells[i])
			}
		}
		w.Zones[name] = cells
	}
	for _, label := range rec.RobotAccessibleStorage {
		w.RobotAccessible[label] = true
	}
	w.DepotPool = core.DefaultDepotPool(w.Prep)

	if !w.Traversable(w.Entry) {
		return nil, fmt.Errorf("%w: entry point %v blocked or out of range", ErrInvalidInput, w.Entry)
	}
	if !w.Traversable(w.Prep) {
		return nil, fmt.Errorf("%w: preparation zone %v blocked or out of range", ErrInvalidInput, w.Prep)
	}
	return w, nil
}

// LoadProducts reads the product catalog.
func LoadProducts(path string) ([]*core.Product, error) {
	var recs []productRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	products := make([]*core.Product, 0, len(recs))
	seen := make(map[string]bool)
	for _, rec := range recs {
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: product with empty id", ErrInvalidInput)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("%w: duplicate product id %s", ErrInvalidInput, rec.ID)
		}
		seen[rec.ID] = true
		incompatible := make([]core.ProductID, len(rec.IncompatibleWith))
		for i, id := range rec.IncompatibleWith {
			incompatible[i] = core.ProductID(id)
		}
		products = append(products, &core.Product{
			ID:               core.ProductID(rec.ID),
			Name:             rec.Name,
			Category:         rec.Category,
			WeightGrams:      gramsOf(rec.Weight),
			Volume:           rec.Volume,
			Fragile:          rec.Fragile,
			Location:         rec.Location,
			Pickup:           cell(rec.PickupLocation),
			IncompatibleWith: incompatible,
		})
	}
	return products, nil
}

// LoadAgents reads the fleet catalog.
func LoadAgents(path string) ([]*core.Agent, error) {
	var recs []agentRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	agents := make([]*core.Agent, 0, len(recs))
	for _, rec := range recs {
		t, err := core.ParseAgentType(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %s: %v", ErrInvalidInput, rec.ID, err)
		}
		if rec.Speed <= 0 {
			return nil, fmt.Errorf("%w: agent %s has non-positive speed", ErrInvalidInput, rec.ID)
		}
		a := &core.Agent{
			ID:             core.AgentID(rec.ID),
			Type:           t,
			CapacityGrams:  gramsOf(rec.CapacityWeight),
			CapacityVolume: rec.CapacityVolume,
			Speed:          rec.Speed,
		}
		if rec.Restrictions != nil {
			a.NoFragile = rec.Restrictions.NoFragile
			a.MaxItemGrams = gramsOf(rec.Restrictions.MaxItemWeight)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// LoadOrders reads the order book. Deadlines are converted to minutes
// since startHour.
func LoadOrders(path string, startHour int) ([]*core.Order, error) {
	var recs []orderRecord
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	orders := make([]*core.Order, 0, len(recs))
	for _, rec := range recs {
		prio, err := core.ParsePriority(rec.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidInput, rec.ID, err)
		}
		deadline, err := core.ParseClock(rec.Deadline, startHour)
		if err != nil {
			return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidInput, rec.ID, err)
		}
		o := &core.Order{
			ID:              core.OrderID(rec.ID),
			Priority:        prio,
			DeadlineMinutes: deadline,
		}
		for _, item := range rec.Items {
			if item.Quantity < 1 {
				return nil, fmt.Errorf("%w: order %s has non-positive quantity for %s", ErrInvalidInput, rec.ID, item.ProductID)
			}
			o.Items = append(o.Items, core.OrderItem{
				Product:  core.ProductID(item.ProductID),
				Quantity: item.Quantity,
			})
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// LoadZonesAccess reads the robot-accessible storage labels.
func LoadZonesAccess(path string) (map[string]bool, error) {
	var rec zonesAccessRecord
	if err := readJSON(path, &rec); err != nil {
		return nil, err
	}
	access := make(map[string]bool, len(rec.RobotAccessibleStorage))
	for _, label := range rec.RobotAccessibleStorage {
		access[label] = true
	}
	return access, nil
}

// LoadInstance assembles a validated instance from a data directory
// holding the five catalog files. zones_access.json, when present,
// replaces the warehouse's robot-accessible label set.
func LoadInstance(dir string, startHour int) (*core.Instance, error) {
	w, err := LoadWarehouse(filepath.Join(dir, WarehouseFile))
	if err != nil {
		return nil, err
	}
	products, err := LoadProducts(filepath.Join(dir, ProductsFile))
	if err != nil {
		return nil, err
	}
	agents, err := LoadAgents(filepath.Join(dir, AgentsFile))
	if err != nil {
		return nil, err
	}
	orders, err := LoadOrders(filepath.Join(dir, OrdersFile), startHour)
	if err != nil {
		return nil, err
	}
	if zonesPath := filepath.Join(dir, ZonesAccessFile); fileExists(zonesPath) {
		access, err := LoadZonesAccess(zonesPath)
		if err != nil {
			return nil, err
		}
		w.RobotAccessible = access
	}

	inst := &core.Instance{Warehouse: w, Products: products, Agents: agents, Orders: orders}
	for _, p := range products {
		if !w.InBounds(p.Pickup) {
			return nil, fmt.Errorf("%w: product %s pickup %v out of range", ErrInvalidInput, p.ID, p.Pickup)
		}
	}
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return inst, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
