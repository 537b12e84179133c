package core

import "fmt"

// Instance bundles everything a planning request needs.
type Instance struct {
	Warehouse *Warehouse
	Products  []*Product
	Agents    []*Agent
	Orders    []*Order
}

// ProductByID finds a product by id.
func (inst *Instance) ProductByID(id ProductID) *Product {
	for _, p := range inst.Products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AgentByID finds an agent by id.
func (inst *Instance) AgentByID(id AgentID) *Agent {
	for _, a := range inst.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// AgentsOfType returns the agents of the given type in fleet order.
func (inst *Instance) AgentsOfType(t AgentType) []*Agent {
	var out []*Agent
	for _, a := range inst.Agents {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// MaterializeUnits expands the given orders into pickable units: a
// line with quantity 3 becomes three units. Unit indexes follow order
// and line order, so the expansion is deterministic.
func (inst *Instance) MaterializeUnits(orders []*Order) ([]*Unit, error) {
	var units []*Unit
	for _, o := range orders {
		for _, item := range o.Items {
			p := inst.ProductByID(item.Product)
			if p == nil {
				return nil, fmt.Errorf("core: order %s references unknown product %s", o.ID, item.Product)
			}
			for q := 0; q < item.Quantity; q++ {
				units = append(units, &Unit{Index: len(units), Product: p, Order: o})
			}
		}
	}
	return units, nil
}

// Validate checks instance consistency. It covers the InvalidInput
// conditions that survive catalog parsing: unreachable entry or
// preparation cells, out-of-range pickups, and an empty depot pool.
func (inst *Instance) Validate() error {
	w := inst.Warehouse
	if w == nil {
		return fmt.Errorf("core: instance has no warehouse")
	}
	if w.Width < 1 || w.Height < 1 {
		return fmt.Errorf("core: warehouse dimensions %dx%d invalid", w.Width, w.Height)
	}
	if !w.Traversable(w.Entry) {
		return fmt.Errorf("core: entry point %v is blocked or out of range", w.Entry)
	}
	if !w.Traversable(w.Prep) {
		return fmt.Errorf("core: preparation zone %v is blocked or out of range", w.Prep)
	}
	if len(w.DepotPool) == 0 {
		return fmt.Errorf("core: depot pool is empty")
	}
	for _, p := range inst.Products {
		if !w.InBounds(p.Pickup) {
			return fmt.Errorf("core: product %s pickup %v out of range", p.ID, p.Pickup)
		}
	}
	for _, o := range inst.Orders {
		for _, item := range o.Items {
			if inst.ProductByID(item.Product) == nil {
				return fmt.Errorf("core: order %s references unknown product %s", o.ID, item.Product)
			}
			if item.Quantity < 1 {
				return fmt.Errorf("core: order %s has non-positive quantity for %s", o.ID, item.Product)
			}
		}
	}
	return nil
}
