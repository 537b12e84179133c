package algo

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// The two cell scales inherited from the source system: the optimizer
// computes travel times at 3 m/cell, the trajectory layer documents
// 5 m/cell while actually advancing one cell per minute. Unifying them
// would change solver behavior, so both are kept.
const (
	OptimizerMetersPerCell  = 3
	TrajectoryMetersPerCell = 5
)

// PointID identifies a point of interest in the distance table:
// a product id, or the distinguished entry point.
type PointID string

// EntryPoint is the distinguished id of the warehouse entry cell.
const EntryPoint PointID = "entry"

// DistanceTable holds precomputed cell-count distances between the
// entry point and every product pickup cell, and between every pair
// of pickup cells. It is immutable once built.
type DistanceTable struct {
	locations map[PointID]core.Cell
	dist      map[[2]PointID]int
	usedGrid  bool
}

// BuildDistanceTable computes the all-pairs table. With a nav-grid
// the distances come from A* (obstacle-aware); without one they are
// plain Manhattan. Rows are filled concurrently, one worker per
// source point, bounded by GOMAXPROCS.
func BuildDistanceTable(w *core.Warehouse, products []*core.Product) *DistanceTable {
	points := []PointID{EntryPoint}
	locations := map[PointID]core.Cell{EntryPoint: w.Entry}
	for _, p := range products {
		points = append(points, PointID(p.ID))
		locations[PointID(p.ID)] = p.Pickup
	}

	useGrid := len(w.NavGrid) > 0

	rows := make([]map[PointID]int, len(points))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, from := range points {
		i, from := i, from
		g.Go(func() error {
			row := make(map[PointID]int, len(points))
			fromCell := locations[from]
			for _, to := range points {
				toCell := locations[to]
				if useGrid {
					row[to] = GridDistance(w, fromCell, toCell)
				} else {
					row[to] = fromCell.Manhattan(toCell)
				}
			}
			rows[i] = row
			return nil
		})
	}
	// Workers never fail: GridDistance falls back to Manhattan.
	_ = g.Wait()

	dist := make(map[[2]PointID]int, len(points)*len(points))
	for i, from := range points {
		for to, d := range rows[i] {
			dist[[2]PointID{from, to}] = d
		}
	}

	return &DistanceTable{locations: locations, dist: dist, usedGrid: useGrid}
}

// Distance returns the cell-count distance between two points, or 0
// when either id is unknown.
func (t *DistanceTable) Distance(from, to PointID) int {
	return t.dist[[2]PointID{from, to}]
}

// Location returns the cell behind a point id.
func (t *DistanceTable) Location(id PointID) (core.Cell, bool) {
	c, ok := t.locations[id]
	return c, ok
}

// UsedGrid reports whether the table was built obstacle-aware.
func (t *DistanceTable) UsedGrid() bool { return t.usedGrid }

// TravelMinutes converts a cell-count distance to whole minutes at
// the optimizer scale. The +1 guarantees strict forward motion: every
// leg costs at least one minute.
func TravelMinutes(cells int, speedMetersPerSec float64) int {
	meters := cells * OptimizerMetersPerCell
	perMin := speedMetersPerSec * 60
	return int(float64(meters)/perMin) + 1
}

// PrepTravelMinutes is the travel time between a cell and the
// preparation zone. These legs are not in the table; Manhattan
// suffices for them.
func PrepTravelMinutes(from, prep core.Cell, speedMetersPerSec float64) int {
	return TravelMinutes(from.Manhattan(prep), speedMetersPerSec)
}
