// Package algo implements the planning algorithms: grid pathfinding,
// the distance oracle, and the tour optimizer.
package algo

import (
	"container/heap"
	"errors"

	"github.com/elektrokombinacija/optipick/internal/core"
)

// ErrNoPath indicates no traversable path exists between two cells,
// or that an endpoint is blocked or out of range.
var ErrNoPath = errors.New("algo: no path between cells")

// astarNode for the open-set priority queue.
type astarNode struct {
	cell    core.Cell
	g       int
	f       int
	counter int // discovery order, breaks f ties deterministically
	index   int // heap index
}

type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].counter < h[j].counter
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// neighborOffsets: up, down, left, right. No diagonals.
var neighborOffsets = [4][2]int{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

// Path finds the shortest 4-connected path from start to goal over
// the warehouse nav-grid, unit step cost, Manhattan heuristic. The
// returned path includes both endpoints; consecutive cells are
// 4-adjacent and traversable. start == goal yields a single-cell
// path.
func Path(w *core.Warehouse, start, goal core.Cell) ([]core.Cell, error) {
	if start == goal {
		return []core.Cell{start}, nil
	}
	if !w.Traversable(start) || !w.Traversable(goal) {
		return nil, ErrNoPath
	}

	open := &astarHeap{}
	heap.Init(open)

	counter := 0
	heap.Push(open, &astarNode{cell: start, g: 0, f: start.Manhattan(goal), counter: counter})

	cameFrom := make(map[core.Cell]core.Cell)
	gScore := map[core.Cell]int{start: 0}
	closed := make(map[core.Cell]bool)

	for open.Len() > 0 {
		current := heap.Pop(open).(*astarNode)

		if current.cell == goal {
			return reconstruct(cameFrom, goal), nil
		}
		if closed[current.cell] {
			continue
		}
		closed[current.cell] = true

		for _, d := range neighborOffsets {
			next := core.Cell{X: current.cell.X + d[0], Y: current.cell.Y + d[1]}
			if !w.Traversable(next) || closed[next] {
				continue
			}
			tentative := gScore[current.cell] + 1
			if best, seen := gScore[next]; seen && tentative >= best {
				continue
			}
			cameFrom[next] = current.cell
			gScore[next] = tentative
			counter++
			heap.Push(open, &astarNode{
				cell:    next,
				g:       tentative,
				f:       tentative + next.Manhattan(goal),
				counter: counter,
			})
		}
	}

	return nil, ErrNoPath
}

func reconstruct(cameFrom map[core.Cell]core.Cell, goal core.Cell) []core.Cell {
	path := []core.Cell{goal}
	for {
		prev, ok := cameFrom[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, prev)
	}
	// Reverse in place.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// GridDistance returns the cell-count distance between two cells:
// path length minus one, or the Manhattan distance when no path
// exists (pessimistic but always defined).
func GridDistance(w *core.Warehouse, start, goal core.Cell) int {
	path, err := Path(w, start, goal)
	if err != nil {
		return start.Manhattan(goal)
	}
	return len(path) - 1
}
