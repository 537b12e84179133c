package algo

import (
	"github.com/elektrokombinacija/optipick/internal/core"
)

// tripSeq is a candidate route for one agent: trips in order, each an
// ordered unit sequence. Trip numbers are positions + 1, so candidate
// routes are contiguous and well-formed by construction.
type tripSeq [][]*core.Unit

func (s tripSeq) units() int {
	n := 0
	for _, t := range s {
		n += len(t)
	}
	return n
}

// compact drops empty trips so trip numbers stay contiguous.
func (s tripSeq) compact() tripSeq {
	out := s[:0]
	for _, t := range s {
		if len(t) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (s tripSeq) clone() tripSeq {
	out := make(tripSeq, len(s))
	for i, t := range s {
		out[i] = append([]*core.Unit(nil), t...)
	}
	return out
}

// evaluator turns a candidate route into visit times and checks every
// hard constraint that binds a single agent: per-trip weight and
// volume capacity, trip-level incompatibility, express-before-
// standard, deadlines, and the sequencing/timing recurrence.
type evaluator struct {
	table       *DistanceTable
	prep        core.Cell
	pickingTime int // minutes between consecutive picks
	depotTime   int // minutes dwelling at the depot between trips
	horizon     int // latest permitted visit minute
	maxTrips    int
}

// schedule computes earliest-feasible visit times for the route and
// validates it. ok is false when any hard constraint fails.
func (e *evaluator) schedule(a *core.Agent, trips tripSeq) (stops []core.Stop, ok bool) {
	if len(trips) > e.maxTrips {
		return nil, false
	}

	// Capacity and incompatibility are per trip.
	for _, trip := range trips {
		grams, volume := 0, 0
		for i, u := range trip {
			grams += u.Product.WeightGrams
			volume += u.Product.Volume
			for _, v := range trip[:i] {
				if u.Product.IncompatibleWithID(v.Product.ID) || v.Product.IncompatibleWithID(u.Product.ID) {
					return nil, false
				}
			}
		}
		if grams > a.CapacityGrams || volume > a.CapacityVolume {
			return nil, false
		}
	}

	// Priority: once a standard unit appears, no express may follow
	// anywhere later on this agent, trips included.
	seenStandard := false
	for _, trip := range trips {
		for _, u := range trip {
			if u.Priority() == core.PriorityStandard {
				seenStandard = true
			} else if seenStandard {
				return nil, false
			}
		}
	}

	// Visit times: the first pick is anchored at the entry travel
	// time; each successor follows the recurrence. Every increment is
	// at least pickingTime+1, so visits are strictly increasing.
	visit := 0
	var prev *core.Unit
	prevTrip := -1
	for tripIdx, trip := range trips {
		for _, u := range trip {
			switch {
			case prev == nil:
				visit = TravelMinutes(e.table.Distance(EntryPoint, PointID(u.Product.ID)), a.Speed)
			case tripIdx != prevTrip:
				// Trip change: pick → prep, drop off, prep → next pick.
				back := PrepTravelMinutes(prev.Product.Pickup, e.prep, a.Speed)
				out := PrepTravelMinutes(u.Product.Pickup, e.prep, a.Speed)
				visit += back + e.depotTime + out + e.pickingTime
			default:
				d := e.table.Distance(PointID(prev.Product.ID), PointID(u.Product.ID))
				visit += TravelMinutes(d, a.Speed) + e.pickingTime
			}
			if visit > u.Deadline() || visit > e.horizon {
				return nil, false
			}
			stops = append(stops, core.Stop{Unit: u, Trip: tripIdx + 1, Visit: visit})
			prev = u
			prevTrip = tripIdx
		}
	}
	return stops, true
}

// endTime is the makespan contribution of the route: the last visit,
// or 0 when the route is empty or infeasible.
func (e *evaluator) endTime(a *core.Agent, trips tripSeq) (int, bool) {
	stops, ok := e.schedule(a, trips)
	if !ok {
		return 0, false
	}
	if len(stops) == 0 {
		return 0, true
	}
	return stops[len(stops)-1].Visit, true
}
