package tagging

// MaxRecency is the saturation value of the per-way recency counters.
const MaxRecency = 3

// A RecencyTable tracks how recently each way of each set has been used and
// selects victims for eviction.
//
// The table keeps one 2-bit saturating counter per way rather than an exact
// recency list. Promoting a way saturates its counter and decrements every
// other nonzero counter of the set. Because the decrements saturate at zero,
// all the counters of a set can sit above zero at the same time, in which
// case victim selection falls back to way 0 regardless of actual recency.
// This approximation is a property of the modeled controller and is
// preserved as such.
type RecencyTable interface {
	// Promote marks the way as the most recently used of its set.
	Promote(setID, wayID int)

	// SelectVictim picks the way of the set that the next fill should use.
	// Invalid ways are picked first, in way order. Among valid ways, the
	// first way whose counter is exactly zero is picked; if no counter is
	// zero, way 0 is picked.
	SelectVictim(setID int, valid []bool) int

	// Counter returns the recency counter of the way.
	Counter(setID, wayID int) int

	// Reset zeroes every counter of every set.
	Reset()
}

// NewRecencyTable returns a RecencyTable with all counters at zero.
func NewRecencyTable(numSets, numWays int) RecencyTable {
	t := &recencyTableImpl{
		numSets: numSets,
		numWays: numWays,
	}

	t.Reset()

	return t
}

type recencyTableImpl struct {
	numSets  int
	numWays  int
	counters [][]int
}

func (t *recencyTableImpl) Promote(setID, wayID int) {
	counters := t.counters[setID]

	for i := range counters {
		if i == wayID {
			counters[i] = MaxRecency
			continue
		}

		if counters[i] > 0 {
			counters[i]--
		}
	}
}

func (t *recencyTableImpl) SelectVictim(setID int, valid []bool) int {
	for wayID, v := range valid {
		if !v {
			return wayID
		}
	}

	counters := t.counters[setID]
	for wayID, c := range counters {
		if c == 0 {
			return wayID
		}
	}

	return 0
}

func (t *recencyTableImpl) Counter(setID, wayID int) int {
	return t.counters[setID][wayID]
}

func (t *recencyTableImpl) Reset() {
	t.counters = make([][]int, t.numSets)
	for i := range t.counters {
		t.counters[i] = make([]int, t.numWays)
	}
}
