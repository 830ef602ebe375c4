package solution

import "sort"

// Comparator selects how EliteSet orders its members: AscendingCost keeps
// the cheapest solution first (the MinCost proxy), DescendingCost keeps the
// highest-scoring solution first (the ThroughputMax proxy).
type Comparator int

const (
	AscendingCost Comparator = iota
	DescendingCost
)

// Better reports whether cost a should be ranked ahead of cost b under c.
func (c Comparator) Better(a, b float64) bool {
	if c == DescendingCost {
		return a > b
	}
	return a < b
}

type entry struct {
	cost     float64
	solution *Solution
}

// EliteSet holds at most K solutions ordered by a Comparator; index 0 is
// always the best solution under that comparator.
type EliteSet struct {
	K          int
	Comparator Comparator
	entries    []entry
}

// NewEliteSet returns an empty set capped at k members.
func NewEliteSet(k int, cmp Comparator) *EliteSet {
	return &EliteSet{K: k, Comparator: cmp}
}

// Len returns the current number of members.
func (e *EliteSet) Len() int { return len(e.entries) }

// Best returns the comparator-first solution, or nil if the set is empty.
func (e *EliteSet) Best() *Solution {
	if len(e.entries) == 0 {
		return nil
	}
	return e.entries[0].solution
}

// BestCost returns the cost of the best solution; 0 if the set is empty.
func (e *EliteSet) BestCost() float64 {
	if len(e.entries) == 0 {
		return 0
	}
	return e.entries[0].cost
}

// Worst returns the comparator-last solution, or nil if empty.
func (e *EliteSet) Worst() *Solution {
	if len(e.entries) == 0 {
		return nil
	}
	return e.entries[len(e.entries)-1].solution
}

// All returns the members in comparator order. Callers must not mutate the
// returned slice.
func (e *EliteSet) All() []*Solution {
	out := make([]*Solution, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.solution
	}
	return out
}

// Insert attempts to add sol scored at cost. It is inserted when the set has
// not yet reached K members, or when it beats the current worst member;
// insertion keeps the set sorted and evicts the worst once size exceeds K.
// Reports whether the solution was kept.
func (e *EliteSet) Insert(sol *Solution, cost float64) bool {
	pos := sort.Search(len(e.entries), func(i int) bool {
		return !e.Comparator.Better(e.entries[i].cost, cost)
	})
	if pos >= e.K && len(e.entries) >= e.K {
		return false
	}
	e.entries = append(e.entries, entry{})
	copy(e.entries[pos+1:], e.entries[pos:])
	e.entries[pos] = entry{cost: cost, solution: sol}
	if len(e.entries) > e.K {
		e.entries = e.entries[:e.K]
	}
	return pos < e.K
}

// Clone returns an independent copy of the elite set; member solutions are
// deep-cloned so callers may mutate the copy freely.
func (e *EliteSet) Clone() *EliteSet {
	cp := NewEliteSet(e.K, e.Comparator)
	cp.entries = make([]entry, len(e.entries))
	for i, en := range e.entries {
		cp.entries[i] = entry{cost: en.cost, solution: en.solution.Clone()}
	}
	return cp
}
