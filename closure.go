package automaton

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Matrix A square matrix of weights over a fixed, ordered set of states. Once closed by Closure, At(i, j)
// is the total weight of the spontaneous paths from States()[i] to States()[j], the empty path included.
type Matrix[W any] struct {
	ws     Weightset[W]
	states []int
	index  map[int]int
	m      [][]W
}

func newMatrix[W any](ws Weightset[W], states []int) *Matrix[W] {
	n := len(states)
	mat := &Matrix[W]{
		ws:     ws,
		states: states,
		index:  make(map[int]int, n),
		m:      make([][]W, n),
	}
	for i, s := range states {
		mat.index[s] = i
		mat.m[i] = make([]W, n)
		for j := range mat.m[i] {
			mat.m[i][j] = ws.Zero()
		}
	}
	return mat
}

// Size Returns the number of states of the matrix.
func (m *Matrix[W]) Size() int {
	return len(m.states)
}

// States Returns the states of the matrix, in elimination order.
func (m *Matrix[W]) States() []int {
	return m.states
}

// Index Returns the row of state s.
func (m *Matrix[W]) Index(s int) (int, bool) {
	i, ok := m.index[s]
	return i, ok
}

// At Returns the entry at row i, column j.
func (m *Matrix[W]) At(i, j int) W {
	return m.m[i][j]
}

// Weight Returns the entry for the pair of states (src, dst), zero if either is not in the matrix.
func (m *Matrix[W]) Weight(src, dst int) W {
	i, ok := m.index[src]
	if !ok {
		return m.ws.Zero()
	}
	j, ok := m.index[dst]
	if !ok {
		return m.ws.Zero()
	}
	return m.m[i][j]
}

// Row Returns the non-zero entries of row i, as (state, weight) arcs.
func (m *Matrix[W]) Row(i int) []Arc[W] {
	var arcs []Arc[W]
	for j, w := range m.m[i] {
		if !m.ws.IsZero(w) {
			arcs = append(arcs, Arc[W]{State: m.states[j], Weight: w})
		}
	}
	return arcs
}

// Column Returns the non-zero entries of column j, as (state, weight) arcs.
func (m *Matrix[W]) Column(j int) []Arc[W] {
	var arcs []Arc[W]
	for i := range m.m {
		if w := m.m[i][j]; !m.ws.IsZero(w) {
			arcs = append(arcs, Arc[W]{State: m.states[i], Weight: w})
		}
	}
	return arcs
}

// Closure Computes the star of the matrix of the spontaneous transitions between states. successors
// returns the spontaneous arcs leaving a state; arcs to states outside the set are ignored.
//
// The elimination processes the states in the given order. For each pivot k it stars the self-loop weight
// M[k][k], then for every other pair (i, j) adds M[i][k].star.M[k][j] to M[i][j], then absorbs the star
// into row and column k. This is Floyd-Warshall over a semiring: O(n^3) weight operations. It stops at the
// first pivot whose loop weight has no star and returns an *UnstarableError.
func Closure[W any](ws Weightset[W], states []int, successors func(s int) []Arc[W]) (*Matrix[W], error) {
	mat := newMatrix(ws, states)
	for i, s := range states {
		for _, arc := range successors(s) {
			if j, ok := mat.index[arc.State]; ok {
				mat.m[i][j] = ws.Add(mat.m[i][j], arc.Weight)
			}
		}
	}
	if err := mat.star(); err != nil {
		return nil, err
	}
	return mat, nil
}

func (m *Matrix[W]) star() error {
	ws := m.ws
	n := len(m.states)
	for k := 0; k < n; k++ {
		s := ws.One()
		if loop := m.m[k][k]; !ws.IsZero(loop) {
			var err error
			if s, err = ws.Star(loop); err != nil {
				return &UnstarableError{
					Pivot:  m.states[k],
					Weight: ws.Format(loop),
					States: slices.Clone(m.states),
					Err:    err,
				}
			}
		}
		m.m[k][k] = s

		for i := 0; i < n; i++ {
			if i == k || ws.IsZero(m.m[i][k]) {
				continue
			}
			ik := ws.Mul(m.m[i][k], s)
			for j := 0; j < n; j++ {
				if j == k || ws.IsZero(m.m[k][j]) {
					continue
				}
				m.m[i][j] = ws.Add(m.m[i][j], ws.Mul(ik, m.m[k][j]))
			}
			m.m[i][k] = ik
		}
		for j := 0; j < n; j++ {
			if j != k && !ws.IsZero(m.m[k][j]) {
				m.m[k][j] = ws.Mul(s, m.m[k][j])
			}
		}
	}
	return nil
}

// SpontaneousComponents Partitions the states touched by a spontaneous transition into the weakly
// connected components of the spontaneous subgraph. Each component is sorted; states without spontaneous
// transitions belong to none.
func SpontaneousComponents[W any](a *Automaton[W]) [][]int {
	seen := bitset.New(uint(a.maxState()))
	var components [][]int

	for s := range a.States() {
		if seen.Test(uint(s)) || !a.hasSpontaneous(s) {
			continue
		}
		component := make([]int, 0)
		workList := []int{s}
		seen.Set(uint(s))
		for len(workList) > 0 {
			state := workList[0]
			workList = workList[1:]
			component = append(component, state)

			neighbors := append(a.SpontaneousSuccessors(state), a.SpontaneousPredecessors(state)...)
			for _, arc := range neighbors {
				if !seen.Test(uint(arc.State)) {
					seen.Set(uint(arc.State))
					workList = append(workList, arc.State)
				}
			}
		}
		slices.Sort(component)
		components = append(components, component)
	}
	return components
}

func (a *Automaton[W]) hasSpontaneous(s int) bool {
	for _, t := range a.states[s].out {
		if a.transitions[t].Label == Spontaneous {
			return true
		}
	}
	for _, t := range a.states[s].in {
		if a.transitions[t].Label == Spontaneous {
			return true
		}
	}
	return false
}

// SpontaneousReach Returns s followed by every state reachable from s through spontaneous transitions
// only, in breadth-first order.
func SpontaneousReach[W any](a *Automaton[W], s int) []int {
	a.checkState(s)
	seen := bitset.New(uint(a.maxState()))
	seen.Set(uint(s))
	reach := []int{s}
	for i := 0; i < len(reach); i++ {
		for _, arc := range a.SpontaneousSuccessors(reach[i]) {
			if !seen.Test(uint(arc.State)) {
				seen.Set(uint(arc.State))
				reach = append(reach, arc.State)
			}
		}
	}
	return reach
}
