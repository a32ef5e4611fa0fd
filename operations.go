package automaton

import (
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Accessible Returns the set of states reachable from an initial state, through any transition.
func Accessible[W any](a *Automaton[W]) *bitset.BitSet {
	live := bitset.New(uint(a.maxState()))
	workList := make([]int, 0)
	for s := range a.Initials() {
		live.Set(uint(s))
		workList = append(workList, s)
	}

	for len(workList) > 0 {
		s := workList[0]
		workList = workList[1:]
		for _, t := range a.states[s].out {
			dest := a.transitions[t].Dest
			if !live.Test(uint(dest)) {
				live.Set(uint(dest))
				workList = append(workList, dest)
			}
		}
	}
	return live
}

// Coaccessible Returns the set of states from which a final state can be reached, through any transition.
func Coaccessible[W any](a *Automaton[W]) *bitset.BitSet {
	live := bitset.New(uint(a.maxState()))
	workList := make([]int, 0)
	for s := range a.Finals() {
		live.Set(uint(s))
		workList = append(workList, s)
	}

	for len(workList) > 0 {
		s := workList[0]
		workList = workList[1:]
		for _, t := range a.states[s].in {
			src := a.transitions[t].Source
			if !live.Test(uint(src)) {
				live.Set(uint(src))
				workList = append(workList, src)
			}
		}
	}
	return live
}

// UselessStates Returns the states that are not both accessible and co-accessible, in increasing order.
func UselessStates[W any](a *Automaton[W]) []int {
	useful := Accessible(a)
	useful.InPlaceIntersection(Coaccessible(a))
	var useless []int
	for s := range a.States() {
		if !useful.Test(uint(s)) {
			useless = append(useless, s)
		}
	}
	return useless
}

// Trim Returns a copy of a without its useless states.
func Trim[W any](a *Automaton[W]) *Automaton[W] {
	res := a.Clone()
	trimHere(res)
	return res
}

func trimHere[W any](a *Automaton[W]) int {
	useless := UselessStates(a)
	for _, s := range useless {
		a.RemoveState(s)
	}
	return len(useless)
}

// IsEmpty Returns true if no path leads from an initial state to a final state.
func IsEmpty[W any](a *Automaton[W]) bool {
	if a.GetNumStates() == 0 {
		// Common case: no states
		return true
	}
	useful := Accessible(a)
	useful.InPlaceIntersection(Coaccessible(a))
	return useful.None()
}

func checkWeightsets[W any](automatons []*Automaton[W]) (*Alphabet, error) {
	if len(automatons) == 0 {
		return nil, fmt.Errorf("%w: no automaton", ErrWeightsetMismatch)
	}
	name := automatons[0].ws.Name()
	letters := make([]Label, 0)
	for _, a := range automatons {
		if a.ws.Name() != name {
			return nil, fmt.Errorf("%w: %s and %s", ErrWeightsetMismatch, name, a.ws.Name())
		}
		letters = append(letters, a.alphabet.letters...)
	}
	return NewAlphabet(letters...), nil
}

// copyStates Copies the live states and transitions of other, not the initial and final weights, and
// returns the map from the states of other to the new ones.
func (a *Automaton[W]) copyStates(other *Automaton[W]) []int {
	mp := make([]int, other.maxState())
	for s := range mp {
		mp[s] = -1
	}
	for s := range other.States() {
		mp[s] = a.CreateState()
	}
	for tr := range other.Transitions() {
		a.AddTransition(mp[tr.Source], tr.Label, tr.Weight, mp[tr.Dest])
	}
	return mp
}

// Union Returns an automaton for the sum of the series of automatons: a fresh initial state with a
// spontaneous transition to each initial state of each operand, weighted by its initial weight.
func Union[W any](automatons ...*Automaton[W]) (*Automaton[W], error) {
	alphabet, err := checkWeightsets(automatons)
	if err != nil {
		return nil, err
	}
	ws := automatons[0].ws
	result := NewAutomaton(ws, alphabet)

	// Create initial state:
	initial := result.CreateState()
	result.SetInitial(initial, ws.One())

	for _, a := range automatons {
		mp := result.copyStates(a)
		for s, w := range a.Initials() {
			result.AddTransition(initial, Spontaneous, w, mp[s])
		}
		for s, w := range a.Finals() {
			result.AddFinal(mp[s], w)
		}
	}
	return result, nil
}

// Concatenate Returns an automaton for the product of the series of automatons, in order: each final
// state of an operand is linked to each initial state of the next one by a spontaneous transition weighted
// by final weight times initial weight.
func Concatenate[W any](automatons ...*Automaton[W]) (*Automaton[W], error) {
	alphabet, err := checkWeightsets(automatons)
	if err != nil {
		return nil, err
	}
	ws := automatons[0].ws
	result := NewAutomaton(ws, alphabet)

	maps := make([][]int, len(automatons))
	for i, a := range automatons {
		maps[i] = result.copyStates(a)
	}

	for s, w := range automatons[0].Initials() {
		result.AddInitial(maps[0][s], w)
	}
	for i := 0; i+1 < len(automatons); i++ {
		for p, f := range automatons[i].Finals() {
			for q, w := range automatons[i+1].Initials() {
				result.AddTransition(maps[i][p], Spontaneous, ws.Mul(f, w), maps[i+1][q])
			}
		}
	}
	last := len(automatons) - 1
	for s, w := range automatons[last].Finals() {
		result.AddFinal(maps[last][s], w)
	}
	return result, nil
}

// Repeat Returns an automaton for the Kleene star of the series of a: a fresh state, both initial and
// final, with spontaneous transitions into the initial states of a and back from its final states. The
// result has a spontaneous cycle whenever a accepts the empty word.
func Repeat[W any](a *Automaton[W]) *Automaton[W] {
	ws := a.ws
	result := NewAutomaton(ws, a.alphabet)
	hub := result.CreateState()
	result.SetInitial(hub, ws.One())
	result.SetFinal(hub, ws.One())

	mp := result.copyStates(a)
	for s, w := range a.Initials() {
		result.AddTransition(hub, Spontaneous, w, mp[s])
	}
	for s, w := range a.Finals() {
		result.AddTransition(mp[s], Spontaneous, w, hub)
	}
	return result
}

// Optional Returns an automaton for a plus the empty word.
func Optional[W any](a *Automaton[W]) (*Automaton[W], error) {
	return Union(a, NewAutomata(a.ws, a.alphabet).MakeEmptyString())
}

// LeftMult Returns a copy of a with every initial weight multiplied on the left by w.
func LeftMult[W any](w W, a *Automaton[W]) *Automaton[W] {
	res := a.Clone()
	for _, s := range slices.Collect(res.States()) {
		if res.IsInitial(s) {
			res.SetInitial(s, a.ws.Mul(w, res.InitialWeight(s)))
		}
	}
	return res
}

// RightMult Returns a copy of a with every final weight multiplied on the right by w.
func RightMult[W any](a *Automaton[W], w W) *Automaton[W] {
	res := a.Clone()
	for _, s := range slices.Collect(res.States()) {
		if res.IsFinal(s) {
			res.SetFinal(s, a.ws.Mul(res.FinalWeight(s), w))
		}
	}
	return res
}
