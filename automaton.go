package automaton

import (
	"fmt"
	"iter"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Transition A weighted, labeled edge. Spontaneous transitions carry the Spontaneous label.
type Transition[W any] struct {
	Source int
	Label  Label
	Weight W
	Dest   int
}

// Arc One end of a transition seen from a state: the state on the other side and the weight.
type Arc[W any] struct {
	State  int
	Weight W
}

type transitionKey struct {
	src, dst int
	label    Label
}

type stateEntry struct {
	// Indexes in transitions of the edges leaving and entering this state, in insertion order.
	out []int
	in  []int
}

// Automaton Represents a weighted automaton over an alphabet, with spontaneous transitions allowed. States
// are integers created by CreateState; they are never renumbered, so a removed state leaves a hole. Adding a
// transition that already exists (same source, label and destination) adds the weights together, so there is
// at most one transition per (source, label, destination).
//
// Referencing a state this automaton did not create, or one that was removed, is a programming error and
// panics with an error wrapping ErrInvalidState.
type Automaton[W any] struct {
	ws       Weightset[W]
	alphabet *Alphabet

	states []stateEntry
	live   *bitset.BitSet

	isInitial *bitset.BitSet
	isFinal   *bitset.BitSet
	initial   []W
	final     []W

	// Removed transitions stay in the slice with their bit cleared in liveTransitions.
	transitions     []Transition[W]
	liveTransitions *bitset.BitSet
	index           map[transitionKey]int
	numTransitions  int
	numSpontaneous  int
}

type options struct {
	numStates      int
	numTransitions int
}

type Option func(*options)

// WithStateCapacity Sizing hint for the number of states.
func WithStateCapacity(n int) Option {
	return func(o *options) {
		o.numStates = n
	}
}

// WithTransitionCapacity Sizing hint for the number of transitions.
func WithTransitionCapacity(n int) Option {
	return func(o *options) {
		o.numTransitions = n
	}
}

func NewAutomaton[W any](ws Weightset[W], alphabet *Alphabet, opts ...Option) *Automaton[W] {
	o := &options{numStates: 2, numTransitions: 2}
	for _, opt := range opts {
		opt(o)
	}
	if alphabet == nil {
		alphabet = NewAlphabet()
	}
	return &Automaton[W]{
		ws:              ws,
		alphabet:        alphabet,
		states:          make([]stateEntry, 0, o.numStates),
		live:            bitset.New(uint(o.numStates)),
		isInitial:       bitset.New(uint(o.numStates)),
		isFinal:         bitset.New(uint(o.numStates)),
		initial:         make([]W, 0, o.numStates),
		final:           make([]W, 0, o.numStates),
		transitions:     make([]Transition[W], 0, o.numTransitions),
		liveTransitions: bitset.New(uint(o.numTransitions)),
		index:           make(map[transitionKey]int, o.numTransitions),
	}
}

func (a *Automaton[W]) Weightset() Weightset[W] {
	return a.ws
}

func (a *Automaton[W]) Alphabet() *Alphabet {
	return a.alphabet
}

func (a *Automaton[W]) checkState(s int) {
	if !a.HasState(s) {
		panic(invalidState(s))
	}
}

func (a *Automaton[W]) checkLabel(l Label) {
	if l != Spontaneous && !a.alphabet.Contains(l) {
		panic(fmt.Errorf("%w: %s not in %s", ErrInvalidLabel, l, a.alphabet))
	}
}

// CreateState Create a new state.
func (a *Automaton[W]) CreateState() int {
	state := len(a.states)
	a.states = append(a.states, stateEntry{})
	a.initial = append(a.initial, a.ws.Zero())
	a.final = append(a.final, a.ws.Zero())
	a.live.Set(uint(state))
	return state
}

// HasState Returns true if s was created by this automaton and not removed since.
func (a *Automaton[W]) HasState(s int) bool {
	return s >= 0 && s < len(a.states) && a.live.Test(uint(s))
}

// RemoveState Removes s together with every transition entering or leaving it.
func (a *Automaton[W]) RemoveState(s int) {
	a.checkState(s)
	for _, t := range slices.Clone(a.states[s].out) {
		a.RemoveTransition(t)
	}
	for _, t := range slices.Clone(a.states[s].in) {
		a.RemoveTransition(t)
	}
	a.isInitial.Clear(uint(s))
	a.isFinal.Clear(uint(s))
	a.initial[s] = a.ws.Zero()
	a.final[s] = a.ws.Zero()
	a.live.Clear(uint(s))
}

// States Iterates over the live states, in increasing order.
func (a *Automaton[W]) States() iter.Seq[int] {
	return setMembers(a.live)
}

// GetNumStates How many states this automaton has.
func (a *Automaton[W]) GetNumStates() int {
	return int(a.live.Count())
}

// maxState One past the largest state handle ever created.
func (a *Automaton[W]) maxState() int {
	return len(a.states)
}

func setMembers(set *bitset.BitSet) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
			if !yield(int(i)) {
				return
			}
		}
	}
}

// SetInitial Sets the initial weight of s; a zero weight makes s non-initial.
func (a *Automaton[W]) SetInitial(s int, w W) {
	a.checkState(s)
	if a.ws.IsZero(w) {
		a.UnsetInitial(s)
		return
	}
	a.initial[s] = w
	a.isInitial.Set(uint(s))
}

// AddInitial Adds w to the initial weight of s.
func (a *Automaton[W]) AddInitial(s int, w W) {
	a.SetInitial(s, a.ws.Add(a.InitialWeight(s), w))
}

func (a *Automaton[W]) UnsetInitial(s int) {
	a.checkState(s)
	a.initial[s] = a.ws.Zero()
	a.isInitial.Clear(uint(s))
}

func (a *Automaton[W]) IsInitial(s int) bool {
	a.checkState(s)
	return a.isInitial.Test(uint(s))
}

// InitialWeight Returns the initial weight of s, zero if s is not initial.
func (a *Automaton[W]) InitialWeight(s int) W {
	a.checkState(s)
	return a.initial[s]
}

// Initials Iterates over the initial states and their weights.
func (a *Automaton[W]) Initials() iter.Seq2[int, W] {
	return func(yield func(int, W) bool) {
		for s := range setMembers(a.isInitial) {
			if !yield(s, a.initial[s]) {
				return
			}
		}
	}
}

// SetFinal Sets the final weight of s; a zero weight makes s non-final.
func (a *Automaton[W]) SetFinal(s int, w W) {
	a.checkState(s)
	if a.ws.IsZero(w) {
		a.UnsetFinal(s)
		return
	}
	a.final[s] = w
	a.isFinal.Set(uint(s))
}

// AddFinal Adds w to the final weight of s.
func (a *Automaton[W]) AddFinal(s int, w W) {
	a.SetFinal(s, a.ws.Add(a.FinalWeight(s), w))
}

func (a *Automaton[W]) UnsetFinal(s int) {
	a.checkState(s)
	a.final[s] = a.ws.Zero()
	a.isFinal.Clear(uint(s))
}

func (a *Automaton[W]) IsFinal(s int) bool {
	a.checkState(s)
	return a.isFinal.Test(uint(s))
}

// FinalWeight Returns the final weight of s, zero if s is not final.
func (a *Automaton[W]) FinalWeight(s int) W {
	a.checkState(s)
	return a.final[s]
}

// Finals Iterates over the final states and their weights.
func (a *Automaton[W]) Finals() iter.Seq2[int, W] {
	return func(yield func(int, W) bool) {
		for s := range setMembers(a.isFinal) {
			if !yield(s, a.final[s]) {
				return
			}
		}
	}
}

// AddTransition Add a new transition, or add weight to the existing one with the same source, label and
// destination. A transition whose weight becomes zero is removed. Returns the transition index, or -1 if
// there is no transition left.
func (a *Automaton[W]) AddTransition(src int, label Label, weight W, dst int) int {
	a.checkState(src)
	a.checkState(dst)
	a.checkLabel(label)

	if t, ok := a.index[transitionKey{src: src, dst: dst, label: label}]; ok {
		return a.setWeight(t, a.ws.Add(a.transitions[t].Weight, weight))
	}
	if a.ws.IsZero(weight) {
		return -1
	}
	return a.newTransition(src, label, weight, dst)
}

// SetTransition Like AddTransition, but replaces the weight of an existing transition.
func (a *Automaton[W]) SetTransition(src int, label Label, weight W, dst int) int {
	a.checkState(src)
	a.checkState(dst)
	a.checkLabel(label)

	if t, ok := a.index[transitionKey{src: src, dst: dst, label: label}]; ok {
		return a.setWeight(t, weight)
	}
	if a.ws.IsZero(weight) {
		return -1
	}
	return a.newTransition(src, label, weight, dst)
}

func (a *Automaton[W]) newTransition(src int, label Label, weight W, dst int) int {
	t := len(a.transitions)
	a.transitions = append(a.transitions, Transition[W]{Source: src, Label: label, Weight: weight, Dest: dst})
	a.liveTransitions.Set(uint(t))
	a.index[transitionKey{src: src, dst: dst, label: label}] = t
	a.states[src].out = append(a.states[src].out, t)
	a.states[dst].in = append(a.states[dst].in, t)
	a.numTransitions++
	if label == Spontaneous {
		a.numSpontaneous++
	}
	return t
}

func (a *Automaton[W]) setWeight(t int, weight W) int {
	if a.ws.IsZero(weight) {
		a.RemoveTransition(t)
		return -1
	}
	a.transitions[t].Weight = weight
	return t
}

// RemoveTransition Removes the transition with index t; removing it twice is a no-op.
func (a *Automaton[W]) RemoveTransition(t int) {
	if t < 0 || t >= len(a.transitions) || !a.liveTransitions.Test(uint(t)) {
		return
	}
	tr := a.transitions[t]
	a.liveTransitions.Clear(uint(t))
	delete(a.index, transitionKey{src: tr.Source, dst: tr.Dest, label: tr.Label})
	a.states[tr.Source].out = slices.DeleteFunc(a.states[tr.Source].out, func(i int) bool { return i == t })
	a.states[tr.Dest].in = slices.DeleteFunc(a.states[tr.Dest].in, func(i int) bool { return i == t })
	a.numTransitions--
	if tr.Label == Spontaneous {
		a.numSpontaneous--
	}
}

// GetTransition Returns the transition with index t.
func (a *Automaton[W]) GetTransition(t int) Transition[W] {
	return a.transitions[t]
}

// FindTransition Returns the index of the transition src --label--> dst, if any.
func (a *Automaton[W]) FindTransition(src int, label Label, dst int) (int, bool) {
	t, ok := a.index[transitionKey{src: src, dst: dst, label: label}]
	return t, ok
}

func (a *Automaton[W]) collect(ids []int, keep func(Transition[W]) bool) []Transition[W] {
	res := make([]Transition[W], 0, len(ids))
	for _, t := range ids {
		if tr := a.transitions[t]; keep == nil || keep(tr) {
			res = append(res, tr)
		}
	}
	return res
}

// Out Returns every transition leaving s, spontaneous ones included.
func (a *Automaton[W]) Out(s int) []Transition[W] {
	a.checkState(s)
	return a.collect(a.states[s].out, nil)
}

// In Returns every transition entering s, spontaneous ones included.
func (a *Automaton[W]) In(s int) []Transition[W] {
	a.checkState(s)
	return a.collect(a.states[s].in, nil)
}

func isLetter[W any](t Transition[W]) bool {
	return !t.Label.IsSpontaneous()
}

// NonSpontaneousOut Returns the transitions leaving s with a letter label.
func (a *Automaton[W]) NonSpontaneousOut(s int) []Transition[W] {
	a.checkState(s)
	return a.collect(a.states[s].out, isLetter[W])
}

// NonSpontaneousIn Returns the transitions entering s with a letter label.
func (a *Automaton[W]) NonSpontaneousIn(s int) []Transition[W] {
	a.checkState(s)
	return a.collect(a.states[s].in, isLetter[W])
}

// SpontaneousSuccessors Returns the destinations of the spontaneous transitions leaving s.
func (a *Automaton[W]) SpontaneousSuccessors(s int) []Arc[W] {
	a.checkState(s)
	var arcs []Arc[W]
	for _, t := range a.states[s].out {
		if tr := a.transitions[t]; tr.Label == Spontaneous {
			arcs = append(arcs, Arc[W]{State: tr.Dest, Weight: tr.Weight})
		}
	}
	return arcs
}

// SpontaneousPredecessors Returns the sources of the spontaneous transitions entering s.
func (a *Automaton[W]) SpontaneousPredecessors(s int) []Arc[W] {
	a.checkState(s)
	var arcs []Arc[W]
	for _, t := range a.states[s].in {
		if tr := a.transitions[t]; tr.Label == Spontaneous {
			arcs = append(arcs, Arc[W]{State: tr.Source, Weight: tr.Weight})
		}
	}
	return arcs
}

// Transitions Iterates over all live transitions, in creation order.
func (a *Automaton[W]) Transitions() iter.Seq[Transition[W]] {
	return func(yield func(Transition[W]) bool) {
		for t := range setMembers(a.liveTransitions) {
			if !yield(a.transitions[t]) {
				return
			}
		}
	}
}

// GetNumTransitions How many transitions this automaton has.
func (a *Automaton[W]) GetNumTransitions() int {
	return a.numTransitions
}

// GetNumTransitionsWithState How many transitions leave this state.
func (a *Automaton[W]) GetNumTransitionsWithState(s int) int {
	a.checkState(s)
	return len(a.states[s].out)
}

// NumSpontaneous How many spontaneous transitions this automaton has.
func (a *Automaton[W]) NumSpontaneous() int {
	return a.numSpontaneous
}

// IsProper Returns true if this automaton has no spontaneous transition.
func (a *Automaton[W]) IsProper() bool {
	return a.numSpontaneous == 0
}

// Clone Returns a deep copy that keeps the same state handles.
func (a *Automaton[W]) Clone() *Automaton[W] {
	b := NewAutomaton(a.ws, a.alphabet,
		WithStateCapacity(len(a.states)), WithTransitionCapacity(a.numTransitions))
	for s := 0; s < len(a.states); s++ {
		b.CreateState()
	}
	for s := 0; s < len(a.states); s++ {
		if !a.live.Test(uint(s)) {
			b.live.Clear(uint(s))
		}
	}
	b.copyMarks(a, 0)
	for tr := range a.Transitions() {
		b.newTransition(tr.Source, tr.Label, tr.Weight, tr.Dest)
	}
	return b
}

func (a *Automaton[W]) copyMarks(other *Automaton[W], offset int) {
	for s, w := range other.Initials() {
		a.SetInitial(offset+s, w)
	}
	for s, w := range other.Finals() {
		a.SetFinal(offset+s, w)
	}
}

// Copy Copies over all live states and transitions from other, which must share the weightset. The state
// numbers are sequentially assigned (appended); the returned slice maps each state of other to its new
// handle, -1 for holes. Initial and final weights are copied as well.
func (a *Automaton[W]) Copy(other *Automaton[W]) []int {
	mp := make([]int, other.maxState())
	for s := range mp {
		mp[s] = -1
	}
	for s := range other.States() {
		mp[s] = a.CreateState()
	}
	for s, w := range other.Initials() {
		a.AddInitial(mp[s], w)
	}
	for s, w := range other.Finals() {
		a.AddFinal(mp[s], w)
	}
	for tr := range other.Transitions() {
		a.AddTransition(mp[tr.Source], tr.Label, tr.Weight, mp[tr.Dest])
	}
	return mp
}

// Successors Returns the transitions leaving s, for Eval. Fails with ErrNotProper if one of them is
// spontaneous: evaluation needs the automaton to be proper first.
func (a *Automaton[W]) Successors(s int) ([]Transition[W], error) {
	out := a.Out(s)
	for _, t := range out {
		if t.Label == Spontaneous {
			return nil, fmt.Errorf("%w: spontaneous transition %d -> %d", ErrNotProper, t.Source, t.Dest)
		}
	}
	return out, nil
}

// FinalOf Returns the final weight of s and whether s is final, for Eval. Like Successors, it fails with
// ErrNotProper if s has a spontaneous transition, which would contribute to the weight.
func (a *Automaton[W]) FinalOf(s int) (W, bool, error) {
	if arcs := a.SpontaneousSuccessors(s); len(arcs) > 0 {
		return a.ws.Zero(), false, fmt.Errorf("%w: spontaneous transition %d -> %d", ErrNotProper, s, arcs[0].State)
	}
	return a.FinalWeight(s), a.IsFinal(s), nil
}

func (a *Automaton[W]) String() string {
	return fmt.Sprintf("automaton(%s, %s, %d states, %d transitions, %d spontaneous)",
		a.ws.Name(), a.alphabet, a.GetNumStates(), a.numTransitions, a.numSpontaneous)
}
