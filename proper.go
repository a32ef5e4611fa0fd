package automaton

import (
	"fmt"
	"log/slog"
	"slices"
)

// Logger receives the debug records of elimination and materialization unless a call overrides it with
// WithLogger.
var Logger = slog.Default()

// Direction Which side of the spontaneous transitions the weights are pushed to.
type Direction int

const (
	// Forward folds each spontaneous closure into the transitions and final weights of its source states.
	Forward = Direction(iota)
	// Backward folds each spontaneous closure into the transitions and initial weights of its destination
	// states.
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

type properOptions struct {
	prune     bool
	lazy      bool
	direction Direction
	logger    *slog.Logger
}

type ProperOption func(*properOptions)

func newProperOptions(opts ...ProperOption) *properOptions {
	o := &properOptions{
		prune:     true,
		direction: Forward,
		logger:    Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPrune Whether to remove the states that are not both accessible and co-accessible once the
// spontaneous transitions are gone. Defaults to true. Lazy elimination never prunes.
func WithPrune(prune bool) ProperOption {
	return func(o *properOptions) {
		o.prune = prune
	}
}

// WithLazy Whether ProperView returns a LazyAutomaton instead of eliminating everything up front.
func WithLazy(lazy bool) ProperOption {
	return func(o *properOptions) {
		o.lazy = lazy
	}
}

func WithDirection(direction Direction) ProperOption {
	return func(o *properOptions) {
		o.direction = direction
	}
}

func WithLogger(logger *slog.Logger) ProperOption {
	return func(o *properOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ProperStats Counts what an elimination did.
type ProperStats struct {
	Components         int
	ClosedStates       int
	AddedTransitions   int
	RemovedTransitions int
	RemovedStates      int
}

// Proper Returns an automaton equivalent to a without spontaneous transitions; a is left untouched. It
// fails with an *UnstarableError when a spontaneous cycle has no closure in the weightset, in which case
// no automaton is returned.
func Proper[W any](a *Automaton[W], opts ...ProperOption) (*Automaton[W], error) {
	res, _, err := ProperWithStats(a, opts...)
	return res, err
}

// ProperWithStats Same as Proper, and reports what was done.
func ProperWithStats[W any](a *Automaton[W], opts ...ProperOption) (*Automaton[W], ProperStats, error) {
	res := a.Clone()
	stats, err := properHere(res, newProperOptions(opts...))
	if err != nil {
		return nil, stats, err
	}
	return res, stats, nil
}

// ProperHere Eliminates the spontaneous transitions of a in place. On error a is left in an unspecified
// state; use Proper to keep the input intact.
func ProperHere[W any](a *Automaton[W], opts ...ProperOption) error {
	_, err := properHere(a, newProperOptions(opts...))
	return err
}

// ProperView Is the single entry point for both modes: with WithLazy(true) it wraps a in a LazyAutomaton,
// otherwise it returns Proper(a).
func ProperView[W any](a *Automaton[W], opts ...ProperOption) (Walkable[W], error) {
	if newProperOptions(opts...).lazy {
		lazy, err := NewLazy(a, opts...)
		if err != nil {
			return nil, err
		}
		return lazy, nil
	}
	res, err := Proper(a, opts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// IsValid Returns true if the spontaneous transitions of a can be eliminated, that is if Proper would
// succeed.
func IsValid[W any](a *Automaton[W]) bool {
	if a.IsProper() {
		return true
	}
	res := a.Clone()
	_, err := properHere(res, newProperOptions(WithPrune(false)))
	return err == nil
}

// IsEpsAcyclic Returns true if a has no cycle made of spontaneous transitions only.
func IsEpsAcyclic[W any](a *Automaton[W]) bool {
	for _, component := range SpontaneousComponents(a) {
		if _, ok := spontaneousCycle(a, component); ok {
			return false
		}
	}
	return true
}

func properHere[W any](a *Automaton[W], o *properOptions) (ProperStats, error) {
	var stats ProperStats

	if !a.IsProper() {
		components := SpontaneousComponents(a)
		for _, component := range components {
			if err := checkClosable(a, component); err != nil {
				return stats, err
			}
		}

		// Closures are computed on the input of each component only; components are disjoint and each
		// rewrite touches only the transitions on its own side, so the order does not matter.
		for _, component := range components {
			mat, err := Closure(a.ws, component, a.SpontaneousSuccessors)
			if err != nil {
				return stats, err
			}
			stats.Components++
			stats.ClosedStates += len(component)
			if o.direction == Backward {
				a.absorbBackward(mat, &stats)
			} else {
				a.absorbForward(mat, &stats)
			}
		}
	}

	if o.prune {
		stats.RemovedStates = trimHere(a)
	}

	o.logger.Debug("proper",
		"weightset", a.ws.Name(),
		"direction", o.direction.String(),
		"components", stats.Components,
		"closed", stats.ClosedStates,
		"added", stats.AddedTransitions,
		"removed", stats.RemovedTransitions,
		"pruned", stats.RemovedStates)
	return stats, nil
}

type materialized[W any] struct {
	out      []Transition[W]
	final    W
	hasFinal bool
}

// materialize Computes the spontaneous-free outgoing transitions and final weight of the state at row i
// of a closed matrix: every letter transition and final weight reachable through a spontaneous path,
// weighted by that path.
func (a *Automaton[W]) materialize(mat *Matrix[W], i int) materialized[W] {
	ws := a.ws
	src := mat.states[i]
	res := materialized[W]{final: ws.Zero()}
	for _, arc := range mat.Row(i) {
		for _, t := range a.NonSpontaneousOut(arc.State) {
			res.out = append(res.out, Transition[W]{
				Source: src,
				Label:  t.Label,
				Weight: ws.Mul(arc.Weight, t.Weight),
				Dest:   t.Dest,
			})
		}
		if a.IsFinal(arc.State) {
			res.final = ws.Add(res.final, ws.Mul(arc.Weight, a.FinalWeight(arc.State)))
		}
	}
	res.out = mergeTransitions(ws, res.out)
	res.hasFinal = !ws.IsZero(res.final)
	return res
}

// mergeTransitions Adds up the weights of transitions sharing source, label and destination, and drops
// zeros, keeping first-occurrence order.
func mergeTransitions[W any](ws Weightset[W], ts []Transition[W]) []Transition[W] {
	pos := make(map[transitionKey]int, len(ts))
	res := make([]Transition[W], 0, len(ts))
	for _, t := range ts {
		key := transitionKey{src: t.Source, dst: t.Dest, label: t.Label}
		if i, ok := pos[key]; ok {
			res[i].Weight = ws.Add(res[i].Weight, t.Weight)
			continue
		}
		pos[key] = len(res)
		res = append(res, t)
	}
	return slices.DeleteFunc(res, func(t Transition[W]) bool { return ws.IsZero(t.Weight) })
}

func (a *Automaton[W]) absorbForward(mat *Matrix[W], stats *ProperStats) {
	plans := make([]materialized[W], mat.Size())
	for i := range mat.states {
		plans[i] = a.materialize(mat, i)
	}
	for i, s := range mat.states {
		stats.RemovedTransitions += len(a.states[s].out)
		for _, t := range slices.Clone(a.states[s].out) {
			a.RemoveTransition(t)
		}
		for _, t := range plans[i].out {
			a.AddTransition(t.Source, t.Label, t.Weight, t.Dest)
		}
		stats.AddedTransitions += len(plans[i].out)
		a.SetFinal(s, plans[i].final)
	}
}

func (a *Automaton[W]) absorbBackward(mat *Matrix[W], stats *ProperStats) {
	ws := a.ws
	type plan struct {
		in      []Transition[W]
		initial W
	}
	plans := make([]plan, mat.Size())
	for j, dst := range mat.states {
		p := plan{initial: ws.Zero()}
		for _, arc := range mat.Column(j) {
			for _, t := range a.NonSpontaneousIn(arc.State) {
				p.in = append(p.in, Transition[W]{
					Source: t.Source,
					Label:  t.Label,
					Weight: ws.Mul(t.Weight, arc.Weight),
					Dest:   dst,
				})
			}
			if a.IsInitial(arc.State) {
				p.initial = ws.Add(p.initial, ws.Mul(a.InitialWeight(arc.State), arc.Weight))
			}
		}
		p.in = mergeTransitions(ws, p.in)
		plans[j] = p
	}
	for j, s := range mat.states {
		stats.RemovedTransitions += len(a.states[s].in)
		for _, t := range slices.Clone(a.states[s].in) {
			a.RemoveTransition(t)
		}
		for _, t := range plans[j].in {
			a.AddTransition(t.Source, t.Label, t.Weight, t.Dest)
		}
		stats.AddedTransitions += len(plans[j].in)
		a.SetInitial(s, plans[j].initial)
	}
}

// checkClosable Rejects, before any closure is computed, the spontaneous subgraphs the weightset cannot
// close although the elimination itself might not notice: with NonStarable weights any spontaneous cycle,
// with AbsVal weights any subgraph whose absolute values do not close.
func checkClosable[W any](a *Automaton[W], states []int) error {
	switch a.ws.StarStatus() {
	case NonStarable:
		if s, ok := spontaneousCycle(a, states); ok {
			return &UnstarableError{
				Pivot:  s,
				States: slices.Clone(states),
				Err:    fmt.Errorf("%w: %s: spontaneous cycle", ErrUnstarable, a.ws.Name()),
			}
		}
	case AbsVal:
		abser, ok := a.ws.(Abser[W])
		if !ok {
			return nil
		}
		_, err := Closure(a.ws, states, func(s int) []Arc[W] {
			arcs := a.SpontaneousSuccessors(s)
			for i := range arcs {
				arcs[i].Weight = abser.Abs(arcs[i].Weight)
			}
			return arcs
		})
		return err
	}
	return nil
}

// spontaneousCycle Returns a state on or after a spontaneous cycle within states, if there is one. It peels
// off states without spontaneous predecessors (Kahn's algorithm); whatever remains sits on or behind a cycle.
func spontaneousCycle[W any](a *Automaton[W], states []int) (int, bool) {
	inSet := make(map[int]int, len(states))
	for _, s := range states {
		inSet[s] = 0
	}
	for _, s := range states {
		for _, arc := range a.SpontaneousSuccessors(s) {
			if _, ok := inSet[arc.State]; ok {
				inSet[arc.State]++
			}
		}
	}

	workList := make([]int, 0, len(states))
	for _, s := range states {
		if inSet[s] == 0 {
			workList = append(workList, s)
		}
	}
	removed := 0
	for len(workList) > 0 {
		s := workList[0]
		workList = workList[1:]
		removed++
		for _, arc := range a.SpontaneousSuccessors(s) {
			if n, ok := inSet[arc.State]; ok {
				inSet[arc.State] = n - 1
				if n == 1 {
					workList = append(workList, arc.State)
				}
			}
		}
	}
	if removed == len(states) {
		return -1, false
	}
	for _, s := range states {
		if inSet[s] > 0 {
			return s, true
		}
	}
	return -1, false
}
