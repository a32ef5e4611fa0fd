package automaton

import (
	"errors"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"
)

// StateStatus Whether the spontaneous transitions of a state of a LazyAutomaton have been eliminated yet.
type StateStatus int

const (
	// Unresolved the state still shows its original transitions, spontaneous ones included.
	Unresolved = StateStatus(iota)
	// Resolved the state shows its final spontaneous-free transitions and final weight.
	Resolved
)

func (s StateStatus) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// LazyAutomaton Eliminates spontaneous transitions on demand. The first time the successors or the final
// weight of a state are requested, the closure of the states spontaneously reachable from it is solved
// once, and every one of those states is resolved together and cached. A resolved state is never
// recomputed, so its transitions and final weight never change afterward.
//
// The wrapped automaton is a private copy and is never modified. Resolution is guarded by a single writer
// lock; reads of resolved states only take the read lock, so a LazyAutomaton is safe for concurrent use.
type LazyAutomaton[W any] struct {
	id     string
	src    *Automaton[W]
	logger *slog.Logger

	mu       sync.RWMutex
	resolved *bitset.BitSet
	cache    map[int]materialized[W]
}

var _ Walkable[bool] = &LazyAutomaton[bool]{}

// NewLazy Wraps a copy of a. Only the forward direction is supported: WithDirection(Backward) fails with
// ErrLazyBackward. Lazy elimination never prunes, whatever WithPrune says.
func NewLazy[W any](a *Automaton[W], opts ...ProperOption) (*LazyAutomaton[W], error) {
	o := newProperOptions(opts...)
	if o.direction != Forward {
		return nil, ErrLazyBackward
	}
	id := uuid.New().String()
	return &LazyAutomaton[W]{
		id:       id,
		src:      a.Clone(),
		logger:   o.logger.With(slog.String("lazy", id)),
		resolved: bitset.New(uint(a.maxState())),
		cache:    make(map[int]materialized[W]),
	}, nil
}

// ID Identifies this LazyAutomaton in its log records.
func (l *LazyAutomaton[W]) ID() string {
	return l.id
}

func (l *LazyAutomaton[W]) Weightset() Weightset[W] {
	return l.src.ws
}

func (l *LazyAutomaton[W]) Alphabet() *Alphabet {
	return l.src.alphabet
}

// Initials Iterates over the initial states and their weights, which elimination never changes.
func (l *LazyAutomaton[W]) Initials() iter.Seq2[int, W] {
	return l.src.Initials()
}

// States Iterates over all states, resolved or not.
func (l *LazyAutomaton[W]) States() iter.Seq[int] {
	return l.src.States()
}

func (l *LazyAutomaton[W]) HasState(s int) bool {
	return l.src.HasState(s)
}

func (l *LazyAutomaton[W]) GetNumStates() int {
	return l.src.GetNumStates()
}

// Status Returns whether s is resolved, without resolving it.
func (l *LazyAutomaton[W]) Status(s int) StateStatus {
	if l.IsResolved(s) {
		return Resolved
	}
	return Unresolved
}

func (l *LazyAutomaton[W]) IsResolved(s int) bool {
	l.src.checkState(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolved.Test(uint(s))
}

// Resolved Returns the resolved states, in increasing order.
func (l *LazyAutomaton[W]) Resolved() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Collect(setMembers(l.resolved))
}

func (l *LazyAutomaton[W]) NumResolved() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.resolved.Count())
}

// Resolve Forces the materialization of s, and of every state spontaneously reachable from it. It is a
// no-op if s is already resolved. If the spontaneous closure of s cannot be computed, nothing is resolved
// and the *UnstarableError is returned; states resolved earlier stay valid.
func (l *LazyAutomaton[W]) Resolve(s int) error {
	if l.IsResolved(s) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved.Test(uint(s)) {
		return nil
	}
	return l.resolveLocked(s)
}

func (l *LazyAutomaton[W]) resolveLocked(s int) error {
	reach := SpontaneousReach(l.src, s)
	if err := checkClosable(l.src, reach); err != nil {
		l.logger.Debug("materialize failed", "state", s, "closure", len(reach), "error", err)
		return err
	}
	mat, err := Closure(l.src.ws, reach, l.src.SpontaneousSuccessors)
	if err != nil {
		l.logger.Debug("materialize failed", "state", s, "closure", len(reach), "error", err)
		return err
	}

	newly := 0
	for i, r := range reach {
		if l.resolved.Test(uint(r)) {
			continue
		}
		l.cache[r] = l.src.materialize(mat, i)
		l.resolved.Set(uint(r))
		newly++
	}
	l.logger.Debug("materialize", "state", s, "closure", len(reach), "resolved", newly)
	return nil
}

// ResolveAll Resolves every state. States whose closure fails stay unresolved; their errors are joined.
func (l *LazyAutomaton[W]) ResolveAll() error {
	var errs []error
	for s := range l.src.States() {
		if err := l.Resolve(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Successors Returns the spontaneous-free transitions leaving s, resolving s first if needed.
func (l *LazyAutomaton[W]) Successors(s int) ([]Transition[W], error) {
	if err := l.Resolve(s); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.cache[s].out), nil
}

// FinalOf Returns the final weight of s once its spontaneous closure is folded in, resolving s first if
// needed.
func (l *LazyAutomaton[W]) FinalOf(s int) (W, bool, error) {
	if err := l.Resolve(s); err != nil {
		return l.src.ws.Zero(), false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry := l.cache[s]
	return entry.final, entry.hasFinal, nil
}

// Peek Returns the current view of s without resolving it: the cached transitions and final weight once
// resolved, the original ones (spontaneous transitions included) before.
func (l *LazyAutomaton[W]) Peek(s int) ([]Transition[W], W, StateStatus) {
	l.src.checkState(s)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entry, ok := l.cache[s]; ok {
		return slices.Clone(entry.out), entry.final, Resolved
	}
	return l.src.Out(s), l.src.FinalWeight(s), Unresolved
}

// Snapshot Returns the automaton as currently materialized: resolved states carry their spontaneous-free
// transitions and final weights, unresolved ones their original transitions. Once every state is
// resolved, the snapshot is Proper(a, WithPrune(false)).
func (l *LazyAutomaton[W]) Snapshot() *Automaton[W] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := l.src.Clone()
	for s := range setMembers(l.resolved) {
		for _, t := range slices.Clone(res.states[s].out) {
			res.RemoveTransition(t)
		}
	}
	for s := range setMembers(l.resolved) {
		entry := l.cache[s]
		for _, t := range entry.out {
			res.AddTransition(t.Source, t.Label, t.Weight, t.Dest)
		}
		res.SetFinal(s, entry.final)
	}
	return res
}
