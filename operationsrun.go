package automaton

import (
	"fmt"
	"iter"
)

// Walkable What Eval needs from an automaton. *Automaton implements it for proper automatons; a
// *LazyAutomaton implements it by resolving states as they are visited.
type Walkable[W any] interface {
	Weightset() Weightset[W]
	Alphabet() *Alphabet
	Initials() iter.Seq2[int, W]
	Successors(s int) ([]Transition[W], error)
	FinalOf(s int) (W, bool, error)
}

var _ Walkable[bool] = &Automaton[bool]{}

// frontier The states reached after a prefix of the word, with the total weight of the paths reaching
// them. order keeps insertion order so that sums are always done in the same order.
type frontier[W any] struct {
	weights map[int]W
	order   []int
}

func newFrontier[W any]() *frontier[W] {
	return &frontier[W]{weights: make(map[int]W)}
}

func (f *frontier[W]) add(ws Weightset[W], s int, w W) {
	if prev, ok := f.weights[s]; ok {
		f.weights[s] = ws.Add(prev, w)
		return
	}
	f.weights[s] = w
	f.order = append(f.order, s)
}

func (f *frontier[W]) prune(ws Weightset[W]) *frontier[W] {
	res := newFrontier[W]()
	for _, s := range f.order {
		if w := f.weights[s]; !ws.IsZero(w) {
			res.weights[s] = w
			res.order = append(res.order, s)
		}
	}
	return res
}

func checkWord(alphabet *Alphabet, word Word) error {
	for i, l := range word {
		if l == Spontaneous {
			return fmt.Errorf("%w: at position %d", ErrSpontaneousInWord, i)
		}
		if !alphabet.Contains(l) {
			return fmt.Errorf("%w: %s at position %d not in %s", ErrInvalidLabel, l, i, alphabet)
		}
	}
	return nil
}

// Eval Returns the weight a associates with word: the sum, over every path labeled by word from an initial
// state to a final state, of initial weight times transition weights times final weight. It is zero when no
// path accepts. Every state visited on a *LazyAutomaton gets resolved.
func Eval[W any](a Walkable[W], word Word) (W, error) {
	ws := a.Weightset()
	if err := checkWord(a.Alphabet(), word); err != nil {
		return ws.Zero(), err
	}

	current := newFrontier[W]()
	for s, w := range a.Initials() {
		current.add(ws, s, w)
	}

	for _, label := range word {
		next := newFrontier[W]()
		for _, s := range current.order {
			w := current.weights[s]
			out, err := a.Successors(s)
			if err != nil {
				return ws.Zero(), err
			}
			for _, t := range out {
				if t.Label == label {
					next.add(ws, t.Dest, ws.Mul(w, t.Weight))
				}
			}
		}
		current = next.prune(ws)
		if len(current.order) == 0 {
			return ws.Zero(), nil
		}
	}

	res := ws.Zero()
	for _, s := range current.order {
		final, ok, err := a.FinalOf(s)
		if err != nil {
			return ws.Zero(), err
		}
		if ok {
			res = ws.Add(res, ws.Mul(current.weights[s], final))
		}
	}
	return res, nil
}

// EvalString Same as Eval, with one letter per rune of s.
func EvalString[W any](a Walkable[W], s string) (W, error) {
	return Eval(a, WordOf(s))
}

// Run Returns true if a gives word a non-zero weight.
func Run[W any](a Walkable[W], word Word) (bool, error) {
	w, err := Eval(a, word)
	if err != nil {
		return false, err
	}
	return !a.Weightset().IsZero(w), nil
}

// RunString Same as Run, with one letter per rune of s.
func RunString[W any](a Walkable[W], s string) (bool, error) {
	return Run(a, WordOf(s))
}
