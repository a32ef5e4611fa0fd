package automaton

import "fmt"

// Automata Builds small automatons over a given weightset and alphabet.
type Automata[W any] struct {
	ws       Weightset[W]
	alphabet *Alphabet
}

func NewAutomata[W any](ws Weightset[W], alphabet *Alphabet) *Automata[W] {
	return &Automata[W]{ws: ws, alphabet: alphabet}
}

// MakeEmpty
// Returns a new automaton with the empty series: no state at all.
func (f *Automata[W]) MakeEmpty() *Automaton[W] {
	return NewAutomaton(f.ws, f.alphabet)
}

// MakeEmptyString
// Returns a new automaton that maps the empty word to one and everything else to zero.
func (f *Automata[W]) MakeEmptyString() *Automaton[W] {
	a := NewAutomaton(f.ws, f.alphabet)
	s := a.CreateState()
	a.SetInitial(s, f.ws.One())
	a.SetFinal(s, f.ws.One())
	return a
}

// MakeChar
// Returns a new automaton that maps the one-letter word l to w.
func (f *Automata[W]) MakeChar(l Label, w W) (*Automaton[W], error) {
	if !f.alphabet.Contains(l) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrInvalidLabel, l, f.alphabet)
	}
	a := NewAutomaton(f.ws, f.alphabet)
	s0 := a.CreateState()
	s1 := a.CreateState()
	a.SetInitial(s0, f.ws.One())
	a.SetFinal(s1, f.ws.One())
	a.AddTransition(s0, l, w, s1)
	return a, nil
}

// MakeString
// Returns a new automaton that maps the word s to one.
func (f *Automata[W]) MakeString(s string) (*Automaton[W], error) {
	a := NewAutomaton(f.ws, f.alphabet)
	state := a.CreateState()
	a.SetInitial(state, f.ws.One())
	for _, l := range WordOf(s) {
		if !f.alphabet.Contains(l) {
			return nil, fmt.Errorf("%w: %s not in %s", ErrInvalidLabel, l, f.alphabet)
		}
		next := a.CreateState()
		a.AddTransition(state, l, f.ws.One(), next)
		state = next
	}
	a.SetFinal(state, f.ws.One())
	return a, nil
}

// MakeAnyChar
// Returns a new automaton that maps every one-letter word to one.
func (f *Automata[W]) MakeAnyChar() *Automaton[W] {
	a := NewAutomaton(f.ws, f.alphabet)
	s0 := a.CreateState()
	s1 := a.CreateState()
	a.SetInitial(s0, f.ws.One())
	a.SetFinal(s1, f.ws.One())
	for _, l := range f.alphabet.letters {
		a.AddTransition(s0, l, f.ws.One(), s1)
	}
	return a
}

// MakeAnyString
// Returns a new automaton that maps every word to one.
func (f *Automata[W]) MakeAnyString() *Automaton[W] {
	a := NewAutomaton(f.ws, f.alphabet)
	s := a.CreateState()
	a.SetInitial(s, f.ws.One())
	a.SetFinal(s, f.ws.One())
	for _, l := range f.alphabet.letters {
		a.AddTransition(s, l, f.ws.One(), s)
	}
	return a
}
