package automaton

import (
	"slices"
	"strconv"
)

// Label A letter of the alphabet (a code point), or Spontaneous.
type Label int

// Spontaneous The label of epsilon transitions. It is never part of an alphabet.
const Spontaneous = Label(-1)

func (l Label) IsSpontaneous() bool {
	return l == Spontaneous
}

func (l Label) String() string {
	if l == Spontaneous {
		return `\e`
	}
	if l >= 0x20 && l < 0x7f {
		return string(rune(l))
	}
	return strconv.QuoteRune(rune(l))
}

// Word A sequence of letters, as fed to Eval.
type Word []Label

// WordOf Returns the letters of s, one per rune.
func WordOf(s string) Word {
	word := make(Word, 0, len(s))
	for _, r := range s {
		word = append(word, Label(r))
	}
	return word
}

// Alphabet An immutable, sorted set of letters.
type Alphabet struct {
	letters []Label
}

func NewAlphabet(letters ...Label) *Alphabet {
	sorted := make([]Label, 0, len(letters))
	for _, l := range letters {
		if l < 0 {
			continue
		}
		sorted = append(sorted, l)
	}
	slices.Sort(sorted)
	return &Alphabet{letters: slices.Compact(sorted)}
}

// CharAlphabet Returns the alphabet of the runes in s.
func CharAlphabet(s string) *Alphabet {
	return NewAlphabet(WordOf(s)...)
}

// Contains Returns true if l is a letter of this alphabet. Spontaneous never is.
func (a *Alphabet) Contains(l Label) bool {
	_, ok := slices.BinarySearch(a.letters, l)
	return ok
}

func (a *Alphabet) Letters() []Label {
	return slices.Clone(a.letters)
}

func (a *Alphabet) Size() int {
	return len(a.letters)
}

func (a *Alphabet) String() string {
	buf := make([]byte, 0, len(a.letters)+2)
	buf = append(buf, '{')
	for _, l := range a.letters {
		buf = append(buf, l.String()...)
	}
	return string(append(buf, '}'))
}
