package automaton

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnstarable        = errors.New("weight is not starable")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidLabel      = errors.New("invalid label")
	ErrInvalidWeight     = errors.New("invalid weight")
	ErrSpontaneousInWord = errors.New("spontaneous label in word")
	ErrNotProper         = errors.New("automaton is not proper")
	ErrLazyBackward      = errors.New("lazy elimination only runs forward")
	ErrWeightsetMismatch = errors.New("automatons have different weightsets")
)

// UnstarableError Reports a spontaneous cycle whose weight has no closure. Pivot is the state whose
// self-loop could not be starred, States the spontaneous component being solved when it happened.
type UnstarableError struct {
	Pivot  int
	Weight string
	States []int
	Err    error
}

func (e *UnstarableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state %d: spontaneous cycle", e.Pivot)
	if e.Weight != "" {
		fmt.Fprintf(&b, " of weight %s", e.Weight)
	}
	if len(e.States) > 0 {
		b.WriteString(" in {")
		for i, s := range e.States {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", s)
		}
		b.WriteString("}")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UnstarableError) Unwrap() error {
	if e.Err == nil {
		return ErrUnstarable
	}
	return e.Err
}

func invalidState(s int) error {
	return fmt.Errorf("%w: %d", ErrInvalidState, s)
}
