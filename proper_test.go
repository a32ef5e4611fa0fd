package automaton

import (
	"bytes"
	"log/slog"
	"math/big"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBooleanFixture 0 --a--> 1 --\e--> 2 --a--> 3, 0 initial and 3 final.
func newBooleanFixture() *Automaton[bool] {
	a := newChain[bool](Boolean{}, 4)
	a.SetInitial(0, true)
	a.SetFinal(3, true)
	a.AddTransition(0, 'a', true, 1)
	a.AddTransition(1, Spontaneous, true, 2)
	a.AddTransition(2, 'a', true, 3)
	return a
}

// newRealFixture A small automaton over the reals with spontaneous cycles and spontaneous paths to final
// states.
func newRealFixture() *Automaton[float64] {
	a := newChain[float64](Real{}, 4)
	a.SetInitial(0, 1)
	a.SetInitial(2, 0.5)
	a.SetFinal(2, 0.5)
	a.SetFinal(3, 2)
	a.AddTransition(0, Spontaneous, 0.5, 1)
	a.AddTransition(1, 'a', 2, 2)
	a.AddTransition(2, Spontaneous, 0.25, 0)
	a.AddTransition(2, 'b', 1, 3)
	a.AddTransition(1, Spontaneous, 0.3, 3)
	a.AddTransition(3, Spontaneous, 0.2, 3)
	a.AddTransition(3, 'a', 1.5, 0)
	return a
}

// words Returns every word over letters of length at most n.
func words(letters string, n int) []string {
	res := []string{""}
	last := []string{""}
	for i := 0; i < n; i++ {
		var next []string
		for _, w := range last {
			for _, l := range letters {
				next = append(next, w+string(l))
			}
		}
		res = append(res, next...)
		last = next
	}
	return res
}

func transitionsOf[W any](a *Automaton[W]) []Transition[W] {
	return slices.Collect(a.Transitions())
}

func TestProper_Forward(t *testing.T) {
	a := newBooleanFixture()

	res, err := Proper(a)
	require.Nil(t, err)
	assert.True(t, res.IsProper())
	assert.Equal(t, 3, res.GetNumStates())
	assert.ElementsMatch(t, []Transition[bool]{
		{Source: 0, Label: 'a', Weight: true, Dest: 1},
		{Source: 1, Label: 'a', Weight: true, Dest: 3},
	}, transitionsOf(res))

	ok, err := EvalString[bool](res, "aa")
	require.Nil(t, err)
	assert.True(t, ok)
	ok, err = EvalString[bool](res, "a")
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestProper_NoPrune(t *testing.T) {
	res, err := Proper(newBooleanFixture(), WithPrune(false))
	require.Nil(t, err)
	assert.Equal(t, 4, res.GetNumStates())
	assert.ElementsMatch(t, []Transition[bool]{
		{Source: 0, Label: 'a', Weight: true, Dest: 1},
		{Source: 1, Label: 'a', Weight: true, Dest: 3},
		{Source: 2, Label: 'a', Weight: true, Dest: 3},
	}, transitionsOf(res))
}

func TestProper_Backward(t *testing.T) {
	res, err := Proper(newBooleanFixture(), WithDirection(Backward))
	require.Nil(t, err)
	assert.True(t, res.IsProper())
	assert.ElementsMatch(t, []Transition[bool]{
		{Source: 0, Label: 'a', Weight: true, Dest: 2},
		{Source: 2, Label: 'a', Weight: true, Dest: 3},
	}, transitionsOf(res))

	ok, err := EvalString[bool](res, "aa")
	require.Nil(t, err)
	assert.True(t, ok)
}

func TestProper_Laws(t *testing.T) {
	a := newRealFixture()

	once, err := Proper(a)
	require.Nil(t, err)
	twice, err := Proper(once)
	require.Nil(t, err)
	assert.Equal(t, transitionsOf(once), transitionsOf(twice))

	unpruned, err := Proper(a, WithPrune(false))
	require.Nil(t, err)
	assert.Equal(t, transitionsOf(once), transitionsOf(Trim(unpruned)))
	assert.Equal(t, slices.Collect(once.States()), slices.Collect(Trim(unpruned).States()))

	// The input is left untouched.
	assert.Equal(t, 4, a.NumSpontaneous())
	assert.False(t, a.IsProper())
}

func TestProper_Integer(t *testing.T) {
	a := newChain[int64](Integer{}, 3)
	a.SetInitial(0, 1)
	a.AddTransition(0, 'a', 1, 1)
	a.AddTransition(1, Spontaneous, 2, 2)
	a.SetFinal(1, 3)
	a.SetFinal(2, 4)

	res, err := Proper(a)
	require.Nil(t, err)
	assert.Equal(t, int64(11), res.FinalWeight(1))

	w, err := EvalString[int64](res, "a")
	require.Nil(t, err)
	assert.Equal(t, int64(11), w)
	w, err = EvalString[int64](res, "")
	require.Nil(t, err)
	assert.Equal(t, int64(0), w)
}

func TestProper_RationalLoop(t *testing.T) {
	a := newChain[*big.Rat](Rational{}, 1)
	a.SetInitial(0, Q(1, 1))
	a.SetFinal(0, Q(1, 1))
	a.AddTransition(0, Spontaneous, Q(1, 2), 0)
	a.AddTransition(0, 'a', Q(1, 3), 0)

	res, err := Proper(a)
	require.Nil(t, err)
	w, err := EvalString[*big.Rat](res, "")
	require.Nil(t, err)
	assert.Equal(t, "2", w.RatString())

	// (2 * 1/3) * 2
	w, err = EvalString[*big.Rat](res, "a")
	require.Nil(t, err)
	assert.Equal(t, "4/3", w.RatString())
}

func TestProper_Tropical(t *testing.T) {
	a := newChain[int64](ZMin{}, 3)
	a.SetInitial(0, 0)
	a.SetFinal(2, 0)
	a.AddTransition(0, Spontaneous, 3, 1)
	a.AddTransition(1, 'a', 2, 2)
	a.AddTransition(0, 'a', 10, 2)

	res, err := Proper(a)
	require.Nil(t, err)
	w, err := EvalString[int64](res, "a")
	require.Nil(t, err)
	assert.Equal(t, int64(5), w)

	b := newChain[int64](ZMin{}, 1)
	b.AddTransition(0, Spontaneous, -1, 0)
	_, err = Proper(b)
	assert.ErrorIs(t, err, ErrUnstarable)
}

func TestProper_Unstarable(t *testing.T) {
	t.Run("integer loop", func(t *testing.T) {
		a := newChain[int64](Integer{}, 1)
		a.AddTransition(0, Spontaneous, 1, 0)
		res, err := Proper(a)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrUnstarable)

		var unstarable *UnstarableError
		require.ErrorAs(t, err, &unstarable)
		assert.Equal(t, 0, unstarable.Pivot)
	})

	t.Run("integer zero-sum cycle", func(t *testing.T) {
		a := newChain[int64](Integer{}, 2)
		a.AddTransition(0, Spontaneous, 1, 1)
		a.AddTransition(1, Spontaneous, -1, 0)
		_, err := Proper(a)
		assert.ErrorIs(t, err, ErrUnstarable)
	})

	t.Run("rational loop", func(t *testing.T) {
		a := newChain[*big.Rat](Rational{}, 1)
		a.AddTransition(0, Spontaneous, Q(2, 1), 0)
		_, err := Proper(a)
		assert.ErrorIs(t, err, ErrUnstarable)
	})

	t.Run("rational cancelling cycles", func(t *testing.T) {
		a := newChain[*big.Rat](Rational{}, 3)
		a.AddTransition(0, Spontaneous, Q(1, 2), 1)
		a.AddTransition(0, Spontaneous, Q(1, 2), 2)
		a.AddTransition(1, Spontaneous, Q(1, 1), 0)
		a.AddTransition(2, Spontaneous, Q(-1, 1), 0)
		_, err := Proper(a)
		assert.ErrorIs(t, err, ErrUnstarable)
		assert.False(t, IsValid(a))
	})

	t.Run("in place", func(t *testing.T) {
		a := newChain[int64](Integer{}, 1)
		a.AddTransition(0, Spontaneous, 2, 0)
		assert.ErrorIs(t, ProperHere(a), ErrUnstarable)
	})
}

func TestProper_Acyclic(t *testing.T) {
	a := newChain[int64](Integer{}, 3)
	a.SetInitial(0, 1)
	a.SetFinal(2, 1)
	a.AddTransition(0, Spontaneous, 2, 1)
	a.AddTransition(1, Spontaneous, 3, 2)
	a.AddTransition(0, Spontaneous, 1, 2)

	assert.True(t, IsEpsAcyclic(a))
	assert.True(t, IsValid(a))

	res, err := Proper(a)
	require.Nil(t, err)
	w, err := EvalString[int64](res, "")
	require.Nil(t, err)
	assert.Equal(t, int64(7), w)

	a.AddTransition(2, Spontaneous, 1, 0)
	assert.False(t, IsEpsAcyclic(a))
	assert.False(t, IsValid(a))
}

func TestProperHere(t *testing.T) {
	a := newBooleanFixture()
	require.Nil(t, ProperHere(a))
	assert.True(t, a.IsProper())
	assert.Equal(t, 3, a.GetNumStates())
}

func TestProperWithStats(t *testing.T) {
	_, stats, err := ProperWithStats(newBooleanFixture())
	require.Nil(t, err)
	assert.Equal(t, ProperStats{
		Components:         1,
		ClosedStates:       2,
		AddedTransitions:   2,
		RemovedTransitions: 2,
		RemovedStates:      1,
	}, stats)

	_, stats, err = ProperWithStats(newBooleanFixture(), WithPrune(false))
	require.Nil(t, err)
	assert.Equal(t, 0, stats.RemovedStates)
}

func TestProper_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Proper(newBooleanFixture(), WithLogger(logger))
	require.Nil(t, err)
	assert.Contains(t, buf.String(), "msg=proper")
	assert.Contains(t, buf.String(), "direction=forward")
	assert.Contains(t, buf.String(), "components=1")
}

func TestProperView(t *testing.T) {
	eager, err := ProperView(newBooleanFixture())
	require.Nil(t, err)
	_, ok := eager.(*Automaton[bool])
	assert.True(t, ok)

	lazy, err := ProperView(newBooleanFixture(), WithLazy(true))
	require.Nil(t, err)
	_, ok = lazy.(*LazyAutomaton[bool])
	assert.True(t, ok)

	for _, word := range words("a", 3) {
		want, err := EvalString(eager, word)
		require.Nil(t, err)
		got, err := EvalString(lazy, word)
		require.Nil(t, err)
		assert.Equal(t, want, got, word)
	}

	_, err = ProperView(newBooleanFixture(), WithLazy(true), WithDirection(Backward))
	assert.ErrorIs(t, err, ErrLazyBackward)

	bad := newChain[int64](Integer{}, 1)
	bad.AddTransition(0, Spontaneous, 1, 0)
	view, err := ProperView(bad)
	assert.Nil(t, view)
	assert.ErrorIs(t, err, ErrUnstarable)
}

func TestProper_Equivalence(t *testing.T) {
	a := newRealFixture()

	forward, err := Proper(a)
	require.Nil(t, err)
	backward, err := Proper(a, WithDirection(Backward))
	require.Nil(t, err)
	unpruned, err := Proper(a, WithPrune(false))
	require.Nil(t, err)
	lazy, err := NewLazy(a)
	require.Nil(t, err)

	for _, word := range words("ab", 4) {
		want, err := EvalString[float64](forward, word)
		require.Nil(t, err)

		for name, view := range map[string]Walkable[float64]{
			"backward": backward,
			"unpruned": unpruned,
			"lazy":     lazy,
		} {
			got, err := EvalString(view, word)
			require.Nil(t, err)
			assert.InDelta(t, want, got, 1e-9, "%s %q", name, word)
		}
	}
}
