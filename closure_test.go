package automaton

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChain Builds states 0..n-1 over alphabet "ab" with no transitions.
func newChain[W any](ws Weightset[W], n int) *Automaton[W] {
	a := NewAutomaton[W](ws, CharAlphabet("ab"))
	for i := 0; i < n; i++ {
		a.CreateState()
	}
	return a
}

func TestClosure(t *testing.T) {
	t.Run("integer chain", func(t *testing.T) {
		a := newChain[int64](Integer{}, 3)
		a.AddTransition(0, Spontaneous, 2, 1)
		a.AddTransition(1, Spontaneous, 3, 2)

		mat, err := Closure(a.Weightset(), []int{0, 1, 2}, a.SpontaneousSuccessors)
		require.Nil(t, err)
		assert.Equal(t, int64(1), mat.Weight(0, 0))
		assert.Equal(t, int64(2), mat.Weight(0, 1))
		assert.Equal(t, int64(6), mat.Weight(0, 2))
		assert.Equal(t, int64(3), mat.Weight(1, 2))
		assert.Equal(t, int64(0), mat.Weight(2, 0))
		assert.Equal(t, int64(0), mat.Weight(0, 9))
	})

	t.Run("boolean cycle", func(t *testing.T) {
		a := newChain[bool](Boolean{}, 2)
		a.AddTransition(0, Spontaneous, true, 1)
		a.AddTransition(1, Spontaneous, true, 0)

		mat, err := Closure(a.Weightset(), []int{0, 1}, a.SpontaneousSuccessors)
		require.Nil(t, err)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				assert.True(t, mat.At(i, j), "(%d, %d)", i, j)
			}
		}
	})

	t.Run("tropical", func(t *testing.T) {
		a := newChain[int64](ZMin{}, 2)
		a.AddTransition(0, Spontaneous, 5, 1)
		a.AddTransition(1, Spontaneous, -2, 0)

		mat, err := Closure(a.Weightset(), []int{0, 1}, a.SpontaneousSuccessors)
		require.Nil(t, err)
		assert.Equal(t, int64(0), mat.At(0, 0))
		assert.Equal(t, int64(5), mat.At(0, 1))
		assert.Equal(t, int64(-2), mat.At(1, 0))
		assert.Equal(t, int64(0), mat.At(1, 1))
	})

	t.Run("real cycle", func(t *testing.T) {
		a := newChain[float64](Real{}, 2)
		a.AddTransition(0, Spontaneous, 0.5, 1)
		a.AddTransition(1, Spontaneous, 0.5, 0)

		mat, err := Closure(a.Weightset(), []int{0, 1}, a.SpontaneousSuccessors)
		require.Nil(t, err)
		assert.InDelta(t, 4.0/3, mat.At(0, 0), 1e-9)
		assert.InDelta(t, 2.0/3, mat.At(0, 1), 1e-9)
		assert.InDelta(t, 2.0/3, mat.At(1, 0), 1e-9)
		assert.InDelta(t, 4.0/3, mat.At(1, 1), 1e-9)
	})

	t.Run("arcs leaving the set are ignored", func(t *testing.T) {
		a := newChain[int64](Integer{}, 3)
		a.AddTransition(0, Spontaneous, 2, 1)
		a.AddTransition(1, Spontaneous, 3, 2)

		mat, err := Closure(a.Weightset(), []int{0, 1}, a.SpontaneousSuccessors)
		require.Nil(t, err)
		assert.Equal(t, 2, mat.Size())
		assert.Equal(t, []Arc[int64]{{State: 0, Weight: 1}, {State: 1, Weight: 2}}, mat.Row(0))
		assert.Equal(t, []Arc[int64]{{State: 0, Weight: 2}, {State: 1, Weight: 1}}, mat.Column(1))
		_, ok := mat.Index(2)
		assert.False(t, ok)
	})

	t.Run("unstarable", func(t *testing.T) {
		a := newChain[int64](Integer{}, 2)
		a.AddTransition(0, Spontaneous, 1, 1)
		a.AddTransition(1, Spontaneous, 2, 1)

		_, err := Closure(a.Weightset(), []int{0, 1}, a.SpontaneousSuccessors)
		require.NotNil(t, err)
		assert.ErrorIs(t, err, ErrUnstarable)

		var unstarable *UnstarableError
		require.True(t, errors.As(err, &unstarable))
		assert.Equal(t, 1, unstarable.Pivot)
		assert.Equal(t, "2", unstarable.Weight)
		assert.Equal(t, []int{0, 1}, unstarable.States)
	})
}

func TestSpontaneousComponents(t *testing.T) {
	a := newChain[bool](Boolean{}, 6)
	a.AddTransition(0, Spontaneous, true, 1)
	a.AddTransition(2, Spontaneous, true, 1)
	a.AddTransition(3, Spontaneous, true, 4)
	a.AddTransition(4, 'a', true, 5)
	a.AddTransition(5, 'b', true, 0)

	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, SpontaneousComponents(a))

	b := newChain[bool](Boolean{}, 2)
	b.AddTransition(0, 'a', true, 1)
	assert.Empty(t, SpontaneousComponents(b))
}

func TestSpontaneousReach(t *testing.T) {
	a := newChain[bool](Boolean{}, 5)
	a.AddTransition(0, Spontaneous, true, 1)
	a.AddTransition(1, Spontaneous, true, 2)
	a.AddTransition(2, Spontaneous, true, 0)
	a.AddTransition(3, Spontaneous, true, 0)
	a.AddTransition(2, 'a', true, 4)

	assert.Equal(t, []int{0, 1, 2}, SpontaneousReach(a, 0))
	assert.Equal(t, []int{3, 0, 1, 2}, SpontaneousReach(a, 3))
	assert.Equal(t, []int{4}, SpontaneousReach(a, 4))
}
