package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshrl/core"
)

func newTestBuffer(t *testing.T, obsDim, actionDim, capacity int) *Buffer {
	t.Helper()
	b, err := New(obsDim, actionDim, capacity, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return b
}

func transitionAt(i int, obsDim, actionDim int) core.Transition {
	obs := make([]float64, obsDim)
	next := make([]float64, obsDim)
	act := make([]float64, actionDim)
	for d := range obs {
		obs[d] = float64(i)
		next[d] = float64(i) + 0.5
	}
	for d := range act {
		act[d] = float64(i) * 0.1
	}
	return core.Transition{
		Observation:     obs,
		Action:          act,
		Reward:          float64(i),
		NextObservation: next,
	}
}

func TestNew_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := New(0, 1, 10, rng)
	assert.Error(t, err)

	_, err = New(4, 0, 10, rng)
	assert.Error(t, err)

	_, err = New(4, 1, 0, rng)
	assert.Error(t, err)

	_, err = New(4, 1, 10, nil)
	assert.Error(t, err)
}

func TestBuffer_SizeTracksCursorUntilWrap(t *testing.T) {
	b := newTestBuffer(t, 3, 1, 5)
	assert.Equal(t, 0, b.Size())

	for i := 0; i < 4; i++ {
		b.Add(transitionAt(i, 3, 1))
		assert.Equal(t, i+1, b.Size())
	}

	b.Add(transitionAt(4, 3, 1))
	assert.Equal(t, 5, b.Size())

	// Past capacity the size is pinned while inserts keep counting.
	for i := 5; i < 12; i++ {
		b.Add(transitionAt(i, 3, 1))
	}
	assert.Equal(t, 5, b.Size())
	assert.Equal(t, 12, b.Inserts())
}

func TestBuffer_OverwritesOldestOnWrap(t *testing.T) {
	b := newTestBuffer(t, 2, 1, 3)
	for i := 0; i < 5; i++ {
		b.Add(transitionAt(i, 2, 1))
	}

	// Slots now hold insertions 3, 4, 2 in slot order.
	a := b.Arrays()
	assert.Equal(t, []float64{3, 3}, a.Observations[0])
	assert.Equal(t, []float64{4, 4}, a.Observations[1])
	assert.Equal(t, []float64{2, 2}, a.Observations[2])
	assert.Equal(t, []float64{3, 4, 2}, a.Rewards)
}

func TestBuffer_SampleEmptyStore(t *testing.T) {
	b := newTestBuffer(t, 2, 1, 4)

	_, err := b.Sample(8)
	assert.ErrorIs(t, err, core.ErrEmptyStore)
}

func TestBuffer_SampleOnlyRetrievableRange(t *testing.T) {
	b := newTestBuffer(t, 1, 1, 10)
	b.Add(transitionAt(7, 1, 1))
	b.Add(transitionAt(9, 1, 1))

	batch, err := b.Sample(64)
	require.NoError(t, err)
	assert.Equal(t, 64, batch.Len())

	for i := 0; i < batch.Len(); i++ {
		assert.Contains(t, []float64{7, 9}, batch.Rewards[i])
	}
}

func TestBuffer_SampleCopiesRows(t *testing.T) {
	b := newTestBuffer(t, 2, 1, 4)
	b.Add(transitionAt(1, 2, 1))

	batch, err := b.Sample(1)
	require.NoError(t, err)

	batch.Observations[0][0] = 99
	batch.Actions[0][0] = 99

	again, err := b.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, again.Observations[0])
	assert.Equal(t, []float64{0.1}, again.Actions[0])
}

func TestBuffer_AddCopiesInput(t *testing.T) {
	b := newTestBuffer(t, 2, 1, 4)

	tr := transitionAt(1, 2, 1)
	b.Add(tr)
	tr.Observation[0] = 42
	tr.Action[0] = 42

	batch, err := b.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, batch.Observations[0])
	assert.Equal(t, []float64{0.1}, batch.Actions[0])
}

func TestBuffer_DoneFlagsStoredAsNotDone(t *testing.T) {
	b := newTestBuffer(t, 1, 1, 4)

	tr := transitionAt(0, 1, 1)
	tr.Done = true
	tr.DoneNoMax = false
	b.Add(tr)

	a := b.Arrays()
	assert.Equal(t, float64(0), a.NotDone[0])
	assert.Equal(t, float64(1), a.NotDoneNoMax[0])
}

func TestBuffer_ArraysDeepCopy(t *testing.T) {
	b := newTestBuffer(t, 1, 1, 2)
	b.Add(transitionAt(1, 1, 1))

	a := b.Arrays()
	a.Observations[0][0] = 123
	a.Rewards[0] = 123

	again := b.Arrays()
	assert.Equal(t, []float64{1}, again.Observations[0])
	assert.Equal(t, float64(1), again.Rewards[0])
}

func TestArrays_LenMismatch(t *testing.T) {
	a := Arrays{
		Observations:     make([][]float64, 3),
		Actions:          make([][]float64, 3),
		Rewards:          make([]float64, 2),
		NextObservations: make([][]float64, 3),
		NotDone:          make([]float64, 3),
		NotDoneNoMax:     make([]float64, 3),
	}
	assert.Equal(t, -1, a.Len())

	a.Rewards = make([]float64, 3)
	assert.Equal(t, 3, a.Len())
}

func TestBuffer_SampleDistributionCoversStore(t *testing.T) {
	b := newTestBuffer(t, 1, 1, 8)
	for i := 0; i < 8; i++ {
		b.Add(transitionAt(i, 1, 1))
	}

	batch, err := b.Sample(512)
	require.NoError(t, err)

	seen := make(map[float64]int)
	for i := 0; i < batch.Len(); i++ {
		seen[batch.Rewards[i]]++
	}
	// With 512 draws over 8 slots every slot should appear.
	assert.Len(t, seen, 8)
}
