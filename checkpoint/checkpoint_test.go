package checkpoint

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshrl/core"
	"github.com/hupe1980/meshrl/replay"
)

func newBuffer(t *testing.T, obsDim, actionDim, capacity int) *replay.Buffer {
	t.Helper()
	b, err := replay.New(obsDim, actionDim, capacity, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	return b
}

func addN(b *replay.Buffer, n, obsDim, actionDim int) {
	for i := 0; i < n; i++ {
		obs := make([]float64, obsDim)
		next := make([]float64, obsDim)
		act := make([]float64, actionDim)
		for d := range obs {
			obs[d] = float64(i)
			next[d] = float64(i) + 0.5
		}
		for d := range act {
			act[d] = float64(i) * 0.01
		}
		b.Add(core.Transition{
			Observation:     obs,
			Action:          act,
			Reward:          float64(i),
			NextObservation: next,
			Done:            i%5 == 4,
			DoneNoMax:       i%7 == 6,
		})
	}
}

func testModels(step int) map[string]core.LearnerState {
	return map[string]core.LearnerState{
		"agent_0": {
			Algo:    "sac",
			Device:  "cuda",
			Params:  map[string][]float64{"actor.w_mu": {0.1, 0.2, 0.3}},
			Scalars: map[string]float64{"alpha.log_alpha": -2.3},
			Optims: map[string]core.OptimState{
				"actor": {Step: step, Momentum: map[string][]float64{"actor.w_mu": {0.01, 0.02, 0.03}}},
			},
		},
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "cp_0", Name(0))
	assert.Equal(t, "cp_12500", Name(12500))
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	buf := newBuffer(t, 2, 1, 8)
	addN(buf, 5, 2, 1)

	models := testModels(100)
	archives := map[string]replay.Arrays{"agent_0": buf.Arrays()}
	require.NoError(t, m.Save(dir, 100, models, archives))

	step, loaded, err := m.Load(dir, Name(100))
	require.NoError(t, err)
	assert.Equal(t, 100, step)
	assert.Equal(t, models, loaded)

	arrays, err := m.ReadArchive(dir, Name(100), "agent_0")
	require.NoError(t, err)
	assert.Equal(t, buf.Arrays(), arrays)
}

func TestManager_LoadNotFound(t *testing.T) {
	m := NewManager()

	_, _, err := m.Load(t.TempDir(), "cp_999")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestManager_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	cpDir := filepath.Join(dir, "cp_10")
	require.NoError(t, os.MkdirAll(cpDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cpDir, stateFile), []byte("not cbor"), 0o644))

	m := NewManager()
	_, _, err := m.Load(dir, "cp_10")
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)
}

func TestManager_ReadArchiveNotFound(t *testing.T) {
	m := NewManager()

	_, err := m.ReadArchive(t.TempDir(), "cp_0", "agent_0")
	assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
}

func TestManager_ReadArchiveCorruptGzip(t *testing.T) {
	dir := t.TempDir()
	archives := filepath.Join(dir, "cp_0", archiveDir)
	require.NoError(t, os.MkdirAll(archives, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(archives, "agent_0"+archiveExt), []byte("junk"), 0o644))

	m := NewManager()
	_, err := m.ReadArchive(dir, "cp_0", "agent_0")
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)
}

// Reconstruction must reproduce slot contents, size and cursor for any
// insertion count, including counts past capacity.
func TestManager_ReplayRestoresStoreState(t *testing.T) {
	const (
		obsDim    = 2
		actionDim = 1
		capacity  = 6
	)
	m := NewManager()

	for _, inserts := range []int{0, 1, capacity - 1, capacity, capacity + 5, 3 * capacity} {
		original := newBuffer(t, obsDim, actionDim, capacity)
		addN(original, inserts, obsDim, actionDim)

		restored := newBuffer(t, obsDim, actionDim, capacity)
		require.NoError(t, m.Replay(restored, original.Arrays(), inserts))

		assert.Equal(t, original.Size(), restored.Size(), "inserts=%d", inserts)
		assert.Equal(t, original.Inserts(), restored.Inserts(), "inserts=%d", inserts)
		assert.Equal(t, original.Arrays(), restored.Arrays(), "inserts=%d", inserts)

		// The cursor is not directly observable, so advance both stores by
		// one more insertion and compare slot contents again.
		probe := core.Transition{
			Observation:     []float64{-1, -1},
			Action:          []float64{-1},
			Reward:          -1,
			NextObservation: []float64{-1, -1},
		}
		original.Add(probe)
		restored.Add(probe)
		assert.Equal(t, original.Arrays(), restored.Arrays(), "cursor mismatch at inserts=%d", inserts)
	}
}

func TestManager_ReplayValidation(t *testing.T) {
	m := NewManager()
	buf := newBuffer(t, 2, 1, 4)

	other := newBuffer(t, 2, 1, 6)
	err := m.Replay(buf, other.Arrays(), 3)
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)

	wrongDims := newBuffer(t, 3, 1, 4)
	err = m.Replay(buf, wrongDims.Arrays(), 3)
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)

	same := newBuffer(t, 2, 1, 4)
	err = m.Replay(buf, same.Arrays(), -1)
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)

	mismatched := same.Arrays()
	mismatched.Rewards = mismatched.Rewards[:2]
	err = m.Replay(buf, mismatched, 2)
	assert.ErrorIs(t, err, core.ErrCheckpointCorrupt)
}

// A store that wrapped before saving must, after save and reconstruction,
// sample only the transitions that were still retrievable at save time.
func TestManager_SaveReplayEndToEnd(t *testing.T) {
	const (
		capacity = 100
		inserts  = 250
	)
	dir := t.TempDir()
	m := NewManager()

	original := newBuffer(t, 2, 1, capacity)
	addN(original, inserts, 2, 1)

	require.NoError(t, m.Save(dir, inserts, testModels(inserts), map[string]replay.Arrays{
		"agent_0": original.Arrays(),
	}))

	arrays, err := m.ReadArchive(dir, Name(inserts), "agent_0")
	require.NoError(t, err)

	restored := newBuffer(t, 2, 1, capacity)
	require.NoError(t, m.Replay(restored, arrays, inserts))
	assert.Equal(t, capacity, restored.Size())

	batch, err := restored.Sample(1000)
	require.NoError(t, err)
	for i := 0; i < batch.Len(); i++ {
		// Only the last `capacity` insertions survive the ring.
		assert.GreaterOrEqual(t, batch.Rewards[i], float64(inserts-capacity))
		assert.Less(t, batch.Rewards[i], float64(inserts))
	}
}
