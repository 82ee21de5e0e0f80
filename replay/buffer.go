package replay

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/meshrl/core"
)

// Buffer is a fixed-capacity circular store of transitions for one logical
// learner. Storage is preallocated as parallel arrays so insertion never
// allocates and checkpointing can dump the raw contents directly. Buffer is
// not safe for concurrent use; the training core is single-threaded and each
// buffer is mutated only by its owning controller.
type Buffer struct {
	capacity  int
	obsDim    int
	actionDim int

	observations     [][]float64
	actions          [][]float64
	rewards          []float64
	nextObservations [][]float64
	notDone          []float64
	notDoneNoMax     []float64

	idx     int
	full    bool
	inserts int

	rng *rand.Rand
}

// Arrays is a deep copy of the raw parallel storage in slot order. It is the
// unit a checkpoint archive persists and replays from.
type Arrays struct {
	Observations     [][]float64 `cbor:"observations"`
	Actions          [][]float64 `cbor:"actions"`
	Rewards          []float64   `cbor:"rewards"`
	NextObservations [][]float64 `cbor:"next_observations"`
	NotDone          []float64   `cbor:"not_done"`
	NotDoneNoMax     []float64   `cbor:"not_done_no_max"`
}

// Len returns the slot count of the arrays, or -1 if the parallel arrays
// disagree on length.
func (a Arrays) Len() int {
	n := len(a.Observations)
	if len(a.Actions) != n || len(a.Rewards) != n || len(a.NextObservations) != n ||
		len(a.NotDone) != n || len(a.NotDoneNoMax) != n {
		return -1
	}
	return n
}

// New constructs an empty buffer. The RNG drives sampling and must be owned
// exclusively by this buffer (derive it from the run context).
func New(obsDim, actionDim, capacity int, rng *rand.Rand) (*Buffer, error) {
	if capacity <= 0 {
		return nil, errors.New("replay: capacity must be greater than zero")
	}
	if obsDim <= 0 || actionDim <= 0 {
		return nil, errors.New("replay: observation and action dimensions must be greater than zero")
	}
	if rng == nil {
		return nil, errors.New("replay: rng must not be nil")
	}

	b := &Buffer{
		capacity:         capacity,
		obsDim:           obsDim,
		actionDim:        actionDim,
		observations:     make([][]float64, capacity),
		actions:          make([][]float64, capacity),
		rewards:          make([]float64, capacity),
		nextObservations: make([][]float64, capacity),
		notDone:          make([]float64, capacity),
		notDoneNoMax:     make([]float64, capacity),
		rng:              rng,
	}
	for i := 0; i < capacity; i++ {
		b.observations[i] = make([]float64, obsDim)
		b.actions[i] = make([]float64, actionDim)
		b.nextObservations[i] = make([]float64, obsDim)
	}
	return b, nil
}

// Add writes the transition into the current cursor slot and advances the
// cursor modulo capacity. Overwriting the oldest entry once the ring has
// wrapped is expected behavior, not a fault.
func (b *Buffer) Add(t core.Transition) {
	slot := b.idx
	copy(b.observations[slot], t.Observation)
	copy(b.actions[slot], t.Action)
	copy(b.nextObservations[slot], t.NextObservation)
	b.rewards[slot] = t.Reward
	b.notDone[slot] = notDone(t.Done)
	b.notDoneNoMax[slot] = notDone(t.DoneNoMax)

	b.idx = (b.idx + 1) % b.capacity
	if b.idx == 0 {
		b.full = true
	}
	b.inserts++
}

// Sample draws batchSize records uniformly at random with replacement from
// the retrievable range. It never mutates store state or ordering.
func (b *Buffer) Sample(batchSize int) (core.Batch, error) {
	size := b.Size()
	if size == 0 {
		return core.Batch{}, fmt.Errorf("replay: %w", core.ErrEmptyStore)
	}

	batch := core.Batch{
		Observations:     make([][]float64, batchSize),
		Actions:          make([][]float64, batchSize),
		Rewards:          make([]float64, batchSize),
		NextObservations: make([][]float64, batchSize),
		NotDone:          make([]float64, batchSize),
		NotDoneNoMax:     make([]float64, batchSize),
	}
	for i := 0; i < batchSize; i++ {
		j := b.rng.Intn(size)
		batch.Observations[i] = append([]float64(nil), b.observations[j]...)
		batch.Actions[i] = append([]float64(nil), b.actions[j]...)
		batch.NextObservations[i] = append([]float64(nil), b.nextObservations[j]...)
		batch.Rewards[i] = b.rewards[j]
		batch.NotDone[i] = b.notDone[j]
		batch.NotDoneNoMax[i] = b.notDoneNoMax[j]
	}
	return batch, nil
}

// Size returns the current number of valid entries: the capacity once the
// ring has wrapped, the cursor position before that.
func (b *Buffer) Size() int {
	if b.full {
		return b.capacity
	}
	return b.idx
}

// Capacity returns the fixed slot count.
func (b *Buffer) Capacity() int { return b.capacity }

// ObsDim returns the observation dimensionality.
func (b *Buffer) ObsDim() int { return b.obsDim }

// ActionDim returns the action dimensionality.
func (b *Buffer) ActionDim() int { return b.actionDim }

// Inserts returns the total number of Add calls since construction.
func (b *Buffer) Inserts() int { return b.inserts }

// Arrays returns a deep copy of the raw parallel storage in slot order,
// including slots not yet written.
func (b *Buffer) Arrays() Arrays {
	a := Arrays{
		Observations:     make([][]float64, b.capacity),
		Actions:          make([][]float64, b.capacity),
		Rewards:          append([]float64(nil), b.rewards...),
		NextObservations: make([][]float64, b.capacity),
		NotDone:          append([]float64(nil), b.notDone...),
		NotDoneNoMax:     append([]float64(nil), b.notDoneNoMax...),
	}
	for i := 0; i < b.capacity; i++ {
		a.Observations[i] = append([]float64(nil), b.observations[i]...)
		a.Actions[i] = append([]float64(nil), b.actions[i]...)
		a.NextObservations[i] = append([]float64(nil), b.nextObservations[i]...)
	}
	return a
}

func notDone(done bool) float64 {
	if done {
		return 0
	}
	return 1
}

var _ core.Sampler = (*Buffer)(nil)
