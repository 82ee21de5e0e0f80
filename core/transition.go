package core

// Transition is one interaction record: what the learner observed, what it
// did, what it received and where it ended up. DoneNoMax carries the episode
// termination flag with horizon truncation suppressed, so value bootstrapping
// is never cut off by an artificial episode length limit. Transitions are
// immutable once written to a store.
type Transition struct {
	Observation     []float64
	Action          []float64
	Reward          float64
	NextObservation []float64
	Done            bool
	DoneNoMax       bool
}

// Batch holds a uniformly sampled mini-batch as parallel columns. Termination
// flags are stored in their "not done" form (1.0 while the episode continues,
// 0.0 on termination) because that is the factor a TD target multiplies by.
type Batch struct {
	Observations     [][]float64
	Actions          [][]float64
	Rewards          []float64
	NextObservations [][]float64
	NotDone          []float64
	NotDoneNoMax     []float64
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Rewards) }

// Sampler is the read side of a transition store as seen by a learner update.
// Sampling must not mutate store contents or ordering.
type Sampler interface {
	// Sample draws batchSize records uniformly at random, independently and
	// with replacement, from the currently retrievable transitions. It fails
	// with ErrEmptyStore when nothing has been inserted yet.
	Sample(batchSize int) (Batch, error)

	// Size reports the number of currently retrievable transitions.
	Size() int
}
