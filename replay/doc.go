// Package replay implements the fixed-capacity experience archive feeding
// off-policy learning: a true FIFO ring of transitions with O(1) insertion
// and uniform sampling. The ring's only bookkeeping is a write cursor and a
// full flag; exactly the last min(inserts, capacity) transitions are
// retrievable and the oldest are overwritten first.
package replay
