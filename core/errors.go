package core

import "errors"

// Sentinel errors of the training core. All are fatal for the operation that
// raised them; no automatic retry exists anywhere in the module. Callers wrap
// them with component and agent identity and match with errors.Is.
var (
	// ErrEmptyStore is returned when sampling a store before any insertion.
	// Learning is never scheduled before warm-up completes, so hitting this
	// indicates a programming contract violation rather than a runtime
	// condition to recover from.
	ErrEmptyStore = errors.New("sample from empty transition store")

	// ErrInvalidMode is returned for an unrecognized acting mode.
	ErrInvalidMode = errors.New("invalid acting mode")

	// ErrCheckpointNotFound is returned when the checkpoint directory or one
	// of its files does not exist at load time.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrCheckpointCorrupt is returned when checkpoint contents do not match
	// the shape the replay reconstruction requires.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")
)
