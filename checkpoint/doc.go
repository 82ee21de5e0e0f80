// Package checkpoint serializes and restores controller state: the training
// step counter, every learner's parameter and optimizer snapshot, and every
// replay store's raw contents. A checkpoint is a directory named cp_<step>
// holding one combined CBOR state file plus one gzip-compressed archive per
// store of named parallel arrays.
//
// Stores are reconstructed on load by replaying the recorded number of
// insertions through the store's normal add path, never by copying a saved
// cursor or full flag. The cursor position is derived from the replay count,
// which removes the possibility of a stored cursor and stored array contents
// silently disagreeing after a partial write.
package checkpoint
