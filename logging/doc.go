// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. Training components log ambient diagnostics (phase
// changes, checkpoint I/O, episode boundaries) through this package; numeric
// training metrics go through the metrics package instead.
package logging
