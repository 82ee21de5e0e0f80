// Package core provides the foundational domain types, interfaces and
// execution context used across meshrl. It defines the core abstractions for:
//
//   - Transitions (immutable experience records) and sampled Batches
//   - Learners (units of decision-making with exportable state)
//   - Environments (the simulator boundary: step/reset/spaces/horizon)
//   - Metrics loggers and episode recorders (observability collaborators)
//   - RunContext (explicit seed/device/randomness scope)
//
// The package intentionally keeps implementation concerns (storage, variant
// orchestration, concrete learning algorithms) out of scope, exposing small
// interfaces so that controllers, replay stores and checkpoint tooling can be
// composed without cyclic dependencies.
package core
