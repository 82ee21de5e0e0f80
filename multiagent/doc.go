// Package multiagent orchestrates N agent identities against learners and
// replay stores. Two variants sit behind one Controller interface:
//
//   - Individual: one learner and one store per identity, fully disjoint.
//   - Shared: one learner and one store referenced by every identity. The
//     shared learner receives one update per identity per orchestration step
//     (intentional amortization) and the shared store is provisioned with
//     per-agent capacity times the number of identities.
//
// The variant is selected at construction; callers program against the
// Controller interface only.
package multiagent
