// Package agent contains concrete learner implementations satisfying
// core.Learner. The package focuses on two concerns:
//
//  1. A soft actor-critic learner over linear function approximators (SAC),
//     with a Gaussian tanh-squashed policy, twin critics with Polyak-averaged
//     targets and a learnable temperature — three parameter groups, each with
//     its own momentum optimizer, all covered by state export/import.
//  2. A uniform-random baseline (Random) for wiring tests and warm-up
//     diagnostics.
//
// Learners are built through explicit factories taking fully resolved
// parameters; no configuration object is mutated during construction.
package agent
