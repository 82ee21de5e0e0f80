// Package testutil provides deterministic fakes shared by the package-level
// tests: a scripted environment, a counting learner and a capturing metrics
// logger. None of them are part of the public API.
package testutil
