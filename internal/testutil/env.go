package testutil

import (
	"fmt"

	"github.com/hupe1980/meshrl/core"
)

// StubEnv is a deterministic core.Environment: rewards are always 1, the
// episode ends after EpisodeLen steps, observations count global steps.
type StubEnv struct {
	IDs        []string
	ObsDim     int
	ActDim     int
	EpisodeLen int
	HorizonLen int

	Steps    int
	Resets   int
	Seeded   int64
	stepInEp int
}

// NewStubEnv builds an environment with n agents named agent_0..agent_n-1.
func NewStubEnv(n, obsDim, actDim, episodeLen, horizon int) *StubEnv {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("agent_%d", i)
	}
	return &StubEnv{IDs: ids, ObsDim: obsDim, ActDim: actDim, EpisodeLen: episodeLen, HorizonLen: horizon}
}

// Reset starts a new episode.
func (e *StubEnv) Reset() map[string][]float64 {
	e.Resets++
	e.stepInEp = 0
	return e.observations()
}

// Step advances one tick; done fires after EpisodeLen steps.
func (e *StubEnv) Step(map[string][]float64) (map[string][]float64, map[string]float64, bool, map[string]any) {
	e.Steps++
	e.stepInEp++
	rewards := make(map[string]float64, len(e.IDs))
	for _, id := range e.IDs {
		rewards[id] = 1
	}
	done := e.stepInEp >= e.EpisodeLen
	return e.observations(), rewards, done, nil
}

// Seed records the seed value.
func (e *StubEnv) Seed(seed int64) { e.Seeded = seed }

// Agents returns the ordered identity set.
func (e *StubEnv) Agents() []string { return append([]string(nil), e.IDs...) }

// ObservationSpace returns a [-1,1] box of ObsDim dimensions.
func (e *StubEnv) ObservationSpace(string) core.Space { return &FixedSpace{Dims: e.ObsDim} }

// ActionSpace returns a [-1,1] box of ActDim dimensions.
func (e *StubEnv) ActionSpace(string) core.Space { return &FixedSpace{Dims: e.ActDim} }

// Horizon returns the fixed maximum episode length.
func (e *StubEnv) Horizon() int { return e.HorizonLen }

func (e *StubEnv) observations() map[string][]float64 {
	obs := make(map[string][]float64, len(e.IDs))
	for _, id := range e.IDs {
		row := make([]float64, e.ObsDim)
		for i := range row {
			row[i] = float64(e.Steps)
		}
		obs[id] = row
	}
	return obs
}

// FixedSpace is a [-1,1] box whose Sample always returns SampleValue.
type FixedSpace struct {
	Dims        int
	SampleValue float64
	Samples     int
}

// Shape returns the box dimensions.
func (s *FixedSpace) Shape() []int { return []int{s.Dims} }

// Low returns the lower bounds.
func (s *FixedSpace) Low() []float64 { return fill(s.Dims, -1) }

// High returns the upper bounds.
func (s *FixedSpace) High() []float64 { return fill(s.Dims, 1) }

// Sample returns a constant vector and counts the call.
func (s *FixedSpace) Sample() []float64 {
	s.Samples++
	return fill(s.Dims, s.SampleValue)
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var _ core.Environment = (*StubEnv)(nil)
