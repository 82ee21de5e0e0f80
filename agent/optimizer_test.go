package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshrl/core"
)

func TestSGD_StepMath(t *testing.T) {
	opt := NewSGD(0.1, 0.5)
	params := map[string][]float64{"w": {1, 2}}
	grads := map[string][]float64{"w": {1, -1}}

	opt.Step(params, grads)
	// v = g, p -= lr*v
	assert.InDelta(t, 0.9, params["w"][0], 1e-12)
	assert.InDelta(t, 2.1, params["w"][1], 1e-12)

	opt.Step(params, grads)
	// v = 0.5*v + g = 1.5, p -= 0.15
	assert.InDelta(t, 0.75, params["w"][0], 1e-12)
	assert.InDelta(t, 2.25, params["w"][1], 1e-12)
}

func TestSGD_StateRoundTrip(t *testing.T) {
	opt := NewSGD(0.1, 0.9)
	params := map[string][]float64{"w": {1}}
	opt.Step(params, map[string][]float64{"w": {0.5}})
	opt.Step(params, map[string][]float64{"w": {0.5}})

	state := opt.State()
	assert.Equal(t, 2, state.Step)

	restored := NewSGD(0.1, 0.9)
	require.NoError(t, restored.LoadState(state))

	p1 := map[string][]float64{"w": {10}}
	p2 := map[string][]float64{"w": {10}}
	opt.Step(p1, map[string][]float64{"w": {0.5}})
	restored.Step(p2, map[string][]float64{"w": {0.5}})
	assert.Equal(t, p1["w"], p2["w"])
}

func TestSGD_StateIsCopied(t *testing.T) {
	opt := NewSGD(0.1, 0.9)
	opt.Step(map[string][]float64{"w": {1}}, map[string][]float64{"w": {1}})

	state := opt.State()
	state.Momentum["w"][0] = 99

	again := opt.State()
	assert.NotEqual(t, 99.0, again.Momentum["w"][0])
}

func TestSGD_LoadStateNilMomentum(t *testing.T) {
	opt := NewSGD(0.1, 0.9)
	err := opt.LoadState(core.OptimState{Step: 1, Momentum: map[string][]float64{"w": nil}})
	assert.Error(t, err)
}
