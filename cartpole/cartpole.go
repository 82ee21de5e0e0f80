// Package cartpole implements a multi-agent continuous-control environment:
// one cart-pole per agent identity, each driven by a continuous force in
// [-1, 1]. The episode ends when any cart leaves the track, any pole falls,
// or the fixed horizon is reached — one global termination signal for the
// whole multi-agent step.
package cartpole

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hupe1980/meshrl/core"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	poleLength     = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * poleLength
	forceMax       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0

	obsDim    = 4
	actionDim = 1
)

type cartState struct {
	x, xDot, theta, thetaDot float64
}

func (s cartState) observation() []float64 {
	return []float64{s.x, s.xDot, s.theta, s.thetaDot}
}

func (s cartState) failed() bool {
	return s.x < -xThreshold || s.x > xThreshold ||
		s.theta < -thetaThreshold || s.theta > thetaThreshold
}

// Options configures the environment.
type Options struct {
	Horizon int
	Seed    int64
}

// Env is a core.Environment over N independent carts.
type Env struct {
	agentIDs []string
	states   map[string]cartState
	steps    int
	horizon  int
	rng      *rand.Rand
}

// New constructs an environment with numAgents carts named cart_0..cart_N-1.
func New(numAgents int, optFns ...func(o *Options)) *Env {
	opts := Options{Horizon: 500, Seed: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	ids := make([]string, numAgents)
	for i := range ids {
		ids[i] = fmt.Sprintf("cart_%d", i)
	}
	e := &Env{
		agentIDs: ids,
		states:   make(map[string]cartState, numAgents),
		horizon:  opts.Horizon,
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}
	e.Reset()
	return e
}

// Reset starts a new episode with each cart near the unstable equilibrium.
func (e *Env) Reset() map[string][]float64 {
	obs := make(map[string][]float64, len(e.agentIDs))
	for _, id := range e.agentIDs {
		s := cartState{
			x:        e.rng.Float64()*0.1 - 0.05,
			xDot:     e.rng.Float64()*0.1 - 0.05,
			theta:    e.rng.Float64()*0.1 - 0.05,
			thetaDot: e.rng.Float64()*0.1 - 0.05,
		}
		e.states[id] = s
		obs[id] = s.observation()
	}
	e.steps = 0
	return obs
}

// Step applies one force per cart and advances the physics by one tick.
// Each upright cart earns reward 1; a failed cart earns 0.
func (e *Env) Step(actions map[string][]float64) (map[string][]float64, map[string]float64, bool, map[string]any) {
	obs := make(map[string][]float64, len(e.agentIDs))
	rewards := make(map[string]float64, len(e.agentIDs))

	anyFailed := false
	for _, id := range e.agentIDs {
		force := clamp(actions[id][0], -1, 1) * forceMax
		s := integrate(e.states[id], force)
		e.states[id] = s
		obs[id] = s.observation()
		if s.failed() {
			anyFailed = true
			rewards[id] = 0
		} else {
			rewards[id] = 1
		}
	}
	e.steps++

	done := anyFailed || e.steps >= e.horizon
	info := map[string]any{"steps": e.steps}
	return obs, rewards, done, info
}

func integrate(s cartState, force float64) cartState {
	cosTheta := math.Cos(s.theta)
	sinTheta := math.Sin(s.theta)

	temp := (force + poleMassLength*s.thetaDot*s.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) /
		(poleLength * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	return cartState{
		x:        s.x + tau*s.xDot,
		xDot:     s.xDot + tau*xAcc,
		theta:    s.theta + tau*s.thetaDot,
		thetaDot: s.thetaDot + tau*thetaAcc,
	}
}

// Seed reseeds the simulator's randomness.
func (e *Env) Seed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Agents returns the ordered agent identity set.
func (e *Env) Agents() []string { return append([]string(nil), e.agentIDs...) }

// ObservationSpace returns the 4-dimensional cart state box.
func (e *Env) ObservationSpace(string) core.Space {
	return &boxSpace{
		shape: []int{obsDim},
		low:   []float64{-xThreshold, math.Inf(-1), -thetaThreshold, math.Inf(-1)},
		high:  []float64{xThreshold, math.Inf(1), thetaThreshold, math.Inf(1)},
		rng:   e.rng,
	}
}

// ActionSpace returns the 1-dimensional normalized force box.
func (e *Env) ActionSpace(string) core.Space {
	return &boxSpace{
		shape: []int{actionDim},
		low:   []float64{-1},
		high:  []float64{1},
		rng:   e.rng,
	}
}

// Horizon returns the fixed maximum episode length.
func (e *Env) Horizon() int { return e.horizon }

// Frame returns a renderable snapshot: all cart states concatenated in
// agent-id order.
func (e *Env) Frame() []float64 {
	frame := make([]float64, 0, len(e.agentIDs)*obsDim)
	for _, id := range e.agentIDs {
		frame = append(frame, e.states[id].observation()...)
	}
	return frame
}

type boxSpace struct {
	shape     []int
	low, high []float64
	rng       *rand.Rand
}

func (b *boxSpace) Shape() []int    { return b.shape }
func (b *boxSpace) Low() []float64  { return b.low }
func (b *boxSpace) High() []float64 { return b.high }

// Sample draws uniformly inside the box. Unbounded dimensions sample from
// the unit interval around zero, which only matters for warm-up exploration.
func (b *boxSpace) Sample() []float64 {
	out := make([]float64, len(b.low))
	for i := range out {
		lo, hi := b.low[i], b.high[i]
		if math.IsInf(lo, -1) {
			lo = -1
		}
		if math.IsInf(hi, 1) {
			hi = 1
		}
		out[i] = lo + b.rng.Float64()*(hi-lo)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	_ core.Environment = (*Env)(nil)
	_ core.Framer      = (*Env)(nil)
)
