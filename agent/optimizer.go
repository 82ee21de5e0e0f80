package agent

import (
	"fmt"

	"github.com/hupe1980/meshrl/core"
)

// SGD is a momentum optimizer over named parameter slices. One instance
// exists per parameter group (actor, critic, temperature) so each group's
// momentum buffers checkpoint independently.
type SGD struct {
	lr       float64
	momentum float64
	velocity map[string][]float64
	steps    int
}

// NewSGD constructs an optimizer with the given learning rate and momentum.
func NewSGD(lr, momentum float64) *SGD {
	return &SGD{lr: lr, momentum: momentum, velocity: make(map[string][]float64)}
}

// Step applies one update to every parameter named in grads. Velocity
// buffers are allocated lazily on first touch.
func (o *SGD) Step(params map[string][]float64, grads map[string][]float64) {
	for key, grad := range grads {
		p := params[key]
		v, ok := o.velocity[key]
		if !ok {
			v = make([]float64, len(p))
			o.velocity[key] = v
		}
		for i := range p {
			v[i] = o.momentum*v[i] + grad[i]
			p[i] -= o.lr * v[i]
		}
	}
	o.steps++
}

// State exports the step counter and momentum buffers.
func (o *SGD) State() core.OptimState {
	mom := make(map[string][]float64, len(o.velocity))
	for k, v := range o.velocity {
		mom[k] = append([]float64(nil), v...)
	}
	return core.OptimState{Step: o.steps, Momentum: mom}
}

// LoadState restores a snapshot produced by State.
func (o *SGD) LoadState(state core.OptimState) error {
	vel := make(map[string][]float64, len(state.Momentum))
	for k, v := range state.Momentum {
		if v == nil {
			return fmt.Errorf("agent: optimizer momentum %q is nil", k)
		}
		vel[k] = append([]float64(nil), v...)
	}
	o.velocity = vel
	o.steps = state.Step
	return nil
}
