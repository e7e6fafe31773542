// Package agent connects external decision-makers to a simulation.
// A Policy maps observations to actions; RunEpisode drives an Environment
// with a Policy one synchronous decision per tick.
package agent

import (
	"context"
	"sync"

	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/physics"
)

// Policy decides the next action from the latest observation
type Policy interface {
	Act(ctx context.Context, obs lander.Observation) (lander.Action, error)
}

// Resetter is implemented by policies that carry state across ticks
type Resetter interface {
	Reset()
}

// PolicyFunc adapts a function to the Policy interface
type PolicyFunc func(ctx context.Context, obs lander.Observation) (lander.Action, error)

// Act calls f
func (f PolicyFunc) Act(ctx context.Context, obs lander.Observation) (lander.Action, error) {
	return f(ctx, obs)
}

// AutopilotPolicy applies the built-in descent-rate control law as an
// external policy
type AutopilotPolicy struct {
	Model *lander.Model
}

// NewAutopilotPolicy creates an autopilot policy for a model
func NewAutopilotPolicy(model *lander.Model) *AutopilotPolicy {
	return &AutopilotPolicy{Model: model}
}

// Act implements Policy
func (p *AutopilotPolicy) Act(_ context.Context, obs lander.Observation) (lander.Action, error) {
	pos := physics.Vector3D{X: obs.Position[0], Y: obs.Position[1], Z: obs.Position[2]}
	vel := physics.Vector3D{X: obs.Velocity[0], Y: obs.Velocity[1], Z: obs.Velocity[2]}
	return lander.Action{Throttle: p.Model.AutopilotThrottle(obs.Altitude, pos, vel)}, nil
}

// ConstantPolicy always commands the same throttle
type ConstantPolicy float64

// Act implements Policy
func (p ConstantPolicy) Act(context.Context, lander.Observation) (lander.Action, error) {
	return lander.Action{Throttle: float64(p)}, nil
}

// DefaultRampStep is the throttle increase per tick of a RampPolicy
const DefaultRampStep = 0.00012

// RampPolicy increases the throttle by a fixed amount every tick up to 1
type RampPolicy struct {
	Step float64

	mu       sync.Mutex
	throttle float64
}

// NewRampPolicy creates a ramp policy starting from zero throttle
func NewRampPolicy(step float64) *RampPolicy {
	return &RampPolicy{Step: step}
}

// Act implements Policy
func (p *RampPolicy) Act(context.Context, lander.Observation) (lander.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.throttle = lander.ClampThrottle(p.throttle + p.Step)
	return lander.Action{Throttle: p.throttle}, nil
}

// Reset implements Resetter
func (p *RampPolicy) Reset() {
	p.mu.Lock()
	p.throttle = 0
	p.mu.Unlock()
}

// SymmetricPolicy adapts a model whose output lies in [-1,1] and maps it
// onto the throttle range
type SymmetricPolicy struct {
	Model func(ctx context.Context, obs []float64) ([]float64, error)
}

// Act implements Policy
func (p SymmetricPolicy) Act(ctx context.Context, obs lander.Observation) (lander.Action, error) {
	out, err := p.Model(ctx, obs.Vector())
	if err != nil {
		return lander.Action{}, err
	}
	action, err := lander.ActionFromVector(out)
	if err != nil {
		return lander.Action{}, err
	}
	action.Throttle = lander.FromSymmetric(action.Throttle)
	return action, nil
}
