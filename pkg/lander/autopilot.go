package lander

import "github.com/opd-ai/go-lander/pkg/physics"

// Gains are the autopilot control law parameters
type Gains struct {
	Kh    float64 `json:"kh" toml:"kh"`       // altitude gain of the target descent rate
	Kp    float64 `json:"kp" toml:"kp"`       // proportional gain
	Delta float64 `json:"delta" toml:"delta"` // throttle bias
}

// DefaultGains returns the tuned gains for the Mars model
func DefaultGains() Gains {
	return Gains{Kh: 2e-2, Kp: 2.0, Delta: 0.5}
}

// Command is the output of a controller for one tick
type Command struct {
	Throttle        float64
	DeployParachute bool
}

// Autopilot computes the proportional descent-rate controller output.
// The target descent rate is 0.5 m/s plus Kh times the altitude.
func (m *Model) Autopilot(s *State) Command {
	if s.Done() {
		return Command{}
	}
	return Command{
		Throttle:        m.AutopilotThrottle(s.Altitude, s.Position, s.Velocity),
		DeployParachute: m.ShouldDeploy(s),
	}
}

// AutopilotThrottle evaluates the control law from altitude, position and
// velocity alone, so it can also run outside a session
func (m *Model) AutopilotThrottle(altitude float64, position, velocity physics.Vector3D) float64 {
	g := m.Gains
	err := -(0.5 + g.Kh*altitude + velocity.Dot(position.Normalize()))
	p := g.Kp * err

	switch {
	case p <= -g.Delta:
		return 0
	case p < 1-g.Delta:
		return p + g.Delta
	default:
		return 1
	}
}

// ShouldDeploy reports whether the parachute should be opened now: it is
// still packed, would survive, and the lander is slowing down
func (m *Model) ShouldDeploy(s *State) bool {
	if s.Parachute != NotDeployed || s.ParachuteLost {
		return false
	}
	if !m.ParachuteSafe(s) {
		return false
	}
	return m.Acceleration(s).Dot(s.Velocity) < 0
}
