// Package lander implements the lander dynamics: the force and engine
// models, the per-tick event detection step, the autopilot and the
// observation and reward views of a simulation state.
package lander

import (
	"fmt"

	"github.com/opd-ai/go-lander/pkg/physics"
)

// ParachuteStatus represents the state of the parachute
type ParachuteStatus int

const (
	// NotDeployed is the initial parachute state
	NotDeployed ParachuteStatus = iota
	// Deployed means the parachute is open and producing drag
	Deployed
	// Lost means the parachute was torn off; it cannot be redeployed
	Lost
)

// String returns the name of the parachute state
func (p ParachuteStatus) String() string {
	switch p {
	case NotDeployed:
		return "not_deployed"
	case Deployed:
		return "deployed"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("parachute(%d)", int(p))
	}
}

// EngineState holds the engine response memory carried between ticks
type EngineState struct {
	History    []float64 // transport delay ring buffer
	Pointer    int
	Lagged     float64 // output of the first-order lag filter
	LastUpdate float64 // simulation time of the last filter update
}

// State is the complete mutable state of one simulated lander
type State struct {
	physics.Kinematics

	Orientation      physics.Vector3D // xyz Euler angles in degrees
	ObservedVelocity physics.Vector3D // finite difference of the last two positions

	Fuel     float64 // fraction of capacity in [0,1]
	Throttle float64 // commanded throttle in [0,1]

	Parachute     ParachuteStatus
	ParachuteLost bool

	Altitude    float64
	ClimbSpeed  float64
	GroundSpeed float64

	Landed  bool
	Crashed bool

	Time     float64
	StepSize float64
	Steps    int

	StabilizedAttitude bool
	StabilizedAngle    float64 // tilt from vertical in degrees

	Engine EngineState
}

// Clone returns a deep copy of the state
func (s *State) Clone() State {
	c := *s
	c.Engine.History = append([]float64(nil), s.Engine.History...)
	return c
}

// Done reports whether the episode has terminated
func (s *State) Done() bool {
	return s.Landed || s.Crashed
}

// InitialConditions describe the starting point of an episode
type InitialConditions struct {
	Position           physics.Vector3D
	Velocity           physics.Vector3D
	Orientation        physics.Vector3D
	StepSize           float64
	Parachute          ParachuteStatus
	StabilizedAttitude bool
	StabilizedAngle    float64
	Autopilot          bool
}

// DefaultStepSize is used when initial conditions come from a bare vector
const DefaultStepSize = 0.1
