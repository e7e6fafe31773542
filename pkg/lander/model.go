package lander

import (
	"fmt"

	"github.com/opd-ai/go-lander/pkg/physics"
	"github.com/opd-ai/go-lander/pkg/validation"
)

// Model bundles the fixed parameters that drive a simulation
type Model struct {
	Constants  physics.Constants
	Integrator physics.Scheme
	Gains      Gains
}

// NewModel creates a model with Mars constants, Verlet integration and
// the default autopilot gains
func NewModel() *Model {
	return &Model{
		Constants:  physics.MarsConstants(),
		Integrator: physics.Verlet,
		Gains:      DefaultGains(),
	}
}

// Reset initializes s from a set of initial conditions. Invalid vectors or
// step sizes are rejected before s is touched.
func (m *Model) Reset(s *State, ic InitialConditions) error {
	if err := validation.ValidateStepSize(ic.StepSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStepSize, err)
	}
	for _, v := range []physics.Vector3D{ic.Position, ic.Velocity, ic.Orientation} {
		if !v.IsFinite() {
			return fmt.Errorf("%w: non-finite component in %v", ErrInvalidInitialConditions, v)
		}
	}
	if ic.Position.Length() == 0 {
		return fmt.Errorf("%w: position at planet centre", ErrInvalidInitialConditions)
	}

	*s = State{
		Kinematics: physics.Kinematics{
			Position: ic.Position,
			Velocity: ic.Velocity,
		},
		Orientation:        ic.Orientation,
		Fuel:               1.0,
		Parachute:          ic.Parachute,
		StepSize:           ic.StepSize,
		StabilizedAttitude: ic.StabilizedAttitude,
		StabilizedAngle:    ic.StabilizedAngle,
	}

	s.Altitude = m.Constants.Altitude(s.Position)
	if s.Altitude < m.Constants.LanderSize/2 {
		s.Landed = true
		s.Velocity = physics.Vector3D{}
	}

	s.ObservedVelocity = s.Velocity
	s.PreviousPosition = s.Position.Sub(s.Velocity.Scale(s.StepSize))
	s.ClimbSpeed, s.GroundSpeed = speeds(s.ObservedVelocity, s.Position, s.PreviousPosition)

	resetEngine(&s.Engine, m.Constants.DelayBufferLength(s.StepSize), s.Throttle)
	return nil
}

// Integrate advances position and velocity by one step. The engine is
// advanced first so the throttle is normalized before anything reads it.
func (m *Model) Integrate(s *State) {
	m.AdvanceEngine(s)
	accel := m.Acceleration(s)
	m.Integrator.Step(&s.Kinematics, accel, s.StepSize, s.Time == 0)
}

// Control applies a controller command to the state. The throttle is only
// taken from cmd when external is false and is held at 0 once the tank is
// empty; parachute deployment follows cmd either way. Terminal states are
// left untouched.
func (m *Model) Control(s *State, cmd Command, external bool) {
	if s.Done() {
		return
	}
	if !external {
		s.Throttle = ClampThrottle(cmd.Throttle)
	}
	if s.Fuel == 0 {
		s.Throttle = 0
	}
	if cmd.DeployParachute && s.Parachute == NotDeployed && !s.ParachuteLost {
		s.Parachute = Deployed
	}
	if s.StabilizedAttitude {
		s.Orientation = physics.StabilizedOrientation(s.Position, s.StabilizedAngle)
	}
}
