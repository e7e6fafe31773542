package lander

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-lander/pkg/physics"
)

// Events is a set of discrete occurrences detected during one tick
type Events uint8

const (
	// EventLanded is set on the tick the lander reaches the surface
	EventLanded Events = 1 << iota
	// EventCrashed is set when the touchdown exceeded the impact limits
	EventCrashed
	// EventFuelExhausted is set on the tick the tank runs dry
	EventFuelExhausted
	// EventParachuteLost is set when a deployed parachute fails
	EventParachuteLost
)

// Has reports whether every event in other is set
func (e Events) Has(other Events) bool {
	return e&other == other
}

// muTolerance bounds round-off in the impact fraction before it is clamped
const muTolerance = 1e-9

// Detect updates the derived quantities after integration, resolves a
// touchdown to the exact impact point and time, burns fuel and rechecks
// parachute safety.
func (m *Model) Detect(s *State) (Events, error) {
	var events Events
	c := m.Constants
	dt := s.StepSize

	s.Steps++
	s.Time += dt
	s.Altitude = c.Altitude(s.Position)

	s.ObservedVelocity = physics.FiniteDifference(s.Position, s.PreviousPosition, dt)
	s.ClimbSpeed, s.GroundSpeed = speeds(s.ObservedVelocity, s.Position, s.PreviousPosition)

	if s.Altitude < c.LanderSize/2 {
		if err := m.resolveImpact(s); err != nil {
			return events, err
		}
		events |= EventLanded
		if s.Crashed {
			events |= EventCrashed
		}
	}

	hadFuel := s.Fuel > 0
	s.Throttle = ClampThrottle(s.Throttle)
	s.Fuel -= dt * (c.FuelRateAtMax * s.Throttle) / c.FuelCapacity
	if s.Fuel < 0 {
		s.Fuel = 0
	}
	if s.Landed || s.Fuel == 0 {
		s.Throttle = 0
	}
	if hadFuel && s.Fuel == 0 {
		events |= EventFuelExhausted
	}

	if s.Parachute == Deployed && (!m.ParachuteSafe(s) || s.ParachuteLost) {
		s.Parachute = Lost
		s.ParachuteLost = true
		events |= EventParachuteLost
	}

	return events, nil
}

func (m *Model) resolveImpact(s *State) error {
	c := m.Constants
	seg := physics.Segment{From: s.PreviousPosition, To: s.Position}

	mu, err := physics.ImpactFraction(seg, c.ImpactRadius())
	if err == nil && (mu < -muTolerance || mu > 1+muTolerance) {
		err = fmt.Errorf("impact fraction %g outside [0,1]", mu)
	}
	if err != nil {
		return &InvariantError{
			Step:             s.Steps,
			Time:             s.Time,
			Position:         s.Position,
			PreviousPosition: s.PreviousPosition,
			Err:              err,
		}
	}
	mu = math.Min(1, math.Max(0, mu))

	s.Position = seg.Interpolate(mu)
	s.Time -= (1 - mu) * s.StepSize
	s.Altitude = c.LanderSize / 2
	s.Landed = true
	if math.Abs(s.ClimbSpeed) > c.MaxImpactDescentRate || math.Abs(s.GroundSpeed) > c.MaxImpactGroundSpeed {
		s.Crashed = true
	}
	s.ObservedVelocity = physics.Vector3D{}
	return nil
}
