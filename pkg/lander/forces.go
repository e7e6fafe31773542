package lander

import "github.com/opd-ai/go-lander/pkg/physics"

// Gravity returns the gravitational force on a lander of the given mass
func (m *Model) Gravity(position physics.Vector3D, mass float64) physics.Vector3D {
	r := position.Length()
	if r == 0 {
		return physics.Vector3D{}
	}
	return position.Scale(-m.Constants.GM() * mass / (r * r * r))
}

// BodyDrag returns the drag force on the lander body
func (m *Model) BodyDrag(s *State) physics.Vector3D {
	c := m.Constants
	return physics.Drag(c.Density(s.Position), c.DragCoefLander, c.BodyArea(), s.Velocity)
}

// ChuteDrag returns the parachute drag force, zero unless deployed
func (m *Model) ChuteDrag(s *State) physics.Vector3D {
	if s.Parachute != Deployed {
		return physics.Vector3D{}
	}
	c := m.Constants
	return physics.Drag(c.Density(s.Position), c.DragCoefChute, c.ChuteArea(), s.Velocity)
}

// Acceleration returns the net acceleration for the current state.
// It is pure and may be called any number of times per tick.
func (m *Model) Acceleration(s *State) physics.Vector3D {
	mass := m.Constants.Mass(s.Fuel)
	force := m.Gravity(s.Position, mass).
		Add(m.Thrust(s)).
		Add(m.BodyDrag(s)).
		Add(m.ChuteDrag(s))
	return force.Scale(1 / mass)
}

// ParachuteSafe reports whether the parachute would survive at the current
// observed speed and altitude
func (m *Model) ParachuteSafe(s *State) bool {
	c := m.Constants
	speed := s.ObservedVelocity.Length()
	drag := 0.5 * c.DragCoefChute * c.Density(s.Position) * c.ChuteArea() * speed * speed
	if drag > c.MaxParachuteDrag {
		return false
	}
	if speed > c.MaxParachuteSpd && s.Altitude < c.Exosphere {
		return false
	}
	return true
}

// speeds computes climb and ground speed from a velocity and the averaged
// direction of the last two positions
func speeds(velocity, position, previous physics.Vector3D) (climb, ground float64) {
	up := position.Add(previous).Normalize()
	climb = velocity.Dot(up)
	ground = velocity.Sub(up.Scale(climb)).Length()
	return climb, ground
}
