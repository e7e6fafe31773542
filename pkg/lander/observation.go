package lander

// ObservationSize is the number of fields in a full observation vector
const ObservationSize = 14

// Observation is the externally visible snapshot of a state
type Observation struct {
	Time        float64
	Position    [3]float64
	Velocity    [3]float64
	Orientation [3]float64
	Fuel        float64
	Altitude    float64
	ClimbSpeed  float64
	GroundSpeed float64
}

// Observe captures the observation for s
func Observe(s *State) Observation {
	return Observation{
		Time:        s.Time,
		Position:    [3]float64{s.Position.X, s.Position.Y, s.Position.Z},
		Velocity:    [3]float64{s.Velocity.X, s.Velocity.Y, s.Velocity.Z},
		Orientation: [3]float64{s.Orientation.X, s.Orientation.Y, s.Orientation.Z},
		Fuel:        s.Fuel,
		Altitude:    s.Altitude,
		ClimbSpeed:  s.ClimbSpeed,
		GroundSpeed: s.GroundSpeed,
	}
}

// Vector returns the observation in its fixed field order: time,
// position, velocity, orientation, fuel, altitude, climb and ground speed
func (o Observation) Vector() []float64 {
	v := make([]float64, 0, ObservationSize)
	v = append(v, o.Time)
	v = append(v, o.Position[:]...)
	v = append(v, o.Velocity[:]...)
	v = append(v, o.Orientation[:]...)
	return append(v, o.Fuel, o.Altitude, o.ClimbSpeed, o.GroundSpeed)
}

// Prefix returns the first n fields of the observation vector
func (o Observation) Prefix(n int) []float64 {
	v := o.Vector()
	if n < 0 {
		n = 0
	}
	if n > len(v) {
		n = len(v)
	}
	return v[:n]
}
