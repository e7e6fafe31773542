package lander

// Report summarizes the final condition of an episode
type Report struct {
	Landed      bool
	Crashed     bool
	Steps       int
	Time        float64
	Altitude    float64
	GroundSpeed float64
	DescentRate float64
	FuelLitres  float64
	Parachute   ParachuteStatus

	// ThrottleSetting is the throttle as shown on the control panel, in
	// steps of 1/ThrottleGranularity
	ThrottleSetting     int
	ThrottleGranularity int
}

// Report builds the summary of s
func (m *Model) Report(s *State) Report {
	return Report{
		Landed:      s.Landed,
		Crashed:     s.Crashed,
		Steps:       s.Steps,
		Time:        s.Time,
		Altitude:    s.Altitude,
		GroundSpeed: s.GroundSpeed,
		DescentRate: -s.ClimbSpeed,
		FuelLitres:  s.Fuel * m.Constants.FuelCapacity,
		Parachute:   s.Parachute,

		ThrottleSetting:     ThrottleSetting(s.Throttle, m.Constants.ThrottleGranularity),
		ThrottleGranularity: m.Constants.ThrottleGranularity,
	}
}

// Outcome returns a short label for the episode result
func (r Report) Outcome() string {
	switch {
	case r.Crashed:
		return "crashed"
	case r.Landed:
		return "landed"
	default:
		return "in_flight"
	}
}
