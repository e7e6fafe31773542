package lander

import (
	"math"

	"github.com/opd-ai/go-lander/pkg/physics"
)

// ClampThrottle limits a throttle command to [0,1]
func ClampThrottle(throttle float64) float64 {
	if math.IsNaN(throttle) || throttle < 0 {
		return 0
	}
	if throttle > 1 {
		return 1
	}
	return throttle
}

// ThrottleSetting quantizes the throttle to the control panel granularity
func ThrottleSetting(throttle float64, granularity int) int {
	return int(ClampThrottle(throttle)*float64(granularity) + 0.5)
}

// resetEngine sizes the delay buffer for a step size and fills it with
// the current throttle
func resetEngine(e *EngineState, length int, throttle float64) {
	e.History = make([]float64, length)
	for i := range e.History {
		e.History[i] = throttle
	}
	e.Pointer = 0
	e.Lagged = 0
	e.LastUpdate = -1
}

// AdvanceEngine normalizes the throttle command and pushes it through the
// transport delay and lag filter. It updates at most once per simulation
// time, so repeated calls within a tick are harmless.
func (m *Model) AdvanceEngine(s *State) {
	s.Throttle = ClampThrottle(s.Throttle)
	if s.Landed || s.Fuel == 0 {
		s.Throttle = 0
	}

	e := &s.Engine
	if s.Time != e.LastUpdate {
		delayed := s.Throttle
		if n := len(e.History); n > 0 {
			delayed = e.History[e.Pointer]
			e.History[e.Pointer] = s.Throttle
			e.Pointer = (e.Pointer + 1) % n
		}

		if s.Time < e.LastUpdate {
			e.Lagged = 0
		}

		k := 0.0
		if m.Constants.EngineLag > 0 {
			k = math.Exp(-s.StepSize / m.Constants.EngineLag)
		}
		e.Lagged = k*e.Lagged + (1-k)*delayed
	}
	e.LastUpdate = s.Time
}

// Thrust returns the world-frame thrust produced by the engine's current
// output. It does not mutate the state.
func (m *Model) Thrust(s *State) physics.Vector3D {
	magnitude := s.Engine.Lagged * m.Constants.MaxThrust()
	if magnitude == 0 {
		return physics.Vector3D{}
	}
	if s.StabilizedAttitude && s.StabilizedAngle == 0 {
		return s.Position.Normalize().Scale(magnitude)
	}
	return physics.BodyToWorld(s.Orientation, physics.Vector3D{Z: magnitude})
}
