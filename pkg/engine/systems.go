// pkg/engine/systems.go
package engine

import (
	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-lander/pkg/event"
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/metrics"
)

// System priorities; the world runs higher priorities first
const (
	integrationPriority = 30
	detectionPriority   = 20
	controlPriority     = 10
)

// IntegrationSystem advances the engine and integrates position and velocity
type IntegrationSystem struct {
	session *Session
}

// Priority satisfies ecs.Prioritizer
func (sys *IntegrationSystem) Priority() int { return integrationPriority }

// Remove satisfies the ecs.System interface
func (sys *IntegrationSystem) Remove(ecs.BasicEntity) {}

// Update satisfies the ecs.System interface
func (sys *IntegrationSystem) Update(float32) {
	s := sys.session
	if s.halted() {
		return
	}
	s.model.Integrate(&s.state)
}

// EventDetectionSystem derives altitude and speeds, resolves touchdown,
// burns fuel and checks the parachute
type EventDetectionSystem struct {
	session *Session
}

// Priority satisfies ecs.Prioritizer
func (sys *EventDetectionSystem) Priority() int { return detectionPriority }

// Remove satisfies the ecs.System interface
func (sys *EventDetectionSystem) Remove(ecs.BasicEntity) {}

// Update satisfies the ecs.System interface
func (sys *EventDetectionSystem) Update(float32) {
	s := sys.session
	if s.halted() {
		return
	}

	events, err := s.model.Detect(&s.state)
	if err != nil {
		s.err = err
		return
	}
	s.publishEvents(events)
}

// ControlSystem runs the autopilot, parachute logic and attitude
// stabilization. Its output is consumed by the next tick.
type ControlSystem struct {
	session *Session
}

// Priority satisfies ecs.Prioritizer
func (sys *ControlSystem) Priority() int { return controlPriority }

// Remove satisfies the ecs.System interface
func (sys *ControlSystem) Remove(ecs.BasicEntity) {}

// Update satisfies the ecs.System interface
func (sys *ControlSystem) Update(float32) {
	s := sys.session
	if s.halted() {
		return
	}

	cmd := lander.Command{Throttle: s.state.Throttle}
	if s.autopilot && !s.external {
		cmd = s.model.Autopilot(&s.state)
		s.logger.Debug(s.ctx, "autopilot",
			"step", s.state.Steps,
			"altitude", s.state.Altitude,
			"climb_speed", s.state.ClimbSpeed,
			"throttle", cmd.Throttle,
		)
	} else if s.external {
		cmd.DeployParachute = s.model.ShouldDeploy(&s.state)
	}

	before := s.state.Parachute
	s.model.Control(&s.state, cmd, s.external)
	if before == lander.NotDeployed && s.state.Parachute == lander.Deployed {
		s.logger.Info(s.ctx, "parachute deployed", "step", s.state.Steps, "altitude", s.state.Altitude)
		s.publish(event.ParachuteDeployed)
		if s.recordMetrics {
			metrics.IncParachute("deployed")
		}
	}
}

// halted reports whether the pipeline should skip the rest of a tick
func (s *Session) halted() bool {
	return s.err != nil || s.state.Done()
}

func (s *Session) publish(t event.Type) {
	s.bus.Publish(event.NewEpisodeEvent(t, s, s.ID, s.scenarioID, s.state.Time, s.state.Steps))
}

func (s *Session) publishEvents(events lander.Events) {
	if events.Has(lander.EventParachuteLost) {
		s.logger.Warn(s.ctx, "parachute lost", "step", s.state.Steps, "altitude", s.state.Altitude)
		s.publish(event.ParachuteLost)
		if s.recordMetrics {
			metrics.IncParachute("lost")
		}
	}
	if events.Has(lander.EventFuelExhausted) {
		s.logger.Warn(s.ctx, "fuel exhausted", "step", s.state.Steps, "altitude", s.state.Altitude)
		s.publish(event.FuelExhausted)
	}
	if events.Has(lander.EventLanded) {
		t := event.Landed
		if events.Has(lander.EventCrashed) {
			t = event.Crashed
		}
		s.bus.Publish(event.NewTouchdownEvent(t, s, s.ID, s.scenarioID, s.state.Time, s.state.Steps,
			-s.state.ClimbSpeed, s.state.GroundSpeed, s.state.Fuel))
	}
}
