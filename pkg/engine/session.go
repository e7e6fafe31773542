// pkg/engine/session.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/google/uuid"

	"github.com/opd-ai/go-lander/pkg/event"
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/logging"
	"github.com/opd-ai/go-lander/pkg/metrics"
	"github.com/opd-ai/go-lander/pkg/scenario"
)

// ErrNotReset is returned when a session is ticked before its first reset
var ErrNotReset = errors.New("session has not been reset")

// customScenario labels episodes started from a bare initial-condition vector
const customScenario = "custom"

// SessionStatus tracks where a session is in its episode lifecycle
type SessionStatus int

const (
	SessionStatusIdle SessionStatus = iota
	SessionStatusRunning
	SessionStatusEnded
	SessionStatusFailed
)

// String returns the name of the status
func (s SessionStatus) String() string {
	switch s {
	case SessionStatusIdle:
		return "idle"
	case SessionStatusRunning:
		return "running"
	case SessionStatusEnded:
		return "ended"
	case SessionStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Options configure a session
type Options struct {
	Model            *lander.Model
	Rewards          lander.Rewards
	Registry         *scenario.Registry
	EventBus         *event.Bus
	Logger           *logging.Logger
	DisableAutopilot bool // never let the built-in controller set the throttle
	RecordMetrics    bool
}

// DefaultOptions returns options for a Mars session with default rewards
func DefaultOptions() Options {
	model := lander.NewModel()
	return Options{
		Model:    model,
		Rewards:  lander.DefaultRewards(),
		Registry: scenario.NewRegistry(model.Constants),
	}
}

// Session owns one simulation state and advances it tick by tick.
// A session is safe for use from multiple goroutines, but every tick runs
// to completion before the next one starts. Event handlers run inside the
// tick and must not call back into the session.
type Session struct {
	ID string

	entity ecs.BasicEntity
	world  *ecs.World

	model    *lander.Model
	rewards  lander.Rewards
	registry *scenario.Registry
	bus      *event.Bus
	logger   *logging.Logger
	ctx      context.Context

	disableAutopilot bool
	recordMetrics    bool

	mu          sync.Mutex
	state       lander.State
	status      SessionStatus
	scenarioID  string
	autopilot   bool
	external    bool
	err         error
	totalReward float64
}

// NewSession creates a session. Nil options fields fall back to defaults.
func NewSession(opts Options) (*Session, error) {
	def := DefaultOptions()
	if opts.Model == nil {
		opts.Model = def.Model
	}
	if opts.Registry == nil {
		opts.Registry = scenario.NewRegistry(opts.Model.Constants)
	}
	if opts.Rewards == (lander.Rewards{}) {
		opts.Rewards = def.Rewards
	}
	if opts.EventBus == nil {
		opts.EventBus = event.NewEventBus()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}

	if c := opts.Model.Constants; c.PlanetRadius <= 0 || c.UnloadedMass <= 0 || c.FuelCapacity <= 0 {
		return nil, fmt.Errorf("invalid model constants: radius %v, dry mass %v, fuel capacity %v",
			c.PlanetRadius, c.UnloadedMass, c.FuelCapacity)
	}

	// the model is copied so later edits by the caller cannot leak into a running episode
	model := *opts.Model

	id := uuid.NewString()
	s := &Session{
		ID:               id,
		entity:           ecs.NewBasic(),
		world:            &ecs.World{},
		model:            &model,
		rewards:          opts.Rewards,
		registry:         opts.Registry,
		bus:              opts.EventBus,
		logger:           opts.Logger,
		ctx:              logging.WithSession(context.Background(), id, ""),
		disableAutopilot: opts.DisableAutopilot,
		recordMetrics:    opts.RecordMetrics,
	}
	s.initSystems()
	return s, nil
}

// initSystems registers the per-tick pipeline. Higher priority runs first.
func (s *Session) initSystems() {
	s.world.AddSystem(&IntegrationSystem{session: s})
	s.world.AddSystem(&EventDetectionSystem{session: s})
	s.world.AddSystem(&ControlSystem{session: s})
}

// EventBus returns the bus the session publishes on
func (s *Session) EventBus() *event.Bus {
	return s.bus
}

// Model returns the session's fixed model parameters
func (s *Session) Model() lander.Model {
	return *s.model
}

// EntityID returns the ECS identifier of the simulated lander
func (s *Session) EntityID() uint64 {
	return s.entity.ID()
}

// ResetScenario starts an episode from a registered scenario
func (s *Session) ResetScenario(id string) (lander.Observation, error) {
	sc, err := s.registry.Lookup(id)
	if err != nil {
		return lander.Observation{}, err
	}
	return s.reset(sc.Conditions, sc.ID)
}

// ResetPreset starts an episode from a scenario menu index
func (s *Session) ResetPreset(index int) (lander.Observation, error) {
	sc, err := s.registry.ByIndex(index)
	if err != nil {
		return lander.Observation{}, err
	}
	return s.reset(sc.Conditions, sc.ID)
}

// ResetVector starts an episode from a position₃ velocity₃ orientation₃ vector
func (s *Session) ResetVector(v []float64) (lander.Observation, error) {
	ic, err := scenario.FromVector(v, scenario.VectorTemplate())
	if err != nil {
		return lander.Observation{}, err
	}
	return s.reset(ic, customScenario)
}

// Reset starts an episode from explicit initial conditions
func (s *Session) Reset(ic lander.InitialConditions) (lander.Observation, error) {
	return s.reset(ic, customScenario)
}

func (s *Session) reset(ic lander.InitialConditions, label string) (lander.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next lander.State
	if err := s.model.Reset(&next, ic); err != nil {
		s.logger.Warn(logging.WithSession(s.ctx, s.ID, label), "reset rejected", "error", err.Error())
		return lander.Observation{}, err
	}

	s.state = next
	s.scenarioID = label
	s.ctx = logging.WithSession(context.Background(), s.ID, label)
	s.autopilot = ic.Autopilot && !s.disableAutopilot
	s.external = false
	s.err = nil
	s.totalReward = 0
	s.status = SessionStatusRunning

	s.logger.Info(s.ctx, "episode reset",
		"altitude", s.state.Altitude,
		"step_size", s.state.StepSize,
		"autopilot", s.autopilot,
		"integrator", s.model.Integrator.String(),
	)
	s.bus.Publish(event.NewEpisodeEvent(event.EpisodeReset, s, s.ID, label, 0, 0))

	if s.state.Done() {
		s.finish()
	}
	return lander.Observe(&s.state), nil
}

// Tick advances one step without an external action
func (s *Session) Tick() error {
	return s.Update(nil)
}

// Update advances one step. A non-nil action overrides the autopilot
// throttle for this tick. Ticking a finished episode is a no-op.
func (s *Session) Update(action *lander.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick(action)
}

// Step advances one step with an external action and reports the new
// observation, the reward for the step and whether the episode is over
func (s *Session) Step(action lander.Action) (lander.Observation, float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.tick(&action)
	return lander.Observe(&s.state), s.reward(), s.state.Done(), err
}

func (s *Session) tick(action *lander.Action) error {
	if s.status == SessionStatusIdle {
		return ErrNotReset
	}
	if s.err != nil {
		return s.err
	}
	if s.state.Done() {
		return nil
	}

	s.external = action != nil
	if action != nil {
		s.state.Throttle = lander.ClampThrottle(action.Throttle)
	}

	s.world.Update(float32(s.state.StepSize))

	if s.recordMetrics {
		metrics.IncTicks(s.scenarioID)
	}
	if s.err != nil {
		s.fail()
		return s.err
	}

	s.totalReward += s.reward()
	if s.state.Done() {
		s.finish()
	}
	return nil
}

// Done reports whether the episode has ended (landed or crashed)
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Done()
}

// Reward returns the reward for the current state
func (s *Session) Reward() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reward()
}

func (s *Session) reward() float64 {
	return s.rewards.Evaluate(&s.state, s.model.Constants)
}

// TotalReward returns the sum of step rewards since the last reset
func (s *Session) TotalReward() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalReward
}

// Observation returns the current observation
func (s *Session) Observation() lander.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lander.Observe(&s.state)
}

// State returns a copy of the current state
func (s *Session) State() lander.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status returns the lifecycle status of the session
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the invariant violation that stopped the episode, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Scenario returns the identifier of the running scenario
func (s *Session) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenarioID
}

// Report summarizes the current episode
func (s *Session) Report() lander.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Report(&s.state)
}

// finish records a terminated episode
func (s *Session) finish() {
	s.status = SessionStatusEnded
	report := s.model.Report(&s.state)

	s.logger.Info(s.ctx, "episode ended",
		"outcome", report.Outcome(),
		"time", report.Time,
		"steps", report.Steps,
		"descent_rate", report.DescentRate,
		"ground_speed", report.GroundSpeed,
		"fuel_litres", report.FuelLitres,
	)
	s.bus.Publish(event.NewEpisodeEndedEvent(s, s.ID, s.scenarioID, s.state.Time, s.state.Steps, report.Outcome(), s.totalReward))

	if s.recordMetrics {
		metrics.ObserveEpisode(metrics.EpisodeSummary{
			Scenario:    s.scenarioID,
			Outcome:     report.Outcome(),
			DescentRate: report.DescentRate,
			Fuel:        s.state.Fuel,
			Touchdown:   report.Steps > 0,
		})
	}
}

// fail records an episode aborted by an invariant violation
func (s *Session) fail() {
	s.status = SessionStatusFailed
	s.logger.Error(s.ctx, "tick aborted", s.err,
		"step", s.state.Steps,
	)
	s.bus.Publish(event.NewEpisodeEvent(event.InvariantViolated, s, s.ID, s.scenarioID, s.state.Time, s.state.Steps))
	if s.recordMetrics {
		metrics.IncInvariantViolation()
	}
}
