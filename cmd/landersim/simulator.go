// cmd/landersim/simulator.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/opd-ai/go-lander/pkg/agent"
	"github.com/opd-ai/go-lander/pkg/config"
	"github.com/opd-ai/go-lander/pkg/engine"
	"github.com/opd-ai/go-lander/pkg/event"
	"github.com/opd-ai/go-lander/pkg/health"
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/logging"
	"github.com/opd-ai/go-lander/pkg/scenario"
	"github.com/opd-ai/go-lander/pkg/telemetry"
)

// chart size of the ASCII altitude plot
const (
	asciiWidth  = 72
	asciiHeight = 20
)

// simulator wires configuration, sessions, policies and health checks
type simulator struct {
	cfg      *config.SimulationConfig
	env      *config.EnvironmentConfig
	opts     engine.Options
	logger   *logging.Logger
	health   *health.HealthChecker
	sessions *health.SessionHealthCheck
}

// scenarioEnv resets its session by scenario identifier so episodes are
// labelled with the preset they fly
type scenarioEnv struct {
	*engine.Session
	scenario string
}

func (e scenarioEnv) Reset(ic lander.InitialConditions) (lander.Observation, error) {
	if e.scenario != "" {
		return e.ResetScenario(e.scenario)
	}
	return e.Session.Reset(ic)
}

func newSimulator(cfg *config.SimulationConfig, envConfig *config.EnvironmentConfig, logger *logging.Logger) (*simulator, error) {
	opts, err := cfg.SessionOptions(logger, event.NewEventBus())
	if err != nil {
		return nil, err
	}
	opts.RecordMetrics = envConfig.MetricsAddr != ""

	s := &simulator{
		cfg:      cfg,
		env:      envConfig,
		opts:     opts,
		logger:   logger,
		health:   health.NewHealthChecker(),
		sessions: health.NewSessionHealthCheck(),
	}
	s.health.AddCheck(s.sessions)
	s.health.AddCheck(health.NewMemoryHealthCheck(maxMemoryMB, nil))
	return s, nil
}

// newPolicy builds a named policy guarded by a circuit breaker that falls
// back to the autopilot
func (s *simulator) newPolicy(name string) (agent.Policy, error) {
	var p agent.Policy
	switch name {
	case config.PolicyAutopilot:
		p = agent.NewAutopilotPolicy(s.opts.Model)
	case config.PolicyConstant:
		p = agent.ConstantPolicy(s.cfg.Throttle)
	case config.PolicyRamp:
		p = agent.NewRampPolicy(agent.DefaultRampStep)
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}

	guarded := agent.NewGuardedPolicy(name, p, agent.NewAutopilotPolicy(s.opts.Model), s.env.BreakerSettings(), s.logger)
	s.health.AddCheck(health.NewPolicyHealthCheck(name, guarded))
	return guarded, nil
}

func (s *simulator) newSession(scenarioID string) (scenarioEnv, error) {
	session, err := engine.NewSession(s.opts)
	if err != nil {
		return scenarioEnv{}, err
	}
	s.sessions.Watch(session.ID, session)
	return scenarioEnv{Session: session, scenario: scenarioID}, nil
}

// conditions resolves the initial conditions chosen on the command line
func (s *simulator) conditions(o options) (lander.InitialConditions, string, error) {
	if o.initVector != "" {
		v, err := parseVector(o.initVector)
		if err != nil {
			return lander.InitialConditions{}, "", err
		}
		ic, err := scenario.FromVector(v, scenario.VectorTemplate())
		return ic, "", err
	}

	var sc scenario.Scenario
	var err error
	if o.preset >= 0 {
		sc, err = s.opts.Registry.ByIndex(o.preset)
	} else {
		sc, err = s.opts.Registry.Lookup(s.cfg.Scenario)
	}
	return sc.Conditions, sc.ID, err
}

// fly runs one episode with the named policy and records its trace
func (s *simulator) fly(ctx context.Context, policyName string, ic lander.InitialConditions, scenarioID string) (lander.Report, telemetry.Trace, error) {
	policy, err := s.newPolicy(policyName)
	if err != nil {
		return lander.Report{}, telemetry.Trace{}, err
	}
	env, err := s.newSession(scenarioID)
	if err != nil {
		return lander.Report{}, telemetry.Trace{}, err
	}

	recorder := telemetry.NewRecorder(policyName, s.cfg.Telemetry.SampleInterval)
	recorder.Follow(env)
	recorder.Attach(s.opts.EventBus)
	defer recorder.Detach()

	res, err := agent.RunEpisode(ctx, env, ic, policy, s.cfg.MaxSteps, recorder.Observe)
	if err != nil {
		return env.Report(), recorder.Trace(), err
	}
	if res.Truncated {
		s.logger.Warn(ctx, "episode stopped at step limit", "policy", policyName, "steps", res.Steps)
	}
	return env.Report(), recorder.Trace(), nil
}

func (s *simulator) runSingle(ctx context.Context, w io.Writer, o options) error {
	ic, scenarioID, err := s.conditions(o)
	if err != nil {
		return err
	}

	policies := []string{s.cfg.Policy}
	if o.compare != "" {
		policies = append(policies, o.compare)
	}

	var traces []telemetry.Trace
	for _, name := range policies {
		report, trace, err := s.fly(ctx, name, ic, scenarioID)
		if err != nil {
			return logging.WrapError(err, "policy %s", name)
		}
		traces = append(traces, trace)
		if err := telemetry.WriteReport(w, name, report); err != nil {
			return err
		}
	}

	return s.output(w, traces)
}

func (s *simulator) runBatch(ctx context.Context, w io.Writer) error {
	list := s.opts.Registry.List()
	jobs := make([]agent.Job, 0, len(list))
	recorders := make([]*telemetry.Recorder, 0, len(list))
	byName := make(map[string]*telemetry.Recorder, len(list))
	for _, sc := range list {
		policy, err := s.newPolicy(s.cfg.Policy)
		if err != nil {
			return err
		}
		rec := telemetry.NewRecorder(sc.ID, s.cfg.Telemetry.SampleInterval)
		recorders = append(recorders, rec)
		byName[sc.ID] = rec
		jobs = append(jobs, agent.Job{
			Name:       sc.ID,
			Conditions: sc.Conditions,
			Policy:     policy,
			MaxSteps:   s.cfg.MaxSteps,
			Observer:   rec.Observe,
		})
	}

	var mu sync.Mutex
	sessions := make(map[string]*engine.Session, len(jobs))
	newEnv := func(job agent.Job) (agent.Environment, error) {
		env, err := s.newSession(job.Name)
		if err != nil {
			return nil, err
		}
		byName[job.Name].Follow(env)
		mu.Lock()
		sessions[job.Name] = env.Session
		mu.Unlock()
		return env, nil
	}

	results := agent.NewBatch(s.env.Workers, newEnv, s.logger).Run(ctx, jobs)

	var errs []error
	traces := make([]telemetry.Trace, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			errs = append(errs, logging.WrapError(r.Err, "scenario %s", r.Name))
			continue
		}
		if err := telemetry.WriteReport(w, r.Name, sessions[r.Name].Report()); err != nil {
			return err
		}
		traces = append(traces, recorders[i].Trace())
	}

	if err := s.output(w, traces); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// output renders the optional ASCII chart and PNG file
func (s *simulator) output(w io.Writer, traces []telemetry.Trace) error {
	if len(traces) == 0 {
		return nil
	}
	if s.cfg.Telemetry.ASCII {
		if err := telemetry.NewTerminalRenderer(asciiWidth, asciiHeight).Render(w, traces...); err != nil {
			return err
		}
	}
	if path := s.cfg.Telemetry.PlotPath; path != "" {
		if err := telemetry.PlotTraces(path, traces...); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(w, "chart written to %s\n", path)
	}
	return nil
}

func (s *simulator) listScenarios(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tDESCRIPTION")
	for _, sc := range s.opts.Registry.List() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", sc.Index, sc.ID, sc.Description)
	}
	tw.Flush()
}
