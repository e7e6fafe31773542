package agent_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-lander/pkg/agent"
	"github.com/opd-ai/go-lander/pkg/engine"
	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/scenario"
)

const maxEpisodeSteps = 200000

func newEnv(agent.Job) (agent.Environment, error) {
	return engine.NewSession(engine.Options{})
}

func descentConditions(t *testing.T) lander.InitialConditions {
	t.Helper()
	reg := scenario.NewRegistry(lander.NewModel().Constants)
	sc, err := reg.Lookup(scenario.Descent10km)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	return sc.Conditions
}

func TestConstantPolicy(t *testing.T) {
	for _, throttle := range []float64{0, 0.25, 1} {
		a, err := agent.ConstantPolicy(throttle).Act(context.Background(), lander.Observation{})
		if err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		if a.Throttle != throttle {
			t.Errorf("Act().Throttle = %v, expected %v", a.Throttle, throttle)
		}
	}
}

func TestRampPolicy(t *testing.T) {
	p := agent.NewRampPolicy(0.4)
	want := []float64{0.4, 0.8, 1, 1}
	for i, w := range want {
		a, _ := p.Act(context.Background(), lander.Observation{})
		if math.Abs(a.Throttle-w) > 1e-12 {
			t.Errorf("step %d: throttle = %v, expected %v", i, a.Throttle, w)
		}
	}

	p.Reset()
	a, _ := p.Act(context.Background(), lander.Observation{})
	if math.Abs(a.Throttle-0.4) > 1e-12 {
		t.Errorf("throttle after Reset() = %v, expected 0.4", a.Throttle)
	}
}

func TestSymmetricPolicy(t *testing.T) {
	tests := []struct {
		name string
		out  []float64
		want float64
	}{
		{"minimum", []float64{-1}, 0},
		{"middle", []float64{0}, 0.5},
		{"maximum", []float64{1}, 1},
		{"clamped", []float64{3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := agent.SymmetricPolicy{Model: func(_ context.Context, obs []float64) ([]float64, error) {
				if len(obs) != lander.ObservationSize {
					t.Errorf("model got %d inputs, expected %d", len(obs), lander.ObservationSize)
				}
				return tt.out, nil
			}}
			a, err := p.Act(context.Background(), lander.Observation{})
			if err != nil {
				t.Fatalf("Act() error = %v", err)
			}
			if math.Abs(a.Throttle-tt.want) > 1e-12 {
				t.Errorf("Act().Throttle = %v, expected %v", a.Throttle, tt.want)
			}
		})
	}

	failing := agent.SymmetricPolicy{Model: func(context.Context, []float64) ([]float64, error) {
		return nil, errors.New("model offline")
	}}
	if _, err := failing.Act(context.Background(), lander.Observation{}); err == nil {
		t.Error("Act() expected error from failing model")
	}
}

func TestRunEpisode_AutopilotPolicyLands(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	policy := agent.NewAutopilotPolicy(lander.NewModel())

	var steps int
	res, err := agent.RunEpisode(context.Background(), env, descentConditions(t), policy, maxEpisodeSteps,
		func(step int, obs lander.Observation, action lander.Action, reward float64) {
			steps = step
			if action.Throttle < 0 || action.Throttle > 1 {
				t.Fatalf("step %d: throttle %v outside [0,1]", step, action.Throttle)
			}
		})
	if err != nil {
		t.Fatalf("RunEpisode() error = %v", err)
	}
	if !res.Done || res.Truncated {
		t.Fatalf("RunEpisode() = %+v, expected finished episode", res)
	}
	if steps != res.Steps {
		t.Errorf("observer saw %d steps, result reports %d", steps, res.Steps)
	}
	if res.Final.Fuel <= 0 {
		t.Errorf("final fuel = %v, expected fuel left", res.Final.Fuel)
	}

	session := env.(*engine.Session)
	if rep := session.Report(); !rep.Landed || rep.Crashed {
		t.Errorf("Report() = %+v, expected safe landing", rep)
	}
	want := float64(res.Steps-1)*-1 + 100
	if math.Abs(res.TotalReward-want) > 1e-9 {
		t.Errorf("TotalReward = %v, expected %v", res.TotalReward, want)
	}
}

func TestRunEpisode_ZeroThrottleCrashes(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	res, err := agent.RunEpisode(context.Background(), env, descentConditions(t), agent.ConstantPolicy(0), maxEpisodeSteps, nil)
	if err != nil {
		t.Fatalf("RunEpisode() error = %v", err)
	}
	if !res.Done {
		t.Fatal("episode did not finish")
	}
	if rep := env.(*engine.Session).Report(); !rep.Crashed {
		t.Errorf("Report().Crashed = false, expected crash with engine off (descent rate %v)", rep.DescentRate)
	}
}

func TestRunEpisode_Truncated(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	res, err := agent.RunEpisode(context.Background(), env, descentConditions(t), agent.ConstantPolicy(0.5), 10, nil)
	if err != nil {
		t.Fatalf("RunEpisode() error = %v", err)
	}
	if res.Steps != 10 || !res.Truncated || res.Done {
		t.Errorf("RunEpisode() = %+v, expected 10 steps truncated", res)
	}
	if math.Abs(res.Final.Time-1.0) > 1e-9 {
		t.Errorf("final time = %v, expected 1", res.Final.Time)
	}
}

func TestRunEpisode_Cancelled(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.RunEpisode(ctx, env, descentConditions(t), agent.ConstantPolicy(0), 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunEpisode() error = %v, expected context.Canceled", err)
	}
}

func TestRunEpisode_InvalidConditions(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	ic := descentConditions(t)
	ic.StepSize = 0

	_, err := agent.RunEpisode(context.Background(), env, ic, agent.ConstantPolicy(0), 0, nil)
	if !errors.Is(err, lander.ErrInvalidStepSize) {
		t.Errorf("RunEpisode() error = %v, expected ErrInvalidStepSize", err)
	}
}

func TestRunEpisode_PolicyError(t *testing.T) {
	env, _ := newEnv(agent.Job{})
	boom := errors.New("boom")
	policy := agent.PolicyFunc(func(context.Context, lander.Observation) (lander.Action, error) {
		return lander.Action{}, boom
	})

	_, err := agent.RunEpisode(context.Background(), env, descentConditions(t), policy, 0, nil)
	if !errors.Is(err, boom) {
		t.Errorf("RunEpisode() error = %v, expected %v", err, boom)
	}
}

func TestGuardedPolicy_FallsBackAndOpens(t *testing.T) {
	calls := 0
	flaky := agent.PolicyFunc(func(context.Context, lander.Observation) (lander.Action, error) {
		calls++
		return lander.Action{}, errors.New("remote policy unavailable")
	})

	settings := agent.BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		MaxConsecutiveFails: 3,
	}
	g := agent.NewGuardedPolicy("test", flaky, agent.ConstantPolicy(0.7), settings, nil)

	for i := 0; i < 5; i++ {
		a, err := g.Act(context.Background(), lander.Observation{})
		if err != nil {
			t.Fatalf("Act() error = %v", err)
		}
		if a.Throttle != 0.7 {
			t.Errorf("Act().Throttle = %v, expected fallback 0.7", a.Throttle)
		}
	}

	if g.State() != gobreaker.StateOpen {
		t.Errorf("State() = %v, expected %v", g.State(), gobreaker.StateOpen)
	}
	if calls != 3 {
		t.Errorf("wrapped policy called %d times, expected 3 before the circuit opened", calls)
	}
	if g.Fallbacks() != 5 {
		t.Errorf("Fallbacks() = %d, expected 5", g.Fallbacks())
	}
}

func TestGuardedPolicy_RecoversAfterTimeout(t *testing.T) {
	fail := true
	policy := agent.PolicyFunc(func(context.Context, lander.Observation) (lander.Action, error) {
		if fail {
			return lander.Action{}, errors.New("down")
		}
		return lander.Action{Throttle: 0.2}, nil
	})

	settings := agent.BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             50 * time.Millisecond,
		MaxConsecutiveFails: 1,
	}
	g := agent.NewGuardedPolicy("recover", policy, agent.ConstantPolicy(0), settings, nil)

	g.Act(context.Background(), lander.Observation{})
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, expected open", g.State())
	}

	fail = false
	time.Sleep(80 * time.Millisecond)

	a, err := g.Act(context.Background(), lander.Observation{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if a.Throttle != 0.2 {
		t.Errorf("Act().Throttle = %v, expected 0.2 from recovered policy", a.Throttle)
	}
	if g.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, expected closed", g.State())
	}
}

func TestGuardedPolicy_DecisionTimeout(t *testing.T) {
	slow := agent.PolicyFunc(func(ctx context.Context, _ lander.Observation) (lander.Action, error) {
		<-ctx.Done()
		return lander.Action{}, ctx.Err()
	})
	settings := agent.DefaultBreakerSettings()
	settings.DecisionTimeout = 10 * time.Millisecond

	g := agent.NewGuardedPolicy("slow", slow, agent.ConstantPolicy(1), settings, nil)
	a, err := g.Act(context.Background(), lander.Observation{})
	if err != nil {
		t.Fatalf("Act() error = %v", err)
	}
	if a.Throttle != 1 {
		t.Errorf("Act().Throttle = %v, expected fallback 1", a.Throttle)
	}
}

func TestGuardedPolicy_NoFallback(t *testing.T) {
	policy := agent.PolicyFunc(func(context.Context, lander.Observation) (lander.Action, error) {
		return lander.Action{}, errors.New("down")
	})
	g := agent.NewGuardedPolicy("bare", policy, nil, agent.DefaultBreakerSettings(), nil)
	if _, err := g.Act(context.Background(), lander.Observation{}); err == nil {
		t.Error("Act() expected error without fallback")
	}
}

func TestBatch_RunsInOrder(t *testing.T) {
	ic := descentConditions(t)
	jobs := []agent.Job{
		{Name: "autopilot", Conditions: ic, Policy: agent.NewAutopilotPolicy(lander.NewModel()), MaxSteps: maxEpisodeSteps},
		{Name: "off", Conditions: ic, Policy: agent.ConstantPolicy(0), MaxSteps: maxEpisodeSteps},
		{Name: "short", Conditions: ic, Policy: agent.ConstantPolicy(0.5), MaxSteps: 5},
		{Name: "bad", Conditions: lander.InitialConditions{}, Policy: agent.ConstantPolicy(0), MaxSteps: 5},
	}

	results := agent.NewBatch(3, newEnv, nil).Run(context.Background(), jobs)
	if len(results) != len(jobs) {
		t.Fatalf("Run() returned %d results, expected %d", len(results), len(jobs))
	}
	for i, r := range results {
		if r.Name != jobs[i].Name {
			t.Errorf("results[%d].Name = %q, expected %q", i, r.Name, jobs[i].Name)
		}
	}

	if results[0].Err != nil || !results[0].Result.Done {
		t.Errorf("autopilot job = %+v, expected finished episode", results[0])
	}
	if results[1].Err != nil || !results[1].Result.Done {
		t.Errorf("engine-off job = %+v, expected finished episode", results[1])
	}
	if results[2].Result.Steps != 5 || !results[2].Result.Truncated {
		t.Errorf("short job = %+v, expected 5 truncated steps", results[2].Result)
	}
	if !errors.Is(results[3].Err, lander.ErrInvalidStepSize) {
		t.Errorf("bad job error = %v, expected ErrInvalidStepSize", results[3].Err)
	}
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []agent.Job{{Name: "a", Conditions: descentConditions(t), Policy: agent.ConstantPolicy(0)}}
	results := agent.NewBatch(1, newEnv, nil).Run(ctx, jobs)
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("Run() error = %v, expected context.Canceled", results[0].Err)
	}
}

func TestBatch_Empty(t *testing.T) {
	if got := agent.NewBatch(0, newEnv, nil).Run(context.Background(), nil); len(got) != 0 {
		t.Errorf("Run(nil) = %v, expected empty", got)
	}
}
