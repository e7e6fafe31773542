package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-lander/pkg/lander"
	"github.com/opd-ai/go-lander/pkg/logging"
)

// BreakerSettings configure the circuit breaker around an external policy
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	MaxConsecutiveFails uint32
	DecisionTimeout     time.Duration // per-call deadline; zero means none
}

// DefaultBreakerSettings returns conservative breaker parameters
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		MaxConsecutiveFails: 5,
		DecisionTimeout:     time.Second,
	}
}

// GuardedPolicy runs an external policy through a circuit breaker. When the
// policy fails or the circuit is open the fallback decides instead, so an
// unreliable decision-maker never stalls the simulation.
type GuardedPolicy struct {
	policy   Policy
	fallback Policy
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *logging.Logger

	fallbacks int
}

// NewGuardedPolicy wraps policy. A nil logger discards output.
func NewGuardedPolicy(name string, policy, fallback Policy, cfg BreakerSettings, logger *logging.Logger) *GuardedPolicy {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxConsecutiveFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &GuardedPolicy{
		policy:   policy,
		fallback: fallback,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		timeout:  cfg.DecisionTimeout,
		logger:   logger,
	}
}

// Act implements Policy
func (g *GuardedPolicy) Act(ctx context.Context, obs lander.Observation) (lander.Action, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return g.policy.Act(callCtx, obs)
	})
	if err == nil {
		return result.(lander.Action), nil
	}

	g.fallbacks++
	g.logger.Warn(ctx, "policy failed, using fallback",
		"error", err.Error(),
		"state", g.breaker.State().String(),
		"time", obs.Time,
	)
	if g.fallback == nil {
		return lander.Action{}, fmt.Errorf("circuit breaker: %w", err)
	}
	return g.fallback.Act(ctx, obs)
}

// Reset implements Resetter by forwarding to the wrapped policies
func (g *GuardedPolicy) Reset() {
	for _, p := range []Policy{g.policy, g.fallback} {
		if r, ok := p.(Resetter); ok {
			r.Reset()
		}
	}
}

// State returns the current state of the circuit breaker
func (g *GuardedPolicy) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the breaker's failure/success counts
func (g *GuardedPolicy) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

// Fallbacks returns how many decisions were taken by the fallback
func (g *GuardedPolicy) Fallbacks() int {
	return g.fallbacks
}
