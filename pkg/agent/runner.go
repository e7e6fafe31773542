package agent

import (
	"context"
	"fmt"

	"github.com/opd-ai/go-lander/pkg/lander"
)

// Environment is the reset/step capability a simulation session offers
type Environment interface {
	Reset(ic lander.InitialConditions) (lander.Observation, error)
	Step(action lander.Action) (lander.Observation, float64, bool, error)
}

// Observer receives every transition of an episode
type Observer func(step int, obs lander.Observation, action lander.Action, reward float64)

// EpisodeResult summarizes one driven episode
type EpisodeResult struct {
	Steps       int
	TotalReward float64
	Done        bool
	Truncated   bool // stopped by the step limit
	Final       lander.Observation
}

// RunEpisode resets env and drives it with policy until the episode ends,
// maxSteps is reached (zero means no limit) or ctx is cancelled
func RunEpisode(ctx context.Context, env Environment, ic lander.InitialConditions, policy Policy, maxSteps int, observe Observer) (EpisodeResult, error) {
	var result EpisodeResult

	obs, err := env.Reset(ic)
	if err != nil {
		return result, fmt.Errorf("reset: %w", err)
	}
	if r, ok := policy.(Resetter); ok {
		r.Reset()
	}
	result.Final = obs

	for maxSteps <= 0 || result.Steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		action, err := policy.Act(ctx, obs)
		if err != nil {
			return result, fmt.Errorf("policy at step %d: %w", result.Steps, err)
		}

		var reward float64
		var done bool
		obs, reward, done, err = env.Step(action)
		if err != nil {
			return result, fmt.Errorf("step %d: %w", result.Steps, err)
		}

		result.Steps++
		result.TotalReward += reward
		result.Final = obs
		if observe != nil {
			observe(result.Steps, obs, action, reward)
		}
		if done {
			result.Done = true
			return result, nil
		}
	}

	result.Truncated = true
	return result, nil
}
