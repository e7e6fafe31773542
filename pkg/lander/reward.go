package lander

import (
	"fmt"
	"strings"

	"github.com/opd-ai/go-lander/pkg/physics"
	"github.com/opd-ai/go-lander/pkg/validation"
)

// RewardMode selects how non-terminal ticks are rewarded
type RewardMode int

const (
	// RewardTerminal pays a constant step reward until termination
	RewardTerminal RewardMode = iota
	// RewardEnergy pays the negative specific orbital energy each step
	RewardEnergy
)

// String returns the configuration name of the mode
func (m RewardMode) String() string {
	if m == RewardEnergy {
		return "energy"
	}
	return "terminal"
}

// ParseRewardMode converts a configuration name into a RewardMode
func ParseRewardMode(name string) (RewardMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "terminal":
		return RewardTerminal, nil
	case "energy":
		return RewardEnergy, nil
	default:
		return RewardTerminal, fmt.Errorf("unknown reward mode %q", name)
	}
}

// Rewards holds the [landed, crashed, step] reward vector
type Rewards struct {
	Landed  float64
	Crashed float64
	Step    float64
	Mode    RewardMode
}

// DefaultRewards returns the [100, -100, -1] vector
func DefaultRewards() Rewards {
	return Rewards{Landed: 100, Crashed: -100, Step: -1}
}

// RewardsFromVector builds rewards from a three-element vector
func RewardsFromVector(v []float64) (Rewards, error) {
	if err := validation.ValidateRewardVector(v); err != nil {
		return Rewards{}, fmt.Errorf("%w: %v", ErrInvalidRewardVector, err)
	}
	return Rewards{Landed: v[0], Crashed: v[1], Step: v[2]}, nil
}

// Vector returns the rewards as [landed, crashed, step]
func (r Rewards) Vector() []float64 {
	return []float64{r.Landed, r.Crashed, r.Step}
}

// Evaluate returns the reward for the current state
func (r Rewards) Evaluate(s *State, c physics.Constants) float64 {
	switch {
	case s.Crashed:
		return r.Crashed
	case s.Landed:
		return r.Landed
	case r.Mode == RewardEnergy:
		return -c.SpecificEnergy(s.Position, s.Velocity)
	default:
		return r.Step
	}
}
