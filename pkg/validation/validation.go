// Package validation provides input validation for simulation inputs:
// initial-condition vectors, step sizes, actions, reward vectors and
// scenario identifiers.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Input size limits
const (
	InitialVectorLen = 9
	RewardVectorLen  = 3
	MaxScenarioIDLen = 64
	MaxConfigSize    = 1024 * 1024 // 1MB max config file
)

// Scenario identifiers are lower-case words separated by hyphens or underscores
var validScenarioID = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)

// ValidateInitialVector checks a position₃ velocity₃ orientation₃ vector
func ValidateInitialVector(v []float64) error {
	if len(v) != InitialVectorLen {
		return fmt.Errorf("initial condition vector has %d elements (want %d)", len(v), InitialVectorLen)
	}
	if i := firstNonFinite(v); i >= 0 {
		return fmt.Errorf("initial condition element %d is not finite: %v", i, v[i])
	}
	return nil
}

// ValidateStepSize checks that a step size is positive and finite
func ValidateStepSize(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("step size is not finite: %v", dt)
	}
	if dt <= 0 {
		return fmt.Errorf("step size must be positive: %v", dt)
	}
	return nil
}

// ValidateAction checks an action vector; the first element is the throttle
// and any further elements are reserved for multi-axis commands.
// Out-of-range throttle values are accepted and clamped by the simulator.
func ValidateAction(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("action vector cannot be empty")
	}
	if i := firstNonFinite(v); i >= 0 {
		return fmt.Errorf("action element %d is not finite: %v", i, v[i])
	}
	return nil
}

// ValidateRewardVector checks a [landed, crashed, step] reward vector
func ValidateRewardVector(v []float64) error {
	if len(v) != RewardVectorLen {
		return fmt.Errorf("reward vector has %d elements (want %d)", len(v), RewardVectorLen)
	}
	if i := firstNonFinite(v); i >= 0 {
		return fmt.Errorf("reward element %d is not finite: %v", i, v[i])
	}
	return nil
}

// ValidateScenarioID validates and normalizes a scenario identifier
func ValidateScenarioID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", fmt.Errorf("scenario id cannot be empty")
	}
	if len(id) > MaxScenarioIDLen {
		return "", fmt.Errorf("scenario id too long: %d characters (max %d)", len(id), MaxScenarioIDLen)
	}
	if !validScenarioID.MatchString(id) {
		return "", fmt.Errorf("scenario id contains invalid characters: %q", id)
	}
	return id, nil
}

// ValidateConfigSize rejects configuration payloads that are implausibly large
func ValidateConfigSize(n int) error {
	if n > MaxConfigSize {
		return fmt.Errorf("config too large: %d bytes (max %d)", n, MaxConfigSize)
	}
	return nil
}

func firstNonFinite(v []float64) int {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}
