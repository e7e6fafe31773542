package lander

import (
	"fmt"

	"github.com/opd-ai/go-lander/pkg/validation"
)

// Action is a command from an external decision-maker
type Action struct {
	Throttle float64
	// Axes carries additional attitude commands; the simulator ignores them
	Axes []float64
}

// ActionFromVector builds an action whose first element is the throttle
func ActionFromVector(v []float64) (Action, error) {
	if err := validation.ValidateAction(v); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	a := Action{Throttle: v[0]}
	if len(v) > 1 {
		a.Axes = append([]float64(nil), v[1:]...)
	}
	return a, nil
}

// FromSymmetric maps a model output in [-1,1] onto a throttle in [0,1]
func FromSymmetric(x float64) float64 {
	return ClampThrottle(0.5*x + 0.5)
}

// ToSymmetric maps a throttle in [0,1] onto [-1,1]
func ToSymmetric(throttle float64) float64 {
	return 2*ClampThrottle(throttle) - 1
}
