package lander

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-lander/pkg/physics"
)

// Sentinel errors returned by the simulator
var (
	ErrInvalidInitialConditions = errors.New("invalid initial conditions")
	ErrInvalidStepSize          = errors.New("invalid step size")
	ErrImpactDegenerate         = errors.New("impact interpolation failed")
	ErrInvalidAction            = errors.New("invalid action")
	ErrInvalidRewardVector      = errors.New("invalid reward vector")
)

// InvariantError reports a physically inconsistent trajectory detected
// during a tick. It matches ErrImpactDegenerate and the underlying cause.
type InvariantError struct {
	Step             int
	Time             float64
	Position         physics.Vector3D
	PreviousPosition physics.Vector3D
	Err              error
}

// Error implements error
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v at step %d (t=%.3f, position=%v, previous=%v): %v",
		ErrImpactDegenerate, e.Step, e.Time, e.Position, e.PreviousPosition, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is
func (e *InvariantError) Unwrap() []error {
	return []error{ErrImpactDegenerate, e.Err}
}
