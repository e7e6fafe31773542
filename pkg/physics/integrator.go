package physics

import (
	"fmt"
	"strings"
)

// Scheme identifies a time-stepping method
type Scheme int

const (
	// Verlet is the two-step position-based scheme
	Verlet Scheme = iota
	// Euler is the explicit first-order scheme
	Euler
)

// String returns the configuration name of the scheme
func (s Scheme) String() string {
	switch s {
	case Verlet:
		return "verlet"
	case Euler:
		return "euler"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme converts a configuration name into a Scheme
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "verlet":
		return Verlet, nil
	case "euler":
		return Euler, nil
	default:
		return Verlet, fmt.Errorf("unknown integrator %q", name)
	}
}

// Kinematics is the part of the lander state advanced by an integrator
type Kinematics struct {
	Position         Vector3D
	PreviousPosition Vector3D
	Velocity         Vector3D
}

// Step advances k by dt using an acceleration evaluated at the pre-step
// state. The first step of an episode is always explicit first-order so
// that PreviousPosition is seeded with the starting position.
func (s Scheme) Step(k *Kinematics, accel Vector3D, dt float64, first bool) {
	if first || s == Euler {
		eulerStep(k, accel, dt)
		return
	}
	verletStep(k, accel, dt)
}

func eulerStep(k *Kinematics, accel Vector3D, dt float64) {
	k.PreviousPosition = k.Position
	k.Position = k.Position.Add(k.Velocity.Scale(dt))
	k.Velocity = k.Velocity.Add(accel.Scale(dt))
}

func verletStep(k *Kinematics, accel Vector3D, dt float64) {
	next := k.Position.Scale(2).Sub(k.PreviousPosition).Add(accel.Scale(dt * dt))
	if dt > 0 {
		k.Velocity = next.Sub(k.PreviousPosition).Scale(1 / (2 * dt))
	} else {
		k.Velocity = Vector3D{}
	}
	k.PreviousPosition = k.Position
	k.Position = next
}

// FiniteDifference returns (current−previous)/dt, or zero when dt is zero
func FiniteDifference(current, previous Vector3D, dt float64) Vector3D {
	if dt == 0 {
		return Vector3D{}
	}
	return current.Sub(previous).Scale(1 / dt)
}
