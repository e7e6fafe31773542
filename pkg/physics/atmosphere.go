package physics

import "math"

const (
	surfaceDensity = 0.017
	scaleHeight    = 11000.0
)

// Density returns the atmospheric density (kg/m³) at a position.
// The atmosphere is empty above the exosphere and below the surface.
func (c Constants) Density(position Vector3D) float64 {
	alt := c.Altitude(position)
	if alt > c.Exosphere || alt < 0.0 {
		return 0.0
	}
	return surfaceDensity * math.Exp(-alt/scaleHeight)
}

// Drag returns the quadratic drag force opposing velocity
func Drag(density, coefficient, area float64, velocity Vector3D) Vector3D {
	speed := velocity.Length()
	if speed == 0 || density == 0 {
		return Vector3D{}
	}
	return velocity.Normalize().Scale(-0.5 * density * coefficient * area * speed * speed)
}
