// pkg/physics/collision.go
package physics

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoCrossing is returned when a path segment never reaches the impact sphere
var ErrNoCrossing = errors.New("segment does not cross impact sphere")

// Segment is the straight path travelled during one step
type Segment struct {
	From Vector3D
	To   Vector3D
}

// ImpactFraction solves |From + μ·(To−From)|² = radius² for the inward
// crossing and returns μ. The inward root is (−b−√D)/(2a); it lies in
// [0,1] whenever From is outside the sphere and To is inside it.
// A negative discriminant or a zero-length segment yields ErrNoCrossing,
// with the discriminant reported in the error.
func ImpactFraction(seg Segment, radius float64) (float64, error) {
	d := seg.To.Sub(seg.From)
	a := d.LengthSquared()
	b := 2.0 * seg.From.Dot(d)
	c := seg.From.LengthSquared() - radius*radius

	if a == 0 {
		return 0, fmt.Errorf("zero-length segment at %v: %w", seg.From, ErrNoCrossing)
	}

	disc := b*b - 4.0*a*c
	if disc < 0 {
		return 0, fmt.Errorf("discriminant %g: %w", disc, ErrNoCrossing)
	}

	return (-b - math.Sqrt(disc)) / (2.0 * a), nil
}

// Interpolate returns the point a fraction μ along the segment
func (s Segment) Interpolate(mu float64) Vector3D {
	return s.From.Add(s.To.Sub(s.From).Scale(mu))
}

// InsideSphere reports whether a point is closer to the origin than radius
func InsideSphere(p Vector3D, radius float64) bool {
	return p.LengthSquared() < radius*radius
}
