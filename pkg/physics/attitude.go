package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const smallNum = 1e-7

// EulerToMatrix builds the rotation matrix for xyz Euler angles in degrees.
// The result is Rz·Ry·Rx, so the x rotation is applied first.
func EulerToMatrix(orientation Vector3D) mgl64.Mat3 {
	rx := mgl64.Rotate3DX(mgl64.DegToRad(orientation.X))
	ry := mgl64.Rotate3DY(mgl64.DegToRad(orientation.Y))
	rz := mgl64.Rotate3DZ(mgl64.DegToRad(orientation.Z))
	return rz.Mul3(ry).Mul3(rx)
}

// MatrixToEuler extracts xyz Euler angles in degrees from a rotation matrix
func MatrixToEuler(m mgl64.Mat3) Vector3D {
	cy := math.Hypot(m.At(0, 0), m.At(1, 0))
	var x, y, z float64
	if cy > smallNum {
		x = math.Atan2(m.At(2, 1), m.At(2, 2))
		y = math.Atan2(-m.At(2, 0), cy)
		z = math.Atan2(m.At(1, 0), m.At(0, 0))
	} else {
		x = math.Atan2(-m.At(1, 2), m.At(1, 1))
		y = math.Atan2(-m.At(2, 0), cy)
	}
	return Vector3D{X: mgl64.RadToDeg(x), Y: mgl64.RadToDeg(y), Z: mgl64.RadToDeg(z)}
}

// BodyToWorld rotates a body-frame vector into world coordinates
func BodyToWorld(orientation, body Vector3D) Vector3D {
	return FromVec3(EulerToMatrix(orientation).Mul3x1(body.Vec3()))
}

// StabilizedOrientation returns the Euler angles that point the lander's
// thrust axis (body z) away from the planet centre, tilted by tiltDegrees
// about the lander's left axis.
func StabilizedOrientation(position Vector3D, tiltDegrees float64) Vector3D {
	up := position.Normalize()
	if up == (Vector3D{}) {
		return Vector3D{}
	}

	left := Vector3D{X: -up.Y, Y: up.X}
	if left.Length() < smallNum {
		left = Vector3D{X: -up.Z, Z: up.X}
	}
	left = left.Normalize()

	if tiltDegrees != 0 {
		q := mgl64.QuatRotate(mgl64.DegToRad(tiltDegrees), left.Vec3())
		up = FromVec3(q.Rotate(up.Vec3())).Normalize()
	}

	out := left.Cross(up)
	m := mgl64.Mat3FromCols(out.Vec3(), left.Vec3(), up.Vec3())
	return MatrixToEuler(m)
}
