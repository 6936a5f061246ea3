package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// Matches MU Online's bmdAngleToQuaternion function.
func EulerToQuat(rx, ry, rz float64) mgl64.Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return mgl64.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl64.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

// AverageQuats returns the hemisphere-corrected mean of qs.
//
// The first quaternion seeds the sum. Every later sample whose dot product
// with the running sum is negative is negated before it is added, since q and
// -q are the same rotation and would otherwise cancel out. The sum is
// normalized at the end. A single sample is returned unchanged; an empty
// slice yields identity.
func AverageQuats(qs []mgl64.Quat) mgl64.Quat {
	switch len(qs) {
	case 0:
		return mgl64.QuatIdent()
	case 1:
		return qs[0]
	}

	sum := qs[0]
	for _, q := range qs[1:] {
		if sum.Dot(q) < 0 {
			q = q.Scale(-1)
		}
		sum = sum.Add(q)
	}
	return sum.Normalize()
}

// YawQuat returns a rotation of angle radians about the up axis.
func YawQuat(angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, Up)
}
