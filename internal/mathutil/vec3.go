package mathutil

import "github.com/go-gl/mathgl/mgl64"

// Flatten zeroes the up component of v.
func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], 0}
}

// MeanVec3 returns the arithmetic mean of vs, or the zero vector for no input.
func MeanVec3(vs ...mgl64.Vec3) mgl64.Vec3 {
	if len(vs) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, v := range vs {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(vs)))
}

// NormalizeOr normalizes v, returning fallback when v is (nearly) zero length.
func NormalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return fallback
	}
	return v.Mul(1 / l)
}
