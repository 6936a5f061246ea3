package mathutil

import "github.com/go-gl/mathgl/mgl64"

// Up is the world up axis. Ground projection zeroes this component.
var Up = mgl64.Vec3{0, 0, 1}

// Transform is a bone pose: translation, unit rotation and non-uniform scale.
// Value type, no heap allocation.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// Identity returns zero translation, identity rotation and unit scale.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// NewTransform builds a transform with unit scale.
func NewTransform(t mgl64.Vec3, r mgl64.Quat) Transform {
	return Transform{Translation: t, Rotation: r, Scale: mgl64.Vec3{1, 1, 1}}
}

// Compose applies t first and then parent, i.e. child-to-parent followed by
// parent-to-world. Used to chain local poses down the hierarchy.
func (t Transform) Compose(parent Transform) Transform {
	return Transform{
		Translation: parent.Rotation.Rotate(mulElem(parent.Scale, t.Translation)).Add(parent.Translation),
		Rotation:    parent.Rotation.Mul(t.Rotation),
		Scale:       mulElem(parent.Scale, t.Scale),
	}
}

// RelativeTo expresses t in the space of other, so that
// t.RelativeTo(other).Compose(other) == t.
func (t Transform) RelativeTo(other Transform) Transform {
	inv := other.Rotation.Inverse()
	invScale := safeReciprocal(other.Scale)
	return Transform{
		Translation: mulElem(invScale, inv.Rotate(t.Translation.Sub(other.Translation))),
		Rotation:    inv.Mul(t.Rotation),
		Scale:       mulElem(t.Scale, invScale),
	}
}

// Position returns the translation. Reads better on world transforms.
func (t Transform) Position() mgl64.Vec3 {
	return t.Translation
}

// ApproxEqual compares component-wise with tolerance eps. Rotations q and -q
// are treated as equal.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	if !t.Translation.ApproxEqualThreshold(o.Translation, eps) {
		return false
	}
	if !t.Scale.ApproxEqualThreshold(o.Scale, eps) {
		return false
	}
	return SameRotation(t.Rotation, o.Rotation, eps)
}

// SameRotation reports whether a and b describe the same orientation.
func SameRotation(a, b mgl64.Quat, eps float64) bool {
	d := a.Dot(b)
	if d < 0 {
		d = -d
	}
	return d >= 1-eps
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// safeReciprocal returns 1/v per component; zero components stay zero.
func safeReciprocal(v mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := 0; i < 3; i++ {
		if v[i] > 1e-12 || v[i] < -1e-12 {
			r[i] = 1 / v[i]
		}
	}
	return r
}
