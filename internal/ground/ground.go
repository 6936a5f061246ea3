// Package ground builds the synthetic root position and facing from smoothed
// pelvis, hip and foot samples.
package ground

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"motion-matching-prep/internal/mathutil"
)

// forwardAxis is the in-plane forward of the foot plane for a facing axis.
// Z is the plane normal itself, so Z facing falls back to X.
func forwardAxis(facing mathutil.Axis) mgl64.Vec3 {
	if facing == mathutil.AxisY {
		return mgl64.Vec3{0, 1, 0}
	}
	return mgl64.Vec3{1, 0, 0}
}

// Compose returns the ground position of the new root.
//
// The forward/backward coordinate comes from the pelvis, which carries the
// body's inertia. The lateral coordinate and the height come from the foot
// plane reference, a virtual point between both feet that is far steadier
// sideways than the pelvis. footRot's Z axis is the plane normal and its
// facing axis the in-plane forward.
func Compose(pelvis, footPos mgl64.Vec3, footRot mgl64.Quat, facing mathutil.Axis) mgl64.Vec3 {
	normal := footRot.Rotate(mathutil.Up)
	forward := mathutil.NormalizeOr(footRot.Rotate(forwardAxis(facing)), forwardAxis(facing))

	// Pelvis dropped onto the plane along its normal.
	dist := pelvis.Sub(footPos).Dot(normal)
	onPlane := pelvis.Sub(normal.Mul(dist))

	forwardDist := onPlane.Sub(footPos).Dot(forward)
	return footPos.Add(forward.Mul(forwardDist))
}

// FacingNormal returns the flattened normal of the thigh/thigh/spine
// triangle. ok is false when the triangle is degenerate or faces straight up
// or down.
func FacingNormal(thighL, thighR, spine mgl64.Vec3) (n mgl64.Vec3, ok bool) {
	edge1 := thighL.Sub(thighR) // towards the left thigh
	edge2 := spine.Sub(thighR)  // up and forward
	n = edge2.Cross(edge1)
	if n.Len() < 1e-12 {
		return mgl64.Vec3{}, false
	}
	n = mathutil.Flatten(n.Normalize())
	if n.Len() < 1e-9 {
		return mgl64.Vec3{}, false
	}
	return n.Normalize(), true
}

// Yaw converts a flattened facing normal into a rotation angle about up, such
// that rotating the facing axis by the angle yields the normal.
func Yaw(n mgl64.Vec3, facing mathutil.Axis) float64 {
	if facing == mathutil.AxisY {
		return math.Atan2(-n.X(), n.Y())
	}
	return math.Atan2(n.Y(), n.X())
}

// FacingRotation derives a pure yaw rotation from the hip triangle. A
// degenerate triangle yields identity.
func FacingRotation(thighL, thighR, spine mgl64.Vec3, facing mathutil.Axis) (mgl64.Quat, bool) {
	n, ok := FacingNormal(thighL, thighR, spine)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	return mathutil.YawQuat(Yaw(n, facing)), true
}

// FootPlaneReference averages foot and ball positions and drops the result to
// ground height.
func FootPlaneReference(positions ...mgl64.Vec3) mgl64.Vec3 {
	return mathutil.Flatten(mathutil.MeanVec3(positions...))
}
