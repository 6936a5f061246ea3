// Package curves generates the float curves attached to a prepared clip.
package curves

import (
	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/posecache"
)

// SpeedSuffix is appended to a bone name to form its speed curve name.
const SpeedSuffix = "_speed"

// SpeedCurveName returns the curve name for bone.
func SpeedCurveName(bone string) string {
	return bone + SpeedSuffix
}

// FootSpeed samples the world-space speed of bone per frame, in units per
// second. The last frame repeats the previous value. Frames where the current
// or next sample is unresolvable get 0.
func FootSpeed(c *posecache.Cache, bone int, frameTime float64) clip.Curve {
	n := c.Len()
	curve := clip.Curve{Interp: clip.InterpLinear, Keys: make([]clip.CurveKey, n)}
	if n == 0 {
		return curve
	}

	var last float64
	for i := 0; i < n-1; i++ {
		var speed float64
		cur, ok1 := c.Position(i, bone)
		next, ok2 := c.Position(i+1, bone)
		if ok1 && ok2 && frameTime > 0 {
			speed = next.Sub(cur).Len() / frameTime
		}
		curve.Keys[i] = clip.CurveKey{Time: float64(i) * frameTime, Value: speed}
		last = speed
	}
	curve.Keys[n-1] = clip.CurveKey{Time: float64(n-1) * frameTime, Value: last}
	return curve
}
