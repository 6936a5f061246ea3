package smooth

import (
	"github.com/go-gl/mathgl/mgl64"

	"motion-matching-prep/internal/posecache"
)

// Speeds returns frameRate * |p[i] - p[i-1]| for bone. The position before
// frame 0 is taken as the origin, and an unresolvable frame counts as the
// origin too.
func Speeds(c *posecache.Cache, bone int, frameRate float64) []float64 {
	out := make([]float64, c.Len())
	var prev mgl64.Vec3
	for i := range out {
		pos, _ := c.Position(i, bone)
		out[i] = frameRate * pos.Sub(prev).Len()
		prev = pos
	}
	return out
}

// MapRangeClamped maps v linearly from [inMin, inMax] to [outMin, outMax],
// clamping v to the input range first.
func MapRangeClamped(v, inMin, inMax, outMin, outMax float64) float64 {
	var pct float64
	switch {
	case inMax == inMin:
		if v >= inMax {
			pct = 1
		}
	default:
		pct = mgl64.Clamp((v-inMin)/(inMax-inMin), 0, 1)
	}
	return outMin + pct*(outMax-outMin)
}

// MarginMapper chooses a per-frame smoothing half-window from local speed.
type MarginMapper struct {
	VelocityMin float64
	VelocityMax float64
	MinMargin   int
	MaxMargin   int

	// PreMargin is the half-window used to pre-smooth the speeds so that the
	// chosen margin does not jump from frame to frame.
	PreMargin int
}

// Margin maps a local velocity to a margin in [MinMargin, MaxMargin].
func (m MarginMapper) Margin(velocity float64) int {
	return int(MapRangeClamped(velocity, m.VelocityMin, m.VelocityMax, float64(m.MinMargin), float64(m.MaxMargin)))
}

// Margins returns one margin per frame, plus the local minimum velocity that
// produced it.
//
// The local minimum is searched over MaxMargin rather than the frame's own
// margin, which is not known yet. Using the minimum means the window only
// widens when the whole neighbourhood is calm.
func (m MarginMapper) Margins(speeds []float64) (margins []int, lowest []float64) {
	smoothed := Scalars(speeds, m.PreMargin)
	margins = make([]int, len(speeds))
	lowest = make([]float64, len(speeds))
	for i := range speeds {
		lowest[i] = LowestInRange(smoothed, i, m.MaxMargin)
		margins[i] = m.Margin(lowest[i])
	}
	return margins, lowest
}
