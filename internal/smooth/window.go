// Package smooth implements the moving-average smoothing used to extract the
// root path, and the velocity-adaptive choice of window size.
package smooth

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/posecache"
)

// Window returns the inclusive range [center-margin, center+margin] clamped
// to [0, n-1]. Near the clip edges the window is shorter and one-sided.
func Window(center, margin, n int) (lo, hi int) {
	lo = center - margin
	if lo < 0 {
		lo = 0
	}
	hi = center + margin
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// Transform averages the world transform of bone over the clamped window
// around center: translation and scale arithmetically, rotation through
// mathutil.AverageQuats.
func Transform(c *posecache.Cache, bone, center, margin int) (mathutil.Transform, error) {
	lo, hi := Window(center, margin, c.Len())
	if lo > hi {
		return mathutil.Transform{}, fmt.Errorf("%w: empty window at frame %d", ErrMissingSample, center)
	}

	var loc, scale mgl64.Vec3
	rots := make([]mgl64.Quat, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		t, ok := c.Lookup(i, bone)
		if !ok {
			return mathutil.Transform{}, fmt.Errorf("%w: bone %d at frame %d", ErrMissingSample, bone, i)
		}
		loc = loc.Add(t.Translation)
		scale = scale.Add(t.Scale)
		rots = append(rots, t.Rotation)
	}

	inv := 1 / float64(len(rots))
	return mathutil.Transform{
		Translation: loc.Mul(inv),
		Rotation:    mathutil.AverageQuats(rots),
		Scale:       scale.Mul(inv),
	}, nil
}

// Scalars returns a same-length moving average of values over the clamped
// window of half-width margin.
func Scalars(values []float64, margin int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo, hi := Window(i, margin, len(values))
		out[i] = stat.Mean(values[lo:hi+1], nil)
	}
	return out
}

// LowestInRange returns the minimum of values over the clamped window around
// i, or 0 when the window is empty.
func LowestInRange(values []float64, i, margin int) float64 {
	lo, hi := Window(i, margin, len(values))
	if lo > hi {
		return 0
	}
	return floats.Min(values[lo : hi+1])
}
