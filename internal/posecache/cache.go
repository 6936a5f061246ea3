// Package posecache samples world transforms for a fixed set of bones over a
// whole clip. Smoothing needs random access to frames on both sides of the
// current one, so the cache is built eagerly and is read-only afterwards.
package posecache

import (
	"github.com/go-gl/mathgl/mgl64"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/skeleton"
)

// Cache holds one WorldPose per frame.
type Cache struct {
	frames []skeleton.WorldPose
}

// Build samples frames [0, frameCount).
func Build(sm *skeleton.Sampler, src skeleton.PoseSource, frameCount int) *Cache {
	if frameCount < 0 {
		frameCount = 0
	}
	c := &Cache{frames: make([]skeleton.WorldPose, frameCount)}
	for i := range c.frames {
		c.frames[i] = sm.Sample(src, i)
	}
	return c
}

// FromFrames wraps precomputed poses. The slice is not copied.
func FromFrames(frames []skeleton.WorldPose) *Cache {
	return &Cache{frames: frames}
}

// Len returns the number of frames.
func (c *Cache) Len() int { return len(c.frames) }

// Frame returns the pose at frame i.
func (c *Cache) Frame(i int) skeleton.WorldPose { return c.frames[i] }

// Lookup returns the world transform of bone at frame. ok is false when the
// frame is out of range or the bone was not resolvable.
func (c *Cache) Lookup(frame, bone int) (mathutil.Transform, bool) {
	if frame < 0 || frame >= len(c.frames) {
		return mathutil.Transform{}, false
	}
	t, ok := c.frames[frame][bone]
	return t, ok
}

// Position returns the world position of bone at frame, or the zero vector
// when unresolvable.
func (c *Cache) Position(frame, bone int) (mgl64.Vec3, bool) {
	t, ok := c.Lookup(frame, bone)
	return t.Translation, ok
}
