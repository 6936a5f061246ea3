// Package rebuild re-roots a clip: it derives a new root transform per frame
// and re-expresses the pelvis and IK bones relative to it.
package rebuild

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/ground"
	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/posecache"
	"motion-matching-prep/internal/smooth"
)

// Bones holds skeleton indices of the sampled bones.
type Bones struct {
	Root       int
	Pelvis     int
	LeftThigh  int
	RightThigh int
	Spine      int
	LeftFoot   int
	RightFoot  int
	LeftBall   int
	RightBall  int

	// PrimaryHand drives the primary IK hand; SecondaryHand is expressed
	// relative to the primary hand.
	PrimaryHand   int
	SecondaryHand int
}

// Output is one track per rebuilt bone, plus path samples for previews.
type Output struct {
	Root            clip.Track
	Pelvis          clip.Track
	IKFootLeft      clip.Track
	IKFootRight     clip.Track
	IKHandPrimary   clip.Track
	IKHandSecondary clip.Track

	RootPath   []mgl64.Vec3
	PelvisPath []mgl64.Vec3

	// Degraded counts frames whose root or pelvis was unresolvable.
	Degraded int
}

// Rebuild computes every output track. margins holds one smoothing margin per
// frame. A missing root or pelvis on a frame yields default keys for that
// frame; a bone missing from a smoothing window aborts with
// smooth.ErrMissingSample.
func Rebuild(c *posecache.Cache, margins []int, b Bones, facing mathutil.Axis, logger *zap.Logger) (*Output, error) {
	n := c.Len()
	if len(margins) != n {
		return nil, fmt.Errorf("rebuild: %d margins for %d frames", len(margins), n)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	out := &Output{
		Root:            make(clip.Track, n),
		Pelvis:          make(clip.Track, n),
		IKFootLeft:      make(clip.Track, n),
		IKFootRight:     make(clip.Track, n),
		IKHandPrimary:   make(clip.Track, n),
		IKHandSecondary: make(clip.Track, n),
		RootPath:        make([]mgl64.Vec3, n),
		PelvisPath:      make([]mgl64.Vec3, n),
	}

	for frame := 0; frame < n; frame++ {
		rootWorld, rootOK := c.Lookup(frame, b.Root)
		pelvisWorld, pelvisOK := c.Lookup(frame, b.Pelvis)
		if !rootOK || !pelvisOK {
			logger.Error("missing root or pelvis, writing default keys",
				zap.Int("frame", frame), zap.Bool("root", rootOK), zap.Bool("pelvis", pelvisOK))
			out.setDefault(frame)
			out.Degraded++
			continue
		}

		newRoot, err := rootAt(c, b, frame, margins[frame], facing, rootWorld)
		if err != nil {
			return nil, err
		}

		out.Root[frame] = newRoot
		out.Pelvis[frame] = pelvisWorld.RelativeTo(newRoot)
		out.RootPath[frame] = newRoot.Translation
		out.PelvisPath[frame] = pelvisWorld.Translation

		// IK bones hang off the root through null transforms, so moving the
		// root must be countered to keep them in place in world space.
		out.IKFootLeft[frame] = relativeOrDefault(c, frame, b.LeftFoot, newRoot, logger)
		out.IKFootRight[frame] = relativeOrDefault(c, frame, b.RightFoot, newRoot, logger)
		out.IKHandPrimary[frame] = relativeOrDefault(c, frame, b.PrimaryHand, newRoot, logger)

		primary, ok := c.Lookup(frame, b.PrimaryHand)
		if !ok {
			logger.Warn("missing primary hand, writing default secondary IK hand key",
				zap.Int("frame", frame), zap.Int("bone", b.PrimaryHand))
			out.IKHandSecondary[frame] = mathutil.Identity()
			continue
		}
		out.IKHandSecondary[frame] = relativeOrDefault(c, frame, b.SecondaryHand, primary, logger)
	}
	return out, nil
}

// rootAt builds the new root world transform at frame.
func rootAt(c *posecache.Cache, b Bones, frame, margin int, facing mathutil.Axis, original mathutil.Transform) (mathutil.Transform, error) {
	smoothed := make(map[int]mathutil.Transform, 8)
	for _, bone := range []int{b.Pelvis, b.LeftThigh, b.RightThigh, b.Spine, b.LeftFoot, b.RightFoot, b.LeftBall, b.RightBall} {
		t, err := smooth.Transform(c, bone, frame, margin)
		if err != nil {
			return mathutil.Transform{}, fmt.Errorf("rebuild: frame %d: %w", frame, err)
		}
		smoothed[bone] = t
	}

	facingRot, _ := ground.FacingRotation(
		smoothed[b.LeftThigh].Translation,
		smoothed[b.RightThigh].Translation,
		smoothed[b.Spine].Translation,
		facing,
	)
	footRef := ground.FootPlaneReference(
		smoothed[b.LeftBall].Translation,
		smoothed[b.RightBall].Translation,
		smoothed[b.LeftFoot].Translation,
		smoothed[b.RightFoot].Translation,
	)
	pos := ground.Compose(smoothed[b.Pelvis].Translation, footRef, facingRot, facing)

	return mathutil.Transform{
		Translation: pos,
		Rotation:    facingRot,
		Scale:       original.Scale,
	}, nil
}

func relativeOrDefault(c *posecache.Cache, frame, bone int, parent mathutil.Transform, logger *zap.Logger) mathutil.Transform {
	world, ok := c.Lookup(frame, bone)
	if !ok {
		logger.Warn("missing IK source bone, writing default key", zap.Int("frame", frame), zap.Int("bone", bone))
		return mathutil.Identity()
	}
	return world.RelativeTo(parent)
}

func (o *Output) setDefault(frame int) {
	id := mathutil.Identity()
	o.Root[frame] = id
	o.Pelvis[frame] = id
	o.IKFootLeft[frame] = id
	o.IKFootRight[frame] = id
	o.IKHandPrimary[frame] = id
	o.IKHandSecondary[frame] = id
}
