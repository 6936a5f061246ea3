package clip

import (
	"errors"
	"fmt"
	"sort"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/skeleton"
)

var (
	// ErrUnknownBone is returned when writing a track for a bone the skeleton lacks.
	ErrUnknownBone = errors.New("clip: unknown bone")

	// ErrBracket is returned for unbalanced bracket calls.
	ErrBracket = errors.New("clip: bracket not open")
)

// Clip is an in-memory animation clip. Bones without a track use their rest
// pose on every frame; a track shorter than the clip holds its last key.
type Clip struct {
	Name string

	skel       *skeleton.Skeleton
	rest       []mathutil.Transform
	frameCount int
	duration   float64

	tracks map[string]Track
	curves map[string]Curve

	bracket      string
	bracketDepth int
	aborted      bool
	pending      []func()
}

// New creates an empty clip. rest may be nil (identity rest poses) or hold
// one transform per bone.
func New(name string, skel *skeleton.Skeleton, rest []mathutil.Transform, frameCount int, duration float64) (*Clip, error) {
	if skel != nil && rest != nil && len(rest) != skel.NumBones() {
		return nil, fmt.Errorf("clip: %d rest poses for %d bones", len(rest), skel.NumBones())
	}
	if skel != nil && rest == nil {
		rest = make([]mathutil.Transform, skel.NumBones())
		for i := range rest {
			rest[i] = mathutil.Identity()
		}
	}
	return &Clip{
		Name:       name,
		skel:       skel,
		rest:       rest,
		frameCount: frameCount,
		duration:   duration,
		tracks:     make(map[string]Track),
		curves:     make(map[string]Curve),
	}, nil
}

// Skeleton returns the clip's hierarchy, or nil when it has none.
func (c *Clip) Skeleton() skeleton.Provider {
	if c.skel == nil {
		return nil
	}
	return c.skel
}

// Hierarchy returns the concrete skeleton.
func (c *Clip) Hierarchy() *skeleton.Skeleton { return c.skel }

// Rest returns the rest pose of a bone.
func (c *Clip) Rest(bone string) mathutil.Transform {
	if c.skel == nil {
		return mathutil.Identity()
	}
	idx := c.skel.FindBone(bone)
	if idx < 0 {
		return mathutil.Identity()
	}
	return c.rest[idx]
}

// FrameCount implements Info.
func (c *Clip) FrameCount() int { return c.frameCount }

// Duration implements Info.
func (c *Clip) Duration() float64 { return c.duration }

// LocalPose implements skeleton.PoseSource.
func (c *Clip) LocalPose(bone string, frame int) mathutil.Transform {
	if tr, ok := c.tracks[bone]; ok && len(tr) > 0 {
		if frame < 0 {
			frame = 0
		}
		if frame >= len(tr) {
			frame = len(tr) - 1
		}
		return tr[frame]
	}
	return c.Rest(bone)
}

// TrackNames returns the names of all bone tracks, sorted.
func (c *Clip) TrackNames() []string {
	return sortedKeys(c.tracks)
}

// CurveNames returns the names of all curves, sorted.
func (c *Clip) CurveNames() []string {
	return sortedKeys(c.curves)
}

// BoneTrack implements Reader. The returned track is a copy.
func (c *Clip) BoneTrack(bone string) (Track, bool) {
	tr, ok := c.tracks[bone]
	if !ok {
		return nil, false
	}
	return append(Track(nil), tr...), true
}

// Curve implements Reader. The returned curve is a copy.
func (c *Clip) Curve(name string) (Curve, bool) {
	cv, ok := c.curves[name]
	if !ok {
		return Curve{}, false
	}
	cv.Keys = append([]CurveKey(nil), cv.Keys...)
	return cv, true
}

// HasBoneTrack implements Sink.
func (c *Clip) HasBoneTrack(bone string) bool {
	_, ok := c.tracks[bone]
	return ok
}

// SetBoneTrack implements Sink.
func (c *Clip) SetBoneTrack(bone string, keys Track) error {
	if err := c.checkBone(bone); err != nil {
		return err
	}
	keys = append(Track(nil), keys...)
	c.apply(func() { c.tracks[bone] = keys })
	return nil
}

// UpdateBoneTrack implements Sink. A shorter existing track is first expanded
// by holding its last key (or the rest pose) out to the clip length.
func (c *Clip) UpdateBoneTrack(bone string, first int, keys Track) error {
	if err := c.checkBone(bone); err != nil {
		return err
	}
	if first < 0 {
		return fmt.Errorf("clip: update %s: negative first frame %d", bone, first)
	}
	keys = append(Track(nil), keys...)
	c.apply(func() {
		n := c.frameCount
		if end := first + len(keys); end > n {
			n = end
		}
		tr := make(Track, n)
		for i := range tr {
			tr[i] = c.LocalPose(bone, i)
		}
		copy(tr[first:], keys)
		c.tracks[bone] = tr
	})
	return nil
}

// RemoveBoneTrack implements Sink.
func (c *Clip) RemoveBoneTrack(bone string) error {
	c.apply(func() { delete(c.tracks, bone) })
	return nil
}

// HasCurve implements Sink.
func (c *Clip) HasCurve(name string) bool {
	_, ok := c.curves[name]
	return ok
}

// SetCurve implements Sink.
func (c *Clip) SetCurve(name string, cv Curve) error {
	cv.Keys = append([]CurveKey(nil), cv.Keys...)
	c.apply(func() { c.curves[name] = cv })
	return nil
}

// RemoveCurve implements Sink.
func (c *Clip) RemoveCurve(name string) error {
	c.apply(func() { delete(c.curves, name) })
	return nil
}

// OpenBracket implements Bracketer. Writes are staged until CloseBracket.
// Nested brackets are flattened into the outermost one.
func (c *Clip) OpenBracket(description string) {
	c.bracketDepth++
	if c.bracketDepth > 1 {
		return
	}
	c.bracket = description
	c.pending = nil
	c.aborted = false
}

// CloseBracket implements Bracketer and applies the staged writes in order.
func (c *Clip) CloseBracket() error {
	if c.bracketDepth == 0 {
		return ErrBracket
	}
	c.bracketDepth--
	if c.bracketDepth > 0 {
		return nil
	}
	pending := c.pending
	c.pending = nil
	c.bracket = ""
	if c.aborted {
		c.aborted = false
		return nil
	}
	for _, fn := range pending {
		fn()
	}
	return nil
}

// AbortBracket implements Bracketer. Aborting a nested bracket drops the
// writes of the outermost one as well.
func (c *Clip) AbortBracket() error {
	c.aborted = c.bracketDepth > 0
	return c.CloseBracket()
}

func (c *Clip) apply(fn func()) {
	if c.bracketDepth > 0 {
		c.pending = append(c.pending, fn)
		return
	}
	fn()
}

func (c *Clip) checkBone(bone string) error {
	if c.skel == nil || c.skel.FindBone(bone) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBone, bone)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
