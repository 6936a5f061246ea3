package prep

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/skeleton"
)

type restBone struct {
	name   string
	parent int
	pos    mgl64.Vec3
}

var rig = []restBone{
	{"root", skeleton.NoParent, mgl64.Vec3{}},
	{"pelvis", 0, mgl64.Vec3{0, 0, 90}},
	{"thigh_l", 1, mgl64.Vec3{10, 0, 0}},
	{"thigh_r", 1, mgl64.Vec3{-10, 0, 0}},
	{"spine_01", 1, mgl64.Vec3{0, 2, 20}},
	{"foot_l", 0, mgl64.Vec3{15, 0, 0}},
	{"foot_r", 0, mgl64.Vec3{-5, 0, 0}},
	{"ball_l", 0, mgl64.Vec3{15, 10, 0}},
	{"ball_r", 0, mgl64.Vec3{-5, 10, 0}},
	{"hand_r", 0, mgl64.Vec3{20, 0, 100}},
	{"hand_l", 0, mgl64.Vec3{20, 10, 100}},
	{"ik_foot_l", 0, mgl64.Vec3{}},
	{"ik_foot_r", 0, mgl64.Vec3{}},
	{"ik_hand_gun", 0, mgl64.Vec3{}},
	{"ik_hand_l", 0, mgl64.Vec3{}},
	{"prop", 0, mgl64.Vec3{1, 2, 3}},
}

func at(x, y, z float64) mathutil.Transform {
	return mathutil.NewTransform(mgl64.Vec3{x, y, z}, mgl64.QuatIdent())
}

// walkingClip builds a clip whose pelvis moves forward along +Y by one unit
// per frame while both feet stay planted. omit drops a bone from the rig.
func walkingClip(t *testing.T, frames int, omit string) *clip.Clip {
	t.Helper()

	var bones []skeleton.Bone
	var rest []mathutil.Transform
	remap := map[int]int{skeleton.NoParent: skeleton.NoParent}
	for i, b := range rig {
		if b.name == omit {
			continue
		}
		remap[i] = len(bones)
		bones = append(bones, skeleton.Bone{Name: b.name, Parent: remap[b.parent]})
		rest = append(rest, mathutil.NewTransform(b.pos, mgl64.QuatIdent()))
	}
	skel, err := skeleton.New(bones)
	require.NoError(t, err)

	duration := 0.0
	if frames > 1 {
		duration = float64(frames-1) / 30
	}
	c, err := clip.New("walk", skel, rest, frames, duration)
	require.NoError(t, err)

	if frames > 0 {
		root := make(clip.Track, frames)
		pelvis := make(clip.Track, frames)
		for i := range root {
			root[i] = mathutil.Identity()
			pelvis[i] = at(0, float64(i), 90)
		}
		require.NoError(t, c.SetBoneTrack("root", root))
		require.NoError(t, c.SetBoneTrack("pelvis", pelvis))
	}
	return c
}

func windowMean(i, margin, n int) float64 {
	lo, hi := max(0, i-margin), min(n-1, i+margin)
	return float64(lo+hi) / 2
}

func TestRunWalkingClip(t *testing.T) {
	const n = 10
	c := walkingClip(t, n, "")

	res, err := Run(c, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	require.False(t, res.Skipped)

	assert.Equal(t, n, res.Frames)
	assert.InDelta(t, 30.0, res.FrameRate, 1e-9)
	for i, m := range res.Margins {
		assert.Equal(t, 6, m, "frame %d", i)
		assert.Greater(t, res.LowestVelocity[i], 25.0)
	}

	root, ok := c.BoneTrack("root")
	require.True(t, ok)
	require.Len(t, root, n)
	pelvis, _ := c.BoneTrack("pelvis")
	ikFoot, _ := c.BoneTrack("ik_foot_l")
	ikHand, _ := c.BoneTrack("ik_hand_l")
	for i := 0; i < n; i++ {
		y := windowMean(i, 6, n)
		assert.True(t, root[i].Translation.ApproxEqualThreshold(mgl64.Vec3{5, y, 0}, 1e-9),
			"frame %d: root %v", i, root[i].Translation)
		assert.True(t, mathutil.SameRotation(mgl64.QuatIdent(), root[i].Rotation, 1e-9))

		assert.True(t, pelvis[i].Translation.ApproxEqualThreshold(mgl64.Vec3{-5, float64(i) - y, 90}, 1e-9))
		assert.True(t, ikFoot[i].Translation.ApproxEqualThreshold(mgl64.Vec3{10, -y, 0}, 1e-9))
		assert.True(t, ikHand[i].Translation.ApproxEqualThreshold(mgl64.Vec3{0, 10, 0}, 1e-9))
	}

	for _, name := range []string{"ball_l_speed", "ball_r_speed"} {
		cv, ok := c.Curve(name)
		require.True(t, ok, name)
		assert.Equal(t, clip.InterpLinear, cv.Interp)
		require.Len(t, cv.Keys, n)
		for i, k := range cv.Keys {
			assert.Zero(t, k.Value)
			assert.InDelta(t, float64(i)/30, k.Time, 1e-9)
		}
	}

	prop, ok := c.BoneTrack("prop")
	require.True(t, ok, "keyless bone initialized")
	assert.Equal(t, clip.Track{at(1, 2, 3)}, prop)
	assert.Contains(t, res.KeylessInitialized, "prop")
	assert.NotContains(t, res.KeylessInitialized, "root")
}

func TestRunSingleFrame(t *testing.T) {
	c := walkingClip(t, 1, "")

	res, err := Run(c, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, DefaultFrameRate, res.FrameRate)

	root, _ := c.BoneTrack("root")
	pelvis, _ := c.BoneTrack("pelvis")
	require.Len(t, root, 1)
	require.Len(t, pelvis, 1)
	assert.True(t, root[0].Translation.ApproxEqualThreshold(mgl64.Vec3{5, 0, 0}, 1e-9), "%v", root[0].Translation)

	cv, ok := c.Curve("ball_r_speed")
	require.True(t, ok)
	assert.Equal(t, []clip.CurveKey{{Time: 0, Value: 0}}, cv.Keys)
}

func TestRunZeroFramesIsNoOp(t *testing.T) {
	c := walkingClip(t, 0, "")
	core, logs := observer.New(zapcore.DebugLevel)

	res, err := Run(c, Defaults(), Options{Logger: zap.New(core)})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, c.TrackNames())
	assert.Empty(t, c.CurveNames())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestRunNegativeFrameCount(t *testing.T) {
	c := walkingClip(t, -3, "")
	_, err := Run(c, Defaults(), Options{Logger: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidFrameCount)
}

func TestRunMissingBone(t *testing.T) {
	c := walkingClip(t, 5, "ball_r")
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := Run(c, Defaults(), Options{Logger: zap.New(core)})
	require.ErrorIs(t, err, ErrMissingBones)
	assert.Contains(t, err.Error(), "ball_r")
	assert.Equal(t, 1, logs.FilterField(zap.String("bone", "ball_r")).Len())
	assert.Equal(t, []string{"pelvis", "root"}, c.TrackNames(), "no writes on failure")
}

func TestRunNoSkeleton(t *testing.T) {
	c, err := clip.New("empty", nil, nil, 5, 1)
	require.NoError(t, err)
	_, err = Run(c, Defaults(), Options{Logger: zap.NewNop()})
	assert.ErrorIs(t, err, ErrNoSkeleton)
}

func TestRunInvalidSettings(t *testing.T) {
	s := Defaults()
	s.VelocityMin, s.VelocityMax = 30, 10
	_, err := Run(walkingClip(t, 5, ""), s, Options{Logger: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRunLeftPrimaryHand(t *testing.T) {
	c := walkingClip(t, 3, "")
	s := Defaults()
	s.PrimaryHand = HandLeft

	_, err := Run(c, s, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	secondary, _ := c.BoneTrack("ik_hand_l")
	assert.True(t, secondary[1].Translation.ApproxEqualThreshold(mgl64.Vec3{0, -10, 0}, 1e-9))
}

func TestRunReplacesExistingCurve(t *testing.T) {
	c := walkingClip(t, 4, "")
	require.NoError(t, c.SetCurve("ball_l_speed", clip.Curve{Keys: []clip.CurveKey{{Time: 0, Value: 99}}}))

	_, err := Run(c, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	cv, _ := c.Curve("ball_l_speed")
	assert.Len(t, cv.Keys, 4)
	assert.Zero(t, cv.Keys[0].Value)
}

func TestRevertRestoresClip(t *testing.T) {
	c := walkingClip(t, 6, "")
	oldCurve := clip.Curve{Interp: clip.InterpConstant, Keys: []clip.CurveKey{{Time: 0, Value: 99}}}
	require.NoError(t, c.SetCurve("ball_l_speed", oldCurve))
	rootBefore, _ := c.BoneTrack("root")
	pelvisBefore, _ := c.BoneTrack("pelvis")

	res, err := Run(c, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	require.Greater(t, len(c.TrackNames()), 2)

	require.NoError(t, Revert(c, res.Snapshot))

	assert.Equal(t, []string{"pelvis", "root"}, c.TrackNames())
	assert.Equal(t, []string{"ball_l_speed"}, c.CurveNames())
	root, _ := c.BoneTrack("root")
	pelvis, _ := c.BoneTrack("pelvis")
	assert.Equal(t, rootBefore, root)
	assert.Equal(t, pelvisBefore, pelvis)
	cv, _ := c.Curve("ball_l_speed")
	assert.Equal(t, oldCurve, cv)
}

// opaqueAsset hides the optional Reader and Bracketer interfaces.
type opaqueAsset struct{ Asset }

func TestRevertWithoutReader(t *testing.T) {
	c := walkingClip(t, 6, "")
	pelvisBefore, _ := c.BoneTrack("pelvis")

	res, err := Run(opaqueAsset{c}, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	require.NoError(t, Revert(opaqueAsset{c}, res.Snapshot))

	pelvis, _ := c.BoneTrack("pelvis")
	assert.Equal(t, pelvisBefore, pelvis)
	assert.Empty(t, c.CurveNames())
}

func TestRunRefusesUnreadableExistingCurve(t *testing.T) {
	c := walkingClip(t, 6, "")
	original := clip.Curve{Keys: []clip.CurveKey{{Time: 0, Value: 99}}}
	require.NoError(t, c.SetCurve("ball_l_speed", original))
	tracksBefore := c.TrackNames()
	pelvisBefore, _ := c.BoneTrack("pelvis")

	core, logs := observer.New(zapcore.DebugLevel)
	res, err := Run(opaqueAsset{c}, Defaults(), Options{Logger: zap.New(core)})
	require.ErrorIs(t, err, ErrUnreadableCurve)
	assert.Nil(t, res)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	cv, ok := c.Curve("ball_l_speed")
	require.True(t, ok)
	assert.Equal(t, original, cv)
	assert.Equal(t, []string{"ball_l_speed"}, c.CurveNames())
	assert.Equal(t, tracksBefore, c.TrackNames())
	pelvis, _ := c.BoneTrack("pelvis")
	assert.Equal(t, pelvisBefore, pelvis)
}

func TestRunSkipsDisabledIKOutput(t *testing.T) {
	c := walkingClip(t, 4, "")
	s := Defaults()
	s.IKHandSecondaryBone = ""

	_, err := Run(c, s, Options{Logger: zap.NewNop()})
	require.NoError(t, err)

	tr, ok := c.BoneTrack("ik_hand_l")
	require.True(t, ok, "keyless bones still get their frame 0 key")
	assert.Len(t, tr, 1)
	tr, _ = c.BoneTrack("ik_hand_gun")
	assert.Len(t, tr, 4)
}

// failingSink rejects writes to one bone.
type failingSink struct {
	*clip.Clip
	bone string
}

func (f *failingSink) UpdateBoneTrack(bone string, first int, keys clip.Track) error {
	if bone == f.bone {
		return errors.New("write rejected")
	}
	return f.Clip.UpdateBoneTrack(bone, first, keys)
}

func TestRunFailedWriteLeavesClipUntouched(t *testing.T) {
	c := walkingClip(t, 5, "")
	tracksBefore := c.TrackNames()
	rootBefore, _ := c.BoneTrack("root")
	pelvisBefore, _ := c.BoneTrack("pelvis")

	_, err := Run(&failingSink{Clip: c, bone: "ik_foot_r"}, Defaults(), Options{Logger: zap.NewNop()})
	require.ErrorContains(t, err, "write rejected")

	assert.Equal(t, tracksBefore, c.TrackNames())
	assert.Empty(t, c.CurveNames())
	root, _ := c.BoneTrack("root")
	assert.Equal(t, rootBefore, root)
	pelvis, _ := c.BoneTrack("pelvis")
	assert.Equal(t, pelvisBefore, pelvis)

	// The bracket is closed again and the clip accepts new writes.
	require.NoError(t, c.SetCurve("x", clip.Curve{}))
	assert.Equal(t, []string{"x"}, c.CurveNames())
}

type bracketRecorder struct {
	*clip.Clip
	events []string
}

func (b *bracketRecorder) OpenBracket(desc string) {
	b.events = append(b.events, "open")
	b.Clip.OpenBracket(desc)
}

func (b *bracketRecorder) CloseBracket() error {
	b.events = append(b.events, "close")
	return b.Clip.CloseBracket()
}

func (b *bracketRecorder) SetCurve(name string, cv clip.Curve) error {
	b.events = append(b.events, "curve")
	return b.Clip.SetCurve(name, cv)
}

func TestRunWritesInsideBracket(t *testing.T) {
	rec := &bracketRecorder{Clip: walkingClip(t, 4, "")}

	_, err := Run(rec, Defaults(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "curve", "curve", "close"}, rec.events)
	assert.Len(t, rec.CurveNames(), 2)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())

	cases := map[string]func(*Settings){
		"empty pelvis":   func(s *Settings) { s.PelvisBone = "" },
		"bad hand":       func(s *Settings) { s.PrimaryHand = "both" },
		"bad axis":       func(s *Settings) { s.Facing = mathutil.Axis(7) },
		"smoothing":      func(s *Settings) { s.SmoothingMinSeconds = 1 },
		"negative speed": func(s *Settings) { s.VelocityMin = -1 },
		"curve bone":     func(s *Settings) { s.SpeedCurveBones = []string{""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := Defaults()
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}
}

func TestMarginMapperFromSettings(t *testing.T) {
	m := Defaults().MarginMapper(30)
	assert.Equal(t, 1, m.MinMargin)
	assert.Equal(t, 6, m.MaxMargin)
	assert.Equal(t, 12, m.PreMargin)

	assert.Equal(t, DefaultFrameRate, FrameRate(1, 0))
	assert.Equal(t, DefaultFrameRate, FrameRate(5, 0))
	assert.InDelta(t, 60.0, FrameRate(61, 1), 1e-12)
}
