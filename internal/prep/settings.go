package prep

import (
	"fmt"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/smooth"
)

// Hand sides accepted by Settings.PrimaryHand.
const (
	HandRight = "right"
	HandLeft  = "left"
)

// DefaultFrameRate is used when the clip is too short to derive one.
const DefaultFrameRate = 30.0

// velocityPreSmoothSeconds is the half-window used to pre-smooth pelvis
// speeds before choosing margins.
const velocityPreSmoothSeconds = 0.41

// Settings configures one pass. It is read-only during the pass.
type Settings struct {
	RootBone       string
	PelvisBone     string
	LeftThighBone  string
	RightThighBone string
	SpineBone      string
	LeftFootBone   string
	RightFootBone  string
	LeftBallBone   string
	RightBallBone  string
	LeftHandBone   string
	RightHandBone  string

	IKFootLeftBone      string
	IKFootRightBone     string
	IKHandPrimaryBone   string
	IKHandSecondaryBone string

	// PrimaryHand selects which FK hand drives IKHandPrimaryBone.
	PrimaryHand string

	Facing mathutil.Axis

	// Pelvis speeds in [VelocityMin, VelocityMax] units/s map to smoothing
	// windows in [SmoothingMinSeconds, SmoothingMaxSeconds].
	VelocityMin         float64
	VelocityMax         float64
	SmoothingMinSeconds float64
	SmoothingMaxSeconds float64

	// SpeedCurveBones get a "<bone>_speed" curve.
	SpeedCurveBones []string
}

// Defaults returns settings for the usual game rig.
func Defaults() Settings {
	return Settings{
		RootBone:       "root",
		PelvisBone:     "pelvis",
		LeftThighBone:  "thigh_l",
		RightThighBone: "thigh_r",
		SpineBone:      "spine_01",
		LeftFootBone:   "foot_l",
		RightFootBone:  "foot_r",
		LeftBallBone:   "ball_l",
		RightBallBone:  "ball_r",
		LeftHandBone:   "hand_l",
		RightHandBone:  "hand_r",

		IKFootLeftBone:      "ik_foot_l",
		IKFootRightBone:     "ik_foot_r",
		IKHandPrimaryBone:   "ik_hand_gun",
		IKHandSecondaryBone: "ik_hand_l",

		PrimaryHand: HandRight,
		Facing:      mathutil.AxisY,

		VelocityMin:         5,
		VelocityMax:         25,
		SmoothingMinSeconds: 0.083,
		SmoothingMaxSeconds: 0.41,

		SpeedCurveBones: []string{"ball_l", "ball_r"},
	}
}

// Validate checks names and numeric ranges.
func (s Settings) Validate() error {
	names := []struct{ label, name string }{
		{"root", s.RootBone}, {"pelvis", s.PelvisBone},
		{"left thigh", s.LeftThighBone}, {"right thigh", s.RightThighBone},
		{"spine", s.SpineBone},
		{"left foot", s.LeftFootBone}, {"right foot", s.RightFootBone},
		{"left ball", s.LeftBallBone}, {"right ball", s.RightBallBone},
		{"left hand", s.LeftHandBone}, {"right hand", s.RightHandBone},
	}
	for _, n := range names {
		if n.name == "" {
			return fmt.Errorf("%w: %s bone name is empty", ErrInvalidSettings, n.label)
		}
	}
	if s.PrimaryHand != HandRight && s.PrimaryHand != HandLeft {
		return fmt.Errorf("%w: primary hand %q", ErrInvalidSettings, s.PrimaryHand)
	}
	if s.Facing < mathutil.AxisX || s.Facing > mathutil.AxisZ {
		return fmt.Errorf("%w: facing axis %d", ErrInvalidSettings, int(s.Facing))
	}
	if s.VelocityMin < 0 || s.VelocityMax < s.VelocityMin {
		return fmt.Errorf("%w: velocity range [%g, %g]", ErrInvalidSettings, s.VelocityMin, s.VelocityMax)
	}
	if s.SmoothingMinSeconds < 0 || s.SmoothingMaxSeconds < s.SmoothingMinSeconds {
		return fmt.Errorf("%w: smoothing range [%g, %g]", ErrInvalidSettings, s.SmoothingMinSeconds, s.SmoothingMaxSeconds)
	}
	for _, b := range s.SpeedCurveBones {
		if b == "" {
			return fmt.Errorf("%w: empty speed curve bone", ErrInvalidSettings)
		}
	}
	return nil
}

// trackedBones lists every bone the pass samples, without duplicates.
func (s Settings) trackedBones() []string {
	names := []string{
		s.RootBone, s.PelvisBone, s.LeftThighBone, s.RightThighBone, s.SpineBone,
		s.LeftFootBone, s.RightFootBone, s.LeftBallBone, s.RightBallBone,
		s.LeftHandBone, s.RightHandBone,
	}
	names = append(names, s.SpeedCurveBones...)

	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// hands returns the FK bones feeding the primary and secondary IK hands.
func (s Settings) hands() (primary, secondary string) {
	if s.PrimaryHand == HandLeft {
		return s.LeftHandBone, s.RightHandBone
	}
	return s.RightHandBone, s.LeftHandBone
}

// FrameRate derives frames per second from the clip timing, falling back to
// DefaultFrameRate for single-frame or zero-length clips.
func FrameRate(frameCount int, duration float64) float64 {
	if frameCount > 1 && duration > 0 {
		return float64(frameCount-1) / duration
	}
	return DefaultFrameRate
}

// MarginMapper converts the time-based settings into frame margins.
func (s Settings) MarginMapper(frameRate float64) smooth.MarginMapper {
	return smooth.MarginMapper{
		VelocityMin: s.VelocityMin,
		VelocityMax: s.VelocityMax,
		MinMargin:   int(frameRate * s.SmoothingMinSeconds / 2),
		MaxMargin:   int(frameRate * s.SmoothingMaxSeconds / 2),
		PreMargin:   int(velocityPreSmoothSeconds * frameRate),
	}
}
