// Package clip defines the animation data exchanged with the outside world
// (tracks, curves, clip metadata) and an in-memory clip that implements every
// collaborator interface the preparation pass needs.
package clip

import (
	"fmt"
	"strings"

	"motion-matching-prep/internal/mathutil"
)

// Track is a bone's local pose per frame.
type Track []mathutil.Transform

// Interp is a curve interpolation mode.
type Interp int

const (
	InterpLinear Interp = iota
	InterpConstant
	InterpCubic
)

func (i Interp) String() string {
	switch i {
	case InterpLinear:
		return "linear"
	case InterpConstant:
		return "constant"
	case InterpCubic:
		return "cubic"
	default:
		return fmt.Sprintf("Interp(%d)", int(i))
	}
}

// ParseInterp parses the String form. Empty means linear.
func ParseInterp(s string) (Interp, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return InterpLinear, nil
	case "constant":
		return InterpConstant, nil
	case "cubic":
		return InterpCubic, nil
	}
	return InterpLinear, fmt.Errorf("clip: unknown interpolation %q", s)
}

// CurveKey is one (time, value) sample.
type CurveKey struct {
	Time  float64
	Value float64
}

// Curve is a keyed scalar channel.
type Curve struct {
	Interp Interp
	Keys   []CurveKey
}

// Info exposes clip timing.
type Info interface {
	FrameCount() int
	Duration() float64
}

// Sink receives full replacements of tracks and curves.
type Sink interface {
	HasBoneTrack(bone string) bool
	SetBoneTrack(bone string, keys Track) error
	// UpdateBoneTrack replaces keys [first, first+len(keys)).
	UpdateBoneTrack(bone string, first int, keys Track) error
	RemoveBoneTrack(bone string) error
	HasCurve(name string) bool
	SetCurve(name string, c Curve) error
	RemoveCurve(name string) error
}

// Reader exposes current tracks and curves. Optional; used for snapshots.
type Reader interface {
	BoneTrack(bone string) (Track, bool)
	Curve(name string) (Curve, bool)
}

// Bracketer groups sink writes so they apply together. AbortBracket ends
// the bracket and drops its writes.
type Bracketer interface {
	OpenBracket(description string)
	CloseBracket() error
	AbortBracket() error
}
