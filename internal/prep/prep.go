// Package prep runs the motion matching preparation pass over one clip: it
// moves the smoothed ground motion of the pelvis onto the root, re-roots the
// pelvis and IK bones and adds foot speed curves.
package prep

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/curves"
	"motion-matching-prep/internal/log"
	"motion-matching-prep/internal/posecache"
	"motion-matching-prep/internal/rebuild"
	"motion-matching-prep/internal/skeleton"
	"motion-matching-prep/internal/smooth"
)

// Asset is everything a pass reads from and writes to.
type Asset interface {
	Skeleton() skeleton.Provider
	skeleton.PoseSource
	clip.Info
	clip.Sink
}

// Options are per-call collaborators.
type Options struct {
	// Logger receives diagnostics. Nil means the global logger.
	Logger *zap.Logger
}

// Result describes a finished pass.
type Result struct {
	ID      uuid.UUID
	Skipped bool

	Frames    int
	FrameRate float64

	// Margins is the smoothing half-window chosen per frame; LowestVelocity
	// is the local minimum pelvis speed it was mapped from.
	Margins        []int
	LowestVelocity []float64

	Tracks *rebuild.Output
	Curves map[string]clip.Curve

	// KeylessInitialized lists bones that got a one-key track.
	KeylessInitialized []string

	Snapshot *Snapshot
}

// Run executes one pass. Every precondition check and computation happens
// before the first write, so those failures leave the asset untouched.
func Run(a Asset, s Settings, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.L()
	}
	id := uuid.New()
	logger = logger.With(zap.Stringer("pass", id))

	if err := s.Validate(); err != nil {
		return nil, err
	}

	var provider skeleton.Provider
	if a != nil {
		provider = a.Skeleton()
	}
	if provider == nil {
		logger.Error("no skeleton found")
		return nil, ErrNoSkeleton
	}
	skel, err := skeleton.FromProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("prep: read skeleton: %w", err)
	}

	tracked := s.trackedBones()
	if missing := skel.Missing(tracked...); len(missing) > 0 {
		for _, name := range missing {
			logger.Error("bone not found in skeleton", zap.String("bone", name))
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingBones, missing)
	}

	frames := a.FrameCount()
	if frames < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameCount, frames)
	}
	if frames == 0 {
		logger.Warn("clip has no frames")
		return &Result{ID: id, Skipped: true}, nil
	}

	frameRate := FrameRate(frames, a.Duration())
	frameTime := 1 / frameRate
	logger.Info("processing clip",
		zap.Int("frames", frames),
		zap.Float64("duration", a.Duration()),
		zap.Float64("frame_rate", frameRate),
	)

	cache := posecache.Build(skeleton.NewSampler(skel, tracked), a, frames)

	mapper := s.MarginMapper(frameRate)
	speeds := smooth.Speeds(cache, skel.FindBone(s.PelvisBone), frameRate)
	margins, lowest := mapper.Margins(speeds)
	for i := range margins {
		logger.Debug("smoothing window",
			zap.Int("frame", i),
			zap.Float64("lowest_velocity", lowest[i]),
			zap.Int("margin", margins[i]),
		)
	}

	primary, secondary := s.hands()
	bones := rebuild.Bones{
		Root:          skel.FindBone(s.RootBone),
		Pelvis:        skel.FindBone(s.PelvisBone),
		LeftThigh:     skel.FindBone(s.LeftThighBone),
		RightThigh:    skel.FindBone(s.RightThighBone),
		Spine:         skel.FindBone(s.SpineBone),
		LeftFoot:      skel.FindBone(s.LeftFootBone),
		RightFoot:     skel.FindBone(s.RightFootBone),
		LeftBall:      skel.FindBone(s.LeftBallBone),
		RightBall:     skel.FindBone(s.RightBallBone),
		PrimaryHand:   skel.FindBone(primary),
		SecondaryHand: skel.FindBone(secondary),
	}
	out, err := rebuild.Rebuild(cache, margins, bones, s.Facing, logger)
	if err != nil {
		return nil, fmt.Errorf("prep: rebuild: %w", err)
	}

	speedCurves := make(map[string]clip.Curve, len(s.SpeedCurveBones))
	for _, b := range s.SpeedCurveBones {
		speedCurves[curves.SpeedCurveName(b)] = curves.FootSpeed(cache, skel.FindBone(b), frameTime)
	}

	writes := []trackWrite{
		{s.RootBone, out.Root},
		{s.PelvisBone, out.Pelvis},
	}
	for _, w := range []trackWrite{
		{s.IKFootLeftBone, out.IKFootLeft},
		{s.IKFootRightBone, out.IKFootRight},
		{s.IKHandPrimaryBone, out.IKHandPrimary},
		{s.IKHandSecondaryBone, out.IKHandSecondary},
	} {
		if w.bone == "" {
			continue
		}
		if skel.FindBone(w.bone) < 0 {
			logger.Warn("IK bone not in skeleton, track not written", zap.String("bone", w.bone))
			continue
		}
		writes = append(writes, w)
	}

	var keyless []string
	for _, b := range skel.Bones() {
		if !a.HasBoneTrack(b.Name) {
			keyless = append(keyless, b.Name)
		}
	}

	snap := newSnapshot()
	written := make([]string, 0, len(writes)+len(keyless))
	for _, w := range writes {
		written = append(written, w.bone)
	}
	snap.captureTracks(a, append(written, keyless...), frames)
	if err := snap.captureCurves(a, sortedNames(speedCurves)); err != nil {
		logger.Error("cannot snapshot curve, nothing written", zap.Error(err))
		return nil, err
	}

	if err := apply(a, frames, keyless, writes, speedCurves); err != nil {
		return nil, err
	}

	logger.Info("processed clip",
		zap.Int("frames", frames),
		zap.Int("degraded_frames", out.Degraded),
		zap.Int("keyless_initialized", len(keyless)),
	)
	return &Result{
		ID:                 id,
		Frames:             frames,
		FrameRate:          frameRate,
		Margins:            margins,
		LowestVelocity:     lowest,
		Tracks:             out,
		Curves:             speedCurves,
		KeylessInitialized: keyless,
		Snapshot:           snap,
	}, nil
}

type trackWrite struct {
	bone string
	keys clip.Track
}

// apply performs every write of a pass inside one bracket. A failed write
// aborts the bracket so that none of the staged writes land.
func apply(a Asset, frames int, keyless []string, writes []trackWrite, speedCurves map[string]clip.Curve) (err error) {
	if bracket, ok := a.(clip.Bracketer); ok {
		bracket.OpenBracket("Transfer pelvis to root")
		defer func() {
			if err != nil {
				_ = bracket.AbortBracket()
				return
			}
			if cerr := bracket.CloseBracket(); cerr != nil {
				err = fmt.Errorf("prep: close bracket: %w", cerr)
			}
		}()
	}

	// Bones without keys get their frame 0 pose as a single key so that
	// later edits of their parents do not leave them undefined.
	for _, b := range keyless {
		if err := a.SetBoneTrack(b, clip.Track{a.LocalPose(b, 0)}); err != nil {
			return fmt.Errorf("prep: init keyless %s: %w", b, err)
		}
	}

	for _, w := range writes {
		if len(w.keys) != frames {
			return fmt.Errorf("prep: track %s has %d keys for %d frames", w.bone, len(w.keys), frames)
		}
		if err := a.UpdateBoneTrack(w.bone, 0, w.keys); err != nil {
			return fmt.Errorf("prep: write track %s: %w", w.bone, err)
		}
	}

	for _, name := range sortedNames(speedCurves) {
		if a.HasCurve(name) {
			if err := a.RemoveCurve(name); err != nil {
				return fmt.Errorf("prep: replace curve %s: %w", name, err)
			}
		}
		if err := a.SetCurve(name, speedCurves[name]); err != nil {
			return fmt.Errorf("prep: write curve %s: %w", name, err)
		}
	}
	return nil
}

// Paths returns the original pelvis path and the new root path of a result,
// for previews.
func (r *Result) Paths() (pelvis, root []mgl64.Vec3) {
	if r == nil || r.Tracks == nil {
		return nil, nil
	}
	return r.Tracks.PelvisPath, r.Tracks.RootPath
}
