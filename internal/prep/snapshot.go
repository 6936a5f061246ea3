package prep

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"motion-matching-prep/internal/clip"
)

// Snapshot holds the tracks and curves a pass overwrote, so the pass can be
// undone with Revert. It is a plain value owned by the caller.
type Snapshot struct {
	ID uuid.UUID

	// Tracks and Curves hold the previous content of everything that existed
	// before the pass. NoTrack and NoCurve list names that did not exist and
	// must be removed on revert.
	Tracks  map[string]clip.Track
	NoTrack []string
	Curves  map[string]clip.Curve
	NoCurve []string
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		ID:     uuid.New(),
		Tracks: make(map[string]clip.Track),
		Curves: make(map[string]clip.Curve),
	}
}

// captureTracks records the current state of bones. Without a Reader only
// the source's local poses over the clip can be recorded, so bones with a
// track are rebuilt from their sampled local poses.
func (s *Snapshot) captureTracks(a Asset, bones []string, frameCount int) {
	reader, hasReader := a.(clip.Reader)
	for _, b := range bones {
		if _, done := s.Tracks[b]; done || slices.Contains(s.NoTrack, b) {
			continue
		}
		if !a.HasBoneTrack(b) {
			s.NoTrack = append(s.NoTrack, b)
			continue
		}
		if hasReader {
			if tr, ok := reader.BoneTrack(b); ok {
				s.Tracks[b] = tr
				continue
			}
		}
		tr := make(clip.Track, frameCount)
		for i := range tr {
			tr[i] = a.LocalPose(b, i)
		}
		s.Tracks[b] = tr
	}
}

// captureCurves records the current curves. A curve that exists but cannot
// be read is an error, since the pass would replace it with no way back.
func (s *Snapshot) captureCurves(a Asset, names []string) error {
	reader, hasReader := a.(clip.Reader)
	for _, n := range names {
		if !a.HasCurve(n) {
			s.NoCurve = append(s.NoCurve, n)
			continue
		}
		if !hasReader {
			return fmt.Errorf("%w: %s", ErrUnreadableCurve, n)
		}
		c, ok := reader.Curve(n)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnreadableCurve, n)
		}
		s.Curves[n] = c
	}
	return nil
}

// Revert reapplies snap to sink inside a bracket when the sink supports one.
func Revert(sink clip.Sink, snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	bracket, bracketed := sink.(clip.Bracketer)
	if bracketed {
		bracket.OpenBracket("Revert pelvis to root transfer")
	}

	err := revert(sink, snap)

	if bracketed {
		if err != nil {
			_ = bracket.AbortBracket()
		} else if cerr := bracket.CloseBracket(); cerr != nil {
			err = fmt.Errorf("prep: revert: %w", cerr)
		}
	}
	return err
}

func revert(sink clip.Sink, snap *Snapshot) error {
	for _, name := range sortedNames(snap.Tracks) {
		if err := sink.SetBoneTrack(name, snap.Tracks[name]); err != nil {
			return fmt.Errorf("prep: revert track %s: %w", name, err)
		}
	}
	for _, name := range snap.NoTrack {
		if !sink.HasBoneTrack(name) {
			continue
		}
		if err := sink.RemoveBoneTrack(name); err != nil {
			return fmt.Errorf("prep: revert track %s: %w", name, err)
		}
	}
	for _, name := range sortedNames(snap.Curves) {
		if sink.HasCurve(name) {
			if err := sink.RemoveCurve(name); err != nil {
				return fmt.Errorf("prep: revert curve %s: %w", name, err)
			}
		}
		if err := sink.SetCurve(name, snap.Curves[name]); err != nil {
			return fmt.Errorf("prep: revert curve %s: %w", name, err)
		}
	}
	for _, name := range snap.NoCurve {
		if !sink.HasCurve(name) {
			continue
		}
		if err := sink.RemoveCurve(name); err != nil {
			return fmt.Errorf("prep: revert curve %s: %w", name, err)
		}
	}
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
