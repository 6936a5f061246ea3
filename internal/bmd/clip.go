package bmd

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/skeleton"
)

// Skeleton builds the bone hierarchy. Unnamed and dummy bones get generated
// names, duplicate names get an index suffix, and bones whose parent is not
// an earlier bone are attached to bone 0.
func (m *Model) Skeleton() (*skeleton.Skeleton, error) {
	if len(m.Bones) == 0 {
		return nil, fmt.Errorf("bmd: %s has no bones", m.Name)
	}
	bones := make([]skeleton.Bone, len(m.Bones))
	seen := make(map[string]bool, len(m.Bones))
	for i, b := range m.Bones {
		name := b.Name
		switch {
		case b.IsDummy:
			name = fmt.Sprintf("dummy_%02d", i)
		case name == "":
			name = fmt.Sprintf("bone_%02d", i)
		}
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true

		parent := b.Parent
		switch {
		case i == 0:
			parent = skeleton.NoParent
		case b.IsDummy || parent < 0 || parent >= i:
			parent = 0
		}
		bones[i] = skeleton.Bone{Name: name, Parent: parent}
	}
	return skeleton.New(bones)
}

// Clip converts one action into a clip sampled at frameRate. Each key becomes
// a frame. The rest pose of a bone is its first key of action 0.
func (m *Model) Clip(action int, frameRate float64) (*clip.Clip, error) {
	if action < 0 || action >= len(m.Actions) {
		return nil, fmt.Errorf("bmd: action %d out of range [0, %d)", action, len(m.Actions))
	}
	if frameRate <= 0 {
		return nil, fmt.Errorf("bmd: invalid frame rate %g", frameRate)
	}
	skel, err := m.Skeleton()
	if err != nil {
		return nil, err
	}

	frames := m.Actions[action].Keys
	var duration float64
	if frames > 1 {
		duration = float64(frames-1) / frameRate
	}

	rest := make([]mathutil.Transform, len(m.Bones))
	for i, b := range m.Bones {
		rest[i] = mathutil.Identity()
		if len(b.Keys) > 0 && len(b.Keys[0].Positions) > 0 {
			rest[i] = keyTransform(b.Keys[0], 0)
		}
	}

	c, err := clip.New(fmt.Sprintf("%s_action%02d", m.Name, action), skel, rest, frames, duration)
	if err != nil {
		return nil, err
	}

	for i, b := range m.Bones {
		if b.IsDummy || action >= len(b.Keys) {
			continue
		}
		keys := b.Keys[action]
		if len(keys.Positions) != frames || frames == 0 {
			continue
		}
		track := make(clip.Track, frames)
		for k := range track {
			track[k] = keyTransform(keys, k)
		}
		if err := c.SetBoneTrack(skel.BoneName(i), track); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func keyTransform(keys BoneKeys, k int) mathutil.Transform {
	p := keys.Positions[k]
	r := keys.Rotations[k]
	return mathutil.NewTransform(
		mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])},
		mathutil.EulerToQuat(float64(r[0]), float64(r[1]), float64(r[2])),
	)
}
