// Package skeleton holds the immutable bone hierarchy and the forward
// kinematics used to turn per-frame local poses into world transforms.
package skeleton

import (
	"errors"
	"fmt"

	"motion-matching-prep/internal/mathutil"
)

// NoParent marks the root bone.
const NoParent = -1

var (
	// ErrEmpty is returned for a skeleton without bones.
	ErrEmpty = errors.New("skeleton: no bones")

	// ErrBadHierarchy is returned when the parent-before-child ordering is violated.
	ErrBadHierarchy = errors.New("skeleton: invalid hierarchy")
)

// Provider is the skeleton as exposed by an external asset.
// Parents must always have a lower index than their children.
type Provider interface {
	NumBones() int
	BoneName(index int) string
	ParentIndex(index int) int
	FindBone(name string) int
}

// PoseSource returns the local pose of a bone at a frame. Bones without
// per-frame keys must still yield a deterministic rest value.
type PoseSource interface {
	LocalPose(bone string, frame int) mathutil.Transform
}

// Bone is one joint in the hierarchy.
type Bone struct {
	Name   string
	Index  int
	Parent int
}

// Skeleton is an ordered, immutable bone list. Index 0 is the root.
type Skeleton struct {
	bones  []Bone
	byName map[string]int
}

// New validates bones and builds a Skeleton. Indices are taken from slice
// position; Bone.Index is overwritten.
func New(bones []Bone) (*Skeleton, error) {
	if len(bones) == 0 {
		return nil, ErrEmpty
	}

	s := &Skeleton{
		bones:  make([]Bone, len(bones)),
		byName: make(map[string]int, len(bones)),
	}
	for i, b := range bones {
		b.Index = i
		switch {
		case i == 0 && b.Parent != NoParent:
			return nil, fmt.Errorf("%w: root %q has parent %d", ErrBadHierarchy, b.Name, b.Parent)
		case i > 0 && (b.Parent < 0 || b.Parent >= i):
			return nil, fmt.Errorf("%w: bone %q (%d) has parent %d", ErrBadHierarchy, b.Name, i, b.Parent)
		}
		if _, dup := s.byName[b.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate bone name %q", ErrBadHierarchy, b.Name)
		}
		s.byName[b.Name] = i
		s.bones[i] = b
	}
	return s, nil
}

// FromProvider snapshots an external skeleton so the rest of a pass can
// address bones by index.
func FromProvider(p Provider) (*Skeleton, error) {
	if s, ok := p.(*Skeleton); ok {
		return s, nil
	}
	n := p.NumBones()
	bones := make([]Bone, n)
	for i := 0; i < n; i++ {
		bones[i] = Bone{Name: p.BoneName(i), Parent: p.ParentIndex(i)}
	}
	return New(bones)
}

// NumBones implements Provider.
func (s *Skeleton) NumBones() int { return len(s.bones) }

// BoneName implements Provider.
func (s *Skeleton) BoneName(index int) string { return s.bones[index].Name }

// ParentIndex implements Provider.
func (s *Skeleton) ParentIndex(index int) int { return s.bones[index].Parent }

// FindBone implements Provider. Returns -1 for unknown names.
func (s *Skeleton) FindBone(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

// Bones returns the bone list. Callers must not modify it.
func (s *Skeleton) Bones() []Bone { return s.bones }

// Missing returns the names not present in the skeleton, in input order.
func (s *Skeleton) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if _, ok := s.byName[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// FullPose computes the world transform of every bone at frame. Parents come
// before children, so a single forward pass is enough.
func FullPose(s *Skeleton, src PoseSource, frame int) []mathutil.Transform {
	worlds := make([]mathutil.Transform, len(s.bones))
	for i, b := range s.bones {
		local := src.LocalPose(b.Name, frame)
		if b.Parent == NoParent {
			worlds[i] = local
			continue
		}
		worlds[i] = local.Compose(worlds[b.Parent])
	}
	return worlds
}
