package skeleton

import "motion-matching-prep/internal/mathutil"

// WorldPose maps bone index to world transform for one frame. Only the
// bones requested from the Sampler are present.
type WorldPose map[int]mathutil.Transform

// Sampler computes world transforms for a fixed subset of bones.
type Sampler struct {
	skel     *Skeleton
	targets  map[int]bool
	children map[int][]int
	missing  []string
}

// NewSampler resolves requested names once. Names absent from the skeleton
// are dropped; they are reported by Missing and never appear in a WorldPose.
func NewSampler(s *Skeleton, requested []string) *Sampler {
	sm := &Sampler{
		skel:     s,
		targets:  make(map[int]bool, len(requested)),
		children: make(map[int][]int),
	}
	for _, name := range requested {
		idx := s.FindBone(name)
		if idx < 0 {
			sm.missing = append(sm.missing, name)
			continue
		}
		sm.targets[idx] = true
	}

	// Ancestor closure of the targets; only these bones are ever visited.
	required := make(map[int]bool)
	for idx := range sm.targets {
		for cur := idx; cur != NoParent && !required[cur]; cur = s.bones[cur].Parent {
			required[cur] = true
		}
	}
	for i := range s.bones {
		if !required[i] {
			continue
		}
		if p := s.bones[i].Parent; p != NoParent {
			sm.children[p] = append(sm.children[p], i)
		}
	}
	return sm
}

// Missing lists requested names that are not in the skeleton.
func (sm *Sampler) Missing() []string { return sm.missing }

// Targets returns the number of resolvable requested bones.
func (sm *Sampler) Targets() int { return len(sm.targets) }

// Skeleton returns the hierarchy the sampler walks.
func (sm *Sampler) Skeleton() *Skeleton { return sm.skel }

type queued struct {
	bone   int
	parent mathutil.Transform
}

// Sample walks the hierarchy breadth-first from the root and stops once all
// target bones are resolved.
func (sm *Sampler) Sample(src PoseSource, frame int) WorldPose {
	out := make(WorldPose, len(sm.targets))
	if len(sm.targets) == 0 {
		return out
	}

	queue := []queued{{bone: 0, parent: mathutil.Identity()}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		b := sm.skel.bones[cur.bone]
		world := src.LocalPose(b.Name, frame).Compose(cur.parent)
		if sm.targets[cur.bone] {
			out[cur.bone] = world
			if len(out) == len(sm.targets) {
				break
			}
		}
		for _, child := range sm.children[cur.bone] {
			queue = append(queue, queued{bone: child, parent: world})
		}
	}
	return out
}
