// Package skeleton implements the immutable joint topology shared read-only
// across every node in an avatar's animation tree: parent indices, joint
// names, bind/default poses, pre/post-rotation poses, and the mirror map.
package skeleton

import (
	"fmt"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// InvalidJointIndex is returned by lookups that fail to resolve a name.
const InvalidJointIndex = -1

// Joint is one entry in the skeleton's immutable joint table.
type Joint struct {
	Name   string
	Parent int // InvalidJointIndex for roots; otherwise Parent < own index.

	RelativeDefault pose.Pose
	RelativeBind    pose.Pose

	PreRotation  pose.Pose
	PostRotation pose.Pose

	// Mirror is the index of the joint that mirrors this one across the
	// sagittal plane; equal to the joint's own index when there is none.
	Mirror int
}

// Skeleton is the immutable, shareable joint hierarchy. Construct with
// NewBuilder; once built, a Skeleton is never mutated and may be shared
// across any number of avatar rigs running on different goroutines.
type Skeleton struct {
	joints          []Joint
	nameToIndex     map[string]int
	absoluteDefault []pose.Pose
	absoluteBind    []pose.Pose
	geometryOffset  mgl32.Mat4
}

// NumJoints returns the joint count.
func (s *Skeleton) NumJoints() int { return len(s.joints) }

// JointName returns the name of jointIndex, or "" if out of range.
func (s *Skeleton) JointName(jointIndex int) string {
	if jointIndex < 0 || jointIndex >= len(s.joints) {
		return ""
	}
	return s.joints[jointIndex].Name
}

// NameToJointIndex resolves a joint name to its index, or InvalidJointIndex.
func (s *Skeleton) NameToJointIndex(name string) int {
	if idx, ok := s.nameToIndex[name]; ok {
		return idx
	}
	return InvalidJointIndex
}

// LookUpJointIndices resolves a batch of names, preserving order; each
// unresolved name yields InvalidJointIndex in the corresponding slot.
func (s *Skeleton) LookUpJointIndices(names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		out[i] = s.NameToJointIndex(n)
	}
	return out
}

// ParentIndex returns the parent of jointIndex.
func (s *Skeleton) ParentIndex(jointIndex int) int {
	if jointIndex < 0 || jointIndex >= len(s.joints) {
		return InvalidJointIndex
	}
	return s.joints[jointIndex].Parent
}

// ChildrenOfJoint returns the indices of all joints whose parent is jointIndex.
func (s *Skeleton) ChildrenOfJoint(jointIndex int) []int {
	var out []int
	for i, j := range s.joints {
		if j.Parent == jointIndex {
			out = append(out, i)
		}
	}
	return out
}

// ChainDepth returns the number of ancestors between jointIndex and the root.
func (s *Skeleton) ChainDepth(jointIndex int) int {
	depth := 0
	for j := jointIndex; s.joints[j].Parent != InvalidJointIndex; j = s.joints[j].Parent {
		depth++
	}
	return depth
}

// RelativeDefaultPose returns the joint's relative default (rest) pose.
func (s *Skeleton) RelativeDefaultPose(jointIndex int) pose.Pose {
	return s.joints[jointIndex].RelativeDefault
}

// RelativeDefaultPoses returns the full relative default pose vector.
func (s *Skeleton) RelativeDefaultPoses() []pose.Pose {
	out := make([]pose.Pose, len(s.joints))
	for i, j := range s.joints {
		out[i] = j.RelativeDefault
	}
	return out
}

// AbsoluteDefaultPose returns the joint's absolute default pose.
func (s *Skeleton) AbsoluteDefaultPose(jointIndex int) pose.Pose {
	return s.absoluteDefault[jointIndex]
}

// AbsoluteDefaultPoses returns the full absolute default pose vector.
func (s *Skeleton) AbsoluteDefaultPoses() []pose.Pose {
	return append([]pose.Pose(nil), s.absoluteDefault...)
}

// AbsoluteBindPose returns the joint's absolute bind pose.
func (s *Skeleton) AbsoluteBindPose(jointIndex int) pose.Pose {
	return s.absoluteBind[jointIndex]
}

// GeometryOffset returns the authoring-format offset matrix (e.g. an FBX
// unit scale) given to the Builder. The skeleton only stores it: Build
// does not apply it to the bind or default poses.
func (s *Skeleton) GeometryOffset() mgl32.Mat4 { return s.geometryOffset }

// PreRotationPose returns the joint's pre-rotation pose (factored from the
// authoring format, e.g. FBX pre-rotations).
func (s *Skeleton) PreRotationPose(jointIndex int) pose.Pose {
	return s.joints[jointIndex].PreRotation
}

// PostRotationPose returns the joint's post-rotation pose.
func (s *Skeleton) PostRotationPose(jointIndex int) pose.Pose {
	return s.joints[jointIndex].PostRotation
}

// MirrorIndex returns the joint that mirrors jointIndex across the sagittal
// plane (itself, if none).
func (s *Skeleton) MirrorIndex(jointIndex int) int {
	return s.joints[jointIndex].Mirror
}

// GetAbsolutePose composes jointIndex's absolute pose from a relative pose
// vector, walking up the parent chain. Prefer ConvertRelativePosesToAbsolute
// when computing the whole skeleton at once.
func (s *Skeleton) GetAbsolutePose(jointIndex int, relativePoses []pose.Pose) pose.Pose {
	if s.joints[jointIndex].Parent == InvalidJointIndex {
		return relativePoses[jointIndex]
	}
	return s.GetAbsolutePose(s.joints[jointIndex].Parent, relativePoses).Mul(relativePoses[jointIndex])
}

// ConvertRelativePosesToAbsolute overwrites poses in place with their
// absolute equivalents, relying on the parent[i] < i topological invariant
// so every parent is already converted by the time its children are visited.
func (s *Skeleton) ConvertRelativePosesToAbsolute(poses []pose.Pose) {
	for i := range poses {
		parent := s.joints[i].Parent
		if parent != InvalidJointIndex {
			poses[i] = poses[parent].Mul(poses[i])
		}
	}
}

// ConvertAbsolutePosesToRelative overwrites poses in place with their
// relative equivalents. It walks i from high to low so that, by the
// parent[i] < i invariant, each joint is converted while its parent slot
// still holds the parent's absolute pose.
func (s *Skeleton) ConvertAbsolutePosesToRelative(poses []pose.Pose) {
	for i := len(poses) - 1; i >= 0; i-- {
		parent := s.joints[i].Parent
		if parent != InvalidJointIndex {
			poses[i] = poses[parent].Inverse().Mul(poses[i])
		}
	}
}

// MirrorRelativePoses mirrors a full relative pose vector through the
// skeleton's mirror map: each joint's mirrored pose is taken from its
// mirror partner's pose, reflected across the local X plane.
func (s *Skeleton) MirrorRelativePoses(poses []pose.Pose) []pose.Pose {
	out := make([]pose.Pose, len(poses))
	for i, j := range s.joints {
		out[i] = poses[j.Mirror].Mirror()
	}
	return out
}

// Builder constructs a Skeleton from joint data, following the teacher's
// functional builder convention (engine/model/model_builder.go).
type Builder struct {
	joints         []Joint
	geometryOffset mgl32.Mat4
}

// NewBuilder starts a skeleton build with an identity geometry offset.
func NewBuilder() *Builder {
	return &Builder{geometryOffset: mgl32.Ident4()}
}

// AddJoint appends a joint; parent must already have been added (parent
// index must be < the new joint's index, or InvalidJointIndex for a root).
// mirror may be InvalidJointIndex, meaning "resolve to self"; AddJoint
// replaces it with the new joint's own index.
func (b *Builder) AddJoint(j Joint) *Builder {
	if j.Mirror == InvalidJointIndex {
		j.Mirror = len(b.joints)
	}
	b.joints = append(b.joints, j)
	return b
}

// WithGeometryOffset sets the authoring geometry offset matrix.
func (b *Builder) WithGeometryOffset(m mgl32.Mat4) *Builder {
	b.geometryOffset = m
	return b
}

// Build validates the parent[i] < i invariant and computes the absolute
// default/bind pose caches.
func (b *Builder) Build() (*Skeleton, error) {
	s := &Skeleton{
		joints:         append([]Joint(nil), b.joints...),
		nameToIndex:    make(map[string]int, len(b.joints)),
		geometryOffset: b.geometryOffset,
	}
	for i, j := range s.joints {
		if j.Parent != InvalidJointIndex && j.Parent >= i {
			return nil, fmt.Errorf("skeleton: joint %d (%q) has parent %d which violates parent[i] < i", i, j.Name, j.Parent)
		}
		if _, exists := s.nameToIndex[j.Name]; exists {
			return nil, fmt.Errorf("skeleton: duplicate joint name %q", j.Name)
		}
		s.nameToIndex[j.Name] = i
	}

	s.absoluteDefault = make([]pose.Pose, len(s.joints))
	s.absoluteBind = make([]pose.Pose, len(s.joints))
	for i, j := range s.joints {
		if j.Parent == InvalidJointIndex {
			s.absoluteDefault[i] = j.RelativeDefault
			s.absoluteBind[i] = j.RelativeBind
		} else {
			s.absoluteDefault[i] = s.absoluteDefault[j.Parent].Mul(j.RelativeDefault)
			s.absoluteBind[i] = s.absoluteBind[j.Parent].Mul(j.RelativeBind)
		}
	}
	return s, nil
}
