// Package ik implements the inverse-kinematics solvers that bring a
// skeleton's end-effectors toward host-supplied targets: cyclic coordinate
// descent over an arbitrary joint chain, analytic two-bone solving, a
// cubic-Hermite spline solver for the spine, and a pole-vector plane
// disambiguation constraint. Every solver mutates a caller-owned relative
// pose array in place and leaves it a valid pose vector even on early exit.
package ik

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/constraint"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// TargetType distinguishes the different IK goal shapes a caller may
// author; the CCD solver itself only treats RotationAndPosition and
// HmdHead specially (both pull the tip fully to Pose) — RotationOnly,
// HipsRelativeRotationAndPosition, and Spline are carried through the
// shared target table for the node layer (InverseKinematics, SplineIK) to
// interpret.
type TargetType int

const (
	TargetRotationAndPosition TargetType = iota
	TargetRotationOnly
	TargetHmdHead
	TargetHipsRelativeRotationAndPosition
	TargetSpline
)

// Target is one IK goal: a joint to bring to Pose, in the skeleton's
// absolute (geometry-frame) coordinates unless relative (see Type).
type Target struct {
	JointIndex int
	Type       TargetType
	Pose       pose.Pose
	Weight     float32

	// FlexCoefficients are per-joint stiffness values (0=under pose,
	// 1=fully solved) consumed by SplineIK; unused by CCD/TwoBoneIK.
	FlexCoefficients []float32

	// PoleVector, when non-nil, carries the elbow/knee disambiguation
	// direction for solvers that consult it (PoleVectorConstraint reads
	// this from the node layer rather than the target table directly).
	PoleVector *mgl32.Vec3

	// root is the topmost non-invalid ancestor of JointIndex, recorded by
	// TargetTable.AddTarget so a target authored in a root-relative frame
	// can be converted into the skeleton's absolute frame.
	root int
}

// Root returns the topmost ancestor recorded for this target by
// TargetTable.AddTarget (skeleton.InvalidJointIndex if the target was
// never added through a table).
func (t Target) Root() int { return t.root }

// TargetTable is the per-node table of active IK targets, keyed by joint
// index. It tracks the maximum target joint index incrementally
// (MaxTargetIndex); CCD.Solve derives its own maximum from the targets it
// is given.
type TargetTable struct {
	targets        map[int]Target
	maxTargetIndex int
}

// NewTargetTable constructs an empty target table.
func NewTargetTable() *TargetTable {
	return &TargetTable{targets: make(map[int]Target), maxTargetIndex: -1}
}

// topmostAncestor walks parent[] from jointIndex to the root.
func topmostAncestor(skel *skeleton.Skeleton, jointIndex int) int {
	j := jointIndex
	for {
		p := skel.ParentIndex(j)
		if p == skeleton.InvalidJointIndex {
			return j
		}
		j = p
	}
}

// AddTarget installs or replaces the target for t.JointIndex, recording its
// topmost ancestor as Root() and growing maxTargetIndex if needed.
func (tt *TargetTable) AddTarget(skel *skeleton.Skeleton, t Target) {
	if tt.targets == nil {
		tt.targets = make(map[int]Target)
		tt.maxTargetIndex = -1
	}
	t.root = topmostAncestor(skel, t.JointIndex)
	tt.targets[t.JointIndex] = t
	if t.JointIndex > tt.maxTargetIndex {
		tt.maxTargetIndex = t.JointIndex
	}
}

// ClearTarget removes the target at jointIndex, if any, and recomputes
// maxTargetIndex as the true maximum of the remaining targets (-1 if none
// remain). This corrects the source's clearTarget, which only narrowed
// _maxTargetIndex when the cleared index happened to be smaller than the
// current maximum — backwards, since clearing the *largest* index left
// _maxTargetIndex stale and too high. See DESIGN.md "Open questions".
func (tt *TargetTable) ClearTarget(jointIndex int) {
	if tt.targets == nil {
		return
	}
	delete(tt.targets, jointIndex)
	max := -1
	for idx := range tt.targets {
		if idx > max {
			max = idx
		}
	}
	tt.maxTargetIndex = max
}

// ClearAllTargets empties the table.
func (tt *TargetTable) ClearAllTargets() {
	tt.targets = make(map[int]Target)
	tt.maxTargetIndex = -1
}

// MaxTargetIndex returns the largest joint index currently in the table,
// or -1 if empty.
func (tt *TargetTable) MaxTargetIndex() int { return tt.maxTargetIndex }

// Len reports the number of active targets.
func (tt *TargetTable) Len() int { return len(tt.targets) }

// Targets returns the active targets ordered by joint index, for
// deterministic iteration.
func (tt *TargetTable) Targets() []Target {
	out := make([]Target, 0, len(tt.targets))
	for _, t := range tt.targets {
		out = append(out, t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].JointIndex > out[j].JointIndex; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

const metThreshold = 0.001 // 1mm

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// applyJointConstraint runs rot through the per-joint constraint table, if
// one is registered for jointIndex.
func applyJointConstraint(constraints map[int]constraint.Rotation, jointIndex int, rot mgl32.Quat) mgl32.Quat {
	c, ok := constraints[jointIndex]
	if !ok {
		return rot
	}
	newRot, changed := c.Apply(rot)
	if !changed {
		return rot
	}
	return newRot
}

// refreshAbsoluteRange recomputes abs[lo..hi] (inclusive) from rel, relying
// on parent[i] < i: a parent outside the range is assumed already correct.
func refreshAbsoluteRange(skel *skeleton.Skeleton, rel, abs []pose.Pose, lo, hi int) {
	if lo < 0 {
		lo = 0
	}
	if hi > len(rel)-1 {
		hi = len(rel) - 1
	}
	for i := lo; i <= hi; i++ {
		parent := skel.ParentIndex(i)
		if parent == skeleton.InvalidJointIndex {
			abs[i] = rel[i]
		} else {
			abs[i] = abs[parent].Mul(rel[i])
		}
	}
}

// relativeRotationFromAbsolute converts a desired absolute rotation at
// jointIndex back to a parent-relative rotation.
func relativeRotationFromAbsolute(skel *skeleton.Skeleton, abs []pose.Pose, jointIndex int, absoluteRot mgl32.Quat) mgl32.Quat {
	parent := skel.ParentIndex(jointIndex)
	parentRot := mgl32.QuatIdent()
	if parent != skeleton.InvalidJointIndex {
		parentRot = abs[parent].Rot
	}
	return parentRot.Conjugate().Mul(absoluteRot).Normalize()
}
