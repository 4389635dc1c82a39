package ik

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTargetTableClearTargetRecomputesMax(t *testing.T) {
	tt := NewTargetTable()
	skel := buildThreeJointChain(t, 1)

	tt.AddTarget(skel, Target{JointIndex: 1})
	tt.AddTarget(skel, Target{JointIndex: 2})
	if got := tt.MaxTargetIndex(); got != 2 {
		t.Fatalf("MaxTargetIndex() after adding 1,2 = %d, want 2", got)
	}

	// Clearing the largest index must leave maxTargetIndex at the smaller
	// surviving index (1), not whatever a narrowing-only update would have
	// left stale at 2.
	tt.ClearTarget(2)
	if got := tt.MaxTargetIndex(); got != 1 {
		t.Errorf("MaxTargetIndex() after ClearTarget(2) = %d, want 1", got)
	}

	tt.ClearTarget(1)
	if got := tt.MaxTargetIndex(); got != -1 {
		t.Errorf("MaxTargetIndex() after clearing all targets = %d, want -1", got)
	}
}

func TestTargetTableTargetsSortedByJointIndex(t *testing.T) {
	tt := NewTargetTable()
	skel := buildThreeJointChain(t, 1)
	tt.AddTarget(skel, Target{JointIndex: 2})
	tt.AddTarget(skel, Target{JointIndex: 0})
	tt.AddTarget(skel, Target{JointIndex: 1})

	got := tt.Targets()
	if len(got) != 3 || got[0].JointIndex != 0 || got[1].JointIndex != 1 || got[2].JointIndex != 2 {
		t.Fatalf("Targets() = %+v, want sorted by JointIndex 0,1,2", got)
	}
}

func TestCCDSolveReachesReachableTarget(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()

	// Fully extended chain has length 2 along +X from the root; a target at
	// (1, 1, 0) relative to the root is within reach and should converge
	// close to the 1mm threshold.
	targetPos := mgl32.Vec3{1, 1, 0}
	table := NewTargetTable()
	table.AddTarget(skel, Target{
		JointIndex: 2,
		Type:       TargetRotationAndPosition,
		Pose:       pose.FromRotTrans(mgl32.QuatIdent(), targetPos),
	})

	solver := NewCCD()
	solver.Solve(skel, rel, table)

	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	if d := abs[2].Trans.Sub(targetPos).Len(); d > 0.01 {
		t.Errorf("CCD tip distance to target = %v, want <= 0.01 (abs tip=%v)", d, abs[2].Trans)
	}
}

func TestCCDSolveNoTargetsStillAppliesConstraints(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()
	solver := NewCCD()
	table := NewTargetTable()

	// No targets registered: Solve must be a safe no-op over rel's rotations
	// (no constraints registered either), returning a valid pose vector.
	solver.Solve(skel, rel, table)
	if len(rel) != skel.NumJoints() {
		t.Fatalf("Solve with no targets corrupted rel length: got %d want %d", len(rel), skel.NumJoints())
	}
}
