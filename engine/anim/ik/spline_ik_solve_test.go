package ik

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSolveSplineKeepsMidWithinLengthClamp(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()
	underAbs := skel.AbsoluteDefaultPoses()

	joints := PrecomputeJoints(skel, 0, 2, []int{1}, 0.5, 1.0)
	if len(joints) != 1 || joints[0].JointIndex != 1 {
		t.Fatalf("PrecomputeJoints = %+v, want single entry for joint 1", joints)
	}

	baseAbs := underAbs[0]
	// Bend the tip upward without stretching the chain length beyond reach.
	tipAbs := pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{1, 1, 0})

	SolveSpline(skel, rel, underAbs, baseAbs, tipAbs, joints, func(JointInfo) float32 { return 1 }, 0.5, 1.0)

	defaultLen := skel.RelativeDefaultPose(1).Trans.Len()
	gotLen := rel[1].Trans.Len()
	lo, hi := defaultLen*0.85, defaultLen*1.15
	if gotLen < lo-1e-4 || gotLen > hi+1e-4 {
		t.Errorf("SolveSpline mid joint local length = %v, want within [%v,%v]", gotLen, lo, hi)
	}
}

func TestSolveSplineZeroFlexLeavesUnderPose(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()
	underAbs := skel.AbsoluteDefaultPoses()
	joints := PrecomputeJoints(skel, 0, 2, []int{1}, 0.5, 1.0)

	baseAbs := underAbs[0]
	tipAbs := pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{1, 1, 0})

	before := rel[1]
	SolveSpline(skel, rel, underAbs, baseAbs, tipAbs, joints, func(JointInfo) float32 { return 0 }, 0.5, 1.0)
	if !pose.ApproxEqual(rel[1], before, 1e-4) {
		t.Errorf("SolveSpline with flex=0 changed joint 1's pose: got %+v, want %+v", rel[1], before)
	}
}
