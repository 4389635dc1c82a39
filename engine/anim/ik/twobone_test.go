package ik

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSolveTwoBoneReachesTarget(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()

	targetRot := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1})
	target := pose.FromRotTrans(targetRot, mgl32.Vec3{1, 1, 0})

	SolveTwoBone(skel, rel, 0, 1, 2, mgl32.Vec3{0, 0, 1}, target)

	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	if d := abs[2].Trans.Sub(target.Trans).Len(); d > 1e-3 {
		t.Errorf("SolveTwoBone tip position error = %v, want <= 1e-3 (got %v want %v)", d, abs[2].Trans, target.Trans)
	}
	if abs[2].Rot.Dot(target.Rot) < 0.9999 {
		t.Errorf("SolveTwoBone tip rotation = %+v, want ~%+v", abs[2].Rot, target.Rot)
	}
}

func TestSolveTwoBoneUnreachableTargetStillProducesValidPose(t *testing.T) {
	skel := buildThreeJointChain(t, 1)
	rel := skel.RelativeDefaultPoses()

	// Distance 10 exceeds r0+r1=2: the law-of-cosines branch is skipped, but
	// the base-alignment and tip-rotation-match steps still run.
	target := pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{10, 0, 0})
	SolveTwoBone(skel, rel, 0, 1, 2, mgl32.Vec3{0, 0, 1}, target)

	for i, p := range rel {
		if p.Rot.Dot(p.Rot) < 0.99 {
			t.Errorf("joint %d rotation not unit-normalized after unreachable solve: %+v", i, p.Rot)
		}
	}
}
