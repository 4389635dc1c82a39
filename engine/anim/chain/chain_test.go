package chain

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// buildArmSkeleton constructs a straight 4-joint chain A->B->C->D at unit
// spacing along X, matching the two-bone IK test fixture shape.
func buildArmSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	b := skeleton.NewBuilder()
	b.AddJoint(skeleton.Joint{Name: "A", Parent: skeleton.InvalidJointIndex, RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{0, 0, 0})})
	b.AddJoint(skeleton.Joint{Name: "B", Parent: 0, RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{1, 0, 0})})
	b.AddJoint(skeleton.Joint{Name: "C", Parent: 1, RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{1, 0, 0})})
	b.AddJoint(skeleton.Joint{Name: "D", Parent: 2, RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{1, 0, 0})})
	skel, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return skel
}

func TestChainBuildFromRelativePoses(t *testing.T) {
	skel := buildArmSkeleton(t)
	rel := skel.RelativeDefaultPoses()

	var c Chain
	if !c.BuildFromRelativePoses(skel, rel, 3) {
		t.Fatal("BuildFromRelativePoses returned false")
	}
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}

	// tip (D, index 3) should be at absolute x=3; base (A, index 0) at x=0.
	tipAbs := c.GetAbsolutePoseFromJointIndex(3)
	if !pose.ApproxEqual(tipAbs, pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{3, 0, 0}), 1e-5) {
		t.Errorf("tip absolute = %+v, want trans (3,0,0)", tipAbs.Trans)
	}
	baseAbs := c.GetAbsolutePoseFromJointIndex(0)
	if !pose.ApproxEqual(baseAbs, pose.Identity, 1e-5) {
		t.Errorf("base absolute = %+v, want identity", baseAbs.Trans)
	}
}

func TestChainBuildFromRelativePosesUpTo(t *testing.T) {
	skel := buildArmSkeleton(t)
	rel := skel.RelativeDefaultPoses()

	var c Chain
	if !c.BuildFromRelativePosesUpTo(skel, rel, 3, 1) {
		t.Fatal("BuildFromRelativePosesUpTo returned false")
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (D, C, B)", c.Len())
	}
}

func TestChainSetRelativePoseAtJointIndexDirtiesTipward(t *testing.T) {
	skel := buildArmSkeleton(t)
	rel := skel.RelativeDefaultPoses()

	var c Chain
	c.BuildFromRelativePoses(skel, rel, 3)

	// rotate the base joint (A, index 0) by 90deg about Z; D should move.
	rot := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 0, 1})
	if !c.SetRelativePoseAtJointIndex(0, pose.FromRotTrans(rot, mgl32.Vec3{0, 0, 0})) {
		t.Fatal("SetRelativePoseAtJointIndex(0) returned false")
	}
	tipAbs := c.GetAbsolutePoseFromJointIndex(3)
	want := mgl32.Vec3{0, 3, 0}
	if !vecClose(tipAbs.Trans, want, 1e-3) {
		t.Errorf("after rotating base 90deg, tip trans = %v, want ~%v", tipAbs.Trans, want)
	}
}

func TestChainBlendEndpointsAndMidpoint(t *testing.T) {
	skel := buildArmSkeleton(t)
	relA := skel.RelativeDefaultPoses()
	relB := skel.RelativeDefaultPoses()
	relB[1].Trans = mgl32.Vec3{2, 0, 0}

	var a, b Chain
	a.BuildFromRelativePoses(skel, relA, 3)
	b.BuildFromRelativePoses(skel, relB, 3)

	var blended Chain
	blended.BuildFromRelativePoses(skel, relA, 3)
	blended.Blend(&b, 0)
	if got := blended.GetAbsolutePoseFromJointIndex(1).Trans; !vecClose(got, mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Blend(alpha=0) joint 1 trans = %v, want (1,0,0)", got)
	}

	blended.BuildFromRelativePoses(skel, relA, 3)
	blended.Blend(&b, 1)
	if got := blended.GetAbsolutePoseFromJointIndex(1).Trans; !vecClose(got, mgl32.Vec3{2, 0, 0}, 1e-5) {
		t.Errorf("Blend(alpha=1) joint 1 trans = %v, want (2,0,0)", got)
	}

	blended.BuildFromRelativePoses(skel, relA, 3)
	blended.Blend(&b, 0.5)
	if got := blended.GetAbsolutePoseFromJointIndex(1).Trans; !vecClose(got, mgl32.Vec3{1.5, 0, 0}, 1e-5) {
		t.Errorf("Blend(alpha=0.5) joint 1 trans = %v, want (1.5,0,0)", got)
	}
}

func TestChainOutputRelativePoses(t *testing.T) {
	skel := buildArmSkeleton(t)
	rel := skel.RelativeDefaultPoses()

	var c Chain
	c.BuildFromRelativePoses(skel, rel, 3)
	c.SetRelativePoseAtJointIndex(2, pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{9, 9, 9}))

	out := make([]pose.Pose, skel.NumJoints())
	for i := range out {
		out[i] = pose.Identity
	}
	c.OutputRelativePoses(out)
	if !vecClose(out[2].Trans, mgl32.Vec3{9, 9, 9}, 1e-5) {
		t.Errorf("OutputRelativePoses joint 2 trans = %v, want (9,9,9)", out[2].Trans)
	}
}

func vecClose(a, b mgl32.Vec3, eps float32) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > eps {
			return false
		}
	}
	return true
}
