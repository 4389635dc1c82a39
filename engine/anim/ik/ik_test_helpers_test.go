package ik

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// buildThreeJointChain builds a straight three-joint chain (root, mid, tip)
// along +X, each bone boneLen long, with identity rotations at rest.
func buildThreeJointChain(t *testing.T, boneLen float32) *skeleton.Skeleton {
	t.Helper()
	b := skeleton.NewBuilder()
	b.AddJoint(skeleton.Joint{
		Name:            "root",
		Parent:          skeleton.InvalidJointIndex,
		RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{0, 0, 0}),
		RelativeBind:    pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{0, 0, 0}),
		Mirror:          skeleton.InvalidJointIndex,
	})
	b.AddJoint(skeleton.Joint{
		Name:            "mid",
		Parent:          0,
		RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{boneLen, 0, 0}),
		RelativeBind:    pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{boneLen, 0, 0}),
		Mirror:          skeleton.InvalidJointIndex,
	})
	b.AddJoint(skeleton.Joint{
		Name:            "tip",
		Parent:          1,
		RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{boneLen, 0, 0}),
		RelativeBind:    pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{boneLen, 0, 0}),
		Mirror:          skeleton.InvalidJointIndex,
	})
	skel, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return skel
}
