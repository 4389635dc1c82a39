package rig

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/node"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeRootNode is a minimal node.Node test double that counts its Evaluate
// calls, records how many triggers were already set on entry, and fires a
// trigger of its own each Evaluate.
type fakeRootNode struct {
	node.Base
	evalCount          int
	triggersSeenAtEval int
	outPose            pose.Pose
	// perStep, when true, offsets outPose.Trans.X by evalCount so each Step
	// produces a distinguishable pose (used to verify recompute vs. cache).
	perStep bool
}

func newFakeRootNode(p pose.Pose) *fakeRootNode {
	return &fakeRootNode{Base: node.NewBase("root", node.KindClip), outPose: p}
}

func (f *fakeRootNode) Evaluate(vars *variant.Map, ctx *node.Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	f.evalCount++
	f.triggersSeenAtEval = len(triggersOut.Triggers())
	triggersOut.SetTrigger("rootFired")
	p := f.outPose
	if f.perStep {
		p.Trans[0] += float32(f.evalCount)
	}
	return []pose.Pose{p}
}

func (f *fakeRootNode) Overlay(vars *variant.Map, ctx *node.Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return f.Evaluate(vars, ctx, dt, triggersOut)
}

func oneJointSkeleton(t *testing.T, trans mgl32.Vec3) *skeleton.Skeleton {
	t.Helper()
	b := skeleton.NewBuilder()
	b.AddJoint(skeleton.Joint{
		Name:            "root",
		Parent:          skeleton.InvalidJointIndex,
		RelativeDefault: pose.FromRotTrans(mgl32.QuatIdent(), trans),
		RelativeBind:    pose.FromRotTrans(mgl32.QuatIdent(), trans),
		Mirror:          skeleton.InvalidJointIndex,
	})
	skel, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return skel
}

func TestNewRejectsNilSkeletonOrRoot(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{0, 0, 0})
	root := newFakeRootNode(pose.Identity)

	if _, err := New("a", nil, root); err == nil {
		t.Errorf("New with nil skeleton: want error, got nil")
	}
	if _, err := New("a", skel, nil); err == nil {
		t.Errorf("New with nil root: want error, got nil")
	}
	if _, err := New("a", skel, root); err != nil {
		t.Errorf("New with valid args: unexpected error %v", err)
	}
}

func TestStepClearsTriggersBeforeEvaluatingAndReturnsPoses(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{1, 0, 0})
	root := newFakeRootNode(pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{2, 0, 0}))
	r, err := New("avatar", skel, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := r.Step(1.0 / 30)
	if len(out) != 1 || out[0].Trans != (mgl32.Vec3{2, 0, 0}) {
		t.Fatalf("Step() = %+v, want single pose with Trans (2,0,0)", out)
	}
	if root.triggersSeenAtEval != 0 {
		t.Errorf("Evaluate saw %d pre-existing triggers on first Step, want 0", root.triggersSeenAtEval)
	}
	if _, ok := r.Triggers()["rootFired"]; !ok {
		t.Errorf("Triggers() missing \"rootFired\" set during Step")
	}

	// Second Step must present an empty trigger set to Evaluate again: the
	// trigger the previous Step fired must not leak into the next frame.
	r.Step(1.0 / 30)
	if root.triggersSeenAtEval != 0 {
		t.Errorf("Evaluate saw %d leftover triggers on second Step, want 0 (ClearTriggers must run first)", root.triggersSeenAtEval)
	}
	if root.evalCount != 2 {
		t.Errorf("root evaluated %d times, want 2", root.evalCount)
	}
}

func TestAbsolutePosesCachesUntilNextStep(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{1, 0, 0})
	root := newFakeRootNode(pose.FromRotTrans(mgl32.QuatIdent(), mgl32.Vec3{3, 0, 0}))
	root.perStep = true
	r, err := New("avatar", skel, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := r.AbsolutePoses(); got != nil {
		t.Errorf("AbsolutePoses() before any Step = %+v, want nil", got)
	}

	r.Step(1.0 / 30)
	abs1 := r.AbsolutePoses()
	if len(abs1) != 1 || abs1[0].Trans[0] != 4 {
		t.Fatalf("AbsolutePoses() after step 1 = %+v, want Trans.X == 4 (3 base + 1st-step offset)", abs1)
	}

	// A second AbsolutePoses call without an intervening Step must return
	// the same cached values, not re-derive from a changed root evaluation.
	abs2 := r.AbsolutePoses()
	if abs2[0].Trans[0] != 4 {
		t.Errorf("AbsolutePoses() without an intervening Step = %+v, want Trans.X still 4", abs2)
	}

	r.Step(1.0 / 30)
	abs3 := r.AbsolutePoses()
	if abs3[0].Trans[0] != 5 {
		t.Errorf("AbsolutePoses() after step 2 = %+v, want Trans.X == 5 (3 base + 2nd-step offset)", abs3)
	}
}

func TestVarsReturnsSameMapForHostToPopulate(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{0, 0, 0})
	root := newFakeRootNode(pose.Identity)
	r, err := New("avatar", skel, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.Vars().Set("speed", variant.Float(1.5))
	if got := r.Vars().LookupFloat("speed", 0); got != 1.5 {
		t.Errorf("Vars().LookupFloat(\"speed\") = %v, want 1.5", got)
	}
}
