package rig

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/motionrig/engine/anim/node"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
	"github.com/go-gl/mathgl/mgl32"
)

type panickyLogger struct {
	warnings []string
}

func (l *panickyLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, format)
}

// panicNode always panics from Evaluate, simulating a misconfigured tree.
type panicNode struct {
	node.Base
}

func (p *panicNode) Evaluate(vars *variant.Map, ctx *node.Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	panic("boom")
}

func (p *panicNode) Overlay(vars *variant.Map, ctx *node.Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return p.Evaluate(vars, ctx, dt, triggersOut)
}

func TestPoolAddRemoveGetLen(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{0, 0, 0})
	r1, _ := New("one", skel, newFakeRootNode(pose.Identity))
	r2, _ := New("two", skel, newFakeRootNode(pose.Identity))

	p := NewPool(WithWorkers(2))
	defer p.Close()

	p.Add(r1)
	p.Add(r2)
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	if p.Get("one") != r1 {
		t.Errorf("Get(%q) did not return the registered rig", "one")
	}

	p.Remove("one")
	if p.Len() != 1 {
		t.Errorf("Len() after Remove = %d, want 1", p.Len())
	}
	if p.Get("one") != nil {
		t.Errorf("Get(%q) after Remove = non-nil, want nil", "one")
	}
}

func TestPoolStepAllStepsEveryRig(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{0, 0, 0})
	root1 := newFakeRootNode(pose.Identity)
	root2 := newFakeRootNode(pose.Identity)
	r1, _ := New("one", skel, root1)
	r2, _ := New("two", skel, root2)

	p := NewPool(WithWorkers(2))
	defer p.Close()
	p.Add(r1)
	p.Add(r2)

	p.StepAll(1.0 / 30)

	if root1.evalCount != 1 || root2.evalCount != 1 {
		t.Errorf("evalCounts after StepAll = %d, %d, want 1, 1", root1.evalCount, root2.evalCount)
	}
}

func TestStepRigSafelyRecoversPanicAndLogs(t *testing.T) {
	skel := oneJointSkeleton(t, mgl32.Vec3{0, 0, 0})
	r, err := New("bad", skel, &panicNode{Base: node.NewBase("bad-root", node.KindClip)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log := &panickyLogger{}
	r.Log = log

	done := make(chan struct{})
	go func() {
		stepRigSafely(r, 1.0/30)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stepRigSafely did not return; panic was not recovered")
	}

	if len(log.warnings) != 1 {
		t.Errorf("logged %d warnings, want 1", len(log.warnings))
	}
}
