package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// DefaultPose is a leaf that returns the skeleton's relative default poses
// unchanged, ignoring any children.
type DefaultPose struct {
	Base
	buf []pose.Pose
}

func NewDefaultPose(id string) *DefaultPose {
	return &DefaultPose{Base: NewBase(id, KindDefaultPose)}
}

func (n *DefaultPose) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	n.buf = ensureLen(n.buf, skel.NumJoints())
	for i := range n.buf {
		n.buf[i] = skel.RelativeDefaultPose(i)
	}
	return n.buf
}

func (n *DefaultPose) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
