package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
	"github.com/go-gl/mathgl/mgl32"
)

// JointRotationOverride binds one joint to a variable-map key holding its
// desired absolute rotation. List overrides in parent-before-child order
// so a child override sees its parent's already-overridden absolute pose.
type JointRotationOverride struct {
	JointIndex  int
	VariableKey string
}

// Controller overrides absolute rotations on named joints with quaternions
// read from the variable map; translation and scale pass through from the
// under pose (child[0], or the skeleton's relative default if childless).
type Controller struct {
	Base

	Overrides []JointRotationOverride

	buf    []pose.Pose
	absBuf []pose.Pose
}

func NewController(id string, overrides []JointRotationOverride) *Controller {
	return &Controller{Base: NewBase(id, KindController), Overrides: overrides}
}

// applyOverrides is the real implementation: it overrides the configured
// joints' absolute rotations against whatever under pose it is given.
// Evaluate and Overlay differ only in where that under pose comes from.
func (n *Controller) applyOverrides(skel *skeleton.Skeleton, vars *variant.Map, under []pose.Pose) []pose.Pose {
	nJ := skel.NumJoints()

	n.buf = ensureLen(n.buf, nJ)
	copy(n.buf, under)
	n.absBuf = ensureLen(n.absBuf, nJ)
	copy(n.absBuf, n.buf)
	skel.ConvertRelativePosesToAbsolute(n.absBuf)

	for _, ov := range n.Overrides {
		if ov.JointIndex < 0 || ov.JointIndex >= nJ {
			continue
		}
		parent := skel.ParentIndex(ov.JointIndex)
		parentAbsRot := mgl32.QuatIdent()
		if parent != skeleton.InvalidJointIndex {
			parentAbsRot = n.absBuf[parent].Rot
		}
		q := vars.LookupQuat(ov.VariableKey, n.absBuf[ov.JointIndex].Rot)
		rel := parentAbsRot.Conjugate().Mul(q).Normalize()

		n.buf[ov.JointIndex].Rot = rel
		n.absBuf[ov.JointIndex].Rot = q
	}
	return n.buf
}

func (n *Controller) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}

	var under []pose.Pose
	if children := n.Children(); len(children) > 0 {
		under = children[0].Evaluate(vars, ctx, dt, triggersOut)
	} else {
		under = skel.RelativeDefaultPoses()
	}
	return n.applyOverrides(skel, vars, under)
}

// Overlay keys off underPoses directly rather than its own child, so a
// Controller placed under an Overlay node manipulates the poses the
// enclosing overlay would otherwise use, not its own subtree.
func (n *Controller) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	return n.applyOverrides(skel, vars, underPoses)
}
