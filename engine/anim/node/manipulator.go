package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
	"github.com/go-gl/mathgl/mgl32"
)

// ManipSource selects where a Manipulator reads one component (rotation or
// translation) of a joint's override from.
type ManipSource int

const (
	SourceUnderPose ManipSource = iota
	SourceDefault
	SourceAbsolute
	SourceRelative
)

// JointManipulation configures one joint's override: independently for
// rotation and translation, which source to read from and (for Absolute
// and Relative) which variable-map key.
type JointManipulation struct {
	JointIndex int

	RotationSource ManipSource
	RotationVar    string

	TranslationSource ManipSource
	TranslationVar    string
}

// Manipulator is Controller's more general sibling: per joint, rotation
// and translation are independently sourced from {Absolute, Relative,
// UnderPose, Default}, and the resolved relative pose is lerped into the
// under pose by Alpha rather than replacing it outright.
type Manipulator struct {
	Base

	AlphaVar string
	Alpha    float32
	Joints   []JointManipulation

	buf    []pose.Pose
	absBuf []pose.Pose
}

func NewManipulator(id string, joints []JointManipulation) *Manipulator {
	return &Manipulator{Base: NewBase(id, KindManipulator), Alpha: 1, Joints: joints}
}

func (n *Manipulator) resolveAlpha(vars *variant.Map) float32 {
	if n.AlphaVar != "" && vars != nil {
		return vars.LookupFloat(n.AlphaVar, n.Alpha)
	}
	return n.Alpha
}

func (n *Manipulator) resolveRotation(skel *skeleton.Skeleton, vars *variant.Map, j int, src ManipSource, key string) mgl32.Quat {
	switch src {
	case SourceDefault:
		return skel.RelativeDefaultPose(j).Rot
	case SourceRelative:
		return vars.LookupQuat(key, n.buf[j].Rot).Normalize()
	case SourceAbsolute:
		q := vars.LookupQuat(key, n.absBuf[j].Rot)
		parent := skel.ParentIndex(j)
		parentAbsRot := mgl32.QuatIdent()
		if parent != skeleton.InvalidJointIndex {
			parentAbsRot = n.absBuf[parent].Rot
		}
		return parentAbsRot.Conjugate().Mul(q).Normalize()
	default: // SourceUnderPose
		return n.buf[j].Rot
	}
}

func (n *Manipulator) resolveTranslation(skel *skeleton.Skeleton, vars *variant.Map, j int, src ManipSource, key string) mgl32.Vec3 {
	switch src {
	case SourceDefault:
		return skel.RelativeDefaultPose(j).Trans
	case SourceRelative:
		return vars.LookupVec3(key, n.buf[j].Trans)
	case SourceAbsolute:
		t := vars.LookupVec3(key, n.absBuf[j].Trans)
		parent := skel.ParentIndex(j)
		if parent == skeleton.InvalidJointIndex {
			return t
		}
		return n.absBuf[parent].Inverse().TransformPoint(t)
	default: // SourceUnderPose
		return n.buf[j].Trans
	}
}

// applyManipulations is the real implementation: it resolves each
// configured joint's override against whatever under pose it is given and
// lerps it in by Alpha. Evaluate and Overlay differ only in where that
// under pose comes from.
func (n *Manipulator) applyManipulations(skel *skeleton.Skeleton, vars *variant.Map, under []pose.Pose) []pose.Pose {
	nJ := skel.NumJoints()

	n.buf = ensureLen(n.buf, nJ)
	copy(n.buf, under)
	n.absBuf = ensureLen(n.absBuf, nJ)
	copy(n.absBuf, n.buf)
	skel.ConvertRelativePosesToAbsolute(n.absBuf)

	alpha := n.resolveAlpha(vars)
	for _, jm := range n.Joints {
		if jm.JointIndex < 0 || jm.JointIndex >= nJ {
			continue
		}
		j := jm.JointIndex
		resolved := pose.Pose{
			Scale: under[j].Scale,
			Rot:   n.resolveRotation(skel, vars, j, jm.RotationSource, jm.RotationVar),
			Trans: n.resolveTranslation(skel, vars, j, jm.TranslationSource, jm.TranslationVar),
		}
		n.buf[j] = pose.Blend(under[j], resolved, alpha)
	}
	return n.buf
}

func (n *Manipulator) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
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
	return n.applyManipulations(skel, vars, under)
}

// Overlay keys off underPoses directly rather than its own child, so a
// Manipulator placed under an Overlay node manipulates the poses the
// enclosing overlay would otherwise use, not its own subtree.
func (n *Manipulator) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	return n.applyManipulations(skel, vars, underPoses)
}
