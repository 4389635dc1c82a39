package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/ik"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// SplineIK fits a cubic Hermite spline across a spine-like joint chain
// (base=hips, mid=chest, tip=head in the documented usage) and reshapes
// every intermediate joint to lie on it, weighted per joint by a flex
// (stiffness) coefficient, per section 4.7.4.
type SplineIK struct {
	Base

	BaseJointName, TipJointName string
	baseIdx, tipIdx             int
	intermediates               []int
	joints                       []ik.JointInfo
	resolved                     bool

	// TangentScaleBase/TangentScaleTip scale the endpoint tangents; the
	// documented spine usage is 0.5 at the hips and 1.0 at the head.
	TangentScaleBase float32
	TangentScaleTip  float32

	// FlexCoefficients is either exactly len(intermediates) long (one
	// entry per joint) or shorter, in which case each joint's coefficient
	// is linearly interpolated from the shorter list by its spline ratio.
	FlexCoefficients []float32

	TipPositionVar string
	TipRotationVar string

	Enabled    bool
	EnabledVar string

	InterpDuration float32

	enabledPrev   bool
	everEvaluated bool
	env           ikInterpEnvelope
	buf           []pose.Pose
}

// NewSplineIK constructs a spline node with the documented spine tangent
// scales (0.5 at base, 1.0 at tip) and a 15-frame (0.5s) enable/disable
// fade, like every other IK node.
func NewSplineIK(id, base, tip string) *SplineIK {
	return &SplineIK{
		Base:             NewBase(id, KindSplineIK),
		BaseJointName:    base,
		TipJointName:     tip,
		TangentScaleBase: 0.5,
		TangentScaleTip:  1.0,
		Enabled:          true,
		InterpDuration:   15,
	}
}

func (n *SplineIK) resolveEnabled(vars *variant.Map) bool {
	if n.EnabledVar != "" && vars != nil {
		return vars.LookupBool(n.EnabledVar, n.Enabled)
	}
	return n.Enabled
}

func (n *SplineIK) SetSkeleton(skel *skeleton.Skeleton) {
	n.Base.SetSkeleton(skel)
	n.resolved = false
	n.joints = nil
	n.intermediates = nil
	if skel == nil {
		return
	}
	n.baseIdx = skel.NameToJointIndex(n.BaseJointName)
	n.tipIdx = skel.NameToJointIndex(n.TipJointName)
	if n.baseIdx == skeleton.InvalidJointIndex || n.tipIdx == skeleton.InvalidJointIndex {
		return
	}

	var chain []int
	for j := skel.ParentIndex(n.tipIdx); j != n.baseIdx && j != skeleton.InvalidJointIndex; j = skel.ParentIndex(j) {
		chain = append(chain, j)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	n.intermediates = chain
	n.joints = ik.PrecomputeJoints(skel, n.baseIdx, n.tipIdx, n.intermediates, n.TangentScaleBase, n.TangentScaleTip)
	n.resolved = true
}

func (n *SplineIK) flexFor(ji ik.JointInfo) float32 {
	coeffs := n.FlexCoefficients
	if len(coeffs) == 0 {
		return 1
	}
	if len(coeffs) == len(n.joints) {
		for i, j := range n.joints {
			if j.JointIndex == ji.JointIndex {
				return coeffs[i]
			}
		}
		return 1
	}
	scaled := ji.Ratio * float32(len(coeffs)-1)
	lo := int(scaled)
	if lo >= len(coeffs)-1 {
		return coeffs[len(coeffs)-1]
	}
	frac := scaled - float32(lo)
	return coeffs[lo] + frac*(coeffs[lo+1]-coeffs[lo])
}

func (n *SplineIK) underPoses(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, skel *skeleton.Skeleton) []pose.Pose {
	if children := n.Children(); len(children) > 0 {
		return children[0].Evaluate(vars, ctx, dt, triggersOut)
	}
	return skel.RelativeDefaultPoses()
}

func (n *SplineIK) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	nJ := skel.NumJoints()
	under := n.underPoses(vars, ctx, dt, triggersOut, skel)

	n.buf = ensureLen(n.buf, nJ)

	if !n.resolved || len(n.intermediates) == 0 {
		copy(n.buf, under)
		n.Log.Warnf("SplineIK %q: unresolved joint chain", n.ID())
		return n.buf
	}

	enabled := n.resolveEnabled(vars)
	if !n.everEvaluated {
		n.enabledPrev = enabled
		n.everEvaluated = true
	} else if enabled != n.enabledPrev {
		if enabled {
			n.env.begin(ikInterpSnapshotToSolve, n.InterpDuration, under)
		} else {
			solvedSnap := n.buf
			if solvedSnap == nil {
				solvedSnap = under
			}
			n.env.begin(ikInterpSnapshotToUnderPoses, n.InterpDuration, solvedSnap)
		}
		n.enabledPrev = enabled
	}
	copy(n.buf, under)

	if enabled || n.env.active() {
		underAbs := make([]pose.Pose, nJ)
		copy(underAbs, under)
		skel.ConvertRelativePosesToAbsolute(underAbs)

		baseAbs := underAbs[n.baseIdx]
		tipAbs := underAbs[n.tipIdx]
		if vars != nil {
			tipAbs.Trans = vars.LookupVec3(n.TipPositionVar, tipAbs.Trans)
			tipAbs.Rot = vars.LookupQuat(n.TipRotationVar, tipAbs.Rot)
		}

		ik.SolveSpline(skel, n.buf, underAbs, baseAbs, tipAbs, n.joints, n.flexFor, n.TangentScaleBase, n.TangentScaleTip)
	}

	if n.env.active() {
		// The spline solver is the one IK kind the source fades with an
		// expo ease-in rather than a linear ramp.
		switch n.env.typ {
		case ikInterpSnapshotToSolve:
			n.env.blend(n.buf, n.buf, dt, true)
		case ikInterpSnapshotToUnderPoses:
			n.env.blend(n.buf, under, dt, true)
		}
	}
	return n.buf
}

func (n *SplineIK) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
