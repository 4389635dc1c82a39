package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/chain"
	"github.com/Carmen-Shannon/motionrig/engine/anim/ik"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
	"github.com/go-gl/mathgl/mgl32"
)

// TwoBoneIK analytically solves a three-joint chain (base/mid/tip) toward
// a position+rotation target read from the variable map, per section
// 4.7.2. An enable flag and a watch on the target variables drive an
// enable/disable cross-fade identical in shape to InverseKinematics.
type TwoBoneIK struct {
	Base

	BaseJointName, MidJointName, TipJointName string
	baseIdx, midIdx, tipIdx                   int
	resolved                                  bool

	HingeAxis mgl32.Vec3

	Alpha    float32
	AlphaVar string

	Enabled    bool
	EnabledVar string

	PositionVar string
	RotationVar string

	InterpDuration float32

	enabledPrev   bool
	watchPos      mgl32.Vec3
	watchRot      mgl32.Quat
	everEvaluated bool
	env           ikInterpEnvelope
	buf           []pose.Pose
}

// NewTwoBoneIK constructs an enabled two-bone solver with Alpha=1 and a
// 15-frame (0.5s) enable/disable fade.
func NewTwoBoneIK(id, base, mid, tip string, hingeAxis mgl32.Vec3) *TwoBoneIK {
	return &TwoBoneIK{
		Base:           NewBase(id, KindTwoBoneIK),
		BaseJointName:  base,
		MidJointName:   mid,
		TipJointName:   tip,
		HingeAxis:      hingeAxis,
		Alpha:          1,
		Enabled:        true,
		InterpDuration: 15,
	}
}

func (n *TwoBoneIK) SetSkeleton(skel *skeleton.Skeleton) {
	n.Base.SetSkeleton(skel)
	n.resolved = false
	if skel == nil {
		return
	}
	n.baseIdx = skel.NameToJointIndex(n.BaseJointName)
	n.midIdx = skel.NameToJointIndex(n.MidJointName)
	n.tipIdx = skel.NameToJointIndex(n.TipJointName)
	n.resolved = n.baseIdx != skeleton.InvalidJointIndex && n.midIdx != skeleton.InvalidJointIndex && n.tipIdx != skeleton.InvalidJointIndex
}

func (n *TwoBoneIK) resolveFloat(vars *variant.Map, key string, def float32) float32 {
	if key != "" && vars != nil {
		return vars.LookupFloat(key, def)
	}
	return def
}

func (n *TwoBoneIK) resolveEnabled(vars *variant.Map) bool {
	if n.EnabledVar != "" && vars != nil {
		return vars.LookupBool(n.EnabledVar, n.Enabled)
	}
	return n.Enabled
}

func (n *TwoBoneIK) underPoses(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, skel *skeleton.Skeleton) []pose.Pose {
	if children := n.Children(); len(children) > 0 {
		return children[0].Evaluate(vars, ctx, dt, triggersOut)
	}
	return skel.RelativeDefaultPoses()
}

func (n *TwoBoneIK) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	nJ := skel.NumJoints()
	under := n.underPoses(vars, ctx, dt, triggersOut, skel)

	n.buf = ensureLen(n.buf, nJ)

	if !n.resolved {
		copy(n.buf, under)
		n.Log.Warnf("TwoBoneIK %q: unresolved joint name(s)", n.ID())
		return n.buf
	}

	targetPos := mgl32.Vec3{}
	targetRot := mgl32.QuatIdent()
	if vars != nil {
		targetPos = vars.LookupVec3(n.PositionVar, targetPos)
		targetRot = vars.LookupQuat(n.RotationVar, targetRot)
	}
	enabled := n.resolveEnabled(vars)

	if !n.everEvaluated {
		n.enabledPrev = enabled
		n.watchPos = targetPos
		n.watchRot = targetRot
		n.everEvaluated = true
	} else if enabled != n.enabledPrev || targetPos != n.watchPos || targetRot != n.watchRot {
		if enabled {
			n.env.begin(ikInterpSnapshotToSolve, n.InterpDuration, under)
		} else {
			solvedSnap := n.buf
			n.env.begin(ikInterpSnapshotToUnderPoses, n.InterpDuration, solvedSnap)
		}
		n.enabledPrev = enabled
		n.watchPos = targetPos
		n.watchRot = targetRot
	}
	copy(n.buf, under)

	if enabled || n.env.active() {
		ik.SolveTwoBone(skel, n.buf, n.baseIdx, n.midIdx, n.tipIdx, n.HingeAxis, pose.FromRotTrans(targetRot, targetPos))
	}

	// Blend the solved chain (tip to base) against the under chain by
	// alpha, built fresh each frame as a short tip-to-base Chain rather
	// than as three independent per-joint lerps.
	alpha := n.resolveFloat(vars, n.AlphaVar, n.Alpha)
	var underChain, solvedChain chain.Chain
	if underChain.BuildFromRelativePosesUpTo(skel, under, n.tipIdx, n.baseIdx) &&
		solvedChain.BuildFromRelativePosesUpTo(skel, n.buf, n.tipIdx, n.baseIdx) {
		underChain.Blend(&solvedChain, alpha)
		underChain.OutputRelativePoses(n.buf)
	}

	if n.env.active() {
		switch n.env.typ {
		case ikInterpSnapshotToSolve:
			n.env.blend(n.buf, n.buf, dt, false)
		case ikInterpSnapshotToUnderPoses:
			n.env.blend(n.buf, under, dt, false)
		}
	}
	return n.buf
}

func (n *TwoBoneIK) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
