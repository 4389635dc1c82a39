package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/constraint"
	"github.com/Carmen-Shannon/motionrig/engine/anim/ik"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// InverseKinematics wraps the multi-target CCD solver (ik.CCD) as a tree
// node: its single child supplies the under pose, every active target in
// its table pulls the corresponding joint toward a goal, and an
// enable/disable toggle cross-fades between the under chain and the
// solved result over InterpDuration frames.
type InverseKinematics struct {
	Base

	solver  *ik.CCD
	targets *ik.TargetTable

	Enabled        bool
	EnabledVar     string
	InterpDuration float32 // frames (1/30s units), per spec section 4.7.5.

	enabledPrev  bool
	everEvaluated bool
	env          ikInterpEnvelope
	buf          []pose.Pose
}

// NewInverseKinematics constructs an enabled IK node with the documented
// CCD defaults (16 passes, 10ms budget) and a 15-frame (0.5s) fade.
func NewInverseKinematics(id string) *InverseKinematics {
	return &InverseKinematics{
		Base:           NewBase(id, KindInverseKinematics),
		solver:         ik.NewCCD(),
		targets:        ik.NewTargetTable(),
		Enabled:        true,
		InterpDuration: 15,
	}
}

// AddTarget installs or replaces the target for t.JointIndex.
func (n *InverseKinematics) AddTarget(t ik.Target) {
	if skel := n.Skeleton(); skel != nil {
		n.targets.AddTarget(skel, t)
	}
}

// ClearTarget removes the target at jointIndex, if any.
func (n *InverseKinematics) ClearTarget(jointIndex int) { n.targets.ClearTarget(jointIndex) }

// SetConstraint installs a per-joint rotation constraint consulted by the
// underlying CCD solver.
func (n *InverseKinematics) SetConstraint(jointIndex int, c constraint.Rotation) {
	n.solver.SetConstraint(jointIndex, c)
}

func (n *InverseKinematics) resolveEnabled(vars *variant.Map) bool {
	if n.EnabledVar != "" && vars != nil {
		return vars.LookupBool(n.EnabledVar, n.Enabled)
	}
	return n.Enabled
}

func (n *InverseKinematics) underPoses(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, skel *skeleton.Skeleton) []pose.Pose {
	if children := n.Children(); len(children) > 0 {
		return children[0].Evaluate(vars, ctx, dt, triggersOut)
	}
	return skel.RelativeDefaultPoses()
}

func (n *InverseKinematics) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	skel := n.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	nJ := skel.NumJoints()
	under := n.underPoses(vars, ctx, dt, triggersOut, skel)

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

	n.buf = ensureLen(n.buf, nJ)
	copy(n.buf, under)

	if enabled || n.env.active() {
		n.solver.Relax(skel, n.buf, dt)
		n.solver.Solve(skel, n.buf, n.targets)
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

func (n *InverseKinematics) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
