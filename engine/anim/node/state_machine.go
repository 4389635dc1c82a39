package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// InterpType selects how a state machine blends across a state switch.
type InterpType int

const (
	// InterpSnapshotBoth captures both endpoints once at switch time; the
	// incoming child is seeked to InterpTarget and evaluated once with
	// dt=0. Subsequent frames blend between the two frozen snapshots.
	InterpSnapshotBoth InterpType = iota
	// InterpSnapshotPrev freezes only the outgoing snapshot; the incoming
	// child is evaluated live every frame, seeked initially to
	// InterpTarget-InterpDuration.
	InterpSnapshotPrev
	// InterpEvaluateBoth evaluates both endpoints live every frame.
	InterpEvaluateBoth
)

// Transition fires when VariableKey resolves true, switching to TargetState.
type Transition struct {
	VariableKey string
	TargetState string
}

// State is one state machine node: a child index to evaluate, the
// interpolation parameters used when switching into it, and its outgoing
// transitions (evaluated in order; first true wins).
type State struct {
	ID             string
	ChildIndex     int
	InterpTarget   float32
	InterpDuration float32
	InterpType     InterpType
	Transitions    []Transition

	// Priority is unused by plain StateMachine; RandomSwitch uses it for
	// weighted random selection.
	Priority float32
}

// StateMachine selects one of several children by name, cross-fading
// between the outgoing and incoming child's pose across a switch.
type StateMachine struct {
	Base

	States          []State
	CurrentStateVar string

	currentIdx int

	interpActive   bool
	mode           InterpType
	alpha          float32
	alphaVel       float32
	outgoingIdx    int
	incomingIdx    int
	outgoingFrozen []pose.Pose
	incomingFrozen []pose.Pose
	lastBlend      []pose.Pose

	buf []pose.Pose
}

// NewStateMachine constructs a state machine starting at states[0] (by
// declaration order); states must be non-empty.
func NewStateMachine(id string, states []State) *StateMachine {
	return &StateMachine{Base: NewBase(id, KindStateMachine), States: states}
}

func (n *StateMachine) stateIndexByID(id string) int {
	for i, s := range n.States {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (n *StateMachine) currentStateID() string {
	if n.currentIdx < 0 || n.currentIdx >= len(n.States) {
		return ""
	}
	return n.States[n.currentIdx].ID
}

func (n *StateMachine) childFor(idx int) Node {
	children := n.Children()
	ci := n.States[idx].ChildIndex
	if ci < 0 || ci >= len(children) {
		return nil
	}
	return children[ci]
}

// beginSwitch starts an interpolation from the current state to targetIdx.
// If an interpolation is already active, its current blended result is
// frozen as the new outgoing snapshot (so the abandoned state is never
// evaluated again), per the rule that an interrupted live evaluation
// demotes to a fixed snapshot. snapFrame, when true, seeks the incoming
// child's frame per its declared InterpType; RandomSwitch's resume
// semantics pass false to preserve the child's existing frame instead.
func (n *StateMachine) beginSwitch(targetIdx int, snapFrame bool, vars *variant.Map, ctx *Context, triggersOut *variant.Map) {
	if targetIdx < 0 || targetIdx == n.currentIdx && !n.interpActive {
		return
	}
	target := n.States[targetIdx]

	var frozenOut []pose.Pose
	if n.interpActive && n.lastBlend != nil {
		frozenOut = append([]pose.Pose(nil), n.lastBlend...)
	}

	n.outgoingIdx = n.currentIdx
	n.incomingIdx = targetIdx
	n.mode = target.InterpType
	n.alpha = 0
	dur := target.InterpDuration
	if dur <= 0 {
		dur = 1
	}
	n.alphaVel = 30 / dur
	n.currentIdx = targetIdx
	n.interpActive = true
	n.incomingFrozen = nil
	n.outgoingFrozen = frozenOut

	child := n.childFor(targetIdx)
	switch target.InterpType {
	case InterpSnapshotBoth:
		if n.outgoingFrozen == nil {
			if oc := n.childFor(n.outgoingIdx); oc != nil {
				n.outgoingFrozen = append([]pose.Pose(nil), oc.Evaluate(vars, ctx, 0, triggersOut)...)
			}
		}
		if child != nil {
			if snapFrame {
				child.SetCurrentFrame(target.InterpTarget)
			}
			n.incomingFrozen = append([]pose.Pose(nil), child.Evaluate(vars, ctx, 0, triggersOut)...)
		}
	case InterpSnapshotPrev:
		if n.outgoingFrozen == nil {
			if oc := n.childFor(n.outgoingIdx); oc != nil {
				n.outgoingFrozen = append([]pose.Pose(nil), oc.Evaluate(vars, ctx, 0, triggersOut)...)
			}
		}
		if child != nil && snapFrame {
			child.SetCurrentFrame(target.InterpTarget - target.InterpDuration)
		}
	case InterpEvaluateBoth:
		if child != nil && snapFrame {
			child.SetCurrentFrame(target.InterpTarget - target.InterpDuration)
		}
	}
}

func (n *StateMachine) SetCurrentFrame(frame float32) {
	if c := n.childFor(n.currentIdx); c != nil {
		c.SetCurrentFrame(frame)
	}
}

func (n *StateMachine) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	n.resolveTransitions(vars, ctx, triggersOut)
	return n.evaluateCore(vars, ctx, dt, triggersOut)
}

func (n *StateMachine) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}

// resolveTransitions implements the once-per-evaluate state selection
// rule: an explicit CurrentStateVar mismatch wins outright; otherwise the
// current state's own transitions are tried in order.
func (n *StateMachine) resolveTransitions(vars *variant.Map, ctx *Context, triggersOut *variant.Map) {
	if len(n.States) == 0 {
		return
	}
	if n.currentIdx < 0 {
		n.currentIdx = 0
	}
	if n.CurrentStateVar != "" && vars != nil {
		wantID := vars.LookupString(n.CurrentStateVar, n.currentStateID())
		if wantID != n.currentStateID() {
			if idx := n.stateIndexByID(wantID); idx >= 0 {
				n.beginSwitch(idx, true, vars, ctx, triggersOut)
				return
			}
		}
	}
	for _, t := range n.States[n.currentIdx].Transitions {
		if vars != nil && vars.LookupBool(t.VariableKey, false) {
			if idx := n.stateIndexByID(t.TargetState); idx >= 0 {
				n.beginSwitch(idx, true, vars, ctx, triggersOut)
			}
			return
		}
	}
}

// evaluateCore steps the active interpolation (if any) and returns the
// resulting pose vector, independent of how the current state was chosen.
func (n *StateMachine) evaluateCore(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	if len(n.States) == 0 {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}

	if !n.interpActive {
		out := n.evalLive(n.currentIdx, vars, ctx, dt, triggersOut)
		n.lastBlend = ensureLen(n.lastBlend, len(out))
		copy(n.lastBlend, out)
		return out
	}

	n.alpha += n.alphaVel * dt
	if n.alpha > 1 {
		n.alpha = 1
	}

	var outPose, inPose []pose.Pose
	if n.outgoingFrozen != nil {
		outPose = n.outgoingFrozen
	} else {
		outPose = n.evalLive(n.outgoingIdx, vars, ctx, dt, triggersOut)
	}
	if n.incomingFrozen != nil {
		inPose = n.incomingFrozen
	} else {
		inPose = n.evalLive(n.incomingIdx, vars, ctx, dt, triggersOut)
	}

	m := len(outPose)
	n.buf = ensureLen(n.buf, m)
	for i := 0; i < m; i++ {
		n.buf[i] = pose.Blend(outPose[i], inPose[i], n.alpha)
	}
	n.lastBlend = ensureLen(n.lastBlend, m)
	copy(n.lastBlend, n.buf)

	if n.alpha >= 1 {
		n.interpActive = false
	}
	return n.buf
}

func (n *StateMachine) evalLive(idx int, vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	c := n.childFor(idx)
	if c == nil {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}
	return c.Evaluate(vars, ctx, dt, triggersOut)
}
