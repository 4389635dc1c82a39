package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// BlendLinearMove is BlendLinear's speed-matched extension for locomotion
// blend trees: instead of letting its two selected clip children free-run,
// it integrates one shared phase at a rate chosen so the blended stride
// covers ground at DesiredSpeed, and drives that phase into each clip's
// current-frame setter.
type BlendLinearMove struct {
	Base

	AlphaVar string
	Alpha    float32

	DesiredSpeedVar string
	DesiredSpeed    float32

	// Speeds holds one characteristic speed v_i per child, in the same
	// units as DesiredSpeed (e.g. meters/second at that clip's authored
	// playback rate).
	Speeds []float32

	phase float32
	buf   []pose.Pose
}

func NewBlendLinearMove(id string) *BlendLinearMove {
	return &BlendLinearMove{Base: NewBase(id, KindBlendLinearMove)}
}

func (n *BlendLinearMove) resolveAlpha(vars *variant.Map) float32 {
	if n.AlphaVar != "" && vars != nil {
		return vars.LookupFloat(n.AlphaVar, n.Alpha)
	}
	return n.Alpha
}

func (n *BlendLinearMove) resolveDesiredSpeed(vars *variant.Map) float32 {
	if n.DesiredSpeedVar != "" && vars != nil {
		return vars.LookupFloat(n.DesiredSpeedVar, n.DesiredSpeed)
	}
	return n.DesiredSpeed
}

// SetCurrentFrame seeks the shared phase directly (frame treated as 0..1
// already normalised by the caller) rather than recursing, since this
// node's own phase is what drives its children, not the reverse.
func (n *BlendLinearMove) SetCurrentFrame(frame float32) {
	n.phase = frame
}

func (n *BlendLinearMove) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	children := n.Children()
	if len(children) == 0 {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}

	alpha := n.resolveAlpha(vars)
	idx, frac := selectNeighbours(len(children), alpha)
	a := children[idx]
	b := a
	if idx+1 < len(children) {
		b = children[idx+1]
	}

	v0, v1 := n.speedAt(idx), n.speedAt(idx)
	if idx+1 < len(n.Speeds) {
		v1 = n.Speeds[idx+1]
	}
	ca, aok := a.(*Clip)
	cb, bok := b.(*Clip)

	if aok && bok {
		n0 := ca.EndFrame - ca.StartFrame
		n1 := cb.EndFrame - cb.StartFrame
		denom := (1-frac)*v0*n0 + frac*v1*n1
		if denom > 1e-5 {
			omega := n.resolveDesiredSpeed(vars) / denom
			prevPhase := n.phase
			n.phase += omega * dt
			if n.phase >= 1 {
				for n.phase >= 1 {
					n.phase -= 1
				}
				if triggersOut != nil {
					triggersOut.SetTrigger(n.ID() + "Loop")
				}
			} else if n.phase < 0 {
				for n.phase < 0 {
					n.phase += 1
				}
				if triggersOut != nil && prevPhase >= 0 {
					triggersOut.SetTrigger(n.ID() + "Loop")
				}
			}
		}
		ca.SetCurrentFrame(ca.StartFrame + n.phase*n0)
		cb.SetCurrentFrame(cb.StartFrame + n.phase*n1)
	}

	pa := a.Evaluate(vars, ctx, 0, triggersOut)
	pb := pa
	if b != a {
		pb = b.Evaluate(vars, ctx, 0, triggersOut)
	}

	m := len(pa)
	n.buf = ensureLen(n.buf, m)
	for i := 0; i < m; i++ {
		n.buf[i] = pose.Blend(pa[i], pb[i], frac)
	}
	return n.buf
}

func (n *BlendLinearMove) speedAt(idx int) float32 {
	if idx >= 0 && idx < len(n.Speeds) {
		return n.Speeds[idx]
	}
	return 1
}

func (n *BlendLinearMove) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
