package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// BlendLinear linearly interpolates between its N children along a single
// float alpha in [0, N-1]: the integer part selects the two neighbours,
// the fractional part is the blend weight.
type BlendLinear struct {
	Base

	// AlphaVar names the variable-map key holding alpha; Alpha is used when
	// AlphaVar is empty or unresolved.
	AlphaVar string
	Alpha    float32

	// Sync phase-locks the two selected children when both are Clip nodes,
	// driving a single shared phase (0..1 over their average cycle length)
	// into each via SetCurrentFrame instead of letting them free-run.
	Sync  bool
	phase float32

	buf []pose.Pose
}

func NewBlendLinear(id string) *BlendLinear {
	return &BlendLinear{Base: NewBase(id, KindBlendLinear)}
}

// neighbours resolves alpha into a bracketing child index pair and the
// fractional blend weight between them.
func (n *BlendLinear) neighbours(alpha float32) (idx int, frac float32) {
	return selectNeighbours(len(n.Children()), alpha)
}

// selectNeighbours maps alpha in [0, childCount-1] onto a bracketing index
// pair and the fractional blend weight, clamping at both ends.
func selectNeighbours(childCount int, alpha float32) (idx int, frac float32) {
	if childCount < 2 {
		return 0, 0
	}
	maxIdx := childCount - 2
	fi := alpha
	if fi < 0 {
		fi = 0
	}
	if fi > float32(maxIdx+1) {
		fi = float32(maxIdx + 1)
	}
	idx = int(fi)
	if idx > maxIdx {
		idx = maxIdx
		frac = 1
		return
	}
	frac = fi - float32(idx)
	return
}

func (n *BlendLinear) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	return n.evaluateAndBlendChildren(vars, triggersOut, n.resolveAlpha(vars), dt, ctx)
}

func (n *BlendLinear) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}

func (n *BlendLinear) resolveAlpha(vars *variant.Map) float32 {
	if n.AlphaVar != "" && vars != nil {
		return vars.LookupFloat(n.AlphaVar, n.Alpha)
	}
	return n.Alpha
}

// evaluateAndBlendChildren resolves the active neighbour pair, optionally
// phase-locks them when they are both clips, evaluates both, and returns
// their per-joint blend.
//
// Signature choice: the source shows two declarations of this helper with
// different parameter orders across its headers; this one matches the
// shape its actual call site needs — (vars, triggers, alpha, dt, ctx) plus
// the receiver's own children — since nothing else in the tree calls it
// with a pre-resolved neighbour pair.
func (n *BlendLinear) evaluateAndBlendChildren(vars *variant.Map, triggersOut *variant.Map, alpha float32, dt float32, ctx *Context) []pose.Pose {
	children := n.Children()
	if len(children) == 0 {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}
	idx, frac := n.neighbours(alpha)
	a := children[idx]
	b := a
	if idx+1 < len(children) {
		b = children[idx+1]
	}

	n.advanceSyncPhase(a, b, dt)

	aDt, bDt := dt, dt
	if n.Sync {
		if _, ok := a.(*Clip); ok {
			aDt = 0
		}
		if _, ok := b.(*Clip); ok {
			bDt = 0
		}
	}

	pa := a.Evaluate(vars, ctx, aDt, triggersOut)
	pb := pa
	if b != a {
		pb = b.Evaluate(vars, ctx, bDt, triggersOut)
	}

	m := len(pa)
	n.buf = ensureLen(n.buf, m)
	for i := 0; i < m; i++ {
		n.buf[i] = pose.Blend(pa[i], pb[i], frac)
	}
	return n.buf
}

// advanceSyncPhase, when Sync is set and both neighbours are clips, steps
// the node's own shared phase by dt over their average cycle length and
// seeks each clip's current frame to match.
func (n *BlendLinear) advanceSyncPhase(a, b Node, dt float32) {
	ca, aok := a.(*Clip)
	cb, bok := b.(*Clip)
	if !n.Sync || !aok || !bok {
		return
	}
	lenA := ca.EndFrame - ca.StartFrame
	lenB := cb.EndFrame - cb.StartFrame
	avg := (lenA + lenB) / 2
	if avg <= 0 {
		return
	}
	n.phase += dt * 30 / avg
	for n.phase >= 1 {
		n.phase -= 1
	}
	for n.phase < 0 {
		n.phase += 1
	}
	ca.SetCurrentFrame(ca.StartFrame + n.phase*lenA)
	cb.SetCurrentFrame(cb.StartFrame + n.phase*lenB)
}
