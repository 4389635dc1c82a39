package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// BlendDirectional blends exactly nine children arranged on a 3x3 grid
// {up-left, up, up-right, left, centre, right, down-left, down, down-right}
// indexed 0..8 in that row-major order, selected and bilinearly blended by
// a 2-D alpha in [-1, 1]^2.
type BlendDirectional struct {
	Base

	AlphaXVar, AlphaYVar string
	AlphaX, AlphaY       float32

	// DebugWeights holds the last evaluate's four corner weights, in the
	// order (centre, horizontal-neighbour, vertical-neighbour, diagonal),
	// for host-side debug display.
	DebugWeights [4]float32

	buf []pose.Pose
}

func NewBlendDirectional(id string) *BlendDirectional {
	return &BlendDirectional{Base: NewBase(id, KindBlendDirectional)}
}

const (
	gridUpLeft = iota
	gridUp
	gridUpRight
	gridLeft
	gridCentre
	gridRight
	gridDownLeft
	gridDown
	gridDownRight
)

func (n *BlendDirectional) resolveAlpha(vars *variant.Map) (x, y float32) {
	x, y = n.AlphaX, n.AlphaY
	if vars == nil {
		return
	}
	if n.AlphaXVar != "" {
		x = vars.LookupFloat(n.AlphaXVar, x)
	}
	if n.AlphaYVar != "" {
		y = vars.LookupFloat(n.AlphaYVar, y)
	}
	return
}

func (n *BlendDirectional) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	children := n.Children()
	if len(children) != 9 {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}

	x, y := n.resolveAlpha(vars)
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	if y > 1 {
		y = 1
	} else if y < -1 {
		y = -1
	}

	var horiz, vert, diag int
	switch {
	case x >= 0 && y >= 0:
		horiz, vert, diag = gridRight, gridUp, gridUpRight
	case x < 0 && y >= 0:
		horiz, vert, diag = gridLeft, gridUp, gridUpLeft
	case x >= 0 && y < 0:
		horiz, vert, diag = gridRight, gridDown, gridDownRight
	default:
		horiz, vert, diag = gridLeft, gridDown, gridDownLeft
	}

	tx, ty := absf32(x), absf32(y)
	w00 := (1 - tx) * (1 - ty) // centre
	w10 := tx * (1 - ty)       // horizontal neighbour
	w01 := (1 - tx) * ty       // vertical neighbour
	w11 := tx * ty             // diagonal corner
	n.DebugWeights = [4]float32{w00, w10, w01, w11}

	pc := children[gridCentre].Evaluate(vars, ctx, dt, triggersOut)
	ph := children[horiz].Evaluate(vars, ctx, dt, triggersOut)
	pv := children[vert].Evaluate(vars, ctx, dt, triggersOut)
	pd := children[diag].Evaluate(vars, ctx, dt, triggersOut)

	m := len(pc)
	n.buf = ensureLen(n.buf, m)
	for i := 0; i < m; i++ {
		a := pose.Blend(pc[i], ph[i], w10/maxf32(w00+w10, 1e-6))
		b := pose.Blend(pv[i], pd[i], w11/maxf32(w01+w11, 1e-6))
		n.buf[i] = pose.Blend(a, b, (w01 + w11))
	}
	return n.buf
}

func (n *BlendDirectional) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
