package node

import (
	"strings"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// BoneSet is a per-joint scalar in [0, 1] gating how much of an overlay
// replaces its under pose at that joint.
type BoneSet []float32

// BuildBoneSet derives a BoneSet from skel by keyword: "full" weights every
// joint 1, "empty" weights every joint 0, and any other keyword is matched
// case-insensitively as a substring against joint names to find a subtree
// root, whose entire subtree (inclusive) is weighted 1 and everything else
// 0. An unmatched keyword yields an all-zero set.
func BuildBoneSet(skel *skeleton.Skeleton, keyword string) BoneSet {
	n := skel.NumJoints()
	out := make(BoneSet, n)
	switch strings.ToLower(keyword) {
	case "full":
		for i := range out {
			out[i] = 1
		}
		return out
	case "empty", "":
		return out
	}

	root := skeleton.InvalidJointIndex
	lower := strings.ToLower(keyword)
	for i := 0; i < n; i++ {
		if strings.Contains(strings.ToLower(skel.JointName(i)), lower) {
			root = i
			break
		}
	}
	if root == skeleton.InvalidJointIndex {
		return out
	}
	out[root] = 1
	for i := root + 1; i < n; i++ {
		if out[skel.ParentIndex(i)] > 0 {
			out[i] = 1
		}
	}
	return out
}

// Overlay blends exactly two children: children()[0] is the overlay,
// children()[1] the under. A BoneSet gates how much of the overlay's pose
// replaces the under pose at each joint, scaled by a global Alpha.
type Overlay struct {
	Base

	AlphaVar string
	Alpha    float32
	Bones    BoneSet

	buf []pose.Pose
}

func NewOverlay(id string, bones BoneSet) *Overlay {
	return &Overlay{Base: NewBase(id, KindOverlay), Alpha: 1, Bones: bones}
}

func (n *Overlay) resolveAlpha(vars *variant.Map) float32 {
	if n.AlphaVar != "" && vars != nil {
		return vars.LookupFloat(n.AlphaVar, n.Alpha)
	}
	return n.Alpha
}

func (n *Overlay) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	children := n.Children()
	if len(children) != 2 {
		skel := n.Skeleton()
		if skel == nil {
			return identityPoses(0)
		}
		return identityPoses(skel.NumJoints())
	}
	under := children[1].Evaluate(vars, ctx, dt, triggersOut)
	overlayPoses := children[0].Overlay(vars, ctx, dt, triggersOut, under)

	alpha := n.resolveAlpha(vars)
	m := len(under)
	n.buf = ensureLen(n.buf, m)
	for i := 0; i < m; i++ {
		w := alpha
		if i < len(n.Bones) {
			w *= n.Bones[i]
		} else {
			w = 0
		}
		n.buf[i] = pose.Blend(under[i], overlayPoses[i], w)
	}
	return n.buf
}

// Overlay forwards to Evaluate: a nested Overlay reports its own blended
// result as the "overlay" contribution to an enclosing Overlay, ignoring
// underPoses from further out (it computes its own under from child[1]).
func (n *Overlay) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
