// Package chain implements the short fixed-capacity parent-to-tip joint
// chain ("AnimChain") used as a snapshot/interpolation scratch buffer by
// every IK node: built once per evaluate from a tip joint, it lazily
// rebuilds absolute poses only where dirtied.
package chain

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
)

// Capacity bounds the chain length, matching AnimChainT<10>; deep enough
// for any humanoid limb or spine segment without heap allocation in the
// IK hot loop.
const Capacity = 10

type elem struct {
	relative   pose.Pose
	absolute   pose.Pose
	jointIndex int
	dirty      bool
}

// Chain is a stack-allocated, parent-to-tip array of joints: index 0 is the
// tip, index Len()-1 is the base (the topmost ancestor included).
type Chain struct {
	elems [Capacity]elem
	top   int
}

// Len returns the number of joints currently in the chain.
func (c *Chain) Len() int { return c.top }

// BuildFromRelativePoses walks the skeleton's parent chain from tipIndex to
// the root (or until Capacity is exhausted), copying relativePoses into the
// chain, then rebuilds absolute poses. Returns false if the chain would
// overflow Capacity.
func (c *Chain) BuildFromRelativePoses(skel *skeleton.Skeleton, relativePoses []pose.Pose, tipIndex int) bool {
	c.top = 0
	for j := tipIndex; j != skeleton.InvalidJointIndex; j = skel.ParentIndex(j) {
		if c.top >= Capacity {
			return false
		}
		c.elems[c.top] = elem{relative: relativePoses[j], jointIndex: j, dirty: true}
		c.top++
	}
	c.buildDirtyAbsolutePoses()
	return true
}

// BuildFromRelativePosesUpTo walks from tipIndex toward the root but stops
// as soon as baseIndex has been included, for IK solvers (e.g. TwoBoneIK)
// whose chain is a fixed three-joint span rather than a walk to the
// skeleton's root. Returns false if baseIndex is never reached (not an
// ancestor of tipIndex) or the span would overflow Capacity.
func (c *Chain) BuildFromRelativePosesUpTo(skel *skeleton.Skeleton, relativePoses []pose.Pose, tipIndex, baseIndex int) bool {
	c.top = 0
	j := tipIndex
	for {
		if c.top >= Capacity {
			return false
		}
		c.elems[c.top] = elem{relative: relativePoses[j], jointIndex: j, dirty: true}
		c.top++
		if j == baseIndex {
			c.buildDirtyAbsolutePoses()
			return true
		}
		if j == skeleton.InvalidJointIndex {
			return false
		}
		j = skel.ParentIndex(j)
		if j == skeleton.InvalidJointIndex && baseIndex != skeleton.InvalidJointIndex {
			return false
		}
	}
}

func (c *Chain) buildDirtyAbsolutePoses() {
	if c.top == 0 {
		return
	}
	base := c.top - 1
	c.elems[base].absolute = c.elems[base].relative
	c.elems[base].dirty = false

	for i := base; i > 0; i-- {
		parent := &c.elems[i]
		child := &c.elems[i-1]
		if child.dirty {
			child.absolute = parent.absolute.Mul(child.relative)
			child.dirty = false
		}
	}
}

// GetAbsolutePoseFromJointIndex returns the cached absolute pose for
// jointIndex, or pose.Identity if jointIndex is not present in the chain.
func (c *Chain) GetAbsolutePoseFromJointIndex(jointIndex int) pose.Pose {
	for i := 0; i < c.top; i++ {
		if c.elems[i].jointIndex == jointIndex {
			return c.elems[i].absolute
		}
	}
	return pose.Identity
}

// SetRelativePoseAtJointIndex overwrites the relative pose for jointIndex
// and marks it and every tip-ward (lower-index) entry dirty, then
// immediately rebuilds absolute poses. Returns false if jointIndex is not
// present in the chain.
func (c *Chain) SetRelativePoseAtJointIndex(jointIndex int, rel pose.Pose) bool {
	found := false
	for i := c.top - 1; i >= 0; i-- {
		if c.elems[i].jointIndex == jointIndex {
			c.elems[i].relative = rel
			found = true
		}
		if found {
			c.elems[i].dirty = true
		}
	}
	if found {
		c.buildDirtyAbsolutePoses()
	}
	return found
}

// Blend blends only the relative poses of two equal-length chains in place,
// marking every entry dirty; src must have the same Len() as c.
func (c *Chain) Blend(src *Chain, alpha float32) {
	if src.top != c.top {
		return
	}
	for i := 0; i < c.top; i++ {
		c.elems[i].relative = pose.Blend(c.elems[i].relative, src.elems[i].relative, alpha)
		c.elems[i].dirty = true
	}
	c.buildDirtyAbsolutePoses()
}

// OutputRelativePoses writes the chain's relative poses back into a
// full-skeleton-sized array, one entry per chain joint.
func (c *Chain) OutputRelativePoses(relativePoses []pose.Pose) {
	for i := 0; i < c.top; i++ {
		relativePoses[c.elems[i].jointIndex] = c.elems[i].relative
	}
}
