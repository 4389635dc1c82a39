package ik

import (
	"math"
	"time"

	"github.com/Carmen-Shannon/motionrig/engine/anim/constraint"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// CCD is the multi-target cyclic-coordinate-descent solver: each target
// pulls its tip joint toward a goal by rotating ancestors one at a time,
// walking from the tip's parent up to the root.
type CCD struct {
	// Constraints maps joint index to the rotation constraint applied
	// after every write to that joint's relative rotation.
	Constraints map[int]constraint.Rotation

	// MaxPasses bounds the outer loop; the source's figure is 16.
	MaxPasses int

	// Budget bounds wall-clock time spent in Solve; the source's figure is
	// 10ms. Solve takes no host clock: the deadline is time.Now() plus
	// Budget, read when Solve starts.
	Budget time.Duration
}

// NewCCD constructs a solver with the documented defaults: 16 passes, a
// 10ms wall-clock budget.
func NewCCD() *CCD {
	return &CCD{
		Constraints: make(map[int]constraint.Rotation),
		MaxPasses:   16,
		Budget:      10 * time.Millisecond,
	}
}

// targetsForCCD filters a target table's contents down to the two types the
// multi-target CCD loop understands (section 4.7.1): RotationAndPosition
// and HmdHead are treated identically, everything else belongs to another
// solver (TwoBoneIK, SplineIK) or to the node layer's own interpretation.
func targetsForCCD(all []Target) []Target {
	out := make([]Target, 0, len(all))
	for _, t := range all {
		if t.Type == TargetRotationAndPosition || t.Type == TargetHmdHead {
			out = append(out, t)
		}
	}
	return out
}

func (c *CCD) SetConstraint(jointIndex int, r constraint.Rotation) {
	if c.Constraints == nil {
		c.Constraints = make(map[int]constraint.Rotation)
	}
	c.Constraints[jointIndex] = r
}

// Relax lerps every relative pose toward the skeleton's default by
// clamp(dt/0.25, 0, 1), preventing drift accumulation while no target is
// driving a joint. pose.Blend's shortest-arc rotation lerp already
// sign-corrects against the default quaternion.
func (c *CCD) Relax(skel *skeleton.Skeleton, rel []pose.Pose, dt float32) {
	amt := clampf(dt/0.25, 0, 1)
	for i := range rel {
		rel[i] = pose.Blend(rel[i], skel.RelativeDefaultPose(i), amt)
	}
}

// Solve runs the CCD outer loop against the targets in table, mutating rel
// in place. With no targets, it still relaxes (via the caller, see Relax)
// and applies every registered constraint, producing a valid pose vector
// of length skel.NumJoints().
func (c *CCD) Solve(skel *skeleton.Skeleton, rel []pose.Pose, table *TargetTable) {
	var targets []Target
	if table != nil {
		targets = targetsForCCD(table.Targets())
	}
	if len(targets) == 0 {
		for j, cst := range c.Constraints {
			if j < 0 || j >= len(rel) {
				continue
			}
			newRot, changed := cst.Apply(rel[j].Rot)
			if changed {
				rel[j].Rot = newRot
			}
		}
		return
	}

	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	maxTargetIndex := 0
	for _, t := range targets {
		maxTargetIndex = maxInt(maxTargetIndex, t.JointIndex)
	}

	met := make([]bool, len(targets))
	deadline := time.Now().Add(c.Budget)
	maxPasses := c.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 16
	}

	prevWorst := float32(math.MaxFloat32)
	for pass := 0; pass < maxPasses; pass++ {
		if time.Now().After(deadline) {
			break
		}
		worst := float32(0)
		lowestMoved := len(rel)
		anyUnmet := false

		for ti := range targets {
			if met[ti] {
				continue
			}
			tgt := targets[ti]
			tip := tgt.JointIndex
			if tip < 0 || tip >= len(rel) {
				met[ti] = true
				continue
			}

			errLen := abs[tip].Trans.Sub(tgt.Pose.Trans).Len()
			if errLen > worst {
				worst = errLen
			}
			if errLen < metThreshold {
				met[ti] = true
				newRel := relativeRotationFromAbsolute(skel, abs, tip, tgt.Pose.Rot)
				newRel = applyJointConstraint(c.Constraints, tip, newRel)
				rel[tip].Rot = newRel
				lowestMoved = minInt(lowestMoved, tip)
				continue
			}
			anyUnmet = true

			moving := abs[tip].Trans
			for j := skel.ParentIndex(tip); j != skeleton.InvalidJointIndex; j = skel.ParentIndex(j) {
				lever := moving.Sub(abs[j].Trans)
				goal := tgt.Pose.Trans.Sub(abs[j].Trans)
				if lever.Len() < 1e-4 || goal.Len() < 1e-4 {
					continue
				}
				leverN := lever.Normalize()
				goalN := goal.Normalize()
				axis := leverN.Cross(goalN)
				axisLen := axis.Len()
				if axisLen < 1e-4 {
					continue
				}
				axis = axis.Mul(1 / axisLen)
				dot := clampf(leverN.Dot(goalN), -1, 1)
				angle := float32(math.Acos(float64(dot)))
				delta := mgl32.QuatRotate(angle, axis)

				newAbsRot := delta.Mul(abs[j].Rot).Normalize()
				newRel := relativeRotationFromAbsolute(skel, abs, j, newAbsRot)
				newRel = applyJointConstraint(c.Constraints, j, newRel)
				rel[j].Rot = newRel

				moving = delta.Rotate(lever).Add(abs[j].Trans)
				lowestMoved = minInt(lowestMoved, j)
			}
		}

		if lowestMoved <= maxTargetIndex {
			refreshAbsoluteRange(skel, rel, abs, lowestMoved, maxTargetIndex)
		}

		if !anyUnmet || worst < metThreshold {
			break
		}
		// Monotone-improvement guard: if a pass makes no progress (e.g. all
		// remaining targets are unreachable given their constraints),
		// stop rather than spin through the remaining passes.
		if worst >= prevWorst {
			break
		}
		prevWorst = worst
	}
}
