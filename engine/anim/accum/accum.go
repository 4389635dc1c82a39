// Package accum implements the rotation and translation accumulators used
// by CCD variants that blend contributions from multiple IK targets onto
// the same joint.
package accum

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// Rotation accumulates quaternions and reports their sign-corrected,
// normalised sum, equivalent to a weighted mean on the 4-sphere for small
// angular spreads.
type Rotation struct {
	rotations []mgl32.Quat
}

func (a *Rotation) Size() int { return len(a.rotations) }

func (a *Rotation) Add(q mgl32.Quat) {
	a.rotations = append(a.rotations, q)
}

// Average returns the sign-corrected normalised sum of the accumulated
// quaternions, or identity if none were added.
func (a *Rotation) Average() mgl32.Quat {
	return pose.AverageQuats(a.rotations)
}

func (a *Rotation) Clear() {
	a.rotations = a.rotations[:0]
}

// Translation accumulates weighted translations and reports their
// weight-normalised average.
type Translation struct {
	accum       mgl32.Vec3
	totalWeight float32
	dirty       bool
}

// Size reports 1 if any translation has been accumulated, 0 otherwise,
// matching TranslationAccumulator::size's boolean-as-int semantics.
func (a *Translation) Size() int {
	if a.totalWeight > 0 {
		return 1
	}
	return 0
}

func (a *Translation) Add(t mgl32.Vec3, weight float32) {
	if weight == 0 {
		weight = 1
	}
	a.accum = a.accum.Add(t.Mul(weight))
	a.totalWeight += weight
	a.dirty = true
}

// Average returns the weight-normalised translation, or the zero vector if
// nothing was accumulated.
func (a *Translation) Average() mgl32.Vec3 {
	if a.totalWeight == 0 {
		return mgl32.Vec3{}
	}
	return a.accum.Mul(1 / a.totalWeight)
}

// IsDirty reports whether any translation has ever been accumulated.
func (a *Translation) IsDirty() bool { return a.dirty }

// Clear resets the accumulation but preserves IsDirty's history.
func (a *Translation) Clear() {
	a.accum = mgl32.Vec3{}
	a.totalWeight = 0
}

// ClearAndClean resets the accumulation and IsDirty.
func (a *Translation) ClearAndClean() {
	a.Clear()
	a.dirty = false
}
