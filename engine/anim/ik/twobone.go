package ik

import (
	"math"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// SolveTwoBone brings tipIndex toward target by an analytic two-bone solve
// (law-of-cosines at the mid joint) followed by a single CCD-style delta
// rotation at the base joint, mutating rel in place for baseIndex, midIndex,
// and tipIndex only. hingeAxis is expressed in the base joint's local frame
// (the same frame the mid joint's relative rotation lives in).
func SolveTwoBone(skel *skeleton.Skeleton, rel []pose.Pose, baseIndex, midIndex, tipIndex int, hingeAxis mgl32.Vec3, target pose.Pose) {
	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	baseAbs, midAbs, tipAbs := abs[baseIndex], abs[midIndex], abs[tipIndex]
	r0 := midAbs.Trans.Sub(baseAbs.Trans).Len()
	r1 := tipAbs.Trans.Sub(midAbs.Trans).Len()
	d := target.Trans.Sub(baseAbs.Trans).Len()

	if r0 > 1e-5 && r1 > 1e-5 && d < r0+r1 {
		midToBase := baseAbs.Trans.Sub(midAbs.Trans)
		midToTip := tipAbs.Trans.Sub(midAbs.Trans)
		if midToBase.Len() > 1e-5 && midToTip.Len() > 1e-5 {
			curDot := clampf(midToBase.Normalize().Dot(midToTip.Normalize()), -1, 1)
			curAngle := float32(math.Acos(float64(curDot)))

			cosDesired := clampf((r0*r0+r1*r1-d*d)/(2*r0*r1), -1, 1)
			desiredAngle := float32(math.Acos(float64(cosDesired)))

			delta := desiredAngle - curAngle
			axis := hingeAxis
			if axis.Len() > 1e-5 {
				axis = axis.Normalize()
			} else {
				axis = mgl32.Vec3{0, 0, 1}
			}
			rel[midIndex].Rot = mgl32.QuatRotate(delta, axis).Mul(rel[midIndex].Rot).Normalize()
		}
	}

	lo := minInt(baseIndex, minInt(midIndex, tipIndex))
	hi := maxInt(baseIndex, maxInt(midIndex, tipIndex))
	refreshAbsoluteRange(skel, rel, abs, lo, hi)

	lever := abs[tipIndex].Trans.Sub(abs[baseIndex].Trans)
	goal := target.Trans.Sub(abs[baseIndex].Trans)
	if lever.Len() > 1e-4 && goal.Len() > 1e-4 {
		leverN := lever.Normalize()
		goalN := goal.Normalize()
		axis := leverN.Cross(goalN)
		if axis.Len() > 1e-4 {
			axisN := axis.Normalize()
			dot := clampf(leverN.Dot(goalN), -1, 1)
			angle := float32(math.Acos(float64(dot)))
			deltaRot := mgl32.QuatRotate(angle, axisN)
			newBaseAbsRot := deltaRot.Mul(abs[baseIndex].Rot).Normalize()
			rel[baseIndex].Rot = relativeRotationFromAbsolute(skel, abs, baseIndex, newBaseAbsRot)
		}
	}

	refreshAbsoluteRange(skel, rel, abs, lo, hi)
	rel[tipIndex].Rot = relativeRotationFromAbsolute(skel, abs, tipIndex, target.Rot)
}
