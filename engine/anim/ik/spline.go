package ik

import (
	"math"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

const splineArcSamples = 30

// CubicHermiteSpline is a single cubic Hermite segment between two
// endpoints and tangents, with a cached piecewise-linear arc-length table
// built by Riemann-summing splineArcSamples sub-segments, so ArcLength and
// ArcLengthInverse are exact inverses of each other.
type CubicHermiteSpline struct {
	p0, m0, p1, m1 mgl32.Vec3
	cum            [splineArcSamples + 1]float32
}

// NewCubicHermiteSpline builds the spline and its arc-length table.
func NewCubicHermiteSpline(p0, m0, p1, m1 mgl32.Vec3) *CubicHermiteSpline {
	s := &CubicHermiteSpline{p0: p0, m0: m0, p1: p1, m1: m1}
	prevPos := s.Eval(0)
	s.cum[0] = 0
	for i := 1; i <= splineArcSamples; i++ {
		t := float32(i) / splineArcSamples
		pos := s.Eval(t)
		s.cum[i] = s.cum[i-1] + pos.Sub(prevPos).Len()
		prevPos = pos
	}
	return s
}

// Eval returns the spline position at parameter t in [0,1].
func (s *CubicHermiteSpline) Eval(t float32) mgl32.Vec3 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return s.p0.Mul(h00).Add(s.m0.Mul(h10)).Add(s.p1.Mul(h01)).Add(s.m1.Mul(h11))
}

// Derivative returns H'(t), the spline's tangent at t.
func (s *CubicHermiteSpline) Derivative(t float32) mgl32.Vec3 {
	t2 := t * t
	dh00 := 6*t2 - 6*t
	dh10 := 3*t2 - 4*t + 1
	dh01 := -6*t2 + 6*t
	dh11 := 3*t2 - 2*t
	return s.p0.Mul(dh00).Add(s.m0.Mul(dh10)).Add(s.p1.Mul(dh01)).Add(s.m1.Mul(dh11))
}

// TotalLength returns the full arc length of the spline.
func (s *CubicHermiteSpline) TotalLength() float32 { return s.cum[splineArcSamples] }

// ArcLength returns the arc length from 0 to t, linearly interpolated
// within whichever sub-segment t falls into.
func (s *CubicHermiteSpline) ArcLength(t float32) float32 {
	t = clampf(t, 0, 1)
	scaled := t * splineArcSamples
	i := int(math.Floor(float64(scaled)))
	if i >= splineArcSamples {
		return s.cum[splineArcSamples]
	}
	frac := scaled - float32(i)
	segLen := s.cum[i+1] - s.cum[i]
	return s.cum[i] + segLen*frac
}

// ArcLengthInverse returns the t whose ArcLength(t) equals length, inverting
// the same piecewise-linear model ArcLength uses (so the two are exact
// inverses of one another up to float rounding).
func (s *CubicHermiteSpline) ArcLengthInverse(length float32) float32 {
	total := s.cum[splineArcSamples]
	if total < 1e-9 {
		return 0
	}
	length = clampf(length, 0, total)
	lo, hi := 0, splineArcSamples
	for lo < hi {
		mid := (lo + hi) / 2
		if s.cum[mid] < length {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	i := lo
	if i == 0 {
		return 0
	}
	segLen := s.cum[i] - s.cum[i-1]
	frac := float32(0)
	if segLen > 1e-9 {
		frac = (length - s.cum[i-1]) / segLen
	}
	t := (float32(i-1) + frac) / splineArcSamples
	return clampf(t, 0, 1)
}

// JointInfo caches, for one intermediate joint along a spline chain, its
// fractional position (by default-pose arc length) and the offset pose
// that maps the spline's on-curve frame back to the joint's authored local
// shape, computed once per target (section 4.7.4).
type JointInfo struct {
	JointIndex int
	Ratio      float32
	OffsetPose pose.Pose
}

// tangentFor scales a joint's local Y axis (the spine's authored "up the
// chain" direction) by the rotation and the caller-supplied magnitude.
func tangentFor(rot mgl32.Quat, scale float32) mgl32.Vec3 {
	return rot.Rotate(mgl32.Vec3{0, 1, 0}).Mul(scale)
}

// quatFromBasis builds a rotation quaternion from an orthonormal
// right-handed basis (x, y, z columns), via the standard trace-based
// matrix-to-quaternion conversion.
func quatFromBasis(x, y, z mgl32.Vec3) mgl32.Quat {
	m00, m10, m20 := x[0], x[1], x[2]
	m01, m11, m21 := y[0], y[1], y[2]
	m02, m12, m22 := z[0], z[1], z[2]
	trace := m00 + m11 + m22

	var w, qx, qy, qz float32
	switch {
	case trace > 0:
		s := float32(0.5) / sqrtf(trace+1)
		w = 0.25 / s
		qx = (m21 - m12) * s
		qy = (m02 - m20) * s
		qz = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2 * sqrtf(1+m00-m11-m22)
		w = (m21 - m12) / s
		qx = 0.25 * s
		qy = (m01 + m10) / s
		qz = (m02 + m20) / s
	case m11 > m22:
		s := 2 * sqrtf(1+m11-m00-m22)
		w = (m02 - m20) / s
		qx = (m01 + m10) / s
		qy = 0.25 * s
		qz = (m12 + m21) / s
	default:
		s := 2 * sqrtf(1+m22-m00-m11)
		w = (m10 - m01) / s
		qx = (m02 + m20) / s
		qy = (m12 + m21) / s
		qz = 0.25 * s
	}
	return mgl32.Quat{W: w, V: mgl32.Vec3{qx, qy, qz}}.Normalize()
}

func sqrtf(v float32) float32 {
	if v < 0 {
		v = 0
	}
	return float32(math.Sqrt(float64(v)))
}

func perpOf(axis mgl32.Vec3) mgl32.Vec3 {
	up := mgl32.Vec3{0, 1, 0}
	if absf32(axis.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	return up.Cross(axis).Normalize()
}

// splineFrame builds the on-curve pose at position pos, with Y aligned to
// tangent and X derived from twistRot's local X axis orthogonalised
// against Y.
func splineFrame(pos, tangent mgl32.Vec3, twistRot mgl32.Quat) pose.Pose {
	y := tangent
	if y.Len() < 1e-6 {
		y = mgl32.Vec3{0, 1, 0}
	} else {
		y = y.Normalize()
	}
	x := twistRot.Rotate(mgl32.Vec3{1, 0, 0})
	x = x.Sub(y.Mul(x.Dot(y)))
	if x.Len() < 1e-5 {
		x = perpOf(y)
	} else {
		x = x.Normalize()
	}
	z := x.Cross(y).Normalize()
	x = y.Cross(z).Normalize()
	return pose.Pose{Scale: mgl32.Vec3{1, 1, 1}, Rot: quatFromBasis(x, y, z), Trans: pos}
}

// PrecomputeJoints computes each intermediate joint's Ratio and OffsetPose
// from the skeleton's default poses, run once the first time a spline
// target spans [baseIndex, tipIndex]. intermediates must be listed in
// topological (base-to-tip) order and exclude baseIndex/tipIndex.
func PrecomputeJoints(skel *skeleton.Skeleton, baseIndex, tipIndex int, intermediates []int, tangentScaleBase, tangentScaleTip float32) []JointInfo {
	baseDefault := skel.AbsoluteDefaultPose(baseIndex)
	tipDefault := skel.AbsoluteDefaultPose(tipIndex)

	chainLen := baseDefault.Trans.Sub(tipDefault.Trans).Len()
	cum := make([]float32, len(intermediates)+2)
	positions := make([]mgl32.Vec3, len(intermediates)+2)
	positions[0] = baseDefault.Trans
	for i, j := range intermediates {
		positions[i+1] = skel.AbsoluteDefaultPose(j).Trans
	}
	positions[len(positions)-1] = tipDefault.Trans
	for i := 1; i < len(positions); i++ {
		cum[i] = cum[i-1] + positions[i].Sub(positions[i-1]).Len()
	}
	total := cum[len(cum)-1]
	if total < 1e-6 {
		total = chainLen
		if total < 1e-6 {
			total = 1
		}
	}

	spline := NewCubicHermiteSpline(
		baseDefault.Trans, tangentFor(baseDefault.Rot, tangentScaleBase),
		tipDefault.Trans, tangentFor(tipDefault.Rot, tangentScaleTip),
	)
	splineTotal := spline.TotalLength()
	if splineTotal < 1e-6 {
		splineTotal = 1
	}

	out := make([]JointInfo, len(intermediates))
	for i, j := range intermediates {
		ratio := cum[i+1] / total
		t := spline.ArcLengthInverse(ratio * splineTotal)
		pos := spline.Eval(t)
		tangent := spline.Derivative(t)
		twist := pose.SafeLerp(baseDefault.Rot, tipDefault.Rot, easeInQuad(t))
		frame := splineFrame(pos, tangent, twist)
		out[i] = JointInfo{
			JointIndex: j,
			Ratio:      ratio,
			OffsetPose: frame.Inverse().Mul(skel.AbsoluteDefaultPose(j)),
		}
	}
	return out
}

func easeInQuad(t float32) float32 { return t * t }

// SolveSpline fits a cubic Hermite spline between the current base and tip
// absolute poses and re-derives each intermediate joint's absolute pose
// from its cached JointInfo, blending toward its current (under) absolute
// pose by flex, then clamping its local translation length to within 15%
// of its default length, per section 4.7.4. baseAbs/tipAbs are the live
// absolute poses of the endpoints; underAbs is the skeleton-wide absolute
// pose array the joint would have without spline IK (read before this call
// mutates rel); rel is mutated in place for each intermediate joint.
func SolveSpline(skel *skeleton.Skeleton, rel, underAbs []pose.Pose, baseAbs, tipAbs pose.Pose, joints []JointInfo, flexFor func(JointInfo) float32, tangentScaleBase, tangentScaleTip float32) {
	tipRot := tipAbs.Rot
	midRot := pose.SafeLerp(baseAbs.Rot, tipRot, 0.5)
	if midRot.Rotate(mgl32.Vec3{0, 0, 1}).Dot(baseAbs.Rot.Rotate(mgl32.Vec3{0, 0, 1})) < 0 {
		tipRot = mgl32.Quat{W: -tipRot.W, V: tipRot.V.Mul(-1)}
	}

	spline := NewCubicHermiteSpline(
		baseAbs.Trans, tangentFor(baseAbs.Rot, tangentScaleBase),
		tipAbs.Trans, tangentFor(tipRot, tangentScaleTip),
	)
	total := spline.TotalLength()

	abs := make([]pose.Pose, len(rel))
	copy(abs, underAbs)

	for _, ji := range joints {
		t := spline.ArcLengthInverse(ji.Ratio * total)
		pos := spline.Eval(t)
		tangent := spline.Derivative(t)
		twist := pose.SafeLerp(baseAbs.Rot, tipRot, easeInQuad(t))
		frame := splineFrame(pos, tangent, twist)
		splineAbs := frame.Mul(ji.OffsetPose)

		flex := clampf(flexFor(ji), 0, 1)
		blended := pose.Blend(abs[ji.JointIndex], splineAbs, flex)

		parent := skel.ParentIndex(ji.JointIndex)
		var rel2 pose.Pose
		if parent == skeleton.InvalidJointIndex {
			rel2 = blended
		} else {
			rel2 = abs[parent].Inverse().Mul(blended)
		}

		defaultLen := skel.RelativeDefaultPose(ji.JointIndex).Trans.Len()
		if defaultLen > 1e-6 {
			lo, hi := defaultLen*0.85, defaultLen*1.15
			l := rel2.Trans.Len()
			if l > hi {
				rel2.Trans = rel2.Trans.Mul(hi / l)
			} else if l < lo && l > 1e-6 {
				rel2.Trans = rel2.Trans.Mul(lo / l)
			}
		}

		rel[ji.JointIndex] = rel2
		if parent == skeleton.InvalidJointIndex {
			abs[ji.JointIndex] = rel2
		} else {
			abs[ji.JointIndex] = abs[parent].Mul(rel2)
		}
	}
}
