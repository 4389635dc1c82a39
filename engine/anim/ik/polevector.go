package ik

import (
	"math"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Option configures a PoleVectorConstraint at construction time, following
// the teacher's functional-option builder convention
// (engine/scene/scene_builder.go).
type Option func(*PoleVectorConstraint)

// PoleVectorConstraint disambiguates the elbow/knee bend plane of a
// three-joint chain by twisting the base/tip joints about the base-to-tip
// axis until the mid joint's local X axis points toward a pole vector.
// The hand-target heuristic weights (section 4.7.3's "findThetaNewWay")
// are exposed here as tunable fields rather than compile-time constants,
// per DESIGN.md's resolved open question.
type PoleVectorConstraint struct {
	PhiMin        float32 // radians, lower clamp for the hand heuristic.
	PhiMax        float32 // radians, upper clamp for the hand heuristic.
	ZStart        float32
	XStart        float32
	Biases        [3]float32 // [bias, unused, unused] additive terms.
	Weights       [3]float32 // [wx, wy, wz]
	ZWeightBottom float32
	ArmLength     float32 // normalises hand position; defaults to 1.
}

// NewPoleVectorConstraint builds a constraint with the source's empirical
// defaults, overridable via opts.
func NewPoleVectorConstraint(opts ...Option) *PoleVectorConstraint {
	pv := &PoleVectorConstraint{
		PhiMin:        13 * math.Pi / 180,
		PhiMax:        175 * math.Pi / 180,
		ZStart:        0,
		XStart:        0,
		Biases:        [3]float32{0, 0, 0},
		Weights:       [3]float32{1, 1, 1},
		ZWeightBottom: 1,
		ArmLength:     1,
	}
	for _, o := range opts {
		o(pv)
	}
	return pv
}

func WithBias(b float32) Option           { return func(p *PoleVectorConstraint) { p.Biases[0] = b } }
func WithWeights(wx, wy, wz float32) Option {
	return func(p *PoleVectorConstraint) { p.Weights = [3]float32{wx, wy, wz} }
}
func WithZStart(z float32) Option    { return func(p *PoleVectorConstraint) { p.ZStart = z } }
func WithXStart(x float32) Option    { return func(p *PoleVectorConstraint) { p.XStart = x } }
func WithArmLength(l float32) Option { return func(p *PoleVectorConstraint) { p.ArmLength = l } }
func WithZWeightBottom(w float32) Option {
	return func(p *PoleVectorConstraint) { p.ZWeightBottom = w }
}

// FindTheta computes the signed rotation about the base-to-tip axis that
// rotates the mid joint's local X axis (projected perpendicular to that
// axis) into poleVector (similarly projected). Returns ok=false when
// either projected vector degenerates below 1e-4.
func (pv *PoleVectorConstraint) FindTheta(skel *skeleton.Skeleton, rel []pose.Pose, baseIndex, midIndex, tipIndex int, poleVector mgl32.Vec3) (theta float32, axis mgl32.Vec3, ok bool) {
	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	axisVec := abs[tipIndex].Trans.Sub(abs[baseIndex].Trans)
	if axisVec.Len() < 1e-4 {
		return 0, mgl32.Vec3{}, false
	}
	axis = axisVec.Normalize()

	refVector := abs[midIndex].Rot.Rotate(mgl32.Vec3{1, 0, 0})
	projRef := refVector.Sub(axis.Mul(refVector.Dot(axis)))
	projPole := poleVector.Sub(axis.Mul(poleVector.Dot(axis)))
	if projRef.Len() < 1e-4 || projPole.Len() < 1e-4 {
		return 0, axis, false
	}
	projRef = projRef.Normalize()
	projPole = projPole.Normalize()

	dot := clampf(projRef.Dot(projPole), -1, 1)
	angle := float32(math.Acos(float64(dot)))
	cross := projRef.Cross(projPole)
	sign := float32(1)
	if cross.Dot(axis) < 0 {
		sign = -1
	}
	return sign * angle, axis, true
}

// FindThetaHandHeuristic replaces FindTheta for the hand-target special
// case: theta is a weighted function of the hand position relative to the
// shoulder, normalised by ArmLength, instead of a true pole-vector
// projection. x/y/z are the hand's shoulder-relative position.
func (pv *PoleVectorConstraint) FindThetaHandHeuristic(handRelShoulder mgl32.Vec3) float32 {
	armLen := pv.ArmLength
	if armLen < 1e-5 {
		armLen = 1
	}
	x := handRelShoulder[0] / armLen
	y := handRelShoulder[1] / armLen
	z := handRelShoulder[2] / armLen

	clipNegX := x
	if clipNegX > 0 {
		clipNegX = 0
	}
	clipZ := pv.ZStart - z
	if clipZ < 0 {
		clipZ = 0
	}

	zWeight := pv.Weights[2]
	if y < 0 {
		// Hand below the shoulder: the z term uses its own weight rather
		// than the top-side one, matching the asymmetric bend the source
		// heuristic applies when reaching downward.
		zWeight = pv.ZWeightBottom
	}

	theta := pv.Biases[0] +
		pv.Weights[0]*clipf(-clipNegX, 0, math.MaxFloat32) +
		pv.Weights[1]*y +
		zWeight*clipZ*absf32(y)
	return clampf(theta, pv.PhiMin, pv.PhiMax)
}

// Apply rotates baseIndex by angleAxis(theta, axis) and tipIndex by its
// inverse, so the chain twists about axis without translating either
// endpoint. axis and the returned theta from FindTheta must be passed
// through unchanged.
func (pv *PoleVectorConstraint) Apply(skel *skeleton.Skeleton, rel []pose.Pose, baseIndex, tipIndex int, theta float32, axis mgl32.Vec3) {
	abs := make([]pose.Pose, len(rel))
	copy(abs, rel)
	skel.ConvertRelativePosesToAbsolute(abs)

	delta := mgl32.QuatRotate(theta, axis)
	newBaseAbsRot := delta.Mul(abs[baseIndex].Rot).Normalize()
	rel[baseIndex].Rot = relativeRotationFromAbsolute(skel, abs, baseIndex, newBaseAbsRot)

	refreshAbsoluteRange(skel, rel, abs, minInt(baseIndex, tipIndex), maxInt(baseIndex, tipIndex))

	invDelta := delta.Conjugate().Normalize()
	newTipAbsRot := invDelta.Mul(abs[tipIndex].Rot).Normalize()
	rel[tipIndex].Rot = relativeRotationFromAbsolute(skel, abs, tipIndex, newTipAbsRot)
}

func clipf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
