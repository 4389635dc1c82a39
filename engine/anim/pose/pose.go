// Package pose implements the scaled-rigid-transform algebra used throughout
// the animation and IK packages: composition, inverse, mirror, blend, and
// point/vector transforms.
package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a scaled rigid transform: non-uniform scale, rotation, translation.
// Composition applies scale, then rotation, then translation, matching the
// order a joint's local transform is applied within its parent's frame.
type Pose struct {
	Scale mgl32.Vec3
	Rot   mgl32.Quat
	Trans mgl32.Vec3
}

// Identity is the neutral pose: unit scale, identity rotation, zero translation.
var Identity = Pose{
	Scale: mgl32.Vec3{1, 1, 1},
	Rot:   mgl32.QuatIdent(),
	Trans: mgl32.Vec3{0, 0, 0},
}

// New builds a Pose from explicit scale, rotation, and translation.
func New(scale mgl32.Vec3, rot mgl32.Quat, trans mgl32.Vec3) Pose {
	return Pose{Scale: scale, Rot: rot, Trans: trans}
}

// FromRotTrans builds a Pose with unit scale from a rotation and translation,
// the common case for joint poses which never carry authored scale.
func FromRotTrans(rot mgl32.Quat, trans mgl32.Vec3) Pose {
	return Pose{Scale: mgl32.Vec3{1, 1, 1}, Rot: rot, Trans: trans}
}

// TransformPoint applies the pose to a point: trans + rot*(scale*p).
func (p Pose) TransformPoint(v mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{v[0] * p.Scale[0], v[1] * p.Scale[1], v[2] * p.Scale[2]}
	return p.Trans.Add(p.Rot.Rotate(scaled))
}

// TransformVector applies the pose to a direction vector: ignores
// translation. Matches AnimPose::xformVectorFast in spirit (no inverse
// transpose correction for non-uniform scale; acceptable for the
// near-uniform scales used by skeletal joints).
func (p Pose) TransformVector(v mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{v[0] * p.Scale[0], v[1] * p.Scale[1], v[2] * p.Scale[2]}
	return p.Rot.Rotate(scaled)
}

// Mul composes two poses: p.Mul(child) applies child within p's frame, i.e.
// (p ∘ child)(x) = p(child(x)).
func (p Pose) Mul(child Pose) Pose {
	return Pose{
		Scale: mgl32.Vec3{p.Scale[0] * child.Scale[0], p.Scale[1] * child.Scale[1], p.Scale[2] * child.Scale[2]},
		Rot:   p.Rot.Mul(child.Rot).Normalize(),
		Trans: p.TransformPoint(child.Trans),
	}
}

// Inverse returns the pose q such that q.Mul(p) == Identity, provided no
// scale component is zero. p.Mul(q) is also Identity when the scale is
// uniform; with non-uniform scale and a non-identity rotation its
// translation is in general not zero.
func (p Pose) Inverse() Pose {
	invScale := mgl32.Vec3{1 / p.Scale[0], 1 / p.Scale[1], 1 / p.Scale[2]}
	invRot := p.Rot.Conjugate().Normalize()
	invTrans := invRot.Rotate(mgl32.Vec3{
		-p.Trans[0] * invScale[0],
		-p.Trans[1] * invScale[1],
		-p.Trans[2] * invScale[2],
	})
	return Pose{Scale: invScale, Rot: invRot, Trans: invTrans}
}

// Mirror reflects the pose across the local X plane without introducing
// negative scale: rot -> (w, x, -y, -z), trans -> (-tx, ty, tz).
func (p Pose) Mirror() Pose {
	return Pose{
		Scale: p.Scale,
		Rot:   mgl32.Quat{W: p.Rot.W, V: mgl32.Vec3{p.Rot.V[0], -p.Rot.V[1], -p.Rot.V[2]}},
		Trans: mgl32.Vec3{-p.Trans[0], p.Trans[1], p.Trans[2]},
	}
}

// SafeLerp performs shortest-arc quaternion interpolation: if the two
// quaternions are on opposite hemispheres, the second is negated before
// lerping, then the result is renormalised.
func SafeLerp(a, b mgl32.Quat, alpha float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = mgl32.Quat{W: -b.W, V: b.V.Mul(-1)}
	}
	return mgl32.QuatNlerp(a, b, alpha)
}

// Blend linearly interpolates scale and translation and shortest-arc lerps
// rotation, matching AnimUtil::blend / Pose::blend.
func Blend(a, b Pose, alpha float32) Pose {
	return Pose{
		Scale: lerpVec3(a.Scale, b.Scale, alpha),
		Rot:   SafeLerp(a.Rot, b.Rot, alpha),
		Trans: lerpVec3(a.Trans, b.Trans, alpha),
	}
}

// BlendAdd computes an additive blend: the delta from identity to b,
// scaled by alpha, composed onto a. Matches AnimUtil::blendAdd.
func BlendAdd(a, b Pose, alpha float32) Pose {
	scale := mgl32.Vec3{
		a.Scale[0] * lerp(1, b.Scale[0], alpha),
		a.Scale[1] * lerp(1, b.Scale[1], alpha),
		a.Scale[2] * lerp(1, b.Scale[2], alpha),
	}
	delta := b.Rot
	if mgl32.QuatIdent().Dot(delta) < 0 {
		delta = mgl32.Quat{W: -delta.W, V: delta.V.Mul(-1)}
	}
	rot := SafeLerp(mgl32.QuatIdent(), delta, alpha).Mul(a.Rot).Normalize()
	trans := a.Trans.Add(b.Trans.Mul(alpha))
	return Pose{Scale: scale, Rot: rot, Trans: trans}
}

// AverageQuats sign-corrects each quaternion against the first and returns
// the normalised sum, matching RotationAccumulator::getAverage's math.
func AverageQuats(quats []mgl32.Quat) mgl32.Quat {
	if len(quats) == 0 {
		return mgl32.QuatIdent()
	}
	sum := quats[0]
	for _, q := range quats[1:] {
		if quats[0].Dot(q) < 0 {
			q = mgl32.Quat{W: -q.W, V: q.V.Mul(-1)}
		}
		sum = mgl32.Quat{W: sum.W + q.W, V: sum.V.Add(q.V)}
	}
	return sum.Normalize()
}

// ApproxEqual reports whether two poses are equal within eps on every
// component, for tests.
func ApproxEqual(a, b Pose, eps float32) bool {
	return vecApproxEqual(a.Scale, b.Scale, eps) &&
		vecApproxEqual(a.Trans, b.Trans, eps) &&
		(quatApproxEqual(a.Rot, b.Rot, eps) || quatApproxEqual(a.Rot, mgl32.Quat{W: -b.Rot.W, V: b.Rot.V.Mul(-1)}, eps))
}

func vecApproxEqual(a, b mgl32.Vec3, eps float32) bool {
	return absf(a[0]-b[0]) <= eps && absf(a[1]-b[1]) <= eps && absf(a[2]-b[2]) <= eps
}

func quatApproxEqual(a, b mgl32.Quat, eps float32) bool {
	return absf(a.W-b.W) <= eps && absf(a.V[0]-b.V[0]) <= eps && absf(a.V[1]-b.V[1]) <= eps && absf(a.V[2]-b.V[2]) <= eps
}

func absf(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func lerp(a, b, alpha float32) float32 {
	return a + (b-a)*alpha
}

func lerpVec3(a, b mgl32.Vec3, alpha float32) mgl32.Vec3 {
	return mgl32.Vec3{lerp(a[0], b[0], alpha), lerp(a[1], b[1], alpha), lerp(a[2], b[2], alpha)}
}
