// Package constraint implements the per-joint rotation constraints applied
// during IK solving: a hinge-plus-twist-range ElbowConstraint and a
// swing/twist-limited SwingTwistConstraint.
package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Rotation is the shared constraint interface: Apply clamps rotation into
// the constraint's allowed range and reports whether it changed anything.
type Rotation interface {
	Apply(rotation mgl32.Quat) (mgl32.Quat, bool)
	SetReferenceRotation(ref mgl32.Quat)
	ReferenceRotation() mgl32.Quat
	ClearHistory()
}

const epsilon = 1e-4

func swingTwistDecompose(rotation mgl32.Quat, axis mgl32.Vec3) (swing, twist mgl32.Quat) {
	// rotation = swing * twist, twist about axis.
	rotAxis := rotation.V
	proj := axis.Mul(rotAxis.Dot(axis))
	twist = mgl32.Quat{W: rotation.W, V: proj}
	if twist.Dot(twist) < epsilon*epsilon {
		twist = mgl32.QuatIdent()
	} else {
		twist = twist.Normalize()
	}
	swing = rotation.Mul(twist.Conjugate())
	return swing, twist
}

func signedTwistAngle(twist mgl32.Quat, axis, perpAxis mgl32.Vec3) float32 {
	w := twist.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	angle := 2 * float32(math.Acos(float64(absf(w))))
	swungPerp := twist.Rotate(perpAxis)
	cross := perpAxis.Cross(swungPerp)
	sign := float32(1)
	if cross.Dot(axis) < 0 {
		sign = -1
	}
	return sign * angle
}

func absf(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func perpendicularOf(axis mgl32.Vec3) mgl32.Vec3 {
	// Pick the largest-magnitude axis component and rotate indices to build
	// a perpendicular vector, matching ElbowConstraint::setHingeAxis.
	const threshold = 0.57735 // 1/sqrt(3)
	i, j, k := 0, 1, 2
	switch {
	case absf(axis[1]) > threshold:
		i, j, k = 1, 2, 0
	case absf(axis[2]) > threshold:
		i, j, k = 2, 0, 1
	}
	var perp mgl32.Vec3
	perp[i] = -axis[j]
	perp[j] = axis[i]
	perp[k] = 0
	if perp.Len() < epsilon {
		perp[j] = 1
	}
	return perp.Normalize()
}

// Elbow is a hinge constraint: rotation about a unit axis is free within
// [MinAngle, MaxAngle]; any swing component is discarded entirely (the
// joint retains only its twist about the hinge axis).
type Elbow struct {
	Axis      mgl32.Vec3
	perpAxis  mgl32.Vec3
	MinAngle  float32
	MaxAngle  float32
	reference mgl32.Quat
}

// NewElbow constructs an Elbow constraint with hinge axis (normalised) and
// angle limits in radians.
func NewElbow(axis mgl32.Vec3, minAngle, maxAngle float32) *Elbow {
	axis = axis.Normalize()
	if minAngle > maxAngle {
		minAngle, maxAngle = maxAngle, minAngle
	}
	return &Elbow{
		Axis:      axis,
		perpAxis:  perpendicularOf(axis),
		MinAngle:  minAngle,
		MaxAngle:  maxAngle,
		reference: mgl32.QuatIdent(),
	}
}

func (e *Elbow) SetReferenceRotation(ref mgl32.Quat) { e.reference = ref }
func (e *Elbow) ReferenceRotation() mgl32.Quat       { return e.reference }
func (e *Elbow) ClearHistory()                       {}

// Apply factors rotation relative to the reference into swing*twist about
// Axis, clamps the twist angle, and discards swing whenever there is any
// (twist was clamped, or the swing component is non-trivial).
func (e *Elbow) Apply(rotation mgl32.Quat) (mgl32.Quat, bool) {
	post := rotation.Mul(e.reference.Conjugate())
	swing, twist := swingTwistDecompose(post, e.Axis)
	angle := signedTwistAngle(twist, e.Axis, e.perpAxis)
	clamped := clampf(angle, e.MinAngle, e.MaxAngle)
	twistClamped := clamped != angle
	newTwist := mgl32.QuatRotate(clamped, e.Axis)

	const minSwingRealPart = 0.99999
	hasSwing := swing.W < minSwingRealPart
	if twistClamped || hasSwing {
		rotation = newTwist.Mul(e.reference).Normalize()
		return rotation, true
	}
	return rotation, false
}

// boundary tracks which twist limit was last clamped, to disambiguate
// cyclic twist angles and avoid popping between equivalent representations
// 2*pi apart.
type boundary int

const (
	boundaryLow boundary = -1
	boundaryNone boundary = 0
	boundaryHigh boundary = 1
)

const twoPi = 2 * math.Pi

// swingLimitFunction is the cyclic lookup table of minimum dot(Y, swungY)
// values indexed by theta = atan2(-swingAxis.z, swingAxis.x) in [0, 2*pi).
type swingLimitFunction struct {
	minDots []float32
}

func (f *swingLimitFunction) setMinDots(minDots []float32) {
	const minMinDot = -0.999
	const maxMinDot = 1.0
	if len(minDots) == 0 {
		f.minDots = []float32{minMinDot, minMinDot}
		return
	}
	out := make([]float32, 0, len(minDots)+1)
	for _, d := range minDots {
		out = append(out, clampf(d, minMinDot, maxMinDot))
	}
	out = append(out, out[0])
	f.minDots = out
}

func (f *swingLimitFunction) setCone(maxAngle float32) {
	d := float32(math.Cos(float64(maxAngle)))
	f.setMinDots([]float32{d})
}

// setSwingLimitsFromDirections resorts a set of boundary directions by
// theta and resamples onto a uniform grid, matching
// SwingTwistConstraint::setSwingLimits(vector<vec3>).
func (f *swingLimitFunction) setSwingLimitsFromDirections(dirs []mgl32.Vec3) {
	type pair struct {
		theta  float32
		minDot float32
	}
	if len(dirs) == 0 {
		f.minDots = nil
		return
	}
	pairs := make([]pair, 0, len(dirs))
	for _, d := range dirs {
		swingAxis := mgl32.Vec3{0, 1, 0}.Cross(d)
		theta := float32(math.Atan2(float64(-swingAxis[2]), float64(swingAxis[0])))
		if theta < 0 {
			theta += float32(twoPi)
		}
		length := d.Len()
		if length < epsilon {
			length = epsilon
		}
		pairs = append(pairs, pair{theta: theta, minDot: d[1] / length})
	}
	if len(pairs) == 1 {
		f.setCone(float32(math.Acos(float64(pairs[0].minDot))))
		return
	}
	// sort by theta
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j-1].theta > pairs[j].theta; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}
	n := len(pairs)
	out := make([]float32, n)
	for g := 0; g < n; g++ {
		theta := float32(g) * float32(twoPi) / float32(n)
		// li = greatest index with theta <= target (cyclically, n-1 if none).
		li := n - 1
		for i := 0; i < n; i++ {
			if pairs[i].theta <= theta {
				li = i
			}
		}
		ri := (li + 1) % n
		leftTheta, rightTheta := pairs[li].theta, pairs[ri].theta
		if ri == 0 {
			rightTheta += float32(twoPi)
		}
		if leftTheta > theta {
			leftTheta -= float32(twoPi)
		}
		span := rightTheta - leftTheta
		weight := float32(0)
		if span > epsilon {
			weight = (theta - leftTheta) / span
		}
		out[g] = pairs[li].minDot + weight*(pairs[ri].minDot-pairs[li].minDot)
	}
	out = append(out, out[0])
	f.minDots = out
}

func (f *swingLimitFunction) getMinDot(theta float32) float32 {
	if len(f.minDots) == 0 {
		return -1
	}
	n := len(f.minDots) - 1
	normalized := float32(theta) / float32(twoPi)
	normalized -= float32(math.Floor(float64(normalized)))
	scaled := normalized * float32(n)
	i := int(math.Floor(float64(scaled)))
	if i >= n {
		i = n - 1
	}
	frac := scaled - float32(i)
	return f.minDots[i] + frac*(f.minDots[i+1]-f.minDots[i])
}

// SwingTwist constrains twist about the local Y axis within [MinTwist,
// MaxTwist] and swing in the XZ plane via a cyclic minDot lookup table.
type SwingTwist struct {
	limits    swingLimitFunction
	MinTwist  float32
	MaxTwist  float32
	reference mgl32.Quat
	lastBoundary boundary
	LowerSpine bool
}

// NewSwingTwist constructs a SwingTwist constraint with the given twist
// range in radians. Swing is unlimited until SetSwingLimits is called.
func NewSwingTwist(minTwist, maxTwist float32) *SwingTwist {
	if minTwist > maxTwist {
		minTwist, maxTwist = maxTwist, minTwist
	}
	return &SwingTwist{
		MinTwist:  minTwist,
		MaxTwist:  maxTwist,
		reference: mgl32.QuatIdent(),
	}
}

// SetSwingLimits installs a cyclic minDot lookup table directly.
func (c *SwingTwist) SetSwingLimits(minDots []float32) {
	c.limits.setMinDots(minDots)
}

// SetSwingLimitsFromDirections derives the lookup table from a set of
// swung-direction boundary vectors, resorted by angle and resampled onto a
// uniform grid.
func (c *SwingTwist) SetSwingLimitsFromDirections(dirs []mgl32.Vec3) {
	c.limits.setSwingLimitsFromDirections(dirs)
}

// MinDots exposes the resolved lookup table, for tests.
func (c *SwingTwist) MinDots() []float32 { return c.limits.minDots }

func (c *SwingTwist) SetReferenceRotation(ref mgl32.Quat) { c.reference = ref }
func (c *SwingTwist) ReferenceRotation() mgl32.Quat       { return c.reference }
func (c *SwingTwist) ClearHistory()                       { c.lastBoundary = boundaryNone }

func (c *SwingTwist) handleTwistBoundary(angle float32) float32 {
	switch c.lastBoundary {
	case boundaryLow:
		if angle > c.MaxTwist {
			angle -= float32(twoPi)
		}
	case boundaryHigh:
		if angle < c.MinTwist {
			angle += float32(twoPi)
		}
	default:
		midBoundary := 0.5 * (c.MaxTwist + c.MinTwist + float32(twoPi))
		if angle > midBoundary {
			angle -= float32(twoPi)
		} else if angle < midBoundary-float32(twoPi) {
			angle += float32(twoPi)
		}
	}
	return angle
}

// Apply decomposes rotation relative to the reference into swing (XZ
// plane) and twist (about Y), clamps each against the configured limits,
// and recomposes only if either component was actually clamped.
func (c *SwingTwist) Apply(rotation mgl32.Quat) (mgl32.Quat, bool) {
	yAxis := mgl32.Vec3{0, 1, 0}
	post := rotation.Mul(c.reference.Conjugate())
	swing, twist := swingTwistDecompose(post, yAxis)

	perp := mgl32.Vec3{1, 0, 0}
	angle := signedTwistAngle(twist, yAxis, perp)
	angle = c.handleTwistBoundary(angle)
	clampedAngle := clampf(angle, c.MinTwist, c.MaxTwist)
	twistClamped := clampedAngle != angle
	if clampedAngle == c.MinTwist {
		c.lastBoundary = boundaryLow
	} else if clampedAngle == c.MaxTwist {
		c.lastBoundary = boundaryHigh
	} else {
		c.lastBoundary = boundaryNone
	}

	swungY := swing.Rotate(yAxis)
	swingAxis := yAxis.Cross(swungY)
	axisLen := swingAxis.Len()
	swingClamped := false
	newSwing := swing
	if axisLen > epsilon {
		theta := float32(math.Atan2(float64(-swingAxis[2]), float64(swingAxis[0])))
		if theta < 0 {
			theta += float32(twoPi)
		}
		minDot := c.limits.getMinDot(theta)
		if swungY.Dot(yAxis) < minDot {
			acosArg := clampf(minDot, -1, 1)
			angleLimit := float32(math.Acos(float64(acosArg)))
			newSwing = mgl32.QuatRotate(angleLimit, swingAxis.Normalize())
			swingClamped = true
		}
	}

	if !twistClamped && !swingClamped {
		return rotation, false
	}
	newTwist := mgl32.QuatRotate(clampedAngle, yAxis)
	rotation = newSwing.Mul(newTwist).Mul(c.reference).Normalize()
	return rotation, true
}
