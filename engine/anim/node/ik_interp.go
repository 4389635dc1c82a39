package node

import (
	"math"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
)

// ikInterpType selects which end of an enable/disable transition an IK
// node's interpolation envelope is blending from, per section 4.7.5.
type ikInterpType int

const (
	ikInterpNone ikInterpType = iota
	// ikInterpSnapshotToUnderPoses blends a frozen solved-chain snapshot
	// toward the live under poses (node disabled).
	ikInterpSnapshotToUnderPoses
	// ikInterpSnapshotToSolve blends a frozen under-pose snapshot toward
	// the live solved result (node enabled).
	ikInterpSnapshotToSolve
)

// ikInterpEnvelope is the {type, alpha, alphaVel} interpolation state every
// IK node tracks across an enable/disable toggle.
type ikInterpEnvelope struct {
	typ      ikInterpType
	alpha    float32
	alphaVel float32
	snapshot []pose.Pose
}

// begin starts a new interpolation of durationFrames/30 seconds, capturing
// snapshot as the frozen endpoint.
func (e *ikInterpEnvelope) begin(typ ikInterpType, durationFrames float32, snapshot []pose.Pose) {
	dur := durationFrames
	if dur <= 0 {
		dur = 1
	}
	e.typ = typ
	e.alpha = 0
	e.alphaVel = 30 / dur
	e.snapshot = ensureLen(e.snapshot, len(snapshot))
	copy(e.snapshot, snapshot)
}

// active reports whether an interpolation is in progress.
func (e *ikInterpEnvelope) active() bool { return e.typ != ikInterpNone }

// step advances alpha by dt and returns the blend weight to apply this
// frame (expo-eased for the spline solver, linear otherwise), clearing the
// envelope once the interpolation completes.
func (e *ikInterpEnvelope) step(dt float32, expo bool) float32 {
	if e.typ == ikInterpNone {
		return 1
	}
	e.alpha += e.alphaVel * dt
	if e.alpha > 1 {
		e.alpha = 1
	}
	w := e.alpha
	if expo {
		w = 1 - float32(math.Exp2(float64(-10*e.alpha)))
	}
	if e.alpha >= 1 {
		e.typ = ikInterpNone
	}
	return w
}

// blend applies the envelope's current weight between the frozen snapshot
// and live, writing into out (out may alias live).
func (e *ikInterpEnvelope) blend(out, live []pose.Pose, dt float32, expo bool) {
	w := e.step(dt, expo)
	for i := range out {
		out[i] = pose.Blend(e.snapshot[i], live[i], w)
	}
}
