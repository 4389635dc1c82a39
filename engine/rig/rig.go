// Package rig is the per-avatar graph driver: it owns one skeleton, one
// animation node tree, and the variable map the host populates each frame,
// and exposes a single Step entry point shaped like
// engine/renderer/animator.Animator's PrepareFrame.
package rig

import (
	"fmt"

	"github.com/Carmen-Shannon/motionrig/engine/anim/node"
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// Logger is the narrow logging surface a Rig reports configuration errors
// to; it is satisfied by node.Logger so a host can pass the same sink to
// both layers. A nil Logger is not valid; New installs a silent no-op
// Logger.
type Logger interface {
	Warnf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// Rig binds a skeleton to a root node and steps it once per frame,
// collecting the relative pose vector, the absolute pose vector (derived
// on demand), and the set of triggers the tree fired this frame.
type Rig struct {
	Name string

	skel *skeleton.Skeleton
	root node.Node
	vars *variant.Map

	ctx      node.Context
	triggers *variant.Map

	relPoses []pose.Pose
	absPoses []pose.Pose
	absDirty bool

	Log Logger
}

// New constructs a Rig bound to skel and root. root.SetSkeleton(skel) is
// called immediately so every node resolves its joint names up front.
func New(name string, skel *skeleton.Skeleton, root node.Node) (*Rig, error) {
	if skel == nil {
		return nil, fmt.Errorf("rig: New(%q): skeleton is nil", name)
	}
	if root == nil {
		return nil, fmt.Errorf("rig: New(%q): root node is nil", name)
	}
	r := &Rig{
		Name:     name,
		skel:     skel,
		root:     root,
		vars:     variant.NewMap(),
		triggers: variant.NewMap(),
		Log:      noopLogger{},
	}
	root.SetSkeleton(skel)
	return r, nil
}

// Skeleton returns the bound skeleton.
func (r *Rig) Skeleton() *skeleton.Skeleton { return r.skel }

// Root returns the root node, for callers that need to add targets,
// constraints, or children not modeled by this package (e.g.
// ik.Target registration on an *node.InverseKinematics found via
// node.FindByName).
func (r *Rig) Root() node.Node { return r.root }

// Vars returns the variable map the host should populate before calling
// Step; values set here are visible to every node in the tree for the
// upcoming Step call.
func (r *Rig) Vars() *variant.Map { return r.vars }

// SetNowMicros stamps the host's monotonic clock reading into the node
// Context the next Step call will use. No node reads it; the CCD solver's
// wall-clock budget is measured with time.Now.
func (r *Rig) SetNowMicros(nowMicros int64) { r.ctx.NowMicros = nowMicros }

// SetFrameConversion installs the rig<->geometry frame conversion poses
// consulted by IK nodes that take targets in a host-defined space.
func (r *Rig) SetFrameConversion(geometryToRig, rigToGeometry pose.Pose) {
	r.ctx.GeometryToRig = geometryToRig
	r.ctx.RigToGeometry = rigToGeometry
}

// Step advances the tree by dt seconds, producing this frame's relative
// pose vector. The returned slice is owned by the Rig and is only valid
// until the next Step call.
func (r *Rig) Step(dt float32) []pose.Pose {
	r.triggers.ClearTriggers()
	r.relPoses = r.root.Evaluate(r.vars, &r.ctx, dt, r.triggers)
	r.absDirty = true
	return r.relPoses
}

// RelativePoses returns the pose vector produced by the most recent Step.
func (r *Rig) RelativePoses() []pose.Pose { return r.relPoses }

// AbsolutePoses derives and caches the absolute (model-space) pose vector
// for the most recent Step, recomputing it only when Step has run since
// the last call.
func (r *Rig) AbsolutePoses() []pose.Pose {
	if r.relPoses == nil {
		return nil
	}
	if !r.absDirty && len(r.absPoses) == len(r.relPoses) {
		return r.absPoses
	}
	r.absPoses = ensurePoseLen(r.absPoses, len(r.relPoses))
	copy(r.absPoses, r.relPoses)
	r.skel.ConvertRelativePosesToAbsolute(r.absPoses)
	r.absDirty = false
	return r.absPoses
}

// Triggers returns the trigger set fired by the most recent Step. The
// returned map must not be mutated by the caller.
func (r *Rig) Triggers() map[string]struct{} { return r.triggers.Triggers() }

func ensurePoseLen(buf []pose.Pose, n int) []pose.Pose {
	if len(buf) == n {
		return buf
	}
	return make([]pose.Pose, n)
}
