package node

import (
	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/skeleton"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// SourceAnimation is the resolved payload of an external animation cache
// lookup: one frame array in the source's own joint order, plus the joint
// names used to map it onto a skeleton.
type SourceAnimation struct {
	JointNames []string
	Frames     [][]pose.Pose // Frames[frame][sourceJoint], bone-local poses.
}

// AnimationSource is a handle to an asynchronously resolving clip fetch.
// Resolve is polled at the top of Evaluate until it first reports ready
// (and again after SetSkeleton); until then the clip returns the
// skeleton's relative default poses.
type AnimationSource interface {
	Resolve() (*SourceAnimation, bool)
}

// buildAnimFromSource maps a source animation onto skel by joint name,
// applying the skeleton's pre/post-rotation pose composition and rescaling
// each mapped joint's translation by the ratio of the skeleton's rest
// length to the source's, so large authored translations stay proportional
// on a differently scaled skeleton. Joints with no name match fall back to
// the skeleton's relative default pose for every frame.
func buildAnimFromSource(skel *skeleton.Skeleton, src *SourceAnimation) [][]pose.Pose {
	n := skel.NumJoints()
	nameToSrc := make(map[string]int, len(src.JointNames))
	for i, nm := range src.JointNames {
		nameToSrc[nm] = i
	}

	srcIndex := make([]int, n)
	restRatio := make([]float32, n)
	for j := 0; j < n; j++ {
		si, ok := nameToSrc[skel.JointName(j)]
		if !ok {
			srcIndex[j] = -1
			continue
		}
		srcIndex[j] = si
		restRatio[j] = 1
		if len(src.Frames) > 0 {
			skelLen := skel.RelativeDefaultPose(j).Trans.Len()
			srcLen := src.Frames[0][si].Trans.Len()
			if skelLen > 1e-5 && srcLen > 1e-5 {
				restRatio[j] = skelLen / srcLen
			}
		}
	}

	out := make([][]pose.Pose, len(src.Frames))
	for f, frame := range src.Frames {
		row := make([]pose.Pose, n)
		for j := 0; j < n; j++ {
			si := srcIndex[j]
			if si < 0 {
				row[j] = skel.RelativeDefaultPose(j)
				continue
			}
			p := frame[si]
			p.Trans = p.Trans.Mul(restRatio[j])
			row[j] = skel.PreRotationPose(j).Mul(p).Mul(skel.PostRotationPose(j))
		}
		out[f] = row
	}
	return out
}

// advanceTime steps frame forward by dt*timeScale*30 frames across
// [startFrame, endFrame], wrapping (loop) or clamping (once), and emits at
// most 3 "{id}OnLoop"/"{id}OnDone" triggers to bound storms from
// pathological dt. A single-frame range snaps straight to endFrame with no
// trigger.
func advanceTime(startFrame, endFrame, timeScale, frame, dt float32, loop bool, id string, triggersOut *variant.Map) float32 {
	if endFrame <= startFrame {
		return endFrame
	}
	length := endFrame - startFrame
	prev := frame
	frame += dt * timeScale * 30

	if !loop {
		if frame > endFrame {
			frame = endFrame
			if triggersOut != nil && prev < endFrame {
				triggersOut.SetTrigger(id + "OnDone")
			}
		} else if frame < startFrame {
			frame = startFrame
		}
		return frame
	}

	emitted := 0
	for frame > endFrame && emitted < 3 {
		frame -= length
		if triggersOut != nil {
			triggersOut.SetTrigger(id + "OnLoop")
		}
		emitted++
	}
	for frame < startFrame && emitted < 3 {
		frame += length
		if triggersOut != nil {
			triggersOut.SetTrigger(id + "OnLoop")
		}
		emitted++
	}
	for frame > endFrame {
		frame -= length
	}
	for frame < startFrame {
		frame += length
	}
	return frame
}

// Clip is the leaf node that plays back a single animation at 30fps
// logical frame rate, independent of wall-clock dt.
type Clip struct {
	Base

	source AnimationSource
	loaded bool
	anim   [][]pose.Pose

	mirrorBuilt bool
	mirrorAnim  [][]pose.Pose

	StartFrame float32
	EndFrame   float32
	TimeScale  float32
	Loop       bool
	MirrorFlag bool
	Frame      float32

	// *Var, when non-empty, names a variable-map key whose value overrides
	// the corresponding field for this evaluate call.
	StartFrameVar string
	EndFrameVar   string
	TimeScaleVar  string
	LoopVar       string
	MirrorFlagVar string

	buf []pose.Pose
}

// NewClip constructs a clip node bound to source; source may still be
// resolving, in which case Evaluate returns identity/default poses until
// Resolve reports ready.
func NewClip(id string, source AnimationSource) *Clip {
	return &Clip{
		Base:      NewBase(id, KindClip),
		source:    source,
		TimeScale: 1,
	}
}

func (c *Clip) resolveIfReady() {
	if c.loaded || c.source == nil {
		return
	}
	src, ready := c.source.Resolve()
	if !ready {
		return
	}
	skel := c.Skeleton()
	if skel == nil {
		return
	}
	c.anim = buildAnimFromSource(skel, src)
	c.mirrorBuilt = false
	c.mirrorAnim = nil
	c.loaded = true
}

// SetSkeleton stores skel and, since the clip caches frames matched against
// a specific skeleton, forces a re-resolve against the new skeleton.
func (c *Clip) SetSkeleton(skel *skeleton.Skeleton) {
	c.Base.SetSkeleton(skel)
	c.loaded = false
	c.anim = nil
	c.mirrorBuilt = false
	c.mirrorAnim = nil
}

// SetCurrentFrame seeks the clip's playback cursor directly.
func (c *Clip) SetCurrentFrame(frame float32) {
	c.Frame = frame
}

func (c *Clip) resolveParams(vars *variant.Map) (start, end, scale float32, loop, mirror bool) {
	start, end, scale = c.StartFrame, c.EndFrame, c.TimeScale
	loop, mirror = c.Loop, c.MirrorFlag
	if vars == nil {
		return
	}
	if c.StartFrameVar != "" {
		start = vars.LookupFloat(c.StartFrameVar, start)
	}
	if c.EndFrameVar != "" {
		end = vars.LookupFloat(c.EndFrameVar, end)
	}
	if c.TimeScaleVar != "" {
		scale = vars.LookupFloat(c.TimeScaleVar, scale)
	}
	if c.LoopVar != "" {
		loop = vars.LookupBool(c.LoopVar, loop)
	}
	if c.MirrorFlagVar != "" {
		mirror = vars.LookupBool(c.MirrorFlagVar, mirror)
	}
	return
}

func (c *Clip) frameRow(index int) []pose.Pose {
	if index < 0 {
		index = 0
	}
	if index > len(c.anim)-1 {
		index = len(c.anim) - 1
	}
	if !c.mirrorBuilt {
		return c.anim[index]
	}
	return c.mirrorRow(index)
}

func (c *Clip) mirrorRow(index int) []pose.Pose {
	if c.mirrorAnim == nil {
		c.mirrorAnim = make([][]pose.Pose, len(c.anim))
	}
	if c.mirrorAnim[index] == nil {
		c.mirrorAnim[index] = c.Skeleton().MirrorRelativePoses(c.anim[index])
	}
	return c.mirrorAnim[index]
}

// Evaluate advances playback by dt and returns the blended pose between the
// two bracketing integer frames.
func (c *Clip) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	c.resolveIfReady()
	skel := c.Skeleton()
	if skel == nil {
		return identityPoses(0)
	}
	n := skel.NumJoints()
	c.buf = ensureLen(c.buf, n)

	if !c.loaded || len(c.anim) == 0 {
		for i := 0; i < n; i++ {
			c.buf[i] = skel.RelativeDefaultPose(i)
		}
		return c.buf
	}

	start, end, scale, loop, mirror := c.resolveParams(vars)
	c.Frame = advanceTime(start, end, scale, c.Frame, dt, loop, c.ID(), triggersOut)
	c.mirrorBuilt = mirror

	lo := int(c.Frame)
	alpha := c.Frame - float32(lo)
	hi := lo + 1
	if hi > len(c.anim)-1 {
		hi = len(c.anim) - 1
	}
	loRow := c.frameRow(lo)
	hiRow := c.frameRow(hi)
	for i := 0; i < n; i++ {
		c.buf[i] = pose.Blend(loRow[i], hiRow[i], alpha)
	}
	return c.buf
}

// Overlay ignores underPoses; clip playback has nothing to overlay against.
func (c *Clip) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return c.Evaluate(vars, ctx, dt, triggersOut)
}
