package node

import (
	"math/rand"

	"github.com/Carmen-Shannon/motionrig/engine/anim/pose"
	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

// RandomSwitch extends StateMachine with priority-weighted random state
// selection and two independent timers: one that fires a named trigger
// (e.g. to cue a one-shot) and one that picks a new state.
type RandomSwitch struct {
	StateMachine

	TriggerTimeMin, TriggerTimeMax           float32
	RandomSwitchTimeMin, RandomSwitchTimeMax float32
	TriggerName                              string

	// Resume, when true, preserves a re-entered state's existing playback
	// frame instead of snapping its child to InterpTarget.
	Resume bool

	// RandFloat01 returns a uniform random value in [0,1); overridable for
	// deterministic tests. Defaults to math/rand.
	RandFloat01 func() float32

	lastPlayedState string
	triggerTimer    float32
	randomTimer     float32
	timersPrimed    bool
}

func NewRandomSwitch(id string, states []State) *RandomSwitch {
	return &RandomSwitch{
		StateMachine: StateMachine{Base: NewBase(id, KindRandomSwitch), States: states},
		RandFloat01:  rand.Float32,
	}
}

func (n *RandomSwitch) randRange(lo, hi float32) float32 {
	if hi <= lo {
		return lo
	}
	return lo + n.RandFloat01()*(hi-lo)
}

func (n *RandomSwitch) primeTimers() {
	if n.timersPrimed {
		return
	}
	n.triggerTimer = n.randRange(n.TriggerTimeMin, n.TriggerTimeMax)
	n.randomTimer = n.randRange(n.RandomSwitchTimeMin, n.RandomSwitchTimeMax)
	n.timersPrimed = true
}

// pickState draws a uniform random and walks the cumulative normalised
// priorities of eligible states (priority > 0, ID != lastPlayedState).
func (n *RandomSwitch) pickState() int {
	total := float32(0)
	for _, s := range n.States {
		if s.Priority > 0 && s.ID != n.lastPlayedState {
			total += s.Priority
		}
	}
	if total <= 0 {
		return -1
	}
	r := n.RandFloat01() * total
	cum := float32(0)
	for i, s := range n.States {
		if s.Priority <= 0 || s.ID == n.lastPlayedState {
			continue
		}
		cum += s.Priority
		if r <= cum {
			return i
		}
	}
	return -1
}

func (n *RandomSwitch) Evaluate(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map) []pose.Pose {
	n.primeTimers()

	n.triggerTimer -= dt
	if n.triggerTimer <= 0 {
		if triggersOut != nil && n.TriggerName != "" {
			triggersOut.SetTrigger(n.TriggerName)
		}
		n.triggerTimer = n.randRange(n.TriggerTimeMin, n.TriggerTimeMax)
	}

	n.randomTimer -= dt
	if n.randomTimer <= 0 {
		n.randomTimer = n.randRange(n.RandomSwitchTimeMin, n.RandomSwitchTimeMax)
		if idx := n.pickState(); idx >= 0 {
			n.lastPlayedState = n.currentStateID()
			n.beginSwitch(idx, !n.Resume, vars, ctx, triggersOut)
		}
	}

	n.resolveTransitions(vars, ctx, triggersOut)
	return n.evaluateCore(vars, ctx, dt, triggersOut)
}

func (n *RandomSwitch) Overlay(vars *variant.Map, ctx *Context, dt float32, triggersOut *variant.Map, underPoses []pose.Pose) []pose.Pose {
	return n.Evaluate(vars, ctx, dt, triggersOut)
}
