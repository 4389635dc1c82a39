package node

import (
	"testing"

	"github.com/Carmen-Shannon/motionrig/engine/anim/variant"
)

func TestAdvanceTimeOnceClampsAndFiresOnDoneOnce(t *testing.T) {
	triggers := variant.NewMap()
	frame := advanceTime(0, 10, 1, 9, 1, false, "clip", triggers)
	if frame != 10 {
		t.Fatalf("advanceTime(once, past end) = %v, want 10", frame)
	}
	if _, ok := triggers.Triggers()["clipOnDone"]; !ok {
		t.Errorf("expected clipOnDone trigger to fire once playback reaches the end")
	}

	// Once already at the end, another step must not re-fire OnDone.
	triggers.ClearTriggers()
	frame = advanceTime(0, 10, 1, 10, 1, false, "clip", triggers)
	if frame != 10 {
		t.Errorf("advanceTime(once, already at end) = %v, want 10", frame)
	}
	if _, ok := triggers.Triggers()["clipOnDone"]; ok {
		t.Errorf("clipOnDone fired again after already reaching the end")
	}
}

func TestAdvanceTimeLoopWrapsAndFiresOnLoop(t *testing.T) {
	triggers := variant.NewMap()
	// length=10 frames; stepping 15 frames from frame 8 wraps past the end.
	frame := advanceTime(0, 10, 1, 8, 0.5, true, "clip", triggers)
	if frame < 0 || frame > 10 {
		t.Fatalf("advanceTime(loop) left frame out of range: %v", frame)
	}
	if _, ok := triggers.Triggers()["clipOnLoop"]; !ok {
		t.Errorf("expected clipOnLoop trigger to fire on wraparound")
	}
}

func TestAdvanceTimeLoopHugeDtStaysInRange(t *testing.T) {
	triggers := variant.NewMap()
	// A huge dt would wrap many times; the returned frame must still remain
	// in [start, end].
	frame := advanceTime(0, 10, 1, 0, 1000, true, "clip", triggers)
	if frame < 0 || frame > 10 {
		t.Errorf("advanceTime(loop, huge dt) left frame out of range: %v", frame)
	}
}

func TestAdvanceTimeSingleFrameRangeSnapsToEnd(t *testing.T) {
	triggers := variant.NewMap()
	frame := advanceTime(5, 5, 1, 5, 1, true, "clip", triggers)
	if frame != 5 {
		t.Errorf("advanceTime(single-frame range) = %v, want 5", frame)
	}
	if len(triggers.Triggers()) != 0 {
		t.Errorf("advanceTime(single-frame range) fired triggers, want none")
	}
}
