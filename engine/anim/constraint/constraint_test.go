package constraint

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestElbowWithinRangeUnchanged(t *testing.T) {
	e := NewElbow(mgl32.Vec3{0, 1, 0}, 0, math.Pi/2)
	rot := mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0})
	got, changed := e.Apply(rot)
	if changed {
		t.Errorf("Apply(0.5 rad, within [0,pi/2]) reported changed, want unchanged")
	}
	if got.Dot(rot) < 0.9999 {
		t.Errorf("Apply returned %+v, want unchanged %+v", got, rot)
	}
}

func TestElbowClampsBeyondMax(t *testing.T) {
	maxAngle := float32(math.Pi / 2)
	e := NewElbow(mgl32.Vec3{0, 1, 0}, 0, maxAngle)
	rot := mgl32.QuatRotate(3*math.Pi/4, mgl32.Vec3{0, 1, 0})
	got, changed := e.Apply(rot)
	if !changed {
		t.Fatalf("Apply(3pi/4 rad, max pi/2) reported unchanged, want clamped")
	}
	want := mgl32.QuatRotate(maxAngle, mgl32.Vec3{0, 1, 0})
	if got.Dot(want) < 0.999 {
		t.Errorf("Apply clamped to %+v, want ~%+v", got, want)
	}
}

func TestElbowDiscardsSwing(t *testing.T) {
	e := NewElbow(mgl32.Vec3{0, 1, 0}, -math.Pi, math.Pi)
	// A rotation about X (off-axis) is pure swing relative to the Y hinge;
	// the constraint must strip it entirely.
	rot := mgl32.QuatRotate(0.4, mgl32.Vec3{1, 0, 0})
	got, changed := e.Apply(rot)
	if !changed {
		t.Fatalf("Apply(off-axis swing) reported unchanged, want swing discarded")
	}
	if got.Dot(mgl32.QuatIdent()) < 0.9999 {
		t.Errorf("Apply(off-axis swing) = %+v, want ~identity after discarding swing", got)
	}
}

func TestSwingTwistWithinConeAndTwistUnchanged(t *testing.T) {
	c := NewSwingTwist(-math.Pi/4, math.Pi/4)
	c.SetSwingLimits([]float32{float32(math.Cos(math.Pi / 3))}) // 60deg cone
	rot := mgl32.QuatRotate(0.1, mgl32.Vec3{0, 1, 0})
	_, changed := c.Apply(rot)
	if changed {
		t.Errorf("Apply(small twist within range, no swing) reported changed")
	}
}

func TestSwingTwistClampsTwist(t *testing.T) {
	c := NewSwingTwist(-math.Pi/4, math.Pi/4)
	rot := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0})
	got, changed := c.Apply(rot)
	if !changed {
		t.Fatalf("Apply(twist beyond range) reported unchanged")
	}
	// The resulting rotation's twist-about-Y must be at the max boundary.
	_, twist := swingTwistDecompose(got, mgl32.Vec3{0, 1, 0})
	angle := signedTwistAngle(twist, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0})
	if math.Abs(float64(angle-math.Pi/4)) > 1e-3 {
		t.Errorf("clamped twist angle = %v, want ~pi/4", angle)
	}
}

func TestSwingTwistClampsSwingBeyondCone(t *testing.T) {
	c := NewSwingTwist(-math.Pi, math.Pi)
	c.SetSwingLimits([]float32{float32(math.Cos(math.Pi / 6))}) // 30deg cone
	// 60deg swing about Z exceeds the 30deg cone.
	rot := mgl32.QuatRotate(math.Pi/3, mgl32.Vec3{0, 0, 1})
	got, changed := c.Apply(rot)
	if !changed {
		t.Fatalf("Apply(swing beyond cone) reported unchanged")
	}
	swing, _ := swingTwistDecompose(got, mgl32.Vec3{0, 1, 0})
	swungY := swing.Rotate(mgl32.Vec3{0, 1, 0})
	dot := swungY.Dot(mgl32.Vec3{0, 1, 0})
	wantDot := float32(math.Cos(math.Pi / 6))
	if math.Abs(float64(dot-wantDot)) > 1e-3 {
		t.Errorf("clamped swing dot(Y, swungY) = %v, want ~%v", dot, wantDot)
	}
}

func TestSwingTwistSetSwingLimitsFromDirectionsSortsAndWraps(t *testing.T) {
	c := &SwingTwist{reference: mgl32.QuatIdent()}
	c.SetSwingLimitsFromDirections([]mgl32.Vec3{
		{0, 1, 1},
		{1, 1, 0},
		{0, 1, -1},
		{-1, 1, 0},
	})
	dots := c.MinDots()
	if len(dots) != 5 { // 4 directions resampled onto a 4-point grid, plus wraparound duplicate
		t.Fatalf("MinDots() length = %d, want 5", len(dots))
	}
	if dots[0] != dots[len(dots)-1] {
		t.Errorf("MinDots() not cyclic: first=%v last=%v", dots[0], dots[len(dots)-1])
	}
}
