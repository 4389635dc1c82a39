package ik

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCubicHermiteSplineWorkedExample(t *testing.T) {
	// p0=origin, m0=X, p1=Y+X, m1=2X -- the documented worked example.
	s := NewCubicHermiteSpline(
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{1, 1, 0}, mgl32.Vec3{2, 0, 0},
	)

	if got := s.Eval(0); got != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("Eval(0) = %v, want p0", got)
	}
	if got := s.Eval(1); got != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("Eval(1) = %v, want p1", got)
	}

	mid := s.Eval(0.5)
	want := mgl32.Vec3{0.375, 0.5, 0}
	if math.Abs(float64(mid[0]-want[0])) > 1e-5 || math.Abs(float64(mid[1]-want[1])) > 1e-5 || mid[2] != 0 {
		t.Errorf("Eval(0.5) = %v, want %v", mid, want)
	}
}

func TestCubicHermiteArcLengthRoundTrip(t *testing.T) {
	s := NewCubicHermiteSpline(
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{1, 1, 0}, mgl32.Vec3{2, 0, 0},
	)
	for _, t0 := range []float32{0, 0.1, 0.37, 0.5, 0.82, 1} {
		length := s.ArcLength(t0)
		back := s.ArcLengthInverse(length)
		if diff := math.Abs(float64(back - t0)); diff > 1e-2 {
			t.Errorf("ArcLengthInverse(ArcLength(%v)) = %v, want ~%v (diff %v)", t0, back, t0, diff)
		}
	}
}

func TestCubicHermiteTotalLengthMatchesArcLengthAtOne(t *testing.T) {
	s := NewCubicHermiteSpline(
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{1, 1, 0}, mgl32.Vec3{2, 0, 0},
	)
	if s.TotalLength() != s.ArcLength(1) {
		t.Errorf("TotalLength() = %v, ArcLength(1) = %v, want equal", s.TotalLength(), s.ArcLength(1))
	}
}

func TestQuatFromBasisIdentity(t *testing.T) {
	q := quatFromBasis(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})
	ident := mgl32.QuatIdent()
	if math.Abs(float64(q.W-ident.W)) > 1e-5 || q.V.Sub(ident.V).Len() > 1e-5 {
		t.Errorf("quatFromBasis(identity basis) = %+v, want identity", q)
	}
}

func TestQuatFromBasisNinetyDegreesAboutY(t *testing.T) {
	// Rotating the standard basis 90deg about Y sends X->-Z, Z->X.
	q := quatFromBasis(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0})
	want := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	gotV := q.Rotate(mgl32.Vec3{1, 0, 0})
	wantV := want.Rotate(mgl32.Vec3{1, 0, 0})
	if gotV.Sub(wantV).Len() > 1e-4 {
		t.Errorf("quatFromBasis 90deg-about-Y rotates X to %v, want %v", gotV, wantV)
	}
}
