package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-9

// sweep is a set of bearings that covers both halves, zero and the seam.
var sweep = []float64{-179.5, -170, -135, -90, -45.25, -10, -0.5, 0, 0.5, 10, 45.25, 90, 135, 170, 179.5, 180}

func TestNewAngle_Normalizes(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{360, 0},
		{-360, 0},
		{540, 180},
		{-540, 180},
		{725, 5},
		{-77, -77},
		{1e6, math.Mod(1e6, 360) - 360},
	}

	for _, tt := range tests {
		got := NewAngle(tt.in).Degrees()
		if !scalar.EqualWithinAbs(got, tt.want, tol) {
			t.Errorf("NewAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewAngle_RangeAndPeriodicity(t *testing.T) {
	for v := -1000.0; v <= 1000; v += 7.25 {
		a := NewAngle(v)
		if a.Degrees() <= -180 || a.Degrees() > 180 {
			t.Fatalf("NewAngle(%v) = %v, out of (-180, 180]", v, a.Degrees())
		}
		for k := -3; k <= 3; k++ {
			b := NewAngle(v + 360*float64(k))
			if !scalar.EqualWithinAbs(a.Degrees(), b.Degrees(), tol) {
				t.Errorf("NewAngle(%v) = %v but NewAngle(%v+360*%d) = %v", v, a.Degrees(), v, k, b.Degrees())
			}
		}
	}
}

func TestAngle_OffsetAndInvert(t *testing.T) {
	a := NewAngle(170)
	if got := a.WithOffset(20).Degrees(); got != -170 {
		t.Errorf("170 + 20 = %v, want -170", got)
	}
	if got := NewAngle(-77).Inverted().Degrees(); got != 103 {
		t.Errorf("-77 inverted = %v, want 103", got)
	}
	if got := NewAngle(0).Inverted().Degrees(); got != 180 {
		t.Errorf("0 inverted = %v, want 180", got)
	}
	if got := NewAngle(30).Negated().Degrees(); got != -30 {
		t.Errorf("30 negated = %v, want -30", got)
	}
}

func TestAngle_Trig(t *testing.T) {
	tests := []struct {
		deg      float64
		sin, cos float64
	}{
		{0, 0, 1},
		{90, 1, 0},
		{180, 0, -1},
		{-90, -1, 0},
		{30, 0.5, math.Sqrt(3) / 2},
	}

	for _, tt := range tests {
		a := NewAngle(tt.deg)
		if !scalar.EqualWithinAbs(a.Sine(), tt.sin, tol) {
			t.Errorf("sin(%v) = %v, want %v", tt.deg, a.Sine(), tt.sin)
		}
		if !scalar.EqualWithinAbs(a.Cosine(), tt.cos, tol) {
			t.Errorf("cos(%v) = %v, want %v", tt.deg, a.Cosine(), tt.cos)
		}
	}
}

func TestIsBetweenInclusive_Cases(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		ccw, cw  float64
		expected bool
	}{
		{"both right ordered inside", 30, 10, 50, true},
		{"both right ordered outside", 60, 10, 50, false},
		{"both left ordered inside", -30, -50, -10, true},
		{"both left ordered outside", 0, -50, -10, false},
		{"straddle zero inside", 0, -20, 20, true},
		{"straddle zero outside", 90, -20, 20, false},
		{"both right inverted upper", 170, 150, 10, true},
		{"both right inverted lower", -90, 150, 10, true},
		{"both right inverted outside", 90, 150, 10, false},
		{"both left inverted", 0, -10, -150, true},
		{"both left inverted across seam", 180, -10, -150, true},
		{"both left inverted outside", -90, -10, -150, false},
		{"straddle seam inside", 180, 170, -170, true},
		{"straddle seam inside negative", -175, 170, -170, true},
		{"straddle seam outside", 0, 170, -170, false},
		{"ccw end", 150, 150, 10, true},
		{"cw end", 10, 150, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAngle(tt.v).IsBetweenInclusive(NewAngle(tt.ccw), NewAngle(tt.cw))
			if got != tt.expected {
				t.Errorf("%v between [%v, %v] = %v, want %v", tt.v, tt.ccw, tt.cw, got, tt.expected)
			}
		})
	}
}

func TestIsBetweenInclusive_NaNIsNeverBetween(t *testing.T) {
	nan := NewAngle(math.NaN())
	if nan.IsFinite() {
		t.Fatal("NaN angle reported finite")
	}
	if nan.IsBetweenInclusive(NewAngle(-10), NewAngle(10)) {
		t.Error("NaN angle should not be between finite limits")
	}
	if NewAngle(0).IsBetweenInclusive(nan, nan) {
		t.Error("no angle is between NaN limits")
	}
	if got := ArcFrom(nan, NewAngle(0)); got != 0 {
		t.Errorf("ArcFrom with NaN = %v, want 0", got)
	}
}

func TestArcFrom(t *testing.T) {
	tests := []struct {
		ccw, cw float64
		want    float64
	}{
		{10, 50, 40},
		{-50, -10, 40},
		{-20, 20, 40},
		{150, 10, 220},
		{-10, -150, 220},
		{170, -170, 20},
		{0, -5, 355},
		{-14.9, -7.45, 7.45},
		{42, 42, 0},
		{180, 180, 0},
	}

	for _, tt := range tests {
		got := ArcFrom(NewAngle(tt.ccw), NewAngle(tt.cw)).Degrees()
		if !scalar.EqualWithinAbs(got, tt.want, tol) {
			t.Errorf("ArcFrom(%v, %v) = %v, want %v", tt.ccw, tt.cw, got, tt.want)
		}
	}
}

func TestArcAndInclusionAgree(t *testing.T) {
	for _, a := range sweep {
		for _, b := range sweep {
			ccw, cw := NewAngle(a), NewAngle(b)

			if !ccw.IsBetweenInclusive(ccw, cw) || !cw.IsBetweenInclusive(ccw, cw) {
				t.Errorf("limits %v, %v are not inside their own arc", a, b)
			}

			arc := ArcFrom(ccw, cw).Degrees()
			if arc < 0 || arc >= 360 {
				t.Errorf("ArcFrom(%v, %v) = %v, out of [0, 360)", a, b, arc)
			}
			if NewAngle(a) == NewAngle(b) && arc != 0 {
				t.Errorf("ArcFrom(%v, %v) = %v, want 0 for equal limits", a, b, arc)
			}

			// Walking part of the arc from ccw must stay inside it, and a
			// point just past cw must not be, unless the arc is nearly full.
			mid := ccw.WithOffset(arc / 2)
			if !mid.IsBetweenInclusive(ccw, cw) {
				t.Errorf("midpoint %v of arc %v..%v (%v°) not inside", mid, a, b, arc)
			}
			if arc < 359 {
				past := cw.WithOffset(0.5)
				if past.IsBetweenInclusive(ccw, cw) {
					t.Errorf("%v past the cw end of %v..%v (%v°) reported inside", past, a, b, arc)
				}
			}
		}
	}
}

func TestHalfCircleComplement(t *testing.T) {
	for _, x := range sweep {
		for _, r := range sweep {
			xa, ra := NewAngle(x), NewAngle(r)
			cw := xa.ClockwiseOf(ra)
			ccw := xa.CounterClockwiseOf(ra)
			onBoundary := xa == ra || xa == ra.Inverted()

			if onBoundary {
				if !cw && !ccw {
					t.Errorf("boundary %v of %v in neither half", x, r)
				}
				continue
			}
			if cw == ccw {
				t.Errorf("%v relative to %v: clockwise=%v counterClockwise=%v, want exactly one", x, r, cw, ccw)
			}
		}
	}
}

func TestClockwiseOf(t *testing.T) {
	if !NewAngle(10).ClockwiseOf(NewAngle(0)) {
		t.Error("10° should be clockwise of 0°")
	}
	if !NewAngle(-10).CounterClockwiseOf(NewAngle(0)) {
		t.Error("-10° should be counter-clockwise of 0°")
	}
	if !NewAngle(-170).ClockwiseOf(NewAngle(170)) {
		t.Error("-170° should be clockwise of 170° across the seam")
	}
}
