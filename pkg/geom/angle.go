// Package geom provides the circular angle and planar point value types used
// by the cone solver.
//
// Angles are in degrees, normalized to (-180, 180], and increase clockwise as
// seen from above the camera: a bearing of +10° is to the right of the optical
// axis. All comparisons between angles are circular.
package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/teslashibe/go-conepose/internal/log"
)

// Angle is a normalized circular quantity in degrees.
// The zero value is 0°.
type Angle struct {
	deg float64
}

// NewAngle returns value normalized into (-180, 180].
// NaN and ±Inf produce a NaN angle that is never between anything.
func NewAngle(value float64) Angle {
	return Angle{deg: normalize(value)}
}

func normalize(value float64) float64 {
	v := math.Mod(value, 360)
	if v > 180 {
		v -= 360
	} else if v <= -180 {
		v += 360
	}
	return v
}

// Degrees returns the normalized value.
func (a Angle) Degrees() float64 {
	return a.deg
}

// Radians returns the normalized value in radians.
func (a Angle) Radians() float64 {
	return (s1.Angle(a.deg) * s1.Degree).Radians()
}

// WithOffset returns the angle rotated clockwise by delta degrees.
func (a Angle) WithOffset(delta float64) Angle {
	return NewAngle(a.deg + delta)
}

// Inverted returns the diametrically opposite bearing.
func (a Angle) Inverted() Angle {
	return a.WithOffset(180)
}

// Negated returns the angle mirrored about 0°, the inverse rotation.
func (a Angle) Negated() Angle {
	return NewAngle(-a.deg)
}

// Sine returns sin of the angle.
func (a Angle) Sine() float64 {
	return math.Sin(a.Radians())
}

// Cosine returns cos of the angle.
func (a Angle) Cosine() float64 {
	return math.Cos(a.Radians())
}

// IsFinite reports whether the angle holds a real value.
func (a Angle) IsFinite() bool {
	return !math.IsNaN(a.deg)
}

func (a Angle) String() string {
	return fmt.Sprintf("%g°", a.deg)
}

// limitCase names how a (counter-clockwise limit, clockwise limit) pair sits
// relative to the ±180° seam.
type limitCase int

const (
	limitsUnknown limitCase = iota
	bothRightOrdered
	bothLeftOrdered
	straddleZero
	bothRightInverted
	bothLeftInverted
	straddleSeam
)

func (c limitCase) String() string {
	switch c {
	case bothRightOrdered:
		return "both_right_ordered"
	case bothLeftOrdered:
		return "both_left_ordered"
	case straddleZero:
		return "straddle_zero"
	case bothRightInverted:
		return "both_right_inverted"
	case bothLeftInverted:
		return "both_left_inverted"
	case straddleSeam:
		return "straddle_seam"
	default:
		return "unknown"
	}
}

// wraps reports whether the clockwise arc for this case passes through ±180°.
func (c limitCase) wraps() bool {
	return c == bothRightInverted || c == bothLeftInverted || c == straddleSeam
}

// classifyLimits is shared by IsBetweenInclusive and ArcFrom so both always
// agree on which way an arc runs. Order matters: equal limits land in an
// ordered case, which makes a zero-length arc rather than a full turn.
func classifyLimits(ccw, cw float64) limitCase {
	switch {
	case ccw >= 0 && cw >= 0 && ccw <= cw:
		return bothRightOrdered
	case ccw <= 0 && cw <= 0 && ccw <= cw:
		return bothLeftOrdered
	case ccw <= 0 && cw >= 0:
		return straddleZero
	case ccw >= 0 && cw >= 0 && ccw >= cw:
		return bothRightInverted
	case ccw <= 0 && cw <= 0 && ccw >= cw:
		return bothLeftInverted
	case ccw >= 0 && cw <= 0:
		return straddleSeam
	}
	return limitsUnknown
}

// IsBetweenInclusive reports whether a lies on the clockwise-going arc from
// ccwLimit to cwLimit, both ends included.
func (a Angle) IsBetweenInclusive(ccwLimit, cwLimit Angle) bool {
	ccw, cw, v := ccwLimit.deg, cwLimit.deg, a.deg

	switch c := classifyLimits(ccw, cw); c {
	case bothRightOrdered, bothLeftOrdered, straddleZero:
		return v >= ccw && v <= cw
	case bothRightInverted, bothLeftInverted, straddleSeam:
		return (v >= -180 && v <= cw) || (v >= ccw && v <= 180)
	}

	log.Warn("angle limits matched no case",
		"angle", a.deg, "ccw_limit", ccw, "cw_limit", cw)
	return false
}

// ClockwiseOf reports whether a lies on the half circle running clockwise
// from reference.
func (a Angle) ClockwiseOf(reference Angle) bool {
	return a.IsBetweenInclusive(reference, reference.WithOffset(180))
}

// CounterClockwiseOf reports whether a lies on the half circle running
// counter-clockwise from reference.
func (a Angle) CounterClockwiseOf(reference Angle) bool {
	return a.IsBetweenInclusive(reference.WithOffset(180), reference)
}

// Arc is a clockwise arc length in degrees, in [0, 360).
type Arc float64

// Degrees returns the arc length.
func (a Arc) Degrees() float64 {
	return float64(a)
}

// Sine returns sin of the arc length.
func (a Arc) Sine() float64 {
	return math.Sin((s1.Angle(a) * s1.Degree).Radians())
}

// ArcFrom returns the arc travelled clockwise from ccw to cw.
func ArcFrom(ccw, cw Angle) Arc {
	c := classifyLimits(ccw.deg, cw.deg)
	if c == limitsUnknown {
		log.Warn("arc limits matched no case", "ccw", ccw.deg, "cw", cw.deg)
		return 0
	}
	if c.wraps() {
		return Arc(360 - (ccw.deg - cw.deg))
	}
	return Arc(cw.deg - ccw.deg)
}
