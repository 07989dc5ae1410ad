package cone

import (
	"fmt"

	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/geom"
)

// Orientation is the relative pose of the cone, as seen from the camera.
type Orientation int

const (
	NoMatch Orientation = iota
	TipDirectlyAway
	TipDirectlyTowards
	TipLeftAndAway
	TipLeftAndTowards
	TipRightAndAway
	TipRightAndTowards
)

var orientationNames = map[Orientation]string{
	NoMatch:            "no_match",
	TipDirectlyAway:    "tip_directly_away",
	TipDirectlyTowards: "tip_directly_towards",
	TipLeftAndAway:     "tip_left_and_away",
	TipLeftAndTowards:  "tip_left_and_towards",
	TipRightAndAway:    "tip_right_and_away",
	TipRightAndTowards: "tip_right_and_towards",
}

// Orientations lists the six solvable cases in classification priority.
func Orientations() []Orientation {
	return []Orientation{
		TipDirectlyAway,
		TipDirectlyTowards,
		TipLeftAndAway,
		TipLeftAndTowards,
		TipRightAndAway,
		TipRightAndTowards,
	}
}

func (o Orientation) String() string {
	if name, ok := orientationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// Solvable reports whether o is one of the six real cases.
func (o Orientation) Solvable() bool {
	return o != NoMatch && orientationNames[o] != ""
}

// MarshalText encodes the orientation by name.
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an orientation name.
func (o *Orientation) UnmarshalText(text []byte) error {
	for k, v := range orientationNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown orientation %q", text)
}

// bearings are every direction the classifier and solver reason about.
// All are relative to the camera's optical axis.
type bearings struct {
	left, right, center geom.Angle // Box edges and box center

	heading             geom.Angle
	leftSideFromBase    geom.Angle
	rightSideFromBase   geom.Angle
	leftSideFromTip     geom.Angle
	rightSideFromTip    geom.Angle
	baseFromLeftCorner  geom.Angle
	baseFromRightCorner geom.Angle
}

func deriveBearings(cam camera.Config, g Geometry, left, right int, heading geom.Angle) bearings {
	b := bearings{
		left:    cam.Bearing(float64(left)),
		right:   cam.Bearing(float64(right)),
		center:  cam.Bearing(float64(left+right) / 2.0),
		heading: heading,

		leftSideFromBase:    heading.WithOffset(g.EdgeAngleOffset),
		rightSideFromBase:   heading.WithOffset(-g.EdgeAngleOffset),
		baseFromLeftCorner:  heading.WithOffset(g.BaseAngleOffset),
		baseFromRightCorner: heading.WithOffset(-g.BaseAngleOffset),
	}
	b.leftSideFromTip = b.leftSideFromBase.Inverted()
	b.rightSideFromTip = b.rightSideFromBase.Inverted()
	return b
}

// classify runs the six predicates in priority order. The first match wins.
func (b bearings) classify() Orientation {
	switch {
	case b.leftSideFromBase.ClockwiseOf(b.left) && b.rightSideFromBase.CounterClockwiseOf(b.right):
		return TipDirectlyAway
	case b.rightSideFromTip.CounterClockwiseOf(b.left) && b.leftSideFromTip.ClockwiseOf(b.right):
		return TipDirectlyTowards
	case b.heading.CounterClockwiseOf(b.center) && b.baseFromLeftCorner.ClockwiseOf(b.right):
		return TipLeftAndAway
	case b.heading.CounterClockwiseOf(b.center) && b.baseFromLeftCorner.CounterClockwiseOf(b.right):
		return TipLeftAndTowards
	case b.heading.ClockwiseOf(b.center) && b.baseFromRightCorner.CounterClockwiseOf(b.left):
		return TipRightAndAway
	case b.heading.ClockwiseOf(b.center) && b.baseFromRightCorner.ClockwiseOf(b.left):
		return TipRightAndTowards
	}
	return NoMatch
}

// Classify returns the orientation case for a bounding box and heading.
// NoMatch is logged with the raw inputs and returned, never treated as fatal.
func (l *Locator) Classify(left, right int, heading geom.Angle) Orientation {
	o := deriveBearings(l.camera, l.geometry, left, right, heading).classify()
	if o == NoMatch {
		log.Warn("no orientation case matched",
			"left", left, "right", right, "heading", heading.Degrees())
	}
	return o
}
