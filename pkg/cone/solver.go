package cone

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-conepose/pkg/geom"
)

// minCameraSine is the smallest |sin| of the camera angle the law of sines
// is allowed to divide by.
const minCameraSine = 1e-9

// Estimate is a solved cone position in the camera frame.
type Estimate struct {
	Orientation     Orientation `json:"orientation"`
	Center          geom.Point  `json:"center"`
	LeftCorner      geom.Point  `json:"left_corner"`
	RightCorner     geom.Point  `json:"right_corner"`
	CameraAngle     float64     `json:"camera_angle"` // Degrees subtended by the box
	LeftSideLength  float64     `json:"left_side_length"`
	RightSideLength float64     `json:"right_side_length"`
}

// Range returns the distance from the camera to the cone center.
func (e Estimate) Range() float64 {
	return e.Center.Distance(geom.Point{})
}

// Bearing returns the direction of the cone center off the optical axis.
func (e Estimate) Bearing() geom.Angle {
	return geom.NewAngle(math.Atan2(e.Center.X, e.Center.Y) * 180 / math.Pi)
}

func unsolved(o Orientation) Estimate {
	return Estimate{Orientation: o, Center: Unsolved, LeftCorner: Unsolved, RightCorner: Unsolved}
}

// triangle picks the interior angle bounds and the edge opposite the camera.
type triangle struct {
	leftBound  func(bearings) geom.Angle
	rightBound func(bearings) geom.Angle
	opposite   func(Geometry) float64
}

// centerOffset moves from a visible corner to the cone center.
type centerOffset struct {
	fromRight bool
	signX     float64 // Multiplies half the base length
	signY     float64
	rotation  func(bearings) geom.Angle
}

func baseLength(g Geometry) float64 { return g.BaseLength }
func sideLength(g Geometry) float64 { return g.SideLength }

var triangles = map[Orientation]triangle{
	TipDirectlyAway: {
		leftBound:  func(b bearings) geom.Angle { return b.baseFromLeftCorner },
		rightBound: func(b bearings) geom.Angle { return b.baseFromRightCorner },
		opposite:   baseLength,
	},
	TipDirectlyTowards: {
		leftBound:  func(b bearings) geom.Angle { return b.baseFromRightCorner },
		rightBound: func(b bearings) geom.Angle { return b.baseFromLeftCorner },
		opposite:   baseLength,
	},
	TipLeftAndAway: {
		leftBound:  func(b bearings) geom.Angle { return b.rightSideFromTip },
		rightBound: func(b bearings) geom.Angle { return b.rightSideFromBase },
		opposite:   sideLength,
	},
	TipLeftAndTowards: {
		leftBound:  func(b bearings) geom.Angle { return b.leftSideFromTip },
		rightBound: func(b bearings) geom.Angle { return b.leftSideFromBase },
		opposite:   sideLength,
	},
	TipRightAndAway: {
		leftBound:  func(b bearings) geom.Angle { return b.leftSideFromBase },
		rightBound: func(b bearings) geom.Angle { return b.leftSideFromTip },
		opposite:   sideLength,
	},
	TipRightAndTowards: {
		leftBound:  func(b bearings) geom.Angle { return b.rightSideFromBase },
		rightBound: func(b bearings) geom.Angle { return b.rightSideFromTip },
		opposite:   sideLength,
	},
}

var centerOffsets = map[Orientation]centerOffset{
	TipDirectlyAway: {
		signX: 1, signY: 1,
		rotation: func(b bearings) geom.Angle { return b.heading },
	},
	TipDirectlyTowards: {
		signX: 1, signY: -1,
		rotation: func(b bearings) geom.Angle { return b.heading.Inverted() },
	},
	TipLeftAndAway: {
		fromRight: true, signX: -1, signY: -1,
		rotation: func(b bearings) geom.Angle { return b.baseFromLeftCorner },
	},
	TipLeftAndTowards: {
		fromRight: true, signX: -1, signY: 1,
		rotation: func(b bearings) geom.Angle { return b.baseFromLeftCorner },
	},
	TipRightAndAway: {
		signX: 1, signY: -1,
		rotation: func(b bearings) geom.Angle { return b.baseFromRightCorner },
	},
	TipRightAndTowards: {
		signX: 1, signY: 1,
		rotation: func(b bearings) geom.Angle { return b.baseFromRightCorner },
	},
}

// solve triangulates the cone center for an already classified case.
func solve(b bearings, g Geometry, o Orientation) (Estimate, error) {
	tri, ok := triangles[o]
	if !ok {
		return unsolved(o), ErrNoMatch
	}
	off, ok := centerOffsets[o]
	if !ok {
		return unsolved(o), ErrNoMatch
	}

	cameraArc := geom.ArcFrom(b.left, b.right)
	leftInterior := geom.ArcFrom(tri.leftBound(b), b.left.Inverted())
	rightInterior := geom.ArcFrom(b.right.Inverted(), tri.rightBound(b))

	sinCamera := cameraArc.Sine()
	if cameraArc.Degrees() >= 180 || math.Abs(sinCamera) < minCameraSine {
		return unsolved(o), fmt.Errorf("%w: camera angle %.6g°", ErrDegenerate, cameraArc.Degrees())
	}

	opposite := tri.opposite(g)
	leftSide := opposite / sinCamera * rightInterior.Sine()
	rightSide := opposite / sinCamera * leftInterior.Sine()
	if !(leftSide > 0 && rightSide > 0) || math.IsInf(leftSide, 0) || math.IsInf(rightSide, 0) {
		return unsolved(o), fmt.Errorf("%w: side lengths %.6g, %.6g", ErrDegenerate, leftSide, rightSide)
	}

	leftPoint := geom.NewPoint(b.left.Sine()*leftSide, b.left.Cosine()*leftSide)
	rightPoint := geom.NewPoint(b.right.Sine()*rightSide, b.right.Cosine()*rightSide)

	anchor := leftPoint
	if off.fromRight {
		anchor = rightPoint
	}
	half := g.BaseLength / 2
	offset := geom.NewPoint(off.signX*half, off.signY*half)
	center := anchor.OffsetBy(offset.RotatedBy(off.rotation(b)))
	if !center.IsFinite() {
		return unsolved(o), fmt.Errorf("%w: non-finite center", ErrDegenerate)
	}

	return Estimate{
		Orientation:     o,
		Center:          center,
		LeftCorner:      leftPoint,
		RightCorner:     rightPoint,
		CameraAngle:     cameraArc.Degrees(),
		LeftSideLength:  leftSide,
		RightSideLength: rightSide,
	}, nil
}
