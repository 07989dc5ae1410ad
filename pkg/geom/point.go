package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in the camera's local plane. The camera sits at the
// origin looking along +Y; +X is to the right of the image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint creates a new Point.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// OffsetBy returns the component-wise sum of p and other.
func (p Point) OffsetBy(other Point) Point {
	return fromVec(r2.Add(p.vec(), other.vec()))
}

// Scaled returns p multiplied by k.
func (p Point) Scaled(k float64) Point {
	return fromVec(r2.Scale(k, p.vec()))
}

// RotatedBy returns p expressed in a frame rotated clockwise by angle:
//
//	x' =  x·cos + y·sin
//	y' = -x·sin + y·cos
func (p Point) RotatedBy(angle Angle) Point {
	// r2.Rotate turns counter-clockwise, so hand it the negated angle.
	return fromVec(r2.Rotate(p.vec(), angle.Negated().Radians(), r2.Vec{}))
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return r2.Norm(r2.Sub(p.vec(), other.vec()))
}

// IsFinite reports whether both coordinates are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}
