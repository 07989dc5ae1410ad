// Package cone locates a known, symmetric, triangular target ("cone") in the
// plane of a fixed monocular camera.
//
// The inputs are the image columns of the target's bounding box and an
// externally estimated heading. The solver picks one of six orientation cases,
// solves the camera/left-corner/right-corner triangle with the law of sines,
// and offsets from a visible corner to the target's center.
//
// Heading convention: 0° means the tip points straight away from the camera
// along the optical axis, 180° means it points at the camera, and positive
// headings rotate the tip clockwise (to the right, seen from above).
package cone

import (
	"fmt"
	"math"
	"strings"
)

// Geometry holds the physical dimensions of the target.
// Lengths share one unit, which is also the unit of every solved Point.
type Geometry struct {
	SideLength      float64 `json:"side_length"`       // Tip to base corner
	BaseLength      float64 `json:"base_length"`       // Base corner to base corner
	EdgeAngleOffset float64 `json:"edge_angle_offset"` // Half-angle at the tip, degrees
	BaseAngleOffset float64 `json:"base_angle_offset"` // Base direction relative to heading, degrees
}

// ReferenceGeometry returns the dimensions of the competition cone, in inches.
func ReferenceGeometry() Geometry {
	return Geometry{
		SideLength:      13.776,
		BaseLength:      8.375,
		EdgeAngleOffset: 21.56,
		BaseAngleOffset: 90,
	}
}

// Validate checks that the dimensions describe a real triangle.
func (g Geometry) Validate() error {
	var problems []string

	if !(g.SideLength > 0) || math.IsInf(g.SideLength, 0) {
		problems = append(problems, "side length must be positive")
	}
	if !(g.BaseLength > 0) || math.IsInf(g.BaseLength, 0) {
		problems = append(problems, "base length must be positive")
	}
	if !(g.EdgeAngleOffset > 0 && g.EdgeAngleOffset < 90) {
		problems = append(problems, "edge angle offset must be between 0 and 90 degrees")
	}
	if !(g.BaseAngleOffset > 0 && g.BaseAngleOffset < 180) {
		problems = append(problems, "base angle offset must be between 0 and 180 degrees")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid cone geometry: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
