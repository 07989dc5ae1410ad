package cone

import (
	"errors"
	"fmt"
	"math"

	"github.com/teslashibe/go-conepose/internal/log"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/geom"
)

// Locator solves cone positions for one camera and one cone geometry.
// It holds no mutable state and is safe for concurrent use.
type Locator struct {
	camera   camera.Config
	geometry Geometry
}

// NewLocator validates both models and returns a Locator.
func NewLocator(cam camera.Config, g Geometry) (*Locator, error) {
	if err := cam.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Locator{camera: cam, geometry: g}, nil
}

// Camera returns the camera model.
func (l *Locator) Camera() camera.Config {
	return l.camera
}

// Geometry returns the cone model.
func (l *Locator) Geometry() Geometry {
	return l.geometry
}

// EstimateTargetPosition solves the cone center from the bounding box
// columns and a heading in degrees (any real value; it is normalized).
//
// On error the Estimate still carries the orientation, if one was found, and
// Unsolved points. Errors wrap ErrInvalidInput, ErrNoMatch or ErrDegenerate.
func (l *Locator) EstimateTargetPosition(left, right int, headingDegrees float64) (Estimate, error) {
	if err := l.checkInputs(left, right, headingDegrees); err != nil {
		return unsolved(NoMatch), err
	}

	heading := geom.NewAngle(headingDegrees)
	b := deriveBearings(l.camera, l.geometry, left, right, heading)

	o := l.Classify(left, right, heading)
	if o == NoMatch {
		return unsolved(NoMatch), ErrNoMatch
	}

	est, err := solve(b, l.geometry, o)
	if err != nil {
		if errors.Is(err, ErrDegenerate) {
			log.Warn("degenerate cone triangle",
				"left", left, "right", right, "heading", heading.Degrees(),
				"orientation", o.String(), "error", err)
		}
		return est, err
	}

	log.Debug("cone solved",
		"left", left, "right", right, "heading", heading.Degrees(),
		"orientation", o.String(), "x", est.Center.X, "y", est.Center.Y)
	return est, nil
}

func (l *Locator) checkInputs(left, right int, headingDegrees float64) error {
	if !l.camera.Contains(left) || !l.camera.Contains(right) {
		return fmt.Errorf("%w: box edges %d..%d outside image columns 0..%d",
			ErrInvalidInput, left, right, l.camera.Width-1)
	}
	if math.IsNaN(headingDegrees) || math.IsInf(headingDegrees, 0) {
		return fmt.Errorf("%w: heading %v is not finite", ErrInvalidInput, headingDegrees)
	}
	return nil
}

var reference = &Locator{camera: camera.DefaultConfig(), geometry: ReferenceGeometry()}

// Reference returns a Locator for the Limelight camera and the reference cone.
func Reference() *Locator {
	return reference
}

// EstimateTargetPosition solves with the reference camera and cone.
func EstimateTargetPosition(left, right int, headingDegrees float64) (Estimate, error) {
	return reference.EstimateTargetPosition(left, right, headingDegrees)
}
