// Package camera describes the horizontal model of a fixed monocular camera:
// its field of view and pixel resolution, and the conversion from an image
// column to a bearing off the optical axis.
package camera

import (
	"fmt"
	"math"
	"strings"

	"github.com/teslashibe/go-conepose/pkg/geom"
)

// Config holds the horizontal camera model.
type Config struct {
	Name  string  `json:"name"`
	FOV   float64 `json:"fov"`   // Horizontal field of view in degrees
	Width int     `json:"width"` // Horizontal resolution in pixels
}

// Limits for a usable camera model.
const (
	MinFOV   = 1.0
	MaxFOV   = 179.0
	MinWidth = 2
)

// DefaultConfig returns the Limelight model the reference solve was tuned with.
func DefaultConfig() Config {
	return LimelightConfig()
}

// Validate checks that the model can produce bearings.
func (c Config) Validate() error {
	var problems []string

	if math.IsNaN(c.FOV) || c.FOV < MinFOV || c.FOV > MaxFOV {
		problems = append(problems, fmt.Sprintf("fov must be between %g and %g degrees", MinFOV, MaxFOV))
	}
	if c.Width < MinWidth {
		problems = append(problems, fmt.Sprintf("resolution must be at least %d pixels", MinWidth))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid camera config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Contains reports whether pixelX is a column of the image.
func (c Config) Contains(pixelX int) bool {
	return pixelX >= 0 && pixelX <= c.Width-1
}

// Bearing converts an image column to an angle off the optical axis.
// Columns right of center give positive bearings.
func (c Config) Bearing(pixelX float64) geom.Angle {
	half := float64(c.Width) / 2.0
	normalized := (pixelX - half) / half
	return geom.NewAngle(normalized * c.FOV / 2)
}

// Column is the inverse of Bearing. It is not clamped to the image.
func (c Config) Column(bearing geom.Angle) float64 {
	half := float64(c.Width) / 2.0
	return half + bearing.Degrees()/(c.FOV/2)*half
}
