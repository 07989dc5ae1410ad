// Package plan draws a top-down view of a cone estimate: the camera, its
// field of view, the bounding box bearings and the solved cone.
package plan

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/teslashibe/go-conepose/pkg/camera"
	"github.com/teslashibe/go-conepose/pkg/cone"
	"github.com/teslashibe/go-conepose/pkg/geom"
	"gocv.io/x/gocv"
)

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts "png" and "webp"; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported plan format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Size limits for a rendered plan.
const (
	MinSize     = 64
	MaxSize     = 2048
	DefaultSize = 480
	margin      = 24
	minExtent   = 20.0 // Smallest visible range, in target units
)

// Scene is everything drawn in one plan.
type Scene struct {
	Camera   camera.Config
	Geometry cone.Geometry
	Left     int
	Right    int
	Heading  float64
	Estimate cone.Estimate
	Err      error
}

// Renderer draws scenes at a fixed image size.
type Renderer struct {
	width, height int
}

// NewRenderer returns a renderer for width×height images.
func NewRenderer(width, height int) (*Renderer, error) {
	if width < MinSize || height < MinSize || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("plan size %dx%d outside %d..%d", width, height, MinSize, MaxSize)
	}
	return &Renderer{width: width, height: height}, nil
}

// view maps camera-frame points to pixels. The camera sits at the bottom
// centre looking up the image.
type view struct {
	origin image.Point
	scale  float64 // Pixels per target unit
}

func (v view) pixel(p geom.Point) image.Point {
	return image.Pt(
		v.origin.X+int(math.Round(p.X*v.scale)),
		v.origin.Y-int(math.Round(p.Y*v.scale)),
	)
}

func (r *Renderer) view(s Scene) view {
	extent := minExtent
	if s.Err == nil {
		for _, p := range []geom.Point{s.Estimate.Center, s.Estimate.LeftCorner, s.Estimate.RightCorner} {
			extent = math.Max(extent, p.Y+s.Geometry.SideLength)
			extent = math.Max(extent, 2*math.Abs(p.X)+s.Geometry.SideLength)
		}
	}
	usable := float64(min(r.width, r.height) - 2*margin)
	return view{
		origin: image.Pt(r.width/2, r.height-margin),
		scale:  usable / extent,
	}
}

// ray returns the far end of a bearing from the camera.
func (v view) ray(bearing geom.Angle, length float64) image.Point {
	return v.pixel(geom.NewPoint(bearing.Sine()*length, bearing.Cosine()*length))
}

// Render draws the scene into a new BGR Mat. The caller must Close it.
func (r *Renderer) Render(s Scene) gocv.Mat {
	bg := rgba(background)
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0),
		r.height, r.width, gocv.MatTypeCV8UC3)

	v := r.view(s)
	far := float64(r.width+r.height) / v.scale

	// Range rings every 10 units.
	for d := 10.0; d*v.scale < float64(r.height); d += 10 {
		gocv.Circle(&mat, v.origin, int(d*v.scale), rgba(grid), 1)
	}

	half := geom.NewAngle(s.Camera.FOV / 2)
	gocv.Line(&mat, v.origin, v.ray(half.Negated(), far), rgba(fovColor), 1)
	gocv.Line(&mat, v.origin, v.ray(half, far), rgba(fovColor), 1)

	tint := OrientationColor(s.Estimate.Orientation)
	for _, px := range []int{s.Left, s.Right} {
		if s.Camera.Contains(px) {
			gocv.Line(&mat, v.origin, v.ray(s.Camera.Bearing(float64(px)), far), rgba(dim(boxColor, 0.4)), 1)
		}
	}

	if s.Err == nil {
		r.drawCone(&mat, v, s, tint)
	}

	gocv.Circle(&mat, v.origin, 5, rgba(boxColor), -1)
	gocv.PutText(&mat, caption(s), image.Pt(8, 18), gocv.FontHersheySimplex, 0.45, rgba(tint), 1)
	return mat
}

func (r *Renderer) drawCone(mat *gocv.Mat, v view, s Scene, tint colorful.Color) {
	est := s.Estimate
	left, right, center := v.pixel(est.LeftCorner), v.pixel(est.RightCorner), v.pixel(est.Center)

	gocv.Line(mat, left, right, rgba(tint), 2)
	gocv.Line(mat, v.origin, left, rgba(dim(tint, 0.6)), 1)
	gocv.Line(mat, v.origin, right, rgba(dim(tint, 0.6)), 1)

	heading := geom.NewAngle(s.Heading)
	tip := est.Center.OffsetBy(geom.NewPoint(heading.Sine(), heading.Cosine()).Scaled(s.Geometry.BaseLength))
	gocv.ArrowedLine(mat, center, v.pixel(tip), rgba(tint), 2)

	gocv.Circle(mat, left, 3, rgba(boxColor), -1)
	gocv.Circle(mat, right, 3, rgba(boxColor), -1)
	gocv.Circle(mat, center, 5, rgba(tint), -1)
}

func caption(s Scene) string {
	if s.Err != nil {
		return fmt.Sprintf("%d..%d @ %.0f: %v", s.Left, s.Right, s.Heading, s.Err)
	}
	return fmt.Sprintf("%s (%.1f, %.1f)", s.Estimate.Orientation, s.Estimate.Center.X, s.Estimate.Center.Y)
}

// Encode renders the scene and encodes it in format f.
func (r *Renderer) Encode(s Scene, f Format) ([]byte, error) {
	mat := r.Render(s)
	defer mat.Close()

	switch f {
	case FormatWebP:
		img, err := mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("convert plan: %w", err)
		}
		var buf bytes.Buffer
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), nil

	default:
		nb, err := gocv.IMEncode(gocv.PNGFileExt, mat)
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		defer nb.Close()
		return bytes.Clone(nb.GetBytes()), nil
	}
}
