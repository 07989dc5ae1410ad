package plan

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/teslashibe/go-conepose/pkg/cone"
)

var (
	background = mustHex("#14161c")
	grid       = mustHex("#2a2e38")
	fovColor   = mustHex("#5b6272")
	boxColor   = mustHex("#c9ced8")
	failColor  = mustHex("#e5484d")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// OrientationColor returns the drawing colour for an orientation case.
// The six cases sit evenly around the hue circle; NoMatch is the failure red.
func OrientationColor(o cone.Orientation) colorful.Color {
	cases := cone.Orientations()
	for i, c := range cases {
		if c == o {
			return colorful.Hsv(float64(i)*360/float64(len(cases))+30, 0.65, 0.95)
		}
	}
	return failColor
}

// dim blends c toward the background.
func dim(c colorful.Color, t float64) colorful.Color {
	return c.BlendLab(background, t).Clamped()
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
