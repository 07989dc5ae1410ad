package cone

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-conepose/pkg/geom"
)

var (
	// ErrUnsolvable is the umbrella for inputs that are valid but describe a
	// geometry the six-case model cannot solve.
	ErrUnsolvable = errors.New("unsolvable cone geometry")

	// ErrNoMatch means no orientation case fits the box edges and heading.
	ErrNoMatch = fmt.Errorf("%w: no orientation case matched", ErrUnsolvable)

	// ErrDegenerate means the camera triangle collapses: a zero or reflex
	// camera angle, or a corner that would sit behind the camera.
	ErrDegenerate = fmt.Errorf("%w: degenerate triangle", ErrUnsolvable)

	// ErrInvalidInput means a pixel is outside the image, the heading is not
	// a real number, or the camera or cone model is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// Unsolved is the center reported alongside any error.
var Unsolved = geom.NewPoint(-1, -1)
