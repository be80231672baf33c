// Package fixtures builds synthetic frame sequences for tests.
package fixtures

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frame size used when none is given.
const (
	Width  = 160
	Height = 120
)

var (
	background = gocv.NewScalar(40, 40, 40, 0)
	foreground = color.RGBA{R: 230, G: 230, B: 230, A: 0}
)

// Still returns n identical frames. The caller closes them with CloseAll.
func Still(n, width, height int) []gocv.Mat {
	width, height = size(width, height)
	frames := make([]gocv.Mat, n)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		frames[i].SetTo(background)
	}
	return frames
}

// MovingSquare returns n frames with a square of side square sliding from
// left to right, so every consecutive pair differs.
func MovingSquare(n, width, height, square int) []gocv.Mat {
	width, height = size(width, height)
	frames := Still(n, width, height)
	if n == 0 {
		return frames
	}
	step := (width - square) / max(n, 1)
	if step < 1 {
		step = 1
	}
	top := (height - square) / 2
	for i := range frames {
		left := (i * step) % max(width-square, 1)
		rect := image.Rect(left, top, left+square, top+square)
		gocv.Rectangle(&frames[i], rect, foreground, -1)
	}
	return frames
}

// CloseAll releases every frame.
func CloseAll(frames []gocv.Mat) {
	for i := range frames {
		frames[i].Close()
	}
}

func size(width, height int) (int, int) {
	if width <= 0 {
		width = Width
	}
	if height <= 0 {
		height = Height
	}
	return width, height
}
