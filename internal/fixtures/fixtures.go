// Package fixtures builds synthetic frames, masks and shapes for tests.
package fixtures

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Default synthetic frame size.
const (
	Width  = 640
	Height = 480
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Frame returns a black BGR frame. The caller closes it.
func Frame(width, height int) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	return &mat
}

// Frames returns n black BGR frames.
func Frames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = Frame(width, height)
	}
	return frames
}

// CloseAll closes every frame in frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// EmptyMask returns a mask with no foreground pixels.
func EmptyMask(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
}

// PolygonMask returns a mask with the filled polygon pts as foreground.
func PolygonMask(width, height int, pts []image.Point) gocv.Mat {
	mask := EmptyMask(width, height)

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(&mask, pv, white)

	return mask
}

// Triangle returns an upward-pointing triangle centered in a width x height frame.
// The first point is the apex.
func Triangle(width, height int) []image.Point {
	cx := width / 2
	return []image.Point{
		{X: cx, Y: height / 4},
		{X: cx + width/8, Y: height * 3 / 4},
		{X: cx - width/8, Y: height * 3 / 4},
	}
}

// TriangleMask returns a mask holding Triangle(width, height).
func TriangleMask(width, height int) gocv.Mat {
	return PolygonMask(width, height, Triangle(width, height))
}

// Finger returns a palm with one finger extended upward, centered in a 640x480 frame.
// The fingertip corners are (310,120) and (330,120).
func Finger() []image.Point {
	return []image.Point{
		{X: 260, Y: 400},
		{X: 260, Y: 280},
		{X: 310, Y: 280},
		{X: 310, Y: 120},
		{X: 330, Y: 120},
		{X: 330, Y: 280},
		{X: 380, Y: 280},
		{X: 380, Y: 400},
	}
}

// Line returns collinear points whose hull has no area.
func Line() []image.Point {
	return []image.Point{
		{X: 100, Y: 100},
		{X: 200, Y: 200},
		{X: 300, Y: 300},
		{X: 150, Y: 150},
	}
}
