package pointing

import (
	"fmt"
	"image"
)

// NoTargetLine is the output line for a tick with no target.
const NoTargetLine = "None"

// Point is a pixel position mapped into the consumer's coordinate space.
type Point struct {
	X float64
	Y float64
	// Scaled is set when X and Y are in output pixels rather than fractions.
	Scaled bool
}

// Normalize maps pixel (x, y) of a frame into [0,1) fractions, or into target
// pixels when target is non-nil. frame must have positive dimensions.
func Normalize(x, y int, frame image.Point, target *image.Point) Point {
	p := Point{
		X: float64(x) / float64(frame.X),
		Y: float64(y) / float64(frame.Y),
	}
	if target != nil {
		p.X *= float64(target.X)
		p.Y *= float64(target.Y)
		p.Scaled = true
	}
	return p
}

// String formats p as an output line: truncated integers when scaled,
// four decimals otherwise.
func (p Point) String() string {
	if p.Scaled {
		return fmt.Sprintf("%d,%d", int(p.X), int(p.Y))
	}
	return fmt.Sprintf("%.4f,%.4f", p.X, p.Y)
}

// FormatLine renders ev as the line written for one tick.
func FormatLine(ev Event, frame image.Point, target *image.Point) string {
	if !ev.Found {
		return NoTargetLine
	}
	return Normalize(ev.X, ev.Y, frame, target).String()
}
