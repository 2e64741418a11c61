// Package pointing estimates where a pointing hand is aimed from a foreground mask.
package pointing

import (
	"image"

	"gocv.io/x/gocv"
)

// Shape is the boundary of one connected foreground region.
type Shape []image.Point

// ExtractShape returns the outer boundary enclosing the greatest area in mask.
// It returns false when the mask has no region with positive area.
// When two regions have the same area the first one traced wins.
func ExtractShape(mask gocv.Mat) (Shape, bool) {
	if mask.Empty() {
		return nil, false
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	var bestArea float64
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			best = i
		}
	}

	if best < 0 {
		return nil, false
	}

	return Shape(contours.At(best).ToPoints()), true
}
