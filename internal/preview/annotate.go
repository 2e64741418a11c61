// Package preview renders the pointing analysis over live frames.
package preview

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/pointcast/internal/pointing"
)

var (
	shapeColor    = color.RGBA{0, 255, 255, 255}
	hullColor     = color.RGBA{255, 0, 0, 255}
	centroidColor = color.RGBA{0, 0, 255, 255}
	tipColor      = color.RGBA{0, 255, 0, 255}
	textColor     = color.RGBA{255, 255, 255, 255}
)

// Annotate draws the shape outline, hull, centroid and fingertip of a onto img.
// An analysis without a shape only gets the status text.
func Annotate(img *gocv.Mat, a pointing.Analysis) {
	if len(a.Shape) > 0 {
		outline := gocv.NewPointsVectorFromPoints([][]image.Point{a.Shape})
		gocv.DrawContours(img, outline, -1, shapeColor, 1)
		outline.Close()
	}

	if len(a.Hull) > 2 {
		hull := gocv.NewPointsVectorFromPoints([][]image.Point{a.Hull})
		gocv.Polylines(img, hull, true, hullColor, 2)
		hull.Close()

		c := image.Pt(int(a.Centroid.X), int(a.Centroid.Y))
		gocv.Circle(img, c, 4, centroidColor, -1)
	}

	status := "None"
	if a.Event.Found {
		tip := a.Event.Point()
		gocv.Circle(img, tip, 10, tipColor, 2)
		status = fmt.Sprintf("%d,%d", tip.X, tip.Y)
	}
	gocv.PutText(img, status, image.Pt(10, 30), gocv.FontHersheyPlain, 1.5, textColor, 2)
}
