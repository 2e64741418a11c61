package pointing

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// DefaultTolerance is the default edge-exclusion margin in pixels.
const DefaultTolerance = 10

// distances closer than this are ties
const tieEpsilon = 1e-6

// Event is the outcome of one tick: a fingertip pixel, or no target.
type Event struct {
	X     int
	Y     int
	Found bool
}

// NoTarget is the Event emitted when nothing is pointing.
var NoTarget = Event{}

// Target returns a found Event at (x, y).
func Target(x, y int) Event {
	return Event{X: x, Y: y, Found: true}
}

// Point returns the event position as an image.Point.
func (e Event) Point() image.Point {
	return image.Point{X: e.X, Y: e.Y}
}

// Centroid is the area-weighted center of a polygon.
type Centroid struct {
	X float64
	Y float64
}

// Analysis holds the intermediate geometry behind an Event.
type Analysis struct {
	Shape    Shape
	Hull     []image.Point
	Area     float64
	Centroid Centroid
	Event    Event
}

// Process extracts the dominant shape from mask and estimates the fingertip
// using the mask's own bounds.
func Process(mask gocv.Mat, tolerance int) Analysis {
	shape, ok := ExtractShape(mask)
	if !ok {
		return Analysis{}
	}
	return Analyze(shape, mask.Cols(), mask.Rows(), tolerance)
}

// Estimate returns the hull vertex of shape furthest from the hull's centroid
// that lies inside the frame inset by tolerance pixels on every side.
func Estimate(shape Shape, frameWidth, frameHeight, tolerance int) Event {
	return Analyze(shape, frameWidth, frameHeight, tolerance).Event
}

// Analyze is Estimate, also returning the hull and centroid it used.
//
// Algorithm:
// 1. Convex hull of the shape
// 2. Centroid from the hull's moments; zero area means no target
// 3. Keep hull vertices in [tol, W-tol) x [tol, H-tol)
// 4. Pick the one furthest from the centroid, topmost then leftmost on ties
func Analyze(shape Shape, frameWidth, frameHeight, tolerance int) Analysis {
	result := Analysis{Shape: shape}
	if len(shape) == 0 {
		return result
	}

	result.Hull = ConvexHull(shape)

	m00, m10, m01 := moments(result.Hull)
	if m00 == 0 {
		return result
	}
	result.Area = math.Abs(m00)
	result.Centroid = Centroid{X: m10 / m00, Y: m01 / m00}

	if tolerance < 0 {
		tolerance = 0
	}
	// a literal keeps an inverted (empty) region when the frame is too small
	admissible := image.Rectangle{
		Min: image.Point{X: tolerance, Y: tolerance},
		Max: image.Point{X: frameWidth - tolerance, Y: frameHeight - tolerance},
	}

	best := -1
	var bestDist float64
	for i, p := range result.Hull {
		if !p.In(admissible) {
			continue
		}

		dx := float64(p.X) - result.Centroid.X
		dy := float64(p.Y) - result.Centroid.Y
		dist := dx*dx + dy*dy

		if best < 0 || farther(dist, p, bestDist, result.Hull[best]) {
			best = i
			bestDist = dist
		}
	}

	if best >= 0 {
		tip := result.Hull[best]
		result.Event = Target(tip.X, tip.Y)
	}

	return result
}

// ConvexHull returns the vertices of the convex hull of shape, clockwise.
func ConvexHull(shape Shape) []image.Point {
	if len(shape) == 0 {
		return nil
	}

	pv := gocv.NewPointVectorFromPoints(shape)
	defer pv.Close()

	indices := gocv.NewMat()
	defer indices.Close()
	gocv.ConvexHull(pv, &indices, true, false)

	hull := make([]image.Point, 0, indices.Rows())
	for i := 0; i < indices.Rows(); i++ {
		hull = append(hull, shape[indices.GetIntAt(i, 0)])
	}
	return hull
}

// moments returns the signed area and first moments of a closed polygon.
func moments(poly []image.Point) (m00, m10, m01 float64) {
	if len(poly) < 3 {
		return 0, 0, 0
	}

	var area2 int64
	var sx, sy float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		cross := int64(p.X)*int64(q.Y) - int64(q.X)*int64(p.Y)
		area2 += cross
		sx += float64(p.X+q.X) * float64(cross)
		sy += float64(p.Y+q.Y) * float64(cross)
	}
	if area2 == 0 {
		return 0, 0, 0
	}

	return float64(area2) / 2, sx / 6, sy / 6
}

// farther reports whether p at dist beats the current best candidate.
func farther(dist float64, p image.Point, bestDist float64, bestP image.Point) bool {
	if math.Abs(dist-bestDist) <= tieEpsilon {
		return before(p, bestP)
	}
	return dist > bestDist
}

// before orders points topmost first, then leftmost.
func before(a, b image.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
