package capture

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// Frame differencing constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// FrameDiff is a ForegroundModel that marks pixels which changed since the
// previous frame. It adapts instantly, so a hand held still fades from the mask.
type FrameDiff struct {
	prevGray    gocv.Mat
	initialized bool
}

// NewFrameDiff creates a FrameDiff with no baseline.
func NewFrameDiff() *FrameDiff {
	return &FrameDiff{
		prevGray: gocv.NewMat(),
	}
}

// Apply compares frame with the previous one and writes the changed pixels to mask.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur (21x21) to reduce noise
// 3. If first frame, store as baseline and return an empty mask
// 4. Calculate absolute difference with previous frame
// 5. Threshold the difference (threshold=25) into a 0/255 mask
func (m *FrameDiff) Apply(frame gocv.Mat, mask *gocv.Mat) error {
	if frame.Empty() {
		return errors.New("frame diff: empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true

		empty := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
		defer empty.Close()
		empty.CopyTo(mask)
		return nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	gocv.Threshold(diff, mask, DiffThreshold, 255, gocv.ThresholdBinary)

	blurred.CopyTo(&m.prevGray)

	return nil
}

// Reset drops the baseline; the next frame becomes the new one.
func (m *FrameDiff) Reset() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases the baseline frame. It may be called more than once.
func (m *FrameDiff) Close() error {
	m.Reset()
	return nil
}
