package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Foreground model kinds accepted by NewForeground.
const (
	KindKNN  = "knn"
	KindMOG2 = "mog2"
	KindDiff = "diff"
)

// Subtractor defaults, matching OpenCV's own.
const (
	DefaultHistory        = 500
	DefaultKNNThreshold   = 400.0
	DefaultMOG2Threshold  = 16.0
	DefaultDetectShadows  = true
	DefaultForegroundKind = KindKNN
)

// ErrUnknownForeground is returned by NewForeground for an unsupported kind.
var ErrUnknownForeground = errors.New("unknown foreground model")

// ForegroundModel separates moving foreground from a learned background.
// Implementations keep adaptive state across calls to Apply.
type ForegroundModel interface {
	// Apply writes a single-channel mask for frame into mask.
	// Non-zero pixels are foreground.
	Apply(frame gocv.Mat, mask *gocv.Mat) error

	// Close releases any resources held by the model.
	Close() error
}

// ForegroundConfig selects and tunes a ForegroundModel.
type ForegroundConfig struct {
	// Kind is one of KindKNN, KindMOG2 or KindDiff.
	Kind string

	// History is the number of frames that shape the background model.
	History int

	// DetectShadows marks shadows in the mask (value 127) instead of dropping them.
	DetectShadows bool
}

// DefaultForegroundConfig returns the KNN configuration used by default.
func DefaultForegroundConfig() ForegroundConfig {
	return ForegroundConfig{
		Kind:          DefaultForegroundKind,
		History:       DefaultHistory,
		DetectShadows: DefaultDetectShadows,
	}
}

// NewForeground creates the ForegroundModel described by cfg.
func NewForeground(cfg ForegroundConfig) (ForegroundModel, error) {
	history := cfg.History
	if history <= 0 {
		history = DefaultHistory
	}

	switch cfg.Kind {
	case KindKNN, "":
		knn := gocv.NewBackgroundSubtractorKNNWithParams(history, DefaultKNNThreshold, cfg.DetectShadows)
		return &Subtractor{kind: KindKNN, knn: &knn}, nil
	case KindMOG2:
		mog := gocv.NewBackgroundSubtractorMOG2WithParams(history, DefaultMOG2Threshold, cfg.DetectShadows)
		return &Subtractor{kind: KindMOG2, mog2: &mog}, nil
	case KindDiff:
		return NewFrameDiff(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownForeground, cfg.Kind)
	}
}

// Subtractor wraps one of OpenCV's adaptive background subtractors.
type Subtractor struct {
	kind string
	knn  *gocv.BackgroundSubtractorKNN
	mog2 *gocv.BackgroundSubtractorMOG2
}

// Kind reports which subtractor is in use.
func (s *Subtractor) Kind() string {
	return s.kind
}

// Apply updates the background model with frame and writes the foreground mask.
func (s *Subtractor) Apply(frame gocv.Mat, mask *gocv.Mat) error {
	if frame.Empty() {
		return errors.New("apply foreground model: empty frame")
	}

	switch {
	case s.knn != nil:
		s.knn.Apply(frame, mask)
	case s.mog2 != nil:
		s.mog2.Apply(frame, mask)
	default:
		return errors.New("apply foreground model: subtractor is closed")
	}

	if mask.Empty() {
		return errors.New("apply foreground model: empty mask")
	}
	return nil
}

// Close releases the underlying OpenCV object. Calling Close twice is safe.
func (s *Subtractor) Close() error {
	if s.knn != nil {
		s.knn.Close()
		s.knn = nil
	}
	if s.mog2 != nil {
		s.mog2.Close()
		s.mog2 = nil
	}
	return nil
}
