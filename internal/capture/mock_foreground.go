package capture

import (
	"gocv.io/x/gocv"
)

// ScriptedForeground returns pre-built masks in order, ignoring frame content.
// Once the script is exhausted it returns empty masks sized like the frame.
type ScriptedForeground struct {
	masks   []gocv.Mat
	index   int
	applied int
	closed  bool
}

// NewScriptedForeground creates a ScriptedForeground that plays back masks.
// The masks remain owned by the caller.
func NewScriptedForeground(masks ...gocv.Mat) *ScriptedForeground {
	return &ScriptedForeground{masks: masks}
}

func (s *ScriptedForeground) Apply(frame gocv.Mat, mask *gocv.Mat) error {
	s.applied++

	if s.index < len(s.masks) {
		s.masks[s.index].CopyTo(mask)
		s.index++
		return nil
	}

	empty := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
	defer empty.Close()
	empty.CopyTo(mask)
	return nil
}

func (s *ScriptedForeground) Close() error {
	s.closed = true
	return nil
}

// Applied returns how many frames were passed to Apply.
func (s *ScriptedForeground) Applied() int { return s.applied }

// Closed reports whether Close was called.
func (s *ScriptedForeground) Closed() bool { return s.closed }
