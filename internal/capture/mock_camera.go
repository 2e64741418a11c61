package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing
type MockCamera struct {
	frames     []*gocv.Mat
	index      int
	loop       bool
	running    bool
	openErr    error
	reads      int
	disconnect int
	fps        int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// FailOpen makes the next Open return err.
func (c *MockCamera) FailOpen(err error) {
	c.openErr = err
}

// DisconnectAfter makes the camera report closed once n frames have been read.
// The count includes the probe frame App.Run reads while connecting, so
// DisconnectAfter(3) lets two loop ticks through before the disconnect.
// Zero disables the simulated disconnection.
func (c *MockCamera) DisconnectAfter(n int) {
	c.disconnect = n
}

func (c *MockCamera) Open() error {
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	c.reads = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	if !c.IsOpen() {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames available", ErrReadFailed)
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("%w: no more frames", ErrReadFailed)
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++
	c.reads++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps > 0 {
		c.fps = fps
	}
}

func (c *MockCamera) FPS() int { return c.fps }

func (c *MockCamera) IsOpen() bool {
	if c.disconnect > 0 && c.reads >= c.disconnect {
		return false
	}
	return c.running
}

// Reads returns the number of frames delivered since Open.
func (c *MockCamera) Reads() int {
	return c.reads
}
