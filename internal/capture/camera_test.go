package capture

import (
	"errors"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// missingDevice is a device index no test machine is expected to have.
const missingDevice = 97

func TestNewCamera(t *testing.T) {
	cam := NewCamera(3)

	if got := cam.FPS(); got != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should be false before Open()")
	}
	if impl := cam.(*cameraImpl); impl.deviceID != 3 {
		t.Errorf("deviceID = %d, want 3", impl.deviceID)
	}
}

func TestCamera_SetFPS(t *testing.T) {
	tests := []struct {
		name    string
		fps     []int
		wantFPS int
	}{
		{name: "positive value is kept", fps: []int{15}, wantFPS: 15},
		{name: "zero keeps previous", fps: []int{12, 0}, wantFPS: 12},
		{name: "negative keeps previous", fps: []int{12, -5}, wantFPS: 12},
		{name: "nothing set", fps: nil, wantFPS: DefaultFPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(0)
			for _, fps := range tt.fps {
				cam.SetFPS(fps)
			}
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_OpenMissingDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that probes video devices")
	}

	cam := NewCamera(missingDevice)
	defer cam.Close()

	if err := cam.Open(); err == nil {
		t.Skipf("device %d unexpectedly present", missingDevice)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should be false after a failed Open()")
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() after failed Open() error = %v, want ErrCameraNotOpen", err)
	}
}

// A capture that never opened stands in for a device that went away.
func TestCamera_LostDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV VideoCapture")
	}

	vc, _ := gocv.VideoCaptureFile(filepath.Join(t.TempDir(), "missing.avi"))
	if vc == nil {
		t.Skip("VideoCaptureFile returned no capture")
	}
	cam := &cameraImpl{capture: vc, fps: DefaultFPS}
	defer cam.Close()

	if cam.IsOpen() {
		t.Error("IsOpen() should follow VideoCapture.IsOpened, not the handle")
	}

	mat, err := cam.ReadFrame()
	if !errors.Is(err, ErrReadFailed) {
		t.Errorf("ReadFrame() error = %v, want ErrReadFailed", err)
	}
	if mat != nil {
		t.Error("ReadFrame() should not return a frame on failure")
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if cam.capture != nil {
		t.Error("Close() should drop the capture handle")
	}
}

func TestCamera_OpenReadClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should be true after Open()")
	}
	// A second Open keeps the existing capture.
	if err := cam.Open(); err != nil {
		t.Errorf("second Open() error = %v", err)
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() error = %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned an empty frame")
		}
		t.Logf("native frame size: %dx%d", mat.Cols(), mat.Rows())
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should be false after Close()")
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() after Close() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_CloseNotOpened(t *testing.T) {
	cam := NewCamera(0)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a camera that was never opened = %v, want nil", err)
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}
