// Package app runs the acquisition loop: camera frames in, one pointing line
// per frame out.
package app

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/pointcast/internal/capture"
	"github.com/ayusman/pointcast/internal/logging"
	"github.com/ayusman/pointcast/internal/pointing"
	"github.com/ayusman/pointcast/internal/sink"
	"github.com/ayusman/pointcast/internal/store"
)

// ErrDisconnected is returned by Run when the camera can no longer deliver
// frames or the consumer went away.
var ErrDisconnected = errors.New("disconnected")

// ErrAlreadyRunning is returned when Run is called on an App that is running.
var ErrAlreadyRunning = errors.New("app is already running")

// State is the lifecycle state of the acquisition loop.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateRunning
	StateDisconnected
	StateUserCancelled
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateDisconnected:
		return "disconnected"
	case StateUserCancelled:
		return "cancelled"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds configuration options for the application.
type Config struct {
	CameraID   int
	Tolerance  int
	FPS        int
	Foreground capture.ForegroundConfig

	// Target scales output to this resolution. Nil emits fractions of the frame.
	Target *image.Point

	// Store records a session row per run when set.
	Store  *store.Store
	Logger *zap.Logger
}

// CancelPoller waits up to d between ticks and reports whether the run
// should stop.
type CancelPoller interface {
	Wait(ctx context.Context, d time.Duration) bool
}

// Observer receives every processed frame with its analysis. The frame is
// only valid for the duration of the call.
type Observer interface {
	Observe(frame gocv.Mat, a pointing.Analysis)
}

// SignalPoller sleeps for the frame interval and stops when ctx is done,
// which is how SIGINT and SIGTERM reach the loop.
type SignalPoller struct{}

// Wait implements CancelPoller.
func (SignalPoller) Wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}

// Result summarizes a finished run.
type Result struct {
	State     State
	Reason    string
	Ticks     int64
	Targets   int64
	FrameSize image.Point
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
}

// Stats is a point-in-time view of a run, safe to read from other goroutines.
type Stats struct {
	State     State
	Ticks     int64
	Targets   int64
	FrameSize image.Point
	SessionID string
}

// App wires a camera, a foreground model and a sink into the acquisition loop.
type App struct {
	config Config
	logger *zap.Logger

	mu         sync.RWMutex
	camera     capture.Camera
	foreground capture.ForegroundModel
	sink       sink.Sink
	poller     CancelPoller
	observers  []Observer

	running atomic.Bool
	state   atomic.Int32
	ticks   atomic.Int64
	targets atomic.Int64

	statsMu   sync.Mutex
	frameSize image.Point
	sessionID string
}

// New creates an App. Unset collaborators get defaults when Run starts: the
// camera from CameraID, the foreground model from Foreground, stdout as sink,
// and a SignalPoller.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.Tolerance < 0 {
		config.Tolerance = 0
	}

	return &App{
		config: config,
		logger: logging.OrNop(config.Logger).Named("app"),
	}
}

// SetCamera sets the frame source.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetForeground sets the foreground model.
func (a *App) SetForeground(f capture.ForegroundModel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.foreground = f
}

// SetSink sets where output lines are written.
func (a *App) SetSink(s sink.Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = s
}

// SetPoller replaces the default SignalPoller.
func (a *App) SetPoller(p CancelPoller) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.poller = p
}

// AddObserver registers o to receive every processed frame.
func (a *App) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// State returns the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(s State) {
	prev := State(a.state.Swap(int32(s)))
	if prev != s {
		a.logger.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Stats returns the live counters of the current or last run.
func (a *App) Stats() Stats {
	a.statsMu.Lock()
	size, id := a.frameSize, a.sessionID
	a.statsMu.Unlock()

	return Stats{
		State:     a.State(),
		Ticks:     a.ticks.Load(),
		Targets:   a.targets.Load(),
		FrameSize: size,
		SessionID: id,
	}
}

func (a *App) setFrameSize(size image.Point) {
	a.statsMu.Lock()
	a.frameSize = size
	a.statsMu.Unlock()
}

func (a *App) setSessionID(id string) {
	a.statsMu.Lock()
	a.sessionID = id
	a.statsMu.Unlock()
}

// closeAll closes the collaborators of a run. Observers and the poller are
// closed when they implement io.Closer, each at most once.
func (a *App) closeAll(camera capture.Camera, fg capture.ForegroundModel, out sink.Sink, poller CancelPoller, observers []Observer) {
	if err := camera.Close(); err != nil {
		a.logger.Warn("close camera", zap.Error(err))
	}
	if fg != nil {
		if err := fg.Close(); err != nil {
			a.logger.Warn("close foreground model", zap.Error(err))
		}
	}
	if err := out.Close(); err != nil {
		a.logger.Warn("close output", zap.Error(err))
	}

	var closed []io.Closer
	closeOnce := func(v any) {
		c, ok := v.(io.Closer)
		if !ok {
			return
		}
		for _, done := range closed {
			if done == c {
				return
			}
		}
		closed = append(closed, c)
		if err := c.Close(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}

	closeOnce(poller)
	for _, o := range observers {
		closeOnce(o)
	}
}
