package app

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/pointcast/internal/capture"
	"github.com/ayusman/pointcast/internal/pointing"
	"github.com/ayusman/pointcast/internal/sink"
	"github.com/ayusman/pointcast/internal/store"
)

// Run drives the loop until the camera disconnects, the sink fails or the
// poller reports a cancel. Cleanup always runs before Run returns.
//
// Loop states:
//  1. Connecting: open the camera and read one probe frame for the frame size
//  2. Running: read, subtract background, extract shape, estimate, emit, wait
//  3. Disconnected or UserCancelled, then Stopped
//
// A user cancel returns a nil error. Every disconnect returns an error
// wrapping ErrDisconnected.
func (a *App) Run(ctx context.Context) (res Result, err error) {
	if !a.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer a.running.Store(false)

	a.ticks.Store(0)
	a.targets.Store(0)
	a.setFrameSize(image.Point{})
	a.setSessionID("")
	res.StartedAt = time.Now()

	a.mu.RLock()
	camera, fg, out, poller := a.camera, a.foreground, a.sink, a.poller
	observers := append([]Observer(nil), a.observers...)
	a.mu.RUnlock()

	if camera == nil {
		camera = capture.NewCamera(a.config.CameraID)
	}
	if out == nil {
		out = sink.Stdout()
	}
	if poller == nil {
		poller = SignalPoller{}
	}

	session := a.beginSession()
	if session != nil {
		res.SessionID = session.ID
	}

	defer func() {
		a.closeAll(camera, fg, out, poller, observers)
		a.setState(StateStopped)

		res.Ticks = a.ticks.Load()
		res.Targets = a.targets.Load()
		res.EndedAt = time.Now()
		a.finishSession(session, res)

		a.logger.Info("stopped",
			zap.Stringer("state", res.State),
			zap.String("reason", res.Reason),
			zap.Int64("ticks", res.Ticks),
			zap.Int64("targets", res.Targets),
			zap.Duration("elapsed", res.EndedAt.Sub(res.StartedAt)))
	}()

	if fg == nil {
		fg, err = capture.NewForeground(a.config.Foreground)
		if err != nil {
			res.State = StateStopped
			res.Reason = err.Error()
			return res, fmt.Errorf("failed to create foreground model: %w", err)
		}
	}

	disconnect := func(cause error) (Result, error) {
		a.setState(StateDisconnected)
		res.State = StateDisconnected
		res.Reason = cause.Error()
		return res, cause
	}

	a.setState(StateConnecting)

	if err := camera.Open(); err != nil {
		return disconnect(fmt.Errorf("%w: open camera %d: %v", ErrDisconnected, a.config.CameraID, err))
	}
	camera.SetFPS(a.config.FPS)

	size, err := probe(camera)
	if err != nil {
		return disconnect(fmt.Errorf("%w: %v", ErrDisconnected, err))
	}
	res.FrameSize = size
	a.setFrameSize(size)

	a.setState(StateRunning)
	a.logger.Info("running",
		zap.Int("camera", a.config.CameraID),
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Int("tolerance", a.config.Tolerance),
		zap.Int("fps", a.config.FPS))

	interval := time.Second / time.Duration(a.config.FPS)
	mask := gocv.NewMat()
	defer mask.Close()

	for {
		if ctx.Err() != nil {
			break
		}

		if !camera.IsOpen() {
			return disconnect(fmt.Errorf("%w: camera closed", ErrDisconnected))
		}

		frame, err := camera.ReadFrame()
		if err != nil {
			return disconnect(fmt.Errorf("%w: %v", ErrDisconnected, err))
		}

		line := a.tick(*frame, &mask, fg, observers)
		frame.Close()

		if err := out.WriteLine(line); err != nil {
			return disconnect(fmt.Errorf("%w: write output: %v", ErrDisconnected, err))
		}

		if poller.Wait(ctx, interval) {
			break
		}
	}

	a.setState(StateUserCancelled)
	res.State = StateUserCancelled
	res.Reason = "cancelled"
	return res, nil
}

// probe reads one frame to learn the frame size.
func probe(camera capture.Camera) (image.Point, error) {
	frame, err := camera.ReadFrame()
	if err != nil {
		return image.Point{}, fmt.Errorf("probe frame: %w", err)
	}
	defer frame.Close()

	size := image.Pt(frame.Cols(), frame.Rows())
	if size.X <= 0 || size.Y <= 0 {
		return image.Point{}, fmt.Errorf("probe frame is empty")
	}
	return size, nil
}

// tick processes one frame and returns the line to emit.
func (a *App) tick(frame gocv.Mat, mask *gocv.Mat, fg capture.ForegroundModel, observers []Observer) string {
	n := a.ticks.Add(1)
	size := image.Pt(frame.Cols(), frame.Rows())

	analysis := pointing.Analysis{Event: pointing.NoTarget}
	if err := fg.Apply(frame, mask); err != nil {
		a.logger.Warn("foreground model failed", zap.Int64("tick", n), zap.Error(err))
	} else if shape, ok := pointing.ExtractShape(*mask); ok {
		analysis = pointing.Analyze(shape, size.X, size.Y, a.config.Tolerance)
	}

	if analysis.Event.Found {
		a.targets.Add(1)
	}

	for _, o := range observers {
		o.Observe(frame, analysis)
	}

	line := pointing.FormatLine(analysis.Event, size, a.config.Target)

	if ce := a.logger.Check(zap.DebugLevel, "tick"); ce != nil {
		ce.Write(
			zap.Int64("tick", n),
			zap.Int("shape", len(analysis.Shape)),
			zap.Int("hull", len(analysis.Hull)),
			zap.Float64("area", analysis.Area),
			zap.Float64("cx", analysis.Centroid.X),
			zap.Float64("cy", analysis.Centroid.Y),
			zap.Bool("found", analysis.Event.Found),
			zap.String("line", line))
	}

	return line
}

// beginSession records the start of a run. Store errors are logged and the
// run continues unrecorded.
func (a *App) beginSession() *store.Session {
	if a.config.Store == nil {
		return nil
	}

	session := &store.Session{
		CameraID:   a.config.CameraID,
		Tolerance:  a.config.Tolerance,
		Subtractor: a.config.Foreground.Kind,
	}
	if session.Subtractor == "" {
		session.Subtractor = capture.DefaultForegroundKind
	}
	if t := a.config.Target; t != nil {
		session.TargetWidth = t.X
		session.TargetHeight = t.Y
	}

	if err := a.config.Store.Sessions().Create(session); err != nil {
		a.logger.Warn("failed to record session", zap.Error(err))
		return nil
	}

	a.setSessionID(session.ID)
	return session
}

func (a *App) finishSession(session *store.Session, res Result) {
	if session == nil {
		return
	}

	switch res.State {
	case StateUserCancelled:
		session.State = store.SessionCancelled
	case StateDisconnected:
		session.State = store.SessionDisconnected
	default:
		session.State = store.SessionStopped
	}
	session.Reason = res.Reason
	session.Ticks = res.Ticks
	session.Targets = res.Targets
	session.FrameWidth = res.FrameSize.X
	session.FrameHeight = res.FrameSize.Y
	ended := res.EndedAt
	session.EndedAt = &ended

	if err := a.config.Store.Sessions().Finish(session); err != nil {
		a.logger.Warn("failed to finish session", zap.String("session", session.ID), zap.Error(err))
	}
}
