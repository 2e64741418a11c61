// Command pointcast streams the screen point a finger is aimed at, one line per
// camera frame, to stdout or a named pipe.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ayusman/pointcast/internal/app"
	"github.com/ayusman/pointcast/internal/config"
	"github.com/ayusman/pointcast/internal/logging"
	"github.com/ayusman/pointcast/internal/preview"
	"github.com/ayusman/pointcast/internal/server"
	"github.com/ayusman/pointcast/internal/sink"
	"github.com/ayusman/pointcast/internal/store"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const shutdownTimeout = 2 * time.Second

func init() {
	// The preview window's event loop must stay on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := config.NewFlagSet("pointcast")
	fs.SetOutput(stderr)

	// pflag has already printed the error and usage.
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "pointcast: %v\n", err)
		if errors.Is(err, config.ErrInvalid) {
			fs.Usage()
			return exitUsage
		}
		return exitFailure
	}

	logger, err := logging.NewWriter(stderr, cfg.LogFormat, cfg.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "pointcast: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ignoreBrokenPipe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, stdout)
}

// serve wires the configured outputs around an App and runs it.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) int {
	var st *store.Store
	if cfg.Record != "" {
		var err error
		st, err = store.New(cfg.Record)
		if err != nil {
			logger.Error("failed to open session store", zap.String("path", cfg.Record), zap.Error(err))
			return exitFailure
		}
		defer st.Close()
	}

	application := app.New(app.Config{
		CameraID:   cfg.CameraID,
		Tolerance:  cfg.Tolerance,
		FPS:        cfg.FPS,
		Foreground: cfg.Foreground(),
		Target:     cfg.Target(),
		Store:      st,
		Logger:     logger,
	})

	var hub *server.EventHub
	if cfg.Listen != "" {
		hub = server.NewEventHub(logger)
		frames := server.NewFrameStream()
		defer frames.Close()

		srv := server.New(server.Config{
			Store:  st,
			Events: hub,
			Frames: frames,
			Stats:  func() server.Stats { return toServerStats(application.Stats()) },
			Logger: logger,
		})
		if _, err := srv.Start(cfg.Listen); err != nil {
			logger.Error("failed to start server", zap.Error(err))
			return exitFailure
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("server shutdown", zap.Error(err))
			}
		}()

		application.AddObserver(frames)
	}

	var primary sink.Sink
	if cfg.Output != "" {
		logger.Info("waiting for a reader", zap.String("pipe", cfg.Output))
		fifo, err := sink.OpenFIFO(ctx, cfg.Output)
		if err != nil {
			if hub != nil {
				hub.Close()
			}
			if errors.Is(err, context.Canceled) {
				logger.Info("cancelled while waiting for a reader")
				return exitOK
			}
			logger.Error("failed to open output", zap.Error(err))
			return exitFailure
		}
		primary = fifo
	} else {
		primary = sink.NewWriter(stdout)
	}

	if hub != nil {
		application.SetSink(sink.NewMulti(primary, hub))
	} else {
		application.SetSink(primary)
	}

	if cfg.Show {
		window := preview.NewWindow("pointcast")
		application.AddObserver(window)
		application.SetPoller(window)
	}

	res, err := application.Run(ctx)
	if err != nil {
		logger.Error("run ended", zap.String("reason", res.Reason), zap.Error(err))
		return exitFailure
	}

	return exitOK
}

// ignoreBrokenPipe makes a vanished stdout reader surface as an EPIPE write
// error, so the run ends as disconnected and cleanup still runs.
func ignoreBrokenPipe() {
	signal.Ignore(syscall.SIGPIPE)
}

func toServerStats(s app.Stats) server.Stats {
	return server.Stats{
		State:       s.State.String(),
		SessionID:   s.SessionID,
		Ticks:       s.Ticks,
		Targets:     s.Targets,
		FrameWidth:  s.FrameSize.X,
		FrameHeight: s.FrameSize.Y,
	}
}
