//go:build unix

package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// readerPollInterval is how often OpenFIFO retries while no reader is attached.
const readerPollInterval = 100 * time.Millisecond

// FIFO writes lines to a named pipe.
type FIFO struct {
	*Writer
	path    string
	file    *os.File
	created bool
}

// OpenFIFO creates a named pipe at path, or reuses an existing one, and opens
// it for writing. It waits for a reader to attach, checking ctx between tries.
// Failures wrap ErrSetup; cancellation returns ctx.Err().
func OpenFIFO(ctx context.Context, path string) (*FIFO, error) {
	created := true
	if err := unix.Mkfifo(path, 0o600); err != nil {
		if !errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("%w: create pipe %s: %v", ErrSetup, path, err)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("%w: stat %s: %v", ErrSetup, path, statErr)
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			return nil, fmt.Errorf("%w: %s exists and is not a named pipe", ErrSetup, path)
		}
		created = false
	}

	fail := func(err error) (*FIFO, error) {
		if created {
			os.Remove(path)
		}
		return nil, err
	}

	for {
		// Non-blocking open fails with ENXIO until a reader has the pipe open.
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			if err := unix.SetNonblock(fd, false); err != nil {
				unix.Close(fd)
				return fail(fmt.Errorf("%w: configure pipe %s: %v", ErrSetup, path, err))
			}
			file := os.NewFile(uintptr(fd), path)
			return &FIFO{
				Writer:  &Writer{w: file, closer: file},
				path:    path,
				file:    file,
				created: created,
			}, nil
		}
		if !errors.Is(err, unix.ENXIO) && !errors.Is(err, unix.EINTR) {
			return fail(fmt.Errorf("%w: open pipe %s: %v", ErrSetup, path, err))
		}

		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-time.After(readerPollInterval):
		}
	}
}

// Path returns the location of the pipe.
func (f *FIFO) Path() string {
	return f.path
}

// Close closes the pipe and removes it if OpenFIFO created it.
func (f *FIFO) Close() error {
	err := f.file.Close()
	if f.created {
		if rmErr := os.Remove(f.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}
	return err
}
