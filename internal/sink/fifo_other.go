//go:build !unix

package sink

import (
	"context"
	"fmt"
	"runtime"
)

// FIFO is unavailable on this platform.
type FIFO struct {
	*Writer
}

// OpenFIFO always fails with ErrSetup on platforms without named pipes.
func OpenFIFO(ctx context.Context, path string) (*FIFO, error) {
	return nil, fmt.Errorf("%w: named pipes are not supported on %s", ErrSetup, runtime.GOOS)
}

// Path returns an empty string.
func (f *FIFO) Path() string {
	return ""
}
