// Package sink delivers output lines to the consumer of pointing events.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSetup is returned when an output cannot be created.
var ErrSetup = errors.New("output setup failed")

// Sink receives one line per tick.
type Sink interface {
	// WriteLine writes line followed by a newline and flushes it.
	// It blocks until the consumer accepts the data.
	WriteLine(line string) error

	// Close releases the output.
	Close() error
}

// Writer writes lines to an io.Writer without buffering.
type Writer struct {
	w      io.Writer
	closer io.Closer
}

// NewWriter returns a Sink writing to w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Stdout returns a Sink writing to the process's standard output.
func Stdout() *Writer {
	return NewWriter(os.Stdout)
}

func (s *Writer) WriteLine(line string) error {
	// One write per line keeps lines whole on pipes.
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

func (s *Writer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Func adapts a callback to a Sink, for consumers in the same process.
type Func func(line string) error

func (f Func) WriteLine(line string) error { return f(line) }

func (f Func) Close() error { return nil }

// Multi writes every line to several sinks in order.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a Sink that fans out to sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// WriteLine stops at the first failing sink.
func (m *Multi) WriteLine(line string) error {
	for _, s := range m.sinks {
		if err := s.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the joined errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
