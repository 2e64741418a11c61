package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/pointcast/internal/pointing"
	"github.com/ayusman/pointcast/internal/preview"
)

// FrameStream serves the latest annotated frame as MJPEG. The acquisition
// loop feeds it through Observe; frames are only encoded while at least one
// client is watching.
type FrameStream struct {
	watchers atomic.Int32

	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
	done    chan struct{}
	closed  bool
}

// NewFrameStream creates an empty FrameStream.
func NewFrameStream() *FrameStream {
	return &FrameStream{
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Observe annotates a copy of frame with a and publishes it as a JPEG.
func (s *FrameStream) Observe(frame gocv.Mat, a pointing.Analysis) {
	if s.watchers.Load() == 0 || frame.Empty() {
		return
	}

	img := frame.Clone()
	defer img.Close()
	preview.Annotate(&img, a)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	s.publish(data)
}

func (s *FrameStream) publish(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.jpeg = data
	s.seq++
	close(s.updated)
	s.updated = make(chan struct{})
}

// Latest returns the most recent JPEG and its sequence number.
func (s *FrameStream) Latest() ([]byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jpeg, s.seq
}

// next blocks until a frame newer than seq is published. It returns false
// when the stream is closed or the client went away.
func (s *FrameStream) next(r *http.Request, seq uint64) ([]byte, uint64, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, seq, false
		}
		if s.seq > seq && s.jpeg != nil {
			data, cur := s.jpeg, s.seq
			s.mu.Unlock()
			return data, cur, true
		}
		updated := s.updated
		s.mu.Unlock()

		select {
		case <-updated:
		case <-s.done:
			return nil, seq, false
		case <-r.Context().Done():
			return nil, seq, false
		}
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (s *FrameStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.watchers.Add(1)
	defer s.watchers.Add(-1)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	var seq uint64
	for {
		data, cur, ok := s.next(r, seq)
		if !ok {
			return
		}
		seq = cur

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// Watchers returns the number of connected stream clients.
func (s *FrameStream) Watchers() int {
	return int(s.watchers.Load())
}

// Close ends every open stream.
func (s *FrameStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}
