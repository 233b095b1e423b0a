package relay_test

import (
	"errors"
	"io"
)

// scriptedBody is a response body that serves a fixed sequence of reads.
type scriptedBody struct {
	reads   [][]byte
	readErr error
	closes  int

	// afterRead, if set, runs after each successful read.
	afterRead func()
}

func (b *scriptedBody) Read(buffer []byte) (int, error) {
	if len(b.reads) == 0 {
		if b.readErr != nil {
			return 0, b.readErr
		}
		return 0, io.EOF
	}

	chunk := b.reads[0]
	b.reads = b.reads[1:]
	n := copy(buffer, chunk)

	if b.afterRead != nil {
		b.afterRead()
	}

	return n, nil
}

func (b *scriptedBody) Close() error {
	b.closes++
	return nil
}

// recordingStream is a forked stream that records the calls made to it.
type recordingStream struct {
	chunks   [][]byte
	flushes  int
	aborts   int
	closes   int
	writeErr error
}

func (s *recordingStream) Write(buffer []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}

	chunk := make([]byte, len(buffer))
	copy(chunk, buffer)
	s.chunks = append(s.chunks, chunk)

	return len(buffer), nil
}

func (s *recordingStream) Flush() error {
	s.flushes++
	return nil
}

func (s *recordingStream) Abort() {
	s.aborts++
}

func (s *recordingStream) Close() error {
	s.closes++
	return nil
}

// failingWriter fails every write after the first failAfter writes.
type failingWriter struct {
	writes    int
	failAfter int
}

var errWriteFailed = errors.New("write failed")

func (w *failingWriter) Write(buffer []byte) (int, error) {
	w.writes++
	if w.writes > w.failAfter {
		return 0, errWriteFailed
	}

	return len(buffer), nil
}
