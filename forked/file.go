package forked

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	humanize "github.com/dustin/go-humanize"
)

// DefaultKeyParam is the query parameter used to name captures when no
// other parameter is configured.
const DefaultKeyParam = "cacheKey"

// FileFactory creates streams that capture response bodies as files under
// BasePath. Each capture is written to a temporary file and renamed into
// place when the stream is closed, so a partially written capture is never
// visible under its final name.
type FileFactory struct {
	// BasePath is the directory that captures are written to. If empty,
	// the system temporary directory is used.
	BasePath string

	// KeyParam is the query parameter that names the capture. If the
	// parameter is absent from the request, a sequential name is used.
	KeyParam string

	Logger *log.Logger

	seq uint64
}

// NewStream creates a file-backed stream for a single request.
func (f *FileFactory) NewStream(params Params) (Stream, error) {
	base := f.BasePath
	if base == "" {
		base = os.TempDir()
	}

	key := params.Get(f.keyParam())
	if key == "" {
		key = fmt.Sprintf("capture-%d", atomic.AddUint64(&f.seq, 1))
	}

	// Parameter values are client-supplied, keep them inside the capture
	// directory.
	key = filepath.Base(key)

	file, err := ioutil.TempFile(base, key+".*.part")
	if err != nil {
		return nil, err
	}

	return &fileStream{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   filepath.Join(base, key),
		logger: f.Logger,
	}, nil
}

func (f *FileFactory) keyParam() string {
	if f.KeyParam != "" {
		return f.KeyParam
	}

	return DefaultKeyParam
}

type fileStream struct {
	file    *os.File
	writer  *bufio.Writer
	path    string
	size    int64
	aborted bool
	closed  bool
	logger  *log.Logger
}

func (s *fileStream) Write(buffer []byte) (int, error) {
	n, err := s.writer.Write(buffer)
	s.size += int64(n)
	return n, err
}

func (s *fileStream) Flush() error {
	return s.writer.Flush()
}

// Abort discards the capture, removing the temporary file.
func (s *fileStream) Abort() {
	if s.aborted || s.closed {
		return
	}

	s.aborted = true
	s.file.Close()
	os.Remove(s.file.Name())
}

// Close completes the capture, renaming the temporary file to its final
// name. It is a no-op after Abort.
func (s *fileStream) Close() error {
	if s.aborted || s.closed {
		return nil
	}

	s.closed = true

	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		os.Remove(s.file.Name())
		return err
	}

	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return err
	}

	if err := os.Rename(s.file.Name(), s.path); err != nil {
		os.Remove(s.file.Name())
		return err
	}

	if s.logger != nil {
		s.logger.Printf(
			"capture: wrote %s to %s",
			humanize.IBytes(uint64(s.size)),
			s.path,
		)
	}

	return nil
}
