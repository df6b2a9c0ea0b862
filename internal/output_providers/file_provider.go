package outputproviders

import (
	"bufio"
	"fmt"
	"os"
)

// FileSink writes text to a file through a buffer. Close must be called to
// flush; callers defer it right after opening.
type FileSink struct {
	*WriterSink
	path string
	file *os.File
	buf  *bufio.Writer
}

// NewFileSink creates (or truncates) path, creating parent directories.
func NewFileSink(path string) (*FileSink, error) {
	if err := EnsureDir(path); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening output file: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &FileSink{WriterSink: NewWriterSink(buf), path: path, file: file, buf: buf}, nil
}

func (f *FileSink) Path() string { return f.path }

// Close flushes and closes the file. It is safe to call more than once.
func (f *FileSink) Close() error {
	if f.file == nil {
		return nil
	}
	flushErr := f.buf.Flush()
	closeErr := f.file.Close()
	f.file = nil

	if err := f.Err(); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if flushErr != nil {
		return fmt.Errorf("flushing %s: %w", f.path, flushErr)
	}
	return closeErr
}
