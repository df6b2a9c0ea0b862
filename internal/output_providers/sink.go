package outputproviders

import (
	"fmt"
	"io"
	"strings"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// WriterSink is a TextSink over any io.Writer. The first write error is
// latched and every later write becomes a no-op.
type WriterSink struct {
	w   io.Writer
	err error
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(text string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, text)
}

func (s *WriterSink) WriteLine(text string) {
	s.Write(text + "\n")
}

func (s *WriterSink) WriteLinef(format string, args ...any) {
	s.WriteLine(fmt.Sprintf(format, args...))
}

func (s *WriterSink) Err() error {
	return s.err
}

// BufferSink collects text in memory.
type BufferSink struct {
	strings.Builder
}

func (b *BufferSink) Write(text string) {
	b.WriteString(text)
}

func (b *BufferSink) WriteLine(text string) {
	b.WriteString(text)
	b.WriteByte('\n')
}

func (b *BufferSink) WriteLinef(format string, args ...any) {
	b.WriteLine(fmt.Sprintf(format, args...))
}

func (b *BufferSink) Err() error { return nil }

// MultiSink fans every write out to all of its sinks.
type MultiSink struct {
	sinks []types.TextSink
}

func NewMultiSink(sinks ...types.TextSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Write(text string) {
	for _, s := range m.sinks {
		s.Write(text)
	}
}

func (m *MultiSink) WriteLine(text string) {
	for _, s := range m.sinks {
		s.WriteLine(text)
	}
}

func (m *MultiSink) WriteLinef(format string, args ...any) {
	m.WriteLine(fmt.Sprintf(format, args...))
}

// Err returns the first error reported by any sink.
func (m *MultiSink) Err() error {
	for _, s := range m.sinks {
		if err := s.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink that can be closed and returns the first error.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		c, ok := s.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// compile-time interface checks
var (
	_ types.TextSink = (*WriterSink)(nil)
	_ types.TextSink = (*BufferSink)(nil)
	_ types.TextSink = (*MultiSink)(nil)
)
