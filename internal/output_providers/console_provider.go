package outputproviders

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	sectionColor = color.New(color.FgHiMagenta, color.Bold)
	alertColor   = color.New(color.FgYellow, color.Bold)
	noteColor    = color.New(color.FgCyan)
	errorColor   = color.New(color.FgRed)
)

// ConsoleSink writes to a terminal, highlighting section headers and the
// "[!]", "[*]" and "[X]" markers formatters emit.
type ConsoleSink struct {
	*WriterSink
	colorize bool
}

// NewConsoleSink writes to stdout. Colors are used only when stdout is a
// terminal and noColor is false.
func NewConsoleSink(noColor bool) *ConsoleSink {
	return NewConsoleSinkWriter(os.Stdout, !noColor && isTerminal(os.Stdout))
}

func NewConsoleSinkWriter(w io.Writer, colorize bool) *ConsoleSink {
	return &ConsoleSink{WriterSink: NewWriterSink(w), colorize: colorize}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *ConsoleSink) WriteLine(text string) {
	if !c.colorize {
		c.WriterSink.WriteLine(text)
		return
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "======"):
		c.Write(sectionColor.Sprint(text) + "\n")
	case strings.HasPrefix(trimmed, "[!]"):
		c.Write(alertColor.Sprint(text) + "\n")
	case strings.HasPrefix(trimmed, "[*]"):
		c.Write(noteColor.Sprint(text) + "\n")
	case strings.HasPrefix(trimmed, "[X]"):
		c.Write(errorColor.Sprint(text) + "\n")
	default:
		c.WriterSink.WriteLine(text)
	}
}

func (c *ConsoleSink) WriteLinef(format string, args ...any) {
	c.WriteLine(sprintf(format, args...))
}
