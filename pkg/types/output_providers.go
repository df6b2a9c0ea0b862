package types

import (
	"fmt"
	"strings"
)

// TextSink receives rendered text. Implementations latch the first write
// error and report it from Err or Close, so formatters never check errors
// line by line.
type TextSink interface {
	Write(text string)
	WriteLine(text string)
	WriteLinef(format string, args ...any)
	Err() error
}

// OutputProvider receives the results of a run, one collector at a time.
// Emit returning an error drops that single result.
type OutputProvider interface {
	Begin(c Collector)
	Emit(c Collector, r Result) error
	End(c Collector, err error)
	Close() error
}

type MarkdownTable struct {
	TableHeading string
	Headers      []string
	Rows         [][]string
}

// ToString converts the MarkdownTable to a markdown string
func (t MarkdownTable) ToString() string {
	var result strings.Builder

	if t.TableHeading != "" {
		result.WriteString("# " + t.TableHeading + "\n\n")
	}

	if len(t.Headers) == 0 {
		return result.String()
	}

	// Dynamically determine column width
	colWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		colWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		result.WriteString("|")
		for i := range colWidths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			result.WriteString(fmt.Sprintf(" %-*s |", colWidths[i], cell))
		}
		result.WriteString("\n")
	}

	writeRow(t.Headers)
	result.WriteString("|")
	for _, w := range colWidths {
		result.WriteString(" " + strings.Repeat("-", w) + " |")
	}
	result.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}

	return result.String()
}
