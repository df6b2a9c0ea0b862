// Package message prints user-facing status lines to stderr, separate from
// collector output and from the structured log.
package message

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/praetorian-inc/vantage/version"
)

// visibility decides which switches hide a message.
type visibility int

const (
	// chatty messages are hidden by quiet and silent.
	chatty visibility = iota
	// important messages are hidden by silent only.
	important
	// always messages are never hidden.
	always
)

type printer struct {
	mu      sync.RWMutex
	w       io.Writer
	quiet   bool
	silent  bool
	noColor bool
}

var std = &printer{w: os.Stderr}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	accentColor  = color.New(color.FgHiMagenta, color.Bold)
)

const asciiBanner = `
 _  _  __   __ _  ____  __    ___  ____
/ )( \/ _\ (  ( \(_  _)/ _\  / __)(  __)
\ \/ /    \/    /  )( /    \( (_ \ ) _)
 \__/\_/\_/\_)__) (__)\_/\_/ \___/(____)
`

func (p *printer) hidden(v visibility) bool {
	switch v {
	case chatty:
		return p.quiet || p.silent
	case important:
		return p.silent
	}
	return false
}

func (p *printer) print(v visibility, c *color.Color, text string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.hidden(v) {
		return
	}
	if p.noColor || c == nil {
		io.WriteString(p.w, text)
		return
	}
	c.Fprint(p.w, text)
}

func (p *printer) update(fn func(p *printer)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// SetQuiet hides informational output; warnings and errors still print.
func SetQuiet(q bool) { std.update(func(p *printer) { p.quiet = q }) }

// SetSilent hides everything except Critical.
func SetSilent(s bool) { std.update(func(p *printer) { p.silent = s }) }

// SetNoColor also switches the color package off globally.
func SetNoColor(nc bool) {
	std.update(func(p *printer) { p.noColor = nc })
	color.NoColor = nc
}

// SetOutput changes the output writer. nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.update(func(p *printer) { p.w = w })
}

func line(prefix, format string, args []any) string {
	return prefix + fmt.Sprintf(format, args...) + "\n"
}

func Info(format string, args ...any) {
	std.print(chatty, infoColor, line("[*] ", format, args))
}

func Success(format string, args ...any) {
	std.print(chatty, successColor, line("[+] ", format, args))
}

func Warning(format string, args ...any) {
	std.print(important, warningColor, line("[!] ", format, args))
}

func Error(format string, args ...any) {
	std.print(important, errorColor, line("[-] ", format, args))
}

// Critical reports a failure that stops the program. It ignores quiet and silent.
func Critical(format string, args ...any) {
	std.print(always, errorColor, line("[!!] ", format, args))
}

// Section prints a "-=[title]=-" header surrounded by blank lines.
func Section(format string, args ...any) {
	std.print(chatty, accentColor, "\n-=["+fmt.Sprintf(format, args...)+"]=-\n\n")
}

// Banner prints the logo and version.
func Banner() {
	std.print(chatty, accentColor, asciiBanner+version.AbbreviatedVersion()+"\n")
}

// Raw prints text unchanged.
func Raw(text string) {
	std.print(chatty, nil, text)
}

// Emphasize returns s in bold unless colors are disabled.
func Emphasize(s string) string {
	std.mu.RLock()
	defer std.mu.RUnlock()
	if std.noColor {
		return s
	}
	return color.New(color.Bold).Sprint(s)
}
