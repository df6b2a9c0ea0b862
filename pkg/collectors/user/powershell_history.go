package user

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/collectors/internal/profiles"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
)

// historyFile is relative to a user's profile directory.
var historyFile = filepath.Join("AppData", "Roaming", "Microsoft", "Windows", "PowerShell", "PSReadLine", "ConsoleHost_history.txt")

type PowerShellHistory struct {
	User       string
	Path       string
	TotalLines int
	Lines      []string
}

func (PowerShellHistory) Shape() types.Shape { return "PowerShellHistory" }

var sensitivePattern = regexp.MustCompile(`(?i)(passw(or)?d|secret|token|apikey|api_key|credential|ConvertTo-SecureString|Get-Credential|net\s+user|runas|-AsPlainText|Invoke-WebRequest|iwr\s|DownloadString|mimikatz|Enter-PSSession|New-PSSession|Invoke-Command)`)

// SensitiveLines returns the lines matching built-in credential and
// lateral-movement patterns or any extra (case-insensitive) keyword.
func SensitiveLines(lines []string, extra []string) []string {
	var out []string
	for _, line := range lines {
		if sensitivePattern.MatchString(line) || containsAny(line, extra) {
			out = append(out, line)
		}
	}
	return out
}

func containsAny(line string, words []string) bool {
	lower := strings.ToLower(line)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func init() {
	registry.Register(types.Collector{
		Name:        "PowerShellHistory",
		Description: "PSReadLine history of every readable profile; only sensitive lines unless --full is given. Arguments add keywords",
		Groups:      []types.Group{types.GroupUser},
		Remote:      types.RemoteNone,
		Invoke:      invokeHistory,
	})
	formatters.Register("PowerShellHistory", formatters.For(formatHistory))
}

func invokeHistory(ctx context.Context, args []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		users, err := profiles.List()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, p := range users {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			path := filepath.Join(p.Home, historyFile)
			lines, err := readLines(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				// Other users' profiles are unreadable without elevation.
				ec.Log().Debug("skipping history file", "path", path, "error", err)
				continue
			}

			h := PowerShellHistory{User: p.User, Path: path, TotalLines: len(lines), Lines: lines}
			if ec.FilterResults || len(args) > 0 {
				h.Lines = SensitiveLines(lines, args)
				if len(h.Lines) == 0 {
					continue
				}
			}
			if !yield(h, nil) {
				return
			}
		}
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func formatHistory(sink types.TextSink, h PowerShellHistory, filter bool) error {
	sink.WriteLinef("  %-30s : %s", "User", h.User)
	sink.WriteLinef("  %-30s : %s", "Path", h.Path)
	if filter {
		sink.WriteLinef("  %-30s : %d of %d", "Matching lines", len(h.Lines), h.TotalLines)
	} else {
		sink.WriteLinef("  %-30s : %d", "Lines", h.TotalLines)
	}
	sink.WriteLine("")
	for _, line := range h.Lines {
		sink.WriteLinef("      %s", line)
	}
	sink.WriteLine("")
	return nil
}
