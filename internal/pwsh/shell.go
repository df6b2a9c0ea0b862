// Package pwsh runs PowerShell scripts on the survey target, either as a
// local powershell.exe process or over WinRM.
package pwsh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/masterzen/winrm"
	"github.com/praetorian-inc/vantage/pkg/types"
)

var ErrNoShell = errors.New("no PowerShell session available")

// ExitError reports a script that ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("PowerShell exited with code %d", e.Code)
	}
	return fmt.Sprintf("PowerShell exited with code %d: %s", e.Code, msg)
}

// LocalShell runs scripts through a local powershell.exe.
type LocalShell struct {
	// Path defaults to powershell.exe resolved through PATH.
	Path string
}

func (s *LocalShell) Run(ctx context.Context, script string) (string, error) {
	path := s.Path
	if path == "" {
		path = "powershell.exe"
	}

	cmd := exec.CommandContext(ctx, path, EncodedArgs(script)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrNoShell, err)
		}
		return "", fmt.Errorf("running powershell: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// EncodedArgs returns powershell.exe arguments that run script as a
// UTF-16LE base64 -EncodedCommand, which sidesteps all command-line quoting.
func EncodedArgs(script string) []string {
	fields := strings.Fields(winrm.Powershell(script))
	args := []string{"-NoProfile", "-NonInteractive"}
	if len(fields) > 1 {
		args = append(args, fields[1:]...)
	}
	return args
}

// Quote renders s as a single-quoted PowerShell string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ types.Shell = (*LocalShell)(nil)
