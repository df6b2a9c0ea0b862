package types

import (
	"context"
	"log/slog"
	"strings"
)

// Shell runs a PowerShell script and returns its standard output.
type Shell interface {
	Run(ctx context.Context, script string) (string, error)
}

// RegistryReader returns the values stored directly under a registry key.
// Missing keys yield an empty map and no error.
type RegistryReader interface {
	Values(ctx context.Context, hive, path string) (map[string]any, error)
}

// ExecutionContext carries the run-wide parameters handed to every collector
// and formatter. It is built once per run and never modified afterwards.
type ExecutionContext struct {
	// ComputerName is the survey target; empty or "localhost" means local.
	ComputerName string
	// FilterResults limits output to notable findings.
	FilterResults bool
	// Verbose includes secondary findings.
	Verbose  bool
	Elevated bool

	Shell    Shell
	Registry RegistryReader
	Logger   *slog.Logger
}

func (ec ExecutionContext) IsRemote() bool {
	switch strings.ToLower(strings.TrimSpace(ec.ComputerName)) {
	case "", "localhost", "127.0.0.1", "::1", ".":
		return false
	}
	return true
}

// Log returns the context logger, falling back to the default logger.
func (ec ExecutionContext) Log() *slog.Logger {
	if ec.Logger != nil {
		return ec.Logger
	}
	return slog.Default()
}
