package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/praetorian-inc/vantage/internal/message"
	outputproviders "github.com/praetorian-inc/vantage/internal/output_providers"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/runner"
	"github.com/praetorian-inc/vantage/pkg/selection"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/praetorian-inc/vantage/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Launch Vantage's MCP server",
	Long: `Launch Vantage's MCP server on stdio. Every collector is exposed as a tool.
WinRM credentials for remote targets come from the config file or environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := registry.Default()
		if err != nil {
			return err
		}
		// Only the structured log reaches stderr while serving.
		message.SetSilent(true)
		return server.ServeStdio(newMCPServer(cat))
	},
}

func newMCPServer(cat *registry.Catalogue) *server.MCPServer {
	s := server.NewMCPServer(
		"Vantage Server",
		version.FullVersion(),
		server.WithLogging(),
	)

	for _, c := range cat.All() {
		s.AddTool(collectorToTool(c), collectorHandler(cat))
	}
	return s
}

func collectorToTool(c types.Collector) mcp.Tool {
	groups := make([]string, len(c.Groups))
	for i, g := range c.Groups {
		groups[i] = string(g)
	}
	description := fmt.Sprintf("%s\n\nGroups: %s\nRemote: %s\nRequires admin: %t",
		c.Description,
		strings.Join(groups, ", "),
		c.Remote,
		c.RequiresAdmin,
	)

	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			Title:        c.Name,
			ReadOnlyHint: mcp.ToBoolPtr(true),
		}),
		mcp.WithString("args", mcp.Description("space separated arguments for the collector")),
		mcp.WithBoolean("full", mcp.Description("return every result instead of only notable findings")),
	}
	if c.Remote.Supports() {
		opts = append(opts, mcp.WithString("computer", mcp.Description("remote host to survey over WinRM")))
	}
	return mcp.NewTool(c.Name, opts...)
}

func collectorHandler(cat *registry.Catalogue) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg := runConfig{
			Target: stringArg(request, "computer"),
			Full:   boolArg(request, "full"),
			Format: formatJSON,
			Creds:  loadCredentials(viper.GetViper()),
			Criteria: selection.Criteria{Requests: []selection.Request{{
				Name: request.Params.Name,
				Args: strings.Fields(stringArg(request, "args")),
			}}},
		}

		ec, err := newExecutionContext(cfg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		sel := selection.Select(cat, cfg.Criteria, ec)
		if len(sel.Items) == 0 {
			reasons := make([]string, len(sel.Warnings))
			for i, w := range sel.Warnings {
				reasons[i] = w.String()
			}
			return mcp.NewToolResultError("collector not run: " + strings.Join(reasons, "; ")), nil
		}

		w := &bytes.Buffer{}
		runID := uuid.New()
		provider := outputproviders.NewJSONProvider(w, runID, cfg.Target, nil)
		r := runner.New(provider, slog.Default())
		r.ID = runID
		summary := r.RunSelection(ctx, sel, ec)

		if err := provider.Close(); err != nil {
			slog.Error("Collector output failed", "collector", request.Params.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if failed := summary.Failed(); len(failed) > 0 {
			slog.Error("Collector run failed", "collector", request.Params.Name, "error", failed[0].Err)
			return mcp.NewToolResultError(fmt.Sprintf("%v\n\n%s", failed[0].Err, w.String())), nil
		}

		slog.Info("Collector ran", "collector", request.Params.Name, "bytes", w.Len())
		return mcp.NewToolResultText(w.String()), nil
	}
}

func stringArg(request mcp.CallToolRequest, name string) string {
	if s, ok := request.GetArguments()[name].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func boolArg(request mcp.CallToolRequest, name string) bool {
	b, _ := request.GetArguments()[name].(bool)
	return b
}
