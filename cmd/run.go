package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/praetorian-inc/vantage/internal/jq"
	"github.com/praetorian-inc/vantage/internal/message"
	outputproviders "github.com/praetorian-inc/vantage/internal/output_providers"
	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/internal/winreg"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/runner"
	"github.com/praetorian-inc/vantage/pkg/selection"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var runCmd = &cobra.Command{
	Use:   "run [collector [args...]]...",
	Short: "Run collectors against the local or a remote host",
	Long: `Run one or more collectors. Each positional argument names a collector and,
after whitespace, the arguments it receives, e.g.

  vantage run OSInfo "Processes chrome lsass"
  vantage run -g system --computer dc01 --username admin
  vantage run all --full -f json -o survey.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(args, viper.GetViper())
		if err != nil {
			return err
		}
		cat, err := registry.Default()
		if err != nil {
			return err
		}
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		message.Banner()
		return runCollectors(ctx, cat, cfg)
	},
}

func init() {
	addRunFlags(runCmd.Flags())
	cobra.CheckErr(viper.BindPFlags(runCmd.Flags()))
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.StringSliceP("group", "g", nil, "run every collector in these groups (system, user, misc, remote)")
	fs.Bool("full", false, "show every result instead of only notable findings")
	fs.BoolP("verbose", "v", false, "include secondary findings")
	fs.StringP("output", "o", "", "write results to this file")
	fs.StringP("format", "f", formatText, "output format: text, json or yaml")
	fs.String("jq", "", "jq expression applied to each structured result")
	fs.String("summary-file", "", "append the run summary as Markdown to this file")
	fs.StringSlice("args", nil, "arguments passed to collectors that were not given their own")

	fs.String("computer", "", "survey this host over WinRM instead of the local machine")
	fs.String("username", "", "WinRM username")
	fs.String("password", "", "WinRM password")
	fs.String("domain", "", "WinRM domain; enables NTLM authentication")
	fs.Bool("https", false, "connect to WinRM over HTTPS")
	fs.Bool("insecure", false, "skip TLS certificate verification")
	fs.Int("port", 0, "WinRM port (default 5985, or 5986 with --https)")
	fs.Duration("timeout", 60*time.Second, "WinRM operation timeout")
}

// runConfig is everything a run needs, resolved once from flags, the
// config file and the environment.
type runConfig struct {
	Criteria    selection.Criteria
	Target      string
	Creds       pwsh.Credentials
	Full        bool
	Verbose     bool
	Output      string
	Format      string
	JQ          string
	SummaryFile string
}

func loadRunConfig(tokens []string, v *viper.Viper) (runConfig, error) {
	cfg := runConfig{
		Target:      strings.TrimSpace(v.GetString("computer")),
		Full:        v.GetBool("full"),
		Verbose:     v.GetBool("verbose"),
		Output:      v.GetString("output"),
		Format:      strings.ToLower(v.GetString("format")),
		JQ:          v.GetString("jq"),
		SummaryFile: v.GetString("summary-file"),
		Creds:       loadCredentials(v),
	}

	for _, token := range tokens {
		if req := selection.ParseRequest(token); req.Name != "" {
			cfg.Criteria.Requests = append(cfg.Criteria.Requests, req)
		}
	}
	for _, name := range v.GetStringSlice("group") {
		g, err := types.ParseGroup(name)
		if err != nil {
			return runConfig{}, err
		}
		cfg.Criteria.Groups = append(cfg.Criteria.Groups, g)
	}
	cfg.Criteria.Args = v.GetStringSlice("args")

	if cfg.Criteria.Empty() {
		return runConfig{}, errors.New("nothing to run: name collectors, pass --group, or use \"all\"")
	}

	switch cfg.Format {
	case "":
		cfg.Format = formatText
	case formatText, formatJSON, formatYAML:
	default:
		return runConfig{}, fmt.Errorf("unknown output format %q (expected text, json or yaml)", cfg.Format)
	}
	if cfg.JQ != "" && cfg.Format == formatText {
		return runConfig{}, errors.New("--jq requires --format json or yaml")
	}
	return cfg, nil
}

func loadCredentials(v *viper.Viper) pwsh.Credentials {
	return pwsh.Credentials{
		Username: v.GetString("username"),
		Password: v.GetString("password"),
		Domain:   v.GetString("domain"),
		HTTPS:    v.GetBool("https"),
		Insecure: v.GetBool("insecure"),
		Port:     v.GetInt("port"),
		Timeout:  v.GetDuration("timeout"),
	}
}

func (cfg runConfig) remote() bool {
	return types.ExecutionContext{ComputerName: cfg.Target}.IsRemote()
}

// newExecutionContext wires the shell and registry reader for the target.
func newExecutionContext(cfg runConfig) (types.ExecutionContext, error) {
	ec := types.ExecutionContext{
		ComputerName:  cfg.Target,
		FilterResults: !cfg.Full,
		Verbose:       cfg.Verbose,
		Logger:        logger,
	}

	if cfg.remote() {
		sh, err := pwsh.NewWinRMShell(cfg.Target, cfg.Creds)
		if err != nil {
			return types.ExecutionContext{}, err
		}
		ec.Shell = sh
		ec.Registry = winreg.ShellReader{Shell: sh}
		return ec, nil
	}

	ec.Elevated = isElevated()
	ec.Shell = &pwsh.LocalShell{}
	ec.Registry = winreg.LocalReader{}
	return ec, nil
}

// interruptContext is cancelled by the first interrupt. Once cancelled it
// stops catching signals, so a second interrupt terminates the process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func runCollectors(ctx context.Context, cat selection.Catalogue, cfg runConfig) error {
	ec, err := newExecutionContext(cfg)
	if err != nil {
		return err
	}

	sel := selection.Select(cat, cfg.Criteria, ec)
	for _, w := range sel.Warnings {
		message.Warning("%s", w)
	}
	if len(sel.Items) == 0 && len(sel.Warnings) == 0 {
		message.Warning("no collectors selected")
	}

	cfg.Output = resolveOutputPath(cfg.Output, cfg.Format)

	runID := uuid.New()
	provider, closeOutput, err := buildProvider(cfg, runID, ec.FilterResults)
	if err != nil {
		return err
	}
	var once sync.Once
	finish := func() {
		once.Do(func() {
			if err := provider.Close(); err != nil {
				message.Error("writing output: %v", err)
			}
			if err := closeOutput(); err != nil {
				message.Error("closing %s: %v", cfg.Output, err)
			}
		})
	}
	defer finish()

	if cfg.remote() {
		message.Info("Surveying %s (run %s)", message.Emphasize(cfg.Target), runID)
	} else {
		message.Info("Surveying local host (run %s)", runID)
	}

	r := runner.New(provider, logger)
	r.ID = runID
	summary := r.RunSelection(ctx, sel, ec)
	finish()

	reportSummary(cfg, summary)
	if ctx.Err() != nil {
		message.Warning("run interrupted; remaining collectors were skipped")
	}
	return nil
}

// resolveOutputPath places a generated file name inside path when path is
// an existing directory or ends with a separator.
func resolveOutputPath(path, format string) string {
	if path == "" {
		return ""
	}
	isDir := strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator))
	if !isDir {
		info, err := os.Stat(path)
		isDir = err == nil && info.IsDir()
	}
	if !isDir {
		return path
	}

	ext := format
	if format == formatText {
		ext = "txt"
	}
	return filepath.Join(path, outputproviders.DefaultFileName("vantage", ext))
}

func reportSummary(cfg runConfig, summary *runner.Summary) {
	table := summary.Table()
	message.Section("Summary")
	message.Raw(table.ToString())

	if failed := summary.Failed(); len(failed) > 0 {
		message.Warning("%d collector(s) failed", len(failed))
	} else {
		message.Success("%d collector(s) completed in %s", len(summary.Reports), summary.Elapsed.Round(time.Millisecond))
	}
	if cfg.Output != "" {
		message.Success("Results written to %s", cfg.Output)
	}

	if cfg.SummaryFile != "" {
		if err := outputproviders.AppendMarkdown(cfg.SummaryFile, table); err != nil {
			message.Error("writing summary: %v", err)
		}
	}
}

// buildProvider assembles the output providers for cfg. Text always goes to
// the console; structured formats go to stdout, or to --output with the
// text rendering kept on the console.
func buildProvider(cfg runConfig, runID uuid.UUID, filter bool) (types.OutputProvider, func() error, error) {
	noop := func() error { return nil }
	console := outputproviders.NewConsoleSink(viper.GetBool("no-color"))

	if cfg.Format == formatText {
		if cfg.Output == "" {
			return outputproviders.NewTextProvider(console, formatters.Default, filter), noop, nil
		}
		file, err := outputproviders.NewFileSink(cfg.Output)
		if err != nil {
			return nil, nil, err
		}
		sink := outputproviders.NewMultiSink(console, file)
		return outputproviders.NewTextProvider(sink, formatters.Default, filter), sink.Close, nil
	}

	var query *jq.Query
	if cfg.JQ != "" {
		q, err := jq.Compile(cfg.JQ)
		if err != nil {
			return nil, nil, err
		}
		query = q
	}

	var (
		w       io.Writer = os.Stdout
		closeFn           = noop
	)
	if cfg.Output != "" {
		if err := outputproviders.EnsureDir(cfg.Output); err != nil {
			return nil, nil, err
		}
		f, err := os.Create(cfg.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s: %w", cfg.Output, err)
		}
		w, closeFn = f, f.Close
	}

	var structured types.OutputProvider
	if cfg.Format == formatYAML {
		structured = outputproviders.NewYAMLProvider(w, runID, cfg.Target, query)
	} else {
		structured = outputproviders.NewJSONProvider(w, runID, cfg.Target, query)
	}

	if cfg.Output == "" {
		return structured, closeFn, nil
	}
	text := outputproviders.NewTextProvider(console, formatters.Default, filter)
	return outputproviders.MultiProvider{text, structured}, closeFn, nil
}
