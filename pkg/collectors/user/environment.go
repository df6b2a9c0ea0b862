// Package user holds collectors describing the interactive user's session.
package user

import (
	"context"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
)

type EnvironmentVariable struct {
	Name  string
	Value string
	Note  string `json:",omitempty"`
}

func (EnvironmentVariable) Shape() types.Shape { return "EnvironmentVariable" }

var notableVariables = map[string]string{
	"COR_ENABLE_PROFILING":           ".NET profiler injection",
	"COR_PROFILER":                   ".NET profiler injection",
	"COR_PROFILER_PATH":              ".NET profiler injection",
	"CORECLR_ENABLE_PROFILING":       ".NET Core profiler injection",
	"CORECLR_PROFILER":               ".NET Core profiler injection",
	"CORECLR_PROFILER_PATH":          ".NET Core profiler injection",
	"PSMODULEPATH":                   "PowerShell module search path",
	"HTTP_PROXY":                     "Proxy setting",
	"HTTPS_PROXY":                    "Proxy setting",
	"ALL_PROXY":                      "Proxy setting",
	"_NT_SYMBOL_PATH":                "Debugger symbol path",
	"AWS_ACCESS_KEY_ID":              "Cloud credential",
	"AWS_SECRET_ACCESS_KEY":          "Cloud credential",
	"AWS_SESSION_TOKEN":              "Cloud credential",
	"AZURE_CLIENT_SECRET":            "Cloud credential",
	"GOOGLE_APPLICATION_CREDENTIALS": "Cloud credential file",
}

var secretWords = []string{"PASSWORD", "PASSWD", "SECRET", "TOKEN", "APIKEY", "API_KEY"}

// VariableNote explains why a variable is worth a closer look, or "".
func VariableNote(name string) string {
	upper := strings.ToUpper(name)
	if note, ok := notableVariables[upper]; ok {
		return note
	}
	for _, w := range secretWords {
		if strings.Contains(upper, w) {
			return "Possible secret"
		}
	}
	return ""
}

var localEnviron = os.Environ

func init() {
	registry.Register(types.Collector{
		Name:        "EnvironmentVariables",
		Description: "Environment variables, flagging profiler hooks and likely secrets. Remotely, the WinRM session's environment is reported",
		Groups:      []types.Group{types.GroupUser},
		Remote:      types.RemoteDegraded,
		Invoke:      invokeEnvironment,
	})
	formatters.Register("EnvironmentVariable", formatters.For(formatVariable))
}

func invokeEnvironment(ctx context.Context, args []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return types.Results(func() ([]EnvironmentVariable, error) {
		var (
			vars []EnvironmentVariable
			err  error
		)
		if ec.IsRemote() {
			vars, err = pwsh.Query[EnvironmentVariable](ctx, ec.Shell, "Get-ChildItem env: | Select-Object Name,Value")
			if err != nil {
				return nil, err
			}
		} else {
			for _, kv := range localEnviron() {
				name, value, ok := strings.Cut(kv, "=")
				// Windows keeps per-drive working directories as "=C:=C:\..." entries.
				if !ok || name == "" {
					continue
				}
				vars = append(vars, EnvironmentVariable{Name: name, Value: value})
			}
		}

		out := vars[:0]
		for _, v := range vars {
			if len(args) > 0 && !slices.ContainsFunc(args, func(a string) bool {
				return strings.Contains(strings.ToUpper(v.Name), strings.ToUpper(a))
			}) {
				continue
			}
			v.Note = VariableNote(v.Name)
			out = append(out, v)
		}
		slices.SortFunc(out, func(a, b EnvironmentVariable) int {
			return strings.Compare(strings.ToUpper(a.Name), strings.ToUpper(b.Name))
		})
		return out, nil
	})
}

func formatVariable(sink types.TextSink, v EnvironmentVariable, _ bool) error {
	sink.WriteLinef("  %-30s : %s", v.Name, v.Value)
	if v.Note != "" {
		sink.WriteLinef("    [!] %s", v.Note)
	}
	return nil
}
