package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/praetorian-inc/vantage/internal/message"
	"github.com/praetorian-inc/vantage/internal/pwsh"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/selection"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper(settings map[string]any) *viper.Viper {
	v := viper.New()
	v.SetDefault("format", formatText)
	for k, val := range settings {
		v.Set(k, val)
	}
	return v
}

func TestLoadRunConfigParsesTokens(t *testing.T) {
	cfg, err := loadRunConfig([]string{"OSInfo", " Processes chrome lsass ", "  "}, testViper(map[string]any{
		"group": []string{"User"},
		"args":  []string{"shared"},
		"full":  true,
	}))
	require.NoError(t, err)

	assert.Equal(t, []selection.Request{
		{Name: "OSInfo", Args: []string{}},
		{Name: "Processes", Args: []string{"chrome", "lsass"}},
	}, cfg.Criteria.Requests)
	assert.Equal(t, []types.Group{types.GroupUser}, cfg.Criteria.Groups)
	assert.Equal(t, []string{"shared"}, cfg.Criteria.Args)
	assert.True(t, cfg.Full)
	assert.Equal(t, formatText, cfg.Format)
	assert.False(t, cfg.remote())
}

func TestLoadRunConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		settings map[string]any
		want     string
	}{
		{"nothing selected", nil, nil, "nothing to run"},
		{"unknown group", []string{"OSInfo"}, map[string]any{"group": []string{"kernel"}}, "unknown group"},
		{"unknown format", []string{"OSInfo"}, map[string]any{"format": "xml"}, "unknown output format"},
		{"jq with text", []string{"OSInfo"}, map[string]any{"jq": ".data"}, "--jq requires"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadRunConfig(tt.tokens, testViper(tt.settings))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRunConfigCredentials(t *testing.T) {
	cfg, err := loadRunConfig([]string{"all"}, testViper(map[string]any{
		"computer": " dc01 ",
		"username": "admin",
		"domain":   "CORP",
		"https":    true,
		"format":   "JSON",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.remote())
	assert.Equal(t, "dc01", cfg.Target)
	assert.Equal(t, "admin", cfg.Creds.Username)
	assert.Equal(t, "CORP", cfg.Creds.Domain)
	assert.True(t, cfg.Creds.HTTPS)
	assert.Equal(t, formatJSON, cfg.Format)
}

func TestNewExecutionContextRemoteNeedsUsername(t *testing.T) {
	_, err := newExecutionContext(runConfig{Target: "dc01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")

	ec, err := newExecutionContext(runConfig{Target: "dc01", Creds: pwsh.Credentials{Username: "admin"}})
	require.NoError(t, err)
	assert.True(t, ec.IsRemote())
	assert.True(t, ec.FilterResults)
	assert.NotNil(t, ec.Shell)
	assert.NotNil(t, ec.Registry)
}

func TestBuildProviderWritesStructuredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "survey.json")
	cfg := runConfig{Format: formatJSON, Output: path, JQ: ".data"}

	provider, closeOutput, err := buildProvider(cfg, [16]byte{1}, true)
	require.NoError(t, err)
	require.NoError(t, provider.Close())
	require.NoError(t, closeOutput())
	assert.FileExists(t, path)

	_, _, err = buildProvider(runConfig{Format: formatJSON, JQ: ".["}, [16]byte{1}, true)
	assert.Error(t, err)
}

func emptySeq(context.Context, []string, types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(func(types.Result, error) bool) {}
}

func testCatalogue(t *testing.T) *registry.Catalogue {
	t.Helper()
	cat := registry.NewCatalogue()
	require.NoError(t, cat.Add(types.Collector{
		Name: "OSInfo", Description: "operating system details",
		Groups: []types.Group{types.GroupSystem, types.GroupRemote}, Remote: types.RemoteFull, Invoke: emptySeq,
	}))
	require.NoError(t, cat.Add(types.Collector{
		Name: "NamedPipes", Description: "named pipes",
		Groups: []types.Group{types.GroupSystem}, Remote: types.RemoteNone, Invoke: emptySeq,
	}))
	return cat
}

func TestDisplayCollectorTree(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	displayCollectorTree(&buf, testCatalogue(t))

	out := buf.String()
	assert.Contains(t, out, "system\n├─ NamedPipes - named pipes (local only)\n└─ OSInfo - operating system details (remote)\n")
	assert.Contains(t, out, "remote\n└─ OSInfo")
	assert.NotContains(t, out, "user")
}

func TestCollectorToTool(t *testing.T) {
	cat := testCatalogue(t)

	osinfo, _ := cat.FindByName("OSInfo")
	tool := collectorToTool(osinfo)
	assert.Equal(t, "OSInfo", tool.Name)
	assert.Contains(t, tool.Description, "Groups: system, remote")
	assert.Contains(t, tool.InputSchema.Properties, "computer")
	assert.Contains(t, tool.InputSchema.Properties, "args")
	require.NotNil(t, tool.Annotations.ReadOnlyHint)
	assert.True(t, *tool.Annotations.ReadOnlyHint)

	pipes, _ := cat.FindByName("NamedPipes")
	assert.NotContains(t, collectorToTool(pipes).InputSchema.Properties, "computer")
}

func TestCollectorHandlerRunsCollector(t *testing.T) {
	handler := collectorHandler(testCatalogue(t))

	var req mcp.CallToolRequest
	req.Params.Name = "NamedPipes"
	req.Params.Arguments = map[string]any{"args": "spool", "full": true}
	assert.Equal(t, "spool", stringArg(req, "args"))
	assert.True(t, boolArg(req, "full"))
	assert.Empty(t, stringArg(req, "computer"))

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"name": "NamedPipes"`)

	req.Params.Name = "Missing"
	res, err = handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

type note struct{ Text string }

func (note) Shape() types.Shape { return "Note" }

func quietMessages(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	message.SetOutput(&buf)
	message.SetNoColor(true)
	t.Cleanup(func() { message.SetOutput(nil) })
	return &buf
}

func TestRunCollectorsFlushesOutputWhenCancelled(t *testing.T) {
	quietMessages(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	betaRan := false
	cat := registry.NewCatalogue()
	require.NoError(t, cat.Add(types.Collector{
		Name: "Alpha", Description: "cancels the run", Groups: []types.Group{types.GroupMisc},
		Invoke: func(context.Context, []string, types.ExecutionContext) iter.Seq2[types.Result, error] {
			return func(yield func(types.Result, error) bool) {
				if yield(note{Text: "before cancel"}, nil) {
					cancel()
				}
			}
		},
	}))
	require.NoError(t, cat.Add(types.Collector{
		Name: "Beta", Description: "never reached", Groups: []types.Group{types.GroupMisc},
		Invoke: func(context.Context, []string, types.ExecutionContext) iter.Seq2[types.Result, error] {
			betaRan = true
			return emptySeq(context.Background(), nil, types.ExecutionContext{})
		},
	}))

	path := filepath.Join(t.TempDir(), "survey.json")
	err := runCollectors(ctx, cat, runConfig{
		Format:   formatJSON,
		Output:   path,
		Criteria: selection.Criteria{All: true},
	})
	require.NoError(t, err)
	assert.False(t, betaRan)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		RunID      string `json:"run_id"`
		Collectors []struct {
			Name    string `json:"name"`
			Results []struct {
				Shape string         `json:"shape"`
				Data  map[string]any `json:"data"`
			} `json:"results"`
		} `json:"collectors"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.NotEmpty(t, doc.RunID)
	require.Len(t, doc.Collectors, 1)
	assert.Equal(t, "Alpha", doc.Collectors[0].Name)
	require.Len(t, doc.Collectors[0].Results, 1)
	assert.Equal(t, "Note", doc.Collectors[0].Results[0].Shape)
	assert.Equal(t, "before cancel", doc.Collectors[0].Results[0].Data["Text"])
}

func TestRunCollectorsWarnsOnceForUnknownName(t *testing.T) {
	buf := quietMessages(t)

	err := runCollectors(context.Background(), testCatalogue(t), runConfig{
		Format:   formatText,
		Criteria: selection.Criteria{Requests: []selection.Request{{Name: "Nope"}}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "[!] "), out)
	assert.Contains(t, out, "[!] Nope: no collector with this name")
}

func TestResolveOutputPath(t *testing.T) {
	dir := t.TempDir()

	got := resolveOutputPath(dir, formatYAML)
	assert.Equal(t, dir, filepath.Dir(got))
	assert.True(t, strings.HasPrefix(filepath.Base(got), "vantage-"))
	assert.Equal(t, ".yaml", filepath.Ext(got))

	got = resolveOutputPath(filepath.Join(dir, "reports")+string(filepath.Separator), formatText)
	assert.Equal(t, ".txt", filepath.Ext(got))
	assert.Equal(t, "reports", filepath.Base(filepath.Dir(got)))

	file := filepath.Join(dir, "survey.json")
	assert.Equal(t, file, resolveOutputPath(file, formatJSON))
	assert.Empty(t, resolveOutputPath("", formatJSON))
}
