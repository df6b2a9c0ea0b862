package outputproviders

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/praetorian-inc/vantage/internal/jq"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type service struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func (service) Shape() types.Shape { return "Service" }

type broken struct{}

func (broken) Shape() types.Shape { return "Broken" }

var runID = uuid.MustParse("0b7b1c4e-3f9a-4a55-9d7b-6a9f6a1f2e10")

func collector(name string) types.Collector {
	return types.Collector{Name: name, Description: name, Groups: []types.Group{types.GroupSystem}}
}

func testRegistry(t *testing.T) *formatters.Registry {
	t.Helper()
	reg := formatters.NewRegistry()
	reg.MustRegister("Broken", formatters.Func(func(types.TextSink, types.Result, bool) error {
		return errors.New("bad template")
	}))
	return reg
}

func TestTextProviderSections(t *testing.T) {
	var sink BufferSink
	p := NewTextProvider(&sink, testRegistry(t), true)

	c := collector("Services")
	p.Begin(c)
	require.NoError(t, p.Emit(c, service{Name: "Spooler", State: "Running"}))
	assert.Error(t, p.Emit(c, broken{}))
	p.End(c, errors.New("access denied"))
	require.NoError(t, p.Close())

	out := sink.String()
	assert.Contains(t, out, "\n====== Services ======\n\n")
	assert.Contains(t, out, "  Name                           : Spooler\n")
	assert.Contains(t, out, "  [X] failed to format result: bad template\n")
	assert.Contains(t, out, "  [X] Services failed: access denied\n")
}

func TestTextProviderRecoversFormatterPanic(t *testing.T) {
	reg := formatters.NewRegistry()
	reg.MustRegister("Service", formatters.Func(func(types.TextSink, types.Result, bool) error {
		panic("nil map")
	}))
	var sink BufferSink
	p := NewTextProvider(&sink, reg, false)

	err := p.Emit(collector("Services"), service{})
	require.Error(t, err)
	assert.Contains(t, sink.String(), "[X] failed to format result: formatter panic: nil map")
}

func TestJSONProviderDocument(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONProvider(&buf, runID, "srv01", nil)

	a, b := collector("Services"), collector("UAC")
	p.Begin(a)
	require.NoError(t, p.Emit(a, service{Name: "Spooler", State: "Running"}))
	p.End(a, nil)
	p.Begin(b)
	p.End(b, errors.New("access denied"))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, runID.String(), doc["run_id"])
	assert.Equal(t, "srv01", doc["target"])

	collectors := doc["collectors"].([]any)
	require.Len(t, collectors, 2)
	first := collectors[0].(map[string]any)
	assert.Equal(t, "Services", first["name"])
	assert.NotContains(t, first, "error")
	results := first["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]any{
		"shape": "Service",
		"data":  map[string]any{"name": "Spooler", "state": "Running"},
	}, results[0])

	second := collectors[1].(map[string]any)
	assert.Equal(t, "access denied", second["error"])
	assert.Empty(t, second["results"])
}

func TestJSONProviderAppliesFilter(t *testing.T) {
	q, err := jq.Compile(`select(.state == "Running") | .name`)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewJSONProvider(&buf, runID, "", q)
	c := collector("Services")
	p.Begin(c)
	require.NoError(t, p.Emit(c, service{Name: "Spooler", State: "Running"}))
	require.NoError(t, p.Emit(c, service{Name: "Fax", State: "Stopped"}))
	p.End(c, nil)
	require.NoError(t, p.Close())

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Collectors, 1)
	require.Len(t, doc.Collectors[0].Results, 1)
	assert.Equal(t, "Spooler", doc.Collectors[0].Results[0].Data)
}

func TestYAMLProviderDocument(t *testing.T) {
	var buf bytes.Buffer
	p := NewYAMLProvider(&buf, runID, "", nil)
	c := collector("Services")
	p.Begin(c)
	require.NoError(t, p.Emit(c, service{Name: "Spooler", State: "Running"}))
	p.End(c, nil)
	require.NoError(t, p.Close())

	var doc struct {
		RunID      string `yaml:"run_id"`
		Collectors []struct {
			Name    string `yaml:"name"`
			Results []struct {
				Shape string            `yaml:"shape"`
				Data  map[string]string `yaml:"data"`
			} `yaml:"results"`
		} `yaml:"collectors"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, runID.String(), doc.RunID)
	require.Len(t, doc.Collectors, 1)
	require.Len(t, doc.Collectors[0].Results, 1)
	assert.Equal(t, "Spooler", doc.Collectors[0].Results[0].Data["name"])
}

func TestMultiProviderFansOut(t *testing.T) {
	var text BufferSink
	var buf bytes.Buffer
	m := MultiProvider{NewTextProvider(&text, testRegistry(t), false), NewJSONProvider(&buf, runID, "", nil)}

	c := collector("Services")
	m.Begin(c)
	require.NoError(t, m.Emit(c, service{Name: "Spooler"}))
	assert.Error(t, m.Emit(c, broken{}))
	m.End(c, nil)
	require.NoError(t, m.Close())

	assert.Contains(t, text.String(), "Spooler")
	assert.Contains(t, buf.String(), `"Spooler"`)
}

func TestFileSinkCreatesDirectoriesAndFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "survey.txt")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	sink.WriteLine("====== OSInfo ======")
	sink.WriteLinef("  %-30s : %s", "Hostname", "WS01")
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "====== OSInfo ======\n  Hostname                       : WS01\n", string(data))
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestWriterSinkLatchesFirstError(t *testing.T) {
	w := &failingWriter{}
	sink := NewWriterSink(w)
	sink.WriteLine("one")
	sink.WriteLine("two")

	assert.EqualError(t, sink.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
}

func TestMultiSink(t *testing.T) {
	var a, b BufferSink
	m := NewMultiSink(&a, &b)
	m.Write("x")
	m.WriteLinef("%d", 1)

	assert.Equal(t, "x1\n", a.String())
	assert.Equal(t, a.String(), b.String())
	assert.NoError(t, m.Err())
	assert.NoError(t, m.Close())

	failing := NewMultiSink(&a, NewWriterSink(&failingWriter{}))
	failing.WriteLine("y")
	assert.EqualError(t, failing.Err(), "disk full")
}

func TestConsoleSinkHighlighting(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	sink := NewConsoleSinkWriter(&buf, true)
	sink.WriteLine("====== UAC ======")
	sink.WriteLinef("  [!] %s", "LocalAccountTokenFilterPolicy is enabled")
	sink.WriteLine("  plain")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "\x1b[")
	assert.Contains(t, lines[1], "\x1b[")
	assert.Equal(t, "  plain", lines[2])

	buf.Reset()
	plain := NewConsoleSinkWriter(&buf, false)
	plain.WriteLine("  [!] warning")
	assert.Equal(t, "  [!] warning\n", buf.String())
}

func TestAppendMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "summary.md")
	table := types.MarkdownTable{TableHeading: "Run 1", Headers: []string{"Collector", "Status"}, Rows: [][]string{{"OSInfo", "ok"}}}

	require.NoError(t, AppendMarkdown(path, table))
	require.NoError(t, AppendMarkdown(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "# Run 1"))
	assert.Contains(t, string(data), "| OSInfo    | ok     |")
}
