package formatters

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSink struct {
	strings.Builder
}

func (s *lineSink) Write(text string) { s.WriteString(text) }
func (s *lineSink) WriteLine(text string) { s.WriteString(text + "\n") }
func (s *lineSink) WriteLinef(format string, args ...any) {
	s.WriteLine(fmt.Sprintf(format, args...))
}
func (s *lineSink) Err() error { return nil }

type nameValue struct {
	Name  string
	Value int
}

func (nameValue) Shape() types.Shape { return "NameValue" }

type withLists struct {
	Tags    []string
	Empty   []string
	Ports   []int
	Created time.Time
	Skipped string `vantage:"-"`
	Renamed bool   `vantage:"Enabled"`
	hidden  string
}

func (withLists) Shape() types.Shape { return "WithLists" }

type nested struct {
	Owner  string
	Policy struct {
		Mode  string
		Level int
	}
}

func (*nested) Shape() types.Shape { return "Nested" }

type custom struct{ N int }

func (custom) Shape() types.Shape { return "Custom" }

func render(t *testing.T, f Formatter, r types.Result) string {
	t.Helper()
	var sink lineSink
	require.NoError(t, f.Format(&sink, r, true))
	return sink.String()
}

func TestDefaultFormatterNameValue(t *testing.T) {
	out := render(t, DefaultFormatter{}, nameValue{Name: "foo", Value: 42})

	assert.Equal(t,
		"  Name                           : foo\n"+
			"  Value                          : 42\n"+
			"\n",
		out)
}

func TestDefaultFormatterListsAndTags(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := render(t, DefaultFormatter{}, withLists{
		Tags:    []string{"a", "b", "c"},
		Ports:   []int{80, 443},
		Created: created,
		Skipped: "never shown",
		Renamed: true,
		hidden:  "never shown",
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, fmt.Sprintf("  %-30s : a, b, c", "Tags"), lines[0])
	assert.Equal(t, fmt.Sprintf("  %-30s : ", "Empty"), lines[1])
	assert.Equal(t, fmt.Sprintf("  %-30s : 80, 443", "Ports"), lines[2])
	assert.Equal(t, fmt.Sprintf("  %-30s : 2024-03-01T12:00:00Z", "Created"), lines[3])
	assert.Equal(t, fmt.Sprintf("  %-30s : true", "Enabled"), lines[4])
	assert.NotContains(t, out, "never shown")
}

func TestDefaultFormatterNestedRecord(t *testing.T) {
	n := &nested{Owner: "SYSTEM"}
	n.Policy.Mode = "enforce"
	n.Policy.Level = 2

	out := render(t, DefaultFormatter{}, n)
	assert.Equal(t,
		fmt.Sprintf("  %-30s : SYSTEM\n", "Owner")+
			fmt.Sprintf("  %-30s :\n", "Policy")+
			fmt.Sprintf("    %-28s : enforce\n", "Mode")+
			fmt.Sprintf("    %-28s : 2\n", "Level")+
			"\n",
		out)
}

func TestDefaultFormatterSkipsNil(t *testing.T) {
	var n *nested
	assert.Empty(t, render(t, DefaultFormatter{}, n))
	assert.Empty(t, render(t, DefaultFormatter{}, nil))
}

func TestResolveFallsBackToDefault(t *testing.T) {
	reg := NewRegistry()

	for _, r := range []types.Result{nameValue{}, withLists{}, &nested{}, custom{}, nil} {
		f := reg.Resolve(r)
		require.NotNil(t, f)
		assert.IsType(t, DefaultFormatter{}, f)
	}
}

func TestResolveByExactShape(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("Custom", For(func(sink types.TextSink, c custom, filter bool) error {
		sink.WriteLinef("custom %d filter=%t", c.N, filter)
		return nil
	}))

	assert.Equal(t, "custom 7 filter=true\n", render(t, reg.Resolve(custom{N: 7}), custom{N: 7}))
	assert.IsType(t, DefaultFormatter{}, reg.Resolve(nameValue{}))
}

func TestRegisterRejectsDuplicatesAndEmpty(t *testing.T) {
	reg := NewRegistry()
	f := Func(func(types.TextSink, types.Result, bool) error { return nil })

	require.NoError(t, reg.Register("Custom", f))
	assert.ErrorIs(t, reg.Register("Custom", f), ErrDuplicateFormatter)
	assert.Error(t, reg.Register("", f))
	assert.Error(t, reg.Register("Other", nil))
	assert.Panics(t, func() { reg.MustRegister("Custom", f) })
}

func TestForReportsWrongType(t *testing.T) {
	f := For(func(types.TextSink, custom, bool) error { return errors.New("unreachable") })

	var sink lineSink
	err := f.Format(&sink, nameValue{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NameValue")
}
