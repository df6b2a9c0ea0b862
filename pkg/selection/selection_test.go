package selection

import (
	"context"
	"iter"
	"testing"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptySeq(context.Context, []string, types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(func(types.Result, error) bool) {}
}

func newCatalogue(t *testing.T, cs ...types.Collector) *registry.Catalogue {
	t.Helper()
	cat := registry.NewCatalogue()
	for _, c := range cs {
		require.NoError(t, cat.Add(c))
	}
	return cat
}

func desc(name string, remote types.RemoteSupport, groups ...types.Group) types.Collector {
	return types.Collector{Name: name, Description: "test", Groups: groups, Remote: remote, Invoke: emptySeq}
}

func abc(t *testing.T) *registry.Catalogue {
	return newCatalogue(t,
		desc("A", types.RemoteFull, types.GroupSystem),
		desc("B", types.RemoteNone, types.GroupSystem),
		desc("C", types.RemoteFull, types.GroupUser),
	)
}

func TestSelectGroupAgainstRemoteHost(t *testing.T) {
	sel := Select(abc(t), Criteria{Groups: []types.Group{types.GroupSystem}}, types.ExecutionContext{ComputerName: "HOST2"})

	assert.Equal(t, []string{"A"}, sel.Names())
	require.Len(t, sel.Warnings, 1)
	assert.Equal(t, RemoteExcluded, sel.Warnings[0].Kind)
	assert.Equal(t, "B", sel.Warnings[0].Name)
}

func TestSelectUnknownNameIsAWarning(t *testing.T) {
	sel := Select(abc(t), Criteria{Requests: []Request{{Name: "DoesNotExist"}}}, types.ExecutionContext{})

	assert.Empty(t, sel.Items)
	require.Len(t, sel.Warnings, 1)
	assert.Equal(t, UnknownCollector, sel.Warnings[0].Kind)
	assert.Equal(t, "DoesNotExist", sel.Warnings[0].Name)
}

func TestSelectIsDeterministic(t *testing.T) {
	cat := abc(t)
	criteria := Criteria{
		Requests: []Request{{Name: "c"}, {Name: "A"}},
		Groups:   []types.Group{types.GroupSystem},
	}

	first := Select(cat, criteria, types.ExecutionContext{})
	second := Select(cat, criteria, types.ExecutionContext{})

	assert.Equal(t, []string{"A", "B", "C"}, first.Names())
	assert.Equal(t, first.Names(), second.Names())
	assert.Equal(t, first.Warnings, second.Warnings)
	for i := range first.Items {
		assert.Equal(t, first.Items[i].Args, second.Items[i].Args)
	}
}

func TestSelectRemoteFilteringHoldsForEveryPath(t *testing.T) {
	cat := abc(t)
	ec := types.ExecutionContext{ComputerName: "dc01.corp.local"}

	for name, criteria := range map[string]Criteria{
		"explicit":  {Requests: []Request{{Name: "B"}}},
		"group":     {Groups: []types.Group{types.GroupSystem}},
		"all":       {All: true},
		"all token": {Requests: []Request{{Name: "ALL"}}},
	} {
		t.Run(name, func(t *testing.T) {
			sel := Select(cat, criteria, ec)
			assert.NotContains(t, sel.Names(), "B")

			var excluded []string
			for _, w := range sel.Warnings {
				if w.Kind == RemoteExcluded {
					excluded = append(excluded, w.Name)
				}
			}
			assert.Equal(t, []string{"B"}, excluded)
		})
	}
}

func TestSelectLocalKeepsEverything(t *testing.T) {
	sel := Select(abc(t), Criteria{All: true}, types.ExecutionContext{ComputerName: "localhost"})
	assert.Equal(t, []string{"A", "B", "C"}, sel.Names())
	assert.Empty(t, sel.Warnings)
}

func TestSelectArguments(t *testing.T) {
	cat := abc(t)
	criteria := Criteria{
		Requests: []Request{ParseRequest("A  one two"), ParseRequest("C")},
		Args:     []string{"shared"},
	}

	sel := Select(cat, criteria, types.ExecutionContext{})
	require.Len(t, sel.Items, 2)
	assert.Equal(t, []string{"one", "two"}, sel.Items[0].Args)
	assert.Equal(t, []string{"shared"}, sel.Items[1].Args)
}

func TestSelectDegradedAndElevationWarnings(t *testing.T) {
	admin := desc("Admin", types.RemoteFull, types.GroupMisc)
	admin.RequiresAdmin = true
	cat := newCatalogue(t, admin, desc("Env", types.RemoteDegraded, types.GroupUser))

	local := Select(cat, Criteria{All: true}, types.ExecutionContext{})
	require.Len(t, local.Warnings, 1)
	assert.Equal(t, RequiresElevation, local.Warnings[0].Kind)

	remote := Select(cat, Criteria{All: true}, types.ExecutionContext{ComputerName: "srv"})
	assert.Equal(t, []string{"Admin", "Env"}, remote.Names())
	require.Len(t, remote.Warnings, 1)
	assert.Equal(t, RemoteDegraded, remote.Warnings[0].Kind)
}

func TestSelectEmptyCriteria(t *testing.T) {
	assert.True(t, Criteria{}.Empty())
	sel := Select(abc(t), Criteria{}, types.ExecutionContext{})
	assert.Empty(t, sel.Items)
	assert.Empty(t, sel.Warnings)
}

func TestParseRequest(t *testing.T) {
	assert.Equal(t, Request{}, ParseRequest("   "))
	assert.Equal(t, Request{Name: "OSInfo", Args: []string{}}, ParseRequest("OSInfo"))
	assert.Equal(t, Request{Name: "Processes", Args: []string{"chrome", "lsass"}}, ParseRequest(" Processes chrome\tlsass "))
}
