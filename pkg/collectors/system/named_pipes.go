package system

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/types"
)

type NamedPipe struct {
	Name string
}

func (NamedPipe) Shape() types.Shape { return "NamedPipe" }

var listPipes = localPipes

func init() {
	registry.Register(types.Collector{
		Name:        "NamedPipes",
		Description: "Named pipes in the local pipe namespace. Arguments match pipe names",
		Groups:      []types.Group{types.GroupSystem},
		Remote:      types.RemoteNone,
		Invoke:      invokeNamedPipes,
	})
}

func invokeNamedPipes(_ context.Context, args []string, _ types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		names, err := listPipes()
		if err != nil {
			yield(nil, err)
			return
		}
		slices.SortFunc(names, func(a, b string) int {
			return strings.Compare(strings.ToLower(a), strings.ToLower(b))
		})
		for _, name := range names {
			if len(args) > 0 && !slices.ContainsFunc(args, func(a string) bool {
				return strings.Contains(strings.ToLower(name), strings.ToLower(a))
			}) {
				continue
			}
			if !yield(NamedPipe{Name: name}, nil) {
				return
			}
		}
	}
}
