// Package selection turns user criteria into the ordered list of collectors
// to run for one invocation.
package selection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/pkg/types"
)

// Catalogue is the read side of the collector registry.
type Catalogue interface {
	FindByName(name string) (types.Collector, bool)
	FindByGroup(g types.Group) []types.Collector
	All() []types.Collector
}

// Request names one collector and the arguments it should receive.
type Request struct {
	Name string
	Args []string
}

// ParseRequest splits a token such as "Processes chrome firefox" into a
// collector name and its arguments.
func ParseRequest(token string) Request {
	parts := strings.Fields(token)
	if len(parts) == 0 {
		return Request{}
	}
	return Request{Name: parts[0], Args: parts[1:]}
}

// Criteria is derived once per run from the command line.
type Criteria struct {
	Requests []Request
	Groups   []types.Group
	All      bool
	// Args go to every selected collector that has no request-specific args.
	Args []string
}

func (c Criteria) Empty() bool {
	return !c.All && len(c.Requests) == 0 && len(c.Groups) == 0
}

type WarningKind string

const (
	UnknownCollector  WarningKind = "unknown"
	RemoteExcluded    WarningKind = "remote-incompatible"
	RemoteDegraded    WarningKind = "remote-degraded"
	RequiresElevation WarningKind = "requires-elevation"
)

// Warning explains why a requested collector is missing or limited.
type Warning struct {
	Kind   WarningKind
	Name   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Name, w.Reason)
}

// Item is a collector selected to run with its arguments.
type Item struct {
	Collector types.Collector
	Args      []string
}

type Selection struct {
	Items    []Item
	Warnings []Warning
}

func (s Selection) Names() []string {
	names := make([]string, len(s.Items))
	for i, it := range s.Items {
		names[i] = it.Collector.Name
	}
	return names
}

// Select resolves criteria against the catalogue. The result preserves
// catalogue order; nothing in here is fatal.
func Select(cat Catalogue, criteria Criteria, ec types.ExecutionContext) Selection {
	var sel Selection

	wanted := make(map[string][]string) // lower-cased name -> args
	args := func(explicit []string) []string {
		if len(explicit) > 0 {
			return slices.Clone(explicit)
		}
		return slices.Clone(criteria.Args)
	}

	for _, req := range criteria.Requests {
		if req.Name == "" {
			continue
		}
		if strings.EqualFold(req.Name, "all") {
			criteria.All = true
			continue
		}
		c, ok := cat.FindByName(req.Name)
		if !ok {
			sel.Warnings = append(sel.Warnings, Warning{
				Kind:   UnknownCollector,
				Name:   req.Name,
				Reason: "no collector with this name",
			})
			continue
		}
		wanted[strings.ToLower(c.Name)] = args(req.Args)
	}

	for _, g := range criteria.Groups {
		for _, c := range cat.FindByGroup(g) {
			key := strings.ToLower(c.Name)
			if _, ok := wanted[key]; !ok {
				wanted[key] = args(nil)
			}
		}
	}

	remote := ec.IsRemote()
	for _, c := range cat.All() {
		key := strings.ToLower(c.Name)
		a, ok := wanted[key]
		if !ok {
			if !criteria.All {
				continue
			}
			a = args(nil)
		}

		if remote {
			switch c.Remote {
			case types.RemoteNone:
				sel.Warnings = append(sel.Warnings, Warning{
					Kind:   RemoteExcluded,
					Name:   c.Name,
					Reason: fmt.Sprintf("cannot run against remote host %s", ec.ComputerName),
				})
				continue
			case types.RemoteDegraded:
				sel.Warnings = append(sel.Warnings, Warning{
					Kind:   RemoteDegraded,
					Name:   c.Name,
					Reason: "reports less detail when run remotely",
				})
			}
		}

		if c.RequiresAdmin && !ec.Elevated && !remote {
			sel.Warnings = append(sel.Warnings, Warning{
				Kind:   RequiresElevation,
				Name:   c.Name,
				Reason: "needs an elevated session for complete output",
			})
		}

		sel.Items = append(sel.Items, Item{Collector: c, Args: a})
	}

	return sel
}
