package types

import (
	"fmt"
	"strings"
)

// Group is a coarse tag used to select several collectors at once.
type Group string

const (
	GroupSystem Group = "system"
	GroupUser   Group = "user"
	GroupMisc   Group = "misc"
	GroupRemote Group = "remote"
)

// AllGroups lists the known groups in display order.
var AllGroups = []Group{GroupSystem, GroupUser, GroupMisc, GroupRemote}

func ParseGroup(s string) (Group, error) {
	g := Group(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllGroups {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown group %q (expected one of %s)", s, groupList())
}

func groupList() string {
	names := make([]string, len(AllGroups))
	for i, g := range AllGroups {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

// RemoteSupport describes how well a collector runs against a non-local host.
type RemoteSupport int

const (
	// RemoteNone collectors only inspect the local machine.
	RemoteNone RemoteSupport = iota
	// RemoteDegraded collectors run remotely but report less than they do locally.
	RemoteDegraded
	// RemoteFull collectors produce the same findings locally and remotely.
	RemoteFull
)

func (r RemoteSupport) Supports() bool {
	return r != RemoteNone
}

func (r RemoteSupport) String() string {
	switch r {
	case RemoteNone:
		return "local only"
	case RemoteDegraded:
		return "remote (degraded)"
	case RemoteFull:
		return "remote"
	}
	return fmt.Sprintf("RemoteSupport(%d)", int(r))
}
