package system

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"net/netip"
	"slices"
	"strings"

	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/formatters"
	"github.com/praetorian-inc/vantage/pkg/types"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

type TCPConnection struct {
	LocalAddress  string
	LocalPort     uint32
	RemoteAddress string
	RemotePort    uint32
	State         string
	PID           int32
	ProcessName   string
}

func (TCPConnection) Shape() types.Shape { return "TCPConnection" }

type UDPEndpoint struct {
	LocalAddress string
	LocalPort    uint32
	PID          int32
	ProcessName  string
}

func (UDPEndpoint) Shape() types.Shape { return "UDPEndpoint" }

var (
	listConnections = gnet.ConnectionsWithContext
	processName     = func(ctx context.Context, pid int32) string {
		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			return ""
		}
		name, _ := p.NameWithContext(ctx)
		return name
	}
)

func init() {
	registry.Register(types.Collector{
		Name:        "TcpConnections",
		Description: "TCP connections and their owning processes; listening sockets only unless --full is given",
		Groups:      []types.Group{types.GroupSystem},
		Remote:      types.RemoteNone,
		Invoke:      invokeTCP,
	})
	registry.Register(types.Collector{
		Name:        "UdpConnections",
		Description: "Bound UDP endpoints and their owning processes; loopback endpoints are hidden unless --full is given",
		Groups:      []types.Group{types.GroupSystem},
		Remote:      types.RemoteNone,
		Invoke:      invokeUDP,
	})
	formatters.Register("TCPConnection", formatters.For(formatTCP))
}

// pidNames caches process names for one collector run.
type pidNames map[int32]string

func (n pidNames) lookup(ctx context.Context, pid int32) string {
	if pid <= 0 {
		return ""
	}
	name, ok := n[pid]
	if !ok {
		name = processName(ctx, pid)
		n[pid] = name
	}
	return name
}

func connections(ctx context.Context, kind string) ([]gnet.ConnectionStat, error) {
	conns, err := listConnections(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s connections: %w", kind, err)
	}
	slices.SortFunc(conns, func(a, b gnet.ConnectionStat) int {
		return cmp.Or(
			cmp.Compare(a.Laddr.Port, b.Laddr.Port),
			strings.Compare(a.Laddr.IP, b.Laddr.IP),
			cmp.Compare(a.Raddr.Port, b.Raddr.Port),
		)
	})
	return conns, nil
}

func invokeTCP(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		conns, err := connections(ctx, "tcp")
		if err != nil {
			yield(nil, err)
			return
		}
		names := pidNames{}
		for _, c := range conns {
			if ec.FilterResults && c.Status != "LISTEN" {
				continue
			}
			rec := TCPConnection{
				LocalAddress:  c.Laddr.IP,
				LocalPort:     c.Laddr.Port,
				RemoteAddress: c.Raddr.IP,
				RemotePort:    c.Raddr.Port,
				State:         c.Status,
				PID:           c.Pid,
				ProcessName:   names.lookup(ctx, c.Pid),
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func invokeUDP(ctx context.Context, _ []string, ec types.ExecutionContext) iter.Seq2[types.Result, error] {
	return func(yield func(types.Result, error) bool) {
		conns, err := connections(ctx, "udp")
		if err != nil {
			yield(nil, err)
			return
		}
		names := pidNames{}
		for _, c := range conns {
			if ec.FilterResults && isLoopback(c.Laddr.IP) {
				continue
			}
			rec := UDPEndpoint{
				LocalAddress: c.Laddr.IP,
				LocalPort:    c.Laddr.Port,
				PID:          c.Pid,
				ProcessName:  names.lookup(ctx, c.Pid),
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func isLoopback(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.IsLoopback()
}

func formatTCP(sink types.TextSink, c TCPConnection, _ bool) error {
	local := netip.AddrPortFrom(parseAddr(c.LocalAddress), uint16(c.LocalPort)).String()
	remote := ""
	if c.RemoteAddress != "" {
		remote = netip.AddrPortFrom(parseAddr(c.RemoteAddress), uint16(c.RemotePort)).String()
	}
	sink.WriteLinef("  %-24s %-24s %-12s %6d  %s", local, remote, c.State, c.PID, c.ProcessName)
	return nil
}

func parseAddr(s string) netip.Addr {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.IPv4Unspecified()
	}
	return addr
}
